package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/vectorium/ai"
	"github.com/poiesic/vectorium/ai/mock"
)

func TestNewBatcher(t *testing.T) {
	t.Run("requires embedder", func(t *testing.T) {
		_, err := NewBatcher(nil)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})

	t.Run("defaults", func(t *testing.T) {
		b, err := NewBatcher(mock.NewMockEmbedder())
		require.NoError(t, err)
		assert.Equal(t, DefaultMaxBatchItems, b.maxItems)
		assert.Equal(t, DefaultMaxBatchChars, b.maxChars)
	})
}

func TestBatcher_Partition(t *testing.T) {
	t.Run("item limit", func(t *testing.T) {
		b, err := NewBatcher(mock.NewMockEmbedder(), WithMaxBatchItems(3))
		require.NoError(t, err)

		batches := b.partition([]string{"a", "b", "c", "d", "e", "f", "g"})
		require.Len(t, batches, 3)
		assert.Equal(t, []string{"a", "b", "c"}, batches[0])
		assert.Equal(t, []string{"g"}, batches[2])
	})

	t.Run("char limit", func(t *testing.T) {
		b, err := NewBatcher(mock.NewMockEmbedder(), WithMaxBatchChars(10))
		require.NoError(t, err)

		batches := b.partition([]string{"aaaa", "bbbb", "cccc"})
		require.Len(t, batches, 2)
		assert.Equal(t, []string{"aaaa", "bbbb"}, batches[0])
		assert.Equal(t, []string{"cccc"}, batches[1])
	})

	t.Run("oversized text forms its own batch", func(t *testing.T) {
		b, err := NewBatcher(mock.NewMockEmbedder(), WithMaxBatchChars(10))
		require.NoError(t, err)

		huge := strings.Repeat("x", 50)
		batches := b.partition([]string{"aa", huge, "bb"})
		require.Len(t, batches, 3)
		assert.Equal(t, []string{huge}, batches[1])
	})
}

func TestBatcher_EmbedAll(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		b, err := NewBatcher(mock.NewMockEmbedder())
		require.NoError(t, err)

		vectors, err := b.EmbedAll(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, vectors)
	})

	t.Run("item limit drives request count", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		b, err := NewBatcher(embedder)
		require.NoError(t, err)

		// 3000 short texts stay far under the character limit, so the
		// item limit alone decides: 2048 + 952.
		texts := make([]string, 3000)
		for i := range texts {
			texts[i] = fmt.Sprintf("text %04d!", i)
		}

		vectors, err := b.EmbedAll(context.Background(), texts)
		require.NoError(t, err)

		assert.Len(t, vectors, 3000)
		assert.Equal(t, 2, embedder.CallCount())
	})

	t.Run("result order matches input", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		b, err := NewBatcher(embedder, WithMaxBatchItems(2))
		require.NoError(t, err)

		texts := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
		vectors, err := b.EmbedAll(context.Background(), texts)
		require.NoError(t, err)
		require.Len(t, vectors, 5)

		for i, text := range texts {
			expected, embedErr := mock.NewMockEmbedder().EmbedText(context.Background(), text)
			require.NoError(t, embedErr)
			assert.Equal(t, expected, vectors[i], "vector %d out of order", i)
		}
	})

	t.Run("retries once after rate limit", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		calls := 0
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			calls++
			if calls == 1 {
				return nil, fmt.Errorf("%w: 429", ai.ErrRateLimited)
			}
			return make([][]float32, len(texts)), nil
		}

		b, err := NewBatcher(embedder, WithRateLimitCooldown(time.Millisecond))
		require.NoError(t, err)

		vectors, err := b.EmbedAll(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		assert.Len(t, vectors, 2)
		assert.Equal(t, 2, calls)
	})

	t.Run("second rate limit fails", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, fmt.Errorf("%w: 429", ai.ErrRateLimited)
		}

		b, err := NewBatcher(embedder, WithRateLimitCooldown(time.Millisecond))
		require.NoError(t, err)

		_, err = b.EmbedAll(context.Background(), []string{"a"})
		assert.ErrorIs(t, err, ai.ErrRateLimited)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		calls := 0
		boom := errors.New("boom")
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			calls++
			return nil, boom
		}

		b, err := NewBatcher(embedder, WithRateLimitCooldown(time.Millisecond))
		require.NoError(t, err)

		_, err = b.EmbedAll(context.Background(), []string{"a"})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context aborts cooldown", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, fmt.Errorf("%w: 429", ai.ErrRateLimited)
		}

		b, err := NewBatcher(embedder, WithRateLimitCooldown(time.Minute))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = b.EmbedAll(ctx, []string{"a"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
