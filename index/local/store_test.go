package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/vectorium/core"
	"github.com/poiesic/vectorium/index"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestIndex(t *testing.T, store *Store, name string) {
	t.Helper()
	err := store.CreateIndex(context.Background(), &core.IndexConfig{
		IndexName: name,
		Dimension: 3,
		Metric:    "cosine",
	})
	require.NoError(t, err)
}

func TestStore_CreateIndex(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	t.Run("create and describe", func(t *testing.T) {
		createTestIndex(t, store, "idx")

		ready, err := store.DescribeIndexReady(ctx, "idx")
		require.NoError(t, err)
		assert.True(t, ready)
	})

	t.Run("duplicate create fails", func(t *testing.T) {
		err := store.CreateIndex(ctx, &core.IndexConfig{IndexName: "idx", Dimension: 3, Metric: "cosine"})
		assert.ErrorIs(t, err, index.ErrIndexExists)
	})

	t.Run("missing index not ready", func(t *testing.T) {
		_, err := store.DescribeIndexReady(ctx, "absent")
		assert.ErrorIs(t, err, index.ErrIndexNotFound)
	})

	t.Run("invalid config rejected", func(t *testing.T) {
		err := store.CreateIndex(ctx, &core.IndexConfig{IndexName: "", Dimension: 3, Metric: "cosine"})
		assert.ErrorIs(t, err, core.ErrInvalidIndexConfig)
	})
}

func TestStore_UpsertFetch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	createTestIndex(t, store, "idx")

	vectors := []core.IndexedVector{
		{ID: "a", Values: []float32{1, 0, 0}, Metadata: map[string]any{"original_id": "doc-1"}},
		{ID: "b", Values: []float32{0, 1, 0}, Metadata: map[string]any{"original_id": "doc-1"}},
	}
	require.NoError(t, store.Upsert(ctx, "idx", "ns", vectors))

	t.Run("fetch existing", func(t *testing.T) {
		matches, err := store.Fetch(ctx, "idx", "ns", []string{"a", "b"})
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "a", matches[0].ID)
		assert.Equal(t, []float32{1, 0, 0}, matches[0].Vector)
		assert.Equal(t, "doc-1", core.MetaString(matches[0].Metadata, "original_id"))
		assert.Nil(t, matches[0].Score)
	})

	t.Run("missing ids are absent", func(t *testing.T) {
		matches, err := store.Fetch(ctx, "idx", "ns", []string{"a", "ghost"})
		require.NoError(t, err)
		require.Len(t, matches, 1)
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		matches, err := store.Fetch(ctx, "idx", "other", []string{"a"})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("upsert replaces by id", func(t *testing.T) {
		replacement := []core.IndexedVector{
			{ID: "a", Values: []float32{0, 0, 1}, Metadata: map[string]any{"original_id": "doc-2"}},
		}
		require.NoError(t, store.Upsert(ctx, "idx", "ns", replacement))

		matches, err := store.Fetch(ctx, "idx", "ns", []string{"a"})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "doc-2", core.MetaString(matches[0].Metadata, "original_id"))
	})

	t.Run("upsert into missing index fails", func(t *testing.T) {
		err := store.Upsert(ctx, "absent", "ns", vectors)
		assert.ErrorIs(t, err, index.ErrIndexNotFound)
	})
}

func TestStore_Query(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	createTestIndex(t, store, "idx")

	vectors := []core.IndexedVector{
		{ID: "x", Values: []float32{1, 0, 0}, Metadata: map[string]any{"original_id": "doc-1", "chunk_index": 0}},
		{ID: "y", Values: []float32{0.9, 0.1, 0}, Metadata: map[string]any{"original_id": "doc-1", "chunk_index": 1}},
		{ID: "z", Values: []float32{0, 0, 1}, Metadata: map[string]any{"original_id": "doc-2", "chunk_index": 0}},
	}
	require.NoError(t, store.Upsert(ctx, "idx", "ns", vectors))

	t.Run("ranked by cosine similarity", func(t *testing.T) {
		matches, err := store.Query(ctx, "idx", "ns", []float32{1, 0, 0}, index.QueryOptions{TopK: 2})
		require.NoError(t, err)

		require.Len(t, matches, 2)
		assert.Equal(t, "x", matches[0].ID)
		assert.Equal(t, "y", matches[1].ID)
		require.NotNil(t, matches[0].Score)
		assert.InDelta(t, 1.0, float64(*matches[0].Score), 1e-5)
		assert.Greater(t, *matches[0].Score, *matches[1].Score)
	})

	t.Run("metadata filter restricts matches", func(t *testing.T) {
		matches, err := store.Query(ctx, "idx", "ns", []float32{1, 0, 0}, index.QueryOptions{
			TopK:   10,
			Filter: index.Eq("original_id", "doc-2"),
		})
		require.NoError(t, err)

		require.Len(t, matches, 1)
		assert.Equal(t, "z", matches[0].ID)
	})

	t.Run("nil vector lists by filter", func(t *testing.T) {
		matches, err := store.Query(ctx, "idx", "ns", nil, index.QueryOptions{
			Filter: index.Eq("original_id", "doc-1"),
		})
		require.NoError(t, err)

		require.Len(t, matches, 2)
		assert.Nil(t, matches[0].Score)
		assert.Equal(t, "x", matches[0].ID)

		capped, err := store.Query(ctx, "idx", "ns", nil, index.QueryOptions{
			TopK:   1,
			Filter: index.Eq("original_id", "doc-1"),
		})
		require.NoError(t, err)
		require.Len(t, capped, 1)
		assert.Equal(t, "y", matches[1].ID)
	})

	t.Run("include vectors", func(t *testing.T) {
		matches, err := store.Query(ctx, "idx", "ns", []float32{0, 0, 1}, index.QueryOptions{
			TopK:           1,
			IncludeVectors: true,
		})
		require.NoError(t, err)

		require.Len(t, matches, 1)
		assert.Equal(t, []float32{0, 0, 1}, matches[0].Vector)
	})
}

func TestStore_Delete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	createTestIndex(t, store, "idx")

	vectors := []core.IndexedVector{
		{ID: "a", Values: []float32{1, 0, 0}, Metadata: map[string]any{"original_id": "doc-1"}},
		{ID: "b", Values: []float32{0, 1, 0}, Metadata: map[string]any{"original_id": "doc-2"}},
		{ID: "c", Values: []float32{0, 0, 1}, Metadata: map[string]any{"original_record_id": "doc-1"}},
	}
	require.NoError(t, store.Upsert(ctx, "idx", "ns", vectors))

	t.Run("delete by ownership filter", func(t *testing.T) {
		err := store.Delete(ctx, "idx", "ns", index.OwnershipFilter([]string{"doc-1"}))
		require.NoError(t, err)

		remaining, err := store.Query(ctx, "idx", "ns", nil, index.QueryOptions{})
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, "b", remaining[0].ID)
	})

	t.Run("delete with no matches is a no-op", func(t *testing.T) {
		err := store.Delete(ctx, "idx", "ns", index.Eq("original_id", "ghost"))
		require.NoError(t, err)
	})
}

func TestVectorSerializationRoundTrip(t *testing.T) {
	original := core.IndexedVector{
		ID:     "doc-1_chunk_0_abc",
		Values: []float32{0.25, -1.5, 3.75},
		Metadata: map[string]any{
			"original_id": "doc-1",
			"chunk_index": float64(0),
			"text":        "some chunk text",
		},
	}

	data, err := encodeVector(original)
	require.NoError(t, err)

	decoded, err := decodeVector(data)
	require.NoError(t, err)

	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, original.Values, decoded.Values)
	assert.Equal(t, original.Metadata, decoded.Metadata)
}
