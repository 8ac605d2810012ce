package vectorium

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/vectorium/ai/mock"
	"github.com/poiesic/vectorium/core"
	"github.com/poiesic/vectorium/index"
	"github.com/poiesic/vectorium/index/local"
)

const (
	testProvider  = "local"
	testIndexName = "service-test"
	testNamespace = "tenant-1"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	registry := index.NewRegistry()
	registry.Register(testProvider, func() (index.VectorIndex, error) {
		return local.Open("", true)
	})

	service, err := NewService(registry, mock.NewMockEmbedder())
	require.NoError(t, err)
	t.Cleanup(func() { service.Close() })
	return service
}

func TestNewService_Validation(t *testing.T) {
	t.Run("nil registry", func(t *testing.T) {
		_, err := NewService(nil, mock.NewMockEmbedder())
		assert.Error(t, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewService(index.NewRegistry(), nil)
		assert.Error(t, err)
	})
}

func TestService_CreateIndex(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	t.Run("creates and becomes ready", func(t *testing.T) {
		err := service.CreateIndex(ctx, testProvider, &core.IndexConfig{
			IndexName: testIndexName,
			Dimension: 384,
			Metric:    "cosine",
		})
		require.NoError(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		err := service.CreateIndex(ctx, "nope", &core.IndexConfig{
			IndexName: "x", Dimension: 8, Metric: "cosine",
		})
		assert.ErrorIs(t, err, index.ErrUnknownProvider)
	})

	t.Run("invalid config", func(t *testing.T) {
		err := service.CreateIndex(ctx, testProvider, &core.IndexConfig{IndexName: ""})
		assert.ErrorIs(t, err, core.ErrInvalidIndexConfig)
	})
}

func TestService_UpsertAndSearch(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	require.NoError(t, service.CreateIndex(ctx, testProvider, &core.IndexConfig{
		IndexName: testIndexName,
		Dimension: 384,
		Metric:    "cosine",
	}))

	records := []core.SourceRecord{
		{ID: "note-1", Data: map[string]any{"text": "The quarterly report covers revenue growth."}},
		{ID: "note-2", Data: map[string]any{"text": "Kubernetes cluster autoscaling configuration."}},
	}
	report, err := service.UpsertData(ctx, testProvider, testIndexName, testNamespace, records)
	require.NoError(t, err)
	assert.Equal(t, "direct", report.Strategy)
	assert.Equal(t, 2, report.Records)
	require.Positive(t, report.Chunks)

	t.Run("query finds the matching note", func(t *testing.T) {
		matches, err := service.Search(ctx, testProvider, testIndexName, &core.QueryRequest{
			Namespace: testNamespace,
			Query:     "The quarterly report covers revenue growth.",
			TopK:      1,
		})
		require.NoError(t, err)

		require.Len(t, matches, 1)
		assert.Equal(t, "note-1", core.MetaString(matches[0].Metadata, core.MetaOriginalID))
	})

	t.Run("document chunks listed in order", func(t *testing.T) {
		matches, err := service.GetDocumentChunks(ctx, testProvider, testIndexName, testNamespace, "note-1")
		require.NoError(t, err)
		require.NotEmpty(t, matches)

		for _, match := range matches {
			assert.Equal(t, "note-1", core.MetaString(match.Metadata, core.MetaOriginalID))
		}
	})

	t.Run("chunk context resolves", func(t *testing.T) {
		matches, err := service.GetDocumentChunks(ctx, testProvider, testIndexName, testNamespace, "note-1")
		require.NoError(t, err)
		require.NotEmpty(t, matches)

		result, err := service.GetChunkWithContext(ctx, testProvider, testIndexName, testNamespace, matches[0].ID)
		require.NoError(t, err)
		assert.True(t, result.Found)
		assert.Contains(t, result.CombinedText, "quarterly report")
	})

	t.Run("unknown chunk is not found", func(t *testing.T) {
		result, err := service.GetChunkWithContext(ctx, testProvider, testIndexName, testNamespace, "ghost")
		require.NoError(t, err)
		assert.False(t, result.Found)
	})
}

func TestService_EnsureNamespaceExists(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	require.NoError(t, service.CreateIndex(ctx, testProvider, &core.IndexConfig{
		IndexName: testIndexName,
		Dimension: 16,
		Metric:    "cosine",
	}))

	require.NoError(t, service.EnsureNamespaceExists(ctx, testProvider, testIndexName, "fresh-ns", 16))

	// The probe must not linger.
	idx, err := service.Registry().Get(testProvider)
	require.NoError(t, err)
	matches, err := idx.Fetch(ctx, testIndexName, "fresh-ns", []string{namespaceProbeID})
	require.NoError(t, err)
	assert.Empty(t, matches)

	t.Run("rejects non-positive dimension", func(t *testing.T) {
		err := service.EnsureNamespaceExists(ctx, testProvider, testIndexName, "ns", 0)
		assert.Error(t, err)
	})
}
