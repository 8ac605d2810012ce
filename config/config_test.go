package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 1000, cfg.Splitter.ChunkSize)
	assert.Equal(t, 200, cfg.Splitter.ChunkOverlap)
	assert.Equal(t, 2048, cfg.Ingestion.MaxBatchItems)
	assert.Equal(t, 750000, cfg.Ingestion.MaxBatchChars)
	assert.Equal(t, 250, cfg.Ingestion.ShardThreshold)
	assert.Equal(t, 5*time.Second, cfg.Ingestion.RateLimitCooldown)
	assert.Equal(t, 5, cfg.Extract.FileWorkers)
	assert.Equal(t, int64(50*1024*1024), cfg.Extract.MaxFileSize)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("EMBED_RATE_LIMIT_COOLDOWN", "250ms")
	t.Setenv("LOCAL_IN_MEMORY", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 500, cfg.Splitter.ChunkSize)
	assert.Equal(t, 50, cfg.Splitter.ChunkOverlap)
	assert.Equal(t, 250*time.Millisecond, cfg.Ingestion.RateLimitCooldown)
	assert.True(t, cfg.Local.InMemory)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "not-a-number")
	t.Setenv("LOCAL_IN_MEMORY", "sort of")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Splitter.ChunkSize)
	assert.False(t, cfg.Local.InMemory)
}

func TestValidate(t *testing.T) {
	t.Run("overlap must stay below chunk size", func(t *testing.T) {
		t.Setenv("CHUNK_SIZE", "100")
		t.Setenv("CHUNK_OVERLAP", "100")

		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("shard threshold must be positive", func(t *testing.T) {
		t.Setenv("SHARD_THRESHOLD", "-1")

		_, err := Load("")
		assert.Error(t, err)
	})
}
