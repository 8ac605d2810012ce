// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full service configuration.
type Config struct {
	Server    ServerConfig
	Embedding EmbeddingConfig
	Pinecone  PineconeConfig
	Local     LocalConfig
	Splitter  SplitterConfig
	Ingestion IngestionConfig
	Extract   ExtractConfig
}

// ServerConfig is the HTTP listener configuration.
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// EmbeddingConfig configures the remote embedding service.
type EmbeddingConfig struct {
	Host  string
	Model string
	Token string
}

// PineconeConfig configures the Pinecone provider. An empty APIKey leaves
// the provider unregistered.
type PineconeConfig struct {
	APIKey string
}

// LocalConfig configures the embedded on-disk provider.
type LocalConfig struct {
	DataDir  string
	InMemory bool
}

// SplitterConfig tunes text chunking.
type SplitterConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	SplitThreshold int
}

// IngestionConfig tunes the ingestion pipeline and embedding batcher.
type IngestionConfig struct {
	MaxBatchItems     int
	MaxBatchChars     int
	RateLimitCooldown time.Duration
	UpsertBatchSize   int
	ShardThreshold    int
	GroupSize         int
	WorkerPoolSize    int
	UpsertPoolSize    int
	GroupPoolSize     int
}

// ExtractConfig tunes referenced-file download and extraction.
type ExtractConfig struct {
	FileWorkers int
	MaxFileSize int64
}

// Load reads configuration from the environment. When envFile names an
// existing file it is loaded first; a missing file is not an error, so the
// same binary runs from plain environment variables in production.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading env file %q: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Embedding: EmbeddingConfig{
			Host:  getEnv("EMBEDDING_HOST", ""),
			Model: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Token: getEnv("EMBEDDING_TOKEN", ""),
		},
		Pinecone: PineconeConfig{
			APIKey: getEnv("PINECONE_API_KEY", ""),
		},
		Local: LocalConfig{
			DataDir:  getEnv("LOCAL_DATA_DIR", "./data/vectorium"),
			InMemory: getEnvBool("LOCAL_IN_MEMORY", false),
		},
		Splitter: SplitterConfig{
			ChunkSize:      getEnvInt("CHUNK_SIZE", 1000),
			ChunkOverlap:   getEnvInt("CHUNK_OVERLAP", 200),
			SplitThreshold: getEnvInt("SPLIT_THRESHOLD", 1000),
		},
		Ingestion: IngestionConfig{
			MaxBatchItems:     getEnvInt("EMBED_MAX_BATCH_ITEMS", 2048),
			MaxBatchChars:     getEnvInt("EMBED_MAX_BATCH_CHARS", 750000),
			RateLimitCooldown: getEnvDuration("EMBED_RATE_LIMIT_COOLDOWN", 5*time.Second),
			UpsertBatchSize:   getEnvInt("UPSERT_BATCH_SIZE", 100),
			ShardThreshold:    getEnvInt("SHARD_THRESHOLD", 250),
			GroupSize:         getEnvInt("SHARD_GROUP_SIZE", 100),
			WorkerPoolSize:    getEnvInt("WORKER_POOL_SIZE", 0),
			UpsertPoolSize:    getEnvInt("UPSERT_POOL_SIZE", 0),
			GroupPoolSize:     getEnvInt("GROUP_POOL_SIZE", 0),
		},
		Extract: ExtractConfig{
			FileWorkers: getEnvInt("FILE_WORKERS", 5),
			MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 50*1024*1024),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the components would refuse anyway, so
// misconfiguration surfaces at startup instead of on the first request.
func (c *Config) Validate() error {
	if c.Splitter.ChunkSize < 1 {
		return fmt.Errorf("CHUNK_SIZE must be positive")
	}
	if c.Splitter.ChunkOverlap < 0 || c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}
	if c.Splitter.SplitThreshold < 1 {
		return fmt.Errorf("SPLIT_THRESHOLD must be positive")
	}
	if c.Ingestion.ShardThreshold < 1 {
		return fmt.Errorf("SHARD_THRESHOLD must be positive")
	}
	if c.Ingestion.GroupSize < 1 {
		return fmt.Errorf("SHARD_GROUP_SIZE must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
