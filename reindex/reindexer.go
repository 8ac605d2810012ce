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


package reindex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/vectorium/ai"
	"github.com/poiesic/vectorium/core"
	"github.com/poiesic/vectorium/index"
)

// Config holds configuration for a reindexing run.
type Config struct {
	// BatchSize is the number of chunks embedded and written per batch
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for failed embed or
	// upsert calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Summary reports the outcome of a reindexing run.
type Summary struct {
	Total     int
	Reindexed int
	Skipped   int
}

// Reindexer re-embeds every chunk in a namespace with the configured
// embedder, writing each vector back under its original id.
type Reindexer struct {
	embedder ai.Embedder
	config   *Config
	progress io.Writer
}

// NewReindexer creates a reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(embedder ai.Embedder, config *Config, progress io.Writer) (*Reindexer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reindexer{
		embedder: embedder,
		config:   config,
		progress: progress,
	}, nil
}

// Run reindexes one index namespace. Chunks whose stored text is empty are
// skipped and counted; any other failure aborts the run after retries.
func (r *Reindexer) Run(ctx context.Context, idx index.VectorIndex, indexName, namespace string) (*Summary, error) {
	matches, err := idx.Query(ctx, indexName, namespace, nil, index.QueryOptions{TopK: index.MetadataScanLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}

	summary := &Summary{Total: len(matches)}
	if len(matches) == 0 {
		fmt.Fprintf(r.progress, "No chunks found in namespace %q (0 chunks)\n", namespace)
		return summary, nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d chunks (batch size: %d)\n",
		len(matches), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, len(matches), r.config.ReportInterval)
	tracker.Start()

	for start := 0; start < len(matches); start += r.config.BatchSize {
		end := start + r.config.BatchSize
		if end > len(matches) {
			end = len(matches)
		}

		batch := matches[start:end]
		reindexed, skipped, err := r.processBatch(ctx, idx, indexName, namespace, batch)
		if err != nil {
			return summary, fmt.Errorf("failed to process batch: %w", err)
		}

		summary.Reindexed += reindexed
		summary.Skipped += skipped
		tracker.Increment(len(batch))
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reindex complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		summary.Total, elapsed.Round(time.Second), float64(summary.Total)/elapsed.Seconds())

	return summary, nil
}

// processBatch embeds one batch of stored chunks and overwrites their
// vectors.
func (r *Reindexer) processBatch(ctx context.Context, idx index.VectorIndex, indexName, namespace string, batch []core.SearchMatch) (int, int, error) {
	texts := make([]string, 0, len(batch))
	kept := make([]core.SearchMatch, 0, len(batch))
	skipped := 0

	for _, match := range batch {
		text := core.MetaString(match.Metadata, core.MetaText)
		if text == "" {
			text = core.MetaString(match.Metadata, core.MetaChunkPreview)
		}
		if text == "" {
			skipped++
			continue
		}
		texts = append(texts, text)
		kept = append(kept, match)
	}

	if len(kept) == 0 {
		return 0, skipped, nil
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		embeddings, embedErr = r.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return 0, skipped, fmt.Errorf("embedding %d chunks: %w", len(kept), err)
	}
	if len(embeddings) != len(kept) {
		return 0, skipped, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(kept))
	}

	vectors := make([]core.IndexedVector, len(kept))
	for i, match := range kept {
		vectors[i] = core.IndexedVector{
			ID:       match.ID,
			Values:   embeddings[i],
			Metadata: match.Metadata,
		}
	}

	err = RetryWithBackoff(ctx, func() error {
		return idx.Upsert(ctx, indexName, namespace, vectors)
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return 0, skipped, fmt.Errorf("upserting %d vectors: %w", len(vectors), err)
	}

	return len(kept), skipped, nil
}
