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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/vectorium/ai"
)

// Embedding API limits. A request may carry at most this many inputs and
// this many total characters, whichever is hit first.
const (
	DefaultMaxBatchItems = 2048
	DefaultMaxBatchChars = 750000

	// DefaultRateLimitCooldown is how long the batcher waits before its
	// single retry after a throttled request.
	DefaultRateLimitCooldown = 5 * time.Second
)

// Batcher embeds large text collections in batches sized to the remote
// API's limits.
type Batcher struct {
	embedder ai.Embedder
	maxItems int
	maxChars int
	cooldown time.Duration
	logger   *slog.Logger
}

// BatcherOption configures a Batcher.
type BatcherOption func(*Batcher)

// WithMaxBatchItems caps the number of texts per request.
func WithMaxBatchItems(items int) BatcherOption {
	return func(b *Batcher) {
		if items > 0 {
			b.maxItems = items
		}
	}
}

// WithMaxBatchChars caps the total characters per request.
func WithMaxBatchChars(chars int) BatcherOption {
	return func(b *Batcher) {
		if chars > 0 {
			b.maxChars = chars
		}
	}
}

// WithRateLimitCooldown sets the wait before the single retry of a
// throttled request.
func WithRateLimitCooldown(cooldown time.Duration) BatcherOption {
	return func(b *Batcher) {
		if cooldown > 0 {
			b.cooldown = cooldown
		}
	}
}

// WithBatcherLogger sets a custom logger.
// Default is slog.Default().
func WithBatcherLogger(logger *slog.Logger) BatcherOption {
	return func(b *Batcher) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBatcher creates a Batcher for the given embedder.
func NewBatcher(embedder ai.Embedder, opts ...BatcherOption) (*Batcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	b := &Batcher{
		embedder: embedder,
		maxItems: DefaultMaxBatchItems,
		maxChars: DefaultMaxBatchChars,
		cooldown: DefaultRateLimitCooldown,
		logger:   slog.Default().With("component", "embedding-batcher"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// EmbedAll embeds every text, batching greedily under both limits. The
// result is ordered 1:1 with the input. A single text above the character
// limit forms its own batch rather than being dropped.
func (b *Batcher) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for _, batch := range b.partition(texts) {
		batchVectors, err := b.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(batchVectors) != len(batch) {
			return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(batch), len(batchVectors))
		}
		vectors = append(vectors, batchVectors...)
	}
	return vectors, nil
}

// partition groups texts into order-preserving batches under both limits.
func (b *Batcher) partition(texts []string) [][]string {
	var batches [][]string
	var current []string
	chars := 0

	for _, text := range texts {
		over := len(current) >= b.maxItems || (len(current) > 0 && chars+len(text) > b.maxChars)
		if over {
			batches = append(batches, current)
			current = nil
			chars = 0
		}
		current = append(current, text)
		chars += len(text)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// embedBatch sends one batch, retrying once after the cooldown if the
// service throttles the request.
func (b *Batcher) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	vectors, err := b.embedder.EmbedTexts(ctx, batch)
	if err == nil {
		return vectors, nil
	}
	if !errors.Is(err, ai.ErrRateLimited) {
		return nil, err
	}

	b.logger.Warn("embedding request throttled, retrying after cooldown",
		"batch_size", len(batch), "cooldown", b.cooldown)

	select {
	case <-time.After(b.cooldown):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	vectors, err = b.embedder.EmbedTexts(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("embedding retry failed: %w", err)
	}
	return vectors, nil
}
