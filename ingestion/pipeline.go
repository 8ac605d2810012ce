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
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/vectorium/core"
	"github.com/poiesic/vectorium/index"
)

// Strategy defaults. Batches above the shard threshold switch from the
// fail-fast direct path to independent fail-soft groups.
const (
	DefaultUpsertBatchSize = 100
	DefaultShardThreshold  = 250
	DefaultGroupSize       = 100

	defaultWorkerPoolSize = 4
	defaultUpsertPoolSize = 8
	defaultGroupPoolSize  = 4
)

// Report summarizes one ingestion run.
type Report struct {
	Strategy string        `json:"strategy"`
	Records  int           `json:"records"`
	Chunks   int           `json:"chunks"`
	Groups   []GroupResult `json:"groups,omitempty"`
}

// GroupResult is the outcome of one record group under the sharded
// strategy. A non-empty Error marks the group as failed; its records were
// deleted but not re-upserted.
type GroupResult struct {
	Group   int    `json:"group"`
	Records int    `json:"records"`
	Chunks  int    `json:"chunks"`
	Error   string `json:"error,omitempty"`
}

// Failed reports whether the group's ingestion failed.
func (g GroupResult) Failed() bool {
	return g.Error != ""
}

// Pipeline orchestrates delete-then-upsert ingestion against a vector
// index.
type Pipeline struct {
	assembler *Assembler
	batcher   *Batcher

	upsertBatchSize int
	shardThreshold  int
	groupSize       int

	workerPool *ants.Pool
	upsertPool *ants.Pool
	groupPool  *ants.Pool

	locks  *keyedLocks
	logger *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline) error

// WithUpsertBatchSize sets how many vectors one upsert request carries.
// Default is 100.
func WithUpsertBatchSize(size int) PipelineOption {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("upsert batch size must be positive")
		}
		p.upsertBatchSize = size
		return nil
	}
}

// WithShardThreshold sets the record count above which ingestion switches
// to the sharded strategy. Default is 250.
func WithShardThreshold(threshold int) PipelineOption {
	return func(p *Pipeline) error {
		if threshold < 1 {
			return fmt.Errorf("shard threshold must be positive")
		}
		p.shardThreshold = threshold
		return nil
	}
}

// WithGroupSize sets how many records one sharded group holds.
// Default is 100.
func WithGroupSize(size int) PipelineOption {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("group size must be positive")
		}
		p.groupSize = size
		return nil
	}
}

// WithPoolSizes sets the three worker pool sizes: the general worker pool
// (deletes and assembly), the upsert fan-out pool, and the sharded group
// pool. Zero keeps a pool's default.
func WithPoolSizes(worker, upsert, group int) PipelineOption {
	return func(p *Pipeline) error {
		resize := func(pool **ants.Pool, size int) error {
			if size < 1 {
				return nil
			}
			(*pool).Release()
			fresh, err := ants.NewPool(size)
			if err != nil {
				return err
			}
			*pool = fresh
			return nil
		}
		if err := resize(&p.workerPool, worker); err != nil {
			return err
		}
		if err := resize(&p.upsertPool, upsert); err != nil {
			return err
		}
		return resize(&p.groupPool, group)
	}
}

// WithPipelineLogger sets a custom logger.
// Default is slog.Default().
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) error {
		if logger != nil {
			p.logger = logger
		}
		return nil
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(assembler *Assembler, batcher *Batcher, opts ...PipelineOption) (*Pipeline, error) {
	if assembler == nil {
		return nil, fmt.Errorf("assembler required")
	}
	if batcher == nil {
		return nil, ErrEmbedderRequired
	}

	workerPool, err := ants.NewPool(defaultWorkerPoolSize)
	if err != nil {
		return nil, err
	}
	upsertPool, err := ants.NewPool(defaultUpsertPoolSize)
	if err != nil {
		workerPool.Release()
		return nil, err
	}
	groupPool, err := ants.NewPool(defaultGroupPoolSize)
	if err != nil {
		workerPool.Release()
		upsertPool.Release()
		return nil, err
	}

	p := &Pipeline{
		assembler:       assembler,
		batcher:         batcher,
		upsertBatchSize: DefaultUpsertBatchSize,
		shardThreshold:  DefaultShardThreshold,
		groupSize:       DefaultGroupSize,
		workerPool:      workerPool,
		upsertPool:      upsertPool,
		groupPool:       groupPool,
		locks:           newKeyedLocks(),
		logger:          slog.Default().With("component", "ingestion-pipeline"),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// Release releases the worker pools. The pipeline must not be used after
// calling Release.
func (p *Pipeline) Release() {
	if p.workerPool != nil {
		p.workerPool.Release()
	}
	if p.upsertPool != nil {
		p.upsertPool.Release()
	}
	if p.groupPool != nil {
		p.groupPool.Release()
	}
}

// Ingest writes the records' chunks into the index namespace, replacing
// chunks from any earlier ingestion of the same source ids. The strategy
// is chosen by volume: batches at or below the shard threshold run as one
// fail-fast unit, larger batches run as independent fail-soft groups.
//
// Concurrent ingestions touching the same (namespace, source id) pairs are
// serialized against each other.
func (p *Pipeline) Ingest(ctx context.Context, idx index.VectorIndex, indexName, namespace string, records []core.SourceRecord) (*Report, error) {
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	for i := range records {
		if err := core.ValidateSourceRecord(&records[i]); err != nil {
			return nil, err
		}
	}

	ids := recordIDs(records)
	release := p.locks.lockAll(indexName+"\x00"+namespace, ids)
	defer release()

	if len(records) > p.shardThreshold {
		return p.ingestSharded(ctx, idx, indexName, namespace, records, ids)
	}
	return p.ingestDirect(ctx, idx, indexName, namespace, records, ids)
}

// ingestDirect processes the whole batch as one unit. The stale-chunk
// delete runs concurrently with assembly and embedding but always
// completes before the first upsert. Any failure aborts the ingestion.
func (p *Pipeline) ingestDirect(ctx context.Context, idx index.VectorIndex, indexName, namespace string, records []core.SourceRecord, ids []string) (*Report, error) {
	var deleteDone sync.WaitGroup
	deleteDone.Add(1)
	err := p.workerPool.Submit(func() {
		defer deleteDone.Done()
		p.deleteStale(ctx, idx, indexName, namespace, ids)
	})
	if err != nil {
		deleteDone.Done()
		return nil, err
	}

	vectors, embedErr := p.assembleAndEmbed(ctx, records)

	// Upserts must not start until stale chunks are gone, or replaced
	// chunks could be deleted right after landing.
	deleteDone.Wait()

	if embedErr != nil {
		return nil, embedErr
	}

	report := &Report{Strategy: "direct", Records: len(records), Chunks: len(vectors)}
	if len(vectors) == 0 {
		p.logger.Warn("ingestion produced no chunks", "records", len(records))
		return report, nil
	}

	if err := p.upsertVectors(ctx, idx, indexName, namespace, vectors); err != nil {
		return nil, err
	}

	p.logger.Info("ingestion complete", "strategy", "direct",
		"records", len(records), "chunks", len(vectors), "namespace", namespace)
	return report, nil
}

// ingestSharded deletes stale chunks synchronously, then processes fixed
// size record groups independently. A failing group is reported, not
// fatal to its siblings.
func (p *Pipeline) ingestSharded(ctx context.Context, idx index.VectorIndex, indexName, namespace string, records []core.SourceRecord, ids []string) (*Report, error) {
	p.deleteStale(ctx, idx, indexName, namespace, ids)

	groups := partitionRecords(records, p.groupSize)
	results := make([]GroupResult, len(groups))

	var wg sync.WaitGroup
	for n, group := range groups {
		wg.Add(1)
		err := p.groupPool.Submit(func() {
			defer wg.Done()
			results[n] = p.ingestGroup(ctx, idx, indexName, namespace, n, group)
		})
		if err != nil {
			results[n] = GroupResult{Group: n, Records: len(group), Error: err.Error()}
			wg.Done()
		}
	}
	wg.Wait()

	report := &Report{Strategy: "sharded", Records: len(records), Groups: results}
	failed := 0
	for _, result := range results {
		report.Chunks += result.Chunks
		if result.Failed() {
			failed++
		}
	}

	if failed == len(groups) {
		return report, fmt.Errorf("all %d record groups failed: %s", failed, results[0].Error)
	}
	if failed > 0 {
		p.logger.Warn("ingestion partially failed", "groups", len(groups), "failed", failed)
		return report, fmt.Errorf("%w: %d of %d groups failed", ErrPartialIngest, failed, len(groups))
	}

	p.logger.Info("ingestion complete", "strategy", "sharded",
		"records", len(records), "chunks", report.Chunks, "groups", len(groups), "namespace", namespace)
	return report, nil
}

func (p *Pipeline) ingestGroup(ctx context.Context, idx index.VectorIndex, indexName, namespace string, n int, group []core.SourceRecord) GroupResult {
	result := GroupResult{Group: n, Records: len(group)}

	vectors, err := p.assembleAndEmbed(ctx, group)
	if err != nil {
		p.logger.Error("group assembly failed", "group", n, "err", err)
		result.Error = err.Error()
		return result
	}
	if len(vectors) == 0 {
		return result
	}

	if err := p.upsertVectors(ctx, idx, indexName, namespace, vectors); err != nil {
		p.logger.Error("group upsert failed", "group", n, "err", err)
		result.Error = err.Error()
		return result
	}

	result.Chunks = len(vectors)
	return result
}

// assembleAndEmbed chunks the records and embeds every chunk, returning
// write-ready vectors whose metadata carries the full chunk text.
func (p *Pipeline) assembleAndEmbed(ctx context.Context, records []core.SourceRecord) ([]core.IndexedVector, error) {
	chunks := p.assembler.Assemble(ctx, records)
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := p.batcher.EmbedAll(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	vectors := make([]core.IndexedVector, len(chunks))
	for i, chunk := range chunks {
		chunk.Metadata[core.MetaText] = chunk.Text
		vectors[i] = core.IndexedVector{
			ID:       chunk.ID,
			Values:   embeddings[i],
			Metadata: chunk.Metadata,
		}
	}
	return vectors, nil
}

// deleteStale removes every chunk previously derived from the given source
// ids. A failed delete is logged and swallowed: the worst case is stale
// chunks lingering next to fresh ones, which is preferable to failing the
// whole ingestion.
func (p *Pipeline) deleteStale(ctx context.Context, idx index.VectorIndex, indexName, namespace string, ids []string) {
	err := idx.Delete(ctx, indexName, namespace, index.OwnershipFilter(ids))
	if err != nil {
		p.logger.Warn("stale chunk delete failed", "namespace", namespace, "ids", len(ids), "err", err)
	}
}

// upsertVectors fans sub-batches out on the upsert pool and fails on the
// first error.
func (p *Pipeline) upsertVectors(ctx context.Context, idx index.VectorIndex, indexName, namespace string, vectors []core.IndexedVector) error {
	batches := partitionVectors(vectors, p.upsertBatchSize)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, batch := range batches {
		wg.Add(1)
		err := p.upsertPool.Submit(func() {
			defer wg.Done()
			if err := idx.Upsert(ctx, indexName, namespace, batch); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
		if err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			wg.Done()
		}
	}
	wg.Wait()

	if firstErr != nil {
		return fmt.Errorf("upserting %d vectors: %w", len(vectors), firstErr)
	}
	return nil
}

func recordIDs(records []core.SourceRecord) []string {
	ids := make([]string, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i := range records {
		if !seen[records[i].ID] {
			seen[records[i].ID] = true
			ids = append(ids, records[i].ID)
		}
	}
	return ids
}

func partitionRecords(records []core.SourceRecord, size int) [][]core.SourceRecord {
	var groups [][]core.SourceRecord
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		groups = append(groups, records[start:end])
	}
	return groups
}

func partitionVectors(vectors []core.IndexedVector, size int) [][]core.IndexedVector {
	var batches [][]core.IndexedVector
	for start := 0; start < len(vectors); start += size {
		end := start + size
		if end > len(vectors) {
			end = len(vectors)
		}
		batches = append(batches, vectors[start:end])
	}
	return batches
}
