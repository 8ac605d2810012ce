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
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/vectorium/core"
	"github.com/poiesic/vectorium/extract"
	"github.com/poiesic/vectorium/splitter"
)

const defaultFileWorkers = 5

// Assembler turns source records into a flat ordered chunk list. Inline
// data is split under the record's own id; referenced files are downloaded
// concurrently and their content chunked under a derived pseudo-record id,
// appended after the parent's chunks.
type Assembler struct {
	splitter  *splitter.Splitter
	extractor extract.Extractor
	filePool  *ants.Pool
	logger    *slog.Logger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler) error

// WithFileWorkers sets the worker pool size for concurrent file expansion.
// Default is 5.
func WithFileWorkers(size int) AssemblerOption {
	return func(a *Assembler) error {
		if size < 1 {
			size = 1
		}
		if a.filePool != nil {
			a.filePool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		a.filePool = pool
		return nil
	}
}

// WithAssemblerLogger sets a custom logger.
// Default is slog.Default().
func WithAssemblerLogger(logger *slog.Logger) AssemblerOption {
	return func(a *Assembler) error {
		if logger != nil {
			a.logger = logger
		}
		return nil
	}
}

// NewAssembler creates an Assembler. The extractor may be nil when no
// record carries file references; records that do are then skipped with a
// warning.
func NewAssembler(s *splitter.Splitter, extractor extract.Extractor, opts ...AssemblerOption) (*Assembler, error) {
	if s == nil {
		return nil, errors.New("splitter required")
	}

	pool, err := ants.NewPool(defaultFileWorkers)
	if err != nil {
		return nil, err
	}

	a := &Assembler{
		splitter:  s,
		extractor: extractor,
		filePool:  pool,
		logger:    slog.Default().With("component", "assembler"),
	}
	for _, opt := range opts {
		if optErr := opt(a); optErr != nil {
			a.Release()
			return nil, optErr
		}
	}
	return a, nil
}

// Release releases the file expansion worker pool.
func (a *Assembler) Release() {
	if a.filePool != nil {
		a.filePool.Release()
	}
}

// Assemble chunks every record in order. A record's own chunks come first,
// followed by chunks derived from its linked files. Per-file failures are
// logged and skipped; they never abort the batch.
func (a *Assembler) Assemble(ctx context.Context, records []core.SourceRecord) []core.Chunk {
	var chunks []core.Chunk
	for i := range records {
		chunks = append(chunks, a.assembleRecord(ctx, &records[i])...)
	}
	return chunks
}

func (a *Assembler) assembleRecord(ctx context.Context, record *core.SourceRecord) []core.Chunk {
	var chunks []core.Chunk

	if len(record.Data) > 0 {
		text := joinData(record.Data)
		chunks = a.splitter.Split(text, record.ID, record.Metadata)
	}

	if len(record.FileRefs) > 0 {
		chunks = append(chunks, a.expandFiles(ctx, record)...)
	}

	return chunks
}

// expandFiles downloads and chunks every referenced file on the worker
// pool, preserving the order of the references in the result.
func (a *Assembler) expandFiles(ctx context.Context, record *core.SourceRecord) []core.Chunk {
	if a.extractor == nil {
		a.logger.Warn("record references files but no extractor is configured",
			"record", record.ID, "files", len(record.FileRefs))
		return nil
	}

	results := make([][]core.Chunk, len(record.FileRefs))
	var wg sync.WaitGroup

	for i, fileURL := range record.FileRefs {
		wg.Add(1)
		err := a.filePool.Submit(func() {
			defer wg.Done()

			fileChunks, err := a.assembleFile(ctx, record, fileURL)
			if err != nil {
				a.logger.Warn("skipping file", "record", record.ID, "url", fileURL, "err", err)
				return
			}
			results[i] = fileChunks
		})
		if err != nil {
			wg.Done()
			a.logger.Error("submitting file expansion", "record", record.ID, "url", fileURL, "err", err)
		}
	}
	wg.Wait()

	var chunks []core.Chunk
	for _, fileChunks := range results {
		chunks = append(chunks, fileChunks...)
	}
	return chunks
}

// assembleFile extracts one file and chunks its content under a derived
// pseudo-record id, so the file's chunks are deleted and replaced together
// with the parent record.
func (a *Assembler) assembleFile(ctx context.Context, record *core.SourceRecord, fileURL string) ([]core.Chunk, error) {
	result, err := a.extractor.Extract(ctx, fileURL)
	if err != nil {
		return nil, err
	}

	fileID := fmt.Sprintf("%s_%s", record.ID, extract.FileKey(fileURL))
	meta := fileMetadata(record, fileURL, result.FileType)

	switch {
	case len(result.Rows) > 0:
		return assembleRows(fileID, result.Rows, meta), nil
	case len(result.Segments) > 0:
		return a.assembleStream(fileID, result.Segments, meta), nil
	case result.Text != "":
		return a.splitter.SplitDocument(result.Text, fileID, meta), nil
	}
	return nil, extract.ErrEmptyContent
}

// assembleStream chunks streamed text segments. A segment above the split
// threshold goes through the splitter; smaller segments stay whole under a
// stream-tagged id. Linkage and totals span the full record, not one
// segment.
func (a *Assembler) assembleStream(fileID string, segments []string, meta map[string]any) []core.Chunk {
	var chunks []core.Chunk
	position := 0

	for n, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			continue
		}

		if a.splitter.NeedsSplit(segment) {
			for _, fragment := range a.splitter.Fragments(segment) {
				chunks = append(chunks, core.Chunk{
					ID:       core.ChunkID(fileID, position, fragment),
					Text:     fragment,
					Metadata: chunkMetadata(meta, fileID),
				})
				position++
			}
			continue
		}

		chunks = append(chunks, core.Chunk{
			ID:       core.StreamChunkID(fileID, n),
			Text:     segment,
			Metadata: chunkMetadata(meta, fileID),
		})
		position++
	}

	return splitter.Finalize(chunks)
}

// assembleRows builds one chunk per tabular row. Row chunks carry
// positional metadata but no neighbor linkage; rows are independent
// records, not a linear text.
func assembleRows(fileID string, rows []extract.Row, meta map[string]any) []core.Chunk {
	createdAt := time.Now().UTC().Format(time.RFC3339)

	chunks := make([]core.Chunk, 0, len(rows))
	for n, row := range rows {
		m := chunkMetadata(meta, fileID)
		for k, v := range row.Metadata {
			m[k] = v
		}
		m[core.MetaChunkIndex] = n
		m[core.MetaTotalChunks] = len(rows)
		m[core.MetaChunkSize] = len(row.Text)
		m[core.MetaCreatedAt] = createdAt
		m[core.MetaChunkPreview] = core.Preview(row.Text)

		chunks = append(chunks, core.Chunk{
			ID:       core.RowChunkID(fileID, n),
			Text:     row.Text,
			Metadata: m,
		})
	}
	return chunks
}

// fileMetadata derives the base metadata for chunks of a linked file.
// Record metadata comes first; file provenance fields win on conflict.
func fileMetadata(record *core.SourceRecord, fileURL, fileType string) map[string]any {
	meta := make(map[string]any, len(record.Metadata)+4)
	for k, v := range record.Metadata {
		meta[k] = v
	}
	meta[core.MetaSource] = "file_url"
	meta[core.MetaSourceURL] = fileURL
	meta[core.MetaFileType] = fileType
	meta[core.MetaOriginalRecordID] = record.ID
	return meta
}

func chunkMetadata(base map[string]any, originalID string) map[string]any {
	meta := make(map[string]any, len(base)+8)
	for k, v := range base {
		meta[k] = v
	}
	meta[core.MetaOriginalID] = originalID
	return meta
}

// joinData concatenates a record's data values into one text blob. Keys
// are sorted so the blob, and therefore the chunk ids derived from it, are
// deterministic.
func joinData(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, fmt.Sprint(data[k]))
	}
	return strings.Join(values, " ")
}
