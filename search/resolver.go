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


package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/vectorium/core"
	"github.com/poiesic/vectorium/index"
)

// Context window labels used in the combined text.
const (
	previousLabel = "[Previous context]"
	nextLabel     = "[Next context]"
)

// Resolver reconstructs local context around stored chunks using the
// neighbor linkage written at ingestion time.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a new resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		logger: slog.Default().With("component", "context-resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets a custom logger.
// Default is slog.Default().
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// ResolveContext fetches a chunk and its linked neighbors, producing a
// combined readable text. An unknown chunk id yields Found=false rather
// than an error; neighbors that no longer exist are simply absent.
func (r *Resolver) ResolveContext(ctx context.Context, idx index.VectorIndex, indexName, namespace, chunkID string) (*core.ChunkContext, error) {
	matches, err := idx.Fetch(ctx, indexName, namespace, []string{chunkID})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		r.logger.Debug("chunk not found", "chunk", chunkID, "namespace", namespace)
		return &core.ChunkContext{Found: false}, nil
	}

	current := matchToVector(matches[0])
	result := &core.ChunkContext{
		Found:   true,
		Current: current,
	}

	prevID := core.MetaString(current.Metadata, core.MetaPrevChunkID)
	nextID := core.MetaString(current.Metadata, core.MetaNextChunkID)

	var neighborIDs []string
	if prevID != "" {
		neighborIDs = append(neighborIDs, prevID)
	}
	if nextID != "" {
		neighborIDs = append(neighborIDs, nextID)
	}

	if len(neighborIDs) > 0 {
		neighbors, err := idx.Fetch(ctx, indexName, namespace, neighborIDs)
		if err != nil {
			// Neighbors are an enrichment; the chunk itself already
			// resolved.
			r.logger.Warn("fetching neighbor chunks failed", "chunk", chunkID, "err", err)
		} else {
			for _, neighbor := range neighbors {
				switch neighbor.ID {
				case prevID:
					result.Previous = matchToVector(neighbor)
				case nextID:
					result.Next = matchToVector(neighbor)
				}
			}
		}
	}

	result.CombinedText = combineContext(result)
	return result, nil
}

// ListDocumentChunks returns every chunk derived from one source id,
// ordered by chunk position. Chunks without a position sort first.
func (r *Resolver) ListDocumentChunks(ctx context.Context, idx index.VectorIndex, indexName, namespace, originalID string) ([]core.SearchMatch, error) {
	matches, err := idx.Query(ctx, indexName, namespace, nil, index.QueryOptions{
		TopK:   index.MetadataScanLimit,
		Filter: index.Eq(core.MetaOriginalID, originalID),
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return core.MetaInt(matches[i].Metadata, core.MetaChunkIndex) <
			core.MetaInt(matches[j].Metadata, core.MetaChunkIndex)
	})
	return matches, nil
}

// combineContext renders the window as labeled sections around the chunk's
// own text. The chunk itself contributes its full text; neighbors
// contribute only their previews.
func combineContext(c *core.ChunkContext) string {
	var sections []string

	if c.Previous != nil {
		sections = append(sections, previousLabel+"\n"+neighborPreview(c.Previous))
	}
	sections = append(sections, vectorText(c.Current))
	if c.Next != nil {
		sections = append(sections, nextLabel+"\n"+neighborPreview(c.Next))
	}

	return strings.Join(sections, "\n\n")
}

// vectorText reads a stored chunk's text, falling back to its preview for
// vectors written before full text was persisted.
func vectorText(v *core.IndexedVector) string {
	if text := core.MetaString(v.Metadata, core.MetaText); text != "" {
		return text
	}
	return core.MetaString(v.Metadata, core.MetaChunkPreview)
}

// neighborPreview reads a neighbor's stored preview, deriving one from the
// full text for vectors written before previews were persisted.
func neighborPreview(v *core.IndexedVector) string {
	if preview := core.MetaString(v.Metadata, core.MetaChunkPreview); preview != "" {
		return preview
	}
	return core.Preview(core.MetaString(v.Metadata, core.MetaText))
}

func matchToVector(match core.SearchMatch) *core.IndexedVector {
	return &core.IndexedVector{
		ID:       match.ID,
		Values:   match.Vector,
		Metadata: match.Metadata,
	}
}
