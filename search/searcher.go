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

	"github.com/poiesic/vectorium/ai"
	"github.com/poiesic/vectorium/core"
	"github.com/poiesic/vectorium/index"
)

// DefaultTopK bounds result counts when a query does not specify one.
const DefaultTopK = 3

// Searcher answers query requests against a vector index.
type Searcher struct {
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		embedder: embedder,
		logger:   slog.Default().With("component", "searcher"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Search executes a query request. Requests carrying ids are a direct
// fetch with nil scores; otherwise the query text is embedded and ranked.
func (s *Searcher) Search(ctx context.Context, idx index.VectorIndex, indexName string, request *core.QueryRequest) ([]core.SearchMatch, error) {
	if err := core.ValidateQueryRequest(request); err != nil {
		return nil, err
	}

	if len(request.IDs) > 0 {
		s.logger.Debug("fetching by ids", "index", indexName, "ids", len(request.IDs))
		return idx.Fetch(ctx, indexName, request.Namespace, request.IDs)
	}

	vector, err := s.embedder.EmbedText(ctx, request.Query)
	if err != nil {
		return nil, err
	}

	topK := request.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	s.logger.Debug("querying", "index", indexName, "namespace", request.Namespace, "top_k", topK)
	return idx.Query(ctx, indexName, request.Namespace, vector, index.QueryOptions{
		TopK:           topK,
		Filter:         index.Filter(request.MetadataFilter),
		IncludeVectors: true,
	})
}
