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


package vectorium

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/vectorium/ai"
	"github.com/poiesic/vectorium/core"
	"github.com/poiesic/vectorium/extract"
	"github.com/poiesic/vectorium/index"
	"github.com/poiesic/vectorium/ingestion"
	"github.com/poiesic/vectorium/search"
	"github.com/poiesic/vectorium/splitter"
)

// DefaultReadyPollInterval is how often CreateIndex re-checks a freshly
// created index until it accepts traffic.
const DefaultReadyPollInterval = time.Second

// namespaceProbeID marks the throwaway vector used to force a namespace
// into existence on providers that create namespaces lazily.
const namespaceProbeID = "__namespace_probe__"

// Service is the top-level facade: it resolves providers through the
// registry and drives ingestion, search, and context resolution.
type Service struct {
	registry  *index.Registry
	embedder  ai.Embedder
	assembler *ingestion.Assembler
	pipeline  *ingestion.Pipeline
	searcher  *search.Searcher
	resolver  *search.Resolver

	readyPollInterval time.Duration
	logger            *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	splitterOpts  []splitter.Option
	assemblerOpts []ingestion.AssemblerOption
	batcherOpts   []ingestion.BatcherOption
	pipelineOpts  []ingestion.PipelineOption
	extractor     extract.Extractor
	pollInterval  time.Duration
	logger        *slog.Logger
}

// WithSplitterOptions forwards options to the text splitter.
func WithSplitterOptions(opts ...splitter.Option) ServiceOption {
	return func(o *serviceOptions) {
		o.splitterOpts = append(o.splitterOpts, opts...)
	}
}

// WithAssemblerOptions forwards options to the chunk assembler.
func WithAssemblerOptions(opts ...ingestion.AssemblerOption) ServiceOption {
	return func(o *serviceOptions) {
		o.assemblerOpts = append(o.assemblerOpts, opts...)
	}
}

// WithBatcherOptions forwards options to the embedding batcher.
func WithBatcherOptions(opts ...ingestion.BatcherOption) ServiceOption {
	return func(o *serviceOptions) {
		o.batcherOpts = append(o.batcherOpts, opts...)
	}
}

// WithPipelineOptions forwards options to the ingestion pipeline.
func WithPipelineOptions(opts ...ingestion.PipelineOption) ServiceOption {
	return func(o *serviceOptions) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// WithExtractor sets the file content extractor.
// Default is an HTTP extractor with standard limits.
func WithExtractor(extractor extract.Extractor) ServiceOption {
	return func(o *serviceOptions) {
		o.extractor = extractor
	}
}

// WithReadyPollInterval sets the CreateIndex readiness poll interval.
// Default is one second.
func WithReadyPollInterval(interval time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		if interval > 0 {
			o.pollInterval = interval
		}
	}
}

// WithServiceLogger sets a custom logger.
// Default is slog.Default().
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewService wires the ingestion and search components around a provider
// registry and an embedder.
func NewService(registry *index.Registry, embedder ai.Embedder, opts ...ServiceOption) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	if embedder == nil {
		return nil, ingestion.ErrEmbedderRequired
	}

	options := &serviceOptions{
		pollInterval: DefaultReadyPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.extractor == nil {
		options.extractor = extract.NewHTTPExtractor()
	}

	split, err := splitter.New(options.splitterOpts...)
	if err != nil {
		return nil, err
	}

	assembler, err := ingestion.NewAssembler(split, options.extractor, options.assemblerOpts...)
	if err != nil {
		return nil, err
	}

	batcher, err := ingestion.NewBatcher(embedder, options.batcherOpts...)
	if err != nil {
		assembler.Release()
		return nil, err
	}

	pipeline, err := ingestion.NewPipeline(assembler, batcher, options.pipelineOpts...)
	if err != nil {
		assembler.Release()
		return nil, err
	}

	searcher, err := search.NewSearcher(embedder)
	if err != nil {
		pipeline.Release()
		assembler.Release()
		return nil, err
	}

	return &Service{
		registry:          registry,
		embedder:          embedder,
		assembler:         assembler,
		pipeline:          pipeline,
		searcher:          searcher,
		resolver:          search.NewResolver(),
		readyPollInterval: options.pollInterval,
		logger:            options.logger.With("component", "service"),
	}, nil
}

// Close releases the worker pools and every constructed provider.
func (s *Service) Close() error {
	s.pipeline.Release()
	s.assembler.Release()

	if err := s.registry.Close(); err != nil {
		s.logger.Error("error closing providers", "err", err)
		return err
	}
	return nil
}

// Registry exposes the provider registry.
func (s *Service) Registry() *index.Registry {
	return s.registry
}

// CreateIndex provisions an index on the named provider and blocks until it
// reports ready, polling at the configured interval. The context bounds the
// wait.
func (s *Service) CreateIndex(ctx context.Context, provider string, config *core.IndexConfig) error {
	idx, err := s.registry.Get(provider)
	if err != nil {
		return err
	}
	if err := core.ValidateIndexConfig(config); err != nil {
		return err
	}

	if err := idx.CreateIndex(ctx, config); err != nil {
		return err
	}

	s.logger.Info("index created, waiting for ready", "provider", provider, "index", config.IndexName)
	for {
		ready, err := idx.DescribeIndexReady(ctx, config.IndexName)
		if err != nil {
			return fmt.Errorf("describing index %q: %w", config.IndexName, err)
		}
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.readyPollInterval):
		}
	}
}

// UpsertData ingests the records into the named index and namespace,
// replacing chunks from earlier ingestions of the same source ids.
func (s *Service) UpsertData(ctx context.Context, provider, indexName, namespace string, records []core.SourceRecord) (*ingestion.Report, error) {
	idx, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Ingest(ctx, idx, indexName, namespace, records)
}

// Search executes a query request against the named index.
func (s *Service) Search(ctx context.Context, provider, indexName string, request *core.QueryRequest) ([]core.SearchMatch, error) {
	idx, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}
	return s.searcher.Search(ctx, idx, indexName, request)
}

// EnsureNamespaceExists forces a namespace into existence by writing and
// immediately deleting a probe vector. Providers that create namespaces
// lazily otherwise reject reads against a namespace nothing has written to.
func (s *Service) EnsureNamespaceExists(ctx context.Context, provider, indexName, namespace string, dimension int) error {
	idx, err := s.registry.Get(provider)
	if err != nil {
		return err
	}
	if dimension < 1 {
		return fmt.Errorf("%w: %d", core.ErrInvalidDimension, dimension)
	}

	probe := core.IndexedVector{
		ID:       namespaceProbeID,
		Values:   make([]float32, dimension),
		Metadata: map[string]any{core.MetaOriginalID: namespaceProbeID},
	}
	if err := idx.Upsert(ctx, indexName, namespace, []core.IndexedVector{probe}); err != nil {
		return fmt.Errorf("probing namespace %q: %w", namespace, err)
	}

	err = idx.Delete(ctx, indexName, namespace, index.Eq(core.MetaOriginalID, namespaceProbeID))
	if err != nil {
		// The namespace exists either way; a lingering probe vector is
		// harmless and overwritten by the next ensure.
		s.logger.Warn("deleting namespace probe failed", "namespace", namespace, "err", err)
	}
	return nil
}

// GetChunkWithContext resolves one chunk together with its linked
// neighbors.
func (s *Service) GetChunkWithContext(ctx context.Context, provider, indexName, namespace, chunkID string) (*core.ChunkContext, error) {
	idx, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveContext(ctx, idx, indexName, namespace, chunkID)
}

// GetDocumentChunks lists every chunk derived from one source id in
// positional order.
func (s *Service) GetDocumentChunks(ctx context.Context, provider, indexName, namespace, originalID string) ([]core.SearchMatch, error) {
	idx, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}
	return s.resolver.ListDocumentChunks(ctx, idx, indexName, namespace, originalID)
}
