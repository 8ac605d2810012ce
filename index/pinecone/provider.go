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


package pinecone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pinecone-io/go-pinecone/v2/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/poiesic/vectorium/core"
	"github.com/poiesic/vectorium/index"
)

// Provider is a Pinecone-backed vector index.
type Provider struct {
	client *pinecone.Client
	logger *slog.Logger

	mu    sync.Mutex
	hosts map[string]string
	conns map[string]*pinecone.IndexConnection
}

var _ index.VectorIndex = (*Provider)(nil)

// New creates a Pinecone provider from an API key.
func New(apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("pinecone: API key is required")
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("pinecone: creating client: %w", err)
	}

	return &Provider{
		client: client,
		logger: slog.Default().With("component", "pinecone-index"),
		hosts:  make(map[string]string),
		conns:  make(map[string]*pinecone.IndexConnection),
	}, nil
}

// CreateIndex provisions a serverless index. Readiness is asynchronous;
// poll DescribeIndexReady before writing.
func (p *Provider) CreateIndex(ctx context.Context, config *core.IndexConfig) error {
	if err := core.ValidateIndexConfig(config); err != nil {
		return err
	}

	metric := pinecone.IndexMetric(config.Metric)
	_, err := p.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      config.IndexName,
		Dimension: int32(config.Dimension),
		Metric:    metric,
		Cloud:     pinecone.Cloud(config.Cloud),
		Region:    config.Region,
	})
	if err != nil {
		return fmt.Errorf("pinecone: creating index %q: %w", config.IndexName, err)
	}

	p.logger.Info("index created", "index", config.IndexName, "dimension", config.Dimension, "metric", config.Metric)
	return nil
}

// DescribeIndexReady reports whether the index accepts traffic.
func (p *Provider) DescribeIndexReady(ctx context.Context, indexName string) (bool, error) {
	idx, err := p.client.DescribeIndex(ctx, indexName)
	if err != nil {
		return false, fmt.Errorf("pinecone: describing index %q: %w", indexName, err)
	}
	return idx.Status != nil && idx.Status.Ready, nil
}

// Upsert writes vectors into one namespace.
func (p *Provider) Upsert(ctx context.Context, indexName, namespace string, vectors []core.IndexedVector) error {
	conn, err := p.connection(ctx, indexName, namespace)
	if err != nil {
		return err
	}

	converted := make([]*pinecone.Vector, 0, len(vectors))
	for _, vector := range vectors {
		metadata, err := toMetadata(vector.Metadata)
		if err != nil {
			return fmt.Errorf("pinecone: metadata for vector %s: %w", vector.ID, err)
		}
		converted = append(converted, &pinecone.Vector{
			Id:       vector.ID,
			Values:   vector.Values,
			Metadata: metadata,
		})
	}

	if _, err := conn.UpsertVectors(ctx, converted); err != nil {
		return fmt.Errorf("pinecone: upserting %d vectors: %w", len(converted), err)
	}
	return nil
}

// Fetch retrieves vectors by id. Missing ids are silently absent.
func (p *Provider) Fetch(ctx context.Context, indexName, namespace string, ids []string) ([]core.SearchMatch, error) {
	conn, err := p.connection(ctx, indexName, namespace)
	if err != nil {
		return nil, err
	}

	resp, err := conn.FetchVectors(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("pinecone: fetching vectors: %w", err)
	}

	matches := make([]core.SearchMatch, 0, len(resp.Vectors))
	for _, id := range ids {
		vector, ok := resp.Vectors[id]
		if !ok || vector == nil {
			continue
		}
		matches = append(matches, core.SearchMatch{
			ID:       vector.Id,
			Metadata: fromMetadata(vector.Metadata),
			Vector:   vector.Values,
		})
	}
	return matches, nil
}

// Query returns the nearest matches to the vector. A nil vector is
// substituted with a zero vector of the index dimension, turning the query
// into a metadata-only scan.
func (p *Provider) Query(ctx context.Context, indexName, namespace string, vector []float32, opts index.QueryOptions) ([]core.SearchMatch, error) {
	conn, err := p.connection(ctx, indexName, namespace)
	if err != nil {
		return nil, err
	}

	metadataScan := vector == nil
	if metadataScan {
		idx, err := p.client.DescribeIndex(ctx, indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone: describing index %q: %w", indexName, err)
		}
		vector = make([]float32, idx.Dimension)
	}

	topK := opts.TopK
	if topK <= 0 {
		if metadataScan {
			// A metadata-only scan wants every match, not the nearest
			// few; default to the widest limit the API accepts.
			topK = index.MetadataScanLimit
		} else {
			topK = 10
		}
	}

	var filter *pinecone.MetadataFilter
	if opts.Filter != nil {
		filter, err = toMetadata(opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("pinecone: metadata filter: %w", err)
		}
	}

	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		MetadataFilter:  filter,
		IncludeValues:   opts.IncludeVectors,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone: querying: %w", err)
	}

	matches := make([]core.SearchMatch, 0, len(resp.Matches))
	for _, match := range resp.Matches {
		if match == nil || match.Vector == nil {
			continue
		}
		score := match.Score
		matches = append(matches, core.SearchMatch{
			ID:       match.Vector.Id,
			Score:    &score,
			Metadata: fromMetadata(match.Vector.Metadata),
			Vector:   match.Vector.Values,
		})
	}
	return matches, nil
}

// Delete removes all vectors in the namespace matching the filter.
func (p *Provider) Delete(ctx context.Context, indexName, namespace string, filter index.Filter) error {
	conn, err := p.connection(ctx, indexName, namespace)
	if err != nil {
		return err
	}

	converted, err := toMetadata(filter)
	if err != nil {
		return fmt.Errorf("pinecone: delete filter: %w", err)
	}

	if err := conn.DeleteVectorsByFilter(ctx, converted); err != nil {
		return fmt.Errorf("pinecone: deleting by filter: %w", err)
	}
	return nil
}

// Close closes all cached index connections.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for key, conn := range p.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.conns, key)
	}
	return firstErr
}

// connection returns a cached data-plane connection for the index and
// namespace, resolving the index host on first use.
func (p *Provider) connection(ctx context.Context, indexName, namespace string) (*pinecone.IndexConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := indexName + "\x00" + namespace
	if conn, ok := p.conns[key]; ok {
		return conn, nil
	}

	host, ok := p.hosts[indexName]
	if !ok {
		idx, err := p.client.DescribeIndex(ctx, indexName)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", index.ErrIndexNotFound, indexName)
		}
		host = idx.Host
		p.hosts[indexName] = host
	}

	conn, err := p.client.Index(pinecone.NewIndexConnParams{
		Host:      host,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone: connecting to %q: %w", indexName, err)
	}
	p.conns[key] = conn
	return conn, nil
}

// toMetadata converts a metadata map to the protobuf structure Pinecone
// expects.
func toMetadata(metadata map[string]any) (*structpb.Struct, error) {
	if metadata == nil {
		return nil, nil
	}
	return structpb.NewStruct(metadata)
}

// fromMetadata converts protobuf metadata back to a plain map.
func fromMetadata(metadata *structpb.Struct) map[string]any {
	if metadata == nil {
		return nil
	}
	return metadata.AsMap()
}
