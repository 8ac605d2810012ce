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


package index

import (
	"context"

	"github.com/poiesic/vectorium/core"
)

// MetadataScanLimit is the TopK callers should set on metadata-only scans
// that need every match. It is the largest top_k every supported provider
// accepts.
const MetadataScanLimit = 10000

// QueryOptions tunes a vector query.
type QueryOptions struct {
	// TopK bounds the number of matches returned. Zero means the provider
	// default, which may be small; scans that need every match must set
	// an explicit limit such as MetadataScanLimit.
	TopK int

	// Filter restricts matches by metadata. Nil matches everything.
	Filter Filter

	// IncludeVectors returns the stored embedding values with each match.
	IncludeVectors bool
}

// VectorIndex is the capability the ingestion pipeline and search layer
// require from a vector store.
//
// A nil query vector is a metadata-only scan: the provider returns matches
// selected by filter alone, with nil scores. This powers chunk listing and
// linkage resolution without embedding a query.
type VectorIndex interface {
	// CreateIndex provisions a new index. Creation may be asynchronous;
	// poll DescribeIndexReady before writing.
	CreateIndex(ctx context.Context, config *core.IndexConfig) error

	// DescribeIndexReady reports whether the named index accepts traffic.
	DescribeIndexReady(ctx context.Context, indexName string) (bool, error)

	// Upsert writes vectors into one namespace, replacing any vectors with
	// the same ids.
	Upsert(ctx context.Context, indexName, namespace string, vectors []core.IndexedVector) error

	// Fetch retrieves vectors by id. Missing ids are silently absent from
	// the result.
	Fetch(ctx context.Context, indexName, namespace string, ids []string) ([]core.SearchMatch, error)

	// Query returns the nearest matches to the given vector within one
	// namespace, subject to the options.
	Query(ctx context.Context, indexName, namespace string, vector []float32, opts QueryOptions) ([]core.SearchMatch, error)

	// Delete removes all vectors in the namespace matching the filter.
	Delete(ctx context.Context, indexName, namespace string, filter Filter) error

	// Close releases provider resources.
	Close() error
}
