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


package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/poiesic/vectorium/core"
	"github.com/poiesic/vectorium/index"
)

const defaultTopK = 10

// Store is a Badger-backed vector index.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ index.VectorIndex = (*Store)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens a local vector store at the given path, creating the
// directory if needed. An empty path with inMemory true opens a transient
// in-memory store, which the integration tests rely on.
func Open(path string, inMemory bool) (*Store, error) {
	logger := slog.Default().With("component", "local-index")

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(path, 0755); err != nil {
				return nil, err
			}
		} else if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", path)
		}
		opts = badger.DefaultOptions(path)
	}

	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:     db,
		logger: logger,
	}, nil
}

func indexKey(indexName string) []byte {
	return []byte("index:" + indexName)
}

func vectorKey(indexName, namespace, id string) []byte {
	return []byte("vector:" + indexName + ":" + namespace + ":" + id)
}

func vectorPrefix(indexName, namespace string) []byte {
	return []byte("vector:" + indexName + ":" + namespace + ":")
}

// CreateIndex stores the index configuration. The index is ready
// immediately.
func (s *Store) CreateIndex(ctx context.Context, config *core.IndexConfig) error {
	if err := core.ValidateIndexConfig(config); err != nil {
		return err
	}

	data, err := json.Marshal(config)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *badger.Txn) error {
		key := indexKey(config.IndexName)
		if _, err := tx.Get(key); err == nil {
			return fmt.Errorf("%w: %q", index.ErrIndexExists, config.IndexName)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return tx.Set(key, data)
	})
}

// DescribeIndexReady reports whether the index exists. A local index is
// ready as soon as it exists.
func (s *Store) DescribeIndexReady(ctx context.Context, indexName string) (bool, error) {
	err := s.db.View(func(tx *badger.Txn) error {
		_, err := tx.Get(indexKey(indexName))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, fmt.Errorf("%w: %s", index.ErrIndexNotFound, indexName)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Upsert writes vectors, replacing existing ids.
func (s *Store) Upsert(ctx context.Context, indexName, namespace string, vectors []core.IndexedVector) error {
	if err := s.requireIndex(indexName); err != nil {
		return err
	}

	return s.db.Update(func(tx *badger.Txn) error {
		for _, vector := range vectors {
			data, err := encodeVector(vector)
			if err != nil {
				return fmt.Errorf("encoding vector %s: %w", vector.ID, err)
			}
			if err := tx.Set(vectorKey(indexName, namespace, vector.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Fetch retrieves vectors by id. Missing ids are silently absent.
func (s *Store) Fetch(ctx context.Context, indexName, namespace string, ids []string) ([]core.SearchMatch, error) {
	if err := s.requireIndex(indexName); err != nil {
		return nil, err
	}

	var matches []core.SearchMatch
	err := s.db.View(func(tx *badger.Txn) error {
		for _, id := range ids {
			item, err := tx.Get(vectorKey(indexName, namespace, id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			err = item.Value(func(data []byte) error {
				vector, err := decodeVector(data)
				if err != nil {
					return err
				}
				matches = append(matches, core.SearchMatch{
					ID:       vector.ID,
					Metadata: vector.Metadata,
					Vector:   vector.Values,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// Query scans the namespace, scoring matches by cosine similarity against
// the query vector. A nil vector lists by filter alone in id order with nil
// scores.
func (s *Store) Query(ctx context.Context, indexName, namespace string, vector []float32, opts index.QueryOptions) ([]core.SearchMatch, error) {
	if err := s.requireIndex(indexName); err != nil {
		return nil, err
	}

	var matches []core.SearchMatch
	err := s.db.View(func(tx *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = vectorPrefix(indexName, namespace)

		it := tx.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(data []byte) error {
				stored, err := decodeVector(data)
				if err != nil {
					return err
				}
				if opts.Filter != nil && !opts.Filter.Matches(stored.Metadata) {
					return nil
				}

				match := core.SearchMatch{
					ID:       stored.ID,
					Metadata: stored.Metadata,
				}
				if vector != nil {
					score := cosineSimilarity(vector, stored.Values)
					match.Score = &score
				}
				if opts.IncludeVectors {
					match.Vector = stored.Values
				}
				matches = append(matches, match)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if vector == nil {
		sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
		if opts.TopK > 0 && len(matches) > opts.TopK {
			matches = matches[:opts.TopK]
		}
		return matches, nil
	}

	sort.Slice(matches, func(i, j int) bool { return *matches[i].Score > *matches[j].Score })

	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Delete removes all vectors in the namespace matching the filter.
func (s *Store) Delete(ctx context.Context, indexName, namespace string, filter index.Filter) error {
	if err := s.requireIndex(indexName); err != nil {
		return err
	}

	// Collect matching keys first; deleting while iterating invalidates
	// the iterator.
	var keys [][]byte
	err := s.db.View(func(tx *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = vectorPrefix(indexName, namespace)

		it := tx.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(data []byte) error {
				stored, err := decodeVector(data)
				if err != nil {
					return err
				}
				if filter == nil || filter.Matches(stored.Metadata) {
					keys = append(keys, item.KeyCopy(nil))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(keys) == 0 {
		return nil
	}

	s.logger.Debug("deleting vectors", "index", indexName, "namespace", namespace, "count", len(keys))

	return s.db.Update(func(tx *badger.Txn) error {
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) requireIndex(indexName string) error {
	err := s.db.View(func(tx *badger.Txn) error {
		_, err := tx.Get(indexKey(indexName))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", index.ErrIndexNotFound, indexName)
	}
	return err
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
