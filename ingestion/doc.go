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


// Package ingestion turns source records into embedded vectors and writes
// them to a vector index.
//
// The pipeline is a delete-then-upsert: chunks previously derived from the
// same source ids are removed before the fresh chunks land, so re-ingesting
// a document replaces rather than duplicates it. Assembly (splitting, file
// expansion), embedding (batched under the remote API's size limits), and
// upserting run on bounded worker pools.
//
// Two execution strategies exist, chosen by volume. Below the shard
// threshold the whole batch is processed as one unit and any failure aborts
// the ingestion. Above it, records are partitioned into fixed-size groups
// that succeed or fail independently; per-group outcomes are collected in a
// Report and a partial failure surfaces as ErrPartialIngest rather than
// being masked.
package ingestion
