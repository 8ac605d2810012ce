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


// Package index defines the vector index capability and the provider
// registry.
//
// VectorIndex is the narrow interface the ingestion pipeline and search
// layer write against. Two implementations ship with the service:
//
//   - index/pinecone: serverless Pinecone indexes over the official client
//   - index/local: an embedded Badger-backed index that answers queries by
//     exhaustive cosine scan, used for development and integration tests
//
// Providers are looked up by name through a Registry, so request handlers
// can select the backing store per call.
package index
