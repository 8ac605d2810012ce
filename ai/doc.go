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


// Package ai provides the embedding abstraction used by the ingestion
// pipeline.
//
// The package defines the Embedder interface that the rest of the system
// depends on, plus the ErrRateLimited sentinel that implementations raise
// when the remote service throttles a request. The ingestion batcher relies
// on that sentinel to decide whether a failed batch is worth one retry.
//
// # Implementation Packages
//
//   - ai/openai: production implementation over OpenAI-compatible APIs
//   - ai/mock: deterministic test double with failure injection
//
// Public constructors (openai.NewEmbedder) return the ai.Embedder interface
// to enforce abstraction; mock constructors return concrete types so tests
// can inject behavior and assert call counts.
package ai
