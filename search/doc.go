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


// Package search answers similarity queries and reconstructs chunk
// context.
//
// Searcher routes a query request: explicit ids become a direct fetch,
// query text is embedded and ranked by the vector index. Resolver uses the
// neighbor linkage stamped into chunk metadata at ingestion time to
// rebuild the local context window around one matched chunk, and lists a
// document's chunks in positional order.
package search
