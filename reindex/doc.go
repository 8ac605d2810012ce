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


// Package reindex re-embeds stored chunks in place.
//
// After an embedding model change the stored vectors no longer live in the
// same space as fresh queries. The reindexer walks every chunk in a
// namespace, re-embeds its stored text with the current embedder, and
// overwrites the vector under the same id, leaving ids, metadata, and
// neighbor linkage untouched.
package reindex
