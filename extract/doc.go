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


// Package extract downloads remote files and extracts their text content
// for ingestion.
//
// HTTPExtractor fetches a URL (rewriting Google Drive share links to direct
// downloads) and extracts by file type:
//
//   - txt, md, html, jsonl: streamed as fixed-size line segments so large
//     files never load whole into memory
//   - csv: parsed row by row; key columns form the embedding text, the full
//     row becomes metadata
//   - pdf, docx: converted to plain text via docconv; the result is lossy
//     and routed through document-mode splitting downstream
//
// Unsupported formats and oversized files fail with sentinel errors so
// callers can skip a single bad file without aborting the batch.
package extract
