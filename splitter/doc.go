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


// Package splitter turns one text blob into an ordered sequence of bounded,
// overlap-aware chunks.
//
// Two modes are provided:
//
//   - Split: generic recursive splitting. Text is cut on the largest
//     structural boundary available (paragraph, line, sentence, clause,
//     word) without exceeding the configured chunk size. Adjacent chunks
//     share an overlap taken from the tail of the previous chunk, trimmed
//     forward to a sentence boundary when one is present.
//
//   - SplitDocument: structure-aware splitting for lossy-formatted sources
//     such as PDF-extracted text. The text is normalized first (hyphenated
//     line breaks rejoined, page-number lines dropped, whitespace collapsed)
//     and then accumulated paragraph by paragraph, falling back to sentences
//     when a single paragraph exceeds the chunk size.
//
// Text at or below the threshold is returned as a single chunk. Every chunk
// carries positional metadata (chunk_index, total_chunks, chunk_size,
// created_at) plus neighbor linkage (prev_chunk_id/next_chunk_id) and a
// bounded preview, so a stored chunk's local context can be reconstructed
// later from metadata alone.
package splitter
