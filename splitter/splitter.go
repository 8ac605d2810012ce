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


package splitter

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/poiesic/vectorium/core"
)

// separators are tried largest-boundary first. Each separator is kept
// attached to the preceding part so concatenating the parts reconstructs
// the original text.
var separators = []string{"\n\n", "\n", ". ", ", ", " "}

const sentenceBoundary = ". "

// Splitter cuts text into bounded chunks with configurable overlap.
// The zero value is not usable; construct with New.
type Splitter struct {
	chunkSize int
	overlap   int
	threshold int
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the maximum chunk size in characters.
// Default is 1000.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		s.chunkSize = size
	}
}

// WithOverlap sets the maximum number of characters shared between
// consecutive chunks. Default is 200.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		s.overlap = overlap
	}
}

// WithThreshold sets the length above which text is split at all.
// Text of exactly this length stays a single chunk. Default is 1000.
func WithThreshold(threshold int) Option {
	return func(s *Splitter) {
		s.threshold = threshold
	}
}

// New creates a Splitter with the provided options applied over defaults.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		chunkSize: 1000,
		overlap:   200,
		threshold: 1000,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.chunkSize < 1 {
		return nil, errors.New("splitter: chunk size must be positive")
	}
	if s.overlap < 0 {
		return nil, errors.New("splitter: overlap must not be negative")
	}
	if s.overlap >= s.chunkSize {
		return nil, errors.New("splitter: overlap must be smaller than chunk size")
	}
	if s.threshold < 1 {
		return nil, errors.New("splitter: threshold must be positive")
	}
	return s, nil
}

// Threshold returns the configured no-split threshold.
func (s *Splitter) Threshold() int {
	return s.threshold
}

// NeedsSplit reports whether text exceeds the threshold. The boundary is
// exclusive: text of exactly threshold length does not need splitting.
func (s *Splitter) NeedsSplit(text string) bool {
	return len(text) > s.threshold
}

// Split cuts text into chunks under sourceID using generic recursive
// splitting. The returned chunks carry the base metadata plus positional
// metadata and neighbor linkage. Empty or whitespace-only text yields nil.
func (s *Splitter) Split(text, sourceID string, metadata map[string]any) []core.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	fragments := s.Fragments(text)
	chunks := buildChunks(sourceID, fragments, metadata)
	return Finalize(chunks)
}

// SplitDocument cuts lossy-formatted text (e.g. PDF extraction output) into
// chunks. The text is normalized first, then accumulated paragraph by
// paragraph, falling back to sentence-level accumulation when a paragraph
// alone exceeds the chunk size.
func (s *Splitter) SplitDocument(text, sourceID string, metadata map[string]any) []core.Chunk {
	normalized := NormalizeDocument(text)
	if normalized == "" {
		return nil
	}

	var fragments []string
	if !s.NeedsSplit(normalized) {
		fragments = []string{normalized}
	} else {
		fragments = s.paragraphFragments(normalized)
	}

	chunks := buildChunks(sourceID, fragments, metadata)
	return Finalize(chunks)
}

// Fragments cuts text into plain string fragments without building chunk
// ids or metadata. Callers that need record-wide linkage across several
// texts split each one and finalize the combined chunk list themselves.
func (s *Splitter) Fragments(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !s.NeedsSplit(text) {
		return []string{text}
	}

	atoms := s.decompose(text, separators)
	return s.assemble(atoms)
}

// decompose recursively cuts text into atoms no longer than the atom
// budget (chunk size minus overlap), preferring the largest structural
// boundary present. An atom that no separator can shorten is hard-cut.
func (s *Splitter) decompose(text string, seps []string) []string {
	budget := s.chunkSize - s.overlap
	if len(text) <= budget {
		return []string{text}
	}

	for i, sep := range seps {
		if !strings.Contains(text, sep) {
			continue
		}

		parts := strings.SplitAfter(text, sep)
		atoms := make([]string, 0, len(parts))
		for _, part := range parts {
			if part == "" {
				continue
			}
			if len(part) <= budget {
				atoms = append(atoms, part)
				continue
			}
			atoms = append(atoms, s.decompose(part, seps[i+1:])...)
		}
		return atoms
	}

	// No separator applies: hard-cut the run on rune boundaries.
	var atoms []string
	for len(text) > budget {
		cut := budget
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			// Budget smaller than one rune; keep the rune whole.
			_, cut = utf8.DecodeRuneInString(text)
		}
		atoms = append(atoms, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		atoms = append(atoms, text)
	}
	return atoms
}

// assemble greedily packs atoms into fragments no longer than the chunk
// size, seeding each fragment after the first with the overlap tail of its
// predecessor.
func (s *Splitter) assemble(atoms []string) []string {
	var fragments []string
	var b strings.Builder
	carried := 0 // length of the overlap prefix in the current fragment

	flush := func() {
		fragment := b.String()
		fragments = append(fragments, fragment)
		tail := s.overlapTail(fragment)
		b.Reset()
		b.WriteString(tail)
		carried = len(tail)
	}

	for _, atom := range atoms {
		if b.Len()+len(atom) > s.chunkSize && b.Len() > carried {
			flush()
		}
		b.WriteString(atom)
	}
	if b.Len() > carried {
		fragments = append(fragments, b.String())
	}
	return fragments
}

// overlapTail returns up to overlap characters from the end of a fragment,
// trimmed forward to start after a sentence boundary when one is present.
func (s *Splitter) overlapTail(fragment string) string {
	if s.overlap == 0 {
		return ""
	}

	tail := fragment
	if len(tail) > s.overlap {
		start := len(tail) - s.overlap
		for start < len(tail) && !utf8.RuneStart(tail[start]) {
			start++
		}
		tail = tail[start:]
	}

	if idx := strings.Index(tail, sentenceBoundary); idx >= 0 && idx+len(sentenceBoundary) < len(tail) {
		tail = tail[idx+len(sentenceBoundary):]
	}
	return tail
}

// paragraphFragments accumulates normalized paragraphs into fragments up to
// the chunk size. A paragraph that alone exceeds the chunk size is broken
// into sentences and those are accumulated instead.
func (s *Splitter) paragraphFragments(text string) []string {
	paragraphs := strings.Split(text, "\n\n")

	var fragments []string
	var b strings.Builder
	carried := 0

	flush := func() {
		fragment := b.String()
		fragments = append(fragments, fragment)
		tail := s.overlapTail(fragment)
		b.Reset()
		if tail != "" {
			b.WriteString(tail)
			b.WriteString(" ")
		}
		carried = b.Len()
	}

	write := func(piece, joiner string) {
		need := len(piece)
		if b.Len() > carried {
			need += len(joiner)
		}
		if b.Len()+need > s.chunkSize && b.Len() > carried {
			flush()
		}
		if b.Len() > carried {
			b.WriteString(joiner)
		}
		b.WriteString(piece)
	}

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if len(paragraph) <= s.chunkSize {
			write(paragraph, "\n\n")
			continue
		}

		for _, sentence := range splitSentences(paragraph) {
			write(sentence, " ")
		}
	}
	if b.Len() > carried {
		fragments = append(fragments, b.String())
	}
	return fragments
}

// splitSentences cuts a paragraph on sentence boundaries, keeping the
// terminator attached. Over-long sentences are left intact here and packed
// by the caller.
func splitSentences(paragraph string) []string {
	parts := strings.SplitAfter(paragraph, sentenceBoundary)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			sentences = append(sentences, part)
		}
	}
	return sentences
}

// buildChunks turns fragments into chunks owned by sourceID, cloning the
// base metadata into each.
func buildChunks(sourceID string, fragments []string, metadata map[string]any) []core.Chunk {
	chunks := make([]core.Chunk, 0, len(fragments))
	for i, fragment := range fragments {
		meta := make(map[string]any, len(metadata)+8)
		for k, v := range metadata {
			meta[k] = v
		}
		meta[core.MetaOriginalID] = sourceID

		chunks = append(chunks, core.Chunk{
			ID:       core.ChunkID(sourceID, i, fragment),
			Text:     fragment,
			Metadata: meta,
		})
	}
	return chunks
}

// Finalize stamps positional metadata and neighbor linkage across an
// ordered chunk list. It is exported so callers that combine chunks from
// several texts (streamed segments of one record) can compute linkage over
// the whole record rather than per segment.
func Finalize(chunks []core.Chunk) []core.Chunk {
	total := len(chunks)
	createdAt := time.Now().UTC().Format(time.RFC3339)

	for i := range chunks {
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any, 8)
		}
		meta := chunks[i].Metadata
		meta[core.MetaChunkIndex] = i
		meta[core.MetaTotalChunks] = total
		meta[core.MetaChunkSize] = len(chunks[i].Text)
		meta[core.MetaCreatedAt] = createdAt
		meta[core.MetaChunkPreview] = core.Preview(chunks[i].Text)

		if i > 0 {
			meta[core.MetaPrevChunkID] = chunks[i-1].ID
		}
		if i < total-1 {
			meta[core.MetaNextChunkID] = chunks[i+1].ID
		}
	}
	return chunks
}
