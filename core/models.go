package core

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/go-crypt/x/blake2b"
)

// Metadata keys carried by every stored chunk. The full chunk text is kept
// in metadata so a retrieval hit can be returned without a second fetch.
const (
	MetaOriginalID       = "original_id"
	MetaOriginalRecordID = "original_record_id"
	MetaChunkIndex       = "chunk_index"
	MetaTotalChunks      = "total_chunks"
	MetaChunkSize        = "chunk_size"
	MetaCreatedAt        = "created_at"
	MetaPrevChunkID      = "prev_chunk_id"
	MetaNextChunkID      = "next_chunk_id"
	MetaChunkPreview     = "chunk_preview"
	MetaText             = "text"
	MetaSource           = "source"
	MetaSourceURL        = "source_url"
	MetaFileType         = "file_type"
)

// PreviewLength bounds the chunk_preview metadata field.
const PreviewLength = 100

// SourceRecord is a caller-owned input record. Data values are concatenated
// into the embedding text unless the record references external files, in
// which case the extracted file content is ingested alongside it.
type SourceRecord struct {
	ID       string         `json:"id"`
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata"`
	FileRefs []string       `json:"file_urls,omitempty"`
}

// Chunk is a bounded slice of a source document's text, individually
// embedded and stored. Chunks are created fresh on every ingestion and
// superseded (deleted then replaced) when their source record is re-ingested.
type Chunk struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// IndexedVector is the write unit sent to a vector index: the chunk id, its
// embedding, and the chunk metadata including the full text.
type IndexedVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

// IndexConfig describes a vector index to create.
type IndexConfig struct {
	IndexName string `json:"index_name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Cloud     string `json:"cloud,omitempty"`
	Region    string `json:"region,omitempty"`
}

// Normalize fills in the default serverless placement.
func (c *IndexConfig) Normalize() {
	if c.Cloud == "" {
		c.Cloud = "aws"
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
}

// QueryRequest is a search request against one namespace. When IDs is
// non-empty the request is a fetch by id and Query is ignored.
type QueryRequest struct {
	Query          string         `json:"query,omitempty"`
	IDs            []string       `json:"ids,omitempty"`
	TopK           int            `json:"top_k,omitempty"`
	Namespace      string         `json:"namespace"`
	MetadataFilter map[string]any `json:"metadata_filter,omitempty"`
}

// SearchMatch is one ranked result. Score is nil for fetch-by-id results.
type SearchMatch struct {
	ID       string         `json:"id"`
	Score    *float32       `json:"score"`
	Metadata map[string]any `json:"metadata"`
	Vector   []float32      `json:"vector,omitempty"`
}

// ChunkContext is a windowed view around one stored chunk: the chunk itself,
// its linked neighbors when they still exist, and a combined readable text.
type ChunkContext struct {
	Found        bool           `json:"found"`
	Current      *IndexedVector `json:"current,omitempty"`
	Previous     *IndexedVector `json:"previous,omitempty"`
	Next         *IndexedVector `json:"next,omitempty"`
	CombinedText string         `json:"combined_text,omitempty"`
}

// ChunkID derives a deterministic chunk id from the owning record, the chunk
// position, and a BLAKE2b hash of the chunk text. Identical content always
// produces the same id, so re-ingesting an unchanged document overwrites its
// chunks in place instead of minting wall-clock-unique duplicates.
func ChunkID(originalID string, index int, text string) string {
	return fmt.Sprintf("%s_chunk_%d_%016x", originalID, index, hashContent(text))
}

// RowChunkID is the synthetic id for a chunk derived from one tabular row.
func RowChunkID(recordID string, row int) string {
	return fmt.Sprintf("%s_row_%d", recordID, row)
}

// StreamChunkID is the synthetic id for a chunk derived from one streamed
// text segment that did not need splitting.
func StreamChunkID(recordID string, segment int) string {
	return fmt.Sprintf("%s_stream_%d", recordID, segment)
}

// hashContent hashes text to 64 bits using BLAKE2b.
func hashContent(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// Preview returns up to PreviewLength bytes from the start of text, never
// cutting inside a multi-byte rune.
func Preview(text string) string {
	if len(text) <= PreviewLength {
		return text
	}
	cut := PreviewLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// MetaString reads a string-valued metadata field, tolerating absence.
func MetaString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	if s, ok := metadata[key].(string); ok {
		return s
	}
	return ""
}

// MetaInt reads an integer-valued metadata field. Values that round-tripped
// through JSON arrive as float64 and are converted. Missing or non-numeric
// values yield 0.
func MetaInt(metadata map[string]any, key string) int {
	if metadata == nil {
		return 0
	}
	switch v := metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	}
	return 0
}
