package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/vectorium/core"
	"github.com/poiesic/vectorium/extract"
	"github.com/poiesic/vectorium/splitter"
)

// fakeExtractor serves canned extraction results keyed by URL.
type fakeExtractor struct {
	results map[string]*extract.Result
	errs    map[string]error
}

func (f *fakeExtractor) Extract(ctx context.Context, fileURL string) (*extract.Result, error) {
	if err, ok := f.errs[fileURL]; ok {
		return nil, err
	}
	if result, ok := f.results[fileURL]; ok {
		return result, nil
	}
	return nil, errors.New("unexpected url: " + fileURL)
}

func newTestAssembler(t *testing.T, extractor extract.Extractor) *Assembler {
	t.Helper()
	s, err := splitter.New()
	require.NoError(t, err)

	a, err := NewAssembler(s, extractor)
	require.NoError(t, err)
	t.Cleanup(a.Release)
	return a
}

func TestAssembler_InlineRecords(t *testing.T) {
	a := newTestAssembler(t, nil)
	ctx := context.Background()

	t.Run("short record becomes one chunk", func(t *testing.T) {
		records := []core.SourceRecord{{
			ID:       "rec-1",
			Data:     map[string]any{"title": "Hello", "body": "World"},
			Metadata: map[string]any{"tenant": "acme"},
		}}

		chunks := a.Assemble(ctx, records)
		require.Len(t, chunks, 1)

		// Data values concatenate in key order for deterministic ids.
		assert.Equal(t, "World Hello", chunks[0].Text)
		assert.Equal(t, "rec-1", core.MetaString(chunks[0].Metadata, core.MetaOriginalID))
		assert.Equal(t, "acme", core.MetaString(chunks[0].Metadata, "tenant"))
		assert.Equal(t, 1, core.MetaInt(chunks[0].Metadata, core.MetaTotalChunks))
	})

	t.Run("long record splits", func(t *testing.T) {
		var b strings.Builder
		for i := 0; b.Len() < 2500; i++ {
			fmt.Fprintf(&b, "Sentence %d about the record contents. ", i)
		}

		records := []core.SourceRecord{{
			ID:   "rec-2",
			Data: map[string]any{"text": b.String()},
		}}

		chunks := a.Assemble(ctx, records)
		require.GreaterOrEqual(t, len(chunks), 3)
		for i, c := range chunks {
			assert.Equal(t, i, core.MetaInt(c.Metadata, core.MetaChunkIndex))
			assert.Equal(t, len(chunks), core.MetaInt(c.Metadata, core.MetaTotalChunks))
		}
	})

	t.Run("records keep input order", func(t *testing.T) {
		records := []core.SourceRecord{
			{ID: "first", Data: map[string]any{"text": "first text"}},
			{ID: "second", Data: map[string]any{"text": "second text"}},
		}

		chunks := a.Assemble(ctx, records)
		require.Len(t, chunks, 2)
		assert.Equal(t, "first", core.MetaString(chunks[0].Metadata, core.MetaOriginalID))
		assert.Equal(t, "second", core.MetaString(chunks[1].Metadata, core.MetaOriginalID))
	})
}

func TestAssembler_FileExpansion(t *testing.T) {
	ctx := context.Background()

	t.Run("stream segments with record-wide linkage", func(t *testing.T) {
		extractor := &fakeExtractor{results: map[string]*extract.Result{
			"https://files.test/notes.txt": {
				FileType: ".txt",
				Segments: []string{"segment one\n", "segment two\n", "segment three\n"},
			},
		}}
		a := newTestAssembler(t, extractor)

		records := []core.SourceRecord{{
			ID:       "rec-1",
			Data:     map[string]any{"title": "parent"},
			FileRefs: []string{"https://files.test/notes.txt"},
			Metadata: map[string]any{"tenant": "acme"},
		}}

		chunks := a.Assemble(ctx, records)
		require.Len(t, chunks, 4) // 1 parent + 3 stream segments

		assert.Equal(t, "rec-1", core.MetaString(chunks[0].Metadata, core.MetaOriginalID))

		stream := chunks[1:]
		assert.Equal(t, "rec-1_notes_content_stream_0", stream[0].ID)
		assert.Equal(t, "rec-1_notes_content_stream_2", stream[2].ID)
		for i, c := range stream {
			meta := c.Metadata
			assert.Equal(t, "rec-1_notes_content", core.MetaString(meta, core.MetaOriginalID))
			assert.Equal(t, "rec-1", core.MetaString(meta, core.MetaOriginalRecordID))
			assert.Equal(t, "file_url", core.MetaString(meta, core.MetaSource))
			assert.Equal(t, ".txt", core.MetaString(meta, core.MetaFileType))
			assert.Equal(t, "acme", core.MetaString(meta, "tenant"))
			assert.Equal(t, i, core.MetaInt(meta, core.MetaChunkIndex))
			assert.Equal(t, 3, core.MetaInt(meta, core.MetaTotalChunks))
		}
		assert.Equal(t, stream[0].ID, core.MetaString(stream[1].Metadata, core.MetaPrevChunkID))
		assert.Equal(t, stream[2].ID, core.MetaString(stream[1].Metadata, core.MetaNextChunkID))
	})

	t.Run("oversized segment is split, linkage still record-wide", func(t *testing.T) {
		var big strings.Builder
		for i := 0; big.Len() < 2200; i++ {
			fmt.Fprintf(&big, "Long segment sentence %d with plenty of text. ", i)
		}

		extractor := &fakeExtractor{results: map[string]*extract.Result{
			"https://files.test/big.txt": {
				FileType: ".txt",
				Segments: []string{"small lead segment\n", big.String()},
			},
		}}
		a := newTestAssembler(t, extractor)

		records := []core.SourceRecord{{
			ID:       "rec-1",
			FileRefs: []string{"https://files.test/big.txt"},
		}}

		chunks := a.Assemble(ctx, records)
		require.GreaterOrEqual(t, len(chunks), 4) // 1 small + >=3 split

		assert.True(t, strings.HasSuffix(chunks[0].ID, "_stream_0"))
		assert.Contains(t, chunks[1].ID, "_chunk_")

		total := len(chunks)
		for i, c := range chunks {
			assert.Equal(t, i, core.MetaInt(c.Metadata, core.MetaChunkIndex))
			assert.Equal(t, total, core.MetaInt(c.Metadata, core.MetaTotalChunks))
		}
		// The small segment links forward into the split chunks.
		assert.Equal(t, chunks[1].ID, core.MetaString(chunks[0].Metadata, core.MetaNextChunkID))
	})

	t.Run("csv rows become independent chunks", func(t *testing.T) {
		extractor := &fakeExtractor{results: map[string]*extract.Result{
			"https://files.test/contacts.csv": {
				FileType: ".csv",
				Rows: []extract.Row{
					{Text: "active | Ada", Metadata: map[string]any{"Status": "active", "Name": "Ada"}},
					{Text: "pending | Alan", Metadata: map[string]any{"Status": "pending", "Name": "Alan"}},
				},
			},
		}}
		a := newTestAssembler(t, extractor)

		records := []core.SourceRecord{{
			ID:       "rec-1",
			FileRefs: []string{"https://files.test/contacts.csv"},
		}}

		chunks := a.Assemble(ctx, records)
		require.Len(t, chunks, 2)

		assert.Equal(t, "rec-1_contacts_content_row_0", chunks[0].ID)
		assert.Equal(t, "rec-1_contacts_content_row_1", chunks[1].ID)
		assert.Equal(t, "Ada", core.MetaString(chunks[0].Metadata, "Name"))
		assert.Equal(t, 2, core.MetaInt(chunks[0].Metadata, core.MetaTotalChunks))
		assert.NotContains(t, chunks[0].Metadata, core.MetaPrevChunkID)
		assert.NotContains(t, chunks[0].Metadata, core.MetaNextChunkID)
	})

	t.Run("document text goes through lossy splitting", func(t *testing.T) {
		extractor := &fakeExtractor{results: map[string]*extract.Result{
			"https://files.test/report.pdf": {
				FileType: ".pdf",
				Text:     "A report para-\ngraph about results.\n\n42\n\nSecond paragraph.",
			},
		}}
		a := newTestAssembler(t, extractor)

		records := []core.SourceRecord{{
			ID:       "rec-1",
			FileRefs: []string{"https://files.test/report.pdf"},
		}}

		chunks := a.Assemble(ctx, records)
		require.Len(t, chunks, 1)

		assert.Contains(t, chunks[0].Text, "paragraph about results")
		assert.NotContains(t, chunks[0].Text, "42", "page number line is dropped")
		assert.Equal(t, ".pdf", core.MetaString(chunks[0].Metadata, core.MetaFileType))
	})

	t.Run("failed file is skipped, parent survives", func(t *testing.T) {
		extractor := &fakeExtractor{
			results: map[string]*extract.Result{
				"https://files.test/good.txt": {FileType: ".txt", Segments: []string{"good content\n"}},
			},
			errs: map[string]error{
				"https://files.test/bad.bin": extract.ErrUnsupportedFormat,
			},
		}
		a := newTestAssembler(t, extractor)

		records := []core.SourceRecord{{
			ID:       "rec-1",
			Data:     map[string]any{"text": "parent data"},
			FileRefs: []string{"https://files.test/bad.bin", "https://files.test/good.txt"},
		}}

		chunks := a.Assemble(ctx, records)
		require.Len(t, chunks, 2)
		assert.Equal(t, "rec-1", core.MetaString(chunks[0].Metadata, core.MetaOriginalID))
		assert.Equal(t, "rec-1_good_content", core.MetaString(chunks[1].Metadata, core.MetaOriginalID))
	})

	t.Run("no extractor configured skips files", func(t *testing.T) {
		a := newTestAssembler(t, nil)

		records := []core.SourceRecord{{
			ID:       "rec-1",
			Data:     map[string]any{"text": "inline"},
			FileRefs: []string{"https://files.test/doc.txt"},
		}}

		chunks := a.Assemble(ctx, records)
		require.Len(t, chunks, 1)
	})
}
