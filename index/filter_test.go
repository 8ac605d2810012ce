package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/vectorium/core"
)

func TestFilter_Matches(t *testing.T) {
	metadata := map[string]any{
		"original_id": "doc-1",
		"chunk_index": float64(2), // JSON round-trip widens ints
		"source":      "file_url",
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "nil filter matches", filter: nil, want: true},
		{name: "empty filter matches", filter: Filter{}, want: true},
		{name: "equality match", filter: Eq("original_id", "doc-1"), want: true},
		{name: "equality mismatch", filter: Eq("original_id", "doc-2"), want: false},
		{name: "missing field mismatch", filter: Eq("absent", "x"), want: false},
		{name: "numeric equality across types", filter: Eq("chunk_index", 2), want: true},
		{name: "in match", filter: In("original_id", "doc-1", "doc-2"), want: true},
		{name: "in mismatch", filter: In("original_id", "doc-3", "doc-4"), want: false},
		{name: "explicit eq operator", filter: Filter{"source": map[string]any{"$eq": "file_url"}}, want: true},
		{name: "ne operator", filter: Filter{"source": map[string]any{"$ne": "file_url"}}, want: false},
		{
			name:   "or with one matching clause",
			filter: Or(Eq("original_id", "doc-9"), Eq("source", "file_url")),
			want:   true,
		},
		{
			name:   "or with no matching clause",
			filter: Or(Eq("original_id", "doc-9"), Eq("source", "inline")),
			want:   false,
		},
		{
			name:   "conjunction of fields",
			filter: Filter{"original_id": "doc-1", "source": "file_url"},
			want:   true,
		},
		{
			name:   "conjunction with one mismatch",
			filter: Filter{"original_id": "doc-1", "source": "inline"},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(metadata))
		})
	}
}

func TestOwnershipFilter(t *testing.T) {
	filter := OwnershipFilter([]string{"doc-1", "doc-2"})

	t.Run("matches direct chunks", func(t *testing.T) {
		assert.True(t, filter.Matches(map[string]any{core.MetaOriginalID: "doc-1"}))
	})

	t.Run("matches file-derived chunks", func(t *testing.T) {
		assert.True(t, filter.Matches(map[string]any{
			core.MetaOriginalID:       "doc-1_report_content",
			core.MetaOriginalRecordID: "doc-2",
		}))
	})

	t.Run("ignores other documents", func(t *testing.T) {
		assert.False(t, filter.Matches(map[string]any{core.MetaOriginalID: "doc-3"}))
	})
}
