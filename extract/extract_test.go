package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKey(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "simple file", url: "https://example.com/docs/report.pdf", want: "report_content"},
		{name: "no extension", url: "https://example.com/docs/report", want: "report_content"},
		{name: "no path", url: "https://example.com", want: "file_content"},
		{name: "trailing slash", url: "https://example.com/docs/", want: "docs_content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileKey(tt.url))
		})
	}
}

func TestRewriteDriveURL(t *testing.T) {
	t.Run("share link rewritten", func(t *testing.T) {
		got := RewriteDriveURL("https://drive.google.com/file/d/abc123/view?usp=sharing")
		assert.Equal(t, "https://drive.google.com/uc?export=download&id=abc123", got)
	})

	t.Run("other urls untouched", func(t *testing.T) {
		url := "https://example.com/file/d/abc123/view"
		assert.Equal(t, url, RewriteDriveURL(url))
	})

	t.Run("drive url without file segment untouched", func(t *testing.T) {
		url := "https://drive.google.com/drive/folders/xyz"
		assert.Equal(t, url, RewriteDriveURL(url))
	})
}

func TestDetectExtension(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		want        string
	}{
		{name: "from path", url: "https://example.com/a/b.pdf", contentType: "", want: ".pdf"},
		{name: "from content type", url: "https://example.com/download", contentType: "text/csv", want: ".csv"},
		{name: "content type with charset", url: "https://example.com/download", contentType: "text/markdown; charset=utf-8", want: ".md"},
		{name: "unknown defaults to txt", url: "https://example.com/download", contentType: "application/x-thing", want: ".txt"},
		{name: "drive octet-stream forced to csv", url: "https://drive.google.com/uc?export=download&id=x", contentType: "application/octet-stream", want: ".csv"},
		{name: "uppercase extension lowered", url: "https://example.com/a/B.TXT", contentType: "", want: ".txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectExtension(tt.url, tt.contentType))
		})
	}
}

func TestHTTPExtractor_Extract_Text(t *testing.T) {
	var body strings.Builder
	for i := 0; i < 1200; i++ {
		fmt.Fprintf(&body, "line %d\n", i)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, body.String())
	}))
	defer srv.Close()

	e := NewHTTPExtractor()
	result, err := e.Extract(context.Background(), srv.URL+"/notes.txt")
	require.NoError(t, err)

	assert.Equal(t, ".txt", result.FileType)
	require.Len(t, result.Segments, 3) // 500 + 500 + 200 lines
	assert.Equal(t, body.String(), strings.Join(result.Segments, ""))
}

func TestHTTPExtractor_Extract_CSV(t *testing.T) {
	csvBody := "Status;Name;Lastname;Startup;Email;Call;Notes\n" +
		"active;Ada;Lovelace;Analytical;ada@example.com;done;first\n" +
		"pending;Alan;Turing;Enigma;alan@example.com;;second\n" +
		";;;;;;no key values\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, csvBody)
	}))
	defer srv.Close()

	e := NewHTTPExtractor()
	result, err := e.Extract(context.Background(), srv.URL+"/contacts.csv")
	require.NoError(t, err)

	assert.Equal(t, ".csv", result.FileType)
	require.Len(t, result.Rows, 2, "row without key column values is skipped")

	assert.Equal(t, "active | Ada | Lovelace | Analytical | ada@example.com | done", result.Rows[0].Text)
	assert.Equal(t, "first", result.Rows[0].Metadata["Notes"])
	assert.Equal(t, "pending | Alan | Turing | Enigma | alan@example.com", result.Rows[1].Text)
	assert.NotContains(t, result.Rows[1].Metadata, "Call", "empty fields are dropped from metadata")
}

func TestHTTPExtractor_Extract_Errors(t *testing.T) {
	t.Run("unsupported format", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "binary")
		}))
		defer srv.Close()

		e := NewHTTPExtractor()
		_, err := e.Extract(context.Background(), srv.URL+"/image.png")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("file too large", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, strings.Repeat("x", 2048))
		}))
		defer srv.Close()

		e := NewHTTPExtractor(WithMaxFileSize(1024))
		_, err := e.Extract(context.Background(), srv.URL+"/big.txt")
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		e := NewHTTPExtractor()
		_, err := e.Extract(context.Background(), srv.URL+"/missing.txt")
		assert.Error(t, err)
	})

	t.Run("empty content", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
		}))
		defer srv.Close()

		e := NewHTTPExtractor()
		_, err := e.Extract(context.Background(), srv.URL+"/empty.txt")
		assert.ErrorIs(t, err, ErrEmptyContent)
	})
}

func TestHTTPExtractor_SegmentLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "a\nb\nc\nd\ne\n")
	}))
	defer srv.Close()

	e := NewHTTPExtractor(WithSegmentLines(2))
	result, err := e.Extract(context.Background(), srv.URL+"/short.txt")
	require.NoError(t, err)

	assert.Equal(t, []string{"a\nb\n", "c\nd\n", "e\n"}, result.Segments)
}
