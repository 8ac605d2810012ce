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


package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"code.sajari.com/docconv"
)

// supportedExtensions lists the file types HTTPExtractor can process.
var supportedExtensions = map[string]bool{
	".txt":   true,
	".md":    true,
	".pdf":   true,
	".docx":  true,
	".html":  true,
	".csv":   true,
	".jsonl": true,
}

// contentTypeExtensions maps response content types to extensions for URLs
// whose path carries no extension.
var contentTypeExtensions = map[string]string{
	"text/plain":         ".txt",
	"text/markdown":      ".md",
	"application/pdf":    ".pdf",
	"text/html":          ".html",
	"text/csv":           ".csv",
	"application/jsonl":  ".jsonl",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
}

// docconvMimeTypes maps blob extensions to the mime type docconv expects.
var docconvMimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// defaultCSVKeyColumns are the columns whose values form the embedding text
// for a csv row. The full row is always preserved as metadata.
var defaultCSVKeyColumns = []string{"Status", "Name", "Lastname", "Startup", "Email", "Call"}

// HTTPExtractor downloads files over HTTP and extracts their text content.
type HTTPExtractor struct {
	client        *http.Client
	maxFileSize   int64
	segmentLines  int
	csvDelimiter  rune
	csvKeyColumns []string
	logger        *slog.Logger
}

// HTTPOption configures an HTTPExtractor.
type HTTPOption func(*HTTPExtractor)

// WithHTTPClient sets a custom HTTP client.
// Default is a client with a 30 second timeout.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(e *HTTPExtractor) {
		if client != nil {
			e.client = client
		}
	}
}

// WithMaxFileSize sets the download size limit in bytes.
// Default is 50MB.
func WithMaxFileSize(limit int64) HTTPOption {
	return func(e *HTTPExtractor) {
		if limit > 0 {
			e.maxFileSize = limit
		}
	}
}

// WithSegmentLines sets how many lines each streamed text segment holds.
// Default is 500.
func WithSegmentLines(lines int) HTTPOption {
	return func(e *HTTPExtractor) {
		if lines > 0 {
			e.segmentLines = lines
		}
	}
}

// WithCSVKeyColumns sets the columns selected into a csv row's embedding
// text.
func WithCSVKeyColumns(columns []string) HTTPOption {
	return func(e *HTTPExtractor) {
		if len(columns) > 0 {
			e.csvKeyColumns = columns
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(e *HTTPExtractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewHTTPExtractor creates an extractor with the provided options applied
// over defaults.
func NewHTTPExtractor(opts ...HTTPOption) *HTTPExtractor {
	e := &HTTPExtractor{
		client:        &http.Client{Timeout: 30 * time.Second},
		maxFileSize:   50 * 1024 * 1024,
		segmentLines:  500,
		csvDelimiter:  ';',
		csvKeyColumns: defaultCSVKeyColumns,
		logger:        slog.Default().With("component", "extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract downloads the file and extracts its content according to the
// detected type.
func (e *HTTPExtractor) Extract(ctx context.Context, fileURL string) (*Result, error) {
	target := RewriteDriveURL(fileURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", fileURL, err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading %s: unexpected status %d", fileURL, resp.StatusCode)
	}
	if resp.ContentLength > e.maxFileSize {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, fileURL, resp.ContentLength)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	ext := detectExtension(target, contentType)
	if !supportedExtensions[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	// Content-Length is advisory; enforce the limit on the actual body.
	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fileURL, err)
	}
	if int64(len(body)) > e.maxFileSize {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, fileURL)
	}

	e.logger.Debug("downloaded file", "url", fileURL, "type", ext, "bytes", len(body))

	switch ext {
	case ".txt", ".md", ".html", ".jsonl":
		segments, err := e.readSegments(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("segmenting %s: %w", fileURL, err)
		}
		if len(segments) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyContent, fileURL)
		}
		return &Result{FileType: ext, Segments: segments}, nil

	case ".csv":
		rows, err := e.readRows(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parsing csv %s: %w", fileURL, err)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyContent, fileURL)
		}
		return &Result{FileType: ext, Rows: rows}, nil

	case ".pdf", ".docx":
		converted, err := docconv.Convert(bytes.NewReader(body), docconvMimeTypes[ext], false)
		if err != nil {
			return nil, fmt.Errorf("converting %s: %w", fileURL, err)
		}
		if strings.TrimSpace(converted.Body) == "" {
			return nil, fmt.Errorf("%w: %s", ErrEmptyContent, fileURL)
		}
		return &Result{FileType: ext, Text: converted.Body}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

// detectExtension resolves the file type from the URL path, falling back to
// the response content type. Google Drive often serves csv exports as
// octet-stream or pdf, so those are forced back to csv.
func detectExtension(fileURL, contentType string) string {
	ext := ".txt"
	if u, err := url.Parse(fileURL); err == nil {
		if pathExt := strings.ToLower(path.Ext(u.Path)); pathExt != "" {
			ext = pathExt
		} else if mapped, ok := contentTypeExtensions[baseContentType(contentType)]; ok {
			ext = mapped
		}
	}

	if strings.Contains(fileURL, "drive.google.com") && (ext == ".txt" || ext == ".pdf") {
		if strings.Contains(contentType, "octet-stream") || strings.Contains(contentType, "pdf") {
			ext = ".csv"
		}
	}
	return ext
}

// baseContentType strips parameters like "; charset=utf-8".
func baseContentType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(contentType)
}

// readSegments groups the input into segments of segmentLines lines each,
// preserving line breaks so concatenating segments reconstructs the file.
func (e *HTTPExtractor) readSegments(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var segments []string
	var b strings.Builder
	lines := 0

	for scanner.Scan() {
		b.WriteString(scanner.Text())
		b.WriteString("\n")
		lines++
		if lines == e.segmentLines {
			segments = append(segments, b.String())
			b.Reset()
			lines = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if b.Len() > 0 {
		segments = append(segments, b.String())
	}
	return segments, nil
}

// readRows parses delimited tabular data. Each row's embedding text joins
// the configured key columns with " | "; the full row is kept as metadata.
// Rows with no value in any key column are skipped.
func (e *HTTPExtractor) readRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.Comma = e.csvDelimiter
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		fields := make(map[string]any, len(header))
		for i, value := range record {
			if i < len(header) && value != "" {
				fields[header[i]] = value
			}
		}

		var values []string
		for _, col := range e.csvKeyColumns {
			if v, ok := fields[col].(string); ok && v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}

		rows = append(rows, Row{
			Text:     strings.Join(values, " | "),
			Metadata: fields,
		})
	}
	return rows, nil
}
