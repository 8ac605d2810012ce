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
	"context"
	"net/url"
	"path"
	"strings"
)

// Row is one extracted tabular row: the text selected for embedding plus
// the full row as metadata.
type Row struct {
	Text     string
	Metadata map[string]any
}

// Result holds extracted file content in exactly one of three shapes:
// a single text blob (lossy formats), ordered line segments (streamed
// plain-text formats), or tabular rows (csv).
type Result struct {
	// FileType is the detected extension, e.g. ".pdf".
	FileType string

	// Text is set for blob formats (pdf, docx).
	Text string

	// Segments is set for streamed text formats (txt, md, html, jsonl).
	Segments []string

	// Rows is set for tabular formats (csv).
	Rows []Row
}

// Extractor downloads a file and extracts its text content.
type Extractor interface {
	Extract(ctx context.Context, fileURL string) (*Result, error)
}

// FileKey derives a stable key from a file URL's base name, used to build
// the pseudo-record id for file-derived content. A URL without a usable
// path component falls back to "file".
func FileKey(fileURL string) string {
	name := "file"
	if u, err := url.Parse(fileURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			name = base
		}
	}
	name = strings.TrimSuffix(name, path.Ext(name))
	return name + "_content"
}

// RewriteDriveURL converts a Google Drive share link into its direct
// download form. Other URLs pass through unchanged.
func RewriteDriveURL(fileURL string) string {
	if !strings.Contains(fileURL, "drive.google.com") || !strings.Contains(fileURL, "/file/d/") {
		return fileURL
	}

	rest := strings.SplitN(fileURL, "/file/d/", 2)[1]
	fileID := strings.SplitN(rest, "/", 2)[0]
	if fileID == "" {
		return fileURL
	}
	return "https://drive.google.com/uc?export=download&id=" + fileID
}
