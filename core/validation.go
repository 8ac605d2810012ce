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


package core

import "fmt"

// validMetrics are the distance metrics accepted by the supported providers.
var validMetrics = map[string]bool{
	"cosine":     true,
	"euclidean":  true,
	"dotproduct": true,
}

// ValidateSourceRecord validates a SourceRecord according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - the record must carry inline data or at least one file reference
//
// NOT validated:
//   - Metadata (any shape is accepted and merged into chunk metadata)
//   - FileRefs contents (unsupported or unreachable files are rejected
//     per-file during extraction, not up front)
func ValidateSourceRecord(record *SourceRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyRecordID)
	}

	if len(record.Data) == 0 && len(record.FileRefs) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyRecordData)
	}

	return nil
}

// ValidateIndexConfig validates an IndexConfig according to domain rules.
// The config is normalized (default cloud/region) before validation.
func ValidateIndexConfig(config *IndexConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidIndexConfig)
	}

	config.Normalize()

	if config.IndexName == "" {
		return fmt.Errorf("%w: %w", ErrInvalidIndexConfig, ErrEmptyIndexName)
	}

	if config.Dimension <= 0 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidIndexConfig, ErrInvalidDimension, config.Dimension)
	}

	if !validMetrics[config.Metric] {
		return fmt.Errorf("%w: %w: %q", ErrInvalidIndexConfig, ErrInvalidMetric, config.Metric)
	}

	return nil
}

// ValidateQueryRequest validates a QueryRequest according to domain rules.
//
// Validation rules:
//   - Namespace must not be empty
//   - either Query or IDs must be provided
func ValidateQueryRequest(request *QueryRequest) error {
	if request == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidQuery)
	}

	if request.Namespace == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrEmptyNamespace)
	}

	if request.Query == "" && len(request.IDs) == 0 {
		return fmt.Errorf("%w: query text or ids required", ErrInvalidQuery)
	}

	return nil
}
