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

import "errors"

// Domain validation errors
var (
	// ErrInvalidRecord indicates a SourceRecord failed validation.
	ErrInvalidRecord = errors.New("invalid source record")

	// ErrEmptyRecordID indicates the record ID field is empty.
	ErrEmptyRecordID = errors.New("record id cannot be empty")

	// ErrEmptyRecordData indicates a record carries neither data nor file references.
	ErrEmptyRecordData = errors.New("record has no data and no file references")

	// ErrInvalidIndexConfig indicates an IndexConfig failed validation.
	ErrInvalidIndexConfig = errors.New("invalid index config")

	// ErrEmptyIndexName indicates the index name field is empty.
	ErrEmptyIndexName = errors.New("index name cannot be empty")

	// ErrInvalidDimension indicates a non-positive vector dimension.
	ErrInvalidDimension = errors.New("dimension must be positive")

	// ErrInvalidMetric indicates an unknown distance metric.
	ErrInvalidMetric = errors.New("metric must be cosine, euclidean or dotproduct")

	// ErrInvalidQuery indicates a QueryRequest failed validation.
	ErrInvalidQuery = errors.New("invalid query request")

	// ErrEmptyNamespace indicates the namespace field is empty.
	ErrEmptyNamespace = errors.New("namespace cannot be empty")
)
