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


package local

import (
	"encoding/json"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"

	"github.com/poiesic/vectorium/core"
)

// storedVector is the on-disk record for one indexed vector. Metadata is
// kept as a JSON document: it is schema-free by nature and only read back
// whole, so a binary field-by-field encoding buys nothing.
type storedVector struct {
	ID       string
	Values   []float32
	Metadata string
}

var valuesSer = ord.NewSliceSer[float32](raw.Float32)

// marshalStoredVector serializes a stored vector with the MUS format.
func marshalStoredVector(v storedVector) []byte {
	size := ord.String.Size(v.ID) +
		valuesSer.Size(v.Values) +
		ord.String.Size(v.Metadata)

	buf := make([]byte, size)
	n := ord.String.Marshal(v.ID, buf)
	n += valuesSer.Marshal(v.Values, buf[n:])
	ord.String.Marshal(v.Metadata, buf[n:])
	return buf
}

// unmarshalStoredVector deserializes a stored vector.
func unmarshalStoredVector(data []byte) (storedVector, error) {
	var v storedVector

	id, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return v, err
	}
	values, m, err := valuesSer.Unmarshal(data[n:])
	if err != nil {
		return v, err
	}
	metadata, _, err := ord.String.Unmarshal(data[n+m:])
	if err != nil {
		return v, err
	}

	v.ID = id
	v.Values = values
	v.Metadata = metadata
	return v, nil
}

// encodeVector converts an IndexedVector to its storage form.
func encodeVector(vector core.IndexedVector) ([]byte, error) {
	metadata, err := json.Marshal(vector.Metadata)
	if err != nil {
		return nil, err
	}
	return marshalStoredVector(storedVector{
		ID:       vector.ID,
		Values:   vector.Values,
		Metadata: string(metadata),
	}), nil
}

// decodeVector converts a storage record back to an IndexedVector.
func decodeVector(data []byte) (core.IndexedVector, error) {
	stored, err := unmarshalStoredVector(data)
	if err != nil {
		return core.IndexedVector{}, err
	}

	var metadata map[string]any
	if stored.Metadata != "" {
		if err := json.Unmarshal([]byte(stored.Metadata), &metadata); err != nil {
			return core.IndexedVector{}, err
		}
	}

	return core.IndexedVector{
		ID:       stored.ID,
		Values:   stored.Values,
		Metadata: metadata,
	}, nil
}
