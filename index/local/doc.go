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


// Package local implements index.VectorIndex on an embedded BadgerDB store.
//
// Vectors live under per-index, per-namespace key prefixes and queries run
// as an exhaustive cosine scan over one namespace. That is plenty for
// development and integration testing, which is what this provider exists
// for; production traffic belongs on a real vector database provider.
package local
