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


// Searcher runs an ad-hoc query against the local development index
// populated by the seeder.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/vectorium/ai"
	"github.com/poiesic/vectorium/ai/openai"
	"github.com/poiesic/vectorium/core"
	"github.com/poiesic/vectorium/index/local"
	"github.com/poiesic/vectorium/search"
)

const (
	dbPath    = "./vectorium_db"
	indexName = "seed"
	namespace = "demo"
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	embedder, err := openai.NewEmbedder(ai.DefaultConfig())
	if err != nil {
		panic(err)
	}

	store, err := local.Open(dbPath, false)
	if err != nil {
		panic(err)
	}
	defer store.Close()

	searcher, err := search.NewSearcher(embedder)
	if err != nil {
		panic(err)
	}

	query := "backup verification"
	if len(os.Args) > 1 {
		query = strings.Join(os.Args[1:], " ")
	}

	ctx := context.Background()
	matches, err := searcher.Search(ctx, store, indexName, &core.QueryRequest{
		Namespace: namespace,
		Query:     query,
		TopK:      5,
	})
	if err != nil {
		panic(err)
	}

	fmt.Printf("Found %d hits\n", len(matches))
	for i, hit := range matches {
		score := float32(0)
		if hit.Score != nil {
			score = *hit.Score
		}
		fmt.Printf("%d: '%s' (%s)[%0.3f]\n", i, core.MetaString(hit.Metadata, core.MetaText), hit.ID, score)
	}
}
