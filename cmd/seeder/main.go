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


// Seeder loads sample records into a local development index so the search
// endpoints have something to answer against.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"

	"github.com/poiesic/vectorium"
	"github.com/poiesic/vectorium/ai"
	"github.com/poiesic/vectorium/ai/openai"
	"github.com/poiesic/vectorium/core"
	"github.com/poiesic/vectorium/index"
	"github.com/poiesic/vectorium/index/local"
)

const (
	dbPath    = "./vectorium_db"
	indexName = "seed"
	namespace = "demo"
	batchSize = 5
)

var documents = []string{
	"The deployment pipeline builds the container image and pushes it to the registry.",
	"Customer support tickets are triaged every morning before standup.",
	"The quarterly revenue report showed steady growth in the European market.",
	"A database migration must be reversible and tested against a production snapshot.",
	"The new onboarding guide walks engineers through the local development setup.",
	"Incident postmortems focus on contributing factors rather than blame.",
	"The pricing page lists three tiers: starter, team, and enterprise.",
	"Cache invalidation happens on every write to the underlying record.",
	"The mobile app syncs offline edits once connectivity is restored.",
	"Security reviews are required for any change touching authentication.",
	"The design system documents spacing, color tokens, and typography rules.",
	"Backups run nightly and are verified by an automated restore check.",
	"The API gateway enforces per-tenant rate limits at the edge.",
	"Feature flags let the team ship dark and enable gradually.",
	"The data warehouse ingests events from the message bus every five minutes.",
	"Load tests run against a staging cluster sized like production.",
	"The search relevance team tunes ranking signals weekly.",
	"Contract renewals are flagged ninety days before expiry.",
	"The compliance audit requires retention policies for every data store.",
	"Error budgets decide when the team pauses features for reliability work.",
	"The legacy importer still handles spreadsheets from the old CRM.",
	"Webhooks retry with exponential backoff for up to twenty-four hours.",
	"The analytics dashboard aggregates usage by workspace and by seat.",
	"Service dependencies are declared so rollouts can be ordered safely.",
}

var seedFileName = flag.String("src", "", "file of seed data, one record per line")

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// ingestBatched reads from a source iterator and ingests records in batches.
func ingestBatched(ctx context.Context, service *vectorium.Service, source iter.Seq[string], batchSize int) error {
	batch := make([]core.SourceRecord, 0, batchSize)
	n := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := service.UpsertData(ctx, "local", indexName, namespace, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for line := range source {
		if line == "" {
			continue
		}
		batch = append(batch, core.SourceRecord{
			ID:   fmt.Sprintf("seed-%03d", n),
			Data: map[string]any{"text": line},
		})
		n++
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	slog.Info("seeding complete", "records", n, "index", indexName, "namespace", namespace)
	return nil
}

func main() {
	embedder, err := openai.NewEmbedder(ai.DefaultConfig())
	if err != nil {
		panic(err)
	}

	registry := index.NewRegistry()
	registry.Register("local", func() (index.VectorIndex, error) {
		return local.Open(dbPath, false)
	})

	service, err := vectorium.NewService(registry, embedder)
	if err != nil {
		panic(err)
	}
	defer service.Close()

	ctx := context.Background()

	// Learn the embedding dimension from a probe so the index matches the
	// model being served.
	probe, err := embedder.EmbedText(ctx, "dimension probe")
	if err != nil {
		panic(err)
	}

	err = service.CreateIndex(ctx, "local", &core.IndexConfig{
		IndexName: indexName,
		Dimension: len(probe),
		Metric:    "cosine",
	})
	if err != nil && !errors.Is(err, index.ErrIndexExists) {
		panic(err)
	}

	var source iter.Seq[string]
	if seedFileName != nil && *seedFileName != "" {
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = linesFromSlice(documents)
	}

	if err := ingestBatched(ctx, service, source, batchSize); err != nil {
		panic(err)
	}
}
