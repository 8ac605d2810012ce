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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/vectorium"
	"github.com/poiesic/vectorium/ai"
	"github.com/poiesic/vectorium/ai/openai"
	"github.com/poiesic/vectorium/api"
	"github.com/poiesic/vectorium/config"
	"github.com/poiesic/vectorium/core"
	"github.com/poiesic/vectorium/index"
	"github.com/poiesic/vectorium/index/local"
	"github.com/poiesic/vectorium/index/pinecone"
	"github.com/poiesic/vectorium/ingestion"
	"github.com/poiesic/vectorium/reindex"
	"github.com/poiesic/vectorium/splitter"
)

func main() {
	app := &cli.App{
		Name:  "vectorium",
		Usage: "Document ingestion and search service for vector indexes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file with service configuration",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: serveCommand,
			},
			{
				Name:   "create-index",
				Usage:  "Create a vector index and wait until it is ready",
				Action: createIndexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "provider",
						Aliases:  []string{"p"},
						Usage:    "Provider to create the index on (local, pinecone)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Index name",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "dimension",
						Aliases:  []string{"d"},
						Usage:    "Vector dimension",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "metric",
						Usage: "Distance metric (cosine, euclidean, dotproduct)",
						Value: "cosine",
					},
					&cli.StringFlag{
						Name:  "cloud",
						Usage: "Serverless cloud for managed providers",
					},
					&cli.StringFlag{
						Name:  "region",
						Usage: "Serverless region for managed providers",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the index to become ready",
						Value: 5 * time.Minute,
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed every chunk in a namespace with the configured embedder",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "provider",
						Aliases:  []string{"p"},
						Usage:    "Provider holding the index (local, pinecone)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "index",
						Aliases:  []string{"i"},
						Usage:    "Index name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "namespace",
						Usage:    "Namespace to reindex",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func reindexCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	registry := newRegistry(cfg)
	defer registry.Close()

	idx, err := registry.Get(c.String("provider"))
	if err != nil {
		return err
	}

	reindexConfig := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if reindexConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reindexConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reindexConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reindexer, err := reindex.NewReindexer(embedder, reindexConfig, os.Stderr)
	if err != nil {
		return err
	}

	summary, err := reindexer.Run(context.Background(), idx, c.String("index"), c.String("namespace"))
	if err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Reindexed %d of %d chunks (%d skipped)\n",
		summary.Reindexed, summary.Total, summary.Skipped)
	return nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	registry := newRegistry(cfg)

	service, err := vectorium.NewService(registry, embedder,
		vectorium.WithSplitterOptions(
			splitter.WithChunkSize(cfg.Splitter.ChunkSize),
			splitter.WithOverlap(cfg.Splitter.ChunkOverlap),
			splitter.WithThreshold(cfg.Splitter.SplitThreshold),
		),
		vectorium.WithBatcherOptions(
			ingestion.WithMaxBatchItems(cfg.Ingestion.MaxBatchItems),
			ingestion.WithMaxBatchChars(cfg.Ingestion.MaxBatchChars),
			ingestion.WithRateLimitCooldown(cfg.Ingestion.RateLimitCooldown),
		),
		vectorium.WithPipelineOptions(
			ingestion.WithUpsertBatchSize(cfg.Ingestion.UpsertBatchSize),
			ingestion.WithShardThreshold(cfg.Ingestion.ShardThreshold),
			ingestion.WithGroupSize(cfg.Ingestion.GroupSize),
			ingestion.WithPoolSizes(cfg.Ingestion.WorkerPoolSize, cfg.Ingestion.UpsertPoolSize, cfg.Ingestion.GroupPoolSize),
		),
		vectorium.WithAssemblerOptions(
			ingestion.WithFileWorkers(cfg.Extract.FileWorkers),
		),
	)
	if err != nil {
		return fmt.Errorf("wiring service: %w", err)
	}
	defer func() {
		if closeErr := service.Close(); closeErr != nil {
			slog.Error("error closing service", "err", closeErr)
		}
	}()

	server := api.NewServer(cfg.Server.Port, api.NewRouter(service))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("received signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

func createIndexCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	registry := newRegistry(cfg)
	defer registry.Close()

	idx, err := registry.Get(c.String("provider"))
	if err != nil {
		return err
	}

	indexConfig := &core.IndexConfig{
		IndexName: c.String("name"),
		Dimension: c.Int("dimension"),
		Metric:    c.String("metric"),
		Cloud:     c.String("cloud"),
		Region:    c.String("region"),
	}
	if err := core.ValidateIndexConfig(indexConfig); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	if err := idx.CreateIndex(ctx, indexConfig); err != nil {
		return fmt.Errorf("creating index: %w", err)
	}

	for {
		ready, err := idx.DescribeIndexReady(ctx, indexConfig.IndexName)
		if err != nil {
			return fmt.Errorf("describing index: %w", err)
		}
		if ready {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for index %q: %w", indexConfig.IndexName, ctx.Err())
		case <-time.After(vectorium.DefaultReadyPollInterval):
		}
	}

	fmt.Fprintf(os.Stderr, "Index %q ready on provider %q\n", indexConfig.IndexName, c.String("provider"))
	return nil
}

// newRegistry registers the configured providers. Factories run lazily, so
// a provider with missing credentials only fails when a request names it.
func newRegistry(cfg *config.Config) *index.Registry {
	registry := index.NewRegistry()

	registry.Register("local", func() (index.VectorIndex, error) {
		return local.Open(cfg.Local.DataDir, cfg.Local.InMemory)
	})

	if cfg.Pinecone.APIKey != "" {
		registry.Register("pinecone", func() (index.VectorIndex, error) {
			return pinecone.New(cfg.Pinecone.APIKey)
		})
	}

	return registry
}

func newEmbedder(cfg *config.Config) (ai.Embedder, error) {
	var opts []ai.ConfigOption
	if cfg.Embedding.Host != "" {
		opts = append(opts, ai.WithHost(cfg.Embedding.Host))
	}
	if cfg.Embedding.Model != "" {
		opts = append(opts, ai.WithModel(cfg.Embedding.Model))
	}
	if cfg.Embedding.Token != "" {
		opts = append(opts, ai.WithToken(cfg.Embedding.Token))
	}
	aiConfig := ai.NewConfig(opts...)
	if err := aiConfig.Validate(); err != nil {
		return nil, err
	}
	return openai.NewEmbedder(aiConfig)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
