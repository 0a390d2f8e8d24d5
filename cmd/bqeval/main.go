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

	"github.com/urfave/cli/v2"

	"github.com/afg1/bqeval/ai"
	"github.com/afg1/bqeval/ai/openai"
	"github.com/afg1/bqeval/config"
	"github.com/afg1/bqeval/vectordb"
	"github.com/afg1/bqeval/vectordb/qdrant"
)

// Replaced in tests.
var (
	openCollection = func(cfg *config.Config) (vectordb.Collection, error) {
		return qdrant.New(cfg.QdrantConnection(), cfg.Collection.Name,
			qdrant.WithDimension(cfg.Collection.Dimension))
	}
	newEmbedder = func(cfg *ai.Config) (ai.Embedder, error) {
		return openai.NewEmbedder(cfg)
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "bqeval",
		Usage: "Measure binary quantization accuracy and latency on a vector collection",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "qdrant-host",
				Usage: "Qdrant host",
			},
			&cli.IntFlag{
				Name:  "qdrant-port",
				Usage: "Qdrant gRPC port",
			},
			&cli.StringFlag{
				Name:    "qdrant-api-key",
				Usage:   "Qdrant API key",
				EnvVars: []string{"QDRANT_API_KEY"},
			},
			&cli.StringFlag{
				Name:  "collection",
				Usage: "Collection name",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the BadgerDB directory holding finished runs",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "load",
				Usage:  "Create the collection with binary quantization and upload a dataset",
				Action: loadCommand,
				Flags: []cli.Flag{
					datasetFlag(),
					&cli.BoolFlag{
						Name:  "recreate",
						Usage: "Drop the collection first if it exists",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of points per upsert",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent upload workers (0 picks half the CPUs)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Upload at most N rows (0 for all)",
					},
					&cli.BoolFlag{
						Name:  "no-wait",
						Usage: "Return without waiting for the collection to be optimized",
					},
				},
			},
			{
				Name:   "sweep",
				Usage:  "Run the oversampling x rescore x limit grid and store the run",
				Action: sweepCommand,
				Flags: []cli.Flag{
					datasetFlag(),
					&cli.IntFlag{
						Name:  "queries",
						Usage: "Number of dataset rows used as queries",
					},
					&cli.Int64Flag{
						Name:  "seed",
						Usage: "Seed for query noise",
					},
					&cli.Float64Flag{
						Name:  "noise",
						Usage: "Standard deviation of the Gaussian noise added to queries",
					},
					&cli.IntFlag{
						Name:  "parallelism",
						Usage: "Queries of a cell run concurrently",
					},
					&cli.Float64Flag{
						Name:  "rate-limit",
						Usage: "Cap search calls per second (0 for no limit)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (table, csv, json)",
						Value:   "table",
					},
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Serve Prometheus metrics on this address during the sweep",
					},
					&cli.StringSliceFlag{
						Name:  "label",
						Usage: "Attach key=value labels to the stored run",
					},
					&cli.Float64Flag{
						Name:  "min-accuracy",
						Usage: "Report the fastest cell reaching this accuracy",
						Value: 0.99,
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Embed free text and print the hits",
				ArgsUsage: "<text>",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of hits",
						Value: 10,
					},
					&cli.Float64Flag{
						Name:  "oversampling",
						Usage: "Candidate multiplier (0 for the service default)",
					},
					&cli.BoolFlag{
						Name:  "rescore",
						Usage: "Re-rank candidates with the original vectors",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "exact",
						Usage: "Bypass the index and run a full scan",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
					},
					&cli.StringFlag{
						Name:    "embedding-token",
						Usage:   "Embedding service API token",
						EnvVars: []string{"OPENAI_API_KEY"},
					},
				},
			},
			{
				Name:  "runs",
				Usage: "Inspect stored runs",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List runs, most recent first",
						Action: runsListCommand,
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:  "limit",
								Usage: "Show at most N runs (0 for all)",
							},
						},
					},
					{
						Name:      "show",
						Usage:     "Print the cells of a run",
						ArgsUsage: "<run-id>",
						Action:    runsShowCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:    "format",
								Aliases: []string{"f"},
								Usage:   "Output format (table, csv, json)",
								Value:   "table",
							},
						},
					},
					{
						Name:      "delete",
						Usage:     "Delete a run",
						ArgsUsage: "<run-id>",
						Action:    runsDeleteCommand,
					},
				},
			},
			{
				Name:   "drop",
				Usage:  "Delete the collection",
				Action: dropCommand,
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration as YAML",
				Action: configCommand,
			},
		},
	}
}

func datasetFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "dataset",
		Usage: "Path to the JSON Lines dataset (optionally gzip, zstd or lz4 compressed)",
	}
}

// loadConfig reads --config (or the defaults) and applies the global and
// command flags that were set explicitly.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("qdrant-host") {
		cfg.Qdrant.Host = c.String("qdrant-host")
	}
	if c.IsSet("qdrant-port") {
		cfg.Qdrant.Port = c.Int("qdrant-port")
	}
	if c.IsSet("qdrant-api-key") {
		cfg.Qdrant.APIKey = c.String("qdrant-api-key")
	}
	if c.IsSet("collection") {
		cfg.Collection.Name = c.String("collection")
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
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
