package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/afg1/bqeval"
	"github.com/afg1/bqeval/config"
	"github.com/afg1/bqeval/core"
	"github.com/afg1/bqeval/dataset"
	"github.com/afg1/bqeval/metrics"
	"github.com/afg1/bqeval/report"
	"github.com/afg1/bqeval/storage"
	"github.com/afg1/bqeval/storage/badger"
)

func loadCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("dataset") {
		cfg.Dataset.Path = c.String("dataset")
	}
	if c.IsSet("recreate") {
		cfg.Collection.Recreate = c.Bool("recreate")
	}
	if c.IsSet("batch-size") {
		cfg.Upload.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("workers") {
		cfg.Upload.Workers = c.Int("workers")
	}
	if c.IsSet("limit") {
		cfg.Dataset.Limit = c.Int("limit")
	}
	if c.Bool("no-wait") {
		cfg.Upload.WaitReady = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Dataset.Path == "" {
		return fmt.Errorf("dataset path is required")
	}

	src, err := dataset.Open(cfg.Dataset.Path, cfg.DatasetOptions()...)
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}

	h, err := openHarness(c, cfg)
	if err != nil {
		return err
	}
	defer h.Close()

	out := c.App.ErrWriter
	fmt.Fprintf(out, "Qdrant: %s:%d\n", cfg.Qdrant.Host, cfg.Qdrant.Port)
	fmt.Fprintf(out, "Collection: %s (dim %d, %s, %d shards, recreate %t)\n",
		cfg.Collection.Name, cfg.Collection.Dimension, cfg.Collection.Distance,
		cfg.Collection.Shards, cfg.Collection.Recreate)
	fmt.Fprintf(out, "Dataset: %s\n", cfg.Dataset.Path)
	workers := "auto"
	if cfg.Upload.Workers > 0 {
		workers = strconv.Itoa(cfg.Upload.Workers)
	}
	fmt.Fprintf(out, "Batch size: %d, workers: %s\n", cfg.Upload.BatchSize, workers)
	fmt.Fprintln(out)

	stats, err := h.Load(c.Context, src)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	fmt.Fprintf(out, "Loaded %d points in %d batches (%d retries) in %s\n",
		stats.Points, stats.Batches, stats.Retries, stats.Duration)
	return nil
}

func sweepCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("dataset") {
		cfg.Dataset.Path = c.String("dataset")
	}
	if c.IsSet("queries") {
		cfg.Sweep.Queries = c.Int("queries")
	}
	if c.IsSet("seed") {
		cfg.Sweep.Seed = c.Int64("seed")
	}
	if c.IsSet("noise") {
		cfg.Sweep.NoiseStdDev = c.Float64("noise")
	}
	if c.IsSet("parallelism") {
		cfg.Sweep.Parallelism = c.Int("parallelism")
	}
	if c.IsSet("rate-limit") {
		cfg.Sweep.RateLimit = c.Float64("rate-limit")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Dataset.Path == "" {
		return fmt.Errorf("dataset path is required")
	}

	format, err := report.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	labels, err := parseLabels(c.StringSlice("label"))
	if err != nil {
		return err
	}

	src, err := dataset.Open(cfg.Dataset.Path, cfg.DatasetOptions()...)
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}

	var recorder *metrics.Recorder
	if cfg.MetricsAddr != "" {
		recorder = metrics.NewRecorder()
	}

	h, err := openHarness(c, cfg, bqeval.WithLabels(labels), bqeval.WithMetrics(recorder))
	if err != nil {
		return err
	}
	defer h.Close()

	out := c.App.ErrWriter
	grid := cfg.Grid()
	fmt.Fprintf(out, "Collection: %s\n", cfg.Collection.Name)
	fmt.Fprintf(out, "Dataset: %s\n", cfg.Dataset.Path)
	fmt.Fprintf(out, "Queries: %d (seed %d, noise %g)\n", cfg.Sweep.Queries, cfg.Sweep.Seed, cfg.Sweep.NoiseStdDev)
	fmt.Fprintf(out, "Grid: oversampling %v x rescore %v x limits %v (%d cells)\n",
		grid.Oversampling, grid.Rescore, grid.Limits, grid.Size())
	fmt.Fprintf(out, "Runs database: %s\n", cfg.DBPath)
	fmt.Fprintln(out)

	run, err := runSweep(c.Context, h, src, recorder, cfg.MetricsAddr)
	if run != nil {
		if werr := report.Write(c.App.Writer, format, run.Cells); werr != nil {
			return werr
		}
		printFastest(c, run, c.Float64("min-accuracy"))
		fmt.Fprintf(out, "Run %s saved\n", run.ID)
	}
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	return nil
}

// runSweep runs the sweep, serving metrics alongside it when addr is set.
// A metrics listener that fails to start cancels the sweep.
func runSweep(ctx context.Context, h *bqeval.Harness, src bqeval.QuerySource, recorder *metrics.Recorder, addr string) (*core.Run, error) {
	if addr == "" {
		return h.Sweep(ctx, src)
	}

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()

	var (
		run      *core.Run
		sweepErr error
	)
	g.Go(func() error {
		return metrics.Serve(serveCtx, addr, recorder, slog.Default())
	})
	g.Go(func() error {
		defer stopServing()
		run, sweepErr = h.Sweep(gctx, src)
		return nil
	})

	if err := g.Wait(); err != nil {
		return run, errors.Join(sweepErr, err)
	}
	return run, sweepErr
}

func printFastest(c *cli.Context, run *core.Run, minAccuracy float64) {
	cell, ok := run.Fastest(minAccuracy)
	if !ok {
		fmt.Fprintf(c.App.ErrWriter, "\nNo cell reached accuracy %.3f\n", minAccuracy)
		return
	}
	fmt.Fprintf(c.App.ErrWriter, "\nFastest cell with accuracy >= %.3f: %s (accuracy %.4f, mean %s)\n",
		minAccuracy, cell.Params, cell.Accuracy, cell.MeanLatency)
}

func queryCommand(c *cli.Context) error {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return fmt.Errorf("query text is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("embedding-host") {
		cfg.Embedding.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.Embedding.Model = c.String("embedding-model")
	}
	if c.IsSet("embedding-token") {
		cfg.Embedding.Token = c.String("embedding-token")
	}

	aiConfig := cfg.EmbedderConfig()
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}
	embedder, err := newEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	params := core.SearchParams{
		Limit:        c.Int("limit"),
		Oversampling: c.Float64("oversampling"),
		Rescore:      c.Bool("rescore"),
		Exact:        c.Bool("exact"),
	}

	h, err := openHarness(c, cfg)
	if err != nil {
		return err
	}
	defer h.Close()

	hits, err := h.Probe(c.Context, embedder, text, params)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	fmt.Fprintf(c.App.ErrWriter, "Found %d results (%s)\n\n", len(hits), params)
	for i, hit := range hits {
		fmt.Fprintf(c.App.Writer, "%d. [%.4f] %d %s\n", i+1, hit.Score, hit.ID, truncate(hit.Text, 120))
	}
	return nil
}

func dropCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	h, err := openHarness(c, cfg)
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.Drop(c.Context); err != nil {
		return fmt.Errorf("drop failed: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "Collection %s dropped\n", cfg.Collection.Name)
	return nil
}

func configCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return cfg.Write(c.App.Writer)
}

func runsListCommand(c *cli.Context) error {
	return withRuns(c, func(runs storage.RunRepository) error {
		list, err := runs.ListRuns(c.Context, c.Int("limit"))
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(c.App.ErrWriter, "No runs recorded")
			return nil
		}
		return report.WriteRunList(c.App.Writer, list)
	})
}

func runsShowCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("run id is required")
	}
	format, err := report.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	return withRuns(c, func(runs storage.RunRepository) error {
		run, err := runs.GetRun(c.Context, id)
		if err != nil {
			return fmt.Errorf("run %s: %w", id, err)
		}
		if format == report.FormatTable {
			if err := report.WriteRunSummary(c.App.Writer, run); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer)
		}
		return report.Write(c.App.Writer, format, run.Cells)
	})
}

func runsDeleteCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("run id is required")
	}

	return withRuns(c, func(runs storage.RunRepository) error {
		if err := runs.DeleteRun(c.Context, id); err != nil {
			return fmt.Errorf("run %s: %w", id, err)
		}
		fmt.Fprintf(c.App.ErrWriter, "Run %s deleted\n", id)
		return nil
	})
}

func openHarness(c *cli.Context, cfg *config.Config, opts ...bqeval.Option) (*bqeval.Harness, error) {
	coll, err := openCollection(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	opts = append([]bqeval.Option{bqeval.WithProgress(c.App.ErrWriter)}, opts...)
	h, err := bqeval.NewHarness(cfg, coll, opts...)
	if err != nil {
		coll.Close()
		return nil, err
	}
	return h, nil
}

// withRuns opens the run database without connecting to qdrant.
func withRuns(c *cli.Context, fn func(storage.RunRepository) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	backend, err := badger.OpenBackend(cfg.DBPath, false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	runs, err := badger.NewRunRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer runs.Close()

	return fn(runs)
}

func parseLabels(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	labels := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid label %q: expected key=value", v)
		}
		labels[key] = strings.TrimSpace(value)
	}
	return labels, nil
}

func truncate(s string, n int) string {
	runes := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
