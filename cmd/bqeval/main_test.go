package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/afg1/bqeval/ai"
	aimock "github.com/afg1/bqeval/ai/mock"
	"github.com/afg1/bqeval/config"
	"github.com/afg1/bqeval/vectordb"
	"github.com/afg1/bqeval/vectordb/mock"
)

const testDim = 8

type testEnv struct {
	coll       *mock.MockCollection
	configPath string
	dataPath   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	env := &testEnv{
		coll:       mock.NewMockCollection("cli-test"),
		configPath: filepath.Join(dir, "bqeval.yaml"),
		dataPath:   filepath.Join(dir, "rows.jsonl"),
	}

	doc := fmt.Sprintf(`collection:
  name: cli-test
  dimension: %d
upload:
  batch_size: 4
  workers: 2
sweep:
  queries: 4
  oversampling: [1, 2]
  rescore: [true]
  limits: [1, 3]
db_path: %s
`, testDim, filepath.Join(dir, "runs"))
	require.NoError(t, os.WriteFile(env.configPath, []byte(doc), 0o644))

	var rows bytes.Buffer
	for i := 0; i < 12; i++ {
		text := fmt.Sprintf("entity number %d", i)
		vec := aimock.DeterministicVector(text, testDim)
		parts := make([]string, len(vec))
		for j, v := range vec {
			parts[j] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		}
		fmt.Fprintf(&rows, `{"text":%q,"openai":[%s]}`+"\n", text, strings.Join(parts, ","))
	}
	require.NoError(t, os.WriteFile(env.dataPath, rows.Bytes(), 0o644))

	prevCollection, prevEmbedder := openCollection, newEmbedder
	openCollection = func(*config.Config) (vectordb.Collection, error) { return env.coll, nil }
	newEmbedder = func(*ai.Config) (ai.Embedder, error) { return aimock.NewMockEmbedder(testDim), nil }
	t.Cleanup(func() {
		openCollection, newEmbedder = prevCollection, prevEmbedder
	})

	return env
}

// run executes the CLI with the test config and returns stdout and stderr.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr

	full := append([]string{"bqeval", "--log-level", "error", "--config", e.configPath}, args...)
	err := app.RunContext(context.Background(), full)
	return stdout.String(), stderr.String(), err
}

func TestLoadConfig_Flags(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "name: cli-test")
	assert.Contains(t, out, "dimension: 8")

	var stdout bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &bytes.Buffer{}
	err = app.Run([]string{"bqeval", "--log-level", "error", "--config", env.configPath,
		"--collection", "override", "--qdrant-host", "qdrant.internal", "--qdrant-port", "7334", "config"})
	require.NoError(t, err)

	cfg, err := config.Parse(stdout.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.Collection.Name)
	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
	assert.Equal(t, 7334, cfg.Qdrant.Port)
	assert.Equal(t, 4, cfg.Sweep.Queries, "file values survive flag overrides")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run([]string{"bqeval", "--log-level", "error", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "config"})
	assert.Error(t, err)
}

func TestEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("sweep requires a dataset", func(t *testing.T) {
		_, _, err := env.run(t, "sweep")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dataset path is required")
	})

	t.Run("load uploads the dataset", func(t *testing.T) {
		_, stderr, err := env.run(t, "load", "--dataset", env.dataPath)
		require.NoError(t, err)
		assert.Contains(t, stderr, "Loaded 12 points in 3 batches")

		count, err := env.coll.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(12), count)
		assert.Equal(t, uint64(20000), env.coll.IndexingThreshold())
	})

	t.Run("load refuses an existing collection without recreate", func(t *testing.T) {
		_, _, err := env.run(t, "load", "--dataset", env.dataPath)
		require.Error(t, err)
		assert.ErrorIs(t, err, vectordb.ErrCollectionExists)

		_, _, err = env.run(t, "load", "--dataset", env.dataPath, "--recreate", "--no-wait")
		require.NoError(t, err)
	})

	var runID string
	t.Run("sweep prints the grid and stores the run", func(t *testing.T) {
		stdout, stderr, err := env.run(t, "sweep", "--dataset", env.dataPath, "--format", "csv", "--label", "host=ci")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 5)
		assert.True(t, strings.HasPrefix(lines[0], "oversampling,rescore,limit"))
		assert.Contains(t, stderr, "saved")
		assert.Len(t, env.coll.SearchCalls(), 16)
	})

	t.Run("runs list shows the run", func(t *testing.T) {
		stdout, _, err := env.run(t, "runs", "list")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[1], "cli-test")
		runID = strings.Fields(lines[1])[0]
	})

	t.Run("runs show prints cells", func(t *testing.T) {
		require.NotEmpty(t, runID)
		stdout, _, err := env.run(t, "runs", "show", "--format", "json", runID)
		require.NoError(t, err)

		var cells []map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &cells))
		assert.Len(t, cells, 4)

		stdout, _, err = env.run(t, "runs", "show", runID)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Label host:")
		assert.Contains(t, stdout, "accuracy")
	})

	t.Run("query embeds and searches", func(t *testing.T) {
		stdout, _, err := env.run(t, "query", "--exact", "--limit", "2", "entity", "number", "3")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "entity number 3")
	})

	t.Run("query requires text", func(t *testing.T) {
		_, _, err := env.run(t, "query")
		assert.Error(t, err)
	})

	t.Run("runs delete removes the run", func(t *testing.T) {
		require.NotEmpty(t, runID)
		_, _, err := env.run(t, "runs", "delete", runID)
		require.NoError(t, err)

		_, stderr, err := env.run(t, "runs", "list")
		require.NoError(t, err)
		assert.Contains(t, stderr, "No runs recorded")

		_, _, err = env.run(t, "runs", "show", runID)
		assert.Error(t, err)
	})

	t.Run("drop deletes the collection", func(t *testing.T) {
		_, _, err := env.run(t, "drop")
		require.NoError(t, err)

		exists, err := env.coll.Exists(ctx)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestSweepCommand_InvalidFlags(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, "sweep", "--dataset", env.dataPath, "--format", "xml")
	assert.Error(t, err)

	_, _, err = env.run(t, "sweep", "--dataset", env.dataPath, "--label", "novalue")
	assert.Error(t, err)

	_, _, err = env.run(t, "sweep", "--dataset", env.dataPath, "--queries", "0")
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "INFO"} {
		t.Run(level, func(t *testing.T) {
			app := &cli.App{
				Flags:  []cli.Flag{&cli.StringFlag{Name: "log-level", Value: "info"}},
				Before: setupLogger,
				Action: func(*cli.Context) error { return nil },
			}
			assert.NoError(t, app.Run([]string{"test", "--log-level", level}))
		})
	}

	app := &cli.App{
		Flags:  []cli.Flag{&cli.StringFlag{Name: "log-level", Value: "info"}},
		Before: setupLogger,
		Action: func(*cli.Context) error { return nil },
	}
	err := app.Run([]string{"test", "--log-level", "verbose"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestParseLabels(t *testing.T) {
	labels, err := parseLabels([]string{"host=bench-1", " note = first run "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"host": "bench-1", "note": "first run"}, labels)

	labels, err = parseLabels(nil)
	require.NoError(t, err)
	assert.Nil(t, labels)

	_, err = parseLabels([]string{"=value"})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "a b", truncate("a\nb", 10))
	assert.Equal(t, "ééé...", truncate("éééé", 3))
}
