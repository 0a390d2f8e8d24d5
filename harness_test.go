package bqeval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/afg1/bqeval/ai/mock"
	"github.com/afg1/bqeval/config"
	"github.com/afg1/bqeval/core"
	"github.com/afg1/bqeval/dataset"
	"github.com/afg1/bqeval/eval"
	"github.com/afg1/bqeval/storage"
	"github.com/afg1/bqeval/storage/badger"
	"github.com/afg1/bqeval/vectordb/mock"
)

const testDim = 16

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Collection.Name = "harness-test"
	cfg.Collection.Dimension = testDim
	cfg.Upload.BatchSize = 7
	cfg.Upload.Workers = 2
	cfg.Sweep.Queries = 5
	cfg.Sweep.Oversampling = []float64{1, 2}
	cfg.Sweep.Rescore = []bool{true}
	cfg.Sweep.Limits = []int{1, 5}
	cfg.DBPath = filepath.Join(t.TempDir(), "runs")
	require.NoError(t, cfg.Validate())
	return cfg
}

// testRows builds a dataset whose vectors are the mock embedder's vectors
// for each row's text, so probing by text finds the row.
func testRows(n int) []byte {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("entity number %d", i)
		vec := aimock.DeterministicVector(text, testDim)
		parts := make([]string, len(vec))
		for j, v := range vec {
			parts[j] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		}
		fmt.Fprintf(&buf, `{"text":%q,"openai":[%s]}`+"\n", text, strings.Join(parts, ","))
	}
	return buf.Bytes()
}

func newTestHarness(t *testing.T, cfg *config.Config, coll *mock.MockCollection) (*Harness, storage.RunRepository) {
	t.Helper()
	runs, backend, err := badger.NewMemoryRunRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		runs.Close()
		backend.Close()
	})

	h, err := NewHarness(cfg, coll, WithRunRepository(runs), WithLabels(map[string]string{"host": "test"}))
	require.NoError(t, err)
	return h, runs
}

func loadRows(t *testing.T, h *Harness, cfg *config.Config, n int) *dataset.Reader {
	t.Helper()
	src, err := dataset.FromBytes("rows.jsonl", testRows(n), cfg.DatasetOptions()...)
	require.NoError(t, err)
	stats, err := h.Load(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, n, stats.Points)
	return src
}

func TestNewHarness(t *testing.T) {
	t.Run("requires config and collection", func(t *testing.T) {
		_, err := NewHarness(nil, mock.NewMockCollection("c"))
		assert.ErrorIs(t, err, ErrConfigRequired)

		_, err = NewHarness(config.DefaultConfig(), nil)
		assert.ErrorIs(t, err, ErrCollectionRequired)
	})

	t.Run("opens run store at db path on first use", func(t *testing.T) {
		cfg := testConfig(t)
		coll := mock.NewMockCollection(cfg.Collection.Name)

		h, err := NewHarness(cfg, coll)
		require.NoError(t, err)
		assert.Nil(t, h.backend)

		runs, err := h.Runs()
		require.NoError(t, err)
		assert.NotNil(t, runs)
		assert.NotNil(t, h.backend)

		again, err := h.Runs()
		require.NoError(t, err)
		assert.Same(t, runs, again)

		require.NoError(t, h.Close())
		assert.True(t, coll.Closed())
	})
}

func TestHarness_Load(t *testing.T) {
	cfg := testConfig(t)
	coll := mock.NewMockCollection(cfg.Collection.Name)
	h, _ := newTestHarness(t, cfg, coll)

	loadRows(t, h, cfg, 20)

	count, err := coll.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(20), count)
	assert.Equal(t, 3, coll.UpsertCalls())
	assert.Equal(t, uint64(20000), coll.IndexingThreshold(), "indexing re-enabled after upload")
	assert.Zero(t, coll.Spec().IndexingThreshold, "collection created with indexing disabled")
	assert.True(t, coll.Spec().AlwaysRAM)
}

func TestHarness_LoadExistingCollection(t *testing.T) {
	cfg := testConfig(t)
	coll := mock.NewMockCollection(cfg.Collection.Name)
	h, _ := newTestHarness(t, cfg, coll)
	loadRows(t, h, cfg, 3)

	src, err := dataset.FromBytes("rows.jsonl", testRows(3), cfg.DatasetOptions()...)
	require.NoError(t, err)
	_, err = h.Load(context.Background(), src)
	assert.Error(t, err)

	cfg.Collection.Recreate = true
	_, err = h.Load(context.Background(), src)
	assert.NoError(t, err)
}

func TestHarness_Sweep(t *testing.T) {
	cfg := testConfig(t)
	coll := mock.NewMockCollection(cfg.Collection.Name)
	h, runs := newTestHarness(t, cfg, coll)
	src := loadRows(t, h, cfg, 20)

	run, err := h.Sweep(context.Background(), src)
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "harness-test", run.Collection)
	assert.Equal(t, "rows.jsonl", run.Dataset)
	assert.Equal(t, 5, run.QueryCount)
	assert.Equal(t, int64(37), run.Seed)
	assert.Equal(t, "test", run.Labels["host"])
	assert.NotContains(t, run.Labels, LabelStatus)
	require.Len(t, run.Cells, 4)
	for _, cell := range run.Cells {
		assert.Equal(t, 5, cell.Queries)
		assert.Zero(t, cell.Errors)
		assert.GreaterOrEqual(t, cell.Accuracy, 0.8, cell.Params.String())
	}
	assert.Len(t, coll.SearchCalls(), 20)

	stored, err := runs.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Cells, stored.Cells)
}

func TestHarness_SweepIncomplete(t *testing.T) {
	cfg := testConfig(t)
	coll := mock.NewMockCollection(cfg.Collection.Name)
	h, runs := newTestHarness(t, cfg, coll)
	src := loadRows(t, h, cfg, 10)

	unavailable := errors.New("unavailable")
	coll.SearchFunc = func(_ context.Context, _ []float32, params core.SearchParams) ([]core.Hit, error) {
		if params.Limit == 5 {
			return nil, unavailable
		}
		return nil, nil
	}

	run, err := h.Sweep(context.Background(), src)
	require.Error(t, err)
	assert.ErrorIs(t, err, eval.ErrAllQueriesFailed)
	require.NotNil(t, run)
	require.Len(t, run.Cells, 1)
	assert.Equal(t, "incomplete", run.Labels[LabelStatus])
	assert.Zero(t, run.Cells[0].Accuracy)

	stored, err := runs.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, run.ID, stored[0].ID)
}

func TestHarness_SweepFailsBeforeFirstCell(t *testing.T) {
	cfg := testConfig(t)
	coll := mock.NewMockCollection(cfg.Collection.Name)
	h, runs := newTestHarness(t, cfg, coll)
	src := loadRows(t, h, cfg, 10)

	coll.SearchFunc = func(context.Context, []float32, core.SearchParams) ([]core.Hit, error) {
		return nil, errors.New("down")
	}

	run, err := h.Sweep(context.Background(), src)
	assert.ErrorIs(t, err, eval.ErrAllQueriesFailed)
	assert.Nil(t, run)

	stored, err := runs.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestHarness_Probe(t *testing.T) {
	cfg := testConfig(t)
	coll := mock.NewMockCollection(cfg.Collection.Name)
	h, _ := newTestHarness(t, cfg, coll)
	loadRows(t, h, cfg, 10)

	embedder := aimock.NewMockEmbedder(testDim)
	hits, err := h.Probe(context.Background(), embedder, "entity number 4", core.SearchParams{Limit: 3, Exact: true})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "entity number 4", hits[0].Text)
	assert.Equal(t, 1, embedder.CallCount())

	_, err = h.Probe(context.Background(), nil, "x", core.SearchParams{Limit: 1})
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = h.Probe(context.Background(), embedder, "x", core.SearchParams{Limit: 0})
	assert.Error(t, err)
}

func TestHarness_Drop(t *testing.T) {
	cfg := testConfig(t)
	coll := mock.NewMockCollection(cfg.Collection.Name)
	h, _ := newTestHarness(t, cfg, coll)
	loadRows(t, h, cfg, 3)

	require.NoError(t, h.Drop(context.Background()))
	exists, err := coll.Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
}
