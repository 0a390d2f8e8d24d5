package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afg1/bqeval/core"
	"github.com/afg1/bqeval/vectordb"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, 1536, cfg.Collection.Dimension)
	assert.Equal(t, "cosine", cfg.Collection.Distance)
	assert.True(t, cfg.Collection.OnDisk)
	assert.True(t, cfg.Collection.AlwaysRAM)
	assert.Equal(t, uint32(2), cfg.Collection.Shards)
	assert.Equal(t, uint64(5), cfg.Collection.SegmentNumber)
	assert.Equal(t, uint64(20000), cfg.Upload.IndexingThreshold)
	assert.Zero(t, cfg.Upload.Workers, "uploader picks its own pool size")
	assert.Equal(t, int64(37), cfg.Sweep.Seed)
	assert.Equal(t, 0.001, cfg.Sweep.NoiseStdDev)
	assert.Equal(t, 100, cfg.Sweep.Queries)
	assert.Equal(t, core.DefaultGrid(), cfg.Grid())
	assert.Equal(t, "openai", cfg.Dataset.VectorField)
	assert.Equal(t, "text", cfg.Dataset.TextField)
}

func TestParse_Overlay(t *testing.T) {
	doc := []byte(`
qdrant:
  host: qdrant.internal
collection:
  name: wiki
  dimension: 3072
upload:
  retry_delay: 2s
sweep:
  queries: 10
  oversampling: [1, 4]
  limits: [5]
`)
	cfg, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port, "unset keys keep defaults")
	assert.Equal(t, "wiki", cfg.Collection.Name)
	assert.Equal(t, 3072, cfg.Collection.Dimension)
	assert.Equal(t, 2*time.Second, cfg.Upload.RetryDelay)
	assert.Equal(t, 10, cfg.Sweep.Queries)
	assert.Equal(t, []float64{1, 4}, cfg.Sweep.Oversampling)
	assert.Equal(t, []bool{true, false}, cfg.Sweep.Rescore)
	assert.Equal(t, []int{5}, cfg.Sweep.Limits)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "sweep:\n  querys: 10\n"},
		{"malformed", "collection: [\n"},
		{"empty name", "collection:\n  name: \"\"\n"},
		{"bad distance", "collection:\n  distance: hamming\n"},
		{"zero queries", "sweep:\n  queries: 0\n"},
		{"bad oversampling", "sweep:\n  oversampling: [0.5]\n"},
		{"empty limits", "sweep:\n  limits: []\n"},
		{"negative noise", "sweep:\n  noise_stddev: -1\n"},
		{"negative workers", "upload:\n  workers: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_ValidationErrorsWrapSentinel(t *testing.T) {
	_, err := Parse([]byte("collection:\n  distance: hamming\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, vectordb.ErrUnknownDistance)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bqeval.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collection:\n  name: from-file\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Collection.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWrite_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Collection.Name = "roundtrip"
	cfg.Dataset.PayloadFields = []string{"title"}

	var buf bytes.Buffer
	require.NoError(t, cfg.Write(&buf))
	assert.Contains(t, buf.String(), "retry_delay: 500ms")

	parsed, err := Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, cfg, parsed)
}

func TestConversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Collection.Recreate = true
	cfg.Dataset.IDField = "_id"
	cfg.Dataset.Limit = 10

	spec := cfg.CollectionSpec()
	assert.Equal(t, vectordb.DistanceCosine, spec.Distance)
	assert.True(t, spec.Recreate)
	assert.Zero(t, spec.IndexingThreshold, "indexing is disabled at creation")

	conn := cfg.QdrantConnection()
	assert.Equal(t, "localhost", conn.Host)
	assert.Equal(t, 6334, conn.Port)

	assert.Len(t, cfg.DatasetOptions(), 5)

	emb := cfg.EmbedderConfig()
	assert.Equal(t, "https://api.openai.com/v1", emb.Host)
	assert.Equal(t, "text-embedding-ada-002", emb.Model)
}
