package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/afg1/bqeval/core"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRows(n, dim int) []byte {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		vec := make([]string, dim)
		for j := range vec {
			vec[j] = fmt.Sprintf("%.3f", float64(i+j)/10)
		}
		fmt.Fprintf(&buf, `{"_id":"<dbpedia:Item_%d>","title":"Item %d","text":"text %d","openai":[%s]}`+"\n",
			i, i, i, strings.Join(vec, ","))
	}
	return buf.Bytes()
}

func collect(t *testing.T, r *Reader, batchSize int) [][]*core.Record {
	t.Helper()
	var batches [][]*core.Record
	err := r.ForEach(context.Background(), batchSize, func(batch []*core.Record) error {
		batches = append(batches, batch)
		return nil
	})
	require.NoError(t, err)
	return batches
}

func TestForEach_Batches(t *testing.T) {
	r, err := FromBytes("rows", makeRows(7, 4))
	require.NoError(t, err)

	batches := collect(t, r, 3)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[1], 3)
	assert.Len(t, batches[2], 1)

	first := batches[0][0]
	assert.Equal(t, core.ID(0), first.ID, "row position is the default id")
	assert.Equal(t, "text 0", first.Text)
	assert.Equal(t, []float32{0, 0.1, 0.2, 0.3}, first.Vector)
	assert.Equal(t, core.ID(6), batches[2][0].ID)
}

func TestForEach_CustomFields(t *testing.T) {
	data := []byte(`{"id": 42, "doc": {"body": "nested \"quoted\" text"}, "emb": [1, 2.5, -3e-1], "title": "T"}` + "\n")
	r, err := FromBytes("custom", data,
		WithIDField("id"),
		WithTextField("doc.body"),
		WithVectorField("emb"),
		WithPayloadFields("title", "missing"),
	)
	require.NoError(t, err)

	batches := collect(t, r, 10)
	require.Len(t, batches, 1)
	record := batches[0][0]
	assert.Equal(t, core.ID(42), record.ID)
	assert.Equal(t, `nested "quoted" text`, record.Text)
	assert.InDeltaSlice(t, []float32{1, 2.5, -0.3}, record.Vector, 1e-6)
	assert.Equal(t, map[string]string{"title": "T"}, record.Payload)
}

func TestForEach_StringIDs(t *testing.T) {
	r, err := FromBytes("rows", makeRows(2, 2), WithIDField("_id"))
	require.NoError(t, err)

	batches := collect(t, r, 10)
	require.Len(t, batches[0], 2)
	assert.Equal(t, core.IDFromContent("<dbpedia:Item_0>"), batches[0][0].ID)
	assert.Equal(t, core.IDFromContent("<dbpedia:Item_1>"), batches[0][1].ID)
}

func TestForEach_SkipsBlankLines(t *testing.T) {
	data := append([]byte("\n   \n"), makeRows(2, 3)...)
	data = append(data, '\n', '\n')
	r, err := FromBytes("rows", data)
	require.NoError(t, err)

	batches := collect(t, r, 10)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 2)
}

func TestForEach_Limit(t *testing.T) {
	r, err := FromBytes("rows", makeRows(10, 2), WithLimit(4))
	require.NoError(t, err)

	total, err := r.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestForEach_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		opts    []Option
		wantErr error
		wantMsg string
	}{
		{
			name:    "missing vector",
			data:    `{"text":"a"}`,
			wantErr: ErrMissingField,
			wantMsg: "rows:1",
		},
		{
			name:    "missing text",
			data:    `{"openai":[1,2]}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "vector is not an array",
			data:    `{"text":"a","openai":"nope"}`,
			wantErr: ErrMalformedRow,
		},
		{
			name:    "non numeric element",
			data:    `{"text":"a","openai":[1,"x"]}`,
			wantErr: ErrMalformedRow,
		},
		{
			name:    "dimension mismatch",
			data:    "{\"text\":\"a\",\"openai\":[1,2]}\n{\"text\":\"b\",\"openai\":[1,2,3]}",
			wantErr: ErrDimensionMismatch,
			wantMsg: "rows:2",
		},
		{
			name:    "enforced dimension",
			data:    `{"text":"a","openai":[1,2]}`,
			opts:    []Option{WithDimension(3)},
			wantErr: ErrDimensionMismatch,
		},
		{
			name:    "empty vector",
			data:    `{"text":"a","openai":[]}`,
			wantErr: ErrMissingField,
			wantMsg: "openai",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := FromBytes("rows", []byte(tt.data), tt.opts...)
			require.NoError(t, err)

			err = r.ForEach(context.Background(), 10, func([]*core.Record) error { return nil })
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestForEach_EmptyVector(t *testing.T) {
	r, err := FromBytes("rows", []byte("{\"text\":\"a\",\"openai\":[1]}\n{\"text\":\"b\",\"openai\":[]}\n"))
	require.NoError(t, err)

	err = r.ForEach(context.Background(), 10, func([]*core.Record) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.ErrorIs(t, err, core.ErrEmptyVector)
	assert.Contains(t, err.Error(), "rows:2")
}

func TestForEach_InvalidBatchSize(t *testing.T) {
	r, err := FromBytes("rows", makeRows(1, 2))
	require.NoError(t, err)

	err = r.ForEach(context.Background(), 0, func([]*core.Record) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
}

func TestForEach_CallbackError(t *testing.T) {
	r, err := FromBytes("rows", makeRows(10, 2))
	require.NoError(t, err)

	boom := errors.New("boom")
	calls := 0
	err = r.ForEach(context.Background(), 2, func([]*core.Record) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "should stop on first error")
}

func TestForEach_ContextCanceled(t *testing.T) {
	r, err := FromBytes("rows", makeRows(10, 2))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err = r.ForEach(ctx, 2, func([]*core.Record) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestSample(t *testing.T) {
	r, err := FromBytes("rows", makeRows(10, 2))
	require.NoError(t, err)
	ctx := context.Background()

	sample, err := r.Sample(ctx, 3)
	require.NoError(t, err)
	require.Len(t, sample, 3)
	assert.Equal(t, "text 2", sample[2].Text)

	all, err := r.Sample(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, all, 10, "sample larger than dataset returns every row")

	none, err := r.Sample(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOpen_Compressed(t *testing.T) {
	rows := makeRows(5, 3)
	dir := t.TempDir()

	write := func(name string, encode func(*bytes.Buffer)) string {
		var buf bytes.Buffer
		encode(&buf)
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
		return path
	}

	paths := map[string]string{
		"plain": write("rows.jsonl", func(b *bytes.Buffer) { b.Write(rows) }),
		"gzip": write("rows.jsonl.gz", func(b *bytes.Buffer) {
			w := gzip.NewWriter(b)
			_, err := w.Write(rows)
			require.NoError(t, err)
			require.NoError(t, w.Close())
		}),
		"zstd": write("rows.jsonl.zst", func(b *bytes.Buffer) {
			w, err := zstd.NewWriter(b)
			require.NoError(t, err)
			_, err = w.Write(rows)
			require.NoError(t, err)
			require.NoError(t, w.Close())
		}),
		"lz4": write("rows.jsonl.lz4", func(b *bytes.Buffer) {
			w := lz4.NewWriter(b)
			_, err := w.Write(rows)
			require.NoError(t, err)
			require.NoError(t, w.Close())
		}),
	}

	for name, path := range paths {
		t.Run(name, func(t *testing.T) {
			r, err := Open(path)
			require.NoError(t, err)
			assert.Equal(t, path, r.Name())

			total, err := r.Count(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 5, total)
		})
	}
}

func TestOpen_MissingFile(t *testing.T) {
	r, err := Open(filepath.Join(t.TempDir(), "missing.jsonl"))
	require.NoError(t, err, "open is lazy")

	_, err = r.Count(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDetectCompression(t *testing.T) {
	assert.Equal(t, CompressionNone, DetectCompression("a.jsonl"))
	assert.Equal(t, CompressionGzip, DetectCompression("a.jsonl.GZ"))
	assert.Equal(t, CompressionZstd, DetectCompression("a.jsonl.zst"))
	assert.Equal(t, CompressionLZ4, DetectCompression("a.jsonl.lz4"))
}

func TestOptions_Invalid(t *testing.T) {
	_, err := FromBytes("x", nil, WithTextField(""))
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = FromBytes("x", nil, WithVectorField(""))
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = FromBytes("x", nil, WithDimension(-1))
	assert.Error(t, err)
}
