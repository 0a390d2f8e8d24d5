package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ID
	}{
		{
			name:  "empty string",
			input: "",
		},
		{
			name:  "simple text",
			input: "hello world",
		},
		{
			name:  "dataset id",
			input: "<dbpedia:Albert_Einstein>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.input)
			id2 := IDFromContent(tt.input)
			assert.Equal(t, id1, id2, "same input should produce same ID")
		})
	}
}

func TestIDFromContent_Uniqueness(t *testing.T) {
	inputs := []string{
		"<dbpedia:Paris>",
		"<dbpedia:Berlin>",
		"<dbpedia:Rome>",
		"paris",
		"Paris",
	}

	ids := make(map[ID]string)
	for _, input := range inputs {
		id := IDFromContent(input)
		if existing, found := ids[id]; found {
			t.Errorf("collision: %q and %q produced same ID %d", input, existing, id)
		}
		ids[id] = input
	}
}

func TestSearchParamsString(t *testing.T) {
	params := SearchParams{Limit: 10, Oversampling: 2, Rescore: true}
	assert.Equal(t, "limit=10 oversampling=2.0 rescore=true", params.String())
}

func TestRunDuration(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	run := &Run{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}
	assert.Equal(t, 90*time.Second, run.Duration())

	unfinished := &Run{StartedAt: start}
	assert.Equal(t, time.Duration(0), unfinished.Duration())
}

func TestRunFastest(t *testing.T) {
	run := &Run{
		Cells: []CellResult{
			{Params: SearchParams{Limit: 10, Oversampling: 1}, Accuracy: 0.90, MeanLatency: 2 * time.Millisecond},
			{Params: SearchParams{Limit: 10, Oversampling: 2}, Accuracy: 0.97, MeanLatency: 5 * time.Millisecond},
			{Params: SearchParams{Limit: 10, Oversampling: 3}, Accuracy: 0.99, MeanLatency: 4 * time.Millisecond},
		},
	}

	t.Run("picks lowest latency above threshold", func(t *testing.T) {
		cell, ok := run.Fastest(0.95)
		assert.True(t, ok)
		assert.Equal(t, 3.0, cell.Params.Oversampling)
	})

	t.Run("no threshold", func(t *testing.T) {
		cell, ok := run.Fastest(0)
		assert.True(t, ok)
		assert.Equal(t, 1.0, cell.Params.Oversampling)
	})

	t.Run("nothing qualifies", func(t *testing.T) {
		_, ok := run.Fastest(1.0)
		assert.False(t, ok)
	})
}
