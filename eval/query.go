package eval

import (
	"fmt"

	"github.com/afg1/bqeval/core"
)

// Perturber adds noise to a query vector. It must return a new slice.
// *noise.Perturber satisfies it.
type Perturber interface {
	Perturb(v []float32) []float32
}

// Query is one evaluation probe: a (noisy) vector and the text that a
// correct search must return.
type Query struct {
	ID           core.ID
	ExpectedText string
	Vector       []float32
}

// PrepareQueries turns dataset records into queries, perturbing each vector
// in record order. A nil perturber leaves vectors unchanged (but copied).
func PrepareQueries(records []*core.Record, perturber Perturber) ([]Query, error) {
	if len(records) == 0 {
		return nil, ErrNoQueries
	}

	queries := make([]Query, 0, len(records))
	for i, r := range records {
		if err := core.ValidateRecord(r); err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}

		var vector []float32
		if perturber != nil {
			vector = perturber.Perturb(r.Vector)
		} else {
			vector = append([]float32(nil), r.Vector...)
		}

		queries = append(queries, Query{
			ID:           r.ID,
			ExpectedText: r.Text,
			Vector:       vector,
		})
	}
	return queries, nil
}

// containsText reports whether any hit carries exactly the expected text.
func containsText(hits []core.Hit, expected string) bool {
	for _, h := range hits {
		if h.Text == expected {
			return true
		}
	}
	return false
}
