package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID identifies a point in a collection.
// It is either the row position in a dataset or derived from a string id.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// PayloadTextKey is the payload field holding a point's source text.
const PayloadTextKey = "text"

// Record is a single dataset row destined for a collection.
type Record struct {
	ID      ID
	Text    string
	Vector  []float32
	Payload map[string]string // Extra payload fields stored next to the text
}

// SearchParams controls a single quantized search call.
type SearchParams struct {
	Limit int

	// Oversampling multiplies Limit to size the candidate set fetched from
	// the quantized index. Zero leaves the service default in place.
	Oversampling float64

	// Rescore re-ranks candidates with the original vectors.
	Rescore bool

	// Exact bypasses the index entirely and runs a full scan.
	Exact bool
}

func (p SearchParams) String() string {
	return fmt.Sprintf("limit=%d oversampling=%.1f rescore=%t", p.Limit, p.Oversampling, p.Rescore)
}

// Hit is a single scored search result.
type Hit struct {
	ID    ID
	Score float32
	Text  string
}

// CellResult aggregates all queries evaluated with one SearchParams combination.
type CellResult struct {
	Params      SearchParams
	Queries     int // Queries attempted
	Found       int // Queries whose expected text was returned
	Errors      int // Queries whose search call failed
	Accuracy    float64
	MeanLatency time.Duration
	P50Latency  time.Duration
	P95Latency  time.Duration
	P99Latency  time.Duration
	MaxLatency  time.Duration
}

// Run is one complete parameter sweep over a collection.
type Run struct {
	ID          string
	Collection  string
	Dataset     string
	Seed        int64
	NoiseStdDev float64
	QueryCount  int
	StartedAt   time.Time
	FinishedAt  time.Time
	Labels      map[string]string // Free-form annotations (e.g. "host", "note")
	Cells       []CellResult
}

// Duration returns the wall time spent on the sweep.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Fastest returns the cell with the lowest mean latency whose accuracy is
// at least minAccuracy. The second return value is false when no cell qualifies.
func (r *Run) Fastest(minAccuracy float64) (CellResult, bool) {
	var (
		best  CellResult
		found bool
	)
	for _, cell := range r.Cells {
		if cell.Accuracy < minAccuracy {
			continue
		}
		if !found || cell.MeanLatency < best.MeanLatency {
			best = cell
			found = true
		}
	}
	return best, found
}
