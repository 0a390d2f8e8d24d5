package mock

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"sort"
	"sync"
	"time"

	"github.com/afg1/bqeval/core"
	"github.com/afg1/bqeval/vectordb"
)

// MockCollection is an in-memory vectordb.Collection.
//
// It emulates binary quantization: candidates are ranked by the Hamming
// similarity of sign bits, limit*oversampling candidates are kept, and with
// rescore enabled they are re-ranked by the exact cosine similarity.
// Exact searches skip the quantized stage entirely.
type MockCollection struct {
	// SearchFunc, if set, replaces the default search.
	SearchFunc func(ctx context.Context, vector []float32, params core.SearchParams) ([]core.Hit, error)

	// UpsertFunc, if set, is called before the records are stored.
	// Returning an error rejects the batch.
	UpsertFunc func(ctx context.Context, records []*core.Record) error

	name string

	mu                sync.RWMutex
	exists            bool
	spec              vectordb.CollectionSpec
	points            map[core.ID]*point
	indexingThreshold uint64
	searchCalls       []core.SearchParams
	upsertCalls       int
	closed            bool
}

type point struct {
	record *core.Record
	code   []uint64
	norm   float64
}

// NewMockCollection creates an empty mock collection.
// Note: Returns concrete type to allow test assertions.
func NewMockCollection(name string) *MockCollection {
	return &MockCollection{
		name:   name,
		points: make(map[core.ID]*point),
	}
}

// Name returns the collection name.
func (m *MockCollection) Name() string {
	return m.name
}

// Create creates the collection.
func (m *MockCollection) Create(ctx context.Context, spec vectordb.CollectionSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.exists && !spec.Recreate {
		return fmt.Errorf("%w: %s", vectordb.ErrCollectionExists, m.name)
	}
	m.exists = true
	m.spec = spec
	m.indexingThreshold = spec.IndexingThreshold
	m.points = make(map[core.ID]*point)
	return nil
}

// Exists reports whether Create has been called.
func (m *MockCollection) Exists(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exists, nil
}

// Drop removes the collection and its points.
func (m *MockCollection) Drop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists = false
	m.points = make(map[core.ID]*point)
	return nil
}

// Upsert stores records, replacing points with the same ID.
func (m *MockCollection) Upsert(ctx context.Context, records []*core.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.UpsertFunc != nil {
		if err := m.UpsertFunc(ctx, records); err != nil {
			m.mu.Lock()
			m.upsertCalls++
			m.mu.Unlock()
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++

	if !m.exists {
		return fmt.Errorf("%w: %s", vectordb.ErrCollectionNotFound, m.name)
	}
	for _, r := range records {
		if len(r.Vector) != m.spec.Dimension {
			return fmt.Errorf("%w: record %d has %d dimensions, collection has %d",
				vectordb.ErrDimensionMismatch, r.ID, len(r.Vector), m.spec.Dimension)
		}
	}
	for _, r := range records {
		stored := *r
		stored.Vector = append([]float32(nil), r.Vector...)
		m.points[r.ID] = &point{
			record: &stored,
			code:   signBits(stored.Vector),
			norm:   norm(stored.Vector),
		}
	}
	return nil
}

// Search runs an emulated binary-quantized search.
func (m *MockCollection) Search(ctx context.Context, vector []float32, params core.SearchParams) ([]core.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := core.ValidateSearchParams(params); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.searchCalls = append(m.searchCalls, params)
	m.mu.Unlock()

	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, vector, params)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.exists {
		return nil, fmt.Errorf("%w: %s", vectordb.ErrCollectionNotFound, m.name)
	}
	if len(vector) != m.spec.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d",
			vectordb.ErrDimensionMismatch, len(vector), m.spec.Dimension)
	}

	qnorm := norm(vector)
	if params.Exact {
		scored := make([]core.Hit, 0, len(m.points))
		for _, p := range m.points {
			scored = append(scored, hit(p, cosine(vector, qnorm, p)))
		}
		return top(scored, params.Limit), nil
	}

	qbits := signBits(vector)
	candidates := make([]scoredPoint, 0, len(m.points))
	for _, p := range m.points {
		candidates = append(candidates, scoredPoint{p: p, score: hamming(qbits, p.code, m.spec.Dimension)})
	}
	sortScored(candidates)

	oversampling := params.Oversampling
	if oversampling < 1 {
		oversampling = 1
	}
	keep := int(math.Ceil(float64(params.Limit) * oversampling))
	if keep < len(candidates) {
		candidates = candidates[:keep]
	}

	hits := make([]core.Hit, 0, len(candidates))
	for _, c := range candidates {
		score := c.score
		if params.Rescore {
			score = cosine(vector, qnorm, c.p)
		}
		hits = append(hits, hit(c.p, score))
	}
	if !params.Rescore {
		if len(hits) > params.Limit {
			hits = hits[:params.Limit]
		}
		return hits, nil
	}
	return top(hits, params.Limit), nil
}

// Count returns the number of stored points.
func (m *MockCollection) Count(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.points)), nil
}

// EnableIndexing records the threshold.
func (m *MockCollection) EnableIndexing(ctx context.Context, threshold uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		return fmt.Errorf("%w: %s", vectordb.ErrCollectionNotFound, m.name)
	}
	m.indexingThreshold = threshold
	return nil
}

// WaitReady returns immediately; the mock is always optimized.
func (m *MockCollection) WaitReady(ctx context.Context, poll time.Duration) error {
	return ctx.Err()
}

// Close marks the collection closed.
func (m *MockCollection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SearchCalls returns the parameters of every Search call, in call order.
func (m *MockCollection) SearchCalls() []core.SearchParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.SearchParams(nil), m.searchCalls...)
}

// UpsertCalls returns how many times Upsert was called.
func (m *MockCollection) UpsertCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upsertCalls
}

// IndexingThreshold returns the last threshold set through Create or EnableIndexing.
func (m *MockCollection) IndexingThreshold() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexingThreshold
}

// Spec returns the spec the collection was created with.
func (m *MockCollection) Spec() vectordb.CollectionSpec {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.spec
}

// Closed reports whether Close was called.
func (m *MockCollection) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Reset clears recorded calls and injected behavior, keeping stored points.
func (m *MockCollection) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls = nil
	m.upsertCalls = 0
	m.SearchFunc = nil
	m.UpsertFunc = nil
}

type scoredPoint struct {
	p     *point
	score float32
}

// sortScored orders by score descending, breaking ties by ascending ID so
// results do not depend on map iteration order.
func sortScored(s []scoredPoint) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].score != s[j].score {
			return s[i].score > s[j].score
		}
		return s[i].p.record.ID < s[j].p.record.ID
	})
}

func top(hits []core.Hit, limit int) []core.Hit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func hit(p *point, score float32) core.Hit {
	return core.Hit{ID: p.record.ID, Score: score, Text: p.record.Text}
}

func signBits(v []float32) []uint64 {
	code := make([]uint64, (len(v)+63)/64)
	for i, x := range v {
		if x > 0 {
			code[i/64] |= 1 << (uint(i) % 64)
		}
	}
	return code
}

// hamming returns 1 - hamming_distance/dim.
func hamming(a, b []uint64, dim int) float32 {
	if dim == 0 {
		return 0
	}
	diff := 0
	for i := range a {
		diff += bits.OnesCount64(a[i] ^ b[i])
	}
	return 1 - float32(diff)/float32(dim)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(q []float32, qnorm float64, p *point) float32 {
	if qnorm == 0 || p.norm == 0 {
		return 0
	}
	var dot float64
	for i, x := range q {
		dot += float64(x) * float64(p.record.Vector[i])
	}
	return float32(dot / (qnorm * p.norm))
}

var _ vectordb.Collection = (*MockCollection)(nil)
