// Package noise perturbs query vectors with seeded Gaussian noise.
//
// Using a dataset row's own vector as the query would make every search a
// trivial exact match. Adding a small amount of noise keeps the expected row
// close to the query while forcing the index to actually search.
package noise

import (
	"fmt"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultStdDev is the standard deviation used for query noise.
const DefaultStdDev = 0.001

// DefaultSeed seeds every random source in a sweep.
const DefaultSeed int64 = 37

// Perturber adds N(0, stddev) noise to vectors.
// It is safe for concurrent use; calls are serialized so that the sequence of
// perturbations stays deterministic for a given seed and call order.
type Perturber struct {
	mu     sync.Mutex
	seed   int64
	stddev float64
	normal distuv.Normal
}

// NewPerturber creates a Perturber drawing from a source seeded with seed.
func NewPerturber(seed int64, stddev float64) (*Perturber, error) {
	if stddev < 0 {
		return nil, fmt.Errorf("noise stddev must not be negative (got %g)", stddev)
	}
	return &Perturber{
		seed:   seed,
		stddev: stddev,
		normal: distuv.Normal{
			Mu:    0,
			Sigma: stddev,
			Src:   rand.NewSource(uint64(seed)),
		},
	}, nil
}

// Seed returns the seed the Perturber was created with.
func (p *Perturber) Seed() int64 {
	return p.seed
}

// StdDev returns the noise standard deviation.
func (p *Perturber) StdDev() float64 {
	return p.stddev
}

// Perturb returns a new vector with noise added to every component.
// The input vector is never modified.
func (p *Perturber) Perturb(v []float32) []float32 {
	out := make([]float32, len(v))
	if p.stddev == 0 {
		copy(out, v)
		return out
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for i, x := range v {
		out[i] = x + float32(p.normal.Rand())
	}
	return out
}
