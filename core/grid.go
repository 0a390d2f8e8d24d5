package core

// Grid is the set of search parameters swept by an evaluation.
type Grid struct {
	Oversampling []float64
	Rescore      []bool
	Limits       []int
}

// DefaultGrid returns the sweep used to compare binary quantization settings:
// oversampling 1-3, with and without rescoring, across typical result limits.
func DefaultGrid() Grid {
	return Grid{
		Oversampling: []float64{1.0, 2.0, 3.0},
		Rescore:      []bool{true, false},
		Limits:       []int{1, 3, 10, 20, 50, 100},
	}
}

// Size returns the number of cells in the grid.
func (g Grid) Size() int {
	return len(g.Oversampling) * len(g.Rescore) * len(g.Limits)
}

// Cells expands the grid into its cartesian product.
// Oversampling is the outermost loop and limit the innermost.
func (g Grid) Cells() []SearchParams {
	cells := make([]SearchParams, 0, g.Size())
	for _, oversampling := range g.Oversampling {
		for _, rescore := range g.Rescore {
			for _, limit := range g.Limits {
				cells = append(cells, SearchParams{
					Limit:        limit,
					Oversampling: oversampling,
					Rescore:      rescore,
				})
			}
		}
	}
	return cells
}
