package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGrid(t *testing.T) {
	grid := DefaultGrid()

	assert.Equal(t, []float64{1, 2, 3}, grid.Oversampling)
	assert.Equal(t, []bool{true, false}, grid.Rescore)
	assert.Equal(t, []int{1, 3, 10, 20, 50, 100}, grid.Limits)
	assert.Equal(t, 36, grid.Size())
	require.NoError(t, ValidateGrid(grid))
}

func TestGridCells_Order(t *testing.T) {
	grid := Grid{
		Oversampling: []float64{1, 2},
		Rescore:      []bool{true, false},
		Limits:       []int{5, 10},
	}

	cells := grid.Cells()
	require.Len(t, cells, 8)

	expected := []SearchParams{
		{Oversampling: 1, Rescore: true, Limit: 5},
		{Oversampling: 1, Rescore: true, Limit: 10},
		{Oversampling: 1, Rescore: false, Limit: 5},
		{Oversampling: 1, Rescore: false, Limit: 10},
		{Oversampling: 2, Rescore: true, Limit: 5},
		{Oversampling: 2, Rescore: true, Limit: 10},
		{Oversampling: 2, Rescore: false, Limit: 5},
		{Oversampling: 2, Rescore: false, Limit: 10},
	}
	assert.Equal(t, expected, cells)
}

func TestGridCells_Empty(t *testing.T) {
	grid := Grid{Oversampling: []float64{1}, Rescore: []bool{true}}
	assert.Empty(t, grid.Cells())
	assert.Equal(t, 0, grid.Size())
}
