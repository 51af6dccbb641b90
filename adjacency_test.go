package cbpt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// denseOf expands a SparseAdjacency into a bool matrix for comparisons.
func denseOf(m SparseAdjacency) [][]bool {
	out := make([][]bool, m.Rows())
	for i := range out {
		out[i] = make([]bool, m.Cols())
		for _, j := range m.Row(i) {
			out[i][j] = true
		}
	}
	return out
}

func TestAdjacencyFromPairs_DeduplicatesAndSorts(t *testing.T) {
	m := AdjacencyFromPairs(3, []int{0, 0, 2, 0, 1}, []int{2, 1, 0, 2, 1})

	assert.Equal(t, 3, m.Rows())
	assert.Equal(t, 3, m.Cols())
	assert.Equal(t, 4, m.NNZ())
	assert.Equal(t, []int{1, 2}, m.Row(0))
	assert.Equal(t, []int{1}, m.Row(1))
	assert.Equal(t, []int{0}, m.Row(2))
	assert.True(t, m.Has(0, 2))
	assert.False(t, m.Has(2, 2))
	assert.False(t, m.Has(-1, 0))
	assert.False(t, m.Has(0, 3))
}

func TestAdjacencyBuilder_SetOutOfRangePanics(t *testing.T) {
	b := NewAdjacencyBuilder(2)
	assert.Panics(t, func() { b.Set(0, 2) })
	assert.Panics(t, func() { b.SetPairs([]int{0}, nil) })
}

func TestAdjacencyBuilder_TileDiagonal(t *testing.T) {
	block := AdjacencyFromPairs(2, []int{0, 0, 1}, []int{0, 1, 1})
	m := NewAdjacencyBuilder(6).TileDiagonal(block, 3).Build()

	want := [][]bool{
		{true, true, false, false, false, false},
		{false, true, false, false, false, false},
		{false, false, true, true, false, false},
		{false, false, false, true, false, false},
		{false, false, false, false, true, true},
		{false, false, false, false, false, true},
	}
	assert.Equal(t, want, denseOf(m))
}

func TestAdjacencyBuilder_TileDiagonalTooLargePanics(t *testing.T) {
	block := AdjacencyFromPairs(2, nil, nil)
	assert.Panics(t, func() { NewAdjacencyBuilder(3).TileDiagonal(block, 2) })
}

func TestAdjacencyBuilder_SetDiagonalBand(t *testing.T) {
	m := NewAdjacencyBuilder(4).SetDiagonalBand(2).SetDiagonalBand(-2).Build()

	assert.Equal(t, 4, m.NNZ())
	for _, e := range [][2]int{{0, 2}, {1, 3}, {2, 0}, {3, 1}} {
		assert.True(t, m.Has(e[0], e[1]), "missing %v", e)
	}

	// Offsets beyond the matrix are a no-op.
	empty := NewAdjacencyBuilder(3).SetDiagonalBand(3).SetDiagonalBand(-5).Build()
	assert.Equal(t, 0, empty.NNZ())
}

func TestCSR_SubSelect(t *testing.T) {
	// Path 0-1-2-3 plus self loops.
	m := AdjacencyFromPairs(4,
		[]int{0, 1, 1, 2, 2, 3, 0, 1, 2, 3},
		[]int{1, 0, 2, 1, 3, 2, 0, 1, 2, 3},
	)

	sub := m.SubSelect([]int{0, 2, 3}, []int{0, 2, 3})
	require.Equal(t, 3, sub.Rows())
	require.Equal(t, 3, sub.Cols())
	assert.Equal(t, []int{0}, sub.Row(0))
	assert.Equal(t, []int{1, 2}, sub.Row(1))
	assert.Equal(t, []int{1, 2}, sub.Row(2))
}

func TestCSR_SubSelectUnsortedAndRectangular(t *testing.T) {
	m := AdjacencyFromPairs(3, []int{0, 0, 1, 2}, []int{0, 2, 1, 0})

	sub := m.SubSelect([]int{0}, []int{2, 1, 0})
	require.Equal(t, 1, sub.Rows())
	require.Equal(t, 3, sub.Cols())
	// Row 0 has columns 0 and 2 → local 2 and 0.
	assert.Equal(t, []int{0, 2}, sub.Row(0))
}

func TestCSR_SubSelectEmpty(t *testing.T) {
	m := AdjacencyFromPairs(3, []int{0}, []int{0})
	sub := m.SubSelect(nil, nil)
	assert.Equal(t, 0, sub.Rows())
	assert.Equal(t, 0, sub.NNZ())
}
