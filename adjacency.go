package cbpt

import (
	"fmt"
	"slices"
	"sort"
)

// SparseAdjacency is a read-only boolean sparse matrix. The proximity graph
// and every submatrix extracted from it satisfy this interface; the physical
// encoding is an implementation detail.
type SparseAdjacency interface {
	// Rows returns the number of rows.
	Rows() int

	// Cols returns the number of columns.
	Cols() int

	// NNZ returns the number of true entries.
	NNZ() int

	// Has reports whether entry (i, j) is true.
	Has(i, j int) bool

	// Row returns the ascending column indices of the true entries in row i.
	// The returned slice is owned by the matrix and must not be modified.
	Row(i int) []int

	// SubSelect returns the submatrix formed by the given rows and columns,
	// re-indexed to 0..len(rows)-1 and 0..len(cols)-1. cols must not
	// contain duplicates.
	SubSelect(rows, cols []int) SparseAdjacency
}

// CSR is a compressed-row boolean matrix. Row i's columns are
// indices[indptr[i]:indptr[i+1]], sorted ascending.
type CSR struct {
	rows, cols int
	indptr     []int
	indices    []int
}

var _ SparseAdjacency = (*CSR)(nil)

func (m *CSR) Rows() int { return m.rows }
func (m *CSR) Cols() int { return m.cols }
func (m *CSR) NNZ() int  { return len(m.indices) }

func (m *CSR) Row(i int) []int {
	return m.indices[m.indptr[i]:m.indptr[i+1]]
}

func (m *CSR) Has(i, j int) bool {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		return false
	}
	row := m.Row(i)
	k := sort.SearchInts(row, j)
	return k < len(row) && row[k] == j
}

// SubSelect extracts rows × cols. Columns are mapped through a dense position
// table so each call costs O(Cols + entries in the selected rows).
func (m *CSR) SubSelect(rows, cols []int) SparseAdjacency {
	pos := make([]int, m.cols)
	for i := range pos {
		pos[i] = -1
	}
	for k, c := range cols {
		pos[c] = k
	}
	colsSorted := slices.IsSorted(cols)

	out := &CSR{
		rows:   len(rows),
		cols:   len(cols),
		indptr: make([]int, len(rows)+1),
	}
	for r, src := range rows {
		start := len(out.indices)
		for _, c := range m.Row(src) {
			if k := pos[c]; k >= 0 {
				out.indices = append(out.indices, k)
			}
		}
		if !colsSorted {
			slices.Sort(out.indices[start:])
		}
		out.indptr[r+1] = len(out.indices)
	}
	return out
}

// AdjacencyBuilder accumulates true entries of a square n×n boolean matrix
// in list-of-lists form and compacts them into a CSR on Build. Duplicate
// entries are allowed and collapse on Build.
type AdjacencyBuilder struct {
	n    int
	rows [][]int
}

// NewAdjacencyBuilder returns a builder for an n×n matrix.
func NewAdjacencyBuilder(n int) *AdjacencyBuilder {
	return &AdjacencyBuilder{n: n, rows: make([][]int, n)}
}

// Set marks entry (i, j) true.
func (b *AdjacencyBuilder) Set(i, j int) {
	if i < 0 || i >= b.n || j < 0 || j >= b.n {
		panic(fmt.Sprintf("cbpt: entry (%d, %d) out of range for %d×%d matrix", i, j, b.n, b.n))
	}
	b.rows[i] = append(b.rows[i], j)
}

// SetPairs marks every (rows[k], cols[k]) true.
func (b *AdjacencyBuilder) SetPairs(rows, cols []int) *AdjacencyBuilder {
	if len(rows) != len(cols) {
		panic(fmt.Sprintf("cbpt: SetPairs length mismatch: %d rows, %d cols", len(rows), len(cols)))
	}
	for k := range rows {
		b.Set(rows[k], cols[k])
	}
	return b
}

// TileDiagonal copies block onto the diagonal times times, the t-th copy at
// offset t*block.Rows(). block must be square and fit within the matrix.
func (b *AdjacencyBuilder) TileDiagonal(block SparseAdjacency, times int) *AdjacencyBuilder {
	bn := block.Rows()
	if block.Cols() != bn || bn*times > b.n {
		panic(fmt.Sprintf("cbpt: cannot tile %d×%d block %d times into %d×%d matrix",
			bn, block.Cols(), times, b.n, b.n))
	}
	for t := 0; t < times; t++ {
		off := t * bn
		for r := 0; r < bn; r++ {
			src := block.Row(r)
			dst := slices.Grow(b.rows[off+r], len(src))
			for _, c := range src {
				dst = append(dst, off+c)
			}
			b.rows[off+r] = dst
		}
	}
	return b
}

// SetDiagonalBand marks every in-range entry (i, i+offset) true. Positive
// offsets set the band above the main diagonal, negative ones below.
func (b *AdjacencyBuilder) SetDiagonalBand(offset int) *AdjacencyBuilder {
	lo, hi := 0, b.n-offset
	if offset < 0 {
		lo, hi = -offset, b.n
	}
	for i := lo; i < hi; i++ {
		b.rows[i] = append(b.rows[i], i+offset)
	}
	return b
}

// Build sorts and deduplicates each row and returns the compacted matrix.
// The builder must not be used afterwards.
func (b *AdjacencyBuilder) Build() *CSR {
	total := 0
	for i, row := range b.rows {
		slices.Sort(row)
		row = slices.Compact(row)
		b.rows[i] = row
		total += len(row)
	}

	m := &CSR{
		rows:    b.n,
		cols:    b.n,
		indptr:  make([]int, b.n+1),
		indices: make([]int, 0, total),
	}
	for i, row := range b.rows {
		m.indices = append(m.indices, row...)
		m.indptr[i+1] = len(m.indices)
		b.rows[i] = nil
	}
	return m
}

// AdjacencyFromPairs builds an n×n matrix with the given true entries.
func AdjacencyFromPairs(n int, rows, cols []int) *CSR {
	return NewAdjacencyBuilder(n).SetPairs(rows, cols).Build()
}
