package sparse

import (
	"fmt"
	"sort"
)

// Builder accumulates CSR entries row by row and produces an immutable
// Matrix on Finalize. Entries may be appended in any column order within
// a row; Finalize sorts each row and validates the CSR invariants.
// Rows must be appended in non-decreasing row order; skipped rows are
// closed as empty.
type Builder struct {
	n         int
	values    []float64
	cols      []int
	rowStart  []int
	row       int
	finalized bool
}

// NewBuilder creates a builder for an n-by-n matrix, reserving capacity
// for nnz entries (nnz may be zero if unknown).
func NewBuilder(n, nnz int) *Builder {
	return &Builder{
		n:        n,
		values:   make([]float64, 0, nnz),
		cols:     make([]int, 0, nnz),
		rowStart: make([]int, 1, n+1),
	}
}

// Append adds the entry (row, col) = v. Appending after Finalize is a
// programming error and panics.
func (b *Builder) Append(row, col int, v float64) {
	if b.finalized {
		panic("sparse: Append after Finalize")
	}
	if row < b.row || row >= b.n {
		// Out-of-range rows are caught in Finalize via the row counter.
		b.row = b.n + 1
		return
	}
	for b.row < row && b.row < b.n {
		b.rowStart = append(b.rowStart, len(b.values))
		b.row++
	}
	b.values = append(b.values, v)
	b.cols = append(b.cols, col)
}

// Finalize closes the row-start sequence, sorts each row by column and
// validates the invariants. The builder cannot be reused afterwards.
func (b *Builder) Finalize() (*Matrix, error) {
	if b.finalized {
		return nil, fmt.Errorf("%w: builder already finalized", ErrMalformed)
	}
	b.finalized = true
	if b.row > b.n {
		return nil, fmt.Errorf("%w: rows appended out of order or beyond dimension %d", ErrMalformed, b.n)
	}
	for b.row < b.n {
		b.rowStart = append(b.rowStart, len(b.values))
		b.row++
	}
	if len(b.rowStart) != b.n+1 {
		return nil, fmt.Errorf("%w: row offsets have length %d, want %d", ErrMalformed, len(b.rowStart), b.n+1)
	}
	m := &Matrix{n: b.n, values: b.values, cols: b.cols, rowStart: b.rowStart}
	for r := 0; r < m.n; r++ {
		lo, hi := m.rowStart[r], m.rowStart[r+1]
		sortRow(m.cols[lo:hi], m.values[lo:hi])
		for i := lo; i < hi; i++ {
			if m.cols[i] < 0 || m.cols[i] >= m.n {
				return nil, fmt.Errorf("%w: row %d has column index %d outside [0,%d)", ErrMalformed, r, m.cols[i], m.n)
			}
			if i > lo && m.cols[i] == m.cols[i-1] {
				return nil, fmt.Errorf("%w: row %d has duplicate column %d", ErrMalformed, r, m.cols[i])
			}
		}
	}
	return m, nil
}

// sortRow sorts the cols/vals pair of one row by column index.
func sortRow(cols []int, vals []float64) {
	if sort.IntsAreSorted(cols) {
		return
	}
	sort.Sort(&rowSorter{cols, vals})
}

type rowSorter struct {
	cols []int
	vals []float64
}

func (s *rowSorter) Len() int           { return len(s.cols) }
func (s *rowSorter) Less(i, j int) bool { return s.cols[i] < s.cols[j] }
func (s *rowSorter) Swap(i, j int) {
	s.cols[i], s.cols[j] = s.cols[j], s.cols[i]
	s.vals[i], s.vals[j] = s.vals[j], s.vals[i]
}
