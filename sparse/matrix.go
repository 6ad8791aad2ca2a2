// Package sparse implements the three-array (CSR) sparse matrix format
// shared by every provider contract in the DAE solver: a values array, a
// parallel column-index array, and a row-start offset array of length N+1.
package sparse

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed reports a matrix that violates the CSR invariants:
// wrong row-start length, column index out of range, or duplicate
// columns within a row.
var ErrMalformed = errors.New("sparse: malformed matrix")

// Matrix is an immutable square matrix in CSR form. Construct one with a
// Builder, or with the Identity/Diagonal helpers. Within each row the
// column indices are sorted ascending and unique.
type Matrix struct {
	n        int
	values   []float64
	cols     []int
	rowStart []int
}

// Dim returns the matrix dimension N.
func (m *Matrix) Dim() int { return m.n }

// NNZ returns the number of stored entries, including explicit zeros.
func (m *Matrix) NNZ() int { return len(m.values) }

// Row returns the stored entries of row r as parallel column/value slices.
// The returned slices alias the matrix storage and must not be modified.
func (m *Matrix) Row(r int) (cols []int, values []float64) {
	lo, hi := m.rowStart[r], m.rowStart[r+1]
	return m.cols[lo:hi], m.values[lo:hi]
}

// At returns the entry at (r, c), or zero if it is not stored.
func (m *Matrix) At(r, c int) float64 {
	cols, vals := m.Row(r)
	for i, col := range cols {
		if col == c {
			return vals[i]
		}
		if col > c {
			break
		}
	}
	return 0
}

// MulVec computes dst = M*x. dst and x must both have length Dim and
// must not alias each other.
func (m *Matrix) MulVec(dst, x []float64) {
	if len(dst) != m.n || len(x) != m.n {
		panic("sparse: dimension mismatch in MulVec")
	}
	for r := 0; r < m.n; r++ {
		sum := 0.0
		for i := m.rowStart[r]; i < m.rowStart[r+1]; i++ {
			sum += m.values[i] * x[m.cols[i]]
		}
		dst[r] = sum
	}
}

// RowEmpty reports whether row r has no stored entries or only explicit
// zeros. For a mass matrix such a row marks an algebraic constraint.
func (m *Matrix) RowEmpty(r int) bool {
	for i := m.rowStart[r]; i < m.rowStart[r+1]; i++ {
		if m.values[i] != 0 {
			return false
		}
	}
	return true
}

// Dense expands the matrix to a dense row-major representation.
// Intended for debugging and small test cases only.
func (m *Matrix) Dense() [][]float64 {
	out := make([][]float64, m.n)
	for r := 0; r < m.n; r++ {
		out[r] = make([]float64, m.n)
		for i := m.rowStart[r]; i < m.rowStart[r+1]; i++ {
			out[r][m.cols[i]] = m.values[i]
		}
	}
	return out
}

// String formats the matrix densely, one row per line.
func (m *Matrix) String() string {
	var sb strings.Builder
	for _, row := range m.Dense() {
		for c, v := range row {
			if c > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%g", v)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Identity returns the N-by-N identity matrix.
func Identity(n int) *Matrix {
	m := &Matrix{
		n:        n,
		values:   make([]float64, n),
		cols:     make([]int, n),
		rowStart: make([]int, n+1),
	}
	for i := 0; i < n; i++ {
		m.values[i] = 1
		m.cols[i] = i
		m.rowStart[i+1] = i + 1
	}
	return m
}

// Diagonal returns the square matrix with d on the diagonal. Zero entries
// of d are stored explicitly, so the sparsity pattern is always the full
// diagonal; a singular mass matrix is typically built this way.
func Diagonal(d []float64) *Matrix {
	n := len(d)
	m := &Matrix{
		n:        n,
		values:   append([]float64(nil), d...),
		cols:     make([]int, n),
		rowStart: make([]int, n+1),
	}
	for i := 0; i < n; i++ {
		m.cols[i] = i
		m.rowStart[i+1] = i + 1
	}
	return m
}
