package dae

import (
	"math"

	"github.com/pflow-xyz/go-dae/sparse"
)

// fdDropTol is the magnitude below which a finite-difference entry is
// treated as structural zero and dropped from the sparse pattern.
const fdDropTol = 1e-13

// EstimatedJacobian approximates df/dx by one-sided finite differences
// against an RHS provider. Each state component i is perturbed by
// max(|x_i|, 1) * tol and the RHS re-evaluated, so a full evaluation
// costs n+1 RHS calls. It is the default when no analytical Jacobian is
// supplied; an analytical provider is always preferable for large
// systems.
type EstimatedJacobian struct {
	rhs RHS
	n   int
	tol float64
}

// NewEstimatedJacobian wraps rhs for a problem of dimension n. A
// non-positive tol selects sqrt of the machine epsilon.
func NewEstimatedJacobian(rhs RHS, n int, tol float64) *EstimatedJacobian {
	if tol <= 0 {
		tol = math.Sqrt(machineEpsilon)
	}
	return &EstimatedJacobian{rhs: rhs, n: n, tol: tol}
}

var machineEpsilon = math.Nextafter(1, 2) - 1

// Evaluate implements Jacobian. The result is deterministic: identical
// (x, t) and perturbation tolerance yield identical matrices.
func (j *EstimatedJacobian) Evaluate(x []float64, t float64) (*sparse.Matrix, error) {
	n := j.n
	f0 := make([]float64, n)
	f1 := make([]float64, n)
	xp := append([]float64(nil), x...)
	j.rhs.Evaluate(f0, xp, t)

	rowCols := make([][]int, n)
	rowVals := make([][]float64, n)
	for col := 0; col < n; col++ {
		dx := math.Max(math.Abs(xp[col]), 1) * j.tol
		saved := xp[col]
		xp[col] = saved + dx
		j.rhs.Evaluate(f1, xp, t)
		xp[col] = saved
		for row := 0; row < n; row++ {
			v := (f1[row] - f0[row]) / dx
			if math.Abs(v) >= fdDropTol {
				rowCols[row] = append(rowCols[row], col)
				rowVals[row] = append(rowVals[row], v)
			}
		}
	}

	b := sparse.NewBuilder(n, n)
	for row := 0; row < n; row++ {
		for i, col := range rowCols[row] {
			b.Append(row, col, rowVals[row][i])
		}
	}
	return b.Finalize()
}
