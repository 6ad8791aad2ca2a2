// Package linsolve defines the direct linear-solver collaborator used by
// the DAE core: factorize a CSR matrix and solve against one right-hand
// side. The core only needs success/failure and a solution vector; any
// external sparse direct solver can sit behind the interface.
package linsolve

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pflow-xyz/go-dae/sparse"
)

// ErrSingular reports an iteration matrix the solver could not factorize
// or whose solution is numerically unusable.
var ErrSingular = errors.New("linsolve: singular iteration matrix")

// Solver factorizes a and solves a*x = b, returning the solution vector.
// Implementations are free to cache factorizations across calls that
// reuse the same matrix.
type Solver interface {
	FactorizeAndSolve(a *sparse.Matrix, b []float64) ([]float64, error)
}

// DenseLU is the default Solver: LU with partial pivoting on a dense
// copy of the matrix. It keeps the factorization of the most recently
// seen matrix, so the repeated solves of a modified-Newton iteration
// factorize only once per assembled matrix. Suitable for small to
// moderate problem sizes; swap in a sparse direct solver for large ones.
type DenseLU struct {
	last *sparse.Matrix
	lu   mat.LU
}

// NewDenseLU returns a DenseLU with an empty factorization cache.
func NewDenseLU() *DenseLU { return &DenseLU{} }

// FactorizeAndSolve implements Solver.
func (d *DenseLU) FactorizeAndSolve(a *sparse.Matrix, b []float64) ([]float64, error) {
	n := a.Dim()
	if len(b) != n {
		return nil, errors.New("linsolve: right-hand side length mismatch")
	}
	if a != d.last {
		dense := mat.NewDense(n, n, nil)
		for r := 0; r < n; r++ {
			cols, vals := a.Row(r)
			for i, c := range cols {
				dense.Set(r, c, vals[i])
			}
		}
		d.lu.Factorize(dense)
		d.last = a
	}
	var x mat.VecDense
	err := d.lu.SolveVecTo(&x, false, mat.NewVecDense(n, b))
	if err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 0) || math.IsNaN(float64(cond)) {
			d.last = nil
			return nil, ErrSingular
		}
		// Near-singular: gonum still returns a solution, vetted below.
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := x.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			d.last = nil
			return nil, ErrSingular
		}
		out[i] = v
	}
	return out, nil
}
