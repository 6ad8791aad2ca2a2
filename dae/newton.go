package dae

import (
	"fmt"
	"math"

	"github.com/pflow-xyz/go-dae/sparse"
)

// correct runs the modified-Newton iteration for one step attempt. x is
// seeded with the predictor and corrected in place toward the solution
// of M*(d0*x + histSum) = f(x, t). The Jacobian is evaluated once at the
// predictor and the iteration matrix d0*M - J held fixed across
// iterations, so the linear solver can reuse one factorization.
//
// The returned error is one of the recoverable step failures
// (ErrLinearSolveFailed, ErrNewtonDiverged, ErrNewtonMaxIter), or a
// fatal provider error.
func (s *Solver) correct(x []float64, t float64, d0 float64, histSum []float64, mass *sparse.Matrix, rhs RHS, jac Jacobian, sol *Solution) (int, error) {
	n := len(x)

	sol.JacCalls++
	jm, err := jac.Evaluate(x, t)
	if err != nil {
		return 0, fmt.Errorf("dae: jacobian evaluation: %w", err)
	}
	if jm.Dim() != n {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrJacobianSizeMismatch, jm.Dim(), n)
	}
	a, err := sparse.AddScaled(d0, mass, -1, jm)
	if err != nil {
		return 0, fmt.Errorf("dae: iteration matrix assembly: %w", err)
	}

	f := make([]float64, n)
	u := make([]float64, n)
	r := make([]float64, n)
	prevNorm := math.Inf(1)
	rising := 0

	for m := 1; m <= s.opt.MaxNewtonIters; m++ {
		rhs.Evaluate(f, x, t)
		for i := range u {
			u[i] = d0*x[i] + histSum[i]
		}
		mass.MulVec(r, u)
		for i := range r {
			r[i] -= f[i]
		}

		sol.LinearSolves++
		delta, err := s.Linear.FactorizeAndSolve(a, r)
		if err != nil {
			return m, fmt.Errorf("%w: %v", ErrLinearSolveFailed, err)
		}
		for i := range x {
			x[i] -= delta[i]
		}

		norm := wrmsNorm(delta, x, nil, s.opt.AbsTol, s.opt.RelTol)
		if norm <= s.opt.NewtonTol {
			return m, nil
		}
		if norm > prevNorm {
			rising++
			if rising >= 2 {
				return m, fmt.Errorf("%w: update norm grew twice in a row (%.3g)", ErrNewtonDiverged, norm)
			}
		} else {
			rising = 0
		}
		prevNorm = norm
	}
	return s.opt.MaxNewtonIters, fmt.Errorf("%w: no convergence in %d iterations", ErrNewtonMaxIter, s.opt.MaxNewtonIters)
}

// wrmsNorm is the weighted root-mean-square norm with per-component
// scale atol + rtol*|x_i|. A non-nil mask restricts the norm to the
// selected components; if the mask selects none, the norm is zero.
func wrmsNorm(v, x []float64, mask []bool, atol, rtol float64) float64 {
	sum := 0.0
	count := 0
	for i := range v {
		if mask != nil && !mask[i] {
			continue
		}
		w := atol + rtol*math.Abs(x[i])
		e := v[i] / w
		sum += e * e
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(count))
}
