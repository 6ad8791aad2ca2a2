// Package dae implements an implicit variable-order, variable-step
// integrator for systems of differential-algebraic equations in
// mass-matrix form M*x'(t) = f(x,t), where M may be singular. The method
// is the Backward Differentiation Formula (orders 1 through 6) with a
// modified-Newton corrector on the sparse linearized system c*M - J.
package dae

import (
	"github.com/pflow-xyz/go-dae/sparse"
)

// RHS evaluates the right-hand side f(x,t) of the system, writing the
// result into f (len(f) == len(x)). The integrator calls it from every
// Newton iteration and assumes it is free of observable side effects.
type RHS interface {
	Evaluate(f, x []float64, t float64)
}

// RHSFunc adapts a plain function to the RHS interface.
type RHSFunc func(f, x []float64, t float64)

// Evaluate implements RHS.
func (fn RHSFunc) Evaluate(f, x []float64, t float64) { fn(f, x, t) }

// Jacobian evaluates df/dx at (x, t) in sparse form. Either supply an
// analytical implementation or let the solver fall back to
// NewEstimatedJacobian, which builds the matrix by finite differences
// against the RHS.
type Jacobian interface {
	Evaluate(x []float64, t float64) (*sparse.Matrix, error)
}

// JacobianFunc adapts a plain function to the Jacobian interface.
type JacobianFunc func(x []float64, t float64) (*sparse.Matrix, error)

// Evaluate implements Jacobian.
func (fn JacobianFunc) Evaluate(x []float64, t float64) (*sparse.Matrix, error) {
	return fn(x, t)
}

// MassMatrix supplies the time- and state-independent mass matrix.
// Evaluate is called exactly once at integration start and the result is
// cached for the whole run. Zero rows of the matrix mark algebraic
// constraint equations.
type MassMatrix interface {
	Evaluate() (*sparse.Matrix, error)
}

// MassMatrixFunc adapts a plain function to the MassMatrix interface.
type MassMatrixFunc func() (*sparse.Matrix, error)

// Evaluate implements MassMatrix.
func (fn MassMatrixFunc) Evaluate() (*sparse.Matrix, error) { return fn() }

// IdentityMass returns a MassMatrix provider for the n-by-n identity,
// turning the DAE solver into a stiff ODE solver.
func IdentityMass(n int) MassMatrix {
	return MassMatrixFunc(func() (*sparse.Matrix, error) {
		return sparse.Identity(n), nil
	})
}

// DiagonalMass returns a MassMatrix provider with d on the diagonal.
// Zero entries of d declare algebraic rows.
func DiagonalMass(d []float64) MassMatrix {
	diag := append([]float64(nil), d...)
	return MassMatrixFunc(func() (*sparse.Matrix, error) {
		return sparse.Diagonal(diag), nil
	})
}

// ObserverFunc is invoked once per accepted step, after time has
// advanced, with the current state and time. It is side-effect only: the
// integrator ignores any mutation of x, and observers should treat x as
// read-only since it aliases solver-owned storage.
type ObserverFunc func(x []float64, t float64)
