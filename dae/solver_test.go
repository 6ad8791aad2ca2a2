package dae

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/pflow-xyz/go-dae/sparse"
)

// Robertson's stiff problem as a semi-explicit DAE, the classic DAE
// benchmark (compare MATLAB ode15s):
//
//	x0' = -0.04*x0 + 1e4*x1*x2
//	x1' =  0.04*x0 - 1e4*x1*x2 - 3e7*x1^2
//	 0  =  x0 + x1 + x2 - 1
func robertsonRHS(f, x []float64, _ float64) {
	f[0] = -0.04*x[0] + 1e4*x[1]*x[2]
	f[1] = 0.04*x[0] - 1e4*x[1]*x[2] - 3e7*x[1]*x[1]
	f[2] = x[0] + x[1] + x[2] - 1
}

func robertsonJac(x []float64, _ float64) (*sparse.Matrix, error) {
	b := sparse.NewBuilder(3, 9)
	b.Append(0, 0, -0.04)
	b.Append(0, 1, 1e4*x[2])
	b.Append(0, 2, 1e4*x[1])
	b.Append(1, 0, 0.04)
	b.Append(1, 1, -1e4*x[2]-6e7*x[1])
	b.Append(1, 2, -1e4*x[1])
	b.Append(2, 0, 1)
	b.Append(2, 1, 1)
	b.Append(2, 2, 1)
	return b.Finalize()
}

func robertsonOptions(t1 float64) *Options {
	opt := StiffOptions()
	opt.AbsTol = 1e-10
	opt.MaxStep = t1 / 100
	return opt
}

func TestRobertsonEndToEnd(t *testing.T) {
	const t1 = 4e6
	opt := robertsonOptions(t1)
	s := NewSolver(RHSFunc(robertsonRHS), JacobianFunc(robertsonJac), DiagonalMass([]float64{1, 1, 0}), opt)

	// Deliberately inconsistent initial guess: x2 should be 0.
	x := []float64{1, 0, 1e-3}

	var obsTimes []float64
	maxConservation := 0.0
	s.Observer = func(x []float64, tm float64) {
		obsTimes = append(obsTimes, tm)
		if c := math.Abs(x[0] + x[1] + x[2] - 1); c > maxConservation {
			maxConservation = c
		}
	}

	sol, err := s.Solve(x, t1)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if sol.Status != StatusSolved {
		t.Fatalf("Expected status %q, got %q", StatusSolved, sol.Status)
	}
	if sol.FinalTime() != t1 {
		t.Errorf("Final time %g, want exactly %g", sol.FinalTime(), t1)
	}
	for i := 1; i < len(sol.T); i++ {
		if sol.T[i] <= sol.T[i-1] {
			t.Fatalf("Time not strictly increasing at index %d: %g <= %g", i, sol.T[i], sol.T[i-1])
		}
	}

	// MATLAB ode15s reference solution.
	ref := []float64{5.1675e-4, 2.068e-9, 9.9948324e-1}
	relErr := 0.0
	for i := range ref {
		relErr += math.Abs(x[i]-ref[i]) / ref[i]
	}
	if relErr > 0.01 {
		t.Errorf("Total relative deviation from reference %g, want < 1%%; x=%v", relErr, x)
	}

	// The algebraic row is a conservation law and must hold at every
	// accepted step, including the first one after the inconsistent
	// initial guess.
	if maxConservation > 1e-10 {
		t.Errorf("Conservation residual %g exceeds 1e-10", maxConservation)
	}

	if len(obsTimes) != sol.Steps {
		t.Errorf("Observer called %d times for %d accepted steps", len(obsTimes), sol.Steps)
	}
	if sol.FinalOrder < 1 || sol.FinalOrder > opt.MaxOrder {
		t.Errorf("Final order %d outside [1,%d]", sol.FinalOrder, opt.MaxOrder)
	}
	// Solve mutates x in place to the final state.
	final := sol.FinalState()
	for i := range x {
		if x[i] != final[i] {
			t.Errorf("x[%d]=%g differs from trajectory final state %g", i, x[i], final[i])
		}
	}
}

func TestRobertsonEstimatedJacobian(t *testing.T) {
	const t1 = 400 // through the fast transient
	opt := robertsonOptions(t1)
	s := NewSolver(RHSFunc(robertsonRHS), nil, DiagonalMass([]float64{1, 1, 0}), opt)
	x := []float64{1, 0, 1e-3}
	sol, err := s.Solve(x, t1)
	if err != nil {
		t.Fatalf("Solve with estimated Jacobian failed: %v", err)
	}
	if c := math.Abs(x[0] + x[1] + x[2] - 1); c > 1e-10 {
		t.Errorf("Conservation residual %g exceeds 1e-10", c)
	}
	if sol.RHSCalls <= sol.JacCalls*3 {
		t.Errorf("Finite differencing should cost extra RHS calls: %d rhs, %d jacobians", sol.RHSCalls, sol.JacCalls)
	}
}

// A purely algebraic row with an inconsistent initial guess must be
// pulled onto the constraint within the first accepted step.
func TestInconsistentAlgebraicInitialization(t *testing.T) {
	rhs := RHSFunc(func(f, x []float64, _ float64) {
		f[0] = -x[0]
		f[1] = x[0] - x[1]
	})
	s := NewSolver(rhs, nil, DiagonalMass([]float64{1, 0}), StiffOptions())

	var firstResidual float64
	first := true
	s.Observer = func(x []float64, _ float64) {
		if first {
			firstResidual = math.Abs(x[0] - x[1])
			first = false
		}
	}

	x := []float64{1, 0.5} // constraint wants x1 == x0
	sol, err := s.Solve(x, 1.0)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if first {
		t.Fatal("No step was accepted")
	}
	if firstResidual > 1e-8 {
		t.Errorf("Constraint residual %g after first accepted step, want <= 1e-8", firstResidual)
	}
	want := math.Exp(-1)
	if math.Abs(x[0]-want) > 1e-4 {
		t.Errorf("x0(1) = %g, want %g", x[0], want)
	}
	if math.Abs(x[1]-x[0]) > 1e-8 {
		t.Errorf("Algebraic row off constraint at the end: |x1-x0| = %g", math.Abs(x[1]-x[0]))
	}
	_ = sol
}

// A provider whose Jacobian always yields a singular iteration matrix
// must drive the step size to the floor, not loop forever.
func TestSingularIterationMatrixUnderflows(t *testing.T) {
	rhs := RHSFunc(func(f, x []float64, _ float64) {
		f[0] = 0
		f[1] = 0
	})
	jac := JacobianFunc(func(_ []float64, _ float64) (*sparse.Matrix, error) {
		return sparse.NewBuilder(2, 0).Finalize() // zero matrix
	})
	// c*M - 0 has a zero row for every c.
	s := NewSolver(rhs, jac, DiagonalMass([]float64{1, 0}), nil)
	x := []float64{1, 1}
	sol, err := s.Solve(x, 1.0)
	if !errors.Is(err, ErrStepSizeUnderflow) {
		t.Fatalf("Expected ErrStepSizeUnderflow, got %v", err)
	}
	if sol.Status != StatusAborted {
		t.Errorf("Expected status %q, got %q", StatusAborted, sol.Status)
	}
	if sol.Steps != 0 {
		t.Errorf("Expected no accepted steps, got %d", sol.Steps)
	}
	if sol.FinalTime() != 0 {
		t.Errorf("Last valid time should be the start time, got %g", sol.FinalTime())
	}
}

func TestJacobianSizeMismatchIsFatal(t *testing.T) {
	rhs := RHSFunc(func(f, x []float64, _ float64) { f[0] = -x[0] })
	jac := JacobianFunc(func(_ []float64, _ float64) (*sparse.Matrix, error) {
		return sparse.Identity(2), nil // wrong size for n=1
	})
	s := NewSolver(rhs, jac, nil, nil)
	x := []float64{1}
	_, err := s.Solve(x, 1.0)
	if !errors.Is(err, ErrJacobianSizeMismatch) {
		t.Fatalf("Expected ErrJacobianSizeMismatch, got %v", err)
	}
}

func TestInvalidOrderRejectedAtStart(t *testing.T) {
	opt := DefaultOptions()
	opt.MaxOrder = 7
	s := NewSolver(RHSFunc(func(f, x []float64, _ float64) { f[0] = 0 }), nil, nil, opt)
	x := []float64{1}
	sol, err := s.Solve(x, 1.0)
	if !errors.Is(err, ErrOrderOutOfRange) {
		t.Fatalf("Expected ErrOrderOutOfRange, got %v", err)
	}
	if sol.Status != StatusInvalidConfig {
		t.Errorf("Expected status %q, got %q", StatusInvalidConfig, sol.Status)
	}
}

func TestMassMatrixDimensionMismatch(t *testing.T) {
	mass := MassMatrixFunc(func() (*sparse.Matrix, error) {
		return sparse.Identity(3), nil
	})
	s := NewSolver(RHSFunc(func(f, x []float64, _ float64) { f[0] = 0 }), nil, mass, nil)
	x := []float64{1}
	if _, err := s.Solve(x, 1.0); !errors.Is(err, sparse.ErrMalformed) {
		t.Fatalf("Expected sparse.ErrMalformed, got %v", err)
	}
}

func TestOrderStaysWithinConfiguredMaximum(t *testing.T) {
	opt := DefaultOptions()
	opt.MaxOrder = 2
	rhs := RHSFunc(func(f, x []float64, _ float64) { f[0] = -x[0] })
	s := NewSolver(rhs, nil, nil, opt)
	x := []float64{1}
	sol, err := s.Solve(x, 10.0)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if sol.FinalOrder < 1 || sol.FinalOrder > 2 {
		t.Errorf("Final order %d outside [1,2]", sol.FinalOrder)
	}
	if math.Abs(x[0]-math.Exp(-10)) > 1e-4 {
		t.Errorf("x(10) = %g, want %g", x[0], math.Exp(-10))
	}
}

func TestExponentialDecayAccuracy(t *testing.T) {
	rhs := RHSFunc(func(f, x []float64, _ float64) { f[0] = -x[0] })
	opt := DefaultOptions()
	opt.AbsTol = 1e-9
	opt.RelTol = 1e-7
	s := NewSolver(rhs, nil, nil, opt)
	x := []float64{1}
	sol, err := s.Solve(x, 2.0)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	want := math.Exp(-2)
	if math.Abs(x[0]-want) > 1e-5 {
		t.Errorf("x(2) = %g, want %g (off by %g)", x[0], want, math.Abs(x[0]-want))
	}
	if sol.FinalTime() != 2.0 {
		t.Errorf("Final time %g, want exactly 2", sol.FinalTime())
	}
}

func TestRejectionNeverGrowsStep(t *testing.T) {
	for _, errNorm := range []float64{1.0001, 2, 10, 1e6} {
		for order := 1; order <= 6; order++ {
			if f := stepFactor(errNorm, order); f >= 1 {
				t.Errorf("stepFactor(%g, %d) = %g, must shrink on rejection", errNorm, order, f)
			}
		}
	}
}

func TestVerbositySummary(t *testing.T) {
	var buf bytes.Buffer
	opt := DefaultOptions()
	opt.Verbosity = 1
	opt.Output = &buf
	rhs := RHSFunc(func(f, x []float64, _ float64) { f[0] = -x[0] })
	s := NewSolver(rhs, nil, nil, opt)
	x := []float64{1}
	if _, err := s.Solve(x, 0.1); err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("Expected diagnostic output at verbosity 1")
	}
}
