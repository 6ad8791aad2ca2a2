package dae

import (
	"math"
	"testing"
)

// Mildly nonlinear system with a known Jacobian:
//
//	f0 = x0^2 + x1
//	f1 = 3*x0*x1
//	f2 = x2
func quadRHS(f, x []float64, _ float64) {
	f[0] = x[0]*x[0] + x[1]
	f[1] = 3 * x[0] * x[1]
	f[2] = x[2]
}

func TestEstimatedJacobianValues(t *testing.T) {
	j := NewEstimatedJacobian(RHSFunc(quadRHS), 3, 0)
	x := []float64{0.5, 2.0, -1.0}
	m, err := j.Evaluate(x, 0)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	want := [][]float64{
		{2 * x[0], 1, 0},
		{3 * x[1], 3 * x[0], 0},
		{0, 0, 1},
	}
	got := m.Dense()
	for r := range want {
		for c := range want[r] {
			if math.Abs(got[r][c]-want[r][c]) > 1e-6 {
				t.Errorf("J[%d][%d] = %g, want %g", r, c, got[r][c], want[r][c])
			}
		}
	}
}

func TestEstimatedJacobianKeepsSparsity(t *testing.T) {
	j := NewEstimatedJacobian(RHSFunc(quadRHS), 3, 0)
	m, err := j.Evaluate([]float64{0.5, 2.0, -1.0}, 0)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	// Structural zeros (column 2 of rows 0 and 1, columns 0 and 1 of
	// row 2) must be dropped, leaving 5 stored entries.
	if m.NNZ() != 5 {
		t.Errorf("Expected 5 stored entries, got %d", m.NNZ())
	}
}

func TestEstimatedJacobianDeterministic(t *testing.T) {
	j := NewEstimatedJacobian(RHSFunc(quadRHS), 3, 1e-7)
	x := []float64{1.25, -0.75, 0.1}
	a, err := j.Evaluate(x, 0)
	if err != nil {
		t.Fatalf("first Evaluate failed: %v", err)
	}
	b, err := j.Evaluate(x, 0)
	if err != nil {
		t.Fatalf("second Evaluate failed: %v", err)
	}
	if a.NNZ() != b.NNZ() {
		t.Fatalf("Entry counts differ: %d vs %d", a.NNZ(), b.NNZ())
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if a.At(r, c) != b.At(r, c) {
				t.Errorf("J[%d][%d] differs between evaluations: %g vs %g", r, c, a.At(r, c), b.At(r, c))
			}
		}
	}
}

func TestEstimatedJacobianDoesNotMutateState(t *testing.T) {
	j := NewEstimatedJacobian(RHSFunc(quadRHS), 3, 0)
	x := []float64{0.5, 2.0, -1.0}
	saved := append([]float64(nil), x...)
	if _, err := j.Evaluate(x, 0); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	for i := range x {
		if x[i] != saved[i] {
			t.Errorf("x[%d] mutated from %g to %g", i, saved[i], x[i])
		}
	}
}
