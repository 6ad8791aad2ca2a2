package dae

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/pflow-xyz/go-dae/linsolve"
	"github.com/pflow-xyz/go-dae/sparse"
)

// Solver integrates one DAE system. Create it with NewSolver, optionally
// set Observer or swap Linear for an external sparse direct solver, then
// call Solve. A Solver holds no per-run state, so independent runs may
// use separate Solver instances concurrently; one instance must not be
// shared by concurrent runs because Linear caches factorizations.
type Solver struct {
	rhs  RHS
	jac  Jacobian
	mass MassMatrix
	opt  *Options

	// Linear is the direct linear-solver collaborator. Defaults to
	// linsolve.NewDenseLU.
	Linear linsolve.Solver

	// Observer, when non-nil, is called once per accepted step with the
	// current state and time.
	Observer ObserverFunc
}

// NewSolver assembles a solver from the user-supplied providers. jac may
// be nil to fall back to a finite-difference Jacobian against rhs; mass
// may be nil for an identity mass matrix (a stiff ODE system); opt may
// be nil for DefaultOptions.
func NewSolver(rhs RHS, jac Jacobian, mass MassMatrix, opt *Options) *Solver {
	if opt == nil {
		opt = DefaultOptions()
	}
	return &Solver{
		rhs:    rhs,
		jac:    jac,
		mass:   mass,
		opt:    opt,
		Linear: linsolve.NewDenseLU(),
	}
}

// Solve integrates the system from the configured start time to t1.
// x holds the initial state on entry (it need not satisfy the algebraic
// constraints exactly) and is overwritten in place with the state at the
// last accepted time. The returned Solution carries the full trajectory
// and work counters; on a fatal error it still holds every accepted step
// up to the last valid time, and the error wraps the cause.
//
// Step-local failures (singular iteration matrix, Newton divergence or
// iteration-limit) are never returned: the controller retries with a
// smaller step until it either succeeds or hits the step-size floor.
func (s *Solver) Solve(x []float64, t1 float64) (*Solution, error) {
	n := len(x)
	out := s.opt.Output
	if out == nil {
		out = os.Stdout
	}
	sol := &Solution{Status: StatusInvalidConfig, FinalOrder: 1}

	if err := s.opt.Validate(); err != nil {
		return sol, err
	}
	t := s.opt.StartTime
	if t1 < t {
		return sol, fmt.Errorf("%w: end time %g before start time %g", ErrInvalidOptions, t1, t)
	}

	// Every RHS evaluation, including the extra ones a finite-difference
	// Jacobian makes, is accounted on the Solution.
	rhs := &countingRHS{inner: s.rhs, sol: sol}
	jac := s.jac
	if jac == nil {
		jac = NewEstimatedJacobian(rhs, n, 0)
	}
	massProv := s.mass
	if massProv == nil {
		massProv = IdentityMass(n)
	}
	mass, err := massProv.Evaluate()
	if err != nil {
		return sol, fmt.Errorf("dae: mass matrix evaluation: %w", err)
	}
	if mass.Dim() != n {
		return sol, fmt.Errorf("%w: mass matrix is %dx%d, want %dx%d", sparse.ErrMalformed, mass.Dim(), mass.Dim(), n, n)
	}

	// Algebraic rows (zero rows of M) are excluded from the truncation
	// error test: they are solved consistently by the corrector, not
	// integrated, so extrapolation error is meaningless for them.
	differential := make([]bool, n)
	for i := 0; i < n; i++ {
		differential[i] = !mass.RowEmpty(i)
	}

	sol.Status = StatusAborted
	sol.T = append(sol.T, t)
	sol.U = append(sol.U, append([]float64(nil), x...))

	// History of accepted states, newest first. Order k needs k points.
	times := []float64{t}
	states := [][]float64{append([]float64(nil), x...)}

	order := 1
	h := s.opt.InitialStep
	comfortable := 0
	fails := 0

	if s.opt.Verbosity >= 1 {
		fmt.Fprintf(out, "dae: integrating n=%d from t=%g to t=%g\n", n, t, t1)
	}

	for t < t1 {
		tNew := t + h
		if tNew > t1 {
			tNew = t1 // land exactly on t1
			h = t1 - t
		}
		if tNew <= t {
			return sol, fmt.Errorf("%w: h=%.3g vanishes at t=%g", ErrStepSizeUnderflow, h, t)
		}

		nodes := make([]float64, order+1)
		nodes[0] = tNew
		copy(nodes[1:], times[:order])
		d := bdfWeights(nodes)

		npred := order + 1
		if npred > len(times) {
			npred = len(times)
		}
		pw := predictorWeights(tNew, times[:npred])
		pred := make([]float64, n)
		for j, w := range pw {
			for i := 0; i < n; i++ {
				pred[i] += w * states[j][i]
			}
		}

		histSum := make([]float64, n)
		for j := 1; j <= order; j++ {
			for i := 0; i < n; i++ {
				histSum[i] += d[j] * states[j-1][i]
			}
		}

		xTrial := append([]float64(nil), pred...)
		iters, err := s.correct(xTrial, tNew, d[0], histSum, mass, rhs, jac, sol)
		if err != nil {
			if !recoverable(err) {
				return sol, fmt.Errorf("dae: at t=%g: %w", t, err)
			}
			sol.Rejected++
			fails++
			if s.opt.Verbosity >= 2 {
				fmt.Fprintf(out, "dae: retry t=%g h=%.3g order=%d: %v\n", t, h, order, err)
			}
			if fails > s.opt.MaxStepRejects {
				return sol, fmt.Errorf("%w: step at t=%g failed %d consecutive times (last: %v)", ErrStepSizeUnderflow, t, fails, err)
			}
			h *= 0.5
			if h < s.opt.MinStep {
				return sol, fmt.Errorf("%w: h=%.3g below minimum %.3g at t=%g", ErrStepSizeUnderflow, h, s.opt.MinStep, t)
			}
			continue
		}

		// Local truncation error from the corrector-predictor gap.
		est := make([]float64, n)
		for i := 0; i < n; i++ {
			est[i] = (xTrial[i] - pred[i]) / float64(order+1)
		}
		errNorm := wrmsNorm(est, xTrial, differential, s.opt.AbsTol, s.opt.RelTol)

		if errNorm > 1 {
			sol.Rejected++
			fails++
			if s.opt.Verbosity >= 2 {
				fmt.Fprintf(out, "dae: reject t=%g h=%.3g order=%d err=%.3g\n", t, h, order, errNorm)
			}
			if fails > s.opt.MaxStepRejects {
				return sol, fmt.Errorf("%w: step at t=%g rejected %d consecutive times by the error test", ErrStepSizeUnderflow, t, fails)
			}
			factor := stepFactor(errNorm, order)
			if factor > 1 {
				factor = 1 // a rejected step never grows
			}
			if factor < s.opt.MinStepScale {
				factor = s.opt.MinStepScale
			}
			h *= factor
			if h < s.opt.MinStep {
				return sol, fmt.Errorf("%w: h=%.3g below minimum %.3g at t=%g", ErrStepSizeUnderflow, h, s.opt.MinStep, t)
			}
			continue
		}

		// Accepted: advance time, commit state and history.
		fails = 0
		t = tNew
		copy(x, xTrial)
		times = prependFloat(times, t)
		states = prependVec(states, xTrial)
		sol.Steps++
		sol.T = append(sol.T, t)
		sol.U = append(sol.U, append([]float64(nil), x...))

		if s.Observer != nil {
			s.Observer(x, t)
		}
		if s.opt.Verbosity >= 2 {
			fmt.Fprintf(out, "dae: step %d t=%.6g h=%.3g order=%d err=%.3g newton=%d\n",
				sol.Steps, t, h, order, errNorm, iters)
		}

		// Order and step-size policy for the next step.
		if errNorm <= s.opt.IncreaseThreshold {
			comfortable++
		} else {
			comfortable = 0
		}
		if comfortable > order && order < s.opt.MaxOrder && len(times) > order {
			order++
			comfortable = 0
		}

		factor := stepFactor(errNorm, order)
		if factor < s.opt.MinStepScale {
			factor = s.opt.MinStepScale
		}
		if factor > s.opt.MaxStepScale {
			factor = s.opt.MaxStepScale
		}
		h *= factor
		if h < s.opt.MinStep {
			h = s.opt.MinStep
		}
		if s.opt.MaxStep > 0 && h > s.opt.MaxStep {
			h = s.opt.MaxStep
		}

		// Evict history beyond what the current order can use.
		if len(times) > order+1 {
			times = times[:order+1]
			states = states[:order+1]
		}
		sol.FinalOrder = order
	}

	sol.Status = StatusSolved
	if s.opt.Verbosity >= 1 {
		fmt.Fprintf(out, "dae: done: %d steps (%d rejected), %d rhs calls, %d jacobians, %d linear solves\n",
			sol.Steps, sol.Rejected, sol.RHSCalls, sol.JacCalls, sol.LinearSolves)
	}
	return sol, nil
}

// stepFactor is the error-based step-size factor with the usual 0.9
// safety coefficient. A vanishing error proposes the largest growth.
func stepFactor(errNorm float64, order int) float64 {
	if errNorm <= 0 {
		return math.Inf(1)
	}
	return 0.9 * math.Pow(1/errNorm, 1/float64(order+1))
}

func recoverable(err error) bool {
	return errors.Is(err, ErrLinearSolveFailed) ||
		errors.Is(err, ErrNewtonDiverged) ||
		errors.Is(err, ErrNewtonMaxIter)
}

// countingRHS accounts every evaluation on the run's Solution.
type countingRHS struct {
	inner RHS
	sol   *Solution
}

func (c *countingRHS) Evaluate(f, x []float64, t float64) {
	c.sol.RHSCalls++
	c.inner.Evaluate(f, x, t)
}

func prependFloat(s []float64, v float64) []float64 {
	s = append(s, 0)
	copy(s[1:], s)
	s[0] = v
	return s
}

func prependVec(s [][]float64, v []float64) [][]float64 {
	s = append(s, nil)
	copy(s[1:], s)
	s[0] = append([]float64(nil), v...)
	return s
}
