package dae

import (
	"fmt"
	"io"
)

// Options contains solver configuration parameters. The struct is read
// once at the start of Solve and treated as immutable for the run.
type Options struct {
	InitialStep float64 // First trial step size
	MinStep     float64 // Step-size floor; going below it aborts the run
	MaxStep     float64 // Step-size ceiling (0 = unlimited)

	AbsTol float64 // Absolute error tolerance
	RelTol float64 // Relative error tolerance

	MaxOrder int // Maximum BDF order, 1..6

	MaxNewtonIters int     // Newton iteration cap per step attempt
	NewtonTol      float64 // Newton convergence threshold in the weighted norm

	// IncreaseThreshold is the weighted-error level under which an
	// accepted step counts as comfortable; enough comfortable steps in a
	// row raise the BDF order.
	IncreaseThreshold float64

	MinStepScale float64 // Lower clamp on the error-based step factor
	MaxStepScale float64 // Upper clamp on the error-based step factor

	// MaxStepRejects bounds consecutive failed attempts at one step
	// before the run is declared failed.
	MaxStepRejects int

	StartTime float64 // Integration start t0

	// Verbosity: 0 silent, 1 run summary, 2 per-step diagnostics.
	Verbosity int
	// Output receives diagnostic prints; nil means os.Stdout.
	Output io.Writer
}

// DefaultOptions returns balanced settings suitable for most problems.
func DefaultOptions() *Options {
	return &Options{
		InitialStep:       1e-3,
		MinStep:           1e-14,
		MaxStep:           0,
		AbsTol:            1e-6,
		RelTol:            1e-3,
		MaxOrder:          6,
		MaxNewtonIters:    15,
		NewtonTol:         0.33,
		IncreaseThreshold: 0.5,
		MinStepScale:      0.2,
		MaxStepScale:      5.0,
		MaxStepRejects:    50,
		StartTime:         0,
		Verbosity:         0,
	}
}

// StiffOptions returns settings for strongly stiff systems: a cautious
// first step and tighter tolerances.
func StiffOptions() *Options {
	opt := DefaultOptions()
	opt.InitialStep = 1e-6
	opt.AbsTol = 1e-8
	opt.RelTol = 1e-6
	return opt
}

// Validate reports configuration errors before the run starts.
func (o *Options) Validate() error {
	if o.MaxOrder < 1 || o.MaxOrder > maxBDFOrder {
		return fmt.Errorf("%w: got %d", ErrOrderOutOfRange, o.MaxOrder)
	}
	if o.InitialStep <= 0 {
		return fmt.Errorf("%w: initial step %g must be positive", ErrInvalidOptions, o.InitialStep)
	}
	if o.MinStep <= 0 || o.MinStep > o.InitialStep {
		return fmt.Errorf("%w: min step %g must be positive and not exceed the initial step", ErrInvalidOptions, o.MinStep)
	}
	if o.MaxStep != 0 && o.MaxStep < o.InitialStep {
		return fmt.Errorf("%w: max step %g below initial step", ErrInvalidOptions, o.MaxStep)
	}
	if o.AbsTol <= 0 || o.RelTol < 0 {
		return fmt.Errorf("%w: tolerances abs=%g rel=%g", ErrInvalidOptions, o.AbsTol, o.RelTol)
	}
	if o.MaxNewtonIters < 1 {
		return fmt.Errorf("%w: newton iteration cap %d", ErrInvalidOptions, o.MaxNewtonIters)
	}
	if o.NewtonTol <= 0 {
		return fmt.Errorf("%w: newton tolerance %g", ErrInvalidOptions, o.NewtonTol)
	}
	if o.MinStepScale <= 0 || o.MaxStepScale < 1 || o.MinStepScale > 1 {
		return fmt.Errorf("%w: step factor bounds [%g,%g]", ErrInvalidOptions, o.MinStepScale, o.MaxStepScale)
	}
	if o.MaxStepRejects < 1 {
		return fmt.Errorf("%w: step reject cap %d", ErrInvalidOptions, o.MaxStepRejects)
	}
	return nil
}
