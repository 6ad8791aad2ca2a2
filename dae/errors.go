package dae

import "errors"

var (
	// Configuration errors, fatal before the first step.
	ErrOrderOutOfRange = errors.New("dae: max order outside [1,6]")
	ErrInvalidOptions  = errors.New("dae: invalid solver options")

	// Provider contract errors, fatal when detected.
	ErrJacobianSizeMismatch = errors.New("dae: jacobian size does not match problem dimension")

	// Step-local failures, recovered by the controller via retry with a
	// smaller step; they never escape Solve.
	ErrLinearSolveFailed = errors.New("dae: linear solve failed on iteration matrix")
	ErrNewtonDiverged    = errors.New("dae: newton iteration diverged")
	ErrNewtonMaxIter     = errors.New("dae: newton iteration limit exceeded")

	// Terminal integration failure: the step size fell below the
	// configured minimum while retrying.
	ErrStepSizeUnderflow = errors.New("dae: step size underflow")
)
