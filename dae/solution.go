package dae

// Run status values reported on Solution.
const (
	StatusSolved        = "solved"         // reached t1
	StatusAborted       = "aborted"        // fatal failure mid-run, partial trajectory kept
	StatusInvalidConfig = "invalid-config" // rejected before the first step
)

// Solution holds the trajectory of an integration run together with its
// work counters. On failure it still carries every accepted step up to
// the last valid time, so partial results remain usable.
type Solution struct {
	T []float64   // Accepted time points, t0 first, strictly increasing
	U [][]float64 // State at each accepted time point

	Status string

	Steps        int // Accepted steps
	Rejected     int // Rejected step attempts (error test or Newton failure)
	RHSCalls     int
	JacCalls     int
	LinearSolves int
	FinalOrder   int // BDF order in effect at the end of the run
}

// GetVariable extracts the time series of state component i.
func (s *Solution) GetVariable(i int) []float64 {
	out := make([]float64, len(s.U))
	for k, u := range s.U {
		out[k] = u[i]
	}
	return out
}

// FinalState returns the state at the last accepted time point.
func (s *Solution) FinalState() []float64 {
	if len(s.U) == 0 {
		return nil
	}
	return s.U[len(s.U)-1]
}

// FinalTime returns the last accepted time point.
func (s *Solution) FinalTime() float64 {
	if len(s.T) == 0 {
		return 0
	}
	return s.T[len(s.T)-1]
}
