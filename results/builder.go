package results

import (
	"time"

	"github.com/pflow-xyz/go-dae/dae"
)

// Builder helps construct a Report from solver output.
type Builder struct {
	report Report
}

// NewBuilder creates a report builder.
func NewBuilder() *Builder {
	return &Builder{
		report: Report{
			Version: SchemaVersion,
			Metadata: Metadata{
				Timestamp: time.Now(),
			},
		},
	}
}

// WithProblem sets problem information.
func (b *Builder) WithProblem(name string, names []string, initialState []float64, t0, t1 float64) *Builder {
	b.report.Problem = Problem{
		Name:         name,
		Dim:          len(initialState),
		Names:        append([]string(nil), names...),
		Timespan:     [2]float64{t0, t1},
		InitialState: append([]float64(nil), initialState...),
	}
	return b
}

// WithOptions echoes the solver configuration.
func (b *Builder) WithOptions(opt *dae.Options) *Builder {
	if opt != nil {
		b.report.Options = &Options{
			InitialStep: opt.InitialStep,
			MinStep:     opt.MinStep,
			MaxStep:     opt.MaxStep,
			AbsTol:      opt.AbsTol,
			RelTol:      opt.RelTol,
			MaxOrder:    opt.MaxOrder,
		}
	}
	return b
}

// WithSolution processes solver output. runErr may carry the fatal error
// of an unsuccessful run; downsampleTarget bounds the number of shipped
// trajectory points (0 keeps all).
func (b *Builder) WithSolution(sol *dae.Solution, runErr error, computeTime float64, downsampleTarget int) *Builder {
	b.report.Metadata.Status = sol.Status
	b.report.Metadata.ComputeTime = computeTime
	if runErr != nil {
		b.report.Metadata.Error = runErr.Error()
	}

	b.report.Summary = Summary{
		Points:       len(sol.T),
		FinalTime:    sol.FinalTime(),
		FinalState:   append([]float64(nil), sol.FinalState()...),
		Steps:        sol.Steps,
		Rejected:     sol.Rejected,
		RHSCalls:     sol.RHSCalls,
		JacCalls:     sol.JacCalls,
		LinearSolves: sol.LinearSolves,
		FinalOrder:   sol.FinalOrder,
	}

	idx := downsampleIndices(len(sol.T), downsampleTarget)
	ts := Timeseries{Time: make([]float64, len(idx))}
	for k, i := range idx {
		ts.Time[k] = sol.T[i]
	}
	if len(sol.U) > 0 {
		n := len(sol.U[0])
		ts.Variables = make([][]float64, n)
		for v := 0; v < n; v++ {
			series := make([]float64, len(idx))
			for k, i := range idx {
				series[k] = sol.U[i][v]
			}
			ts.Variables[v] = series
		}
	}
	b.report.Timeseries = ts
	return b
}

// Build returns the assembled report.
func (b *Builder) Build() *Report {
	return &b.report
}

// downsampleIndices picks at most target indices from [0, length),
// always keeping the first and last points. target <= 0 keeps all.
func downsampleIndices(length, target int) []int {
	if length == 0 {
		return nil
	}
	if target <= 0 || length <= target {
		idx := make([]int, length)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	if target == 1 {
		return []int{length - 1}
	}
	idx := make([]int, target)
	for k := 0; k < target; k++ {
		idx[k] = k * (length - 1) / (target - 1)
	}
	idx[target-1] = length - 1
	return idx
}
