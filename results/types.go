// Package results defines the structured output format for DAE
// integration runs: metadata, solver configuration, a work summary and
// the (optionally downsampled) trajectory, serializable as JSON.
package results

import "time"

const SchemaVersion = "1.0.0"

// Report contains complete run output.
type Report struct {
	Version    string     `json:"version"`
	Metadata   Metadata   `json:"metadata"`
	Problem    Problem    `json:"problem"`
	Options    *Options   `json:"options,omitempty"`
	Summary    Summary    `json:"summary"`
	Timeseries Timeseries `json:"timeseries"`
}

// Metadata contains run execution information.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"` // solved, aborted, invalid-config
	Error       string    `json:"error,omitempty"`
	ComputeTime float64   `json:"computeTime"` // seconds
}

// Problem summarizes the integrated system.
type Problem struct {
	Name         string     `json:"name,omitempty"`
	Dim          int        `json:"dim"`
	Names        []string   `json:"names,omitempty"` // state component labels
	Timespan     [2]float64 `json:"timespan"`
	InitialState []float64  `json:"initialState"`
}

// Options echoes the solver configuration used for the run.
type Options struct {
	InitialStep float64 `json:"initialStep"`
	MinStep     float64 `json:"minStep"`
	MaxStep     float64 `json:"maxStep,omitempty"`
	AbsTol      float64 `json:"abstol"`
	RelTol      float64 `json:"reltol"`
	MaxOrder    int     `json:"maxOrder"`
}

// Summary provides a quick overview of the run.
type Summary struct {
	Points       int       `json:"points"`
	FinalTime    float64   `json:"finalTime"`
	FinalState   []float64 `json:"finalState"`
	Steps        int       `json:"steps"`
	Rejected     int       `json:"rejected"`
	RHSCalls     int       `json:"rhsCalls"`
	JacCalls     int       `json:"jacCalls"`
	LinearSolves int       `json:"linearSolves"`
	FinalOrder   int       `json:"finalOrder"`
}

// Timeseries holds the trajectory, downsampled when the run produced
// more points than the caller wants to ship.
type Timeseries struct {
	Time      []float64   `json:"time"`
	Variables [][]float64 `json:"variables"` // one series per state component
}
