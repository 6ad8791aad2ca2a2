// Package sensitivity provides tools for analyzing how DAE solutions
// change with model parameters: perturbation analysis, parameter
// sweeps, gradient estimation and grid search.
package sensitivity

import (
	"math"
	"sort"
	"sync"

	"github.com/pflow-xyz/go-dae/dae"
)

// Simulator integrates the model for a given parameter set. Analyses
// call it repeatedly with perturbed copies of the base parameters.
type Simulator func(params map[string]float64) (*dae.Solution, error)

// Scorer evaluates an integration result and returns a score. Failed
// runs are scored as NaN and excluded from rankings.
type Scorer func(sol *dae.Solution) float64

// FinalStateScorer creates a Scorer that evaluates the final state.
func FinalStateScorer(f func(state []float64) float64) Scorer {
	return func(sol *dae.Solution) float64 {
		return f(sol.FinalState())
	}
}

// ComponentScorer creates a Scorer that returns the final value of one
// state component.
func ComponentScorer(i int) Scorer {
	return func(sol *dae.Solution) float64 {
		return sol.FinalState()[i]
	}
}

// DiffScorer creates a Scorer that returns the difference between two
// state components at the final time.
func DiffScorer(i, j int) Scorer {
	return func(sol *dae.Solution) float64 {
		final := sol.FinalState()
		return final[i] - final[j]
	}
}

// Result holds the result of a perturbation analysis.
type Result struct {
	Baseline float64            // Score with original parameters
	Scores   map[string]float64 // Score when each parameter is perturbed
	Impact   map[string]float64 // Change from baseline (Score - Baseline)
	Ranking  []RankedParam      // Parameters sorted by absolute impact
}

// RankedParam represents a parameter and its impact.
type RankedParam struct {
	Name   string
	Impact float64
}

// Analyzer performs sensitivity analysis on a parameterized model.
type Analyzer struct {
	simulate Simulator
	params   map[string]float64
	scorer   Scorer
}

// NewAnalyzer creates a sensitivity analyzer around a simulator, the
// base parameter values, and a scorer.
func NewAnalyzer(sim Simulator, params map[string]float64, scorer Scorer) *Analyzer {
	return &Analyzer{
		simulate: sim,
		params:   params,
		scorer:   scorer,
	}
}

// score runs the simulator and scores the result. Runs that fail score NaN.
func (a *Analyzer) score(params map[string]float64) float64 {
	sol, err := a.simulate(params)
	if err != nil {
		return math.NaN()
	}
	return a.scorer(sol)
}

// withParam copies the base parameters and overrides one of them.
func (a *Analyzer) withParam(name string, value float64) map[string]float64 {
	test := make(map[string]float64, len(a.params))
	for k, v := range a.params {
		test[k] = v
	}
	test[name] = value
	return test
}

// sortedNames returns the parameter names in a consistent order.
func (a *Analyzer) sortedNames() []string {
	names := make([]string, 0, len(a.params))
	for name := range a.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Analyze tests the impact of zeroing each parameter in turn.
func (a *Analyzer) Analyze() *Result {
	result := &Result{
		Scores: make(map[string]float64),
		Impact: make(map[string]float64),
	}

	result.Baseline = a.score(a.params)

	for _, name := range a.sortedNames() {
		score := a.score(a.withParam(name, 0))
		result.Scores[name] = score
		result.Impact[name] = score - result.Baseline
	}

	result.Ranking = rankByImpact(result.Impact)
	return result
}

// AnalyzeParallel tests the impact of zeroing each parameter, running
// the perturbed simulations concurrently. The simulator must be safe
// for concurrent use.
func (a *Analyzer) AnalyzeParallel() *Result {
	result := &Result{
		Scores: make(map[string]float64),
		Impact: make(map[string]float64),
	}

	result.Baseline = a.score(a.params)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range a.sortedNames() {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()

			score := a.score(a.withParam(p, 0))

			mu.Lock()
			result.Scores[p] = score
			result.Impact[p] = score - result.Baseline
			mu.Unlock()
		}(name)
	}

	wg.Wait()

	result.Ranking = rankByImpact(result.Impact)
	return result
}

// rankByImpact sorts parameters by absolute impact (descending),
// leaving NaN impacts at the end.
func rankByImpact(impact map[string]float64) []RankedParam {
	ranking := make([]RankedParam, 0, len(impact))
	for name, imp := range impact {
		ranking = append(ranking, RankedParam{Name: name, Impact: imp})
	}
	sort.Slice(ranking, func(i, j int) bool {
		a, b := math.Abs(ranking[i].Impact), math.Abs(ranking[j].Impact)
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		if math.IsNaN(a) {
			return false
		}
		return a > b
	})
	return ranking
}

// SweepResult holds results from a parameter sweep.
type SweepResult struct {
	Parameter string
	Values    []float64
	Scores    []float64
	Best      struct {
		Value float64
		Score float64
	}
	Worst struct {
		Value float64
		Score float64
	}
}

// Sweep tests a list of values for a single parameter.
func (a *Analyzer) Sweep(name string, values []float64) *SweepResult {
	result := &SweepResult{
		Parameter: name,
		Values:    values,
		Scores:    make([]float64, len(values)),
	}

	bestScore := math.Inf(-1)
	worstScore := math.Inf(1)

	for i, val := range values {
		score := a.score(a.withParam(name, val))
		result.Scores[i] = score

		if score > bestScore {
			bestScore = score
			result.Best.Value = val
			result.Best.Score = score
		}
		if score < worstScore {
			worstScore = score
			result.Worst.Value = val
			result.Worst.Score = score
		}
	}

	return result
}

// SweepRange tests evenly spaced values in [min, max].
func (a *Analyzer) SweepRange(name string, min, max float64, steps int) *SweepResult {
	return a.Sweep(name, linspace(min, max, steps))
}

// Gradient estimates the derivative of the score with respect to one
// parameter using a central difference (f(x+h) - f(x-h)) / (2h).
// h == 0 picks a step relative to the parameter value.
func (a *Analyzer) Gradient(name string, h float64) float64 {
	orig := a.params[name]
	if h == 0 {
		h = 0.01 * math.Abs(orig)
		if h == 0 {
			h = 0.01
		}
	}

	scorePlus := a.score(a.withParam(name, orig+h))
	scoreMinus := a.score(a.withParam(name, orig-h))

	return (scorePlus - scoreMinus) / (2 * h)
}

// AllGradients computes gradients for all parameters.
func (a *Analyzer) AllGradients(h float64) map[string]float64 {
	gradients := make(map[string]float64)
	for _, name := range a.sortedNames() {
		gradients[name] = a.Gradient(name, h)
	}
	return gradients
}

// AllGradientsParallel computes gradients for all parameters
// concurrently. The simulator must be safe for concurrent use.
func (a *Analyzer) AllGradientsParallel(h float64) map[string]float64 {
	gradients := make(map[string]float64)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range a.sortedNames() {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			grad := a.Gradient(p, h)
			mu.Lock()
			gradients[p] = grad
			mu.Unlock()
		}(name)
	}

	wg.Wait()
	return gradients
}

// GridSearch performs a grid search over multiple parameters.
type GridSearch struct {
	analyzer   *Analyzer
	parameters map[string][]float64
}

// NewGridSearch creates a grid search over an analyzer's model.
func NewGridSearch(analyzer *Analyzer) *GridSearch {
	return &GridSearch{
		analyzer:   analyzer,
		parameters: make(map[string][]float64),
	}
}

// AddParameter adds a parameter axis with specific values.
func (g *GridSearch) AddParameter(name string, values []float64) *GridSearch {
	g.parameters[name] = values
	return g
}

// AddParameterRange adds a parameter axis with evenly spaced values.
func (g *GridSearch) AddParameterRange(name string, min, max float64, steps int) *GridSearch {
	g.parameters[name] = linspace(min, max, steps)
	return g
}

// GridResult holds results from a grid search.
type GridResult struct {
	Combinations []map[string]float64
	Scores       []float64
	Best         struct {
		Parameters map[string]float64
		Score      float64
		Index      int
	}
}

// Run executes the grid search.
func (g *GridSearch) Run() *GridResult {
	combinations := g.generateCombinations()

	result := &GridResult{
		Combinations: combinations,
		Scores:       make([]float64, len(combinations)),
	}

	bestScore := math.Inf(-1)

	for i, combo := range combinations {
		test := make(map[string]float64, len(g.analyzer.params))
		for k, v := range g.analyzer.params {
			test[k] = v
		}
		for k, v := range combo {
			test[k] = v
		}

		score := g.analyzer.score(test)
		result.Scores[i] = score

		if score > bestScore {
			bestScore = score
			result.Best.Parameters = combo
			result.Best.Score = score
			result.Best.Index = i
		}
	}

	return result
}

// generateCombinations enumerates the full cartesian product of the
// parameter axes.
func (g *GridSearch) generateCombinations() []map[string]float64 {
	params := make([]string, 0, len(g.parameters))
	for p := range g.parameters {
		params = append(params, p)
	}
	sort.Strings(params)

	total := 1
	for _, p := range params {
		total *= len(g.parameters[p])
	}

	combinations := make([]map[string]float64, total)
	for i := 0; i < total; i++ {
		combo := make(map[string]float64)
		idx := i
		for _, p := range params {
			values := g.parameters[p]
			combo[p] = values[idx%len(values)]
			idx /= len(values)
		}
		combinations[i] = combo
	}

	return combinations
}

func linspace(min, max float64, steps int) []float64 {
	if steps == 1 {
		return []float64{min}
	}
	values := make([]float64, steps)
	for i := 0; i < steps; i++ {
		values[i] = min + (max-min)*float64(i)/float64(steps-1)
	}
	return values
}
