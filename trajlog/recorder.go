package trajlog

// Recorder streams accepted steps of one run into the store. Its OnStep
// method matches the solver's observer signature; the observer hook has
// no error return, so insert failures are held and reported by Err after
// the run.
type Recorder struct {
	store *Store
	run   *Run
	seq   int
	err   error
}

// NewRecorder creates a recorder for the given run.
func (s *Store) NewRecorder(run *Run) *Recorder {
	return &Recorder{store: s, run: run}
}

// OnStep records one accepted step. Assign it to the solver's Observer.
func (r *Recorder) OnStep(x []float64, t float64) {
	if r.err != nil {
		return // stop logging after the first failure
	}
	r.seq++
	r.err = r.store.LogStep(&Step{
		RunID: r.run.ID,
		Seq:   r.seq,
		Time:  t,
		State: append([]float64(nil), x...),
	})
}

// Err returns the first insert failure, if any.
func (r *Recorder) Err() error { return r.err }

// Count returns the number of steps recorded so far.
func (r *Recorder) Count() int { return r.seq }
