// Package trajlog persists DAE integration trajectories: a SQLite store
// keyed by run ID with one row per accepted step, and CSV export of a
// finished Solution. The store's Recorder plugs straight into the
// solver's observer hook.
package trajlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pflow-xyz/go-dae/dae"
)

// Store handles SQLite persistence of integration runs.
type Store struct {
	db *sql.DB
}

// Run is one integration run record.
type Run struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Dim        int        `json:"dim"`
	T0         float64    `json:"t0"`
	T1         float64    `json:"t1"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Status     string     `json:"status"`
	Steps      int        `json:"steps"`
	Rejected   int        `json:"rejected"`
	RHSCalls   int        `json:"rhs_calls"`
	FinalOrder int        `json:"final_order"`
}

// Step is one accepted integration step.
type Step struct {
	RunID string    `json:"run_id"`
	Seq   int       `json:"seq"`
	Time  float64   `json:"time"`
	State []float64 `json:"state"`
}

// Open opens (creating if needed) the store at the given database path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// migrate creates the schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		dim INTEGER NOT NULL,
		t0 REAL NOT NULL,
		t1 REAL NOT NULL,
		started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		ended_at DATETIME,
		status TEXT NOT NULL DEFAULT 'running',
		steps INTEGER DEFAULT 0,
		rejected INTEGER DEFAULT 0,
		rhs_calls INTEGER DEFAULT 0,
		final_order INTEGER DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS steps (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		time REAL NOT NULL,
		state TEXT NOT NULL,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun creates a run record with a fresh ID.
func (s *Store) BeginRun(name string, dim int, t0, t1 float64) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Name:      name,
		Dim:       dim,
		T0:        t0,
		T1:        t1,
		StartedAt: time.Now().UTC(),
		Status:    "running",
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, name, dim, t0, t1, started_at, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Dim, run.T0, run.T1, run.StartedAt, run.Status,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// FinishRun records the outcome of a run.
func (s *Store) FinishRun(run *Run, sol *dae.Solution) error {
	now := time.Now().UTC()
	run.EndedAt = &now
	run.Status = sol.Status
	run.Steps = sol.Steps
	run.Rejected = sol.Rejected
	run.RHSCalls = sol.RHSCalls
	run.FinalOrder = sol.FinalOrder
	_, err := s.db.Exec(
		`UPDATE runs SET ended_at = ?, status = ?, steps = ?, rejected = ?,
		 rhs_calls = ?, final_order = ? WHERE id = ?`,
		now, run.Status, run.Steps, run.Rejected, run.RHSCalls, run.FinalOrder, run.ID,
	)
	return err
}

// LogStep inserts one accepted step.
func (s *Store) LogStep(st *Step) error {
	state, err := json.Marshal(st.State)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO steps (run_id, seq, time, state) VALUES (?, ?, ?, ?)`,
		st.RunID, st.Seq, st.Time, string(state),
	)
	return err
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, name, dim, t0, t1, started_at, ended_at, status, steps,
		 rejected, rhs_calls, final_order FROM runs WHERE id = ?`, id,
	)
	var run Run
	var endedAt sql.NullTime
	err := row.Scan(&run.ID, &run.Name, &run.Dim, &run.T0, &run.T1, &run.StartedAt,
		&endedAt, &run.Status, &run.Steps, &run.Rejected, &run.RHSCalls, &run.FinalOrder)
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		run.EndedAt = &endedAt.Time
	}
	return &run, nil
}

// GetSteps retrieves the accepted steps of a run in order.
func (s *Store) GetSteps(runID string) ([]*Step, error) {
	rows, err := s.db.Query(
		`SELECT run_id, seq, time, state FROM steps WHERE run_id = ? ORDER BY seq`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []*Step
	for rows.Next() {
		var st Step
		var state string
		if err := rows.Scan(&st.RunID, &st.Seq, &st.Time, &state); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(state), &st.State); err != nil {
			return nil, fmt.Errorf("decode state of step %d: %w", st.Seq, err)
		}
		steps = append(steps, &st)
	}
	return steps, rows.Err()
}
