// Package journal records training runs and their per-epoch control
// decisions in SQLite.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	model_name   TEXT NOT NULL,
	config_json  TEXT,
	started_at   TEXT NOT NULL,
	finished_at  TEXT,
	stop_reason  TEXT,
	epochs_run   INTEGER NOT NULL DEFAULT 0,
	best_loss    REAL,
	final_lr     REAL
);

CREATE TABLE IF NOT EXISTS epochs (
	run_id        TEXT NOT NULL,
	epoch         INTEGER NOT NULL,
	train_loss    REAL,
	val_loss      REAL,
	lr            REAL NOT NULL,
	es_counter    INTEGER NOT NULL,
	worst_recent  REAL,
	stopped       INTEGER NOT NULL,
	lr_reduced    INTEGER NOT NULL,
	created_at    TEXT NOT NULL,
	PRIMARY KEY (run_id, epoch),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// Run is one row of the runs table.
type Run struct {
	RunID      string
	ModelName  string
	ConfigJSON string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	StopReason string
	EpochsRun  int
	BestLoss   float64
	FinalLR    float64
}

// Epoch is one row of the epochs table.
type Epoch struct {
	RunID       string
	Epoch       int
	TrainLoss   float64
	ValLoss     float64
	LR          float64
	Counter     int
	WorstRecent float64
	Stopped     bool
	LRReduced   bool
	CreatedAt   time.Time
}

// Store manages the journal database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a journal at path and runs migrations.
//
// Use ":memory:" for a throwaway journal.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun inserts a new run and returns its id.
func (s *Store) StartRun(modelName, configJSON string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, model_name, config_json, started_at) VALUES (?, ?, ?, ?)`,
		id, modelName, nullIfEmpty(configJSON), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// RecordEpoch writes one epoch row.
func (s *Store) RecordEpoch(e Epoch) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO epochs (run_id, epoch, train_loss, val_loss, lr, es_counter, worst_recent, stopped, lr_reduced, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Epoch, nullIfNonFinite(e.TrainLoss), nullIfNonFinite(e.ValLoss), e.LR,
		e.Counter, nullIfNonFinite(e.WorstRecent), e.Stopped, e.LRReduced,
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record epoch %d: %w", e.Epoch, err)
	}
	return nil
}

// FinishRun stores the outcome of a run.
func (s *Store) FinishRun(runID, stopReason string, epochsRun int, bestLoss, finalLR float64) error {
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, stop_reason = ?, epochs_run = ?, best_loss = ?, final_lr = ?
		 WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), stopReason, epochsRun,
		nullIfNonFinite(bestLoss), finalLR, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetRun returns a single run.
func (s *Store) GetRun(runID string) (Run, error) {
	row := s.db.QueryRow(
		`SELECT run_id, model_name, config_json, started_at, finished_at, stop_reason, epochs_run, best_loss, final_lr
		 FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	return r, err
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT run_id, model_name, config_json, started_at, finished_at, stop_reason, epochs_run, best_loss, final_lr
		 FROM runs ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Epochs returns every epoch of a run in order.
func (s *Store) Epochs(runID string) ([]Epoch, error) {
	rows, err := s.db.Query(
		`SELECT run_id, epoch, train_loss, val_loss, lr, es_counter, worst_recent, stopped, lr_reduced, created_at
		 FROM epochs WHERE run_id = ? ORDER BY epoch`, runID)
	if err != nil {
		return nil, fmt.Errorf("list epochs: %w", err)
	}
	defer rows.Close()

	var out []Epoch
	for rows.Next() {
		var (
			e                         Epoch
			trainLoss, valLoss, worst sql.NullFloat64
			createdAt                 string
		)
		if err := rows.Scan(&e.RunID, &e.Epoch, &trainLoss, &valLoss, &e.LR, &e.Counter,
			&worst, &e.Stopped, &e.LRReduced, &createdAt); err != nil {
			return nil, fmt.Errorf("scan epoch: %w", err)
		}
		e.TrainLoss = floatOrNaN(trainLoss)
		e.ValLoss = floatOrNaN(valLoss)
		e.WorstRecent = floatOrNaN(worst)
		created, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("epoch %d created_at: %w", e.Epoch, err)
		}
		e.CreatedAt = created
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                  Run
		configJSON, reason sql.NullString
		startedAt          string
		finishedAt         sql.NullString
		bestLoss, finalLR  sql.NullFloat64
	)
	if err := sc.Scan(&r.RunID, &r.ModelName, &configJSON, &startedAt, &finishedAt,
		&reason, &r.EpochsRun, &bestLoss, &finalLR); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.ConfigJSON = configJSON.String
	r.StopReason = reason.String
	started, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("run %s started_at: %w", r.RunID, err)
	}
	r.StartedAt = started
	if finishedAt.Valid {
		finished, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err != nil {
			return Run{}, fmt.Errorf("run %s finished_at: %w", r.RunID, err)
		}
		r.FinishedAt = finished
	}
	r.BestLoss = floatOrNaN(bestLoss)
	r.FinalLR = floatOrNaN(finalLR)
	return r, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullIfNonFinite stores NaN and ±Inf as NULL; SQLite has no NaN.
func nullIfNonFinite(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
