package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/provoke-dev/provoke/pkg/models"
)

// SQLiteStore is a SQLite-based implementation of the run ledger
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite connection string with parameters for concurrent access
	// - _journal_mode=WAL: Enable Write-Ahead Logging for better concurrency
	// - _busy_timeout=10000: Wait up to 10 seconds when database is locked
	// - _synchronous=NORMAL: Balance between safety and performance
	// - _cache_size=-8000: 8MB memory cache for better performance
	// - _txlock=immediate: Acquire write lock at transaction start to reduce conflicts
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL&_cache_size=-8000&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer for SQLite to avoid lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		endpoint TEXT NOT NULL DEFAULT '',
		function TEXT NOT NULL DEFAULT '',
		transport TEXT NOT NULL DEFAULT 'http',
		state TEXT NOT NULL,
		invocations INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		error_code TEXT NOT NULL DEFAULT '',
		warnings TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		transitions TEXT,
		timings TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun adds or replaces a run record
func (s *SQLiteStore) SaveRun(run *models.RunRecord) error {
	warnings, err := json.Marshal(run.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	transitions, err := json.Marshal(run.Transitions)
	if err != nil {
		return fmt.Errorf("failed to marshal transitions: %w", err)
	}

	timings, err := json.Marshal(run.Timings)
	if err != nil {
		return fmt.Errorf("failed to marshal timings: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO runs
		(id, action, endpoint, function, transport, state, invocations, message,
		 error_code, warnings, started_at, finished_at, transitions, timings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, string(run.Action), run.Endpoint, run.Function, run.Transport,
		string(run.State), run.Invocations, run.Message, run.ErrorCode,
		string(warnings), run.StartedAt, run.FinishedAt, string(transitions), string(timings))

	return err
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(id string) (*models.RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, action, endpoint, function, transport, state, invocations,
		       message, error_code, warnings, started_at, finished_at, transitions, timings
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	return run, err
}

// ListRuns returns runs ordered newest first, up to limit (<=0 for all)
func (s *SQLiteStore) ListRuns(limit int) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	rows, err := s.db.Query(`
		SELECT id, action, endpoint, function, transport, state, invocations,
		       message, error_code, warnings, started_at, finished_at, transitions, timings
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRuns(rows)
}

// ListRunsByState returns runs in the given state, newest first
func (s *SQLiteStore) ListRunsByState(state models.RunState, limit int) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`
		SELECT id, action, endpoint, function, transport, state, invocations,
		       message, error_code, warnings, started_at, finished_at, transitions, timings
		FROM runs WHERE state = ? ORDER BY started_at DESC LIMIT ?
	`, string(state), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRuns(rows)
}

// DeleteRun removes a run by ID
func (s *SQLiteStore) DeleteRun(id string) error {
	result, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRunNotFound
	}
	return nil
}

// PruneRuns removes runs started before the cutoff and reports how many
func (s *SQLiteStore) PruneRuns(olderThan time.Time) (int, error) {
	result, err := s.db.Exec(`DELETE FROM runs WHERE started_at < ?`, olderThan)
	if err != nil {
		return 0, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database is reachable
func (s *SQLiteStore) HealthCheck() error {
	return s.db.Ping()
}

// Vacuum reclaims space after pruning
func (s *SQLiteStore) Vacuum() error {
	_, err := s.db.Exec("VACUUM")
	return err
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one ledger row, decoding the JSON columns
func scanRun(row rowScanner) (*models.RunRecord, error) {
	var run models.RunRecord
	var action, state string
	var warningsJSON, transitionsJSON, timingsJSON string

	err := row.Scan(&run.ID, &action, &run.Endpoint, &run.Function, &run.Transport,
		&state, &run.Invocations, &run.Message, &run.ErrorCode, &warningsJSON,
		&run.StartedAt, &run.FinishedAt, &transitionsJSON, &timingsJSON)
	if err != nil {
		return nil, err
	}

	run.Action = models.Action(action)
	run.State = models.RunState(state)

	if warningsJSON != "" && warningsJSON != "null" {
		if err := json.Unmarshal([]byte(warningsJSON), &run.Warnings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
		}
	}
	if transitionsJSON != "" && transitionsJSON != "null" {
		if err := json.Unmarshal([]byte(transitionsJSON), &run.Transitions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transitions: %w", err)
		}
	}
	if timingsJSON != "" && timingsJSON != "null" {
		if err := json.Unmarshal([]byte(timingsJSON), &run.Timings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal timings: %w", err)
		}
	}

	return &run, nil
}

// collectRuns drains a result set into run records
func collectRuns(rows *sql.Rows) ([]*models.RunRecord, error) {
	var runs []*models.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
