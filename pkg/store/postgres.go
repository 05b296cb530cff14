package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/provoke-dev/provoke/pkg/models"
)

// PostgreSQLStore implements Store using PostgreSQL, for teams collecting
// contract-test results from many machines in one place.
type PostgreSQLStore struct {
	db *sql.DB
}

// NewPostgreSQLStore creates a new PostgreSQL store
func NewPostgreSQLStore(config Config) (*PostgreSQLStore, error) {
	dsn := config.DSN
	if dsn == "" {
		return nil, fmt.Errorf("PostgreSQL DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(25)
	}

	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}

	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	} else {
		db.SetConnMaxIdleTime(1 * time.Minute)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgreSQLStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates tables if they don't exist
func (s *PostgreSQLStore) initSchema() error {
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
		warnings JSONB,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		transitions JSONB,
		timings JSONB
	);

	CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun adds or replaces a run record
func (s *PostgreSQLStore) SaveRun(run *models.RunRecord) error {
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
		INSERT INTO runs
		(id, action, endpoint, function, transport, state, invocations, message,
		 error_code, warnings, started_at, finished_at, transitions, timings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			action = EXCLUDED.action,
			endpoint = EXCLUDED.endpoint,
			function = EXCLUDED.function,
			transport = EXCLUDED.transport,
			state = EXCLUDED.state,
			invocations = EXCLUDED.invocations,
			message = EXCLUDED.message,
			error_code = EXCLUDED.error_code,
			warnings = EXCLUDED.warnings,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at,
			transitions = EXCLUDED.transitions,
			timings = EXCLUDED.timings
	`, run.ID, string(run.Action), run.Endpoint, run.Function, run.Transport,
		string(run.State), run.Invocations, run.Message, run.ErrorCode,
		string(warnings), run.StartedAt, run.FinishedAt, string(transitions), string(timings))

	return err
}

// GetRun retrieves a run by ID
func (s *PostgreSQLStore) GetRun(id string) (*models.RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, action, endpoint, function, transport, state, invocations,
		       message, error_code, COALESCE(warnings::TEXT, ''), started_at, finished_at,
		       COALESCE(transitions::TEXT, ''), COALESCE(timings::TEXT, '')
		FROM runs WHERE id = $1
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	return run, err
}

// ListRuns returns runs ordered newest first, up to limit (<=0 for all)
func (s *PostgreSQLStore) ListRuns(limit int) ([]*models.RunRecord, error) {
	query := `
		SELECT id, action, endpoint, function, transport, state, invocations,
		       message, error_code, COALESCE(warnings::TEXT, ''), started_at, finished_at,
		       COALESCE(transitions::TEXT, ''), COALESCE(timings::TEXT, '')
		FROM runs ORDER BY started_at DESC`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+` LIMIT $1`, limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRuns(rows)
}

// ListRunsByState returns runs in the given state, newest first
func (s *PostgreSQLStore) ListRunsByState(state models.RunState, limit int) ([]*models.RunRecord, error) {
	query := `
		SELECT id, action, endpoint, function, transport, state, invocations,
		       message, error_code, COALESCE(warnings::TEXT, ''), started_at, finished_at,
		       COALESCE(transitions::TEXT, ''), COALESCE(timings::TEXT, '')
		FROM runs WHERE state = $1 ORDER BY started_at DESC`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+` LIMIT $2`, string(state), limit)
	} else {
		rows, err = s.db.Query(query, string(state))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRuns(rows)
}

// DeleteRun removes a run by ID
func (s *PostgreSQLStore) DeleteRun(id string) error {
	result, err := s.db.Exec(`DELETE FROM runs WHERE id = $1`, id)
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
func (s *PostgreSQLStore) PruneRuns(olderThan time.Time) (int, error) {
	result, err := s.db.Exec(`DELETE FROM runs WHERE started_at < $1`, olderThan)
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
func (s *PostgreSQLStore) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database is reachable
func (s *PostgreSQLStore) HealthCheck() error {
	return s.db.Ping()
}

// Vacuum reclaims space after pruning
func (s *PostgreSQLStore) Vacuum() error {
	_, err := s.db.Exec("VACUUM runs")
	return err
}
