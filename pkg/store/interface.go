package store

import (
	"errors"
	"time"

	"github.com/provoke-dev/provoke/pkg/models"
)

// Store persists the run ledger so past runs can be listed, inspected,
// exported and pruned. SQLite, PostgreSQL and the in-memory store all
// implement this interface.
type Store interface {
	// Run operations
	SaveRun(run *models.RunRecord) error
	GetRun(id string) (*models.RunRecord, error)
	ListRuns(limit int) ([]*models.RunRecord, error)
	ListRunsByState(state models.RunState, limit int) ([]*models.RunRecord, error)
	DeleteRun(id string) error
	PruneRuns(olderThan time.Time) (int, error)

	// Lifecycle
	Close() error
	HealthCheck() error
	Vacuum() error
}

// Config holds database configuration
type Config struct {
	Type string // "sqlite", "postgres" or "memory"
	DSN  string // Connection string

	// PostgreSQL specific
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// SQLite specific
	Path string
}

// NewStore creates a store based on configuration
func NewStore(config Config) (Store, error) {
	switch config.Type {
	case "postgres", "postgresql":
		return NewPostgreSQLStore(config)
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		// Default to SQLite
		path := config.Path
		if path == "" {
			path = config.DSN
		}
		if path == "" {
			path = "runs.db"
		}
		return NewSQLiteStore(path)
	default:
		return nil, ErrUnsupportedDatabase
	}
}

var (
	ErrRunNotFound         = errors.New("run not found")
	ErrUnsupportedDatabase = errors.New("unsupported database type")
)
