package store

import (
	"sort"
	"sync"
	"time"

	"github.com/provoke-dev/provoke/pkg/models"
)

// MemoryStore is an in-memory implementation of the run ledger, used by
// tests and by runs that opt out of persistence.
type MemoryStore struct {
	runs   map[string]*models.RunRecord
	runsMu sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*models.RunRecord),
	}
}

// SaveRun adds or replaces a run record
func (s *MemoryStore) SaveRun(run *models.RunRecord) error {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	s.runs[run.ID] = run
	return nil
}

// GetRun retrieves a run by ID
func (s *MemoryStore) GetRun(id string) (*models.RunRecord, error) {
	s.runsMu.RLock()
	defer s.runsMu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// ListRuns returns runs ordered newest first, up to limit (<=0 for all)
func (s *MemoryStore) ListRuns(limit int) ([]*models.RunRecord, error) {
	s.runsMu.RLock()
	defer s.runsMu.RUnlock()

	runs := make([]*models.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// ListRunsByState returns runs in the given state, newest first
func (s *MemoryStore) ListRunsByState(state models.RunState, limit int) ([]*models.RunRecord, error) {
	all, err := s.ListRuns(0)
	if err != nil {
		return nil, err
	}

	runs := make([]*models.RunRecord, 0, len(all))
	for _, run := range all {
		if run.State == state {
			runs = append(runs, run)
		}
	}

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// DeleteRun removes a run by ID
func (s *MemoryStore) DeleteRun(id string) error {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return ErrRunNotFound
	}
	delete(s.runs, id)
	return nil
}

// PruneRuns removes runs started before the cutoff and reports how many
func (s *MemoryStore) PruneRuns(olderThan time.Time) (int, error) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	pruned := 0
	for id, run := range s.runs {
		if run.StartedAt.Before(olderThan) {
			delete(s.runs, id)
			pruned++
		}
	}
	return pruned, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

// HealthCheck always succeeds for the in-memory store
func (s *MemoryStore) HealthCheck() error {
	return nil
}

// Vacuum is a no-op for the in-memory store
func (s *MemoryStore) Vacuum() error {
	return nil
}
