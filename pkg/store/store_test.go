package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provoke-dev/provoke/pkg/models"
	"github.com/provoke-dev/provoke/pkg/store"
)

func sampleRun(id string, state models.RunState, startedAt time.Time) *models.RunRecord {
	return &models.RunRecord{
		ID:          id,
		Action:      models.ActionCreate,
		Endpoint:    "http://127.0.0.1:3001",
		Function:    "TestEntrypoint",
		Transport:   "http",
		State:       state,
		Invocations: 2,
		Message:     "done",
		Warnings:    []string{"SUCCESS response carries a non-empty callbackContext"},
		StartedAt:   startedAt,
		FinishedAt:  startedAt.Add(3 * time.Second),
		Transitions: []models.StateTransition{
			{From: models.RunStatePending, To: models.RunStateRunning, Timestamp: startedAt, Reason: "issuing invocation 1"},
		},
		Timings: []models.InvocationTiming{
			{Attempt: 1, Status: "IN_PROGRESS", DelaySeconds: 5, DurationMs: 120},
			{Attempt: 2, Status: "SUCCESS", DurationMs: 80},
		},
	}
}

func testStoreConformance(t *testing.T, s store.Store) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)

	run := sampleRun("run-1", models.RunStateDoneSuccess, now)
	require.NoError(t, s.SaveRun(run))

	got, err := s.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, models.ActionCreate, got.Action)
	assert.Equal(t, models.RunStateDoneSuccess, got.State)
	assert.Equal(t, 2, got.Invocations)
	assert.Len(t, got.Warnings, 1)
	require.Len(t, got.Timings, 2)
	assert.Equal(t, 5, got.Timings[0].DelaySeconds)
	require.Len(t, got.Transitions, 1)
	assert.Equal(t, models.RunStatePending, got.Transitions[0].From)
	assert.WithinDuration(t, run.StartedAt, got.StartedAt, time.Second)

	_, err = s.GetRun("missing")
	assert.ErrorIs(t, err, store.ErrRunNotFound)

	older := sampleRun("run-0", models.RunStateDoneFailed, now.Add(-time.Hour))
	older.ErrorCode = "NotFound"
	require.NoError(t, s.SaveRun(older))

	runs, err := s.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].ID, "runs must come back newest first")
	assert.Equal(t, "run-0", runs[1].ID)

	limited, err := s.ListRuns(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-1", limited[0].ID)

	failed, err := s.ListRunsByState(models.RunStateDoneFailed, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "run-0", failed[0].ID)
	assert.Equal(t, "NotFound", failed[0].ErrorCode)

	pruned, err := s.PruneRuns(now.Add(-30 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, pruned, "only the hour-old run is past the cutoff")
	_, err = s.GetRun("run-0")
	assert.ErrorIs(t, err, store.ErrRunNotFound)

	require.NoError(t, s.DeleteRun("run-1"))
	assert.ErrorIs(t, s.DeleteRun("run-1"), store.ErrRunNotFound)

	assert.NoError(t, s.HealthCheck())
}

func TestMemoryStore(t *testing.T) {
	testStoreConformance(t, store.NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	testStoreConformance(t, s)
}

func TestSQLiteStoreVacuum(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveRun(sampleRun("run-1", models.RunStateDoneSuccess, time.Now())))
	_, err = s.PruneRuns(time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.NoError(t, s.Vacuum())
}

func TestNewStoreDispatch(t *testing.T) {
	s, err := store.NewStore(store.Config{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)

	_, err = store.NewStore(store.Config{Type: "mongodb"})
	assert.ErrorIs(t, err, store.ErrUnsupportedDatabase)

	s, err = store.NewStore(store.Config{Type: "sqlite", Path: filepath.Join(t.TempDir(), "runs.db")})
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
