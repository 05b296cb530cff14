// Package cleanup prunes old runs out of the ledger on a schedule.
// The sample endpoint records every run it serves; without a retention
// sweep a long-lived endpoint accumulates rows forever.
package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/provoke-dev/provoke/pkg/logging"
)

// Config defines the retention policy and sweep cadence.
type Config struct {
	Enabled        bool
	RetentionDays  int
	InitialDelay   time.Duration // delay before the first sweep after startup
	SweepInterval  time.Duration
	VacuumInterval time.Duration
}

// DefaultConfig returns the retention defaults: keep a week of runs,
// sweep daily, vacuum weekly.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		RetentionDays:  7,
		InitialDelay:   time.Minute,
		SweepInterval:  24 * time.Hour,
		VacuumInterval: 7 * 24 * time.Hour,
	}
}

// Store is the slice of the run ledger the janitor needs.
type Store interface {
	PruneRuns(olderThan time.Time) (int, error)
	Vacuum() error
}

// Janitor runs periodic retention sweeps and database maintenance
// against the run ledger.
type Janitor struct {
	config Config
	store  Store
	logger *logging.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	stats Stats
}

// Stats tracks what the janitor has done so far.
type Stats struct {
	LastSweep         time.Time
	LastVacuum        time.Time
	RunsPruned        int64
	VacuumRuns        int64
	LastSweepDuration time.Duration
}

// NewJanitor creates a janitor for the given ledger.
func NewJanitor(config Config, store Store, logger *logging.Logger) *Janitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Janitor{
		config: config,
		store:  store,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the sweep and vacuum loops.
func (j *Janitor) Start() {
	if !j.config.Enabled || j.config.RetentionDays <= 0 {
		j.logger.Debug("Ledger janitor disabled")
		return
	}

	j.logger.Info("Ledger janitor started", map[string]interface{}{
		"retention_days": j.config.RetentionDays,
		"sweep_interval": j.config.SweepInterval.String(),
	})

	j.wg.Add(2)
	go j.sweepLoop()
	go j.vacuumLoop()
}

// Stop halts the loops and waits for any in-flight sweep to finish.
func (j *Janitor) Stop() {
	j.cancel()
	j.wg.Wait()
}

// Shutdown adapts Stop to the shutdown manager's handler signature.
func (j *Janitor) Shutdown(ctx context.Context) error {
	j.Stop()
	return nil
}

func (j *Janitor) sweepLoop() {
	defer j.wg.Done()

	// The first sweep runs shortly after startup so a restart does not
	// leave stale rows around for a whole sweep interval.
	initial := time.NewTimer(j.config.InitialDelay)
	defer initial.Stop()
	select {
	case <-j.ctx.Done():
		return
	case <-initial.C:
		j.sweep()
	}

	ticker := time.NewTicker(j.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) vacuumLoop() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.config.VacuumInterval)
	defer ticker.Stop()
	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.vacuum()
		}
	}
}

// SweepNow triggers an immediate retention sweep.
func (j *Janitor) SweepNow() {
	j.sweep()
}

// VacuumNow triggers an immediate vacuum.
func (j *Janitor) VacuumNow() {
	j.vacuum()
}

func (j *Janitor) sweep() {
	start := time.Now()
	cutoff := start.Add(-time.Duration(j.config.RetentionDays) * 24 * time.Hour)

	pruned, err := j.store.PruneRuns(cutoff)
	if err != nil {
		j.logger.Error("Ledger sweep failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	j.mu.Lock()
	j.stats.LastSweep = time.Now()
	j.stats.LastSweepDuration = time.Since(start)
	j.stats.RunsPruned += int64(pruned)
	j.mu.Unlock()

	if pruned > 0 {
		j.logger.Info("Ledger sweep complete", map[string]interface{}{
			"pruned":   pruned,
			"cutoff":   cutoff.Format(time.RFC3339),
			"duration": time.Since(start).String(),
		})
	} else {
		j.logger.Debug("Ledger sweep found nothing to prune")
	}
}

func (j *Janitor) vacuum() {
	start := time.Now()

	if err := j.store.Vacuum(); err != nil {
		j.logger.Error("Ledger vacuum failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	j.mu.Lock()
	j.stats.LastVacuum = time.Now()
	j.stats.VacuumRuns++
	j.mu.Unlock()

	j.logger.Debug("Ledger vacuum complete", map[string]interface{}{
		"duration": time.Since(start).String(),
	})
}

// GetStats returns a snapshot of the janitor's counters.
func (j *Janitor) GetStats() Stats {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.stats
}
