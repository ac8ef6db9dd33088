package jobs

import (
	"fmt"
	"log/slog"

	"dispatch/internal/core/application/dispatch"
	"dispatch/internal/core/ports"
)

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	reconciliationJob *ReconciliationJob
	watchdogJob       *RiderOfflineWatchdogJob
	statsJob          *StatsJob
}

// NewJobManager creates a new job manager with all required jobs.
func NewJobManager(
	loader *dispatch.RecoveryLoader,
	store *dispatch.JobStore,
	uowFactory ports.UnitOfWorkFactory,
	coordinator *dispatch.Coordinator,
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		reconciliationJob: NewReconciliationJob(loader, logger),
		watchdogJob:       NewRiderOfflineWatchdogJob(store, uowFactory, coordinator, logger),
		statsJob:          NewStatsJob(store, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.reconciliationJob.Start(); err != nil {
		return fmt.Errorf("failed to start reconciliation job: %w", err)
	}

	if err := jm.watchdogJob.Start(); err != nil {
		// Stop already started jobs if this one fails
		jm.reconciliationJob.Stop()
		return fmt.Errorf("failed to start rider offline watchdog: %w", err)
	}

	if err := jm.statsJob.Start(); err != nil {
		jm.watchdogJob.Stop()
		jm.reconciliationJob.Stop()
		return fmt.Errorf("failed to start stats job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.statsJob.Stop()
	jm.watchdogJob.Stop()
	jm.reconciliationJob.Stop()
}
