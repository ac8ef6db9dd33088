package jobs

import (
	"context"
	"log/slog"

	"dispatch/internal/core/application/dispatch"

	"github.com/robfig/cron/v3"
)

// ReconciliationJob periodically adopts dispatchable orders that have no
// live job, e.g. an order whose submit committed right before a crash or
// one written by a tool directly into the database. Runs every 30 seconds.
type ReconciliationJob struct {
	loader *dispatch.RecoveryLoader
	cron   *cron.Cron
	logger *slog.Logger
}

// NewReconciliationJob creates the reconciliation sweep job.
func NewReconciliationJob(loader *dispatch.RecoveryLoader, logger *slog.Logger) *ReconciliationJob {
	return &ReconciliationJob{
		loader: loader,
		cron:   cron.New(cron.WithSeconds()),
		logger: logger.With("component", "reconciliation_job"),
	}
}

// Start begins the reconciliation sweep on its 30 second schedule.
func (j *ReconciliationJob) Start() error {
	_, err := j.cron.AddFunc("*/30 * * * * *", func() {
		ctx := context.Background()

		adopted, err := j.loader.Reconcile(ctx)
		if err != nil {
			j.logger.ErrorContext(ctx, "Reconciliation sweep failed", "error", err)
			return
		}
		if adopted > 0 {
			j.logger.InfoContext(ctx, "Reconciliation sweep adopted orders", "adopted", adopted)
		}
	})

	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Reconciliation job started (running every 30 seconds)")
	return nil
}

// Stop stops the reconciliation job.
func (j *ReconciliationJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "Reconciliation job stopped")
}
