package jobs

import (
	"context"
	"log/slog"

	"dispatch/internal/core/application/dispatch"
	"dispatch/internal/core/domain/model/job"
	"dispatch/internal/core/ports"

	"github.com/robfig/cron/v3"
)

// RiderOfflineWatchdogJob tears down uncollected assignments whose rider
// is persisted as offline. Normally going offline unwinds the rider's
// jobs synchronously; the watchdog catches sessions ended behind the
// engine's back, e.g. a support tool flipping the flag in the database.
// Runs every 15 seconds.
type RiderOfflineWatchdogJob struct {
	store       *dispatch.JobStore
	uowFactory  ports.UnitOfWorkFactory
	coordinator *dispatch.Coordinator
	cron        *cron.Cron
	logger      *slog.Logger
}

// NewRiderOfflineWatchdogJob creates the offline-rider watchdog.
func NewRiderOfflineWatchdogJob(
	store *dispatch.JobStore,
	uowFactory ports.UnitOfWorkFactory,
	coordinator *dispatch.Coordinator,
	logger *slog.Logger,
) *RiderOfflineWatchdogJob {
	return &RiderOfflineWatchdogJob{
		store:       store,
		uowFactory:  uowFactory,
		coordinator: coordinator,
		cron:        cron.New(cron.WithSeconds()),
		logger:      logger.With("component", "rider_offline_watchdog_job"),
	}
}

// Start begins the watchdog sweep on its 15 second schedule.
func (j *RiderOfflineWatchdogJob) Start() error {
	_, err := j.cron.AddFunc("*/15 * * * * *", func() {
		j.sweep(context.Background())
	})

	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Rider offline watchdog started (running every 15 seconds)")
	return nil
}

// Stop stops the watchdog.
func (j *RiderOfflineWatchdogJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "Rider offline watchdog stopped")
}

func (j *RiderOfflineWatchdogJob) sweep(ctx context.Context) {
	uow := j.uowFactory.Create()

	for _, view := range j.store.List() {
		if view.Status != job.Assigned || view.CurrentOfferee == nil {
			continue
		}

		assignee, err := uow.RiderRepository().Get(ctx, *view.CurrentOfferee)
		if err != nil {
			j.logger.ErrorContext(ctx, "Watchdog failed to load assigned rider",
				"orderId", view.OrderID.String(),
				"riderId", view.CurrentOfferee.String(), "error", err)
			continue
		}
		if assignee.IsOnline() {
			continue
		}

		j.logger.WarnContext(ctx, "Assigned rider is offline, unwinding their jobs",
			"orderId", view.OrderID.String(), "riderId", assignee.ID().String())
		if err := j.coordinator.HandleRiderOffline(ctx, assignee.ID()); err != nil {
			j.logger.ErrorContext(ctx, "Watchdog teardown failed",
				"riderId", assignee.ID().String(), "error", err)
		}
	}
}
