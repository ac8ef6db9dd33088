package jobs

import (
	"context"
	"log/slog"

	"dispatch/internal/core/application/dispatch"

	"github.com/robfig/cron/v3"
)

// StatsJob logs a once-a-minute summary of the live dispatch workload:
// how many jobs are in each state and how many retries are pending.
// Gives operators a heartbeat in the logs without a metrics stack.
type StatsJob struct {
	store  *dispatch.JobStore
	cron   *cron.Cron
	logger *slog.Logger
}

// NewStatsJob creates the workload summary job.
func NewStatsJob(store *dispatch.JobStore, logger *slog.Logger) *StatsJob {
	return &StatsJob{
		store:  store,
		cron:   cron.New(cron.WithSeconds()),
		logger: logger.With("component", "stats_job"),
	}
}

// Start begins the summary log on its one minute schedule.
func (j *StatsJob) Start() error {
	_, err := j.cron.AddFunc("0 * * * * *", func() {
		ctx := context.Background()

		byStatus := make(map[string]int)
		var retrying int
		for _, view := range j.store.List() {
			byStatus[view.Status.String()]++
			if view.RetryCount > 0 {
				retrying++
			}
		}

		j.logger.InfoContext(ctx, "Dispatch workload",
			"liveJobs", j.store.Len(),
			"byStatus", byStatus,
			"retrying", retrying)
	})

	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Stats job started (running every minute)")
	return nil
}

// Stop stops the stats job.
func (j *StatsJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "Stats job stopped")
}
