// Package jobs contains the scheduled background jobs of the dispatch
// engine. The reconciliation job sweeps the orders table for dispatchable
// orders that lost their in-memory job, the rider offline watchdog unwinds
// assignments held by riders whose session ended behind the engine's back,
// and the stats job periodically logs the live dispatch workload. All jobs
// run on robfig/cron schedules and are managed together through the
// JobManager.
package jobs
