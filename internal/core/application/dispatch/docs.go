// Package dispatch is the application core of the delivery job engine.
//
// It coordinates the full offer lifecycle for orders that become ready
// for pickup: building candidate queues with the rider matcher, issuing
// time-boxed offers one rider at a time, racing accepts and rejects
// against offer timers, committing won assignments durably, and retrying
// exhausted cycles after a cooldown until the retry budget or the
// order-level deadline runs out.
//
// Concurrency model: all state for one order lives in a single in-memory
// DeliveryJob guarded by a per-order mutex inside the JobStore. Every
// mutation, whether triggered by an HTTP request, a rider response, or a
// timer, runs through JobStore.Update and is therefore serialized per
// order. No I/O happens while a job's mutex is held; persistence and
// notifications are performed before or after the critical section, and
// the job state machine absorbs any interleaving that allows.
package dispatch
