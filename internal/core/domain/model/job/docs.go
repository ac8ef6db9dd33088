// Package job implements the DeliveryJob aggregate: one order's journey
// through the rider offer/assignment cycle. The aggregate enforces the
// offer state machine and the stale-offer race policy; orchestration
// (timers, broadcasts, persistence) lives in the dispatch application
// service, which is the aggregate's only writer.
package job
