package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dispatch/internal/core/domain/model/job"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"github.com/cenkalti/backoff/v4"
)

// ErrNotAssignedRider is returned when a pickup or completion request
// arrives from a rider who does not hold the order's assignment.
var ErrNotAssignedRider = errors.New("rider is not assigned to this order")

// errNotBroadcasting aborts a cycle start that raced with a state change.
var errNotBroadcasting = errors.New("job is not broadcasting")

// Policy holds the tunable timings of the dispatch cycle.
type Policy struct {
	// OfferTTL is how long a rider has to answer an offer.
	OfferTTL time.Duration

	// RetryCooldown is the pause between an exhausted candidate cycle
	// and the next broadcast attempt.
	RetryCooldown time.Duration

	// MaxCycles is the total number of broadcast cycles an order gets
	// before dispatch fails for good.
	MaxCycles int

	// OrderDeadline bounds the whole dispatch effort from job creation.
	// Zero disables the order-level deadline.
	OrderDeadline time.Duration

	// CommitMaxRetries bounds the exponential backoff used when
	// persisting an accepted assignment.
	CommitMaxRetries uint64
}

// DefaultPolicy returns the production dispatch timings.
func DefaultPolicy() Policy {
	return Policy{
		OfferTTL:         30 * time.Second,
		RetryCooldown:    2 * time.Minute,
		MaxCycles:        3,
		OrderDeadline:    30 * time.Minute,
		CommitMaxRetries: 4,
	}
}

// Validate checks the policy invariants.
func (p Policy) Validate() error {
	if p.OfferTTL <= 0 {
		return errs.NewValueIsRequiredError("offerTTL")
	}
	if p.RetryCooldown <= 0 {
		return errs.NewValueIsRequiredError("retryCooldown")
	}
	if p.MaxCycles <= 0 {
		return errs.NewValueIsRequiredError("maxCycles")
	}
	if p.OrderDeadline < 0 {
		return errs.NewValueIsInvalidError("orderDeadline")
	}
	return nil
}

// Coordinator orchestrates the offer lifecycle for every live delivery
// job: candidate matching, offer broadcast, response racing, durable
// assignment commits, retry cycles, and order-level deadlines.
//
// All job mutations run through the JobStore's per-order mutex; the
// coordinator performs persistence and notification work strictly
// outside those critical sections.
type Coordinator struct {
	store      *JobStore
	matcher    services.RiderMatcher
	uowFactory ports.UnitOfWorkFactory
	sink       ports.NotificationSink
	policy     Policy
	log        *slog.Logger

	offers    *Scheduler
	cooldowns *Scheduler
	deadlines *Scheduler

	// distances caches each cycle's pickup distances so offer envelopes
	// can include them without re-reading rider locations.
	mu        sync.Mutex
	distances map[kernel.UUID]map[kernel.UUID]float64
}

// NewCoordinator wires a coordinator and starts its timer goroutines.
func NewCoordinator(
	store *JobStore,
	matcher services.RiderMatcher,
	uowFactory ports.UnitOfWorkFactory,
	sink ports.NotificationSink,
	policy Policy,
	log *slog.Logger,
) (*Coordinator, error) {
	if store == nil {
		return nil, errs.NewValueIsRequiredError("store")
	}
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if sink == nil {
		return nil, errs.NewValueIsRequiredError("sink")
	}
	if log == nil {
		return nil, errs.NewValueIsRequiredError("log")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		store:      store,
		matcher:    matcher,
		uowFactory: uowFactory,
		sink:       sink,
		policy:     policy,
		log:        log.With("component", "dispatch-coordinator"),
		distances:  make(map[kernel.UUID]map[kernel.UUID]float64),
	}

	c.offers = NewScheduler(c.onOfferTimeout)
	c.cooldowns = NewScheduler(c.onCooldownOver)
	c.deadlines = NewScheduler(c.onOrderDeadline)
	return c, nil
}

// Shutdown stops the timer goroutines and drains the notification sink.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.offers.Stop()
	c.cooldowns.Stop()
	c.deadlines.Stop()
	return c.sink.Close(ctx)
}

// Dispatch enters a ready-for-pickup order into the dispatch cycle and
// issues the first offer. Idempotent per order: a duplicate request
// fails with ErrJobAlreadyExists and leaves the running job untouched.
func (c *Coordinator) Dispatch(ctx context.Context, o *order.Order) error {
	j, err := job.NewDeliveryJob(o)
	if err != nil {
		return err
	}

	if err := c.store.Create(j); err != nil {
		return err
	}

	if c.policy.OrderDeadline > 0 {
		c.deadlines.Schedule(o.ID(), j.CreatedAt().Add(c.policy.OrderDeadline))
	}

	c.log.Info("dispatch started", "orderId", o.ID().String())
	c.startCycle(ctx, o.ID())
	return nil
}

// Restore re-enters an order with a committed rider assignment after a
// restart. The restored job sits in Assigned awaiting pickup and
// completion; no offers are issued, and the order-level deadline is
// re-armed from the persisted creation time. An assignment whose
// dispatch budget already elapsed while the engine was down is not
// resurrected: it is dissolved and the order starts a fresh cycle.
func (c *Coordinator) Restore(ctx context.Context, o *order.Order) error {
	deadline := o.CreatedAt().Add(c.policy.OrderDeadline)
	if c.policy.OrderDeadline > 0 && !time.Now().UTC().Before(deadline) {
		return c.redispatchStale(ctx, o)
	}

	j, err := job.RestoreAssignedJob(o, o.CreatedAt())
	if err != nil {
		return err
	}

	if err := c.store.Create(j); err != nil {
		return err
	}

	if c.policy.OrderDeadline > 0 {
		c.deadlines.Schedule(o.ID(), deadline)
	}

	c.log.Info("assigned job restored",
		"orderId", o.ID().String(), "riderId", j.CurrentOfferee().String())
	return nil
}

// redispatchStale unwinds a recovered assignment that outlived its
// dispatch budget: the order returns to ReadyForPickup, the rider is
// freed and told the job is gone, and dispatch starts over with a
// fresh budget.
func (c *Coordinator) redispatchStale(ctx context.Context, o *order.Order) error {
	if o.Rider() == nil {
		return errs.NewValueIsRequiredError("rider")
	}
	riderID := *o.Rider()

	if err := c.dissolveAssignment(ctx, o.ID(), riderID); err != nil {
		return fmt.Errorf("dissolve stale assignment: %w", err)
	}
	c.sink.PushToRider(riderID, newOfferRetractedNotification(o.ID()))
	c.log.Warn("stale assignment dissolved, redispatching",
		"orderId", o.ID().String(), "riderId", riderID.String())

	uow := c.uowFactory.Create()
	fresh, err := uow.OrderRepository().Get(ctx, o.ID())
	if err != nil {
		return err
	}
	return c.Dispatch(ctx, fresh)
}

// OnRiderAccept handles a rider accepting their open offer.
//
// The in-memory job moves to Assigned first, which closes the offer
// window and blocks competing responses, then the assignment is
// committed durably (order gains the rider, rider becomes busy) with
// bounded backoff. A commit that still fails tears the assignment back
// down and re-enters the retry cycle after the cooldown.
//
// A stale accept, from the wrong rider, after the deadline, or after the
// offer was settled, fails with job.ErrStaleOffer and has no effect.
func (c *Coordinator) OnRiderAccept(ctx context.Context, orderID, riderID kernel.UUID) error {
	now := time.Now().UTC()

	var customerID kernel.UUID
	var pending []kernel.UUID
	if err := c.store.Update(orderID, func(j *job.DeliveryJob) error {
		if err := j.Accept(riderID, now); err != nil {
			return err
		}
		customerID = j.CustomerID()
		pending = append([]kernel.UUID(nil), j.CandidateQueue()...)
		return nil
	}); err != nil {
		return err
	}

	c.offers.Cancel(orderID)

	if err := c.commitAssignment(ctx, orderID, riderID); err != nil {
		c.log.Error("assignment commit failed, tearing down",
			"orderId", orderID.String(), "riderId", riderID.String(), "error", err)
		c.rollbackAssignment(orderID, riderID)
		return fmt.Errorf("commit assignment: %w", err)
	}

	c.deadlines.Cancel(orderID)
	c.clearDistances(orderID)
	if len(pending) > 0 {
		c.sink.PushToRiders(pending, newOfferRetractedNotification(orderID))
	}
	c.sink.PushToCustomer(customerID, newRiderAssignedNotification(orderID, riderID))
	c.log.Info("rider assigned", "orderId", orderID.String(), "riderId", riderID.String())
	return nil
}

// OnRiderReject handles the current offeree declining their offer and
// moves straight to the next candidate. A reject from anyone but the
// current offeree fails with job.ErrStaleOffer and has no effect; a
// late reject from the right rider is honored since the timeout would
// have dropped them anyway.
func (c *Coordinator) OnRiderReject(ctx context.Context, orderID, riderID kernel.UUID) error {
	if err := c.store.Update(orderID, func(j *job.DeliveryJob) error {
		return j.Reject(riderID)
	}); err != nil {
		return err
	}

	c.offers.Cancel(orderID)
	c.log.Info("offer rejected", "orderId", orderID.String(), "riderId", riderID.String())
	c.offerNext(orderID)
	return nil
}

// ConfirmPickup records that the assigned rider collected the order from
// the vendor. Only the assigned rider may confirm.
func (c *Coordinator) ConfirmPickup(ctx context.Context, orderID, riderID kernel.UUID) error {
	if err := c.validateAssignee(orderID, riderID); err != nil {
		return err
	}

	return c.withBackoff(ctx, func() error {
		uow := c.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return err
		}

		o, err := uow.OrderRepository().Get(ctx, orderID)
		if err != nil {
			_ = uow.Rollback(ctx)
			return permanentIfDomain(err)
		}
		if err := o.ConfirmPickup(); err != nil {
			_ = uow.Rollback(ctx)
			return backoff.Permanent(err)
		}
		if err := uow.OrderRepository().Update(ctx, o); err != nil {
			_ = uow.Rollback(ctx)
			return err
		}
		return uow.Commit(ctx)
	})
}

// Complete handles the assigned rider confirming delivery: the order is
// durably completed, the rider is freed and credited, and the job leaves
// the store. When no in-memory job exists (the engine restarted after
// the order left the dispatchable window) the durable path alone runs,
// validating the rider against the persisted assignment.
func (c *Coordinator) Complete(ctx context.Context, orderID, riderID kernel.UUID) error {
	hasJob := true
	switch err := c.validateAssignee(orderID, riderID); {
	case err == nil:
	case errors.Is(err, errs.ErrObjectNotFound):
		hasJob = false
	default:
		return err
	}

	if err := c.completeDurably(ctx, orderID, riderID); err != nil {
		return err
	}

	if hasJob {
		_ = c.store.Update(orderID, func(j *job.DeliveryJob) error {
			return j.Complete()
		})
		c.deadlines.Cancel(orderID)
		_ = c.store.Remove(orderID)
	}

	c.log.Info("delivery completed", "orderId", orderID.String(), "riderId", riderID.String())
	return nil
}

// Cancel tears down dispatch for an order cancelled upstream: pending
// offers are retracted, a committed assignment is dissolved with the
// rider freed, the order is durably cancelled, and the job leaves the
// store. Safe to call for orders that were never dispatched.
func (c *Coordinator) Cancel(ctx context.Context, orderID kernel.UUID) error {
	var offeree, assignee *kernel.UUID

	err := c.store.Update(orderID, func(j *job.DeliveryJob) error {
		switch j.Status() {
		case job.AwaitingResponse:
			offeree = copyID(j.CurrentOfferee())
			return j.Expire()
		case job.Assigned:
			assignee = copyID(j.CurrentOfferee())
			return j.Unassign()
		case job.Broadcasting, job.Failed:
			return j.Expire()
		default:
			return nil
		}
	})
	if err != nil && !errors.Is(err, errs.ErrObjectNotFound) {
		return err
	}

	c.offers.Cancel(orderID)
	c.cooldowns.Cancel(orderID)
	c.deadlines.Cancel(orderID)
	c.clearDistances(orderID)

	if err := c.cancelDurably(ctx, orderID, assignee); err != nil {
		return err
	}

	if offeree != nil {
		c.sink.PushToRider(*offeree, newOfferRetractedNotification(orderID))
	}
	if assignee != nil {
		c.sink.PushToRider(*assignee, newOfferRetractedNotification(orderID))
	}

	_ = c.store.Remove(orderID)
	c.log.Info("dispatch cancelled", "orderId", orderID.String())
	return nil
}

// HandleRiderOffline reacts to a rider's session ending. An open offer
// held by the rider is treated as a reject; a committed assignment that
// has not reached pickup is dissolved and the order re-enters the
// dispatch cycle immediately.
func (c *Coordinator) HandleRiderOffline(ctx context.Context, riderID kernel.UUID) error {
	if err := c.markRiderOffline(ctx, riderID); err != nil {
		return err
	}

	for _, orderID := range c.store.OrderIDs() {
		c.dropRiderFromJob(ctx, orderID, riderID)
	}
	return nil
}

const (
	riderNotInvolved = iota
	riderHeldOffer
	riderHeldAssignment
)

func (c *Coordinator) dropRiderFromJob(ctx context.Context, orderID, riderID kernel.UUID) {
	involvement := riderNotInvolved
	var customerID kernel.UUID
	var createdAt time.Time

	err := c.store.Update(orderID, func(j *job.DeliveryJob) error {
		offeree := j.CurrentOfferee()
		if offeree == nil || !offeree.IsEqual(riderID) {
			return nil
		}

		customerID = j.CustomerID()
		createdAt = j.CreatedAt()

		switch j.Status() {
		case job.AwaitingResponse:
			involvement = riderHeldOffer
			return j.Reject(riderID)
		case job.Assigned:
			involvement = riderHeldAssignment
			return j.Unassign()
		default:
			return nil
		}
	})
	if err != nil {
		return
	}

	switch involvement {
	case riderHeldOffer:
		c.offers.Cancel(orderID)
		c.log.Info("offeree went offline, rebroadcasting",
			"orderId", orderID.String(), "riderId", riderID.String())
		c.offerNext(orderID)

	case riderHeldAssignment:
		if err := c.dissolveAssignment(ctx, orderID, riderID); err != nil {
			c.log.Error("failed to dissolve assignment of offline rider",
				"orderId", orderID.String(), "riderId", riderID.String(), "error", err)
		}
		c.sink.PushToCustomer(customerID, newDispatchDelayedNotification(
			orderID, 0, time.Now().UTC()))
		c.log.Warn("assigned rider went offline, redispatching",
			"orderId", orderID.String(), "riderId", riderID.String())

		if c.policy.OrderDeadline > 0 {
			c.deadlines.Schedule(orderID, createdAt.Add(c.policy.OrderDeadline))
		}
		if err := c.store.Update(orderID, func(j *job.DeliveryJob) error {
			return j.Requeue()
		}); err == nil {
			c.startCycle(ctx, orderID)
		}
	}
}

// startCycle builds a fresh candidate queue and issues the first offer.
// A cycle that cannot produce any candidate counts as exhausted and
// enters the retry ladder.
func (c *Coordinator) startCycle(ctx context.Context, orderID kernel.UUID) {
	var pickup kernel.GeoPoint
	if err := c.store.Update(orderID, func(j *job.DeliveryJob) error {
		if j.Status() != job.Broadcasting {
			return errNotBroadcasting
		}
		pickup = j.Pickup()
		return nil
	}); err != nil {
		return
	}

	candidates, err := c.findCandidates(ctx, pickup)
	if err != nil {
		if !errors.Is(err, services.ErrNoEligibleRiders) {
			c.log.Error("candidate matching failed",
				"orderId", orderID.String(), "error", err)
		}
		c.exhaustCycle(orderID)
		return
	}

	queue := make([]kernel.UUID, 0, len(candidates))
	dists := make(map[kernel.UUID]float64, len(candidates))
	for _, candidate := range candidates {
		queue = append(queue, candidate.RiderID)
		dists[candidate.RiderID] = candidate.DistanceMeters
	}

	if err := c.store.Update(orderID, func(j *job.DeliveryJob) error {
		return j.SetCandidates(queue)
	}); err != nil {
		return
	}

	c.setDistances(orderID, dists)
	c.log.Info("broadcast cycle started",
		"orderId", orderID.String(), "candidates", len(queue))
	c.offerNext(orderID)
}

func (c *Coordinator) findCandidates(ctx context.Context, pickup kernel.GeoPoint) ([]services.RiderCandidate, error) {
	uow := c.uowFactory.Create()
	riders, err := uow.RiderRepository().GetAllOnline(ctx)
	if err != nil {
		return nil, err
	}
	return c.matcher.FindCandidates(pickup, riders, nil)
}

// offerNext pops the head candidate and opens a time-boxed offer to
// them. An empty queue ends the cycle.
func (c *Coordinator) offerNext(orderID kernel.UUID) {
	expiresAt := time.Now().UTC().Add(c.policy.OfferTTL)

	var offeree kernel.UUID
	var notification ports.Notification
	err := c.store.Update(orderID, func(j *job.DeliveryJob) error {
		id, err := j.BeginOffer(expiresAt)
		if err != nil {
			return err
		}
		offeree = id
		notification = newOfferNotification(j, c.distanceFor(orderID, id), expiresAt)
		return nil
	})

	switch {
	case err == nil:
		c.offers.Schedule(orderID, expiresAt)
		c.sink.PushToRider(offeree, notification)
		c.log.Info("offer issued", "orderId", orderID.String(),
			"riderId", offeree.String(), "expiresAt", expiresAt)

	case errors.Is(err, job.ErrNoCandidatesLeft):
		c.exhaustCycle(orderID)

	case errors.Is(err, errs.ErrObjectNotFound):
		// job removed mid-flight, nothing to do

	default:
		c.log.Warn("offer not issued", "orderId", orderID.String(), "error", err)
	}
}

// exhaustCycle records a cycle that ran out of candidates and either
// schedules the cooldown requeue or fails dispatch for good.
func (c *Coordinator) exhaustCycle(orderID kernel.UUID) {
	var retryCount int
	var customerID kernel.UUID
	if err := c.store.Update(orderID, func(j *job.DeliveryJob) error {
		if err := j.ExhaustCycle(); err != nil {
			return err
		}
		retryCount = j.RetryCount()
		customerID = j.CustomerID()
		return nil
	}); err != nil {
		return
	}

	c.clearDistances(orderID)

	if retryCount < c.policy.MaxCycles {
		nextAttemptAt := time.Now().UTC().Add(c.policy.RetryCooldown)
		c.cooldowns.Schedule(orderID, nextAttemptAt)
		c.sink.PushToCustomer(customerID,
			newDispatchDelayedNotification(orderID, retryCount, nextAttemptAt))
		c.log.Info("cycle exhausted, cooling down", "orderId", orderID.String(),
			"retryCount", retryCount, "nextAttemptAt", nextAttemptAt)
		return
	}

	c.offers.Cancel(orderID)
	c.cooldowns.Cancel(orderID)
	c.deadlines.Cancel(orderID)
	c.sink.PushToCustomer(customerID,
		newDispatchFailedNotification(orderID, "no rider accepted the delivery"))
	c.log.Warn("dispatch failed, retry budget spent",
		"orderId", orderID.String(), "retryCount", retryCount)
	// the terminal job leaves the store so the order can be re-dispatched
	_ = c.store.Remove(orderID)
}

// onOfferTimeout fires when an open offer's response window closes.
// A response that settled the offer first makes this a no-op.
func (c *Coordinator) onOfferTimeout(orderID kernel.UUID) {
	var timedOut kernel.UUID
	if err := c.store.Update(orderID, func(j *job.DeliveryJob) error {
		if id := j.CurrentOfferee(); id != nil {
			timedOut = *id
		}
		return j.ExpireOffer()
	}); err != nil {
		return
	}

	c.sink.PushToRider(timedOut, newOfferRetractedNotification(orderID))
	c.log.Info("offer timed out", "orderId", orderID.String(), "riderId", timedOut.String())
	c.offerNext(orderID)
}

// onCooldownOver fires when the retry cooldown elapses and starts the
// next broadcast cycle.
func (c *Coordinator) onCooldownOver(orderID kernel.UUID) {
	if err := c.store.Update(orderID, func(j *job.DeliveryJob) error {
		return j.Requeue()
	}); err != nil {
		return
	}
	c.startCycle(context.Background(), orderID)
}

// onOrderDeadline fires when the order-level dispatch budget elapses.
// Assignments that settled on the normal accept path cancel this timer,
// so an Assigned job seen here was restored from persistence and its
// assignment is dissolved along with the expiry.
func (c *Coordinator) onOrderDeadline(orderID kernel.UUID) {
	var offeree, assignee *kernel.UUID
	var customerID kernel.UUID
	if err := c.store.Update(orderID, func(j *job.DeliveryJob) error {
		customerID = j.CustomerID()
		switch j.Status() {
		case job.AwaitingResponse:
			offeree = copyID(j.CurrentOfferee())
		case job.Assigned:
			assignee = copyID(j.CurrentOfferee())
			if err := j.Unassign(); err != nil {
				return err
			}
		}
		return j.Expire()
	}); err != nil {
		return
	}

	c.offers.Cancel(orderID)
	c.cooldowns.Cancel(orderID)
	c.clearDistances(orderID)

	if assignee != nil {
		if err := c.dissolveAssignment(context.Background(), orderID, *assignee); err != nil {
			c.log.Error("failed to dissolve expired assignment",
				"orderId", orderID.String(), "riderId", assignee.String(), "error", err)
		}
		c.sink.PushToRider(*assignee, newOfferRetractedNotification(orderID))
	}
	if offeree != nil {
		c.sink.PushToRider(*offeree, newOfferRetractedNotification(orderID))
	}
	c.sink.PushToCustomer(customerID,
		newDispatchFailedNotification(orderID, "order timed out before a rider accepted"))
	c.log.Warn("order deadline elapsed, dispatch expired", "orderId", orderID.String())
	// the terminal job leaves the store so the order can be re-dispatched
	_ = c.store.Remove(orderID)
}

// commitAssignment durably records the accepted assignment: the order
// gains the rider and the rider becomes busy, in one transaction.
// Transient failures are retried with exponential backoff; domain
// conflicts (order cancelled meanwhile) abort immediately.
func (c *Coordinator) commitAssignment(ctx context.Context, orderID, riderID kernel.UUID) error {
	return c.withBackoff(ctx, func() error {
		uow := c.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return err
		}

		o, err := uow.OrderRepository().Get(ctx, orderID)
		if err != nil {
			_ = uow.Rollback(ctx)
			return permanentIfDomain(err)
		}
		r, err := uow.RiderRepository().Get(ctx, riderID)
		if err != nil {
			_ = uow.Rollback(ctx)
			return permanentIfDomain(err)
		}

		if err := o.AssignRider(riderID); err != nil {
			_ = uow.Rollback(ctx)
			return backoff.Permanent(err)
		}
		r.SetBusy(true)

		if err := uow.OrderRepository().Update(ctx, o); err != nil {
			_ = uow.Rollback(ctx)
			return err
		}
		if err := uow.RiderRepository().Update(ctx, r); err != nil {
			_ = uow.Rollback(ctx)
			return err
		}
		return uow.Commit(ctx)
	})
}

// rollbackAssignment tears down an in-memory assignment whose durable
// commit failed and re-enters the retry ladder after the cooldown.
func (c *Coordinator) rollbackAssignment(orderID, riderID kernel.UUID) {
	var customerID kernel.UUID
	var retryCount int
	var createdAt time.Time
	if err := c.store.Update(orderID, func(j *job.DeliveryJob) error {
		customerID = j.CustomerID()
		retryCount = j.RetryCount()
		createdAt = j.CreatedAt()
		return j.Unassign()
	}); err != nil {
		return
	}

	if c.policy.OrderDeadline > 0 {
		c.deadlines.Schedule(orderID, createdAt.Add(c.policy.OrderDeadline))
	}

	nextAttemptAt := time.Now().UTC().Add(c.policy.RetryCooldown)
	c.cooldowns.Schedule(orderID, nextAttemptAt)
	c.sink.PushToRider(riderID, newOfferRetractedNotification(orderID))
	c.sink.PushToCustomer(customerID,
		newDispatchDelayedNotification(orderID, retryCount, nextAttemptAt))
}

// dissolveAssignment durably unwinds a committed assignment: the order
// returns to ReadyForPickup and the rider is freed.
func (c *Coordinator) dissolveAssignment(ctx context.Context, orderID, riderID kernel.UUID) error {
	return c.withBackoff(ctx, func() error {
		uow := c.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return err
		}

		o, err := uow.OrderRepository().Get(ctx, orderID)
		if err != nil {
			_ = uow.Rollback(ctx)
			return permanentIfDomain(err)
		}
		r, err := uow.RiderRepository().Get(ctx, riderID)
		if err != nil {
			_ = uow.Rollback(ctx)
			return permanentIfDomain(err)
		}

		if err := o.UnassignRider(); err != nil {
			_ = uow.Rollback(ctx)
			return backoff.Permanent(err)
		}
		r.SetBusy(false)

		if err := uow.OrderRepository().Update(ctx, o); err != nil {
			_ = uow.Rollback(ctx)
			return err
		}
		if err := uow.RiderRepository().Update(ctx, r); err != nil {
			_ = uow.Rollback(ctx)
			return err
		}
		return uow.Commit(ctx)
	})
}

// completeDurably records the delivery: the order reaches Delivered, the
// rider is freed and credited with the completion. An order still in
// RiderAssigned gets its pickup confirmed implicitly.
func (c *Coordinator) completeDurably(ctx context.Context, orderID, riderID kernel.UUID) error {
	return c.withBackoff(ctx, func() error {
		uow := c.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return err
		}

		o, err := uow.OrderRepository().Get(ctx, orderID)
		if err != nil {
			_ = uow.Rollback(ctx)
			return permanentIfDomain(err)
		}
		if o.Rider() == nil || !o.Rider().IsEqual(riderID) {
			_ = uow.Rollback(ctx)
			return backoff.Permanent(ErrNotAssignedRider)
		}
		r, err := uow.RiderRepository().Get(ctx, riderID)
		if err != nil {
			_ = uow.Rollback(ctx)
			return permanentIfDomain(err)
		}

		if o.Status() == order.RiderAssigned {
			if err := o.ConfirmPickup(); err != nil {
				_ = uow.Rollback(ctx)
				return backoff.Permanent(err)
			}
		}
		if err := o.CompleteDelivery(); err != nil {
			_ = uow.Rollback(ctx)
			return backoff.Permanent(err)
		}
		r.SetBusy(false)
		r.RecordCompletedDelivery()

		if err := uow.OrderRepository().Update(ctx, o); err != nil {
			_ = uow.Rollback(ctx)
			return err
		}
		if err := uow.RiderRepository().Update(ctx, r); err != nil {
			_ = uow.Rollback(ctx)
			return err
		}
		return uow.Commit(ctx)
	})
}

// cancelDurably records the upstream cancellation and frees the assigned
// rider, if any. Orders already terminal are left as they are.
func (c *Coordinator) cancelDurably(ctx context.Context, orderID kernel.UUID, assignee *kernel.UUID) error {
	return c.withBackoff(ctx, func() error {
		uow := c.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return err
		}

		o, err := uow.OrderRepository().Get(ctx, orderID)
		if err != nil {
			_ = uow.Rollback(ctx)
			return permanentIfDomain(err)
		}
		if o.Status().IsTerminal() {
			return uow.Rollback(ctx)
		}
		if err := o.Cancel(); err != nil {
			_ = uow.Rollback(ctx)
			return backoff.Permanent(err)
		}
		if err := uow.OrderRepository().Update(ctx, o); err != nil {
			_ = uow.Rollback(ctx)
			return err
		}

		if assignee != nil {
			r, err := uow.RiderRepository().Get(ctx, *assignee)
			if err != nil {
				_ = uow.Rollback(ctx)
				return permanentIfDomain(err)
			}
			r.SetBusy(false)
			if err := uow.RiderRepository().Update(ctx, r); err != nil {
				_ = uow.Rollback(ctx)
				return err
			}
		}
		return uow.Commit(ctx)
	})
}

func (c *Coordinator) markRiderOffline(ctx context.Context, riderID kernel.UUID) error {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	r, err := uow.RiderRepository().Get(ctx, riderID)
	if err != nil {
		_ = uow.Rollback(ctx)
		return err
	}
	r.GoOffline()

	if err := uow.RiderRepository().Update(ctx, r); err != nil {
		_ = uow.Rollback(ctx)
		return err
	}
	return uow.Commit(ctx)
}

func (c *Coordinator) validateAssignee(orderID, riderID kernel.UUID) error {
	return c.store.Update(orderID, func(j *job.DeliveryJob) error {
		if j.Status() != job.Assigned {
			return ErrNotAssignedRider
		}
		if j.CurrentOfferee() == nil || !j.CurrentOfferee().IsEqual(riderID) {
			return ErrNotAssignedRider
		}
		return nil
	})
}

func (c *Coordinator) withBackoff(ctx context.Context, operation func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.policy.CommitMaxRetries), ctx)
	return backoff.Retry(operation, policy)
}

func (c *Coordinator) setDistances(orderID kernel.UUID, dists map[kernel.UUID]float64) {
	c.mu.Lock()
	c.distances[orderID] = dists
	c.mu.Unlock()
}

func (c *Coordinator) distanceFor(orderID, riderID kernel.UUID) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.distances[orderID][riderID]
}

func (c *Coordinator) clearDistances(orderID kernel.UUID) {
	c.mu.Lock()
	delete(c.distances, orderID)
	c.mu.Unlock()
}

// permanentIfDomain stops backoff retries for errors no retry can fix.
func permanentIfDomain(err error) error {
	if errors.Is(err, errs.ErrObjectNotFound) || errors.Is(err, errs.ErrValueIsInvalid) {
		return backoff.Permanent(err)
	}
	return err
}

func copyID(id *kernel.UUID) *kernel.UUID {
	if id == nil {
		return nil
	}
	copied := *id
	return &copied
}
