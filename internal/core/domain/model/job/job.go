package job

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/guard"
)

// Domain errors for delivery job operations.
var (
	// ErrJobIsNotConstructed is returned when using an improperly initialized DeliveryJob.
	ErrJobIsNotConstructed = errors.New("DeliveryJob must be created via NewDeliveryJob or RestoreAssignedJob constructor")

	// ErrStaleOffer is returned when an accept or reject references an offer
	// that is no longer current: the job is not awaiting a response, the
	// responder is not the current offeree, or the offer already expired.
	// Stale responses are ignored with no side effect.
	ErrStaleOffer = errors.New("stale offer: no matching open offer for this rider")

	// ErrNoCandidatesLeft is returned when advancing an empty candidate queue.
	ErrNoCandidatesLeft = errors.New("candidate queue is exhausted")
)

// DeliveryJob is one order's journey through the offer/assignment cycle.
// It snapshots the order fields riders need to see, tracks the ordered
// candidate queue, and enforces the offer state machine.
//
// Key invariants:
//   - At most one rider holds an open, non-expired offer at any instant
//     (currentOfferee is set only while AwaitingResponse)
//   - Once Assigned, no further offers are issued absent an explicit
//     teardown
//   - All mutations flow through the dispatch coordinator, serialized per
//     order by the job store
type DeliveryJob struct {
	orderID    kernel.UUID
	vendorID   kernel.UUID
	customerID kernel.UUID

	pickup  kernel.GeoPoint
	dropoff kernel.GeoPoint

	items       []order.Item
	deliveryFee float64
	total       float64

	status Status

	// candidateQueue holds rider ids not yet offered this cycle, most
	// eligible first
	candidateQueue []kernel.UUID

	// currentOfferee is the rider holding the open offer, nil unless
	// AwaitingResponse
	currentOfferee *kernel.UUID

	// offerExpiresAt is the open offer's deadline; zero unless AwaitingResponse
	offerExpiresAt time.Time

	// retryCount is the number of full broadcast cycles already exhausted
	retryCount int

	createdAt    time.Time
	lastActionAt time.Time

	guard guard.ConstructorGuard
}

// NewDeliveryJob creates a job for an order entering the dispatch cycle.
// The job starts in Broadcasting with an empty candidate queue; the
// coordinator populates candidates before issuing the first offer.
// The order must be in ReadyForPickup status.
func NewDeliveryJob(o *order.Order) (*DeliveryJob, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if err := o.Status().ValidateAssignRider(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &DeliveryJob{
		orderID:      o.ID(),
		vendorID:     o.VendorID(),
		customerID:   o.CustomerID(),
		pickup:       o.Pickup(),
		dropoff:      o.Dropoff(),
		items:        o.Items(),
		deliveryFee:  o.DeliveryFee(),
		total:        o.Total(),
		status:       Broadcasting,
		createdAt:    now,
		lastActionAt: now,
		guard:        guard.NewConstructorGuard(),
	}, nil
}

// RestoreAssignedJob reconstructs a job for an order that already has a
// committed rider assignment, typically during recovery after a restart.
// The job is restored directly into Assigned with the persisted rider as
// offeree history; no offer timer is attached (the assignment is settled,
// the rider just has not confirmed pickup yet).
func RestoreAssignedJob(o *order.Order, createdAt time.Time) (*DeliveryJob, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if o.Status() != order.RiderAssigned || o.Rider() == nil {
		return nil, errors.New("order has no committed rider assignment to restore")
	}

	riderID := *o.Rider()
	return &DeliveryJob{
		orderID:        o.ID(),
		vendorID:       o.VendorID(),
		customerID:     o.CustomerID(),
		pickup:         o.Pickup(),
		dropoff:        o.Dropoff(),
		items:          o.Items(),
		deliveryFee:    o.DeliveryFee(),
		total:          o.Total(),
		status:         Assigned,
		currentOfferee: &riderID,
		createdAt:      createdAt,
		lastActionAt:   time.Now().UTC(),
		guard:          guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the DeliveryJob was properly constructed through a factory method.
func (j *DeliveryJob) Validate() error {
	if j == nil {
		return ErrJobIsNotConstructed
	}
	return j.guard.Validate(ErrJobIsNotConstructed)
}

// OrderID returns the order this job dispatches. Unique job key.
func (j *DeliveryJob) OrderID() kernel.UUID {
	return j.orderID
}

// VendorID returns the vendor the order is picked up from.
func (j *DeliveryJob) VendorID() kernel.UUID {
	return j.vendorID
}

// CustomerID returns the customer the order is delivered to.
func (j *DeliveryJob) CustomerID() kernel.UUID {
	return j.customerID
}

// Pickup returns the vendor pickup location.
func (j *DeliveryJob) Pickup() kernel.GeoPoint {
	return j.pickup
}

// Dropoff returns the customer delivery location.
func (j *DeliveryJob) Dropoff() kernel.GeoPoint {
	return j.dropoff
}

// Items returns the itemized payload for rider display.
func (j *DeliveryJob) Items() []order.Item {
	return j.items
}

// DeliveryFee returns the rider compensation for the trip.
func (j *DeliveryJob) DeliveryFee() float64 {
	return j.deliveryFee
}

// Total returns the monetary order total.
func (j *DeliveryJob) Total() float64 {
	return j.total
}

// Status returns the job's current lifecycle state.
func (j *DeliveryJob) Status() Status {
	return j.status
}

// CandidateQueue returns the rider ids not yet offered this cycle.
func (j *DeliveryJob) CandidateQueue() []kernel.UUID {
	return j.candidateQueue
}

// CurrentOfferee returns the rider holding the open offer (or the
// committed assignee once Assigned), nil otherwise.
func (j *DeliveryJob) CurrentOfferee() *kernel.UUID {
	return j.currentOfferee
}

// OfferExpiresAt returns the open offer's deadline; zero when no offer is open.
func (j *DeliveryJob) OfferExpiresAt() time.Time {
	return j.offerExpiresAt
}

// RetryCount returns the number of broadcast cycles already exhausted.
func (j *DeliveryJob) RetryCount() int {
	return j.retryCount
}

// CreatedAt returns when the job entered the dispatch cycle.
func (j *DeliveryJob) CreatedAt() time.Time {
	return j.createdAt
}

// LastActionAt returns when the job last transitioned.
func (j *DeliveryJob) LastActionAt() time.Time {
	return j.lastActionAt
}

// HasOpenOffer reports whether a rider currently holds a non-expired offer.
func (j *DeliveryJob) HasOpenOffer(now time.Time) bool {
	return j.status == AwaitingResponse && now.Before(j.offerExpiresAt)
}

// SetCandidates replaces the candidate queue for the current cycle.
// Only valid while Broadcasting.
func (j *DeliveryJob) SetCandidates(queue []kernel.UUID) error {
	if j.status != Broadcasting {
		return j.status.transitionError("set candidates")
	}

	j.candidateQueue = queue
	j.touch()
	return nil
}

// BeginOffer pops the head candidate and opens a time-boxed offer to them,
// moving the job to AwaitingResponse. Returns ErrNoCandidatesLeft when the
// queue is empty.
func (j *DeliveryJob) BeginOffer(expiresAt time.Time) (kernel.UUID, error) {
	if len(j.candidateQueue) == 0 {
		return kernel.UUID{}, ErrNoCandidatesLeft
	}

	newStatus, err := j.status.BeginOffer()
	if err != nil {
		return kernel.UUID{}, err
	}

	offeree := j.candidateQueue[0]
	j.candidateQueue = j.candidateQueue[1:]
	j.status = newStatus
	j.currentOfferee = &offeree
	j.offerExpiresAt = expiresAt
	j.touch()
	return offeree, nil
}

// Accept honors an accept response from riderID. Only the current offeree,
// while AwaitingResponse and before the offer deadline, may accept; any
// other response is rejected with ErrStaleOffer and no state change.
// On success the job moves to Assigned and the open offer is closed.
func (j *DeliveryJob) Accept(riderID kernel.UUID, now time.Time) error {
	if err := j.validateResponse(riderID, now); err != nil {
		return err
	}

	newStatus, err := j.status.Accept()
	if err != nil {
		return ErrStaleOffer
	}

	j.status = newStatus
	j.offerExpiresAt = time.Time{}
	j.touch()
	return nil
}

// Reject honors an explicit reject from the current offeree, returning the
// job to Broadcasting so the next candidate can be offered. A reject from
// anyone else, or outside AwaitingResponse, fails with ErrStaleOffer.
// Late rejects (after the deadline) are accepted: the timeout would drop
// the candidate anyway.
func (j *DeliveryJob) Reject(riderID kernel.UUID) error {
	if j.status != AwaitingResponse || j.currentOfferee == nil || !j.currentOfferee.IsEqual(riderID) {
		return ErrStaleOffer
	}

	newStatus, err := j.status.Rebroadcast()
	if err != nil {
		return ErrStaleOffer
	}

	j.status = newStatus
	j.currentOfferee = nil
	j.offerExpiresAt = time.Time{}
	j.touch()
	return nil
}

// ExpireOffer closes an open offer whose deadline fired, returning the job
// to Broadcasting. Returns ErrStaleOffer if no offer is open (the timer
// was superseded by a response that already settled the offer).
func (j *DeliveryJob) ExpireOffer() error {
	if j.status != AwaitingResponse {
		return ErrStaleOffer
	}

	newStatus, err := j.status.Rebroadcast()
	if err != nil {
		return ErrStaleOffer
	}

	j.status = newStatus
	j.currentOfferee = nil
	j.offerExpiresAt = time.Time{}
	j.touch()
	return nil
}

// ExhaustCycle records that the current cycle ran out of candidates,
// incrementing the retry count and moving the job to Failed. The caller
// decides between a cooldown requeue and terminal failure based on the
// configured retry budget.
func (j *DeliveryJob) ExhaustCycle() error {
	if j.status != Broadcasting {
		return j.status.transitionError("exhaust cycle")
	}

	newStatus, err := j.status.Fail()
	if err != nil {
		return err
	}

	j.status = newStatus
	j.retryCount++
	j.currentOfferee = nil
	j.offerExpiresAt = time.Time{}
	j.touch()
	return nil
}

// Requeue re-enters Broadcasting from Failed for a fresh candidate cycle.
func (j *DeliveryJob) Requeue() error {
	newStatus, err := j.status.Requeue()
	if err != nil {
		return err
	}

	j.status = newStatus
	j.candidateQueue = nil
	j.touch()
	return nil
}

// Unassign tears down a committed assignment (order cancelled, rider went
// offline before pickup), moving the job to Failed.
func (j *DeliveryJob) Unassign() error {
	if j.status != Assigned {
		return j.status.transitionError("unassign")
	}

	newStatus, err := j.status.Fail()
	if err != nil {
		return err
	}

	j.status = newStatus
	j.currentOfferee = nil
	j.touch()
	return nil
}

// Complete records the assigned rider's delivery confirmation. Terminal.
func (j *DeliveryJob) Complete() error {
	newStatus, err := j.status.Complete()
	if err != nil {
		return err
	}

	j.status = newStatus
	j.touch()
	return nil
}

// Expire ends an active job whose order-level deadline elapsed. Terminal.
func (j *DeliveryJob) Expire() error {
	newStatus, err := j.status.Expire()
	if err != nil {
		return err
	}

	j.status = newStatus
	j.currentOfferee = nil
	j.offerExpiresAt = time.Time{}
	j.touch()
	return nil
}

// validateResponse enforces the race policy: only the current offeree of a
// live, non-expired offer may respond.
func (j *DeliveryJob) validateResponse(riderID kernel.UUID, now time.Time) error {
	if j.status != AwaitingResponse {
		return ErrStaleOffer
	}
	if j.currentOfferee == nil || !j.currentOfferee.IsEqual(riderID) {
		return ErrStaleOffer
	}
	if !now.Before(j.offerExpiresAt) {
		return ErrStaleOffer
	}
	return nil
}

func (j *DeliveryJob) touch() {
	j.lastActionAt = time.Now().UTC()
}
