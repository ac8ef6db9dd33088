package dispatch

import (
	"errors"
	"sync"
	"time"

	"dispatch/internal/core/domain/model/job"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

// ErrJobAlreadyExists is returned when creating a job for an order that
// already has one. Dispatch requests are idempotent per order: the first
// one wins, duplicates are rejected without touching the existing job.
var ErrJobAlreadyExists = errors.New("a delivery job for this order already exists")

// JobView is a read-only snapshot of a job's dispatch state, safe to hand
// out beyond the store's locking discipline.
type JobView struct {
	OrderID        kernel.UUID
	Status         job.Status
	CurrentOfferee *kernel.UUID
	OfferExpiresAt time.Time
	RetryCount     int
	CandidatesLeft int
	CreatedAt      time.Time
	LastActionAt   time.Time
}

// jobEntry pairs a job with the mutex that serializes all access to it.
// removed marks entries that were deleted from the store while a caller
// was still waiting on the mutex.
type jobEntry struct {
	mu      sync.Mutex
	job     *job.DeliveryJob
	removed bool
}

// JobStore is the in-memory home of every live delivery job, keyed by
// order id. It is the engine's single serialization point: Update runs
// the caller's function while holding the job's per-order mutex, so
// rider responses, timer callbacks, and operator actions for the same
// order never interleave. Jobs for different orders proceed in parallel.
//
// The store is purely in-memory; durable state lives in the orders table
// and is rebuilt by the recovery loader on startup.
type JobStore struct {
	mu      sync.RWMutex
	entries map[kernel.UUID]*jobEntry
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{
		entries: make(map[kernel.UUID]*jobEntry),
	}
}

// Create registers a new job under its order id.
// Returns ErrJobAlreadyExists when the order already has a live job.
func (s *JobStore) Create(j *job.DeliveryJob) error {
	if err := j.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[j.OrderID()]; ok {
		return ErrJobAlreadyExists
	}

	s.entries[j.OrderID()] = &jobEntry{job: j}
	return nil
}

// Update runs fn on the order's job while holding its per-order mutex.
// fn must not perform I/O; any error it returns is passed through
// unchanged. Returns an errs.ErrObjectNotFound error when no job exists
// for the order, including when it was removed while waiting on the lock.
func (s *JobStore) Update(orderID kernel.UUID, fn func(j *job.DeliveryJob) error) error {
	s.mu.RLock()
	entry, ok := s.entries[orderID]
	s.mu.RUnlock()
	if !ok {
		return errs.NewObjectNotFoundError("delivery job", orderID.String())
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.removed {
		return errs.NewObjectNotFoundError("delivery job", orderID.String())
	}

	return fn(entry.job)
}

// Remove deletes the order's job from the store. Callers already waiting
// on the job's mutex will observe the removal and fail with not-found.
func (s *JobStore) Remove(orderID kernel.UUID) error {
	s.mu.Lock()
	entry, ok := s.entries[orderID]
	if ok {
		delete(s.entries, orderID)
	}
	s.mu.Unlock()

	if !ok {
		return errs.NewObjectNotFoundError("delivery job", orderID.String())
	}

	entry.mu.Lock()
	entry.removed = true
	entry.mu.Unlock()
	return nil
}

// Snapshot returns a read-only view of the order's job.
func (s *JobStore) Snapshot(orderID kernel.UUID) (JobView, error) {
	var view JobView
	err := s.Update(orderID, func(j *job.DeliveryJob) error {
		view = snapshotLocked(j)
		return nil
	})
	return view, err
}

// List returns snapshots of every job in the store, in no particular order.
func (s *JobStore) List() []JobView {
	s.mu.RLock()
	entries := make([]*jobEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	views := make([]JobView, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		if !entry.removed {
			views = append(views, snapshotLocked(entry.job))
		}
		entry.mu.Unlock()
	}
	return views
}

// OrderIDs returns the ids of all orders with a live job.
func (s *JobStore) OrderIDs() []kernel.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]kernel.UUID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of live jobs.
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func snapshotLocked(j *job.DeliveryJob) JobView {
	var offeree *kernel.UUID
	if id := j.CurrentOfferee(); id != nil {
		copied := *id
		offeree = &copied
	}

	return JobView{
		OrderID:        j.OrderID(),
		Status:         j.Status(),
		CurrentOfferee: offeree,
		OfferExpiresAt: j.OfferExpiresAt(),
		RetryCount:     j.RetryCount(),
		CandidatesLeft: len(j.CandidateQueue()),
		CreatedAt:      j.CreatedAt(),
		LastActionAt:   j.LastActionAt(),
	}
}
