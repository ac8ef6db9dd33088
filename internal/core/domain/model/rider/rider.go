package rider

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

const (
	// RatingMin is the lowest possible rider rating.
	RatingMin = 0.0
	// RatingMax is the highest possible rider rating.
	RatingMax = 5.0
)

// Domain errors for rider operations.
var (
	// ErrNameIsRequired is returned when attempting to create a rider without a name.
	ErrNameIsRequired = errs.NewValueIsRequiredError("name")
	// ErrRiderIsNotConstructed is returned when using an improperly initialized Rider.
	ErrRiderIsNotConstructed = errors.New("Rider must be created via NewRider or RestoreRider constructor")
)

// Rider represents a delivery rider in the marketplace.
// It is an aggregate root managing rider identity, availability, and
// last-known location — the state the dispatch engine reads when building
// candidate lists and writes when assigning jobs.
//
// Business rules:
//   - A rider must have a valid UUID and a non-empty name
//   - Rating stays within [RatingMin, RatingMax]
//   - A rider with no known location is never offered a job
//   - A busy rider is mid-delivery and excluded from matching
type Rider struct {
	id   kernel.UUID
	name string

	// online reports whether the rider's app session is active
	online bool
	// busy reports whether the rider currently holds an active delivery job
	busy bool

	// location is the last reported position, nil when never reported
	location *kernel.GeoPoint

	rating          float64
	completedOrders int

	guard guard.ConstructorGuard
}

// NewRider creates a fresh Rider that starts offline, free, unrated, and
// without a known location.
func NewRider(id kernel.UUID, name string) (*Rider, error) {
	r := &Rider{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		r.setID(id),
		r.setName(name),
	); err != nil {
		return nil, err
	}

	return r, nil
}

// RestoreRider reconstructs a Rider aggregate from persistent storage,
// preserving availability, location, and track record.
func RestoreRider(
	id kernel.UUID,
	name string,
	online bool,
	busy bool,
	location *kernel.GeoPoint,
	rating float64,
	completedOrders int,
) (*Rider, error) {
	r := &Rider{
		online: online,
		busy:   busy,
		guard:  guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		r.setID(id),
		r.setName(name),
		r.setLocation(location),
		r.setRating(rating),
		r.setCompletedOrders(completedOrders),
	); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate ensures the Rider was properly constructed through a factory method.
func (r *Rider) Validate() error {
	if r == nil {
		return ErrRiderIsNotConstructed
	}
	return r.guard.Validate(ErrRiderIsNotConstructed)
}

// IsEqual compares two riders by their unique identifiers.
func (r *Rider) IsEqual(other *Rider) bool {
	return other != nil && r.id.IsEqual(other.id)
}

// ID returns the rider's unique identifier.
func (r *Rider) ID() kernel.UUID {
	return r.id
}

// Name returns the rider's display name.
func (r *Rider) Name() string {
	return r.name
}

// IsOnline reports whether the rider's app session is active.
func (r *Rider) IsOnline() bool {
	return r.online
}

// IsBusy reports whether the rider currently holds an active delivery job.
func (r *Rider) IsBusy() bool {
	return r.busy
}

// Location returns the rider's last reported position, or nil when the
// rider has never reported one.
func (r *Rider) Location() *kernel.GeoPoint {
	return r.location
}

// Rating returns the rider's average customer rating.
func (r *Rider) Rating() float64 {
	return r.rating
}

// CompletedOrders returns the rider's lifetime completed delivery count.
func (r *Rider) CompletedOrders() int {
	return r.completedOrders
}

// IsAvailableForDispatch reports whether the rider can be offered a job:
// online, not mid-delivery, and with a known location.
func (r *Rider) IsAvailableForDispatch() bool {
	return r.online && !r.busy && r.location != nil
}

// GoOnline marks the rider's session as active.
func (r *Rider) GoOnline() {
	r.online = true
}

// GoOffline marks the rider's session as inactive.
func (r *Rider) GoOffline() {
	r.online = false
}

// SetBusy records whether the rider holds an active delivery job.
// Set when an assignment commits, cleared on completion or teardown.
func (r *Rider) SetBusy(busy bool) {
	r.busy = busy
}

// MoveTo updates the rider's last-known location.
func (r *Rider) MoveTo(location kernel.GeoPoint) error {
	if err := location.Validate(); err != nil {
		return err
	}

	r.location = &location
	return nil
}

// RecordCompletedDelivery increments the lifetime completed delivery count.
func (r *Rider) RecordCompletedDelivery() {
	r.completedOrders++
}

func (r *Rider) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	r.id = id
	return nil
}

func (r *Rider) setName(name string) error {
	if name == "" {
		return ErrNameIsRequired
	}
	r.name = name
	return nil
}

func (r *Rider) setLocation(location *kernel.GeoPoint) error {
	if location == nil {
		return nil
	}
	if err := location.Validate(); err != nil {
		return err
	}
	r.location = location
	return nil
}

func (r *Rider) setRating(rating float64) error {
	if rating < RatingMin || rating > RatingMax {
		return errs.NewValueIsOutOfRangeError("rating", rating, RatingMin, RatingMax)
	}
	r.rating = rating
	return nil
}

func (r *Rider) setCompletedOrders(count int) error {
	if count < 0 {
		return errs.NewValueIsInvalidError("completedOrders")
	}
	r.completedOrders = count
	return nil
}
