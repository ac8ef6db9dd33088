package order

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Status represents the delivery lifecycle state of an order as persisted
// by the marketplace. It implements a state machine with defined transitions
// so orders follow the correct delivery workflow.
//
// State transitions:
//
//	ReadyForPickup ──> RiderAssigned ──> PickedUp ──> Delivered
//	       ^                │
//	       └────────────────┘
//	        (rider unassigned)
//
// Cancelled is reachable from every non-terminal state.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// ReadyForPickup means the vendor has the order packed and waiting;
	// the order is eligible for rider dispatch.
	ReadyForPickup

	// RiderAssigned means a rider accepted the delivery job but has not
	// confirmed pickup yet. The assignment may still be torn down.
	RiderAssigned

	// PickedUp means the assigned rider confirmed collecting the order
	// from the vendor.
	PickedUp

	// Delivered means the order reached the customer. Terminal.
	Delivered

	// Cancelled means the order was cancelled before delivery. Terminal.
	Cancelled
)

// getStatusStrings returns a map of Status values to their string representations.
func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:        "Unknown",
		ReadyForPickup: "ReadyForPickup",
		RiderAssigned:  "RiderAssigned",
		PickedUp:       "PickedUp",
		Delivered:      "Delivered",
		Cancelled:      "Cancelled",
	}
}

// getValidStatusStrings returns a map of only valid Status values.
func getValidStatusStrings() map[Status]string {
	//nolint:exhaustive // Unknown is intentionally excluded as it's invalid
	return map[Status]string{
		ReadyForPickup: "ReadyForPickup",
		RiderAssigned:  "RiderAssigned",
		PickedUp:       "PickedUp",
		Delivered:      "Delivered",
		Cancelled:      "Cancelled",
	}
}

// Validate checks if the Status value is one of the defined statuses.
// Used to vet values arriving from persistence or external systems.
func (s Status) Validate() error {
	if _, ok := getValidStatusStrings()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the human-readable name of the status.
// Implements the fmt.Stringer interface; safe on any value.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}

// IsDispatchable reports whether the order is in a pre-terminal delivery
// state the dispatch engine cares about: waiting for a rider or assigned
// but not yet picked up.
func (s Status) IsDispatchable() bool {
	return s == ReadyForPickup || s == RiderAssigned
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Cancelled
}

// ValidateAssignRider checks if a rider may be assigned from the current
// status without performing the transition. Assignment is only allowed
// while the order waits at the vendor.
func (s Status) ValidateAssignRider() error {
	if s != ReadyForPickup {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to assign a rider", s.String()),
		)
	}
	return nil
}

// AssignRider transitions the status to RiderAssigned.
// Only valid from ReadyForPickup.
func (s Status) AssignRider() (Status, error) {
	if err := s.ValidateAssignRider(); err != nil {
		return 0, err
	}

	return RiderAssigned, nil
}

// UnassignRider transitions the status back to ReadyForPickup.
// Only valid from RiderAssigned; once the rider confirmed pickup the
// assignment can no longer be dissolved.
func (s Status) UnassignRider() (Status, error) {
	if s != RiderAssigned {
		return 0, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to unassign a rider", s.String()),
		)
	}

	return ReadyForPickup, nil
}

// ConfirmPickup transitions the status to PickedUp.
// Only valid from RiderAssigned.
func (s Status) ConfirmPickup() (Status, error) {
	if s != RiderAssigned {
		return 0, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to confirm pickup", s.String()),
		)
	}

	return PickedUp, nil
}

// CompleteDelivery transitions the status to Delivered.
// Only valid from PickedUp.
func (s Status) CompleteDelivery() (Status, error) {
	if s != PickedUp {
		return 0, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to complete delivery", s.String()),
		)
	}

	return Delivered, nil
}

// Cancel transitions the status to Cancelled.
// Valid from any non-terminal status.
func (s Status) Cancel() (Status, error) {
	if s.IsTerminal() {
		return 0, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to cancel", s.String()),
		)
	}
	if err := s.Validate(); err != nil {
		return 0, err
	}

	return Cancelled, nil
}

// ValidateCanHaveRider validates the consistency between order status and
// rider assignment when restoring from persistence.
//
// Business rules:
//   - ReadyForPickup orders must not have a rider assigned
//   - RiderAssigned, PickedUp, and Delivered orders must have a rider
//   - Cancelled orders may or may not have one
func (s Status) ValidateCanHaveRider(hasRider bool) error {
	if hasRider && s == ReadyForPickup {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to have a rider", s.String()),
		)
	}

	if !hasRider && (s == RiderAssigned || s == PickedUp || s == Delivered) {
		return errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is not a valid status to have no rider", s.String()),
		)
	}

	return nil
}
