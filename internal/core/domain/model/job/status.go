package job

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// Status represents the lifecycle state of a delivery job inside the
// dispatch engine. It implements a state machine with defined transitions
// so that every offer cycle follows the dispatch workflow.
//
// State transitions:
//
//	Broadcasting ──> AwaitingResponse ──> Assigned ──> Completed
//	      ^  ^              │                 │
//	      │  └──────────────┘                 │
//	      │   (reject / offer timeout)        │
//	      │                                   v
//	      └────────── Failed <────────────────┘
//	       (retry requeue)    (cancel / rider offline)
//
// Expired is reached from Broadcasting, AwaitingResponse, or Failed when
// the order-level deadline elapses. Completed and Expired are terminal;
// Failed is terminal once the retry budget is spent.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Broadcasting means a candidate queue is being worked through;
	// no rider currently holds an open offer.
	Broadcasting

	// AwaitingResponse means exactly one rider holds a time-boxed open
	// offer and the engine is racing their response against the clock.
	AwaitingResponse

	// Assigned means a rider accepted in time and the assignment was
	// durably committed. No further offers are issued.
	Assigned

	// Expired means the order-level deadline elapsed before any rider
	// accepted. Terminal.
	Expired

	// Failed means the current cycle exhausted its candidates, or an
	// assignment was torn down. Re-enterable via Requeue until the
	// retry budget is spent.
	Failed

	// Completed means the assigned rider's delivery was confirmed. Terminal.
	Completed
)

// getStatusStrings returns a map of Status values to their string representations.
func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:          "Unknown",
		Broadcasting:     "Broadcasting",
		AwaitingResponse: "AwaitingResponse",
		Assigned:         "Assigned",
		Expired:          "Expired",
		Failed:           "Failed",
		Completed:        "Completed",
	}
}

// getValidStatusStrings returns a map of only valid Status values.
func getValidStatusStrings() map[Status]string {
	//nolint:exhaustive // Unknown is intentionally excluded as it's invalid
	return map[Status]string{
		Broadcasting:     "Broadcasting",
		AwaitingResponse: "AwaitingResponse",
		Assigned:         "Assigned",
		Expired:          "Expired",
		Failed:           "Failed",
		Completed:        "Completed",
	}
}

// Validate checks if the Status value is one of the defined statuses.
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

// IsActive reports whether the job is still working toward an assignment.
func (s Status) IsActive() bool {
	return s == Broadcasting || s == AwaitingResponse
}

func (s Status) transitionError(action string) error {
	return errs.NewValueIsInvalidErrorWithCause(
		"status is invalid",
		fmt.Errorf("%s is not a valid status to %s", s.String(), action),
	)
}

// BeginOffer transitions Broadcasting -> AwaitingResponse.
func (s Status) BeginOffer() (Status, error) {
	if s != Broadcasting {
		return 0, s.transitionError("begin an offer")
	}
	return AwaitingResponse, nil
}

// Accept transitions AwaitingResponse -> Assigned.
func (s Status) Accept() (Status, error) {
	if s != AwaitingResponse {
		return 0, s.transitionError("accept")
	}
	return Assigned, nil
}

// Rebroadcast transitions AwaitingResponse -> Broadcasting after a reject
// or offer timeout.
func (s Status) Rebroadcast() (Status, error) {
	if s != AwaitingResponse {
		return 0, s.transitionError("rebroadcast")
	}
	return Broadcasting, nil
}

// Fail transitions Broadcasting -> Failed (candidate queue exhausted) or
// Assigned -> Failed (assignment torn down).
func (s Status) Fail() (Status, error) {
	if s != Broadcasting && s != Assigned {
		return 0, s.transitionError("fail")
	}
	return Failed, nil
}

// Requeue transitions Failed -> Broadcasting for a fresh candidate cycle.
func (s Status) Requeue() (Status, error) {
	if s != Failed {
		return 0, s.transitionError("requeue")
	}
	return Broadcasting, nil
}

// Complete transitions Assigned -> Completed.
func (s Status) Complete() (Status, error) {
	if s != Assigned {
		return 0, s.transitionError("complete")
	}
	return Completed, nil
}

// Expire transitions to Expired when the order-level deadline elapses.
// Valid from the active statuses and from Failed, since the deadline can
// fire while a job waits out the retry cooldown.
func (s Status) Expire() (Status, error) {
	if !s.IsActive() && s != Failed {
		return 0, s.transitionError("expire")
	}
	return Expired, nil
}
