package services

import (
	"errors"
	"sort"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"
)

// ErrNoEligibleRiders is returned when no rider can be offered the job.
// This occurs when no riders are online, all are mid-delivery, none have a
// known location, or every eligible rider is excluded for the current cycle.
var ErrNoEligibleRiders = errors.New("no eligible riders found")

// RiderCandidate is a scoring record produced per dispatch cycle: the
// rider's identity plus the figures the candidate ordering is computed
// from. Ephemeral, never persisted.
type RiderCandidate struct {
	RiderID         kernel.UUID
	DistanceMeters  float64
	Rating          float64
	CompletedOrders int
	Location        kernel.GeoPoint
}

// RiderMatcher is a domain service that computes the ordered candidate
// list for a delivery job offer cycle.
//
// Business rules:
//   - Only online riders with a known location are considered
//   - Riders already holding an active job are skipped
//   - Riders excluded for the current cycle (already offered, went
//     offline mid-cycle) are skipped
//   - A rider record that fails validation is skipped, never fatal to
//     the cycle
//   - Candidates are ordered by straight-line distance from the pickup
//     point ascending, breaking ties by rating descending, then by
//     completed-order count descending
//
// The matcher is a pure read over current rider state; it never mutates
// riders and has no side effects.
type RiderMatcher struct{}

// NewRiderMatcher creates a new RiderMatcher instance.
func NewRiderMatcher() RiderMatcher {
	return RiderMatcher{}
}

// FindCandidates returns the ordered candidate list for an offer cycle.
//
// Parameters:
//   - pickup: the vendor pickup location (must be a valid coordinate pair)
//   - riders: current rider state to evaluate
//   - exclude: rider ids to skip for this cycle, keyed by UUID string
//
// Returns ErrNoEligibleRiders when no rider qualifies; the caller treats
// that as an immediate soft dispatch failure rather than entering a retry
// loop with an empty queue.
func (m RiderMatcher) FindCandidates(
	pickup kernel.GeoPoint,
	riders []*rider.Rider,
	exclude map[string]struct{},
) ([]RiderCandidate, error) {
	if err := pickup.Validate(); err != nil {
		return nil, err
	}

	candidates := make([]RiderCandidate, 0, len(riders))
	for _, r := range riders {
		// a single broken rider record never takes the whole cycle down
		if err := r.Validate(); err != nil {
			continue
		}

		if !r.IsAvailableForDispatch() {
			continue
		}
		if _, skip := exclude[r.ID().String()]; skip {
			continue
		}

		distance, err := r.Location().DistanceTo(pickup)
		if err != nil {
			continue
		}

		candidates = append(candidates, RiderCandidate{
			RiderID:         r.ID(),
			DistanceMeters:  distance,
			Rating:          r.Rating(),
			CompletedOrders: r.CompletedOrders(),
			Location:        *r.Location(),
		})
	}

	if len(candidates) == 0 {
		return nil, ErrNoEligibleRiders
	}

	sort.SliceStable(candidates, func(i, k int) bool {
		if candidates[i].DistanceMeters != candidates[k].DistanceMeters {
			return candidates[i].DistanceMeters < candidates[k].DistanceMeters
		}
		if candidates[i].Rating != candidates[k].Rating {
			return candidates[i].Rating > candidates[k].Rating
		}
		return candidates[i].CompletedOrders > candidates[k].CompletedOrders
	})

	return candidates, nil
}
