package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

// NotificationKind identifies the type of a dispatch notification so
// consuming apps can route it to the right screen.
type NotificationKind string

// Notification kinds emitted by the dispatch engine.
const (
	// KindJobOffer is sent to a rider when a delivery job is offered to them.
	KindJobOffer NotificationKind = "job_offer"
	// KindOfferRetracted tells a rider their pending offer is no longer valid.
	KindOfferRetracted NotificationKind = "offer_retracted"
	// KindRiderAssigned tells a customer a rider accepted their order.
	KindRiderAssigned NotificationKind = "rider_assigned"
	// KindDispatchDelayed tells a customer a dispatch cycle failed and the
	// order will be retried.
	KindDispatchDelayed NotificationKind = "dispatch_delayed"
	// KindDispatchFailed tells a customer the order could not be dispatched.
	KindDispatchFailed NotificationKind = "dispatch_failed"
)

// Notification is the wire-level message the engine publishes to rider and
// customer apps. Body carries kind-specific fields (offer details, retry
// counts); the envelope fields are common to every kind.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	OrderID string           `json:"orderId"`
	SentAt  time.Time        `json:"sentAt"`
	Body    map[string]any   `json:"body,omitempty"`
}

// BroadcastGateway publishes notifications to per-recipient channels.
// Implementations deliver best-effort: a failed publish is reported but
// never blocks or fails the dispatch operation that triggered it.
type BroadcastGateway interface {
	// PublishToRider publishes a notification on the rider's channel.
	PublishToRider(ctx context.Context, riderID kernel.UUID, notification Notification) error

	// PublishToRiders publishes the same notification on every listed
	// rider's channel, used to retract an offer from the remaining
	// candidates of a settled cycle in one sweep.
	PublishToRiders(ctx context.Context, riderIDs []kernel.UUID, notification Notification) error

	// PublishToCustomer publishes a notification on the customer's channel.
	PublishToCustomer(ctx context.Context, customerID kernel.UUID, notification Notification) error
}
