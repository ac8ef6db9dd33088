package ports

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
)

// NotificationSink is the engine-facing side of outbound notifications.
// Pushes are fire-and-forget: the dispatch coordinator must never block
// on, or fail because of, the delivery transport. Implementations decide
// whether delivery happens inline or through a background queue, and they
// own error reporting for failed publishes.
type NotificationSink interface {
	// PushToRider queues a notification for delivery to a rider.
	PushToRider(riderID kernel.UUID, notification Notification)

	// PushToRiders queues the same notification for every listed rider.
	PushToRiders(riderIDs []kernel.UUID, notification Notification)

	// PushToCustomer queues a notification for delivery to a customer.
	PushToCustomer(customerID kernel.UUID, notification Notification)

	// Close drains any queued notifications and releases resources.
	// The context bounds how long draining may take.
	Close(ctx context.Context) error
}
