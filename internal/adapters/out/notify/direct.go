// Package notify implements the engine-facing notification sink on top
// of the broadcast gateway. Two strategies are provided: DirectSink for
// inline delivery and QueuedSink for buffered background delivery. Both
// honor the sink contract that pushes never fail the dispatch operation
// that triggered them.
package notify

import (
	"context"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

const publishTimeout = 2 * time.Second

// DirectSink publishes each notification inline with a bounded timeout.
// Failed publishes are logged and dropped.
type DirectSink struct {
	gateway ports.BroadcastGateway
	log     *slog.Logger
}

// NewDirectSink creates an inline-delivery sink.
func NewDirectSink(gateway ports.BroadcastGateway, log *slog.Logger) (*DirectSink, error) {
	if gateway == nil {
		return nil, errs.NewValueIsRequiredError("gateway")
	}
	if log == nil {
		return nil, errs.NewValueIsRequiredError("log")
	}
	return &DirectSink{
		gateway: gateway,
		log:     log.With("component", "direct-sink"),
	}, nil
}

// PushToRider publishes a notification on the rider's channel.
func (s *DirectSink) PushToRider(riderID kernel.UUID, notification ports.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.gateway.PublishToRider(ctx, riderID, notification); err != nil {
		s.log.Error("rider notification dropped",
			"riderId", riderID.String(), "kind", notification.Kind, "error", err)
	}
}

// PushToRiders publishes the notification to every listed rider.
func (s *DirectSink) PushToRiders(riderIDs []kernel.UUID, notification ports.Notification) {
	for _, riderID := range riderIDs {
		s.PushToRider(riderID, notification)
	}
}

// PushToCustomer publishes a notification on the customer's channel.
func (s *DirectSink) PushToCustomer(customerID kernel.UUID, notification ports.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.gateway.PublishToCustomer(ctx, customerID, notification); err != nil {
		s.log.Error("customer notification dropped",
			"customerId", customerID.String(), "kind", notification.Kind, "error", err)
	}
}

// Close implements the sink contract; the direct sink holds no queue.
func (s *DirectSink) Close(context.Context) error {
	return nil
}
