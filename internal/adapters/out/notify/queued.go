package notify

import (
	"context"
	"log/slog"
	"sync"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

const defaultQueueCapacity = 256

type envelope struct {
	toRider      bool
	recipient    kernel.UUID
	notification ports.Notification
}

// QueuedSink buffers notifications in a bounded channel and delivers
// them from a single background worker. When the buffer is full the
// push is dropped rather than blocking the dispatch engine.
type QueuedSink struct {
	gateway ports.BroadcastGateway
	log     *slog.Logger

	mu     sync.Mutex
	queue  chan envelope
	closed bool
	wg     sync.WaitGroup
}

// NewQueuedSink creates a buffered sink and starts its delivery worker.
// A capacity of zero selects the default buffer size.
func NewQueuedSink(gateway ports.BroadcastGateway, log *slog.Logger, capacity int) (*QueuedSink, error) {
	if gateway == nil {
		return nil, errs.NewValueIsRequiredError("gateway")
	}
	if log == nil {
		return nil, errs.NewValueIsRequiredError("log")
	}
	if capacity < 0 {
		return nil, errs.NewValueIsOutOfRangeError("capacity", capacity, 0, int(^uint(0)>>1))
	}
	if capacity == 0 {
		capacity = defaultQueueCapacity
	}

	s := &QueuedSink{
		gateway: gateway,
		log:     log.With("component", "queued-sink"),
		queue:   make(chan envelope, capacity),
	}
	s.wg.Add(1)
	go s.deliver()
	return s, nil
}

// PushToRider enqueues a notification for the rider's channel.
func (s *QueuedSink) PushToRider(riderID kernel.UUID, notification ports.Notification) {
	s.push(envelope{toRider: true, recipient: riderID, notification: notification})
}

// PushToRiders enqueues the notification for every listed rider.
func (s *QueuedSink) PushToRiders(riderIDs []kernel.UUID, notification ports.Notification) {
	for _, riderID := range riderIDs {
		s.push(envelope{toRider: true, recipient: riderID, notification: notification})
	}
}

// PushToCustomer enqueues a notification for the customer's channel.
func (s *QueuedSink) PushToCustomer(customerID kernel.UUID, notification ports.Notification) {
	s.push(envelope{recipient: customerID, notification: notification})
}

func (s *QueuedSink) push(env envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.queue <- env:
	default:
		s.log.Warn("notification dropped, queue full",
			"recipient", env.recipient.String(), "kind", env.notification.Kind)
	}
}

// Close stops accepting pushes and waits for the worker to drain the
// buffer, or for ctx to expire.
func (s *QueuedSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *QueuedSink) deliver() {
	defer s.wg.Done()

	for env := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)

		var err error
		if env.toRider {
			err = s.gateway.PublishToRider(ctx, env.recipient, env.notification)
		} else {
			err = s.gateway.PublishToCustomer(ctx, env.recipient, env.notification)
		}
		cancel()

		if err != nil {
			s.log.Error("notification dropped",
				"recipient", env.recipient.String(), "kind", env.notification.Kind, "error", err)
		}
	}
}
