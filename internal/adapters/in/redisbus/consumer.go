// Package redisbus consumes rider responses published on Redis and
// routes them into the dispatch engine. Rider apps answer an offer by
// publishing an accept or reject message on the shared response
// channel; stale or malformed responses are logged and ignored so one
// bad client cannot stall the consumer.
package redisbus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"dispatch/internal/core/application/dispatch"
	"dispatch/internal/core/domain/model/job"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"

	"github.com/redis/go-redis/v9"
)

const responseChannel = "dispatch:responses"

const (
	actionAccept = "accept"
	actionReject = "reject"
)

type riderResponse struct {
	OrderID string `json:"orderId"`
	RiderID string `json:"riderId"`
	Action  string `json:"action"`
}

// ResponseConsumer subscribes to the rider response channel and feeds
// accept and reject messages to the dispatch coordinator.
type ResponseConsumer struct {
	client      redis.UniversalClient
	coordinator *dispatch.Coordinator
	log         *slog.Logger

	pubsub *redis.PubSub
	wg     sync.WaitGroup
}

// NewResponseConsumer creates a consumer; call Start to begin reading.
func NewResponseConsumer(client redis.UniversalClient, coordinator *dispatch.Coordinator, log *slog.Logger) (*ResponseConsumer, error) {
	if client == nil {
		return nil, errs.NewValueIsRequiredError("client")
	}
	if coordinator == nil {
		return nil, errs.NewValueIsRequiredError("coordinator")
	}
	if log == nil {
		return nil, errs.NewValueIsRequiredError("log")
	}
	return &ResponseConsumer{
		client:      client,
		coordinator: coordinator,
		log:         log.With("component", "response-consumer"),
	}, nil
}

// Start subscribes to the response channel and spawns the read loop.
func (c *ResponseConsumer) Start(ctx context.Context) error {
	c.pubsub = c.client.Subscribe(ctx, responseChannel)

	// Force the subscription onto the wire before declaring readiness.
	if _, err := c.pubsub.Receive(ctx); err != nil {
		_ = c.pubsub.Close()
		return err
	}

	c.wg.Add(1)
	go c.consume()
	c.log.Info("rider response consumer started", "channel", responseChannel)
	return nil
}

// Stop closes the subscription and waits for the read loop to exit.
func (c *ResponseConsumer) Stop() {
	if c.pubsub == nil {
		return
	}
	_ = c.pubsub.Close()
	c.wg.Wait()
}

func (c *ResponseConsumer) consume() {
	defer c.wg.Done()

	for msg := range c.pubsub.Channel() {
		c.handle(msg.Payload)
	}
}

func (c *ResponseConsumer) handle(payload string) {
	var response riderResponse
	if err := json.Unmarshal([]byte(payload), &response); err != nil {
		c.log.Warn("discarding malformed rider response", "error", err)
		return
	}

	orderID, err := kernel.UUIDFromString(response.OrderID)
	if err != nil {
		c.log.Warn("discarding rider response with bad order id", "orderId", response.OrderID)
		return
	}
	riderID, err := kernel.UUIDFromString(response.RiderID)
	if err != nil {
		c.log.Warn("discarding rider response with bad rider id", "riderId", response.RiderID)
		return
	}

	ctx := context.Background()
	switch response.Action {
	case actionAccept:
		err = c.coordinator.OnRiderAccept(ctx, orderID, riderID)
	case actionReject:
		err = c.coordinator.OnRiderReject(ctx, orderID, riderID)
	default:
		c.log.Warn("discarding rider response with unknown action", "action", response.Action)
		return
	}

	switch {
	case err == nil:
	case errors.Is(err, job.ErrStaleOffer), errors.Is(err, errs.ErrObjectNotFound):
		c.log.Debug("ignoring stale rider response",
			"orderId", response.OrderID, "riderId", response.RiderID, "action", response.Action)
	default:
		c.log.Error("rider response failed",
			"orderId", response.OrderID, "riderId", response.RiderID,
			"action", response.Action, "error", err)
	}
}
