// Package redisbus implements the broadcast gateway on Redis pub/sub.
// Every rider and customer app holds a subscription to its own channel;
// the engine publishes offer and status notifications there. Publishes
// are best-effort: Redis pub/sub does not buffer for absent subscribers,
// which matches the engine's fire-and-forget notification contract.
package redisbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"github.com/redis/go-redis/v9"
)

const (
	riderChannelPrefix    = "dispatch:rider:"
	customerChannelPrefix = "dispatch:customer:"
)

// Gateway publishes notifications on per-recipient Redis channels.
type Gateway struct {
	client redis.UniversalClient
}

// NewGateway creates a Redis-backed broadcast gateway.
func NewGateway(client redis.UniversalClient) (*Gateway, error) {
	if client == nil {
		return nil, errs.NewValueIsRequiredError("client")
	}
	return &Gateway{client: client}, nil
}

// PublishToRider publishes a notification on the rider's channel.
func (g *Gateway) PublishToRider(ctx context.Context, riderID kernel.UUID, notification ports.Notification) error {
	return g.publish(ctx, riderChannelPrefix+riderID.String(), notification)
}

// PublishToRiders publishes the notification on every listed rider's
// channel. All channels are attempted; failures are joined.
func (g *Gateway) PublishToRiders(ctx context.Context, riderIDs []kernel.UUID, notification ports.Notification) error {
	var errv error
	for _, riderID := range riderIDs {
		if err := g.PublishToRider(ctx, riderID, notification); err != nil {
			errv = errors.Join(errv, err)
		}
	}
	return errv
}

// PublishToCustomer publishes a notification on the customer's channel.
func (g *Gateway) PublishToCustomer(ctx context.Context, customerID kernel.UUID, notification ports.Notification) error {
	return g.publish(ctx, customerChannelPrefix+customerID.String(), notification)
}

func (g *Gateway) publish(ctx context.Context, channel string, notification ports.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := g.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}
