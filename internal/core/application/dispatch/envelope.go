package dispatch

import (
	"time"

	"dispatch/internal/core/domain/model/job"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
)

// Envelope builders for the notifications the coordinator publishes.
// Offer bodies carry everything the rider app needs to render the offer
// screen and its countdown without a follow-up request.

func newOfferNotification(j *job.DeliveryJob, distanceMeters float64, expiresAt time.Time) ports.Notification {
	items := make([]map[string]any, 0, len(j.Items()))
	for _, item := range j.Items() {
		items = append(items, map[string]any{
			"name":     item.Name,
			"quantity": item.Quantity,
			"price":    item.Price,
		})
	}

	now := time.Now().UTC()
	return ports.Notification{
		Kind:    ports.KindJobOffer,
		OrderID: j.OrderID().String(),
		SentAt:  now,
		Body: map[string]any{
			"vendorId":       j.VendorID().String(),
			"pickup":         geoBody(j.Pickup()),
			"dropoff":        geoBody(j.Dropoff()),
			"items":          items,
			"deliveryFee":    j.DeliveryFee(),
			"orderTotal":     j.Total(),
			"distanceMeters": distanceMeters,
			"expiresAt":      expiresAt,
			"countdownSec":   int(expiresAt.Sub(now).Round(time.Second).Seconds()),
		},
	}
}

func newOfferRetractedNotification(orderID kernel.UUID) ports.Notification {
	return ports.Notification{
		Kind:    ports.KindOfferRetracted,
		OrderID: orderID.String(),
		SentAt:  time.Now().UTC(),
	}
}

func newRiderAssignedNotification(orderID, riderID kernel.UUID) ports.Notification {
	return ports.Notification{
		Kind:    ports.KindRiderAssigned,
		OrderID: orderID.String(),
		SentAt:  time.Now().UTC(),
		Body: map[string]any{
			"riderId": riderID.String(),
		},
	}
}

func newDispatchDelayedNotification(orderID kernel.UUID, retryCount int, nextAttemptAt time.Time) ports.Notification {
	return ports.Notification{
		Kind:    ports.KindDispatchDelayed,
		OrderID: orderID.String(),
		SentAt:  time.Now().UTC(),
		Body: map[string]any{
			"retryCount":    retryCount,
			"nextAttemptAt": nextAttemptAt,
		},
	}
}

func newDispatchFailedNotification(orderID kernel.UUID, reason string) ports.Notification {
	return ports.Notification{
		Kind:    ports.KindDispatchFailed,
		OrderID: orderID.String(),
		SentAt:  time.Now().UTC(),
		Body: map[string]any{
			"reason": reason,
		},
	}
}

func geoBody(p kernel.GeoPoint) map[string]any {
	return map[string]any{
		"latitude":  p.Latitude(),
		"longitude": p.Longitude(),
	}
}
