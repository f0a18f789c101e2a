package services

import (
	"context"
	"time"

	"bazaar/internal/models"

	"github.com/rs/zerolog/log"
)

// Routing keys of the events published on the order exchange.
const (
	EventOrderCreated       = "order.created"
	EventOrderConfirmed     = "order.confirmed"
	EventOrderPaymentFailed = "order.payment_failed"
	EventOrderMirrorFailed  = "order.mirror_failed"
)

// OrderEvent is the payload of every order lifecycle event.
type OrderEvent struct {
	OrderID       string               `json:"orderId"`
	UserID        string               `json:"userId"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	OrderStatus   models.OrderStatus   `json:"orderStatus"`
	FinalAmount   float64              `json:"finalAmount"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

// MirrorFailedEvent asks the retry consumer to mirror an order again.
type MirrorFailedEvent struct {
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurredAt"`
}

func newOrderEvent(order *models.Order, at time.Time) OrderEvent {
	return OrderEvent{
		OrderID:       order.OrderID,
		UserID:        order.UserID,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		OrderStatus:   order.OrderStatus,
		FinalAmount:   order.FinalAmount,
		OccurredAt:    at,
	}
}

// publish is best effort: a failed publication is logged and otherwise ignored.
func (s *OrderService) publish(ctx context.Context, routingKey string, event interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, routingKey, event); err != nil {
		log.Warn().Err(err).Str("routing_key", routingKey).Msg("failed to publish order event")
	}
}
