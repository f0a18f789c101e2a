package services

import (
	"context"
	"fmt"
	"strconv"

	"bazaar/internal/metrics"
	"bazaar/internal/models"

	"github.com/rs/zerolog/log"
)

// ConfirmResult reports what a confirmation did to the order.
type ConfirmResult struct {
	Order   *models.Order
	Outcome models.PaymentOutcome
	// Applied is false when the order was already in (or past) the confirmed state.
	Applied bool
}

// transition is one row of the payment status table.
type transition struct {
	from  []models.PaymentStatus
	patch models.OrderPatch
}

func transitionFor(v models.Verification) (transition, bool) {
	mode, detail := v.PaymentMode, v.PaymentMethodDetail
	switch v.Outcome {
	case models.PaymentOutcomeSuccess:
		paid, confirmed, pending := models.PaymentStatusPaid, models.OrderStatusConfirmed, models.DeliveryStatusPending
		return transition{
			from: []models.PaymentStatus{models.PaymentStatusNotPaid, models.PaymentStatusFailed},
			patch: models.OrderPatch{
				PaymentStatus:       &paid,
				OrderStatus:         &confirmed,
				DeliveryStatus:      &pending,
				PaymentMode:         &mode,
				PaymentMethodDetail: &detail,
			},
		}, true
	case models.PaymentOutcomeFailed:
		failed, cancelled := models.PaymentStatusFailed, models.OrderStatusCancelled
		return transition{
			from: []models.PaymentStatus{models.PaymentStatusNotPaid},
			patch: models.OrderPatch{
				PaymentStatus:       &failed,
				OrderStatus:         &cancelled,
				PaymentMode:         &mode,
				PaymentMethodDetail: &detail,
			},
		}, true
	default:
		return transition{}, false
	}
}

// ConfirmPayment applies a gateway confirmation to its order. Confirmations may
// arrive repeatedly and concurrently: the status change is a conditional
// update, and only the call that actually moves the order to paid mirrors it.
func (s *OrderService) ConfirmPayment(ctx context.Context, c models.Confirmation) (*ConfirmResult, error) {
	if c.LookupID() == "" {
		return nil, fmt.Errorf("%w: order id", ErrMissingField)
	}

	var (
		order *models.Order
		err   error
	)
	if c.OrderID != "" {
		order, err = s.orders.GetByOrderID(ctx, c.OrderID)
	} else {
		order, err = s.orders.GetByGatewayOrderID(ctx, c.GatewayOrderID)
	}
	if err != nil {
		return nil, err
	}

	logger := log.With().Str("order_id", order.OrderID).Str("source", c.Source).Logger()

	if order.PaymentMethod != models.PaymentMethodOnline {
		metrics.PaymentConfirmations.WithLabelValues("rejected", "false").Inc()
		logger.Warn().Str("payment_method", string(order.PaymentMethod)).Msg("rejected payment confirmation for order not paid online")
		return nil, fmt.Errorf("%w: order %s", ErrNotOnlineOrder, order.OrderID)
	}

	// The confirmation must be for the gateway order this order was created with.
	stored := ""
	if order.PaymentGatewayOrderID != nil {
		stored = *order.PaymentGatewayOrderID
	}
	if stored == "" || (c.GatewayOrderID != "" && c.GatewayOrderID != stored) {
		metrics.PaymentConfirmations.WithLabelValues("unauthentic", "false").Inc()
		logger.Warn().Str("gateway_order_id", c.GatewayOrderID).Msg("rejected payment confirmation for another gateway order")
		return nil, fmt.Errorf("%w: gateway order does not belong to order %s", ErrInvalidSignature, order.OrderID)
	}
	c.GatewayOrderID = stored

	verification, err := s.gateway.VerifyConfirmation(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to verify confirmation for order %s: %w", order.OrderID, err)
	}
	if !verification.Authentic {
		metrics.PaymentConfirmations.WithLabelValues("unauthentic", "false").Inc()
		logger.Warn().Msg("rejected payment confirmation with invalid signature")
		return nil, fmt.Errorf("%w: order %s", ErrInvalidSignature, order.OrderID)
	}

	tr, ok := transitionFor(verification)
	if !ok {
		metrics.PaymentConfirmations.WithLabelValues(string(verification.Outcome), "false").Inc()
		logger.Info().Str("raw_status", c.RawStatus).Msg("payment still pending, order unchanged")
		return &ConfirmResult{Order: order, Outcome: verification.Outcome}, nil
	}

	updated, applied, err := s.orders.TransitionPayment(ctx, order.OrderID, tr.from, tr.patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", order.OrderID, err)
	}
	metrics.PaymentConfirmations.WithLabelValues(string(verification.Outcome), strconv.FormatBool(applied)).Inc()
	if s.statuses != nil {
		if err := s.statuses.DeleteStatus(ctx, order.OrderID); err != nil {
			logger.Warn().Err(err).Msg("failed to drop cached payment status")
		}
	}

	if !applied {
		logger.Info().
			Str("payment_status", string(updated.PaymentStatus)).
			Str("outcome", string(verification.Outcome)).
			Msg("duplicate or stale confirmation, order unchanged")
		return &ConfirmResult{Order: updated, Outcome: verification.Outcome}, nil
	}

	logger.Info().
		Str("payment_status", string(updated.PaymentStatus)).
		Str("order_status", string(updated.OrderStatus)).
		Msg("payment confirmation applied")

	switch verification.Outcome {
	case models.PaymentOutcomeSuccess:
		s.mirror(ctx, updated)
		s.publish(ctx, EventOrderConfirmed, newOrderEvent(updated, s.now()))
	case models.PaymentOutcomeFailed:
		s.publish(ctx, EventOrderPaymentFailed, newOrderEvent(updated, s.now()))
	}
	return &ConfirmResult{Order: updated, Outcome: verification.Outcome, Applied: true}, nil
}
