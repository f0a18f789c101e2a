package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bazaar/internal/metrics"
	"bazaar/internal/models"
	"bazaar/internal/repositories"

	"github.com/rs/zerolog/log"
)

// ProjectUserOrder builds the mirror record for order. Every field gets a
// defined value; optional fields (coordinates, expected date) are left nil when unknown.
func ProjectUserOrder(order *models.Order) models.UserOrderRecord {
	items := make([]models.UserOrderItem, 0, len(order.Items))
	for _, it := range order.Items {
		image := it.ImageURL
		if image == "" {
			image = models.PlaceholderImageURL
		}
		items = append(items, models.UserOrderItem{
			ItemID:        it.ProductID,
			ItemName:      it.Name,
			ImageURL:      image,
			Quantity:      it.Quantity,
			Price:         it.UnitPrice,
			QuantityType:  it.QuantityType,
			QuantityLabel: it.QuantityLabel,
		})
	}

	paymentMethod := order.PaymentMethodDetail
	if paymentMethod == "" {
		paymentMethod = string(order.PaymentMethod)
	}

	details := models.UserDeliveryDetails{
		OrderDate: order.OrderDate,
		Timing:    order.SelectedDeliverySlot,
	}
	if details.OrderDate.IsZero() {
		details.OrderDate = order.CreatedAt
	}
	if !order.ExpectedDeliveryDate.IsZero() {
		d := order.ExpectedDeliveryDate
		details.ExpectedDeliveryDate = &d
	}

	return models.UserOrderRecord{
		OrderID:         order.OrderID,
		OrderStatus:     orDefault(string(order.OrderStatus), string(models.OrderStatusPlaced)),
		PaymentStatus:   orDefault(string(order.PaymentStatus), string(models.PaymentStatusNotPaid)),
		PaymentMethod:   paymentMethod,
		DeliveryStatus:  orDefault(order.DeliveryStatus, models.DeliveryStatusPending),
		DeliveryMethod:  orDefault(order.DeliveryMethod, models.DeliveryMethodDefault),
		ReturnStatus:    orDefault(order.ReturnStatus, models.ReturnStatusNone),
		Items:           items,
		TotalPrice:      order.Subtotal,
		Charges:         order.Charges,
		FinalAmount:     order.FinalAmount,
		DeliveryDetails: details,
		Address: models.UserOrderAddress{
			Name:      order.Address.Name,
			Apartment: order.Address.Apartment,
			Street:    order.Address.Street,
			Type:      order.Address.Type,
			Lat:       nonZero(order.Address.Lat),
			Lon:       nonZero(order.Address.Lon),
			Pincode:   order.Address.Pincode,
			Address:   order.Address.Address,
		},
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func nonZero(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	out := *v
	return &out
}

// mirror appends order to its user's profile. Failures are logged, counted and
// handed to the retry consumer; they never reach the caller.
func (s *OrderService) mirror(ctx context.Context, order *models.Order) {
	logger := log.With().Str("order_id", order.OrderID).Str("user_id", order.UserID).Logger()
	if order.UserID == "" {
		logger.Warn().Msg("order has no user, skipping mirror")
		metrics.MirrorWrites.WithLabelValues("skipped").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.settings.MirrorTimeout)
	defer cancel()

	if err := s.users.AppendOrder(ctx, order.UserID, ProjectUserOrder(order)); err != nil {
		logger.Error().Err(err).Msg("failed to mirror order to user profile")
		metrics.MirrorWrites.WithLabelValues("failed").Inc()
		s.publish(ctx, EventOrderMirrorFailed, MirrorFailedEvent{
			OrderID:    order.OrderID,
			UserID:     order.UserID,
			Error:      err.Error(),
			OccurredAt: s.now(),
		})
		return
	}
	metrics.MirrorWrites.WithLabelValues("ok").Inc()
	logger.Info().Msg("order mirrored to user profile")
}

// RetryMirror handles an order.mirror_failed event. The append is skipped when
// the user's list already holds the order, so redelivery never duplicates it.
// A returned error asks the consumer to redeliver.
func (s *OrderService) RetryMirror(ctx context.Context, body []byte) error {
	var event MirrorFailedEvent
	if err := json.Unmarshal(body, &event); err != nil || event.OrderID == "" {
		log.Error().Err(err).Bytes("body", body).Msg("dropping malformed mirror retry event")
		return nil
	}
	logger := log.With().Str("order_id", event.OrderID).Str("user_id", event.UserID).Logger()

	order, err := s.orders.GetByOrderID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			logger.Warn().Msg("order vanished, dropping mirror retry")
			return nil
		}
		return fmt.Errorf("failed to load order %s for mirror retry: %w", event.OrderID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.settings.MirrorTimeout)
	defer cancel()

	has, err := s.users.HasOrder(ctx, order.UserID, order.OrderID)
	if err != nil {
		return fmt.Errorf("failed to check mirror of order %s: %w", order.OrderID, err)
	}
	if has {
		logger.Info().Msg("order already mirrored")
		return nil
	}

	if err := s.users.AppendOrder(ctx, order.UserID, ProjectUserOrder(order)); err != nil {
		metrics.MirrorWrites.WithLabelValues("failed").Inc()
		if errors.Is(err, repositories.ErrUserNotFound) {
			logger.Error().Err(err).Msg("user missing, dropping mirror retry")
			return nil
		}
		return fmt.Errorf("failed to mirror order %s on retry: %w", order.OrderID, err)
	}
	metrics.MirrorWrites.WithLabelValues("retried").Inc()
	logger.Info().Msg("order mirrored on retry")
	return nil
}
