package repositories

import (
	"context"
	"errors"

	"bazaar/internal/models"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicateOrderID = errors.New("duplicate order id")
)

// OrderRepository is the authoritative order store. OrderID is unique.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	UpdateByOrderID(ctx context.Context, orderID string, patch models.OrderPatch) (*models.Order, error)
	// TransitionPayment applies patch only while the order's payment status is
	// one of from. It reports whether the row changed; a false result with a
	// nil error means the order exists but was not in an allowed state.
	TransitionPayment(ctx context.Context, orderID string, from []models.PaymentStatus, patch models.OrderPatch) (*models.Order, bool, error)
}
