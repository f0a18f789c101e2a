package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bazaar/internal/models"

	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Create inserts a new order. A clash on order_id yields ErrDuplicateOrderID.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateOrderID, order.OrderID)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByOrderID retrieves a single order by its order id.
func (r *GORMOrderRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	return r.first(ctx, "order_id = ?", orderID)
}

// GetByGatewayOrderID retrieves the order created with the given gateway reference.
func (r *GORMOrderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	return r.first(ctx, "payment_gateway_order_id = ?", gatewayOrderID)
}

// UpdateByOrderID applies patch to the order unconditionally. Payment
// confirmations go through TransitionPayment instead; this is for
// administrative changes such as delivery progress.
func (r *GORMOrderRepository) UpdateByOrderID(ctx context.Context, orderID string, patch models.OrderPatch) (*models.Order, error) {
	cols := patch.Columns()
	if len(cols) > 0 {
		res := r.db.WithContext(ctx).Model(&models.Order{}).Where("order_id = ?", orderID).Updates(cols)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to update order %s: %w", orderID, res.Error)
		}
	}
	// A vanished row surfaces here as ErrOrderNotFound.
	return r.GetByOrderID(ctx, orderID)
}

// TransitionPayment is a conditional update on payment_status.
func (r *GORMOrderRepository) TransitionPayment(ctx context.Context, orderID string, from []models.PaymentStatus, patch models.OrderPatch) (*models.Order, bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ? AND payment_status IN ?", orderID, from).
		Updates(patch.Columns())
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to transition order %s: %w", orderID, res.Error)
	}

	order, err := r.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	return order, res.RowsAffected > 0, nil
}

func (r *GORMOrderRepository) first(ctx context.Context, query string, arg string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where(query, arg).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, arg)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", arg, err)
	}
	return &order, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
