package repositories

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"bazaar/internal/models"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// Create adds a new order.
func (r *MockOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.OrderID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOrderID, order.OrderID)
	}
	now := time.Now()
	order.ID = uint(len(r.orders) + 1)
	order.CreatedAt = now
	order.UpdatedAt = now
	r.orders[order.OrderID] = cloneOrder(*order)
	return nil
}

// GetByOrderID returns an order by its order id.
func (r *MockOrderRepository) GetByOrderID(_ context.Context, orderID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	out := cloneOrder(order)
	return &out, nil
}

// GetByGatewayOrderID returns the order created with the given gateway reference.
func (r *MockOrderRepository) GetByGatewayOrderID(_ context.Context, gatewayOrderID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.PaymentGatewayOrderID != nil && *order.PaymentGatewayOrderID == gatewayOrderID {
			out := cloneOrder(order)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: gateway order %s", ErrOrderNotFound, gatewayOrderID)
}

// UpdateByOrderID applies patch unconditionally.
func (r *MockOrderRepository) UpdateByOrderID(_ context.Context, orderID string, patch models.OrderPatch) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	patch.Apply(&order)
	order.UpdatedAt = time.Now()
	r.orders[orderID] = order
	out := cloneOrder(order)
	return &out, nil
}

// TransitionPayment applies patch if the current payment status is in from.
func (r *MockOrderRepository) TransitionPayment(_ context.Context, orderID string, from []models.PaymentStatus, patch models.OrderPatch) (*models.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if !slices.Contains(from, order.PaymentStatus) {
		out := cloneOrder(order)
		return &out, false, nil
	}
	patch.Apply(&order)
	order.UpdatedAt = time.Now()
	r.orders[orderID] = order
	out := cloneOrder(order)
	return &out, true, nil
}

// Delete removes an order. Tests use it to simulate a row vanishing between lookup and update.
func (r *MockOrderRepository) Delete(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, orderID)
}

// Count returns the number of stored orders.
func (r *MockOrderRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

func cloneOrder(o models.Order) models.Order {
	o.Items = slices.Clone(o.Items)
	if o.PaymentGatewayOrderID != nil {
		id := *o.PaymentGatewayOrderID
		o.PaymentGatewayOrderID = &id
	}
	return o
}
