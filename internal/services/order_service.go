package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bazaar/internal/metrics"
	"bazaar/internal/models"
	"bazaar/internal/payment"
	"bazaar/internal/pricing"
	"bazaar/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Settings are the tunables of the order workflow.
type Settings struct {
	Charges       pricing.ChargeConfig
	CODMaxAmount  float64
	Location      *time.Location
	MirrorTimeout time.Duration
}

// Dependencies are the collaborators of OrderService. Idempotency, Statuses
// and Events are optional.
type Dependencies struct {
	Orders      repositories.OrderRepository
	Products    repositories.ProductRepository
	Users       repositories.UserRepository
	Gateway     payment.Gateway
	Idempotency IdempotencyStore
	Statuses    StatusCache
	Events      EventPublisher
}

// OrderService runs the order workflow: intake, pricing, payment session,
// persistence, confirmation and mirroring into the user store.
type OrderService struct {
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	users    repositories.UserRepository
	gateway  payment.Gateway
	idem     IdempotencyStore
	statuses StatusCache
	events   EventPublisher
	settings Settings
	now      func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(deps Dependencies, settings Settings) *OrderService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.MirrorTimeout <= 0 {
		settings.MirrorTimeout = 5 * time.Second
	}
	return &OrderService{
		orders:   deps.Orders,
		products: deps.Products,
		users:    deps.Users,
		gateway:  deps.Gateway,
		idem:     deps.Idempotency,
		statuses: deps.Statuses,
		events:   deps.Events,
		settings: settings,
		now:      time.Now,
	}
}

// SetClock replaces the service clock, for tests.
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateOrderInput is a validated create-order request.
type CreateOrderInput struct {
	UserID         string
	Cart           []models.CartLine
	Customer       models.Customer
	Address        models.Address
	DeliverySlot   models.DeliverySlot
	DeliveryMethod string
	IdempotencyKey string
}

// CreateOrderResult is returned to the client after an order is persisted.
type CreateOrderResult struct {
	OrderID        string               `json:"orderId"`
	PaymentMethod  models.PaymentMethod `json:"paymentMethod"`
	Gateway        string               `json:"gateway,omitempty"`
	GatewayOrderID string               `json:"gatewayOrderId,omitempty"`
	SessionToken   string               `json:"sessionToken,omitempty"`
	KeyID          string               `json:"keyId,omitempty"`
	Subtotal       float64              `json:"subtotal"`
	FinalAmount    float64              `json:"finalAmount"`
	// Replayed is set when the result comes from an earlier request with the same Idempotency-Key.
	Replayed bool `json:"-"`
}

// CreateOrder places an online order: the cart is priced, a payment session
// is opened with the gateway and the order is stored as not_paid/placed.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	return s.create(ctx, in, models.PaymentMethodOnline)
}

// CreateCODOrder places a cash on delivery order. No gateway is involved and
// the order is stored confirmed, then mirrored before returning.
func (s *OrderService) CreateCODOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	return s.create(ctx, in, models.PaymentMethodCOD)
}

func (s *OrderService) create(ctx context.Context, in CreateOrderInput, method models.PaymentMethod) (result *CreateOrderResult, err error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	orderDate := s.now()
	expected, err := ExpectedDeliveryDate(orderDate, in.DeliverySlot, s.settings.Location)
	if err != nil {
		return nil, err
	}

	scope := string(method) + ":" + in.UserID
	if in.IdempotencyKey != "" && s.idem != nil {
		replayed, err := s.claimIdempotencyKey(ctx, scope, in.IdempotencyKey)
		if err != nil || replayed != nil {
			return replayed, err
		}
		defer func() {
			if err != nil {
				if relErr := s.idem.Release(context.WithoutCancel(ctx), scope, in.IdempotencyKey); relErr != nil {
					log.Warn().Err(relErr).Str("idempotency_key", in.IdempotencyKey).Msg("failed to release idempotency key")
				}
			}
		}()
	}

	catalog, err := s.products.FetchProducts(ctx, in.Customer.Pincode, productIDs(in.Cart))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products for pincode %s: %w", in.Customer.Pincode, err)
	}
	totals, err := pricing.ComputeOrderTotals(in.Cart, catalog, s.settings.Charges)
	if err != nil {
		return nil, err
	}
	if method == models.PaymentMethodCOD && s.settings.CODMaxAmount > 0 && totals.Subtotal > s.settings.CODMaxAmount {
		return nil, fmt.Errorf("%w: subtotal %.2f exceeds %.2f", ErrAboveCODLimit, totals.Subtotal, s.settings.CODMaxAmount)
	}

	prefix := models.OrderPrefixOnline
	if method == models.PaymentMethodCOD {
		prefix = models.OrderPrefixCOD
	}
	orderID, err := s.newOrderID(ctx, prefix, orderDate)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderID:              orderID,
		UserID:               in.UserID,
		Items:                totals.Items,
		Customer:             in.Customer,
		Address:              in.Address,
		Subtotal:             totals.Subtotal,
		Charges:              totals.Charges,
		FinalAmount:          totals.FinalAmount,
		PaymentMethod:        method,
		PaymentStatus:        models.PaymentStatusNotPaid,
		OrderStatus:          models.OrderStatusPlaced,
		DeliveryMethod:       orDefault(in.DeliveryMethod, models.DeliveryMethodDefault),
		SelectedDeliverySlot: in.DeliverySlot,
		ReturnStatus:         models.ReturnStatusNone,
		OrderDate:            orderDate,
		ExpectedDeliveryDate: expected,
	}
	result = &CreateOrderResult{
		OrderID:       orderID,
		PaymentMethod: method,
		Subtotal:      totals.Subtotal,
		FinalAmount:   totals.FinalAmount,
	}

	if method == models.PaymentMethodCOD {
		order.OrderStatus = models.OrderStatusConfirmed
		order.DeliveryStatus = models.DeliveryStatusPending
		order.PaymentMode = "COD"
		order.PaymentMethodDetail = string(models.PaymentMethodCOD)
	} else {
		session, err := s.gateway.CreatePaymentSession(ctx, orderID, totals.FinalAmount, in.Customer)
		if err != nil {
			return nil, fmt.Errorf("failed to create payment session for order %s: %w", orderID, err)
		}
		gatewayOrderID := session.GatewayOrderID
		order.Gateway = session.Gateway
		order.PaymentGatewayOrderID = &gatewayOrderID
		order.PaymentSessionID = session.SessionToken
		result.Gateway = session.Gateway
		result.GatewayOrderID = session.GatewayOrderID
		result.SessionToken = session.SessionToken
		result.KeyID = session.PublicKey
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order in repository: %w", err)
	}
	metrics.OrdersCreated.WithLabelValues(string(method)).Inc()
	log.Info().
		Str("order_id", orderID).
		Str("user_id", in.UserID).
		Str("payment_method", string(method)).
		Float64("final_amount", totals.FinalAmount).
		Msg("order created")

	if method == models.PaymentMethodCOD {
		s.mirror(ctx, order)
	}
	s.publish(ctx, EventOrderCreated, newOrderEvent(order, s.now()))

	if in.IdempotencyKey != "" && s.idem != nil {
		if raw, mErr := json.Marshal(result); mErr == nil {
			if rErr := s.idem.Remember(ctx, scope, in.IdempotencyKey, string(raw)); rErr != nil {
				log.Warn().Err(rErr).Str("order_id", orderID).Msg("failed to remember idempotent result")
			}
		}
	}
	return result, nil
}

// claimIdempotencyKey returns the remembered result of an earlier request
// with the same key, or locks the key for this request.
func (s *OrderService) claimIdempotencyKey(ctx context.Context, scope, key string) (*CreateOrderResult, error) {
	if raw, ok, err := s.idem.Recall(ctx, scope, key); err != nil {
		log.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency recall failed")
	} else if ok {
		var prev CreateOrderResult
		if err := json.Unmarshal([]byte(raw), &prev); err == nil {
			prev.Replayed = true
			return &prev, nil
		}
	}
	locked, err := s.idem.TryLock(ctx, scope, key)
	if err != nil {
		return nil, fmt.Errorf("failed to lock idempotency key: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrRequestInProgress, key)
	}
	return nil, nil
}

// newOrderID returns PREFIX_<epoch ms>, with a random suffix when that id is already taken.
func (s *OrderService) newOrderID(ctx context.Context, prefix string, at time.Time) (string, error) {
	id := prefix + "_" + strconv.FormatInt(at.UnixMilli(), 10)
	_, err := s.orders.GetByOrderID(ctx, id)
	switch {
	case errors.Is(err, repositories.ErrOrderNotFound):
		return id, nil
	case err != nil:
		return "", fmt.Errorf("failed to check order id %s: %w", id, err)
	}
	return id + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8], nil
}

func validateInput(in CreateOrderInput) error {
	switch {
	case len(in.Cart) == 0:
		return fmt.Errorf("%w: cart", ErrMissingField)
	case in.UserID == "":
		return fmt.Errorf("%w: user_id", ErrMissingField)
	case strings.TrimSpace(in.Customer.Pincode) == "":
		return fmt.Errorf("%w: customer.pincode", ErrMissingField)
	case strings.TrimSpace(in.Customer.Phone) == "":
		return fmt.Errorf("%w: customer.phone", ErrMissingField)
	case in.Address.Address == "" && in.Address.Street == "" && in.Address.Pincode == "":
		return fmt.Errorf("%w: address", ErrMissingField)
	case strings.TrimSpace(in.DeliverySlot.Time) == "":
		return fmt.Errorf("%w: deliveryTime", ErrMissingField)
	}
	for i, line := range in.Cart {
		if line.ProductID == "" {
			return fmt.Errorf("%w: cart[%d].productId", ErrMissingField, i)
		}
	}
	return nil
}

func productIDs(cart []models.CartLine) []string {
	seen := make(map[string]struct{}, len(cart))
	ids := make([]string, 0, len(cart))
	for _, line := range cart {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}

// GetOrder returns the stored order.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.orders.GetByOrderID(ctx, orderID)
}

// PaymentStatus asks the gateway for the status of orderID and returns it upper-cased.
// Answers are cached briefly when a StatusCache is configured.
func (s *OrderService) PaymentStatus(ctx context.Context, orderID string) (string, error) {
	if orderID == "" {
		return "", fmt.Errorf("%w: order_id", ErrMissingField)
	}
	if s.statuses != nil {
		if status, ok, err := s.statuses.GetStatus(ctx, orderID); err == nil && ok {
			return status, nil
		}
	}

	gatewayOrderID := orderID
	order, err := s.orders.GetByOrderID(ctx, orderID)
	switch {
	case err == nil:
		if order.PaymentMethod == models.PaymentMethodCOD {
			return strings.ToUpper(string(order.PaymentStatus)), nil
		}
		if order.PaymentGatewayOrderID != nil && *order.PaymentGatewayOrderID != "" {
			gatewayOrderID = *order.PaymentGatewayOrderID
		}
	case !errors.Is(err, repositories.ErrOrderNotFound):
		return "", err
	}

	raw, err := s.gateway.FetchStatus(ctx, gatewayOrderID)
	if err != nil {
		return "", fmt.Errorf("failed to get payment status of order %s: %w", orderID, err)
	}
	status := strings.ToUpper(raw)
	if s.statuses != nil {
		if err := s.statuses.SetStatus(ctx, orderID, status); err != nil {
			log.Warn().Err(err).Str("order_id", orderID).Msg("failed to cache payment status")
		}
	}
	return status, nil
}
