package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"bazaar/internal/models"
	"bazaar/internal/pricing"
	"bazaar/internal/repositories"
	"bazaar/internal/services"

	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock implementation of payment.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Name() string { return "mockpay" }

func (m *MockGateway) CreatePaymentSession(ctx context.Context, orderID string, amount float64, customer models.Customer) (*models.PaymentSession, error) {
	args := m.Called(ctx, orderID, amount, customer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentSession), args.Error(1)
}

func (m *MockGateway) VerifyConfirmation(ctx context.Context, c models.Confirmation) (models.Verification, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(models.Verification), args.Error(1)
}

func (m *MockGateway) FetchStatus(ctx context.Context, gatewayOrderID string) (string, error) {
	args := m.Called(ctx, gatewayOrderID)
	return args.String(0), args.Error(1)
}

// recordingPublisher keeps every published routing key.
type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) count(routingKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, k := range p.keys {
		if k == routingKey {
			n++
		}
	}
	return n
}

type fixture struct {
	svc      *services.OrderService
	orders   *repositories.MockOrderRepository
	products *repositories.MockProductRepository
	users    *repositories.MockUserRepository
	events   *recordingPublisher
	userID   string
	now      time.Time
}

var ist = time.FixedZone("IST", 5*3600+1800)

func defaultSettings() services.Settings {
	return services.Settings{
		Charges: pricing.ChargeConfig{
			Delivery:       20,
			Handling:       5,
			Platform:       2,
			GSTRate:        0.05,
			MinOrderAmount: 10,
		},
		CODMaxAmount:  100,
		Location:      ist,
		MirrorTimeout: time.Second,
	}
}

// newFixture wires an OrderService over in-memory repositories. The catalog
// stocks P1 (25/unit) and RICE (100/kg) at pincode 560001.
func newFixture(t *testing.T, deps services.Dependencies) *fixture {
	t.Helper()
	f := &fixture{
		orders:   repositories.NewMockOrderRepository(),
		products: repositories.NewMockProductRepository(),
		users:    repositories.NewMockUserRepository(),
		events:   &recordingPublisher{},
		now:      time.Date(2025, 3, 10, 10, 0, 0, 0, ist),
	}
	f.products.Add("560001", models.CatalogItem{
		ProductID:       "P1",
		Name:            "Milk",
		DiscountedPrice: 25.0,
		Images:          []string{"https://img.example/milk.png"},
		QuantityFormat:  models.QuantityFormat{Type: models.QuantityTypeUnit},
	})
	f.products.Add("560001", models.CatalogItem{
		ProductID:       "RICE",
		Name:            "Rice",
		DiscountedPrice: "100",
		QuantityFormat:  models.QuantityFormat{Type: models.QuantityTypeWeight, Qty: 250},
	})

	user := &models.UserProfile{MobileNumber: "9999999999", Name: "Asha"}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	f.userID = user.ID

	deps.Orders = f.orders
	deps.Products = f.products
	deps.Users = f.users
	if deps.Events == nil {
		deps.Events = f.events
	}
	f.svc = services.NewOrderService(deps, defaultSettings())
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) input(cart ...models.CartLine) services.CreateOrderInput {
	return services.CreateOrderInput{
		UserID:       f.userID,
		Cart:         cart,
		Customer:     models.Customer{Name: "Asha", Phone: "9999999999", Pincode: "560001"},
		Address:      models.Address{Name: "Home", Street: "MG Road", Pincode: "560001", Address: "12 MG Road"},
		DeliverySlot: models.DeliverySlot{Time: "7:00", Meridiem: "PM"},
	}
}

func (f *fixture) mirrored(t *testing.T) []models.UserOrderRecord {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	return u.Orders
}
