package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"bazaar/internal/cache"
	"bazaar/internal/handlers"
	"bazaar/internal/logger"
	"bazaar/internal/models"
	"bazaar/internal/payment"
	"bazaar/internal/pricing"
	"bazaar/internal/repositories"
	"bazaar/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

var ist = time.FixedZone("IST", 5*3600+1800)

type testEnv struct {
	app      *fiber.App
	orders   repositories.OrderRepository
	products *repositories.MockProductRepository
	users    *repositories.MockUserRepository
	userID   string
}

// fakeCashfree answers order creation with a session id and reports every order as PAID.
func fakeCashfree(t *testing.T) *payment.Cashfree {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var body struct {
				OrderID string `json:"order_id"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			fmt.Fprintf(w, `{"order_id":%q,"payment_session_id":"session_%s"}`, body.OrderID, body.OrderID)
		default:
			w.Write([]byte(`{"order_status":"paid"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return payment.NewCashfree(payment.CashfreeConfig{
		BaseURL:    srv.URL,
		AppID:      "app-id",
		SecretKey:  "secret",
		APIVersion: "2025-01-01",
		ReturnURL:  "https://shop.example/payment-status?order_id={order_id}",
	}, srv.Client(), time.Second)
}

func setupTestApp(t *testing.T, gateway payment.Gateway) *testEnv {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}))
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })

	env := &testEnv{
		orders:   repositories.NewGORMOrderRepository(db),
		products: repositories.NewMockProductRepository(),
		users:    repositories.NewMockUserRepository(),
	}
	env.products.Add("560001", models.CatalogItem{
		ProductID:       "P1",
		Name:            "Milk",
		DiscountedPrice: 25.0,
		QuantityFormat:  models.QuantityFormat{Type: models.QuantityTypeUnit},
	})
	user := &models.UserProfile{MobileNumber: "9999999999", Name: "Asha"}
	require.NoError(t, env.users.Create(context.Background(), user))
	env.userID = user.ID

	svc := services.NewOrderService(services.Dependencies{
		Orders:      env.orders,
		Products:    env.products,
		Users:       env.users,
		Gateway:     gateway,
		Idempotency: cache.NewMemoryIdempotencyStore(time.Hour),
		Statuses:    cache.NewMemoryStatusCache(time.Minute),
	}, services.Settings{
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
	})
	svc.SetClock(func() time.Time { return time.Date(2025, 3, 10, 10, 0, 0, 0, ist) })

	app := fiber.New()
	api := app.Group("/api")
	orderHandler := handlers.NewOrderHandler(svc)
	orderHandler.RegisterRoutes(api)
	handlers.NewPaymentHandler(svc).RegisterRoutes(api)
	orderHandler.RegisterReadRoutes(api)
	env.app = app
	return env
}

func (e *testEnv) orderBody(quantity float64) map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.userID,
		"cart":    []map[string]interface{}{{"productId": "P1", "quantity": quantity}},
		"customer": map[string]interface{}{
			"name":    "Asha",
			"phone":   "9999999999",
			"pincode": "560001",
		},
		"address": map[string]interface{}{
			"name":    "Home",
			"street":  "MG Road",
			"pincode": "560001",
			"address": "12 MG Road",
		},
		"deliveryTime": map[string]interface{}{"time": "7:00", "meridiem": "PM"},
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (e *testEnv) createOrder(t *testing.T) string {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/api/orders/create-order", e.orderBody(2), nil)
	require.Equal(t, http.StatusCreated, status, body)
	return body["orderId"].(string)
}

func cashfreeWebhook(orderID, status string) map[string]interface{} {
	return map[string]interface{}{
		"type": "PAYMENT_SUCCESS_WEBHOOK",
		"data": map[string]interface{}{
			"order": map[string]interface{}{"order_id": orderID},
			"payment": map[string]interface{}{
				"cf_payment_id":  5114910,
				"payment_status": status,
				"payment_group":  "upi",
				"payment_method": map[string]interface{}{
					"upi": map[string]interface{}{"upi_id": "asha@okbank"},
				},
			},
		},
	}
}

func TestCreateOrder(t *testing.T) {
	env := setupTestApp(t, fakeCashfree(t))

	status, body := env.do(t, http.MethodPost, "/api/orders/create-order", env.orderBody(2), nil)

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "ORDER_1741581000000", body["orderId"])
	assert.Equal(t, "session_ORDER_1741581000000", body["sessionToken"])
	assert.Equal(t, "cashfree", body["gateway"])
	assert.Equal(t, 50.0, body["subtotal"])
	assert.Equal(t, 79.5, body["finalAmount"])

	order, err := env.orders.GetByOrderID(context.Background(), "ORDER_1741581000000")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusNotPaid, order.PaymentStatus)
}

func TestCreateOrder_IdempotencyKeyReplaysResult(t *testing.T) {
	env := setupTestApp(t, fakeCashfree(t))
	headers := map[string]string{"Idempotency-Key": "checkout-1"}

	first, firstBody := env.do(t, http.MethodPost, "/api/orders/create-order", env.orderBody(2), headers)
	second, secondBody := env.do(t, http.MethodPost, "/api/orders/create-order", env.orderBody(2), headers)

	assert.Equal(t, http.StatusCreated, first)
	assert.Equal(t, http.StatusOK, second)
	assert.Equal(t, firstBody["orderId"], secondBody["orderId"])
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	env := setupTestApp(t, fakeCashfree(t))
	body := env.orderBody(2)
	delete(body, "deliveryTime")
	body["customer"] = map[string]interface{}{"name": "Asha", "pincode": "560001"}

	status, resp := env.do(t, http.MethodPost, "/api/orders/create-order", body, nil)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", resp["message"])
	details := resp["details"].(map[string]interface{})
	assert.Contains(t, details, "createOrderRequest.Customer.Phone")
	assert.Contains(t, details, "createOrderRequest.DeliveryTime")
}

func TestCreateOrder_InvalidBody(t *testing.T) {
	env := setupTestApp(t, fakeCashfree(t))

	req := httptest.NewRequest(http.MethodPost, "/api/orders/create-order", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateOrder_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(env *testEnv, body map[string]interface{})
		status  int
		details string
	}{
		{
			name: "unknown product",
			prepare: func(_ *testEnv, body map[string]interface{}) {
				body["cart"] = []map[string]interface{}{{"productId": "P1", "quantity": 1}, {"productId": "NOPE", "quantity": 1}}
			},
			status: http.StatusNotFound,
		},
		{
			name: "nothing stocked at pincode",
			prepare: func(_ *testEnv, body map[string]interface{}) {
				body["customer"].(map[string]interface{})["pincode"] = "110001"
			},
			status: http.StatusNotFound,
		},
		{
			name: "unparseable delivery slot",
			prepare: func(_ *testEnv, body map[string]interface{}) {
				body["deliveryTime"] = map[string]interface{}{"time": "soon"}
			},
			status: http.StatusBadRequest,
		},
		{
			name: "below minimum",
			prepare: func(env *testEnv, _ map[string]interface{}) {
				env.products.Add("560001", models.CatalogItem{
					ProductID:       "P1",
					DiscountedPrice: 5.0,
					QuantityFormat:  models.QuantityFormat{Type: models.QuantityTypeUnit},
				})
			},
			status: http.StatusBadRequest,
		},
		{
			name: "catalog down",
			prepare: func(env *testEnv, _ map[string]interface{}) {
				env.products.Err = fmt.Errorf("%w: connection refused", repositories.ErrCatalogUnavailable)
			},
			status:  http.StatusInternalServerError,
			details: "catalog service unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestApp(t, fakeCashfree(t))
			body := env.orderBody(1)
			tt.prepare(env, body)

			status, resp := env.do(t, http.MethodPost, "/api/orders/create-order", body, nil)

			assert.Equal(t, tt.status, status, resp)
			assert.NotEmpty(t, resp["error"])
			if tt.details != "" {
				assert.Equal(t, tt.details, resp["details"])
			}
		})
	}
}

func TestCreateOrder_GatewayErrorIsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	gw := payment.NewCashfree(payment.CashfreeConfig{BaseURL: srv.URL}, srv.Client(), time.Second)
	env := setupTestApp(t, gw)

	status, resp := env.do(t, http.MethodPost, "/api/orders/create-order", env.orderBody(2), nil)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "payment gateway error", resp["details"])
	_, err := env.orders.GetByOrderID(context.Background(), "ORDER_1741581000000")
	assert.ErrorIs(t, err, repositories.ErrOrderNotFound)
}

func TestCreateCODOrder(t *testing.T) {
	env := setupTestApp(t, fakeCashfree(t))

	status, body := env.do(t, http.MethodPost, "/api/orders/create-cod-order", env.orderBody(2), nil)

	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "COD order placed successfully", body["message"])
	assert.Equal(t, "COD_1741581000000", body["orderId"])
	assert.Equal(t, 79.5, body["totalAmount"])

	user, err := env.users.GetByID(context.Background(), env.userID)
	require.NoError(t, err)
	require.Len(t, user.Orders, 1)
	assert.Equal(t, "COD_1741581000000", user.Orders[0].OrderID)
}

func TestCreateCODOrder_AboveLimit(t *testing.T) {
	env := setupTestApp(t, fakeCashfree(t))

	status, body := env.do(t, http.MethodPost, "/api/orders/create-cod-order", env.orderBody(5), nil)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], services.ErrAboveCODLimit.Error())
}

func TestCashfreeWebhook_MarksOrderPaid(t *testing.T) {
	env := setupTestApp(t, fakeCashfree(t))
	orderID := env.createOrder(t)

	status, body := env.do(t, http.MethodPost, "/api/orders/webhook/cashfree", cashfreeWebhook(orderID, "SUCCESS"), nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "paid", body["paymentStatus"])
	assert.Equal(t, true, body["applied"])

	status, body = env.do(t, http.MethodPost, "/api/orders/webhook/cashfree", cashfreeWebhook(orderID, "SUCCESS"), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["applied"])

	status, order := env.do(t, http.MethodGet, "/api/orders/"+orderID, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "confirmed", order["orderStatus"])
	assert.Equal(t, "UPI: asha@okbank", order["paymentMethodDetail"])

	user, err := env.users.GetByID(context.Background(), env.userID)
	require.NoError(t, err)
	assert.Len(t, user.Orders, 1)
}

func TestCashfreeWebhook_MirrorFailureStillSucceeds(t *testing.T) {
	env := setupTestApp(t, fakeCashfree(t))
	orderID := env.createOrder(t)
	env.users.AppendErr = errors.New("users store down")

	status, body := env.do(t, http.MethodPost, "/api/orders/webhook/cashfree", cashfreeWebhook(orderID, "SUCCESS"), nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "paid", body["paymentStatus"])
	order, err := env.orders.GetByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
}

func TestCashfreeWebhook_FailedPayment(t *testing.T) {
	env := setupTestApp(t, fakeCashfree(t))
	orderID := env.createOrder(t)

	status, body := env.do(t, http.MethodPost, "/api/orders/webhook/cashfree", cashfreeWebhook(orderID, "FAILED"), nil)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "failed", body["paymentStatus"])
	order, err := env.orders.GetByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.OrderStatus)
}

func TestCashfreeWebhook_UnknownOrder(t *testing.T) {
	env := setupTestApp(t, fakeCashfree(t))

	status, _ := env.do(t, http.MethodPost, "/api/orders/webhook/cashfree", cashfreeWebhook("ORDER_404", "SUCCESS"), nil)

	assert.Equal(t, http.StatusNotFound, status)
}

func TestCashfreeWebhook_MissingOrderID(t *testing.T) {
	env := setupTestApp(t, fakeCashfree(t))

	status, body := env.do(t, http.MethodPost, "/api/orders/webhook/cashfree", cashfreeWebhook("", "SUCCESS"), nil)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", body["message"])
}

func TestVerifyPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"order_Rz1","status":"created"}`))
	}))
	defer srv.Close()
	gw := payment.NewRazorpay(payment.RazorpayConfig{BaseURL: srv.URL, KeyID: "rzp_test_key", KeySecret: "rzp_secret"}, srv.Client(), time.Second)
	env := setupTestApp(t, gw)
	orderID := env.createOrder(t)

	bad := map[string]interface{}{
		"orderId":             orderID,
		"razorpay_order_id":   "order_Rz1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  gw.Signature("order_Rz1", "pay_2"),
	}
	status, _ := env.do(t, http.MethodPost, "/api/orders/verify-payment", bad, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	order, err := env.orders.GetByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusNotPaid, order.PaymentStatus)

	good := map[string]interface{}{
		"razorpay_order_id":   "order_Rz1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  gw.Signature("order_Rz1", "pay_1"),
	}
	status, body := env.do(t, http.MethodPost, "/api/orders/verify-payment", good, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, orderID, body["orderId"])
	assert.Equal(t, "paid", body["paymentStatus"])
	assert.Equal(t, "confirmed", body["orderStatus"])
}

func TestVerifyPayment_RejectsPaymentOfAnotherOrder(t *testing.T) {
	var created atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":"order_Rz%d","status":"created"}`, created.Add(1))
	}))
	defer srv.Close()
	gw := payment.NewRazorpay(payment.RazorpayConfig{BaseURL: srv.URL, KeyID: "rzp_test_key", KeySecret: "rzp_secret"}, srv.Client(), time.Second)
	env := setupTestApp(t, gw)

	status, cheap := env.do(t, http.MethodPost, "/api/orders/create-order", env.orderBody(1), nil)
	require.Equal(t, http.StatusCreated, status, cheap)
	status, expensive := env.do(t, http.MethodPost, "/api/orders/create-order", env.orderBody(3), nil)
	require.Equal(t, http.StatusCreated, status, expensive)
	cheapGatewayID := cheap["gatewayOrderId"].(string)

	reused := map[string]interface{}{
		"orderId":             expensive["orderId"],
		"razorpay_order_id":   cheapGatewayID,
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  gw.Signature(cheapGatewayID, "pay_1"),
	}
	status, body := env.do(t, http.MethodPost, "/api/orders/verify-payment", reused, nil)
	assert.Equal(t, http.StatusBadRequest, status, body)

	order, err := env.orders.GetByOrderID(context.Background(), expensive["orderId"].(string))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusNotPaid, order.PaymentStatus)
	user, err := env.users.GetByID(context.Background(), env.userID)
	require.NoError(t, err)
	assert.Empty(t, user.Orders)
}

func TestCashfreeWebhook_CODOrderRejected(t *testing.T) {
	env := setupTestApp(t, fakeCashfree(t))
	status, created := env.do(t, http.MethodPost, "/api/orders/create-cod-order", env.orderBody(2), nil)
	require.Equal(t, http.StatusOK, status, created)
	codID := created["orderId"].(string)

	status, _ = env.do(t, http.MethodPost, "/api/orders/webhook/cashfree", cashfreeWebhook(codID, "SUCCESS"), nil)
	assert.Equal(t, http.StatusBadRequest, status)

	order, err := env.orders.GetByOrderID(context.Background(), codID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusNotPaid, order.PaymentStatus)
	user, err := env.users.GetByID(context.Background(), env.userID)
	require.NoError(t, err)
	assert.Len(t, user.Orders, 1)
}

func TestPaymentStatus(t *testing.T) {
	env := setupTestApp(t, fakeCashfree(t))
	orderID := env.createOrder(t)

	status, body := env.do(t, http.MethodGet, "/api/orders/payment-status?order_id="+orderID, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "PAID", body["status"])

	status, _ = env.do(t, http.MethodGet, "/api/orders/payment-status", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetOrder_NotFound(t *testing.T) {
	env := setupTestApp(t, fakeCashfree(t))

	status, body := env.do(t, http.MethodGet, "/api/orders/ORDER_404", nil, nil)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Could not retrieve order", body["message"])
}
