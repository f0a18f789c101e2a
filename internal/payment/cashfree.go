package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bazaar/internal/models"

	"github.com/shopspring/decimal"
)

// CashfreeConfig holds the credentials of the Cashfree PG API.
type CashfreeConfig struct {
	BaseURL    string
	AppID      string
	SecretKey  string
	APIVersion string
	// ReturnURL may contain {order_id}, replaced with the local order id.
	ReturnURL string
}

// Cashfree is the session-token gateway. Confirmations arrive as
// server-to-server webhooks and carry no signature to check.
type Cashfree struct {
	cfg    CashfreeConfig
	client *restClient
}

// NewCashfree creates a Cashfree gateway.
func NewCashfree(cfg CashfreeConfig, client *http.Client, timeout time.Duration) *Cashfree {
	cf := &Cashfree{cfg: cfg}
	cf.client = newRESTClient("cashfree", cfg.BaseURL, client, timeout, func(req *http.Request) {
		req.Header.Set("x-api-version", cfg.APIVersion)
		req.Header.Set("x-client-id", cfg.AppID)
		req.Header.Set("x-client-secret", cfg.SecretKey)
	})
	return cf
}

// Name implements Gateway.
func (g *Cashfree) Name() string { return "cashfree" }

type cashfreeCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

type cashfreeOrderRequest struct {
	OrderID         string           `json:"order_id"`
	OrderCurrency   string           `json:"order_currency"`
	OrderAmount     json.Number      `json:"order_amount"`
	CustomerDetails cashfreeCustomer `json:"customer_details"`
	OrderMeta       struct {
		ReturnURL string `json:"return_url,omitempty"`
	} `json:"order_meta"`
}

type cashfreeOrderResponse struct {
	OrderID          string `json:"order_id"`
	OrderStatus      string `json:"order_status"`
	PaymentSessionID string `json:"payment_session_id"`
}

// CreatePaymentSession implements Gateway.
func (g *Cashfree) CreatePaymentSession(ctx context.Context, orderID string, amount float64, customer models.Customer) (*models.PaymentSession, error) {
	customerID := customer.ID
	if customerID == "" {
		customerID = customer.Phone
	}
	body := cashfreeOrderRequest{
		OrderID:       orderID,
		OrderCurrency: "INR",
		OrderAmount:   json.Number(decimal.NewFromFloat(amount).StringFixed(2)),
		CustomerDetails: cashfreeCustomer{
			CustomerID:    customerID,
			CustomerName:  customer.Name,
			CustomerEmail: customer.Email,
			CustomerPhone: customer.Phone,
		},
	}
	body.OrderMeta.ReturnURL = strings.ReplaceAll(g.cfg.ReturnURL, "{order_id}", url.QueryEscape(orderID))

	var resp cashfreeOrderResponse
	if err := g.client.do(ctx, "create_order", http.MethodPost, "/orders", body, &resp); err != nil {
		return nil, err
	}
	if resp.PaymentSessionID == "" {
		return nil, fmt.Errorf("%w: cashfree create_order: reply without payment_session_id", ErrGateway)
	}
	gatewayOrderID := resp.OrderID
	if gatewayOrderID == "" {
		gatewayOrderID = orderID
	}
	return &models.PaymentSession{
		Gateway:        g.Name(),
		GatewayOrderID: gatewayOrderID,
		SessionToken:   resp.PaymentSessionID,
	}, nil
}

// VerifyConfirmation implements Gateway. Authenticity is implied by the webhook channel.
func (g *Cashfree) VerifyConfirmation(_ context.Context, c models.Confirmation) (models.Verification, error) {
	v := models.Verification{
		Authentic:           true,
		Outcome:             models.PaymentOutcomePending,
		PaymentMode:         c.PaymentGroup,
		PaymentMethodDetail: cashfreeMethodDetail(c),
	}
	switch strings.ToUpper(c.RawStatus) {
	case "SUCCESS":
		v.Outcome = models.PaymentOutcomeSuccess
	case "FAILED":
		v.Outcome = models.PaymentOutcomeFailed
	}
	return v, nil
}

func cashfreeMethodDetail(c models.Confirmation) string {
	switch {
	case c.PaymentGroup == "upi" && c.UPIID != "":
		return "UPI: " + c.UPIID
	case c.PaymentGroup == "card" && c.CardNumber != "":
		return "Card: " + c.CardNumber
	case c.PaymentGroup != "":
		return c.PaymentGroup
	default:
		return "unknown"
	}
}

// FetchStatus implements Gateway; it returns Cashfree's order_status (ACTIVE, PAID, EXPIRED...).
func (g *Cashfree) FetchStatus(ctx context.Context, gatewayOrderID string) (string, error) {
	var resp cashfreeOrderResponse
	if err := g.client.do(ctx, "get_order", http.MethodGet, "/orders/"+url.PathEscape(gatewayOrderID), nil, &resp); err != nil {
		return "", err
	}
	if resp.OrderStatus == "" {
		return "", fmt.Errorf("%w: cashfree get_order: reply without order_status", ErrGateway)
	}
	return resp.OrderStatus, nil
}
