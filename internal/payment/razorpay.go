package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"bazaar/internal/models"

	"github.com/shopspring/decimal"
)

// RazorpayConfig holds the Razorpay API key pair.
type RazorpayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
}

// Razorpay is the signature gateway. The client submits
// razorpay_order_id, razorpay_payment_id and razorpay_signature after checkout.
type Razorpay struct {
	cfg    RazorpayConfig
	client *restClient
}

// NewRazorpay creates a Razorpay gateway.
func NewRazorpay(cfg RazorpayConfig, client *http.Client, timeout time.Duration) *Razorpay {
	rp := &Razorpay{cfg: cfg}
	rp.client = newRESTClient("razorpay", cfg.BaseURL, client, timeout, func(req *http.Request) {
		req.SetBasicAuth(cfg.KeyID, cfg.KeySecret)
	})
	return rp
}

// Name implements Gateway.
func (g *Razorpay) Name() string { return "razorpay" }

type razorpayOrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes"`
}

type razorpayOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreatePaymentSession implements Gateway. Razorpay takes the amount in paise.
func (g *Razorpay) CreatePaymentSession(ctx context.Context, orderID string, amount float64, _ models.Customer) (*models.PaymentSession, error) {
	paise := decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	body := razorpayOrderRequest{
		Amount:         paise,
		Currency:       "INR",
		Receipt:        orderID,
		PaymentCapture: 1,
		Notes:          map[string]string{},
	}

	var resp razorpayOrderResponse
	if err := g.client.do(ctx, "create_order", http.MethodPost, "/v1/orders", body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: razorpay create_order: reply without id", ErrGateway)
	}
	return &models.PaymentSession{
		Gateway:        g.Name(),
		GatewayOrderID: resp.ID,
		PublicKey:      g.cfg.KeyID,
	}, nil
}

// VerifyConfirmation implements Gateway by recomputing the checkout signature.
func (g *Razorpay) VerifyConfirmation(_ context.Context, c models.Confirmation) (models.Verification, error) {
	if !g.validSignature(c.GatewayOrderID, c.PaymentID, c.Signature) {
		return models.Verification{Authentic: false}, nil
	}
	return models.Verification{
		Authentic:           true,
		Outcome:             models.PaymentOutcomeSuccess,
		PaymentMode:         g.Name(),
		PaymentMethodDetail: "Razorpay: " + c.PaymentID,
	}, nil
}

// Signature returns hex(HMAC-SHA256(secret, gatewayOrderID|paymentID)).
func (g *Razorpay) Signature(gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(g.cfg.KeySecret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *Razorpay) validSignature(gatewayOrderID, paymentID, signature string) bool {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return false
	}
	expected := g.Signature(gatewayOrderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// FetchStatus implements Gateway; it returns the Razorpay order status (created, attempted, paid).
func (g *Razorpay) FetchStatus(ctx context.Context, gatewayOrderID string) (string, error) {
	var resp razorpayOrderResponse
	if err := g.client.do(ctx, "get_order", http.MethodGet, "/v1/orders/"+url.PathEscape(gatewayOrderID), nil, &resp); err != nil {
		return "", err
	}
	if resp.Status == "" {
		return "", fmt.Errorf("%w: razorpay get_order: reply without status", ErrGateway)
	}
	return resp.Status, nil
}
