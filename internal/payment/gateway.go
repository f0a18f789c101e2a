package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"bazaar/internal/config"
	"bazaar/internal/models"
)

// ErrGateway marks any failure talking to the payment provider.
var ErrGateway = errors.New("payment gateway error")

// Gateway is implemented by every supported payment provider.
type Gateway interface {
	Name() string
	// CreatePaymentSession registers orderID with the provider for amount (rupees).
	CreatePaymentSession(ctx context.Context, orderID string, amount float64, customer models.Customer) (*models.PaymentSession, error)
	// VerifyConfirmation judges a confirmation's authenticity and normalizes its outcome.
	VerifyConfirmation(ctx context.Context, confirmation models.Confirmation) (models.Verification, error)
	// FetchStatus asks the provider for the raw status of a remote order.
	FetchStatus(ctx context.Context, gatewayOrderID string) (string, error)
}

// New returns the gateway selected by cfg.PaymentGateway.
func New(cfg *config.Config, client *http.Client) (Gateway, error) {
	switch cfg.PaymentGateway {
	case "cashfree":
		return NewCashfree(CashfreeConfig{
			BaseURL:    cfg.CashfreeBaseURL,
			AppID:      cfg.CashfreeAppID,
			SecretKey:  cfg.CashfreeSecretKey,
			APIVersion: cfg.CashfreeAPIVersion,
			ReturnURL:  cfg.CashfreeReturnURL,
		}, client, cfg.OutboundTimeout), nil
	case "razorpay":
		return NewRazorpay(RazorpayConfig{
			BaseURL:   cfg.RazorpayBaseURL,
			KeyID:     cfg.RazorpayKeyID,
			KeySecret: cfg.RazorpayKeySecret,
		}, client, cfg.OutboundTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported payment gateway %q", cfg.PaymentGateway)
	}
}
