package handlers

import (
	"encoding/json"
	"strings"

	"bazaar/internal/models"
	"bazaar/internal/services"
)

type cartLineRequest struct {
	ProductID string  `json:"productId" validate:"required"`
	Quantity  float64 `json:"quantity"`
}

type customerRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"required"`
	Pincode string `json:"pincode" validate:"required"`
}

type deliverySlotRequest struct {
	Time     string `json:"time" validate:"required"`
	Meridiem string `json:"meridiem"`
}

// createOrderRequest is the body of create-order and create-cod-order.
type createOrderRequest struct {
	UserID         string               `json:"user_id" validate:"required"`
	Cart           []cartLineRequest    `json:"cart" validate:"required,min=1,dive"`
	Customer       *customerRequest     `json:"customer" validate:"required"`
	Address        *models.Address      `json:"address" validate:"required"`
	DeliveryTime   *deliverySlotRequest `json:"deliveryTime" validate:"required"`
	DeliveryMethod string               `json:"deliveryMethod"`
}

func (r createOrderRequest) toInput(idempotencyKey string) services.CreateOrderInput {
	cart := make([]models.CartLine, len(r.Cart))
	for i, line := range r.Cart {
		cart[i] = models.CartLine{ProductID: line.ProductID, Quantity: line.Quantity}
	}
	return services.CreateOrderInput{
		UserID: r.UserID,
		Cart:   cart,
		Customer: models.Customer{
			ID:      r.Customer.ID,
			Name:    r.Customer.Name,
			Email:   r.Customer.Email,
			Phone:   r.Customer.Phone,
			Pincode: r.Customer.Pincode,
		},
		Address:        *r.Address,
		DeliverySlot:   models.DeliverySlot{Time: r.DeliveryTime.Time, Meridiem: r.DeliveryTime.Meridiem},
		DeliveryMethod: r.DeliveryMethod,
		IdempotencyKey: idempotencyKey,
	}
}

// verifyPaymentRequest is the client callback after a Razorpay checkout.
type verifyPaymentRequest struct {
	OrderID        string `json:"orderId"`
	GatewayOrderID string `json:"razorpay_order_id" validate:"required"`
	PaymentID      string `json:"razorpay_payment_id" validate:"required"`
	Signature      string `json:"razorpay_signature" validate:"required"`
}

func (r verifyPaymentRequest) toConfirmation() models.Confirmation {
	return models.Confirmation{
		Source:         models.ConfirmationSourceCallback,
		OrderID:        r.OrderID,
		GatewayOrderID: r.GatewayOrderID,
		PaymentID:      r.PaymentID,
		Signature:      r.Signature,
	}
}

// cashfreeWebhookRequest is the subset of a Cashfree payment webhook the service reads.
type cashfreeWebhookRequest struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID string `json:"order_id" validate:"required"`
		} `json:"order"`
		Payment struct {
			CFPaymentID   json.RawMessage `json:"cf_payment_id"`
			PaymentStatus string          `json:"payment_status" validate:"required"`
			PaymentGroup  string          `json:"payment_group"`
			PaymentMethod struct {
				UPI struct {
					UPIID string `json:"upi_id"`
				} `json:"upi"`
				Card struct {
					CardNumber string `json:"card_number"`
				} `json:"card"`
			} `json:"payment_method"`
		} `json:"payment"`
	} `json:"data"`
}

func (r cashfreeWebhookRequest) toConfirmation() models.Confirmation {
	return models.Confirmation{
		Source:       models.ConfirmationSourceWebhook,
		OrderID:      r.Data.Order.OrderID,
		PaymentID:    strings.Trim(string(r.Data.Payment.CFPaymentID), `"`),
		RawStatus:    r.Data.Payment.PaymentStatus,
		PaymentGroup: r.Data.Payment.PaymentGroup,
		UPIID:        r.Data.Payment.PaymentMethod.UPI.UPIID,
		CardNumber:   r.Data.Payment.PaymentMethod.Card.CardNumber,
	}
}
