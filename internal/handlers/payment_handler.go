package handlers

import (
	"bazaar/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles payment confirmations and status lookups.
type PaymentHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.OrderService) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the payment routes with the Fiber app.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/verify-payment", h.HandleVerifyPayment)
	orderRoutes.Post("/webhook/cashfree", h.HandleCashfreeWebhook)
	orderRoutes.Get("/payment-status", h.HandlePaymentStatus)
}

// HandleVerifyPayment checks a client-submitted checkout signature and
// marks the order paid.
func (h *PaymentHandler) HandleVerifyPayment(c *fiber.Ctx) error {
	var req verifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	res, err := h.service.ConfirmPayment(c.UserContext(), req.toConfirmation())
	if err != nil {
		return respondError(c, "Payment verification failed", err)
	}
	return c.JSON(fiber.Map{
		"message":       "Payment verified",
		"orderId":       res.Order.OrderID,
		"paymentStatus": res.Order.PaymentStatus,
		"orderStatus":   res.Order.OrderStatus,
	})
}

// HandleCashfreeWebhook applies a Cashfree payment notification. It answers
// 200 once the order store is updated, whatever happens to the mirror.
func (h *PaymentHandler) HandleCashfreeWebhook(c *fiber.Ctx) error {
	var req cashfreeWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	res, err := h.service.ConfirmPayment(c.UserContext(), req.toConfirmation())
	if err != nil {
		return respondError(c, "Webhook processing failed", err)
	}
	return c.JSON(fiber.Map{
		"message":       "Webhook processed",
		"orderId":       res.Order.OrderID,
		"paymentStatus": res.Order.PaymentStatus,
		"applied":       res.Applied,
	})
}

// HandlePaymentStatus returns the gateway's status for ?order_id=.
func (h *PaymentHandler) HandlePaymentStatus(c *fiber.Ctx) error {
	orderID := c.Query("order_id")
	if orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Missing order_id",
			"error":   services.ErrMissingField.Error(),
		})
	}

	status, err := h.service.PaymentStatus(c.UserContext(), orderID)
	if err != nil {
		return respondError(c, "Failed to get payment status", err)
	}
	return c.JSON(fiber.Map{"status": status})
}
