package handlers

import (
	"bazaar/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for placing and reading orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/create-order", h.HandleCreateOrder)
	orderRoutes.Post("/create-cod-order", h.HandleCreateCODOrder)
}

// RegisterReadRoutes registers GET /orders/:orderId. It goes last so that it
// does not shadow fixed paths such as /orders/payment-status.
func (h *OrderHandler) RegisterReadRoutes(router fiber.Router) {
	router.Get("/orders/:orderId", h.HandleGetOrder)
}

func (h *OrderHandler) parseCreate(c *fiber.Ctx) (*createOrderRequest, error) {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, validationFailed(c, err)
	}
	return &req, nil
}

// HandleCreateOrder prices the cart and opens a payment session with the gateway.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	req, err := h.parseCreate(c)
	if req == nil {
		return err
	}

	res, err := h.service.CreateOrder(c.UserContext(), req.toInput(c.Get("Idempotency-Key")))
	if err != nil {
		return respondError(c, "Failed to create order", err)
	}

	status := fiber.StatusCreated
	if res.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(res)
}

// HandleCreateCODOrder places a cash on delivery order.
func (h *OrderHandler) HandleCreateCODOrder(c *fiber.Ctx) error {
	req, err := h.parseCreate(c)
	if req == nil {
		return err
	}

	res, err := h.service.CreateCODOrder(c.UserContext(), req.toInput(c.Get("Idempotency-Key")))
	if err != nil {
		return respondError(c, "Failed to create COD order", err)
	}

	return c.JSON(fiber.Map{
		"message":     "COD order placed successfully",
		"orderId":     res.OrderID,
		"subtotal":    res.Subtotal,
		"totalAmount": res.FinalAmount,
	})
}

// HandleGetOrder returns a stored order.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	orderID := c.Params("orderId")
	order, err := h.service.GetOrder(c.UserContext(), orderID)
	if err != nil {
		return respondError(c, "Could not retrieve order", err)
	}
	return c.JSON(order)
}
