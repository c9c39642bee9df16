package handlers

import (
	"strings"

	"pesan/internal/middleware"
	"pesan/internal/models"
	"pesan/internal/repositories"
	"pesan/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type createOrderRequest struct {
	RestaurantID string `json:"restaurant_id" validate:"required"`
}

type addItemRequest struct {
	MenuItemID string `json:"menu_item_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gt=0,lte=999"`
}

type checkoutRequest struct {
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

// OrderHandler handles HTTP requests for orders.
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

// RegisterRoutes registers the order routes with the Fiber app. The router must
// already carry the AuthRequired and ResolveScope middleware.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/", h.HandleListOrders)
	orderRoutes.Get("/:id", h.HandleGetOrder)
	orderRoutes.Post("/:id/items", h.HandleAddItem)
	orderRoutes.Delete("/:id/items/:itemId", h.HandleRemoveItem)
	orderRoutes.Post("/:id/checkout", h.HandleCheckout)
	orderRoutes.Post("/:id/cancel", h.HandleCancel)
	orderRoutes.Get("/:id/payment", h.HandleGetPayment)
}

// HandleCreateOrder opens a draft order for a restaurant.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	var req createOrderRequest
	if ok, err := h.parse(c, &req); !ok {
		return err
	}

	order, err := h.service.CreateOrder(c.UserContext(), caller, req.RestaurantID)
	if err != nil {
		return respondError(c, "Could not create order", err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.NewOrderView(*order))
}

// HandleListOrders lists the orders visible to the caller.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	opts := repositories.ListOptions{
		Status: models.OrderStatus(strings.ToUpper(c.Query("status"))),
		Limit:  c.QueryInt("limit", repositories.DefaultListLimit),
		Offset: c.QueryInt("offset", 0),
	}
	orders, err := h.service.ListOrders(c.UserContext(), caller, opts)
	if err != nil {
		return respondError(c, "Could not retrieve orders", err)
	}

	views := make([]models.OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, models.NewOrderView(o))
	}
	return c.JSON(views)
}

// HandleGetOrder retrieves a single order with its items.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	order, err := h.service.GetOrder(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve order", err)
	}
	return c.JSON(models.NewOrderView(*order))
}

// HandleAddItem adds a menu item to a draft order or replaces its quantity.
func (h *OrderHandler) HandleAddItem(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	var req addItemRequest
	if ok, err := h.parse(c, &req); !ok {
		return err
	}

	order, err := h.service.AddItem(c.UserContext(), caller, c.Params("id"), req.MenuItemID, req.Quantity)
	if err != nil {
		return respondError(c, "Could not add item", err)
	}
	return c.JSON(models.NewOrderView(*order))
}

// HandleRemoveItem removes a line from a draft order.
func (h *OrderHandler) HandleRemoveItem(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	order, err := h.service.RemoveItem(c.UserContext(), caller, c.Params("id"), c.Params("itemId"))
	if err != nil {
		return respondError(c, "Could not remove item", err)
	}
	return c.JSON(models.NewOrderView(*order))
}

// HandleCheckout settles an order with a payment method.
func (h *OrderHandler) HandleCheckout(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	var req checkoutRequest
	if ok, err := h.parse(c, &req); !ok {
		return err
	}

	order, _, err := h.service.Checkout(c.UserContext(), caller, c.Params("id"), req.PaymentMethodID)
	if err != nil {
		return respondError(c, "Checkout failed", err)
	}
	return c.JSON(models.NewOrderView(*order))
}

// HandleCancel cancels an order and its payment.
func (h *OrderHandler) HandleCancel(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	order, _, err := h.service.CancelOrder(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return respondError(c, "Could not cancel order", err)
	}
	return c.JSON(models.NewOrderView(*order))
}

// HandleGetPayment returns the payment of an order.
func (h *OrderHandler) HandleGetPayment(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	payment, err := h.service.GetPayment(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve payment", err)
	}
	return c.JSON(models.NewPaymentView(*payment))
}

// parse binds and validates a JSON body. When it reports false the error
// response has already been written.
func (h *OrderHandler) parse(c *fiber.Ctx, out any) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(out); err != nil {
		return false, respondValidation(c, err)
	}
	return true, nil
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": "Authentication is required",
	})
}
