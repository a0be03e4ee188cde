package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/apperrors"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the order routes with the Fiber app. The static
// paths come before /:id so they are not swallowed by the parameter route.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/stats", h.HandleGetOrderStats)
	orderRoutes.Get("/all", h.HandleGetAllOrders)
	orderRoutes.Get("/", h.HandleGetMyOrders)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/:id", h.HandleGetOrder)
	orderRoutes.Patch("/:id", h.HandleUpdateOrder)
	orderRoutes.Post("/:id/cancel", h.HandleCancelOrder)
	orderRoutes.Delete("/:id", h.HandleDeleteOrder)
}

// HandleCreateOrder creates a new order for the authenticated actor.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Authentication required"})
	}

	var input services.CreateOrderInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	order, err := h.service.CreateOrder(input, actor.ID, actor.Email)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleGetMyOrders lists the authenticated actor's own orders.
func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Authentication required"})
	}

	page, err := h.service.GetUserOrders(
		actor.ID,
		c.QueryInt("limit", 20),
		c.Query("cursor"),
		models.Status(c.Query("status")),
	)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(page)
}

// HandleGetAllOrders lists every order. Admin only.
func (h *OrderHandler) HandleGetAllOrders(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Authentication required"})
	}
	if !actor.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Admin access required"})
	}

	page, err := h.service.GetAllOrders(
		c.QueryInt("limit", 20),
		c.Query("cursor"),
		models.Status(c.Query("status")),
	)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(page)
}

// HandleGetOrder retrieves a single order.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Authentication required"})
	}

	order, err := h.service.GetOrder(c.Params("id"), actor)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(order)
}

// HandleUpdateOrder applies a partial update to an order.
func (h *OrderHandler) HandleUpdateOrder(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Authentication required"})
	}

	var patch models.OrderPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	order, err := h.service.UpdateOrder(c.Params("id"), patch, actor)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(order)
}

// HandleCancelOrder cancels a pending or confirmed order.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Authentication required"})
	}

	order, err := h.service.CancelOrder(c.Params("id"), actor)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(order)
}

// HandleDeleteOrder removes an order. Admin only.
func (h *OrderHandler) HandleDeleteOrder(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Authentication required"})
	}

	if err := h.service.DeleteOrder(c.Params("id"), actor); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order deleted"})
}

// HandleGetOrderStats returns aggregate order statistics. Admin only. The
// optional start/end query parameters accept RFC 3339 timestamps or plain
// dates.
func (h *OrderHandler) HandleGetOrderStats(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Authentication required"})
	}
	if !actor.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Admin access required"})
	}

	start, err := parseTimeParam(c.Query("start"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid start date", "error": err.Error()})
	}
	end, err := parseTimeParam(c.Query("end"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid end date", "error": err.Error()})
	}

	stats, err := h.service.GetOrderStats(start, end)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(stats)
}

// respondError maps the domain error taxonomy to HTTP status codes.
func (h *OrderHandler) respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch apperrors.KindOf(err) {
	case apperrors.KindBadRequest:
		status = fiber.StatusBadRequest
	case apperrors.KindForbidden:
		status = fiber.StatusForbidden
	case apperrors.KindNotFound:
		status = fiber.StatusNotFound
	case apperrors.KindConflict:
		status = fiber.StatusConflict
	default:
		h.logger.Error("order operation failed",
			slog.String("path", c.Path()),
			slog.Any("error", err))
		return c.Status(status).JSON(fiber.Map{"message": "Internal server error"})
	}

	body := fiber.Map{"message": err.Error()}
	if appErr, ok := apperrors.As(err); ok && len(appErr.Fields) > 0 {
		body["details"] = appErr.Fields
	}
	return c.Status(status).JSON(body)
}

func parseTimeParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fiber.NewError(fiber.StatusBadRequest, "expected RFC 3339 timestamp or YYYY-MM-DD")
}
