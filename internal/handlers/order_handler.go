package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/turulko-oleksandr/cinema-api/internal/middleware"
	"github.com/turulko-oleksandr/cinema-api/internal/models"
	"github.com/turulko-oleksandr/cinema-api/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// RegisterRoutes registers the order routes. The router must require authentication.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/all", middleware.RequireAdmin(), h.HandleGetAllOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/:id/cancel", h.HandleCancelOrder)
}

func filterFromQuery(c *fiber.Ctx) services.OrderFilter {
	offset, limit := page(c)
	return services.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
		Offset: offset,
		Limit:  limit,
	}
}

// HandleGetOrders lists the current user's orders, newest first.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, total, err := h.service.ListOrders(c.UserContext(), middleware.CurrentUserID(c), filterFromQuery(c))
	if err != nil {
		return fail(c, "Could not retrieve orders", err)
	}
	return c.JSON(fiber.Map{
		"orders": orders,
		"total":  total,
	})
}

// HandleGetAllOrders lists orders of every user. Administrators only.
func (h *OrderHandler) HandleGetAllOrders(c *fiber.Ctx) error {
	orders, total, err := h.service.ListAllOrders(c.UserContext(), filterFromQuery(c))
	if err != nil {
		return fail(c, "Could not retrieve orders", err)
	}
	return c.JSON(fiber.Map{
		"orders": orders,
		"total":  total,
	})
}

// HandleGetOrderByID retrieves a single order of the current user.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), middleware.CurrentUserID(c), c.Params("id"))
	if err != nil {
		return fail(c, "Could not retrieve order", err)
	}
	return c.JSON(order)
}

// HandleCreateOrder turns the current cart into a pending order.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	order, err := h.service.CreateOrder(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return fail(c, "Could not create order", err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	order, err := h.service.CancelOrder(c.UserContext(), middleware.CurrentUserID(c), c.Params("id"))
	if err != nil {
		return fail(c, "Could not cancel order", err)
	}
	return c.JSON(order)
}
