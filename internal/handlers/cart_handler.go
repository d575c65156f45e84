package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/turulko-oleksandr/cinema-api/internal/middleware"
	"github.com/turulko-oleksandr/cinema-api/internal/services"
)

// CartHandler handles HTTP requests for the current user's cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes. The router must require authentication.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Get("/total", h.HandleGetTotal)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Delete("/items/:movieId", h.HandleRemoveItem)
}

func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	cart, err := h.service.GetCart(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return fail(c, "Could not retrieve cart", err)
	}
	return c.JSON(cart)
}

// AddItemRequest represents the request body for adding a movie to the cart.
type AddItemRequest struct {
	MovieID string `json:"movie_id" validate:"required"`
}

// HandleAddItem puts a movie into the cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if ok, err := decode(c, h.validate, &req); !ok {
		return err
	}

	item, err := h.service.AddItem(c.UserContext(), middleware.CurrentUserID(c), req.MovieID)
	if err != nil {
		return fail(c, "Could not add movie to cart", err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	if err := h.service.RemoveItem(c.UserContext(), middleware.CurrentUserID(c), c.Params("movieId")); err != nil {
		return fail(c, "Could not remove movie from cart", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	if err := h.service.Clear(c.UserContext(), middleware.CurrentUserID(c)); err != nil {
		return fail(c, "Could not clear cart", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleGetTotal returns the cart total at current catalog prices.
func (h *CartHandler) HandleGetTotal(c *fiber.Ctx) error {
	total, err := h.service.GetTotal(c.UserContext(), middleware.CurrentUserID(c))
	if err != nil {
		return fail(c, "Could not compute cart total", err)
	}
	return c.JSON(total)
}
