package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/turulko-oleksandr/cinema-api/internal/middleware"
	"github.com/turulko-oleksandr/cinema-api/internal/services"
)

// SignatureHeader carries the gateway's webhook signature.
const SignatureHeader = "Stripe-Signature"

// PaymentHandler handles checkout and gateway webhook requests.
type PaymentHandler struct {
	service *services.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service: service,
	}
}

// RegisterRoutes registers the checkout routes. The router must require authentication.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/orders/:id/checkout", h.HandleStartCheckout)
	router.Get("/orders/:id/payment", h.HandleCheckStatus)
}

// RegisterWebhookRoutes registers the unauthenticated gateway callback.
func (h *PaymentHandler) RegisterWebhookRoutes(router fiber.Router) {
	router.Post("/webhooks/stripe", h.HandleWebhook)
}

// HandleStartCheckout opens a hosted checkout session for a pending order.
func (h *PaymentHandler) HandleStartCheckout(c *fiber.Ctx) error {
	payment, err := h.service.StartCheckout(c.UserContext(), middleware.CurrentUserID(c), c.Params("id"))
	if err != nil {
		return fail(c, "Could not start checkout", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"payment_id":   payment.ID,
		"session_id":   payment.SessionID,
		"checkout_url": payment.CheckoutURL,
		"expires_at":   payment.ExpiresAt,
	})
}

func (h *PaymentHandler) HandleCheckStatus(c *fiber.Ctx) error {
	status, err := h.service.CheckStatus(c.UserContext(), middleware.CurrentUserID(c), c.Params("id"))
	if err != nil {
		return fail(c, "Could not retrieve payment status", err)
	}
	return c.JSON(status)
}

// HandleWebhook verifies and applies a gateway notification. Any 2xx tells
// the gateway to stop retrying.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	// The body is only valid during the handler; the service may keep it longer.
	payload := append([]byte(nil), c.Body()...)
	if err := h.service.HandleWebhook(c.UserContext(), payload, c.Get(SignatureHeader)); err != nil {
		return fail(c, "Webhook rejected", err)
	}
	return c.JSON(fiber.Map{"received": true})
}
