package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/turulko-oleksandr/cinema-api/internal/middleware"
	"github.com/turulko-oleksandr/cinema-api/internal/services"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the public authentication routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/activate", h.HandleActivate)
	authRoutes.Post("/resend-activation", h.HandleResendActivation)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/password-reset/request", h.HandlePasswordResetRequest)
	authRoutes.Post("/password-reset/complete", h.HandlePasswordResetComplete)
}

// RegisterProtectedRoutes registers the routes that need a signed-in user.
func (h *AuthHandler) RegisterProtectedRoutes(router fiber.Router) {
	router.Post("/auth/change-password", h.HandleChangePassword)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if ok, err := decode(c, h.validate, &req); !ok {
		return err
	}

	user, err := h.authService.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return fail(c, "Registration failed", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully. Check your email to activate the account.",
		"user":    user,
	})
}

// TokenRequest carries an emailed activation or reset token.
type TokenRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

func (h *AuthHandler) HandleActivate(c *fiber.Ctx) error {
	var req TokenRequest
	if ok, err := decode(c, h.validate, &req); !ok {
		return err
	}
	if err := h.authService.Activate(c.UserContext(), req.Email, req.Token); err != nil {
		return fail(c, "Activation failed", err)
	}
	return c.JSON(fiber.Map{"message": "Account activated"})
}

// EmailRequest carries only an email address.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *AuthHandler) HandleResendActivation(c *fiber.Ctx) error {
	var req EmailRequest
	if ok, err := decode(c, h.validate, &req); !ok {
		return err
	}
	if err := h.authService.ResendActivation(c.UserContext(), req.Email); err != nil {
		return fail(c, "Could not resend activation", err)
	}
	return c.JSON(fiber.Map{"message": "Activation email sent"})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := decode(c, h.validate, &req); !ok {
		return err
	}

	token, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return fail(c, "Authentication failed", err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}

// HandlePasswordResetRequest always answers 200 so account existence is not revealed.
func (h *AuthHandler) HandlePasswordResetRequest(c *fiber.Ctx) error {
	var req EmailRequest
	if ok, err := decode(c, h.validate, &req); !ok {
		return err
	}
	if err := h.authService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return fail(c, "Could not request password reset", err)
	}
	return c.JSON(fiber.Map{"message": "If the account exists, a reset link has been sent"})
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (h *AuthHandler) HandlePasswordResetComplete(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if ok, err := decode(c, h.validate, &req); !ok {
		return err
	}
	if err := h.authService.ResetPassword(c.UserContext(), req.Email, req.Token, req.Password); err != nil {
		return fail(c, "Password reset failed", err)
	}
	return c.JSON(fiber.Map{"message": "Password has been reset"})
}

// ChangePasswordRequest replaces the password of the signed-in user.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72,nefield=OldPassword"`
}

func (h *AuthHandler) HandleChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if ok, err := decode(c, h.validate, &req); !ok {
		return err
	}
	err := h.authService.ChangePassword(c.UserContext(), middleware.CurrentUserID(c), req.OldPassword, req.NewPassword)
	if err != nil {
		return fail(c, "Could not change password", err)
	}
	return c.JSON(fiber.Map{"message": "Password changed"})
}
