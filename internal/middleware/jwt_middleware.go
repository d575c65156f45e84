package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/turulko-oleksandr/cinema-api/internal/logging"
	"github.com/turulko-oleksandr/cinema-api/internal/models"
	"github.com/turulko-oleksandr/cinema-api/internal/services"
)

// Keys of the claims stored in fiber locals.
const (
	LocalUserID = "user_id"
	LocalEmail  = "email"
	LocalGroup  = "group"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			logging.FromContext(c.UserContext()).Debug("JWT validation failed", "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}
		email, _ := claims["email"].(string)
		group, _ := claims["group"].(string)

		// Store claims in Fiber context for subsequent handlers
		c.Locals(LocalUserID, userID)
		c.Locals(LocalEmail, email)
		c.Locals(LocalGroup, models.UserGroup(group))

		ctx := logging.IntoContext(c.UserContext(), logging.FromContext(c.UserContext()).With("user_id", userID))
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// RequireGroup allows the request only for users in one of the groups.
// Must run after AuthRequired.
func RequireGroup(groups ...models.UserGroup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		group := CurrentGroup(c)
		for _, g := range groups {
			if g == group {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "You do not have permission to perform this action",
		})
	}
}

// RequireStaff allows moderators and administrators.
func RequireStaff() fiber.Handler {
	return RequireGroup(models.GroupModerator, models.GroupAdmin)
}

// RequireAdmin allows administrators only.
func RequireAdmin() fiber.Handler {
	return RequireGroup(models.GroupAdmin)
}

// CurrentUserID returns the id of the authenticated user.
func CurrentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

func CurrentGroup(c *fiber.Ctx) models.UserGroup {
	g, _ := c.Locals(LocalGroup).(models.UserGroup)
	return g
}
