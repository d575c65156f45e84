package app

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/turulko-oleksandr/cinema-api/internal/handlers"
	"github.com/turulko-oleksandr/cinema-api/internal/metrics"
	"github.com/turulko-oleksandr/cinema-api/internal/middleware"
	"github.com/turulko-oleksandr/cinema-api/internal/services"
)

// Services are the business services exposed over HTTP.
type Services struct {
	Auth     *services.AuthService
	Movies   *services.MovieService
	Carts    *services.CartService
	Orders   *services.OrderService
	Payments *services.PaymentService
	Profiles *services.ProfileService
}

// Deps is everything New needs to build the HTTP application.
type Deps struct {
	Services Services
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	// Health reports readiness of backing services by name.
	Health func() map[string]string
}

// New builds the fiber application with middleware and all routes.
func New(deps Deps) *fiber.App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:      "cinema-api",
		BodyLimit:    8 << 20,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	// --- Middleware ---
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(deps.Logger))
	app.Use(recover.New())
	app.Use(middleware.Metrics(deps.Metrics))

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		}
		if deps.Health != nil {
			for name, state := range deps.Health() {
				body[name] = state
			}
		}
		return c.Status(fiber.StatusOK).JSON(body)
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	// --- API Routes ---
	svc := deps.Services
	authHandler := handlers.NewAuthHandler(svc.Auth)
	movieHandler := handlers.NewMovieHandler(svc.Movies)
	cartHandler := handlers.NewCartHandler(svc.Carts)
	orderHandler := handlers.NewOrderHandler(svc.Orders)
	paymentHandler := handlers.NewPaymentHandler(svc.Payments)
	profileHandler := handlers.NewProfileHandler(svc.Profiles)

	apiV1 := app.Group("/api/v1")

	// Public routes
	authHandler.RegisterRoutes(apiV1)
	movieHandler.RegisterRoutes(apiV1)
	paymentHandler.RegisterWebhookRoutes(apiV1)

	// Protected routes (require JWT authentication)
	protected := apiV1.Group("", middleware.AuthRequired(svc.Auth))
	authHandler.RegisterProtectedRoutes(protected)
	movieHandler.RegisterProtectedRoutes(protected)
	cartHandler.RegisterRoutes(protected)
	orderHandler.RegisterRoutes(protected)
	paymentHandler.RegisterRoutes(protected)
	profileHandler.RegisterRoutes(protected)

	return app
}
