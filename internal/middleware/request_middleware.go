package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/turulko-oleksandr/cinema-api/internal/logging"
	"github.com/turulko-oleksandr/cinema-api/internal/metrics"
)

// RequestLogger puts a request-scoped logger into the user context and logs
// each completed request. Must run after the requestid middleware.
func RequestLogger(base *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID, _ := c.Locals("requestid").(string)

		log := base.With("request_id", requestID)
		c.SetUserContext(logging.IntoContext(c.UserContext(), log))

		err := c.Next()
		if err != nil {
			// Let the error handler write the response so the status is final.
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request failed", attrs...)
		case status >= fiber.StatusBadRequest:
			log.Warn("request rejected", attrs...)
		default:
			log.Info("request completed", attrs...)
		}
		return nil
	}
}

// Metrics records the status and latency of each request by route pattern.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		m.ObserveRequest(c.Route().Path, strconv.Itoa(status), float64(time.Since(start).Microseconds())/1000)
		return err
	}
}
