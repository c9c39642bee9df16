package middleware

import (
	"fmt"
	"log/slog"

	"pesan/internal/logging"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger stores a request-scoped logger, tagged with the request id, in
// the user context. Must run after the requestid middleware.
func RequestLogger(base *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := base.With(
			"request_id", fmt.Sprint(c.Locals("requestid")),
			"method", c.Method(),
			"path", c.Path(),
		)
		c.SetUserContext(logging.WithContext(c.UserContext(), log))
		return c.Next()
	}
}
