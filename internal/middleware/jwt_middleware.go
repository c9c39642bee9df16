package middleware

import (
	"strings"

	"pesan/internal/authz"
	"pesan/internal/logging"
	"pesan/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the middleware in this package.
const (
	LocalPrincipal = "principal"
	LocalScope     = "scope"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(tokenService *services.TokenService) fiber.Handler {
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

		principal, err := tokenService.ValidateToken(parts[1])
		if err != nil {
			logging.FromContext(c.UserContext()).Warn("JWT validation failed", "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		c.Locals(LocalPrincipal, principal)
		c.SetUserContext(logging.WithContext(c.UserContext(),
			logging.FromContext(c.UserContext()).With("user_id", principal.UserID, "role", principal.Role)))
		return c.Next()
	}
}

// ResolveScope turns the authenticated principal into an authz.Scope once per
// request. Must run after AuthRequired.
func ResolveScope() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := c.Locals(LocalPrincipal).(*services.Principal)
		if !ok || principal == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication is required",
			})
		}

		scope, err := authz.Resolve(principal.Role, principal.Country)
		if err != nil {
			logging.FromContext(c.UserContext()).Warn("scope resolution failed", "error", err)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Access denied",
				"error":   err.Error(),
			})
		}

		c.Locals(LocalScope, scope)
		return c.Next()
	}
}

// CallerFrom returns the caller assembled by AuthRequired and ResolveScope.
func CallerFrom(c *fiber.Ctx) (services.Caller, bool) {
	principal, ok := c.Locals(LocalPrincipal).(*services.Principal)
	if !ok || principal == nil {
		return services.Caller{}, false
	}
	scope, ok := c.Locals(LocalScope).(authz.Scope)
	if !ok {
		return services.Caller{}, false
	}
	return services.Caller{UserID: principal.UserID, Scope: scope}, true
}
