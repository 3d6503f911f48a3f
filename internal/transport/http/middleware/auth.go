package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/taskhub/backend/internal/config"
)

// tokenAuth guards a route group with a shared token, taken from the given
// header or a Bearer Authorization header. An empty configured token
// disables the check.
func tokenAuth(headerName, token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}

		headerToken := c.Get(headerName)
		if headerToken == "" {
			auth := c.Get("Authorization")
			const prefix = "Bearer "
			if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
				headerToken = auth[len(prefix):]
			}
		}

		if headerToken != token {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		return c.Next()
	}
}

func AdminAuth(cfg *config.Config) fiber.Handler {
	return tokenAuth("X-Admin-Token", cfg.Auth.AdminAPIKey)
}

func WorkerAuth(cfg *config.Config) fiber.Handler {
	return tokenAuth("X-Worker-Token", cfg.Auth.WorkerToken)
}
