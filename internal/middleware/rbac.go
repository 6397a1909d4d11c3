package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/utils"
)

// RequireRole admits the authenticated account only when its role is exactly one of roles.
// It must run after Authenticate.
func RequireRole(guard Guard, roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		account, ok := CurrentAccount(c)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		if err := guard.Authorize(account, roles...); err != nil {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}

		return c.Next()
	}
}
