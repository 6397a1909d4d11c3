package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/service"
	"github.com/noah-isme/lab-eval-api/internal/utils"
)

const accountLocalKey = "account"

// Guard resolves session tokens and checks roles.
type Guard interface {
	Authenticate(ctx context.Context, token string) (models.Account, error)
	Authorize(account models.Account, allowed ...models.Role) error
}

// Authenticate validates the bearer token and stores the resolved account on the request.
func Authenticate(guard Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		token := strings.TrimSpace(authorization[len(bearer):])
		if token == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		account, err := guard.Authenticate(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
			}
			return err
		}

		c.Locals(accountLocalKey, account)
		c.Locals("user_id", account.ID)
		c.Locals("user_role", account.Role.String())

		return c.Next()
	}
}

// CurrentAccount returns the account stored by Authenticate.
func CurrentAccount(c *fiber.Ctx) (models.Account, bool) {
	account, ok := c.Locals(accountLocalKey).(models.Account)
	return account, ok
}
