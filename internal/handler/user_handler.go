package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/middleware"
	"github.com/noah-isme/lab-eval-api/internal/utils"
)

// UserHandler serves endpoints available to every authenticated role.
type UserHandler struct{}

// NewUserHandler constructs the handler.
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Register attaches user routes to the router group.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/me", h.me)
}

func (h *UserHandler) me(c *fiber.Ctx) error {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	return utils.OK(c, dto.NewAccountResponse(account), "profile retrieved", nil)
}
