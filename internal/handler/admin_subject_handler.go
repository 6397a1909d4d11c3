package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/service"
	"github.com/noah-isme/lab-eval-api/internal/utils"
)

// AdminSubjectHandler wires admin subject endpoints.
type AdminSubjectHandler struct {
	service service.SubjectService
	logger  zerolog.Logger
}

// NewAdminSubjectHandler constructs the handler.
func NewAdminSubjectHandler(service service.SubjectService, logger zerolog.Logger) *AdminSubjectHandler {
	return &AdminSubjectHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_subject_handler").Logger(),
	}
}

// Register attaches subject admin routes to the router group.
func (h *AdminSubjectHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *AdminSubjectHandler) list(c *fiber.Ctx) error {
	subjects, err := h.service.List(c.UserContext())
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list subjects")
	}

	return utils.OK(c, subjects, "subjects retrieved", nil)
}

func (h *AdminSubjectHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	subject, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to fetch subject")
	}

	return utils.OK(c, subject, "subject retrieved", nil)
}

func (h *AdminSubjectHandler) create(c *fiber.Ctx) error {
	var payload dto.SubjectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	subject, err := h.service.Create(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to create subject")
	}

	return utils.Created(c, subject, "subject created")
}

func (h *AdminSubjectHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.SubjectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	subject, err := h.service.Update(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update subject")
	}

	return utils.OK(c, subject, "subject updated", nil)
}

func (h *AdminSubjectHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return sendServiceError(c, h.logger, err, "failed to delete subject")
	}

	return utils.OK(c, fiber.Map{"id": id}, "subject deleted", nil)
}
