package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/service"
	"github.com/noah-isme/lab-eval-api/internal/utils"
)

// AdminEnrollmentHandler wires admin enrollment endpoints.
type AdminEnrollmentHandler struct {
	service service.EnrollmentService
	logger  zerolog.Logger
}

// NewAdminEnrollmentHandler constructs the handler.
func NewAdminEnrollmentHandler(service service.EnrollmentService, logger zerolog.Logger) *AdminEnrollmentHandler {
	return &AdminEnrollmentHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_enrollment_handler").Logger(),
	}
}

// Register attaches enrollment admin routes to the router group.
func (h *AdminEnrollmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *AdminEnrollmentHandler) list(c *fiber.Ctx) error {
	req, err := parseEnrollmentFilter(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	enrollments, err := h.service.List(c.UserContext(), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list enrollments")
	}

	return utils.OK(c, enrollments, "enrollments retrieved", nil)
}

func (h *AdminEnrollmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	enrollment, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to fetch enrollment")
	}

	return utils.OK(c, enrollment, "enrollment retrieved", nil)
}

func (h *AdminEnrollmentHandler) create(c *fiber.Ctx) error {
	var payload dto.EnrollmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	enrollment, err := h.service.Create(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to create enrollment")
	}

	return utils.Created(c, enrollment, "enrollment created")
}

func (h *AdminEnrollmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.EnrollmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	enrollment, err := h.service.Update(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update enrollment")
	}

	return utils.OK(c, enrollment, "enrollment updated", nil)
}

func (h *AdminEnrollmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return sendServiceError(c, h.logger, err, "failed to delete enrollment")
	}

	return utils.OK(c, fiber.Map{"id": id}, "enrollment deleted", nil)
}

func parseEnrollmentFilter(c *fiber.Ctx) (dto.EnrollmentListRequest, error) {
	userID, err := parseQueryUint(c, "user_id")
	if err != nil {
		return dto.EnrollmentListRequest{}, errInvalidQuery("user_id")
	}
	subjectID, err := parseQueryUint(c, "subject_id")
	if err != nil {
		return dto.EnrollmentListRequest{}, errInvalidQuery("subject_id")
	}
	return dto.EnrollmentListRequest{UserID: userID, SubjectID: subjectID}, nil
}
