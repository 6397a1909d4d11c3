package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/service"
	"github.com/noah-isme/lab-eval-api/internal/utils"
)

// AdminEvaluationHandler wires admin evaluation endpoints.
type AdminEvaluationHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewAdminEvaluationHandler constructs the handler.
func NewAdminEvaluationHandler(service service.EvaluationService, logger zerolog.Logger) *AdminEvaluationHandler {
	return &AdminEvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_evaluation_handler").Logger(),
	}
}

// Register attaches evaluation admin routes to the router group.
func (h *AdminEvaluationHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *AdminEvaluationHandler) list(c *fiber.Ctx) error {
	var req dto.EvaluationListRequest
	var err error
	if req.StudentID, err = parseQueryUint(c, "student_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, errInvalidQuery("student_id").Error())
	}
	if req.QuestionID, err = parseQueryUint(c, "question_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, errInvalidQuery("question_id").Error())
	}
	if req.TAID, err = parseQueryUint(c, "ta_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, errInvalidQuery("ta_id").Error())
	}

	evaluations, err := h.service.List(c.UserContext(), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list evaluations")
	}

	return utils.OK(c, evaluations, "evaluations retrieved", nil)
}

func (h *AdminEvaluationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	evaluation, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to fetch evaluation")
	}

	return utils.OK(c, evaluation, "evaluation retrieved", nil)
}

func (h *AdminEvaluationHandler) create(c *fiber.Ctx) error {
	var payload dto.EvaluationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	evaluation, err := h.service.Create(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to create evaluation")
	}

	return utils.Created(c, evaluation, "evaluation created")
}

func (h *AdminEvaluationHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.EvaluationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	evaluation, err := h.service.Update(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update evaluation")
	}

	return utils.OK(c, evaluation, "evaluation updated", nil)
}

func (h *AdminEvaluationHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return sendServiceError(c, h.logger, err, "failed to delete evaluation")
	}

	return utils.OK(c, fiber.Map{"id": id}, "evaluation deleted", nil)
}
