package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/service"
	"github.com/noah-isme/lab-eval-api/internal/utils"
)

// AdminQuestionHandler wires admin question endpoints.
type AdminQuestionHandler struct {
	service service.QuestionService
	logger  zerolog.Logger
}

// NewAdminQuestionHandler constructs the handler.
func NewAdminQuestionHandler(service service.QuestionService, logger zerolog.Logger) *AdminQuestionHandler {
	return &AdminQuestionHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_question_handler").Logger(),
	}
}

// Register attaches question admin routes to the router group.
func (h *AdminQuestionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *AdminQuestionHandler) list(c *fiber.Ctx) error {
	subjectID, err := parseQueryUint(c, "subject_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid subject id")
	}

	questions, err := h.service.List(c.UserContext(), dto.QuestionListRequest{SubjectID: subjectID})
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list questions")
	}

	return utils.OK(c, questions, "questions retrieved", nil)
}

func (h *AdminQuestionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	question, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to fetch question")
	}

	return utils.OK(c, question, "question retrieved", nil)
}

func (h *AdminQuestionHandler) create(c *fiber.Ctx) error {
	var payload dto.QuestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	question, err := h.service.Create(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to create question")
	}

	return utils.Created(c, question, "question created")
}

func (h *AdminQuestionHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.QuestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	question, err := h.service.Update(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update question")
	}

	return utils.OK(c, question, "question updated", nil)
}

func (h *AdminQuestionHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return sendServiceError(c, h.logger, err, "failed to delete question")
	}

	return utils.OK(c, fiber.Map{"id": id}, "question deleted", nil)
}
