package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/service"
	"github.com/noah-isme/lab-eval-api/internal/utils"
)

// TAServices groups the services the TA surface reads from.
type TAServices struct {
	Accounts    service.AccountService
	Subjects    service.SubjectService
	Questions   service.QuestionService
	Enrollments service.EnrollmentService
	Evaluations service.EvaluationService
}

// TAHandler exposes the teaching assistant surface. Evaluations written here always name
// the caller as TA.
type TAHandler struct {
	services TAServices
	logger   zerolog.Logger
}

// NewTAHandler constructs the handler.
func NewTAHandler(services TAServices, logger zerolog.Logger) *TAHandler {
	return &TAHandler{
		services: services,
		logger:   logger.With().Str("component", "ta_handler").Logger(),
	}
}

// Register attaches TA routes to the router group.
func (h *TAHandler) Register(router fiber.Router) {
	router.Get("/students", h.students)
	router.Get("/enrollments", h.enrollments)
	router.Get("/subjects", h.subjects)
	router.Get("/questions", h.questions)
	router.Get("/evaluations", h.listEvaluations)
	router.Post("/evaluations", h.createEvaluation)
	router.Put("/evaluations/:id", h.updateEvaluation)
	router.Delete("/evaluations/:id", h.deleteEvaluation)
}

func (h *TAHandler) students(c *fiber.Ctx) error {
	students, err := h.services.Accounts.List(c.UserContext(), dto.AccountListRequest{
		Role:   models.RoleStudent.String(),
		Search: c.Query("search"),
	})
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list students")
	}

	return utils.OK(c, students, "students retrieved", nil)
}

func (h *TAHandler) enrollments(c *fiber.Ctx) error {
	req, err := parseEnrollmentFilter(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	enrollments, err := h.services.Enrollments.List(c.UserContext(), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list enrollments")
	}

	return utils.OK(c, enrollments, "enrollments retrieved", nil)
}

func (h *TAHandler) subjects(c *fiber.Ctx) error {
	subjects, err := h.services.Subjects.List(c.UserContext())
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list subjects")
	}

	return utils.OK(c, subjects, "subjects retrieved", nil)
}

func (h *TAHandler) questions(c *fiber.Ctx) error {
	subjectID, err := parseQueryUint(c, "subject_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid subject id")
	}

	questions, err := h.services.Questions.List(c.UserContext(), dto.QuestionListRequest{SubjectID: subjectID})
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list questions")
	}

	return utils.OK(c, questions, "questions retrieved", nil)
}

func (h *TAHandler) listEvaluations(c *fiber.Ctx) error {
	evaluations, err := h.services.Evaluations.ListForTA(c.UserContext(), actorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list evaluations")
	}

	return utils.OK(c, evaluations, "evaluations retrieved", nil)
}

func (h *TAHandler) createEvaluation(c *fiber.Ctx) error {
	var payload dto.TAEvaluationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	evaluation, err := h.services.Evaluations.CreateForTA(c.UserContext(), actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to create evaluation")
	}

	return utils.Created(c, evaluation, "evaluation created")
}

func (h *TAHandler) updateEvaluation(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.TAEvaluationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	evaluation, err := h.services.Evaluations.UpdateForTA(c.UserContext(), actorFromContext(c), id, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update evaluation")
	}

	return utils.OK(c, evaluation, "evaluation updated", nil)
}

func (h *TAHandler) deleteEvaluation(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.services.Evaluations.DeleteForTA(c.UserContext(), actorFromContext(c), id); err != nil {
		return sendServiceError(c, h.logger, err, "failed to delete evaluation")
	}

	return utils.OK(c, fiber.Map{"id": id}, "evaluation deleted", nil)
}
