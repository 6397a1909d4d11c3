package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lab-eval-api/internal/service"
	"github.com/noah-isme/lab-eval-api/internal/utils"
)

// StudentHandler exposes the read-only student surface scoped to the caller.
type StudentHandler struct {
	service service.StudentService
	logger  zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(service service.StudentService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service: service,
		logger:  logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches student routes to the router group.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("/enrollments", h.enrollments)
	router.Get("/subjects", h.subjects)
	router.Get("/questions", h.questions)
	router.Get("/evaluations", h.evaluations)
}

func (h *StudentHandler) enrollments(c *fiber.Ctx) error {
	items, err := h.service.Enrollments(c.UserContext(), actorFromContext(c).ID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list enrollments")
	}

	return utils.OK(c, items, "enrollments retrieved", nil)
}

func (h *StudentHandler) subjects(c *fiber.Ctx) error {
	items, err := h.service.Subjects(c.UserContext(), actorFromContext(c).ID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list subjects")
	}

	return utils.OK(c, items, "subjects retrieved", nil)
}

func (h *StudentHandler) questions(c *fiber.Ctx) error {
	items, err := h.service.Questions(c.UserContext(), actorFromContext(c).ID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list questions")
	}

	return utils.OK(c, items, "questions retrieved", nil)
}

func (h *StudentHandler) evaluations(c *fiber.Ctx) error {
	items, err := h.service.Evaluations(c.UserContext(), actorFromContext(c).ID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list evaluations")
	}

	return utils.OK(c, items, "evaluations retrieved", nil)
}
