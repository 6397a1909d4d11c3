package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/lab-eval-api/internal/config"
	"github.com/noah-isme/lab-eval-api/internal/handler"
	"github.com/noah-isme/lab-eval-api/internal/middleware"
	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	Guard                  middleware.Guard
	HealthChecks           []handler.DependencyCheck
	AuthHandler            *handler.AuthHandler
	UserHandler            *handler.UserHandler
	EvaluationFeedHandler  *handler.EvaluationFeedHandler
	AdminSubjectHandler    *handler.AdminSubjectHandler
	AdminQuestionHandler   *handler.AdminQuestionHandler
	AdminUserHandler       *handler.AdminUserHandler
	AdminEnrollmentHandler *handler.AdminEnrollmentHandler
	AdminEvaluationHandler *handler.AdminEvaluationHandler
	AdminActivityHandler   *handler.AdminActivityHandler
	TAHandler              *handler.TAHandler
	StudentHandler         *handler.StudentHandler
	// LoginLimiter guards the login route; nil disables rate limiting.
	LoginLimiter fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks...))

	if deps.AuthHandler != nil {
		var guards []fiber.Handler
		if deps.LoginLimiter != nil {
			guards = append(guards, deps.LoginLimiter)
		}
		deps.AuthHandler.Register(api.Group("/auth"), guards...)
	}

	if deps.Guard == nil {
		return
	}
	authenticate := middleware.Authenticate(deps.Guard)

	user := api.Group("/user", authenticate)
	if deps.UserHandler != nil {
		deps.UserHandler.Register(user)
	}
	if deps.EvaluationFeedHandler != nil {
		deps.EvaluationFeedHandler.Register(user.Group("/evaluations"))
	}

	admin := api.Group("/admin", authenticate, middleware.RequireRole(deps.Guard, models.RoleAdmin))
	if deps.AdminSubjectHandler != nil {
		deps.AdminSubjectHandler.Register(admin.Group("/subjects"))
	}
	if deps.AdminQuestionHandler != nil {
		deps.AdminQuestionHandler.Register(admin.Group("/questions"))
	}
	if deps.AdminUserHandler != nil {
		deps.AdminUserHandler.Register(admin.Group("/users"))
	}
	if deps.AdminEnrollmentHandler != nil {
		deps.AdminEnrollmentHandler.Register(admin.Group("/enrollments"))
	}
	if deps.AdminEvaluationHandler != nil {
		deps.AdminEvaluationHandler.Register(admin.Group("/evaluations"))
	}
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activity"))
	}

	if deps.TAHandler != nil {
		ta := api.Group("/ta", authenticate, middleware.RequireRole(deps.Guard, models.RoleTA))
		deps.TAHandler.Register(ta)
	}

	if deps.StudentHandler != nil {
		student := api.Group("/student", authenticate, middleware.RequireRole(deps.Guard, models.RoleStudent))
		deps.StudentHandler.Register(student)
	}
}
