package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/lab-eval-api/internal/auth"
	"github.com/noah-isme/lab-eval-api/internal/config"
	"github.com/noah-isme/lab-eval-api/internal/database"
	"github.com/noah-isme/lab-eval-api/internal/handler"
	"github.com/noah-isme/lab-eval-api/internal/middleware"
	"github.com/noah-isme/lab-eval-api/internal/observability"
	"github.com/noah-isme/lab-eval-api/internal/repository"
	"github.com/noah-isme/lab-eval-api/internal/router"
	"github.com/noah-isme/lab-eval-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if !cfg.IsDevelopment() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx := context.Background()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, student views are served uncached")
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, evaluation events are dropped")
		} else {
			defer natsConn.Drain()
		}
	}

	codec, err := auth.NewTokenCodec(cfg.JWTSecret, cfg.JWTExpires)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure session tokens")
	}

	verifier, err := auth.NewGoogleVerifier(cfg.GoogleClientID)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure google verifier")
	}

	observability.RegisterMetrics()
	validate := validator.New(validator.WithRequiredStructEnabled())
	store := repository.NewStore(db)

	bootstrap := service.NewBootstrapService(store, logger)
	if cfg.BootstrapEmail != "" {
		if _, err := bootstrap.EnsureAdmin(ctx, cfg.BootstrapEmail, cfg.BootstrapName); err != nil {
			logger.Fatal().Err(err).Msg("failed to bootstrap admin account")
		}
	} else {
		logger.Warn().Msg("no bootstrap admin configured")
	}

	var views *service.StudentViewCache
	if redisClient != nil {
		views = service.NewStudentViewCache(redisClient, cfg.CacheTTL, logger)
	}

	activityService := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	integrity := service.NewIntegrityValidator()
	events := service.NewEvaluationBroadcaster(natsConn, cfg.EventsSubject, logger)
	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	if err := events.Start(feedCtx); err != nil {
		logger.Warn().Err(err).Msg("evaluation events from other nodes are not relayed")
	}

	authService := service.NewAuthService(verifier, service.NewAccountBinder(store, logger), codec, validate, activityService, logger)
	accountService := service.NewAccountService(store, validate, activityService, views, logger)
	subjectService := service.NewSubjectService(store, validate, activityService, views, logger)
	questionService := service.NewQuestionService(store, validate, activityService, views, logger)
	enrollmentService := service.NewEnrollmentService(store, integrity, validate, activityService, views, logger)
	evaluationService := service.NewEvaluationService(store, integrity, validate, activityService, views, events, logger)
	studentService := service.NewStudentService(store, views, logger)
	guard := service.NewAccessGuard(codec, store.Accounts())

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:         &logger,
		AllowedOrigins: cfg.AllowedOrigins,
		ObservedPrefix: cfg.RequestLogPrefix,
		AccessLog:      cfg.IsDevelopment(),
	})
	router.Register(app, cfg, router.Dependencies{
		Guard:                  guard,
		HealthChecks:           healthChecks(db, redisClient),
		AuthHandler:            handler.NewAuthHandler(authService, logger),
		UserHandler:            handler.NewUserHandler(),
		EvaluationFeedHandler:  handler.NewEvaluationFeedHandler(events, logger, 30*time.Second),
		AdminSubjectHandler:    handler.NewAdminSubjectHandler(subjectService, logger),
		AdminQuestionHandler:   handler.NewAdminQuestionHandler(questionService, logger),
		AdminUserHandler:       handler.NewAdminUserHandler(accountService, logger),
		AdminEnrollmentHandler: handler.NewAdminEnrollmentHandler(enrollmentService, logger),
		AdminEvaluationHandler: handler.NewAdminEvaluationHandler(evaluationService, logger),
		AdminActivityHandler:   handler.NewAdminActivityHandler(activityService, logger),
		TAHandler: handler.NewTAHandler(handler.TAServices{
			Accounts:    accountService,
			Subjects:    subjectService,
			Questions:   questionService,
			Enrollments: enrollmentService,
			Evaluations: evaluationService,
		}, logger),
		StudentHandler: handler.NewStudentHandler(studentService, logger),
		LoginLimiter:   middleware.RateLimit("login", cfg.LoginRateLimit, cfg.LoginRateWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func healthChecks(db *gorm.DB, redisClient *redis.Client) []handler.DependencyCheck {
	checks := []handler.DependencyCheck{{
		Name: "database",
		Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}

	if redisClient != nil {
		checks = append(checks, handler.DependencyCheck{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}

	return checks
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
