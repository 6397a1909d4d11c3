package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-eval-api/internal/auth"
	"github.com/noah-isme/lab-eval-api/internal/config"
	"github.com/noah-isme/lab-eval-api/internal/database"
	"github.com/noah-isme/lab-eval-api/internal/handler"
	"github.com/noah-isme/lab-eval-api/internal/middleware"
	"github.com/noah-isme/lab-eval-api/internal/repository"
	"github.com/noah-isme/lab-eval-api/internal/router"
	"github.com/noah-isme/lab-eval-api/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
	Message string          `json:"message"`
}

// fakeGoogle maps opaque assertions onto verified claims.
type fakeGoogle map[string]auth.ExternalClaims

func (f fakeGoogle) Verify(_ context.Context, assertion string) (auth.ExternalClaims, error) {
	claims, ok := f[assertion]
	if !ok {
		return auth.ExternalClaims{}, fmt.Errorf("%w: unknown assertion", auth.ErrUnverifiedAssertion)
	}
	return auth.NormalizeClaims(claims)
}

type testServer struct {
	app    *fiber.App
	store  repository.Store
	google fakeGoogle
	feed   *service.EvaluationBroadcaster
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.Connect("sqlite://"+filepath.Join(t.TempDir(), "handler.db"), false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	logger := zerolog.New(io.Discard)
	store := repository.NewStore(db)
	validate := validator.New(validator.WithRequiredStructEnabled())

	codec, err := auth.NewTokenCodec("handler-test-secret", time.Hour)
	require.NoError(t, err)

	_, err = service.NewBootstrapService(store, logger).EnsureAdmin(context.Background(), "admin@example.com", "Ada")
	require.NoError(t, err)

	google := fakeGoogle{
		"admin-assertion": {Subject: "g-admin", Email: "admin@example.com", Name: "Ada"},
	}

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	integrity := service.NewIntegrityValidator()
	accounts := service.NewAccountService(store, validate, activity, nil, logger)
	subjects := service.NewSubjectService(store, validate, activity, nil, logger)
	questions := service.NewQuestionService(store, validate, activity, nil, logger)
	enrollments := service.NewEnrollmentService(store, integrity, validate, activity, nil, logger)
	feed := service.NewEvaluationBroadcaster(nil, "", logger)
	evaluations := service.NewEvaluationService(store, integrity, validate, activity, nil, feed, logger)

	cfg := config.Config{AppName: "Lab Evaluation API", AppEnv: "test"}
	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger, ObservedPrefix: "/api/v1"})
	router.Register(app, cfg, router.Dependencies{
		Guard:                  service.NewAccessGuard(codec, store.Accounts()),
		AuthHandler:            handler.NewAuthHandler(service.NewAuthService(google, service.NewAccountBinder(store, logger), codec, validate, activity, logger), logger),
		UserHandler:            handler.NewUserHandler(),
		EvaluationFeedHandler:  handler.NewEvaluationFeedHandler(feed, logger, time.Second),
		AdminSubjectHandler:    handler.NewAdminSubjectHandler(subjects, logger),
		AdminQuestionHandler:   handler.NewAdminQuestionHandler(questions, logger),
		AdminUserHandler:       handler.NewAdminUserHandler(accounts, logger),
		AdminEnrollmentHandler: handler.NewAdminEnrollmentHandler(enrollments, logger),
		AdminEvaluationHandler: handler.NewAdminEvaluationHandler(evaluations, logger),
		AdminActivityHandler:   handler.NewAdminActivityHandler(activity, logger),
		TAHandler: handler.NewTAHandler(handler.TAServices{
			Accounts:    accounts,
			Subjects:    subjects,
			Questions:   questions,
			Enrollments: enrollments,
			Evaluations: evaluations,
		}, logger),
		StudentHandler: handler.NewStudentHandler(service.NewStudentService(store, nil, logger), logger),
	})

	return &testServer{app: app, store: store, google: google, feed: feed}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	var out envelope
	decodeResponse(t, resp, &out)
	return resp.StatusCode, out
}

func (s *testServer) login(t *testing.T, assertion string) string {
	t.Helper()

	status, body := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"id_token": assertion})
	require.Equal(t, http.StatusOK, status, body.Message)

	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &token))
	require.Equal(t, "bearer", token.TokenType)
	require.NotEmpty(t, token.AccessToken)
	return token.AccessToken
}

func (s *testServer) createID(t *testing.T, path, token string, payload interface{}) uint {
	t.Helper()

	status, body := s.do(t, http.MethodPost, path, token, payload)
	require.Equal(t, http.StatusCreated, status, body.Message)

	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &created))
	require.NotZero(t, created.ID)
	return created.ID
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}
