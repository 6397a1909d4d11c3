package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/observability"
	"github.com/noah-isme/lab-eval-api/internal/service"
	"github.com/noah-isme/lab-eval-api/internal/utils"
)

type fakeGuard struct {
	accounts map[string]models.Account
}

func (g fakeGuard) Authenticate(_ context.Context, token string) (models.Account, error) {
	account, ok := g.accounts[token]
	if !ok {
		return models.Account{}, service.ErrUnauthenticated
	}
	return account, nil
}

func (g fakeGuard) Authorize(account models.Account, allowed ...models.Role) error {
	for _, role := range allowed {
		if account.Role == role {
			return nil
		}
	}
	return service.ErrForbidden
}

func newGuardedApp(roles ...models.Role) *fiber.App {
	guard := fakeGuard{accounts: map[string]models.Account{
		"admin-token":   {ID: 1, Role: models.RoleAdmin},
		"ta-token":      {ID: 2, Role: models.RoleTA},
		"student-token": {ID: 3, Role: models.RoleStudent},
	}}

	app := fiber.New()
	app.Use(Authenticate(guard))
	app.Use(RequireRole(guard, roles...))
	app.Get("/", func(c *fiber.Ctx) error {
		account, ok := CurrentAccount(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"id": account.ID})
	})
	return app
}

func perform(t *testing.T, app *fiber.App, authorization string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthenticateRejectsMissingOrInvalidTokens(t *testing.T) {
	app := newGuardedApp(models.RoleAdmin)

	resp := perform(t, app, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = perform(t, app, "Basic abc")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = perform(t, app, "Bearer unknown")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var body utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.False(t, body.Success)
}

func TestRequireRoleIsExactMatch(t *testing.T) {
	taOnly := newGuardedApp(models.RoleTA)

	require.Equal(t, fiber.StatusOK, perform(t, taOnly, "Bearer ta-token").StatusCode)
	require.Equal(t, fiber.StatusForbidden, perform(t, taOnly, "Bearer admin-token").StatusCode)
	require.Equal(t, fiber.StatusForbidden, perform(t, taOnly, "Bearer student-token").StatusCode)

	everyone := newGuardedApp(models.RoleStudent, models.RoleTA, models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, perform(t, everyone, "bearer student-token").StatusCode)
}

func TestRequireRoleWithoutAuthenticateIsUnauthorized(t *testing.T) {
	app := fiber.New()
	app.Use(RequireRole(fakeGuard{}, models.RoleAdmin))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	require.Equal(t, fiber.StatusUnauthorized, perform(t, app, "").StatusCode)
}

func TestCorrelationIDPropagates(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID(zerolog.Nop()))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(CorrelationIDFromContext(c.UserContext()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCorrelationID, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get(HeaderCorrelationID))

	resp = perform(t, app, "")
	require.NotEmpty(t, resp.Header.Get(HeaderCorrelationID))
}

func TestRateLimitRejectsExcessRequests(t *testing.T) {
	app := fiber.New()
	app.Post("/login", RateLimit("login", 2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestRegisterObservesRequests(t *testing.T) {
	app := fiber.New()
	logger := zerolog.Nop()
	Register(app, Config{Logger: &logger, ObservedPrefix: "/api/v1"})
	app.Get("/api/v1/ping", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(HeaderCorrelationID))
}

func TestObservabilityLabelsUnmatchedRoutes(t *testing.T) {
	app := fiber.New()
	app.Use(Observability(zerolog.Nop(), "/api/v1"))
	app.Get("/api/v1/subjects/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	before := testutil.ToFloat64(observability.HTTPRequests().WithLabelValues(http.MethodGet, "/api/v1/subjects/:id", "200"))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/subjects/7", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, before+1, testutil.ToFloat64(observability.HTTPRequests().WithLabelValues(http.MethodGet, "/api/v1/subjects/:id", "200")))

	missesBefore := testutil.ToFloat64(observability.HTTPErrors().WithLabelValues(http.MethodGet, unmatchedRoute, "404"))
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/nowhere/42", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, missesBefore+1, testutil.ToFloat64(observability.HTTPErrors().WithLabelValues(http.MethodGet, unmatchedRoute, "404")))
}
