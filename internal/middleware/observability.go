package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lab-eval-api/internal/observability"
)

// unmatchedRoute labels requests that fell through every registered route, keeping the
// metric label set bounded.
const unmatchedRoute = "unmatched"

// Observability records request metrics and one structured log line per request under
// prefix. An empty prefix observes every route. The log line reuses the request-scoped
// logger installed by CorrelationID and carries the caller when Authenticate resolved one.
func Observability(fallback zerolog.Logger, prefix string) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(c.Path(), prefix) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		status := c.Response().StatusCode()
		if err != nil {
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			} else if status < fiber.StatusBadRequest {
				status = fiber.StatusInternalServerError
			}
		}

		route := routeLabel(c, status)
		method := c.Method()
		statusLabel := strconv.Itoa(status)

		observability.HTTPRequests().WithLabelValues(method, route, statusLabel).Inc()
		observability.HTTPLatency().WithLabelValues(method, route).Observe(elapsed.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.HTTPErrors().WithLabelValues(method, route, statusLabel).Inc()
		}

		logger := fallback
		if scoped := zerolog.Ctx(c.UserContext()); scoped.GetLevel() != zerolog.Disabled {
			logger = *scoped
		}

		level := zerolog.InfoLevel
		switch {
		case status >= fiber.StatusInternalServerError:
			level = zerolog.ErrorLevel
		case status >= fiber.StatusBadRequest:
			level = zerolog.WarnLevel
		}

		event := logger.WithLevel(level).Err(err)
		if account, ok := CurrentAccount(c); ok {
			event = event.Uint("account_id", account.ID).Str("role", account.Role.String())
		}

		event.
			Str("method", method).
			Str("route", route).
			Int("status", status).
			Dur("latency", elapsed).
			Msg("request completed")

		return err
	}
}

func routeLabel(c *fiber.Ctx, status int) string {
	route := c.Route()
	if route == nil || route.Path == "" || (status == fiber.StatusNotFound && route.Path == "/") {
		return unmatchedRoute
	}
	return route.Path
}
