package handler_test

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-eval-api/internal/handler"
	"github.com/noah-isme/lab-eval-api/internal/service"
)

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "ws://" + listener.Addr().String(), shutdown
}

func dialFeed(t *testing.T, baseURL, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	header := http.Header{}
	if token != "" {
		header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return dialer.Dial(baseURL+"/api/v1/user/evaluations/ws", header)
}

func TestEvaluationFeedStreamsOwnEvaluations(t *testing.T) {
	w := newLabWorld(t)
	s := w.server

	baseURL, shutdown := startFiberServer(t, s.app)
	defer shutdown()

	conn, resp, err := dialFeed(t, baseURL, w.aliceToken)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var ready map[string]string
	require.NoError(t, conn.ReadJSON(&ready))
	require.Equal(t, handler.FeedReady, ready["type"])

	status, body := s.do(t, http.MethodPost, "/api/v1/ta/evaluations", w.taToken, map[string]interface{}{
		"student_id":  w.aliceID,
		"question_id": w.questionID,
		"marking":     "partial",
	})
	require.Equal(t, http.StatusCreated, status, body.Message)

	var event service.EvaluationEvent
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, service.EvaluationCreated, event.Type)
	require.Equal(t, w.aliceID, event.Evaluation.StudentID)
	require.Equal(t, w.tomID, event.Evaluation.TAID)
	require.Equal(t, "partial", event.Evaluation.Marking)
}

func TestEvaluationFeedRequiresAuthentication(t *testing.T) {
	w := newLabWorld(t)

	baseURL, shutdown := startFiberServer(t, w.server.app)
	defer shutdown()

	conn, resp, err := dialFeed(t, baseURL, "")
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestEvaluationFeedRejectsPlainHTTP(t *testing.T) {
	w := newLabWorld(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/evaluations/ws", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+w.aliceToken)
	resp, err := w.server.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
	_ = resp.Body.Close()
}
