package handler_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/handler"
	"github.com/noah-isme/lab-eval-api/internal/service"
)

type mockSubjectService struct {
	err      error
	lastID   uint
	lastName string
}

func (m *mockSubjectService) List(context.Context) ([]dto.SubjectResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []dto.SubjectResponse{{ID: 1, Name: "Algorithms"}}, nil
}

func (m *mockSubjectService) Get(_ context.Context, id uint) (dto.SubjectResponse, error) {
	m.lastID = id
	if m.err != nil {
		return dto.SubjectResponse{}, m.err
	}
	return dto.SubjectResponse{ID: id, Name: "Algorithms"}, nil
}

func (m *mockSubjectService) Create(_ context.Context, _ service.Actor, payload dto.SubjectRequest) (dto.SubjectResponse, error) {
	m.lastName = payload.Name
	if m.err != nil {
		return dto.SubjectResponse{}, m.err
	}
	return dto.SubjectResponse{ID: 7, Name: payload.Name}, nil
}

func (m *mockSubjectService) Update(_ context.Context, _ service.Actor, id uint, payload dto.SubjectRequest) (dto.SubjectResponse, error) {
	m.lastID = id
	if m.err != nil {
		return dto.SubjectResponse{}, m.err
	}
	return dto.SubjectResponse{ID: id, Name: payload.Name}, nil
}

func (m *mockSubjectService) Delete(_ context.Context, _ service.Actor, id uint) error {
	m.lastID = id
	return m.err
}

func newSubjectApp(svc service.SubjectService) *fiber.App {
	app := fiber.New()
	handler.NewAdminSubjectHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/admin/subjects"))
	return app
}

func TestAdminSubjectHandler_CreateSuccess(t *testing.T) {
	svc := &mockSubjectService{}
	app := newSubjectApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/subjects", strings.NewReader(`{"name":"Algorithms"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, "subject created", body.Message)
	require.Equal(t, "Algorithms", svc.lastName)
}

func TestAdminSubjectHandler_InvalidPayload(t *testing.T) {
	app := newSubjectApp(&mockSubjectService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/subjects", strings.NewReader(`{"name":`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdminSubjectHandler_InvalidIdentifier(t *testing.T) {
	svc := &mockSubjectService{}
	app := newSubjectApp(svc)

	for _, path := range []string{"/api/v1/admin/subjects/abc", "/api/v1/admin/subjects/0", "/api/v1/admin/subjects/-1"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, path)
	}
	require.Zero(t, svc.lastID)
}

func TestAdminSubjectHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("%w: subject 3", service.ErrNotFound), fiber.StatusNotFound},
		{"conflict", fmt.Errorf("%w: subject has evaluations", service.ErrConflict), fiber.StatusBadRequest},
		{"invalid reference", service.ErrInvalidReference, fiber.StatusBadRequest},
		{"not enrolled", service.ErrNotEnrolled, fiber.StatusBadRequest},
		{"invalid input", service.ErrInvalidInput, fiber.StatusBadRequest},
		{"forbidden", service.ErrForbidden, fiber.StatusForbidden},
		{"unauthenticated", errors.Join(service.ErrUnauthenticated, errors.New("expired")), fiber.StatusUnauthorized},
		{"identity mismatch", service.ErrIdentityMismatch, fiber.StatusUnauthorized},
		{"not provisioned", service.ErrNotProvisioned, fiber.StatusUnauthorized},
		{"storage", errors.New("connection reset"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newSubjectApp(&mockSubjectService{err: tc.err})

			resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/subjects/3", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			var body envelope
			decodeResponse(t, resp, &body)
			require.False(t, body.Success)
			if tc.status == fiber.StatusInternalServerError {
				require.Equal(t, "failed to delete subject", body.Message)
			}
		})
	}
}
