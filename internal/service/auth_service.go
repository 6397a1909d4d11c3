package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/lab-eval-api/internal/auth"
	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/observability"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(accountID uint, role models.Role) (string, time.Time, error)
}

// AuthService exchanges a Google ID token for a session token.
type AuthService interface {
	Login(ctx context.Context, payload dto.LoginRequest) (dto.TokenResponse, error)
}

type authService struct {
	verifier  auth.IdentityVerifier
	binder    *AccountBinder
	issuer    TokenIssuer
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewAuthService constructs the login service.
func NewAuthService(verifier auth.IdentityVerifier, binder *AccountBinder, issuer TokenIssuer, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AuthService {
	return &authService{
		verifier:  verifier,
		binder:    binder,
		issuer:    issuer,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/lab-eval-api/internal/service/auth"),
	}
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.TokenResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.login")
	defer span.End()

	payload.IDToken = strings.TrimSpace(payload.IDToken)
	if payload.IDToken == "" {
		s.fail(span, "unverified", auth.ErrUnverifiedAssertion)
		return dto.TokenResponse{}, auth.ErrUnverifiedAssertion
	}
	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation_failed")
		return dto.TokenResponse{}, err
	}

	claims, err := s.verifier.Verify(ctx, payload.IDToken)
	if err != nil {
		s.fail(span, "unverified", err)
		if !errors.Is(err, auth.ErrUnverifiedAssertion) {
			err = errors.Join(auth.ErrUnverifiedAssertion, err)
		}
		return dto.TokenResponse{}, err
	}

	account, err := s.binder.Resolve(ctx, claims)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotProvisioned):
			s.fail(span, "not_provisioned", err)
		case errors.Is(err, ErrIdentityMismatch):
			s.fail(span, "identity_mismatch", err)
		default:
			s.fail(span, "error", err)
			s.logger.Error().Err(err).Msg("account resolution failed")
		}
		return dto.TokenResponse{}, err
	}

	token, expiresAt, err := s.issuer.Issue(account.ID, account.Role)
	if err != nil {
		s.fail(span, "error", err)
		s.logger.Error().Err(err).Uint("account_id", account.ID).Msg("failed to issue session token")
		return dto.TokenResponse{}, err
	}

	span.SetAttributes(
		attribute.Int64("auth.account_id", int64(account.ID)),
		attribute.String("auth.role", account.Role.String()),
	)
	observability.LoginOutcomes().WithLabelValues("success").Inc()
	s.logger.Info().Uint("account_id", account.ID).Str("role", account.Role.String()).Msg("login succeeded")

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      ActorFromAccount(account),
		Action:     "auth.login",
		EntityType: "user",
		EntityID:   uintPtr(account.ID),
	})

	return dto.TokenResponse{
		AccessToken: token,
		TokenType:   auth.TokenType,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *authService) fail(span trace.Span, outcome string, err error) {
	observability.LoginOutcomes().WithLabelValues(outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	if outcome != "error" {
		s.logger.Warn().Str("outcome", outcome).Msg("login rejected")
	}
}
