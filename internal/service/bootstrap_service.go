package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/repository"
)

// BootstrapService provisions the initial administrator.
type BootstrapService interface {
	EnsureAdmin(ctx context.Context, email, name string) (models.Account, error)
}

type bootstrapService struct {
	store  repository.Store
	logger zerolog.Logger
}

// NewBootstrapService constructs the bootstrap service.
func NewBootstrapService(store repository.Store, logger zerolog.Logger) BootstrapService {
	return &bootstrapService{
		store:  store,
		logger: logger.With().Str("component", "bootstrap_service").Logger(),
	}
}

// EnsureAdmin creates the account with role admin, or promotes an existing one. Running it
// again changes nothing.
func (s *bootstrapService) EnsureAdmin(ctx context.Context, email, name string) (models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.Account{}, fmt.Errorf("%w: bootstrap email is empty", ErrInvalidInput)
	}

	var account models.Account
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.Accounts().GetByEmail(ctx, email)
		switch {
		case err == nil:
			account = existing
			if account.Role == models.RoleAdmin {
				return nil
			}
			account.Role = models.RoleAdmin
			s.logger.Warn().Uint("account_id", account.ID).Msg("promoting bootstrap account to admin")
			return tx.Accounts().Update(ctx, &account)
		case repository.IsNotFound(err):
			account = models.Account{Name: strings.TrimSpace(name), Email: email, Role: models.RoleAdmin}
			if err := tx.Accounts().Create(ctx, &account); err != nil {
				return err
			}
			s.logger.Info().Uint("account_id", account.ID).Msg("bootstrap admin created")
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return models.Account{}, err
	}

	return account, nil
}
