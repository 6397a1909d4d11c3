package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/lab-eval-api/internal/auth"
	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/repository"
)

var errBindingLost = errors.New("account bound concurrently")

// AccountBinder resolves verified external claims to a provisioned account, binding the
// external subject on first login.
type AccountBinder struct {
	store  repository.Store
	logger zerolog.Logger
}

// NewAccountBinder constructs the binder.
func NewAccountBinder(store repository.Store, logger zerolog.Logger) *AccountBinder {
	return &AccountBinder{
		store:  store,
		logger: logger.With().Str("component", "account_binder").Logger(),
	}
}

// Resolve returns the account for claims. The first matching rule wins:
// an account already bound to the subject; no account for the email (ErrNotProvisioned);
// an unbound account, which gets bound; an account bound elsewhere (ErrIdentityMismatch).
func (b *AccountBinder) Resolve(ctx context.Context, claims auth.ExternalClaims) (models.Account, error) {
	accounts := b.store.Accounts()

	account, err := accounts.GetByGoogleSub(ctx, claims.Subject)
	if err == nil {
		return account, nil
	}
	if !repository.IsNotFound(err) {
		return models.Account{}, err
	}

	account, err = accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(claims.Email)))
	if err != nil {
		if repository.IsNotFound(err) {
			return models.Account{}, ErrNotProvisioned
		}
		return models.Account{}, err
	}

	if account.IsBound() {
		if *account.GoogleSub == claims.Subject {
			return account, nil
		}
		b.logger.Warn().Uint("account_id", account.ID).Msg("login rejected: account bound to another identity")
		return models.Account{}, ErrIdentityMismatch
	}

	return b.bind(ctx, account, claims)
}

func (b *AccountBinder) bind(ctx context.Context, account models.Account, claims auth.ExternalClaims) (models.Account, error) {
	name := ""
	if strings.TrimSpace(account.Name) == "" {
		name = claims.Name
	}

	var bound models.Account
	err := b.store.Transaction(ctx, func(tx repository.Store) error {
		ok, err := tx.Accounts().BindGoogleSub(ctx, account.ID, claims.Subject, name)
		if err != nil {
			return err
		}
		if !ok {
			return errBindingLost
		}

		bound, err = tx.Accounts().GetByID(ctx, account.ID)
		return err
	})

	switch {
	case err == nil:
		b.logger.Info().Uint("account_id", bound.ID).Msg("external identity bound to account")
		return bound, nil
	case errors.Is(err, errBindingLost), repository.IsUniqueViolation(err):
		return b.resolveLostBinding(ctx, account.ID, claims.Subject)
	default:
		return models.Account{}, err
	}
}

// resolveLostBinding handles a concurrent writer having bound first. The login succeeds
// only when the winner attached the same subject to the same account.
func (b *AccountBinder) resolveLostBinding(ctx context.Context, accountID uint, subject string) (models.Account, error) {
	winner, err := b.store.Accounts().GetByGoogleSub(ctx, subject)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.Account{}, ErrIdentityMismatch
		}
		return models.Account{}, err
	}

	if winner.ID != accountID {
		return models.Account{}, ErrIdentityMismatch
	}

	return winner, nil
}
