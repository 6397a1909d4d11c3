package service

import (
	"context"
	"errors"

	"github.com/noah-isme/lab-eval-api/internal/auth"
	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/repository"
)

// TokenDecoder verifies session tokens.
type TokenDecoder interface {
	Decode(token string) (auth.SessionClaims, error)
}

// AccessGuard authenticates session tokens and authorizes roles.
type AccessGuard struct {
	decoder  TokenDecoder
	accounts repository.AccountRepository
}

// NewAccessGuard constructs the guard.
func NewAccessGuard(decoder TokenDecoder, accounts repository.AccountRepository) *AccessGuard {
	return &AccessGuard{decoder: decoder, accounts: accounts}
}

// Authenticate decodes token and loads the account it names. The account's stored role is
// authoritative; the role claim only has to be well formed.
func (g *AccessGuard) Authenticate(ctx context.Context, token string) (models.Account, error) {
	if token == "" {
		return models.Account{}, ErrUnauthenticated
	}

	claims, err := g.decoder.Decode(token)
	if err != nil {
		return models.Account{}, errors.Join(ErrUnauthenticated, err)
	}

	account, err := g.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.Account{}, ErrUnauthenticated
		}
		return models.Account{}, err
	}

	return account, nil
}

// Authorize allows the account only when its role equals one of allowed. Roles are not
// ordered: an admin does not pass a ta-only check.
func (g *AccessGuard) Authorize(account models.Account, allowed ...models.Role) error {
	for _, role := range allowed {
		if account.HasRole(role) {
			return nil
		}
	}
	return ErrForbidden
}
