package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/repository"
)

func TestBootstrapServiceEnsureAdminIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	svc := NewBootstrapService(store, testLogger())
	ctx := context.Background()

	first, err := svc.EnsureAdmin(ctx, " Root@Example.com ", "Root")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, first.Role)
	require.Equal(t, "root@example.com", first.Email)

	second, err := svc.EnsureAdmin(ctx, "root@example.com", "Other")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Root", second.Name)

	admins, err := store.Accounts().List(ctx, repository.AccountFilter{})
	require.NoError(t, err)
	require.Len(t, admins, 1)
}

func TestBootstrapServicePromotesExistingAccount(t *testing.T) {
	store := newTestStore(t)
	existing := createAccount(t, store, "Pat", "pat@example.com", models.RoleStudent)

	promoted, err := NewBootstrapService(store, testLogger()).EnsureAdmin(context.Background(), "pat@example.com", "")
	require.NoError(t, err)
	require.Equal(t, existing.ID, promoted.ID)
	require.Equal(t, models.RoleAdmin, promoted.Role)

	_, err = NewBootstrapService(store, testLogger()).EnsureAdmin(context.Background(), " ", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}
