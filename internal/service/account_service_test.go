package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-eval-api/internal/auth"
	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/models"
)

func TestAccountServiceCreateNormalisesAndRejectsDuplicates(t *testing.T) {
	store := newTestStore(t)
	svc := NewAccountService(store, testValidator(), nil, nil, testLogger())
	actor := Actor{ID: 99, Role: models.RoleAdmin}
	ctx := context.Background()

	created, err := svc.Create(ctx, actor, dto.AccountRequest{Name: " Lee ", Email: " Lee@Example.com", Role: "TA"})
	require.NoError(t, err)
	require.Equal(t, "lee@example.com", created.Email)
	require.Equal(t, "ta", created.Role)
	require.Nil(t, created.GoogleSub)

	_, err = svc.Create(ctx, actor, dto.AccountRequest{Email: "lee@example.com", Role: "student"})
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.Create(ctx, actor, dto.AccountRequest{Email: "x@example.com", Role: "teacher"})
	require.Error(t, err)
}

func TestAccountServiceUpdateEmailUniqueness(t *testing.T) {
	store := newTestStore(t)
	svc := NewAccountService(store, testValidator(), nil, nil, testLogger())
	actor := Actor{ID: 99, Role: models.RoleAdmin}
	ctx := context.Background()
	mia := createAccount(t, store, "Mia", "mia@example.com", models.RoleStudent)
	createAccount(t, store, "Ned", "ned@example.com", models.RoleStudent)

	_, err := svc.Update(ctx, actor, mia.ID, dto.AccountRequest{Name: "Mia", Email: "ned@example.com", Role: "student"})
	require.ErrorIs(t, err, ErrConflict)

	updated, err := svc.Update(ctx, actor, mia.ID, dto.AccountRequest{Name: "Mia R.", Email: "mia@example.com", Role: "ta"})
	require.NoError(t, err)
	require.Equal(t, "Mia R.", updated.Name)
	require.Equal(t, "ta", updated.Role)

	_, err = svc.Update(ctx, actor, 404, dto.AccountRequest{Email: "z@example.com", Role: "ta"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAccountServiceUnbindAllowsFreshBinding(t *testing.T) {
	store := newTestStore(t)
	svc := NewAccountService(store, testValidator(), nil, nil, testLogger())
	binder := NewAccountBinder(store, testLogger())
	ctx := context.Background()
	olive := createAccount(t, store, "Olive", "olive@example.com", models.RoleStudent)

	_, err := binder.Resolve(ctx, auth.ExternalClaims{Subject: "g-old", Email: "olive@example.com"})
	require.NoError(t, err)

	unbound, err := svc.Unbind(ctx, Actor{ID: 99, Role: models.RoleAdmin}, olive.ID)
	require.NoError(t, err)
	require.Nil(t, unbound.GoogleSub)

	rebound, err := binder.Resolve(ctx, auth.ExternalClaims{Subject: "g-new", Email: "olive@example.com"})
	require.NoError(t, err)
	require.Equal(t, "g-new", *rebound.GoogleSub)

	_, err = svc.Unbind(ctx, Actor{ID: 99, Role: models.RoleAdmin}, 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAccountServiceDelete(t *testing.T) {
	f := newLabFixture(t)
	svc := NewAccountService(f.store, testValidator(), nil, nil, testLogger())
	ctx := context.Background()

	require.ErrorIs(t, svc.Delete(ctx, f.adminActor(), f.admin.ID), ErrConflict)

	require.NoError(t, f.store.Evaluations().Create(ctx, &models.Evaluation{StudentID: f.student.ID, QuestionID: f.question.ID, TAID: f.ta.ID, Marking: models.MarkingDone}))
	require.ErrorIs(t, svc.Delete(ctx, f.adminActor(), f.ta.ID), ErrConflict)
	require.ErrorIs(t, svc.Delete(ctx, f.adminActor(), f.student.ID), ErrConflict)

	require.NoError(t, svc.Delete(ctx, f.adminActor(), f.otherTA.ID))
	require.NoError(t, svc.Delete(ctx, f.adminActor(), f.unenrolled.ID))
	require.ErrorIs(t, svc.Delete(ctx, f.adminActor(), f.unenrolled.ID), ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, f.adminActor(), f.student.ID), ErrNotFound)

	students, err := svc.List(ctx, dto.AccountListRequest{Role: "student"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, f.student.ID, students[0].ID)
}
