package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/models"
)

func newTestEnrollmentService(f labFixture) EnrollmentService {
	return NewEnrollmentService(f.store, NewIntegrityValidator(), testValidator(), NewActivityService(f.store.Activity(), testLogger()), nil, testLogger())
}

func TestEnrollmentServiceCreateChecksReferences(t *testing.T) {
	f := newLabFixture(t)
	svc := newTestEnrollmentService(f)
	ctx := context.Background()

	_, err := svc.Create(ctx, f.adminActor(), dto.EnrollmentRequest{UserID: 404, SubjectID: f.subject.ID})
	require.ErrorIs(t, err, ErrInvalidReference)

	_, err = svc.Create(ctx, f.adminActor(), dto.EnrollmentRequest{UserID: f.ta.ID, SubjectID: f.subject.ID})
	require.ErrorIs(t, err, ErrInvalidReference)

	_, err = svc.Create(ctx, f.adminActor(), dto.EnrollmentRequest{UserID: f.unenrolled.ID, SubjectID: 404})
	require.ErrorIs(t, err, ErrInvalidReference)

	_, err = svc.Create(ctx, f.adminActor(), dto.EnrollmentRequest{UserID: f.student.ID, SubjectID: f.subject.ID})
	require.ErrorIs(t, err, ErrConflict)

	created, err := svc.Create(ctx, f.adminActor(), dto.EnrollmentRequest{UserID: f.unenrolled.ID, SubjectID: f.subject.ID})
	require.NoError(t, err)
	require.Equal(t, f.unenrolled.ID, created.UserID)
}

func TestEnrollmentServiceCreateChecksRunInOrder(t *testing.T) {
	f := newLabFixture(t)
	svc := newTestEnrollmentService(f)

	// A TA on a missing subject fails on the user check first.
	_, err := svc.Create(context.Background(), f.adminActor(), dto.EnrollmentRequest{UserID: f.ta.ID, SubjectID: 404})
	require.ErrorIs(t, err, ErrInvalidReference)
	require.Contains(t, err.Error(), "does not have role student")
	require.NotContains(t, err.Error(), "subject 404")
}

func TestEnrollmentServiceUpdateKeepsOwnPair(t *testing.T) {
	f := newLabFixture(t)
	svc := newTestEnrollmentService(f)
	ctx := context.Background()

	enrollments, err := svc.List(ctx, dto.EnrollmentListRequest{UserID: f.student.ID})
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	id := enrollments[0].ID

	updated, err := svc.Update(ctx, f.adminActor(), id, dto.EnrollmentRequest{UserID: f.student.ID, SubjectID: f.subject.ID})
	require.NoError(t, err)
	require.Equal(t, id, updated.ID)

	second, err := svc.Create(ctx, f.adminActor(), dto.EnrollmentRequest{UserID: f.unenrolled.ID, SubjectID: f.subject.ID})
	require.NoError(t, err)

	_, err = svc.Update(ctx, f.adminActor(), second.ID, dto.EnrollmentRequest{UserID: f.student.ID, SubjectID: f.subject.ID})
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.Update(ctx, f.adminActor(), 404, dto.EnrollmentRequest{UserID: f.student.ID, SubjectID: f.subject.ID})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEnrollmentServiceDelete(t *testing.T) {
	f := newLabFixture(t)
	svc := newTestEnrollmentService(f)
	ctx := context.Background()

	enrollments, err := svc.List(ctx, dto.EnrollmentListRequest{SubjectID: f.subject.ID})
	require.NoError(t, err)
	require.Len(t, enrollments, 1)

	require.NoError(t, svc.Delete(ctx, f.adminActor(), enrollments[0].ID))
	require.ErrorIs(t, svc.Delete(ctx, f.adminActor(), enrollments[0].ID), ErrNotFound)
}

func TestEnrollmentServiceRefusesToDropEvaluatedEnrollment(t *testing.T) {
	f := newLabFixture(t)
	svc := newTestEnrollmentService(f)
	ctx := context.Background()

	evaluation := models.Evaluation{StudentID: f.student.ID, QuestionID: f.question.ID, TAID: f.ta.ID, Marking: models.MarkingDone}
	require.NoError(t, f.store.Evaluations().Create(ctx, &evaluation))

	enrollments, err := svc.List(ctx, dto.EnrollmentListRequest{UserID: f.student.ID})
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	id := enrollments[0].ID

	err = svc.Delete(ctx, f.adminActor(), id)
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.Update(ctx, f.adminActor(), id, dto.EnrollmentRequest{UserID: f.unenrolled.ID, SubjectID: f.subject.ID})
	require.ErrorIs(t, err, ErrConflict)

	// Rewriting the same pair moves nothing.
	_, err = svc.Update(ctx, f.adminActor(), id, dto.EnrollmentRequest{UserID: f.student.ID, SubjectID: f.subject.ID})
	require.NoError(t, err)

	exists, err := f.store.Enrollments().Exists(ctx, f.student.ID, f.subject.ID)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, f.store.Evaluations().Delete(ctx, evaluation.ID))
	require.NoError(t, svc.Delete(ctx, f.adminActor(), id))
}
