package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/models"
)

func TestStudentServiceScopesViewsToCaller(t *testing.T) {
	f := newLabFixture(t)
	ctx := context.Background()
	other := models.Subject{Name: "Databases"}
	require.NoError(t, f.store.Subjects().Create(ctx, &other))
	require.NoError(t, f.store.Questions().Create(ctx, &models.Question{SubjectID: other.ID, Text: "Normalise a schema"}))

	svc := NewStudentService(f.store, nil, testLogger())

	subjects, err := svc.Subjects(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	require.Equal(t, f.subject.ID, subjects[0].ID)

	questions, err := svc.Questions(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	require.Equal(t, f.question.ID, questions[0].ID)

	questions, err = svc.Questions(ctx, f.unenrolled.ID)
	require.NoError(t, err)
	require.Empty(t, questions)

	enrollments, err := svc.Enrollments(ctx, f.unenrolled.ID)
	require.NoError(t, err)
	require.Empty(t, enrollments)
}

func TestStudentServiceCachesUntilEvaluationWrite(t *testing.T) {
	f := newLabFixture(t)
	ctx := context.Background()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	cache := NewStudentViewCache(client, time.Minute, testLogger())
	students := NewStudentService(f.store, cache, testLogger())
	evaluations := NewEvaluationService(f.store, NewIntegrityValidator(), testValidator(), nil, cache, nil, testLogger())

	first, err := students.Evaluations(ctx, f.student.ID)
	require.NoError(t, err)
	require.Empty(t, first)

	// A write that bypasses the services stays invisible while the view is cached.
	require.NoError(t, f.store.Evaluations().Create(ctx, &models.Evaluation{StudentID: f.student.ID, QuestionID: f.question.ID, TAID: f.otherTA.ID, Marking: models.MarkingDone}))
	cached, err := students.Evaluations(ctx, f.student.ID)
	require.NoError(t, err)
	require.Empty(t, cached)

	_, err = evaluations.CreateForTA(ctx, f.taActor(), dto.TAEvaluationRequest{StudentID: f.student.ID, QuestionID: f.question.ID, Marking: "partial"})
	require.NoError(t, err)

	fresh, err := students.Evaluations(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, fresh, 2)
}

func newMiniredisViewCache(t *testing.T) *StudentViewCache {
	t.Helper()
	mini := miniredis.RunT(t)
	return NewStudentViewCache(redis.NewClient(&redis.Options{Addr: mini.Addr()}), time.Minute, testLogger())
}

func TestStudentViewCacheInvalidateAll(t *testing.T) {
	cache := newMiniredisViewCache(t)
	ctx := context.Background()

	var out []string
	slot, hit := cache.Load(ctx, 7, "subjects", &out)
	require.False(t, hit)
	require.NotEmpty(t, slot)
	cache.Store(ctx, slot, []string{"a"})

	_, hit = cache.Load(ctx, 7, "subjects", &out)
	require.True(t, hit)
	require.Equal(t, []string{"a"}, out)

	cache.InvalidateAll(ctx)
	_, hit = cache.Load(ctx, 7, "subjects", &out)
	require.False(t, hit)
}

func TestStudentViewCacheDropsViewBuiltBeforeInvalidation(t *testing.T) {
	cache := newMiniredisViewCache(t)
	ctx := context.Background()

	var out []string
	slot, hit := cache.Load(ctx, 7, "evaluations", &out)
	require.False(t, hit)

	// A write commits while the reader is still querying the store.
	cache.InvalidateStudent(ctx, 7)
	cache.Store(ctx, slot, []string{"before-write"})

	out = nil
	fresh, hit := cache.Load(ctx, 7, "evaluations", &out)
	require.False(t, hit)
	require.Empty(t, out)
	require.NotEqual(t, slot, fresh)

	cache.Store(ctx, fresh, []string{"after-write"})
	_, hit = cache.Load(ctx, 7, "evaluations", &out)
	require.True(t, hit)
	require.Equal(t, []string{"after-write"}, out)
}

func TestStudentViewCacheWithoutClientIsNoop(t *testing.T) {
	cache := NewStudentViewCache(nil, time.Minute, testLogger())
	ctx := context.Background()

	var out []string
	slot, hit := cache.Load(ctx, 1, "subjects", &out)
	require.False(t, hit)
	require.Empty(t, slot)
	cache.Store(ctx, slot, []string{"a"})
	cache.InvalidateStudent(ctx, 1)
	_, hit = cache.Load(ctx, 1, "subjects", &out)
	require.False(t, hit)
}
