package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/repository"
)

// StudentService serves a student's own records. Every view is scoped to the caller and
// cached per student.
type StudentService interface {
	Enrollments(ctx context.Context, studentID uint) ([]dto.EnrollmentResponse, error)
	Subjects(ctx context.Context, studentID uint) ([]dto.SubjectResponse, error)
	Questions(ctx context.Context, studentID uint) ([]dto.QuestionResponse, error)
	Evaluations(ctx context.Context, studentID uint) ([]dto.EvaluationResponse, error)
}

type studentService struct {
	store  repository.Store
	cache  *StudentViewCache
	logger zerolog.Logger
}

// NewStudentService constructs the student view service. cache may be nil.
func NewStudentService(store repository.Store, cache *StudentViewCache, logger zerolog.Logger) StudentService {
	return &studentService{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "student_service").Logger(),
	}
}

func (s *studentService) Enrollments(ctx context.Context, studentID uint) ([]dto.EnrollmentResponse, error) {
	return cachedView(ctx, s.cache, studentID, "enrollments", func() ([]dto.EnrollmentResponse, error) {
		enrollments, err := s.store.Enrollments().List(ctx, repository.EnrollmentFilter{UserID: &studentID})
		if err != nil {
			return nil, err
		}
		return dto.NewEnrollmentResponses(enrollments), nil
	})
}

// Subjects lists the subjects the student is enrolled in.
func (s *studentService) Subjects(ctx context.Context, studentID uint) ([]dto.SubjectResponse, error) {
	return cachedView(ctx, s.cache, studentID, "subjects", func() ([]dto.SubjectResponse, error) {
		ids, err := s.store.Enrollments().SubjectIDsForUser(ctx, studentID)
		if err != nil {
			return nil, err
		}
		subjects, err := s.store.Subjects().ListByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		return dto.NewSubjectResponses(subjects), nil
	})
}

// Questions lists the questions of the student's subjects.
func (s *studentService) Questions(ctx context.Context, studentID uint) ([]dto.QuestionResponse, error) {
	return cachedView(ctx, s.cache, studentID, "questions", func() ([]dto.QuestionResponse, error) {
		ids, err := s.store.Enrollments().SubjectIDsForUser(ctx, studentID)
		if err != nil {
			return nil, err
		}
		questions, err := s.store.Questions().List(ctx, repository.QuestionFilter{SubjectIDs: ids, Scoped: true})
		if err != nil {
			return nil, err
		}
		return dto.NewQuestionResponses(questions), nil
	})
}

func (s *studentService) Evaluations(ctx context.Context, studentID uint) ([]dto.EvaluationResponse, error) {
	return cachedView(ctx, s.cache, studentID, "evaluations", func() ([]dto.EvaluationResponse, error) {
		evaluations, err := s.store.Evaluations().List(ctx, repository.EvaluationFilter{StudentID: &studentID})
		if err != nil {
			return nil, err
		}
		return dto.NewEvaluationResponses(evaluations), nil
	})
}

func cachedView[T any](ctx context.Context, cache *StudentViewCache, studentID uint, view string, load func() ([]T, error)) ([]T, error) {
	var cached []T
	slot, hit := cache.Load(ctx, studentID, view, &cached)
	if hit {
		return cached, nil
	}

	fresh, err := load()
	if err != nil {
		return nil, err
	}

	cache.Store(ctx, slot, fresh)
	return fresh, nil
}
