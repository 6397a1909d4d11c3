package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/repository"
)

// SubjectService manages subjects.
type SubjectService interface {
	List(ctx context.Context) ([]dto.SubjectResponse, error)
	Get(ctx context.Context, id uint) (dto.SubjectResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.SubjectRequest) (dto.SubjectResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.SubjectRequest) (dto.SubjectResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type subjectService struct {
	store     repository.Store
	validator *validator.Validate
	activity  ActivityRecorder
	views     ViewInvalidator
	sanitizer textSanitizer
	logger    zerolog.Logger
}

// NewSubjectService constructs the subject service.
func NewSubjectService(store repository.Store, validate *validator.Validate, activity ActivityRecorder, views ViewInvalidator, logger zerolog.Logger) SubjectService {
	return &subjectService{
		store:     store,
		validator: validate,
		activity:  activity,
		views:     viewsOrNoop(views),
		sanitizer: newTextSanitizer(),
		logger:    logger.With().Str("component", "subject_service").Logger(),
	}
}

func (s *subjectService) List(ctx context.Context) ([]dto.SubjectResponse, error) {
	subjects, err := s.store.Subjects().List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewSubjectResponses(subjects), nil
}

func (s *subjectService) Get(ctx context.Context, id uint) (dto.SubjectResponse, error) {
	subject, err := s.store.Subjects().GetByID(ctx, id)
	if err != nil {
		return dto.SubjectResponse{}, translateStoreError(err, "subject", id)
	}
	return dto.NewSubjectResponse(subject), nil
}

func (s *subjectService) Create(ctx context.Context, actor Actor, payload dto.SubjectRequest) (dto.SubjectResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubjectResponse{}, err
	}

	subject := models.Subject{
		Name:        s.sanitizer.clean(payload.Name),
		Description: s.sanitizer.optional(payload.Description),
	}
	if subject.Name == "" {
		return dto.SubjectResponse{}, fmt.Errorf("%w: subject name is empty", ErrInvalidInput)
	}

	if err := s.store.Subjects().Create(ctx, &subject); err != nil {
		return dto.SubjectResponse{}, translateStoreError(err, "subject", 0)
	}

	s.record(ctx, actor, "subject.created", subject)
	return dto.NewSubjectResponse(subject), nil
}

func (s *subjectService) Update(ctx context.Context, actor Actor, id uint, payload dto.SubjectRequest) (dto.SubjectResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubjectResponse{}, err
	}

	var subject models.Subject
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		subject, err = tx.Subjects().GetByID(ctx, id)
		if err != nil {
			return translateStoreError(err, "subject", id)
		}

		subject.Name = s.sanitizer.clean(payload.Name)
		subject.Description = s.sanitizer.optional(payload.Description)
		if subject.Name == "" {
			return fmt.Errorf("%w: subject name is empty", ErrInvalidInput)
		}

		return tx.Subjects().Update(ctx, &subject)
	})
	if err != nil {
		return dto.SubjectResponse{}, err
	}

	s.views.InvalidateAll(ctx)
	s.record(ctx, actor, "subject.updated", subject)
	return dto.NewSubjectResponse(subject), nil
}

// Delete removes the subject with its questions and enrollments. Subjects whose questions
// carry evaluations are kept.
func (s *subjectService) Delete(ctx context.Context, actor Actor, id uint) error {
	var subject models.Subject
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		subject, err = tx.Subjects().GetByID(ctx, id)
		if err != nil {
			return translateStoreError(err, "subject", id)
		}

		questionIDs, err := tx.Questions().IDsBySubject(ctx, id)
		if err != nil {
			return err
		}

		evaluations, err := tx.Evaluations().CountByQuestions(ctx, questionIDs)
		if err != nil {
			return err
		}
		if evaluations > 0 {
			return conflict("subject %d has %d evaluations", id, evaluations)
		}

		return translateStoreError(tx.Subjects().Delete(ctx, id), "subject", id)
	})
	if err != nil {
		return err
	}

	s.views.InvalidateAll(ctx)
	s.record(ctx, actor, "subject.deleted", subject)
	return nil
}

func (s *subjectService) record(ctx context.Context, actor Actor, action string, subject models.Subject) {
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "subject",
		EntityID:   uintPtr(subject.ID),
		Metadata:   map[string]interface{}{"name": subject.Name},
	})
}
