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

// QuestionService manages questions.
type QuestionService interface {
	List(ctx context.Context, req dto.QuestionListRequest) ([]dto.QuestionResponse, error)
	Get(ctx context.Context, id uint) (dto.QuestionResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.QuestionRequest) (dto.QuestionResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.QuestionRequest) (dto.QuestionResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type questionService struct {
	store     repository.Store
	validator *validator.Validate
	activity  ActivityRecorder
	views     ViewInvalidator
	sanitizer textSanitizer
	logger    zerolog.Logger
}

// NewQuestionService constructs the question service.
func NewQuestionService(store repository.Store, validate *validator.Validate, activity ActivityRecorder, views ViewInvalidator, logger zerolog.Logger) QuestionService {
	return &questionService{
		store:     store,
		validator: validate,
		activity:  activity,
		views:     viewsOrNoop(views),
		sanitizer: newTextSanitizer(),
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) List(ctx context.Context, req dto.QuestionListRequest) ([]dto.QuestionResponse, error) {
	filter := repository.QuestionFilter{}
	if req.SubjectID > 0 {
		filter.SubjectIDs = []uint{req.SubjectID}
	}

	questions, err := s.store.Questions().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return dto.NewQuestionResponses(questions), nil
}

func (s *questionService) Get(ctx context.Context, id uint) (dto.QuestionResponse, error) {
	question, err := s.store.Questions().GetByID(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, translateStoreError(err, "question", id)
	}
	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Create(ctx context.Context, actor Actor, payload dto.QuestionRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question := models.Question{SubjectID: payload.SubjectID, Text: s.sanitizer.clean(payload.Text)}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := s.checkSubject(ctx, tx, payload.SubjectID); err != nil {
			return err
		}
		if question.Text == "" {
			return fmt.Errorf("%w: question text is empty", ErrInvalidInput)
		}
		return tx.Questions().Create(ctx, &question)
	})
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	s.views.InvalidateAll(ctx)
	s.record(ctx, actor, "question.created", question)
	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) Update(ctx context.Context, actor Actor, id uint, payload dto.QuestionRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	var question models.Question
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		question, err = tx.Questions().GetByID(ctx, id)
		if err != nil {
			return translateStoreError(err, "question", id)
		}

		if payload.SubjectID != question.SubjectID {
			if err := s.checkSubject(ctx, tx, payload.SubjectID); err != nil {
				return err
			}
			total, err := tx.Evaluations().CountByQuestions(ctx, []uint{id})
			if err != nil {
				return err
			}
			if total > 0 {
				return conflict("question %d has evaluations and cannot move subject", id)
			}
		}

		question.SubjectID = payload.SubjectID
		question.Text = s.sanitizer.clean(payload.Text)
		if question.Text == "" {
			return fmt.Errorf("%w: question text is empty", ErrInvalidInput)
		}
		return tx.Questions().Update(ctx, &question)
	})
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	s.views.InvalidateAll(ctx)
	s.record(ctx, actor, "question.updated", question)
	return dto.NewQuestionResponse(question), nil
}

// Delete removes a question that no evaluation references.
func (s *questionService) Delete(ctx context.Context, actor Actor, id uint) error {
	var question models.Question
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		question, err = tx.Questions().GetByID(ctx, id)
		if err != nil {
			return translateStoreError(err, "question", id)
		}

		total, err := tx.Evaluations().CountByQuestions(ctx, []uint{id})
		if err != nil {
			return err
		}
		if total > 0 {
			return conflict("question %d has %d evaluations", id, total)
		}

		return translateStoreError(tx.Questions().Delete(ctx, id), "question", id)
	})
	if err != nil {
		return err
	}

	s.views.InvalidateAll(ctx)
	s.record(ctx, actor, "question.deleted", question)
	return nil
}

func (s *questionService) checkSubject(ctx context.Context, tx repository.Store, subjectID uint) error {
	if _, err := tx.Subjects().GetByID(ctx, subjectID); err != nil {
		if repository.IsNotFound(err) {
			return invalidReference("subject %d does not exist", subjectID)
		}
		return err
	}
	return nil
}

func (s *questionService) record(ctx context.Context, actor Actor, action string, question models.Question) {
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "question",
		EntityID:   uintPtr(question.ID),
		Metadata:   map[string]interface{}{"subject_id": question.SubjectID},
	})
}
