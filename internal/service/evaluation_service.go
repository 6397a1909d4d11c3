package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/repository"
)

// EvaluationService manages evaluations. Admin methods address any row; TA methods act as
// the calling TA and only see rows that TA wrote.
type EvaluationService interface {
	List(ctx context.Context, req dto.EvaluationListRequest) ([]dto.EvaluationResponse, error)
	Get(ctx context.Context, id uint) (dto.EvaluationResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.EvaluationRequest) (dto.EvaluationResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.EvaluationRequest) (dto.EvaluationResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error

	ListForTA(ctx context.Context, actor Actor) ([]dto.EvaluationResponse, error)
	CreateForTA(ctx context.Context, actor Actor, payload dto.TAEvaluationRequest) (dto.EvaluationResponse, error)
	UpdateForTA(ctx context.Context, actor Actor, id uint, payload dto.TAEvaluationRequest) (dto.EvaluationResponse, error)
	DeleteForTA(ctx context.Context, actor Actor, id uint) error
}

type evaluationService struct {
	store     repository.Store
	integrity *IntegrityValidator
	validator *validator.Validate
	activity  ActivityRecorder
	views     ViewInvalidator
	events    EvaluationPublisher
	sanitizer textSanitizer
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewEvaluationService constructs the evaluation service.
func NewEvaluationService(store repository.Store, integrity *IntegrityValidator, validate *validator.Validate, activity ActivityRecorder, views ViewInvalidator, events EvaluationPublisher, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		store:     store,
		integrity: integrity,
		validator: validate,
		activity:  activity,
		views:     viewsOrNoop(views),
		events:    events,
		sanitizer: newTextSanitizer(),
		logger:    logger.With().Str("component", "evaluation_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/lab-eval-api/internal/service/evaluation"),
		now:       time.Now,
	}
}

// evaluationWrite is the normalised input shared by the admin and TA paths.
type evaluationWrite struct {
	refs    EvaluationRefs
	marking models.Marking
	remarks *string
	path    EvaluationPath
}

func (s *evaluationService) List(ctx context.Context, req dto.EvaluationListRequest) ([]dto.EvaluationResponse, error) {
	filter := repository.EvaluationFilter{}
	if req.StudentID > 0 {
		filter.StudentID = &req.StudentID
	}
	if req.QuestionID > 0 {
		filter.QuestionID = &req.QuestionID
	}
	if req.TAID > 0 {
		filter.TAID = &req.TAID
	}

	evaluations, err := s.store.Evaluations().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return dto.NewEvaluationResponses(evaluations), nil
}

func (s *evaluationService) Get(ctx context.Context, id uint) (dto.EvaluationResponse, error) {
	evaluation, err := s.store.Evaluations().GetByID(ctx, id)
	if err != nil {
		return dto.EvaluationResponse{}, translateStoreError(err, "evaluation", id)
	}
	return dto.NewEvaluationResponse(evaluation), nil
}

func (s *evaluationService) Create(ctx context.Context, actor Actor, payload dto.EvaluationRequest) (dto.EvaluationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluationResponse{}, err
	}

	return s.create(ctx, actor, evaluationWrite{
		refs:    EvaluationRefs{StudentID: payload.StudentID, QuestionID: payload.QuestionID, TAID: payload.TAID},
		marking: models.Marking(payload.Marking),
		remarks: payload.Remarks,
		path:    AdminPath,
	})
}

func (s *evaluationService) CreateForTA(ctx context.Context, actor Actor, payload dto.TAEvaluationRequest) (dto.EvaluationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluationResponse{}, err
	}

	return s.create(ctx, actor, evaluationWrite{
		refs:    EvaluationRefs{StudentID: payload.StudentID, QuestionID: payload.QuestionID, TAID: actor.ID},
		marking: models.Marking(payload.Marking),
		remarks: payload.Remarks,
		path:    TAPath,
	})
}

func (s *evaluationService) Update(ctx context.Context, actor Actor, id uint, payload dto.EvaluationRequest) (dto.EvaluationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluationResponse{}, err
	}

	return s.update(ctx, actor, id, evaluationWrite{
		refs:    EvaluationRefs{StudentID: payload.StudentID, QuestionID: payload.QuestionID, TAID: payload.TAID},
		marking: models.Marking(payload.Marking),
		remarks: payload.Remarks,
		path:    AdminPath,
	})
}

func (s *evaluationService) UpdateForTA(ctx context.Context, actor Actor, id uint, payload dto.TAEvaluationRequest) (dto.EvaluationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluationResponse{}, err
	}

	return s.update(ctx, actor, id, evaluationWrite{
		refs:    EvaluationRefs{StudentID: payload.StudentID, QuestionID: payload.QuestionID, TAID: actor.ID},
		marking: models.Marking(payload.Marking),
		remarks: payload.Remarks,
		path:    TAPath,
	})
}

func (s *evaluationService) Delete(ctx context.Context, actor Actor, id uint) error {
	return s.delete(ctx, actor, id, AdminPath)
}

func (s *evaluationService) DeleteForTA(ctx context.Context, actor Actor, id uint) error {
	return s.delete(ctx, actor, id, TAPath)
}

func (s *evaluationService) ListForTA(ctx context.Context, actor Actor) ([]dto.EvaluationResponse, error) {
	return s.List(ctx, dto.EvaluationListRequest{TAID: actor.ID})
}

func (s *evaluationService) create(ctx context.Context, actor Actor, input evaluationWrite) (dto.EvaluationResponse, error) {
	ctx, span := s.startSpan(ctx, "evaluation.create", actor, input)
	defer span.End()

	evaluation := models.Evaluation{
		StudentID:  input.refs.StudentID,
		QuestionID: input.refs.QuestionID,
		TAID:       input.refs.TAID,
		Marking:    input.marking,
		Remarks:    s.sanitizer.optional(input.remarks),
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := s.integrity.ValidateEvaluationCreate(ctx, tx, input.refs, input.path); err != nil {
			return err
		}
		return tx.Evaluations().Create(ctx, &evaluation)
	})
	if err != nil {
		err = s.translateWriteError(err, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation_rejected")
		return dto.EvaluationResponse{}, err
	}

	response := dto.NewEvaluationResponse(evaluation)
	s.afterWrite(ctx, actor, EvaluationCreated, response, evaluation.StudentID)
	return response, nil
}

func (s *evaluationService) update(ctx context.Context, actor Actor, id uint, input evaluationWrite) (dto.EvaluationResponse, error) {
	ctx, span := s.startSpan(ctx, "evaluation.update", actor, input)
	span.SetAttributes(attribute.Int64("evaluation.id", int64(id)))
	defer span.End()

	var evaluation models.Evaluation
	var previousStudent uint
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		evaluation, err = s.load(ctx, tx, id, actor, input.path)
		if err != nil {
			return err
		}
		previousStudent = evaluation.StudentID

		if err := s.integrity.ValidateEvaluationUpdate(ctx, tx, input.refs, input.path); err != nil {
			return err
		}

		evaluation.StudentID = input.refs.StudentID
		evaluation.QuestionID = input.refs.QuestionID
		evaluation.TAID = input.refs.TAID
		evaluation.Marking = input.marking
		evaluation.Remarks = s.sanitizer.optional(input.remarks)
		return tx.Evaluations().Update(ctx, &evaluation)
	})
	if err != nil {
		err = s.translateWriteError(err, id)
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation_rejected")
		return dto.EvaluationResponse{}, err
	}

	if previousStudent != evaluation.StudentID {
		s.views.InvalidateStudent(ctx, previousStudent)
	}
	response := dto.NewEvaluationResponse(evaluation)
	s.afterWrite(ctx, actor, EvaluationUpdated, response, evaluation.StudentID)
	return response, nil
}

func (s *evaluationService) delete(ctx context.Context, actor Actor, id uint, path EvaluationPath) error {
	var evaluation models.Evaluation
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		evaluation, err = s.load(ctx, tx, id, actor, path)
		if err != nil {
			return err
		}
		return translateStoreError(tx.Evaluations().Delete(ctx, id), "evaluation", id)
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx, actor, EvaluationDeleted, dto.NewEvaluationResponse(evaluation), evaluation.StudentID)
	return nil
}

// load fetches the row being changed. On the TA path another TA's row reads as missing.
func (s *evaluationService) load(ctx context.Context, tx repository.Store, id uint, actor Actor, path EvaluationPath) (models.Evaluation, error) {
	evaluation, err := tx.Evaluations().GetByID(ctx, id)
	if err != nil {
		return models.Evaluation{}, translateStoreError(err, "evaluation", id)
	}
	if path == TAPath && evaluation.TAID != actor.ID {
		return models.Evaluation{}, notFound("evaluation", id)
	}
	return evaluation, nil
}

func (s *evaluationService) afterWrite(ctx context.Context, actor Actor, eventType string, evaluation dto.EvaluationResponse, studentID uint) {
	s.views.InvalidateStudent(ctx, studentID)

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     eventType,
		EntityType: "evaluation",
		EntityID:   uintPtr(evaluation.ID),
		Metadata: map[string]interface{}{
			"student_id":  evaluation.StudentID,
			"question_id": evaluation.QuestionID,
			"ta_id":       evaluation.TAID,
			"marking":     evaluation.Marking,
		},
	})

	publishEvaluationEvent(ctx, s.events, s.logger, EvaluationEvent{
		Type:       eventType,
		ActorID:    actor.ID,
		ActorRole:  actor.Role.String(),
		Evaluation: evaluation,
		SentAt:     s.now().UTC(),
	})
}

// translateWriteError reports a unique index hit as a conflict. This is the only duplicate
// check on the TA create path and on updates.
func (s *evaluationService) translateWriteError(err error, id uint) error {
	if repository.IsUniqueViolation(err) {
		return reject("evaluation", conflict("evaluation already exists for this student, question and ta"))
	}
	return translateStoreError(err, "evaluation", id)
}

func (s *evaluationService) startSpan(ctx context.Context, name string, actor Actor, input evaluationWrite) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.Int64("evaluation.actor_id", int64(actor.ID)),
		attribute.Int64("evaluation.student_id", int64(input.refs.StudentID)),
		attribute.Int64("evaluation.question_id", int64(input.refs.QuestionID)),
		attribute.Int64("evaluation.ta_id", int64(input.refs.TAID)),
		attribute.Bool("evaluation.ta_path", input.path == TAPath),
	))
}
