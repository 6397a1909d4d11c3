package service

import (
	"context"

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

// EnrollmentService manages student enrollments.
type EnrollmentService interface {
	List(ctx context.Context, req dto.EnrollmentListRequest) ([]dto.EnrollmentResponse, error)
	Get(ctx context.Context, id uint) (dto.EnrollmentResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.EnrollmentRequest) (dto.EnrollmentResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.EnrollmentRequest) (dto.EnrollmentResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type enrollmentService struct {
	store     repository.Store
	integrity *IntegrityValidator
	validator *validator.Validate
	activity  ActivityRecorder
	views     ViewInvalidator
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(store repository.Store, integrity *IntegrityValidator, validate *validator.Validate, activity ActivityRecorder, views ViewInvalidator, logger zerolog.Logger) EnrollmentService {
	return &enrollmentService{
		store:     store,
		integrity: integrity,
		validator: validate,
		activity:  activity,
		views:     viewsOrNoop(views),
		logger:    logger.With().Str("component", "enrollment_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/lab-eval-api/internal/service/enrollment"),
	}
}

func (s *enrollmentService) List(ctx context.Context, req dto.EnrollmentListRequest) ([]dto.EnrollmentResponse, error) {
	filter := repository.EnrollmentFilter{}
	if req.UserID > 0 {
		filter.UserID = &req.UserID
	}
	if req.SubjectID > 0 {
		filter.SubjectID = &req.SubjectID
	}

	enrollments, err := s.store.Enrollments().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return dto.NewEnrollmentResponses(enrollments), nil
}

func (s *enrollmentService) Get(ctx context.Context, id uint) (dto.EnrollmentResponse, error) {
	enrollment, err := s.store.Enrollments().GetByID(ctx, id)
	if err != nil {
		return dto.EnrollmentResponse{}, translateStoreError(err, "enrollment", id)
	}
	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *enrollmentService) Create(ctx context.Context, actor Actor, payload dto.EnrollmentRequest) (dto.EnrollmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "enrollment.create", trace.WithAttributes(
		attribute.Int64("enrollment.user_id", int64(payload.UserID)),
		attribute.Int64("enrollment.subject_id", int64(payload.SubjectID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation_failed")
		return dto.EnrollmentResponse{}, err
	}

	enrollment := models.Enrollment{UserID: payload.UserID, SubjectID: payload.SubjectID}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := s.integrity.ValidateEnrollment(ctx, tx, payload.UserID, payload.SubjectID, 0); err != nil {
			return err
		}
		return tx.Enrollments().Create(ctx, &enrollment)
	})
	if err != nil {
		err = s.translateWriteError(err, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "enrollment_rejected")
		return dto.EnrollmentResponse{}, err
	}

	s.views.InvalidateStudent(ctx, enrollment.UserID)
	s.record(ctx, actor, "enrollment.created", enrollment)
	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *enrollmentService) Update(ctx context.Context, actor Actor, id uint, payload dto.EnrollmentRequest) (dto.EnrollmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "enrollment.update", trace.WithAttributes(attribute.Int64("enrollment.id", int64(id))))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation_failed")
		return dto.EnrollmentResponse{}, err
	}

	var enrollment models.Enrollment
	var previousUser uint
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		enrollment, err = tx.Enrollments().GetByID(ctx, id)
		if err != nil {
			return translateStoreError(err, "enrollment", id)
		}
		previousUser = enrollment.UserID

		if enrollment.UserID != payload.UserID || enrollment.SubjectID != payload.SubjectID {
			if err := s.ensureNoDependents(ctx, tx, enrollment); err != nil {
				return err
			}
		}

		if err := s.integrity.ValidateEnrollment(ctx, tx, payload.UserID, payload.SubjectID, id); err != nil {
			return err
		}

		enrollment.UserID = payload.UserID
		enrollment.SubjectID = payload.SubjectID
		return tx.Enrollments().Update(ctx, &enrollment)
	})
	if err != nil {
		err = s.translateWriteError(err, id)
		span.RecordError(err)
		span.SetStatus(codes.Error, "enrollment_rejected")
		return dto.EnrollmentResponse{}, err
	}

	s.views.InvalidateStudent(ctx, previousUser)
	s.views.InvalidateStudent(ctx, enrollment.UserID)
	s.record(ctx, actor, "enrollment.updated", enrollment)
	return dto.NewEnrollmentResponse(enrollment), nil
}

func (s *enrollmentService) Delete(ctx context.Context, actor Actor, id uint) error {
	var enrollment models.Enrollment
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		enrollment, err = tx.Enrollments().GetByID(ctx, id)
		if err != nil {
			return translateStoreError(err, "enrollment", id)
		}
		if err := s.ensureNoDependents(ctx, tx, enrollment); err != nil {
			return err
		}
		return translateStoreError(tx.Enrollments().Delete(ctx, id), "enrollment", id)
	})
	if err != nil {
		return err
	}

	s.views.InvalidateStudent(ctx, enrollment.UserID)
	s.record(ctx, actor, "enrollment.deleted", enrollment)
	return nil
}

// ensureNoDependents refuses to drop an enrollment that evaluations of the student on the
// subject's questions still rely on.
func (s *enrollmentService) ensureNoDependents(ctx context.Context, tx repository.Store, enrollment models.Enrollment) error {
	total, err := tx.Evaluations().CountByEnrollment(ctx, enrollment.UserID, enrollment.SubjectID)
	if err != nil {
		return err
	}
	if total > 0 {
		return conflict("enrollment %d is relied on by %d evaluations", enrollment.ID, total)
	}
	return nil
}

// translateWriteError maps a unique index hit that slipped past the pre-check to a conflict.
func (s *enrollmentService) translateWriteError(err error, id uint) error {
	if repository.IsUniqueViolation(err) {
		return reject("enrollment", conflict("enrollment already exists"))
	}
	return translateStoreError(err, "enrollment", id)
}

func (s *enrollmentService) record(ctx context.Context, actor Actor, action string, enrollment models.Enrollment) {
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "enrollment",
		EntityID:   uintPtr(enrollment.ID),
		Metadata: map[string]interface{}{
			"user_id":    enrollment.UserID,
			"subject_id": enrollment.SubjectID,
		},
	})
}
