package service

import (
	"context"
	"errors"

	"github.com/noah-isme/lab-eval-api/internal/models"
	"github.com/noah-isme/lab-eval-api/internal/observability"
	"github.com/noah-isme/lab-eval-api/internal/repository"
)

// EvaluationPath identifies who is writing an evaluation.
type EvaluationPath int

const (
	// AdminPath writes carry an explicit evaluator that must be checked.
	AdminPath EvaluationPath = iota
	// TAPath writes use the authenticated TA as evaluator.
	TAPath
)

// EvaluationRefs names the rows an evaluation points at.
type EvaluationRefs struct {
	StudentID  uint
	QuestionID uint
	TAID       uint
}

// IntegrityValidator checks references before enrollment and evaluation writes. Every
// method reads through the store it is handed, so callers run it inside the write's
// transaction. Checks run in a fixed order and stop at the first failure.
type IntegrityValidator struct{}

// NewIntegrityValidator constructs the validator.
func NewIntegrityValidator() *IntegrityValidator {
	return &IntegrityValidator{}
}

// ValidateEnrollment checks that the user is a student, the subject exists and, when
// creating (currentID == 0) or moving an enrollment to a new pair, that the pair is free.
func (v *IntegrityValidator) ValidateEnrollment(ctx context.Context, store repository.Store, userID, subjectID, currentID uint) error {
	if err := v.requireRole(ctx, store, userID, models.RoleStudent, "user"); err != nil {
		return reject("enrollment", err)
	}

	if _, err := store.Subjects().GetByID(ctx, subjectID); err != nil {
		if repository.IsNotFound(err) {
			return reject("enrollment", invalidReference("subject %d does not exist", subjectID))
		}
		return err
	}

	if currentID != 0 {
		current, err := store.Enrollments().GetByID(ctx, currentID)
		if err != nil {
			return err
		}
		if current.UserID == userID && current.SubjectID == subjectID {
			return nil
		}
	}

	exists, err := store.Enrollments().Exists(ctx, userID, subjectID)
	if err != nil {
		return err
	}
	if exists {
		return reject("enrollment", conflict("user %d is already enrolled in subject %d", userID, subjectID))
	}

	return nil
}

// ValidateEvaluationCreate runs the create checks. The TA path skips the evaluator check and
// the duplicate-triple pre-check; the triple's unique index still rejects duplicates there.
func (v *IntegrityValidator) ValidateEvaluationCreate(ctx context.Context, store repository.Store, refs EvaluationRefs, path EvaluationPath) error {
	if err := v.validateEvaluationRefs(ctx, store, refs, path); err != nil {
		return err
	}

	if path == TAPath {
		return nil
	}

	exists, err := store.Evaluations().ExistsTriple(ctx, refs.StudentID, refs.QuestionID, refs.TAID)
	if err != nil {
		return err
	}
	if exists {
		return reject("evaluation", conflict("evaluation already exists for student %d, question %d and ta %d", refs.StudentID, refs.QuestionID, refs.TAID))
	}

	return nil
}

// ValidateEvaluationUpdate re-runs the reference checks against the new values. A collision
// with another evaluation is left to the unique index.
func (v *IntegrityValidator) ValidateEvaluationUpdate(ctx context.Context, store repository.Store, refs EvaluationRefs, path EvaluationPath) error {
	return v.validateEvaluationRefs(ctx, store, refs, path)
}

func (v *IntegrityValidator) validateEvaluationRefs(ctx context.Context, store repository.Store, refs EvaluationRefs, path EvaluationPath) error {
	if err := v.requireRole(ctx, store, refs.StudentID, models.RoleStudent, "student"); err != nil {
		return reject("evaluation", err)
	}

	if path == AdminPath {
		if err := v.requireRole(ctx, store, refs.TAID, models.RoleTA, "ta"); err != nil {
			return reject("evaluation", err)
		}
	}

	question, err := store.Questions().GetByID(ctx, refs.QuestionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return reject("evaluation", invalidReference("question %d does not exist", refs.QuestionID))
		}
		return err
	}

	enrolled, err := store.Enrollments().Exists(ctx, refs.StudentID, question.SubjectID)
	if err != nil {
		return err
	}
	if !enrolled {
		return reject("evaluation", ErrNotEnrolled)
	}

	return nil
}

func (v *IntegrityValidator) requireRole(ctx context.Context, store repository.Store, id uint, role models.Role, label string) error {
	account, err := store.Accounts().GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return invalidReference("%s %d does not exist", label, id)
		}
		return err
	}
	if !account.HasRole(role) {
		return invalidReference("%s %d does not have role %s", label, id, role)
	}
	return nil
}

// reject counts a refused write and returns err unchanged. Storage failures are not counted.
func reject(entity string, err error) error {
	var reason string
	switch {
	case errors.Is(err, ErrInvalidReference):
		reason = "invalid_reference"
	case errors.Is(err, ErrNotEnrolled):
		reason = "not_enrolled"
	case errors.Is(err, ErrConflict):
		reason = "conflict"
	default:
		return err
	}
	observability.IntegrityRejections().WithLabelValues(entity, reason).Inc()
	return err
}
