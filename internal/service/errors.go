package service

import (
	"errors"
	"fmt"

	"github.com/noah-isme/lab-eval-api/internal/repository"
)

var (
	// ErrUnauthenticated indicates a missing, malformed, expired or orphaned session token.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden indicates the caller's role is not permitted for the operation.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrNotProvisioned indicates no account exists for the verified email.
	ErrNotProvisioned = errors.New("user not enrolled")
	// ErrIdentityMismatch indicates the account is bound to a different external identity.
	ErrIdentityMismatch = errors.New("google account does not match enrolled user")
	// ErrInvalidReference indicates a referenced row is missing or has the wrong role.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrNotEnrolled indicates the student is not enrolled in the question's subject.
	ErrNotEnrolled = errors.New("student not enrolled in the question's subject")
	// ErrConflict indicates a uniqueness rule or dependent rows prevent the write.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput indicates a payload that passed tag validation but is unusable.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound indicates the addressed row does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
)

func notFound(entity string, id uint) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
}

func invalidReference(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidReference, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// translateStoreError maps storage failures onto the service taxonomy.
func translateStoreError(err error, entity string, id uint) error {
	switch {
	case err == nil:
		return nil
	case repository.IsNotFound(err):
		return notFound(entity, id)
	case repository.IsUniqueViolation(err):
		return conflict("%s already exists", entity)
	default:
		return err
	}
}
