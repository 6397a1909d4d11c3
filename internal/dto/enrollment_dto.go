package dto

import (
	"time"

	"github.com/noah-isme/lab-eval-api/internal/models"
)

// EnrollmentRequest enrolls a student in a subject.
type EnrollmentRequest struct {
	UserID    uint `json:"user_id" validate:"required"`
	SubjectID uint `json:"subject_id" validate:"required"`
}

// EnrollmentListRequest filters enrollment listings.
type EnrollmentListRequest struct {
	UserID    uint
	SubjectID uint
}

// EnrollmentResponse serializes enrollment data.
type EnrollmentResponse struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	SubjectID uint      `json:"subject_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEnrollmentResponse converts an enrollment model.
func NewEnrollmentResponse(enrollment models.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:        enrollment.ID,
		UserID:    enrollment.UserID,
		SubjectID: enrollment.SubjectID,
		CreatedAt: enrollment.CreatedAt,
	}
}

// NewEnrollmentResponses converts a slice of enrollments.
func NewEnrollmentResponses(enrollments []models.Enrollment) []EnrollmentResponse {
	responses := make([]EnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		responses = append(responses, NewEnrollmentResponse(enrollment))
	}
	return responses
}
