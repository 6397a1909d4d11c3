package dto

import (
	"time"

	"github.com/noah-isme/lab-eval-api/internal/models"
)

// SubjectRequest creates or replaces a subject.
type SubjectRequest struct {
	Name        string  `json:"name" validate:"required,max=128"`
	Description *string `json:"description" validate:"omitempty,max=256"`
}

// SubjectResponse serializes subject data.
type SubjectResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewSubjectResponse converts a subject model.
func NewSubjectResponse(subject models.Subject) SubjectResponse {
	return SubjectResponse{
		ID:          subject.ID,
		Name:        subject.Name,
		Description: subject.Description,
		CreatedAt:   subject.CreatedAt,
		UpdatedAt:   subject.UpdatedAt,
	}
}

// NewSubjectResponses converts a slice of subjects.
func NewSubjectResponses(subjects []models.Subject) []SubjectResponse {
	responses := make([]SubjectResponse, 0, len(subjects))
	for _, subject := range subjects {
		responses = append(responses, NewSubjectResponse(subject))
	}
	return responses
}

// QuestionRequest creates or replaces a question.
type QuestionRequest struct {
	SubjectID uint   `json:"subject_id" validate:"required"`
	Text      string `json:"text" validate:"required,max=512"`
}

// QuestionListRequest filters question listings.
type QuestionListRequest struct {
	SubjectID uint
}

// QuestionResponse serializes question data.
type QuestionResponse struct {
	ID        uint      `json:"id"`
	SubjectID uint      `json:"subject_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewQuestionResponse converts a question model.
func NewQuestionResponse(question models.Question) QuestionResponse {
	return QuestionResponse{
		ID:        question.ID,
		SubjectID: question.SubjectID,
		Text:      question.Text,
		CreatedAt: question.CreatedAt,
		UpdatedAt: question.UpdatedAt,
	}
}

// NewQuestionResponses converts a slice of questions.
func NewQuestionResponses(questions []models.Question) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewQuestionResponse(question))
	}
	return responses
}
