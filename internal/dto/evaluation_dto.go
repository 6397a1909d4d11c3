package dto

import (
	"time"

	"github.com/noah-isme/lab-eval-api/internal/models"
)

// EvaluationRequest is the admin payload; every reference is explicit.
type EvaluationRequest struct {
	StudentID  uint    `json:"student_id" validate:"required"`
	QuestionID uint    `json:"question_id" validate:"required"`
	TAID       uint    `json:"ta_id" validate:"required"`
	Marking    string  `json:"marking" validate:"required,oneof=done partial not_done"`
	Remarks    *string `json:"remarks" validate:"omitempty,max=4000"`
}

// TAEvaluationRequest is the TA payload; the evaluator is always the caller.
type TAEvaluationRequest struct {
	StudentID  uint    `json:"student_id" validate:"required"`
	QuestionID uint    `json:"question_id" validate:"required"`
	Marking    string  `json:"marking" validate:"required,oneof=done partial not_done"`
	Remarks    *string `json:"remarks" validate:"omitempty,max=4000"`
}

// EvaluationListRequest filters evaluation listings.
type EvaluationListRequest struct {
	StudentID  uint
	QuestionID uint
	TAID       uint
}

// EvaluationResponse serializes evaluation data.
type EvaluationResponse struct {
	ID         uint      `json:"id"`
	StudentID  uint      `json:"student_id"`
	QuestionID uint      `json:"question_id"`
	TAID       uint      `json:"ta_id"`
	Marking    string    `json:"marking"`
	Remarks    *string   `json:"remarks"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewEvaluationResponse converts an evaluation model.
func NewEvaluationResponse(evaluation models.Evaluation) EvaluationResponse {
	return EvaluationResponse{
		ID:         evaluation.ID,
		StudentID:  evaluation.StudentID,
		QuestionID: evaluation.QuestionID,
		TAID:       evaluation.TAID,
		Marking:    string(evaluation.Marking),
		Remarks:    evaluation.Remarks,
		CreatedAt:  evaluation.CreatedAt,
		UpdatedAt:  evaluation.UpdatedAt,
	}
}

// NewEvaluationResponses converts a slice of evaluations.
func NewEvaluationResponses(evaluations []models.Evaluation) []EvaluationResponse {
	responses := make([]EvaluationResponse, 0, len(evaluations))
	for _, evaluation := range evaluations {
		responses = append(responses, NewEvaluationResponse(evaluation))
	}
	return responses
}
