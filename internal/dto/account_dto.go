package dto

import (
	"time"

	"github.com/noah-isme/lab-eval-api/internal/models"
)

// AccountRequest provisions or replaces an account. The Google subject is never writable here.
type AccountRequest struct {
	Name  string `json:"name" validate:"max=128"`
	Email string `json:"email" validate:"required,email,max=256"`
	Role  string `json:"role" validate:"required,oneof=student ta admin"`
}

// AccountListRequest filters account listings.
type AccountListRequest struct {
	Role   string `validate:"omitempty,oneof=student ta admin"`
	Search string
}

// AccountResponse serializes account data.
type AccountResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	GoogleSub *string   `json:"google_sub"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccountResponse converts an account model into its API representation.
func NewAccountResponse(account models.Account) AccountResponse {
	return AccountResponse{
		ID:        account.ID,
		Name:      account.Name,
		Email:     account.Email,
		GoogleSub: account.GoogleSub,
		Role:      account.Role.String(),
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
}

// NewAccountResponses converts a slice of accounts.
func NewAccountResponses(accounts []models.Account) []AccountResponse {
	responses := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		responses = append(responses, NewAccountResponse(account))
	}
	return responses
}
