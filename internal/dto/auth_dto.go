package dto

import "time"

// LoginRequest carries the Google ID token obtained by the client. A blank token is an
// unverifiable assertion rather than a malformed payload.
type LoginRequest struct {
	IDToken string `json:"id_token" validate:"max=4096"`
}

// TokenResponse is returned after a successful login.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
