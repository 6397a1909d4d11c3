package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
)

// ErrUnverifiedAssertion is returned when an external identity assertion cannot be verified.
var ErrUnverifiedAssertion = errors.New("invalid google id token")

// ExternalClaims are the verified attributes of the authenticating principal.
type ExternalClaims struct {
	Subject string
	Email   string
	Name    string
}

// IdentityVerifier validates an externally issued identity assertion.
type IdentityVerifier interface {
	Verify(ctx context.Context, assertion string) (ExternalClaims, error)
}

// GoogleVerifier checks Google ID tokens against Google's published certificates and the
// service's OAuth client id.
type GoogleVerifier struct {
	clientID string
	verifier googleAuthIDTokenVerifier.Verifier
}

// NewGoogleVerifier constructs a verifier bound to clientID.
func NewGoogleVerifier(clientID string) (*GoogleVerifier, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("google client id must not be empty")
	}

	return &GoogleVerifier{clientID: clientID, verifier: googleAuthIDTokenVerifier.Verifier{}}, nil
}

// Verify validates signature, issuer, audience and expiry, then extracts the claims.
func (v *GoogleVerifier) Verify(_ context.Context, assertion string) (ExternalClaims, error) {
	assertion = strings.TrimSpace(assertion)
	if assertion == "" {
		return ExternalClaims{}, fmt.Errorf("%w: empty assertion", ErrUnverifiedAssertion)
	}

	if err := v.verifier.VerifyIDToken(assertion, []string{v.clientID}); err != nil {
		return ExternalClaims{}, fmt.Errorf("%w: %v", ErrUnverifiedAssertion, err)
	}

	claimSet, err := googleAuthIDTokenVerifier.Decode(assertion)
	if err != nil {
		return ExternalClaims{}, fmt.Errorf("%w: %v", ErrUnverifiedAssertion, err)
	}

	return NormalizeClaims(ExternalClaims{
		Subject: claimSet.Sub,
		Email:   claimSet.Email,
		Name:    claimSet.Name,
	})
}

// NormalizeClaims trims and lower-cases the email and rejects claims lacking a subject or
// email. A missing display name becomes "Unknown".
func NormalizeClaims(claims ExternalClaims) (ExternalClaims, error) {
	claims.Subject = strings.TrimSpace(claims.Subject)
	claims.Email = strings.ToLower(strings.TrimSpace(claims.Email))
	claims.Name = strings.TrimSpace(claims.Name)

	if claims.Subject == "" {
		return ExternalClaims{}, fmt.Errorf("%w: missing subject", ErrUnverifiedAssertion)
	}
	if claims.Email == "" {
		return ExternalClaims{}, fmt.Errorf("%w: missing email", ErrUnverifiedAssertion)
	}
	if claims.Name == "" {
		claims.Name = "Unknown"
	}

	return claims, nil
}
