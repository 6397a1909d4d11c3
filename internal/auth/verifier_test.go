package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeClaims(t *testing.T) {
	claims, err := NormalizeClaims(ExternalClaims{Subject: " 1234 ", Email: " Alice@Example.COM ", Name: ""})
	require.NoError(t, err)
	require.Equal(t, "1234", claims.Subject)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, "Unknown", claims.Name)
}

func TestNormalizeClaimsRequiresSubjectAndEmail(t *testing.T) {
	_, err := NormalizeClaims(ExternalClaims{Email: "alice@example.com"})
	require.ErrorIs(t, err, ErrUnverifiedAssertion)

	_, err = NormalizeClaims(ExternalClaims{Subject: "1234"})
	require.ErrorIs(t, err, ErrUnverifiedAssertion)
}

func TestGoogleVerifierRejectsGarbage(t *testing.T) {
	_, err := NewGoogleVerifier("")
	require.Error(t, err)

	verifier, err := NewGoogleVerifier("client.apps.googleusercontent.com")
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), "")
	require.ErrorIs(t, err, ErrUnverifiedAssertion)
}
