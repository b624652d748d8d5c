package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestStaticVerifier_RoundTrip(t *testing.T) {
	verifier, err := NewStaticVerifier("dev-secret")
	require.NoError(t, err)

	token, err := verifier.SignDevToken(Identity{
		UserID: "idp|42",
		Name:   "alice",
		Email:  "alice@example.com",
	}, time.Minute)
	require.NoError(t, err)

	identity, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "idp|42", identity.UserID)
	require.Equal(t, "alice", identity.Name)
	require.Equal(t, "alice@example.com", identity.Email)
}

func TestStaticVerifier_RejectsWrongSecret(t *testing.T) {
	issuer, err := NewStaticVerifier("secret-a")
	require.NoError(t, err)
	verifier, err := NewStaticVerifier("secret-b")
	require.NoError(t, err)

	token, err := issuer.SignDevToken(Identity{UserID: "idp|42"}, time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestStaticVerifier_RejectsExpiredToken(t *testing.T) {
	verifier, err := NewStaticVerifier("dev-secret")
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{
		Subject:   "idp|42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("dev-secret"))
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestStaticVerifier_RejectsMissingSubject(t *testing.T) {
	verifier, err := NewStaticVerifier("dev-secret")
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("dev-secret"))
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewVerifier_SelectsStaticWithoutIssuer(t *testing.T) {
	verifier, err := NewVerifier(context.Background(), Config{DevSecret: "dev-secret"})
	require.NoError(t, err)
	require.IsType(t, &StaticVerifier{}, verifier)
}
