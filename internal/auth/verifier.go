// Package auth verifies bearer tokens issued by the identity provider.
// The backend never mints user identities itself; every request carries a
// token whose verified subject claim is the canonical user id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates the bearer token failed verification.
var ErrInvalidToken = errors.New("auth: invalid token")

// Identity is the verified principal extracted from a token.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// Verifier validates a raw bearer token and extracts the caller's identity.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// Config selects and configures the token verifier. When Issuer is set the
// OIDC verifier is used; otherwise the static HMAC verifier serves local
// development.
type Config struct {
	Issuer   string
	Audience string
	// DevSecret signs development tokens when no issuer is configured.
	DevSecret string
}

// NewVerifier builds the verifier matching the configuration.
func NewVerifier(ctx context.Context, cfg Config) (Verifier, error) {
	if strings.TrimSpace(cfg.Issuer) != "" {
		return NewOIDCVerifier(ctx, cfg.Issuer, cfg.Audience)
	}
	return NewStaticVerifier(cfg.DevSecret)
}

// OIDCVerifier validates identity-provider tokens via OIDC discovery.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier performs provider discovery and prepares token validation.
func NewOIDCVerifier(ctx context.Context, issuer, audience string) (*OIDCVerifier, error) {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return nil, errors.New("auth: issuer is required")
	}
	if strings.TrimSpace(audience) == "" {
		return nil, errors.New("auth: audience is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	discoveryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	provider, err := oidc.NewProvider(discoveryCtx, issuer)
	if err != nil {
		return nil, fmt.Errorf("auth: oidc discovery failed: %w", err)
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: audience}),
	}, nil
}

// Verify validates the token signature, issuer, audience and expiry, then
// extracts the profile claims.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	if v == nil || v.verifier == nil {
		return nil, errors.New("auth: verifier not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	token, err := v.verifier.Verify(ctx, strings.TrimSpace(rawToken))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %v", ErrInvalidToken, err)
	}

	return &Identity{
		UserID: token.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
	}, nil
}

// StaticVerifier validates HMAC-signed tokens for local development, where no
// identity provider is reachable.
type StaticVerifier struct {
	secret []byte
}

// NewStaticVerifier constructs the development verifier.
func NewStaticVerifier(secret string) (*StaticVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: dev secret is required when no issuer is configured")
	}
	return &StaticVerifier{secret: []byte(secret)}, nil
}

type staticClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verify validates the development token and extracts the identity.
func (v *StaticVerifier) Verify(_ context.Context, rawToken string) (*Identity, error) {
	if v == nil {
		return nil, errors.New("auth: verifier not initialised")
	}

	var claims staticClaims
	token, err := jwt.ParseWithClaims(strings.TrimSpace(rawToken), &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Identity{
		UserID: claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
	}, nil
}

// SignDevToken issues a development token accepted by the static verifier.
// Intended for local tooling and tests.
func (v *StaticVerifier) SignDevToken(identity Identity, ttl time.Duration) (string, error) {
	if v == nil {
		return "", errors.New("auth: verifier not initialised")
	}
	if strings.TrimSpace(identity.UserID) == "" {
		return "", errors.New("auth: user id is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	now := time.Now()
	claims := staticClaims{
		Name:  identity.Name,
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
