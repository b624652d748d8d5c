package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/codecraft-dev/codecraft/internal/auth"
	"github.com/codecraft-dev/codecraft/pkg/errors"
	"github.com/codecraft-dev/codecraft/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxUserNameKey  = "userName"
	CtxUserEmailKey = "userEmail"
)

// Auth enforces bearer-token authentication using the supplied verifier.
func Auth(verifier iauth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := bearerIdentity(c, verifier)
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, identity.UserID)
		c.Set(CtxUserNameKey, identity.Name)
		c.Set(CtxUserEmailKey, identity.Email)

		c.Next()
	}
}

// OptionalAuth populates the caller identity when a valid token is present but
// lets anonymous requests through. Used on endpoints that serve public data
// with extra detail for members.
func OptionalAuth(verifier iauth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, ok := bearerIdentity(c, verifier); ok {
			c.Set(CtxUserIDKey, identity.UserID)
			c.Set(CtxUserNameKey, identity.Name)
			c.Set(CtxUserEmailKey, identity.Email)
		}
		c.Next()
	}
}

func bearerIdentity(c *gin.Context, verifier iauth.Verifier) (*iauth.Identity, bool) {
	authz := c.GetHeader("Authorization")
	if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
		// WebSocket clients cannot set headers; accept the token query
		// parameter there as a fallback.
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			return nil, false
		}
		identity, err := verifier.Verify(c.Request.Context(), token)
		return identity, err == nil && identity != nil
	}

	identity, err := verifier.Verify(c.Request.Context(), strings.TrimSpace(authz[7:]))
	if err != nil || identity == nil {
		return nil, false
	}
	return identity, true
}
