package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/codecraft-dev/codecraft/internal/auth"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *iauth.StaticVerifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier, err := iauth.NewStaticVerifier("test-secret")
	require.NoError(t, err)

	router := gin.New()
	router.GET("/protected", Auth(verifier), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(CtxUserIDKey)})
	})
	router.GET("/open", OptionalAuth(verifier), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(CtxUserIDKey)})
	})

	return router, verifier
}

func TestAuth_RejectsMissingToken(t *testing.T) {
	router, _ := newAuthRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestAuth_AcceptsBearerToken(t *testing.T) {
	router, verifier := newAuthRouter(t)

	token, err := verifier.SignDevToken(iauth.Identity{UserID: "idp|1", Name: "alice"}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "idp|1")
}

func TestAuth_AcceptsQueryToken(t *testing.T) {
	router, verifier := newAuthRouter(t)

	token, err := verifier.SignDevToken(iauth.Identity{UserID: "idp|1"}, time.Minute)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil))

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalAuth_AllowsAnonymous(t *testing.T) {
	router, _ := newAuthRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))

	require.Equal(t, http.StatusOK, rec.Code)
}
