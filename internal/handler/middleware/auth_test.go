//go:build unit

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orderflow/internal/handler/middleware"
	"orderflow/internal/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.AuthMiddleware(config.JWTConfig{Secret: testSecret}))
	router.GET("/protected", func(c *gin.Context) {
		claims, _ := c.Get(middleware.ClaimsKey)
		c.JSON(http.StatusOK, gin.H{"claims": claims})
	})
	return router
}

func perform(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	router := newProtectedRouter()

	t.Run("valid token passes", func(t *testing.T) {
		token := signedToken(t, testSecret, jwt.MapClaims{
			"sub": "ops-user",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		w := perform(router, "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		w := perform(router, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("non-bearer header is rejected", func(t *testing.T) {
		w := perform(router, "Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong signing key is rejected", func(t *testing.T) {
		token := signedToken(t, "other-secret", jwt.MapClaims{
			"sub": "ops-user",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		w := perform(router, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token := signedToken(t, testSecret, jwt.MapClaims{
			"sub": "ops-user",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		w := perform(router, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
