package middleware

import (
	"net/http"
	"strings"

	"orderflow/internal/handler/httperr"
	"orderflow/internal/pkg/config"
	"orderflow/internal/pkg/errs"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	bearerPrefix = "Bearer "

	ClaimsKey = "jwt_claims"
)

var (
	ErrMissingToken = errs.New("missing bearer token")
	ErrInvalidToken = errs.New("invalid token")
)

// AuthMiddleware validates the Authorization bearer token and stores its
// claims on the context. The API is operator-facing, so every protected
// route requires a token; there is no anonymous tier.
func AuthMiddleware(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := extractBearerToken(c)
		if err != nil {
			httperr.AbortWithError(c, http.StatusUnauthorized, err, "Authentication required", nil)
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errs.Newf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		})
		if err != nil || !token.Valid {
			cause := ErrInvalidToken
			if err != nil {
				cause = errs.Mark(errs.Wrap(err, "token validation failed"), ErrInvalidToken)
			}
			httperr.AbortWithError(c, http.StatusUnauthorized, cause, "Invalid token", nil)
			return
		}

		c.Set(ClaimsKey, map[string]any(claims))
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrInvalidToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
