package middlewares

import (
	"Medicare/utils"
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type contextKey string

const hospitalIDKey contextKey = "hospitalID"

// TokenAuthMiddleware accepts a PASETO access token from the Authorization
// header, the accessToken cookie or the accessToken query parameter, in
// that order, and puts the hospital id in the request context.
func TokenAuthMiddleware(issuer *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			HttpError(c, "Missing access token", http.StatusUnauthorized, nil)
			return
		}

		claims, err := issuer.ValidateToken(token)
		if err != nil {
			HttpError(c, "Invalid token", http.StatusUnauthorized, err)
			return
		}
		hospitalID, err := claims.HospitalIDUint()
		if err != nil {
			HttpError(c, "Invalid token", http.StatusUnauthorized, err)
			return
		}

		ctx := context.WithValue(c.Request.Context(), hospitalIDKey, hospitalID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(utils.AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	return c.Query(utils.AccessTokenCookie)
}

// HospitalIDFromContext returns the hospital the request is authenticated as.
func HospitalIDFromContext(ctx context.Context) (uint, error) {
	id, ok := ctx.Value(hospitalIDKey).(uint)
	if !ok {
		return 0, errors.New("hospital ID not found in context")
	}
	return id, nil
}
