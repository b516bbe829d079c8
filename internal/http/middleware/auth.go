// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the bearer-token authentication gate. Every review-data
// endpoint sits behind it; token creation is the only unauthenticated write.
// A token is valid iff an exact-match row exists in the token store. There is
// no hashing, no expiry, and no scoping.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ctxKeyTokenID is the Gin context key holding the authenticated API
	// token's ID (not the token value itself).
	ctxKeyTokenID = "apiTokenID"
	// ctxKeyTokenName holds the optional human-readable token name.
	ctxKeyTokenName = "apiTokenName"
)

// TokenValidator checks a bearer token value against the token store and
// returns the matching token's ID and name.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (id, name string, err error)
}

// TokenIDFromCtx returns the authenticated token ID set by AuthRequired.
// The second return value indicates presence.
func TokenIDFromCtx(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyTokenID)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// AuthRequired returns a Gin middleware that enforces bearer authentication.
//
// Behavior:
//   - Missing Authorization header, a scheme other than "Bearer", or an empty
//     credential → 401 with code "unauthorized".
//   - Unknown token (no exact match in the store) → 401 with the same body;
//     the response never distinguishes malformed from unknown.
//   - Valid token → the token's ID and name are stashed in the Gin context
//     for downstream logging, rate limiting, and idempotency keying.
//
// Place after RequestID() so the 401 envelope carries the correlation ID.
func AuthRequired(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		value := bearerToken(raw)
		if value == "" {
			unauthorized(c)
			return
		}

		id, name, err := tokens.Validate(c.Request.Context(), value)
		if err != nil {
			unauthorized(c)
			return
		}

		c.Set(ctxKeyTokenID, id)
		c.Set(ctxKeyTokenName, name)
		c.Next()
	}
}

// bearerToken extracts the credential from an "Authorization: Bearer <token>"
// header. Scheme matching is case-insensitive; surrounding whitespace is
// trimmed. Returns "" for any malformed value.
func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func unauthorized(c *gin.Context) {
	rid, _ := c.Get(requestIDKey)
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": asString(rid),
		"code":       "unauthorized",
		"message":    "invalid or missing API token",
	})
}
