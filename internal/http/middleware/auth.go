// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication. Token verification is
// decoupled from the concrete token implementation via a narrow TokenParser
// function type, mirroring how idempotency lookups are injected. The
// middleware stashes the authenticated user id (and the raw token) in the Gin
// context so downstream handlers and middleware (logging, rate limiting) can
// key on the user identity.
//
// Clients treat any 401 from this middleware as a forced logout: the session
// token is either missing, malformed, expired, or signed with the wrong key,
// and the only remedy is to sign in again.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys for authenticated request state. The "userID" key is shared
// with the logging and rate-limiting middleware.
const (
	ctxKeyUserID    = "userID"
	ctxKeyAuthToken = "authToken"
)

// TokenParser verifies a raw bearer token and returns the user id it carries.
// Any error means the token must be rejected; the middleware never
// distinguishes between malformed, expired, and forged tokens in responses.
type TokenParser func(raw string) (userID string, err error)

// UserIDFrom returns the authenticated user id stored by AuthRequired.
// The second return value indicates presence.
func UserIDFrom(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyUserID)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// TokenFrom returns the raw bearer token stored by AuthRequired. Handlers
// that proxy the token onward (e.g., hosted sign-out) read it from here
// instead of re-parsing the Authorization header.
func TokenFrom(c *gin.Context) string {
	v, ok := c.Get(ctxKeyAuthToken)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// AuthRequired returns a Gin middleware that enforces a valid
// "Authorization: Bearer <token>" header on every request it guards.
//
// Behavior:
//   - Missing or non-Bearer Authorization header: 401 with code "unauthorized".
//   - Token rejected by parse: 401 with code "unauthorized".
//   - Otherwise the user id and raw token are stashed in the context and the
//     chain continues.
//
// The error body matches the handlers' envelope so clients see one shape:
//
//	HTTP/1.1 401 Unauthorized
//	{
//	  "success":    false,
//	  "request_id": "<uuid>",
//	  "code":       "unauthorized",
//	  "message":    "authentication required"
//	}
func AuthRequired(parse TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			abortUnauthorized(c, "authentication required")
			return
		}
		uid, err := parse(raw)
		if err != nil || uid == "" {
			abortUnauthorized(c, "invalid or expired session")
			return
		}
		c.Set(ctxKeyUserID, uid)
		c.Set(ctxKeyAuthToken, raw)
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer x" value.
// Scheme matching is case-insensitive; surrounding whitespace is ignored.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success":    false,
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    msg,
	})
}
