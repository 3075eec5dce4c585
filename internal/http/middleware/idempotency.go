// Package middleware contains shared Gin middleware used by the HTTP layer.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client-chosen dedup key for unsafe
// operations. A retried screening run sends the same key, and the server
// answers with the stored result instead of starting a second ML session.
const HeaderIdempotencyKey = "Idempotency-Key"

// Context keys stashed by IdempotencyValidator, read back through the
// accessor helpers below.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // true when a stored result exists for this key
	ctxKeyRateBypass = "rate.bypass" // true to skip rate limiting
)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
// Handlers read the key through this rather than the raw header so they only
// ever see values that passed validation.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the lookup found a completed earlier request for
// this (user, scope, key) triple. Handlers then serve the persisted result
// instead of re-running the operation.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions tunes header validation. TTL is not enforced here; the
// lookup decides whether a stored record is still fresh.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Defaults to a conservative
	// token pattern: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
	// Identity derives the user id for lookups. When nil, the context value
	// stored by AuthRequired is used; routers that mount this middleware ahead
	// of authentication supply a token-parsing identity instead.
	Identity func(*gin.Context) string
}

// IdempotencyLookup answers whether a successful, still-valid result already
// exists for (userID, scopeID, key) at the given time. Lookup failures must
// come back as exists=false with an error; they never block the request.
type IdempotencyLookup func(ctx context.Context, userID, scopeID, key string, now time.Time) (exists bool, err error)

// ScopeFromRequest derives the idempotency scope for a request: the ":id"
// route parameter when the route has one, otherwise the matched route path.
// Handlers performing their own store/replay must use the same derivation so
// the middleware's replay flag and the persisted record agree.
func ScopeFromRequest(c *gin.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// IdempotencyValidator validates the Idempotency-Key header when present,
// stashes the key, and consults the lookup for a prior completed request.
// A detected replay sets the replay and rate-bypass flags; serving the cached
// payload stays with the handler. Requests without the header pass through
// untouched, and only a malformed key stops the chain (400).
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"code":    "bad_idempotency_key",
				"message": "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			var uid string
			if opts.Identity != nil {
				uid = opts.Identity(c)
			} else {
				uid, _ = UserIDFrom(c)
			}
			scope := ScopeFromRequest(c)
			now := time.Now().UTC()

			if exists, _ := lookup(c.Request.Context(), uid, scope, key, now); exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}
