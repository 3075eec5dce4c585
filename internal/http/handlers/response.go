// Package handlers implements the public HTTP API: sessions and guardian
// profiles, child records, screening runs against the external ML service,
// the result cache, the assistant, and static resources.
//
// Every response shares one shape. Successes carry "success": true plus the
// named entity, built with envelope(); failures are an ErrorResponse with
// "success": false and a stable machine-readable code, so clients branch on
// a single field either way.
//
//	HTTP/1.1 404 Not Found
//	{
//	  "success": false,
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "patient not found"
//	}
//
//	HTTP/1.1 200 OK
//	{ "success": true, "patient": { "id": "1718000000000", "name": "Emma Johnson" } }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/earlyvue/go-screening-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by every endpoint. RequestID
// echoes X-Request-ID so a client-reported failure can be matched to its
// server log line; Code is one of the constants in errors.go and Message is
// safe to show to users.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"not_found"`
	Message   string `json:"message" example:"patient not found"`
}

// fail aborts the request with an ErrorResponse at the given status.
// Server-side failures (>= 500) are also logged through the request-scoped
// logger; client errors are the caller's problem and stay quiet.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail exposes fail to other packages (the router's NoRoute handler) so they
// emit the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// envelope builds a success body: {"success": true, <key>: <value>, ...extra}.
// Keys in extra are merged in as-is, so callers can attach siblings such as
// counts or pagination next to the named entity.
func envelope(key string, value any, extra gin.H) gin.H {
	body := gin.H{"success": true}
	if key != "" {
		body[key] = value
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
