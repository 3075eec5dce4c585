package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedactingLogger_ScrubsQueryAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	// Upstream RequestID equivalent: the response header id must win over
	// the request header one.
	r.Use(func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-resp")
		c.Next()
	})
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"apikey"}}))
	r.GET("/patients/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	q := "email=parent@example.com&phone=+1-555-123-4567&child=123e4567-e89b-12d3-a456-426614174000"
	req := httptest.NewRequest(http.MethodGet, "/patients/p1?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set("Apikey", "hosted-anon-key")
	req.Header.Set("X-Contact", "email a@b.com id=123e4567-e89b-12d3-a456-426614174000 phone 555-123-4567")
	req.Header.Set("X-Request-ID", "rid-req")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	logs := buf.String()
	if !strings.Contains(logs, `"level":"info"`) || !strings.Contains(logs, `"path":"/patients/:id"`) {
		t.Fatalf("base fields: %s", logs)
	}
	if !strings.Contains(logs, `"request_id":"rid-resp"`) {
		t.Fatalf("response-header id must win: %s", logs)
	}
	for _, marker := range []string{"[REDACTED:email]", "[REDACTED:phone]", "[REDACTED:id]"} {
		if !strings.Contains(logs, marker) {
			t.Fatalf("query not scrubbed (%s): %s", marker, logs)
		}
	}
	if strings.Contains(logs, "parent@example.com") || strings.Contains(logs, "555-123-4567") {
		t.Fatalf("raw PII leaked: %s", logs)
	}
	for _, h := range []string{`"Authorization":"[REDACTED]"`, `"Cookie":"[REDACTED]"`, `"Apikey":"[REDACTED]"`} {
		if !strings.Contains(logs, h) {
			t.Fatalf("header not masked (%s): %s", h, logs)
		}
	}
	// Non-masked headers keep their shape with only the PII substituted.
	if !strings.Contains(logs, `"X-Contact":"email [REDACTED:email] id=[REDACTED:id] phone [REDACTED:phone]"`) {
		t.Fatalf("pattern redaction inside header: %s", logs)
	}
}

func TestRedactingLogger_LevelsAndRequestIDFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	// No RequestID middleware: the logger falls back to the request header.
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/warn", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/error", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, tc := range []struct{ path, rid string }{
		{"/warn", "rid-warn"},
		{"/error", "rid-err"},
	} {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Header.Set("X-Request-ID", tc.rid)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	logs := buf.String()
	if !strings.Contains(logs, `"level":"warn"`) || !strings.Contains(logs, `"request_id":"rid-warn"`) {
		t.Fatalf("warn line: %s", logs)
	}
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, `"request_id":"rid-err"`) {
		t.Fatalf("error line: %s", logs)
	}
}
