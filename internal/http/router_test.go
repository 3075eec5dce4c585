package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/earlyvue/go-screening-backend/internal/config"
	"github.com/earlyvue/go-screening-backend/internal/http/middleware"
	"github.com/earlyvue/go-screening-backend/internal/mlbackend"
	"github.com/earlyvue/go-screening-backend/internal/repo"
)

// --- fake external screening backend ---

type fakeBackend struct {
	healthErr error
	verdict   string
	starts    int
}

func (f *fakeBackend) Health(_ context.Context) error { return f.healthErr }

func (f *fakeBackend) Initialize(_ context.Context, _ string) error { return nil }

func (f *fakeBackend) StartScreening(_ context.Context, req mlbackend.ScreeningRequest) (*mlbackend.ScreeningResponse, error) {
	f.starts++
	return &mlbackend.ScreeningResponse{
		Success:  true,
		Duration: req.Duration,
		Result: &mlbackend.ScreeningOutcome{
			Verdict:           f.verdict,
			Confidence:        0.82,
			PDFReportFilename: "report.pdf",
		},
	}, nil
}

func (f *fakeBackend) ReportURL(filename string) string {
	return "http://ml.local/api/download_report/" + filename
}

// --- test DB helper (pure-Go sqlite, no CGO) ---

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     1000,
		RateBurst:   100,
		CORS:        config.CORSConfig{AllowedOrigins: nil}, // allow-all branch
		Security:    config.SecurityConfig{EnableHSTS: false},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
		Auth:        config.AuthConfig{JWTSecret: "router-test-secret", TokenTTL: time.Hour},
		ML:          config.MLBackendConfig{FeaturesCSV: "features.csv"},
	}
}

func newAPI(t *testing.T, backend *fakeBackend) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	RegisterRoutes(r, db, backend, testConfig())
	return r, db
}

// doJSON performs a JSON request and decodes the response body.
func doJSON(t *testing.T, r *gin.Engine, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "identity")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

// registerUser runs a registration and returns the session token.
func registerUser(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()
	code, body := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name":            "Jane Parent",
		"email":           email,
		"password":        "Str0ngPass",
		"confirmPassword": "Str0ngPass",
	})
	if code != http.StatusCreated {
		t.Fatalf("register = %d: %v", code, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("register returned no token: %v", body)
	}
	return token
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _ := newAPI(t, &fakeBackend{verdict: "Non Autistic"})

	// /health works
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := testConfig()
	cfg.APIBasePath = "/api/v2"
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	RegisterRoutes(r, newTestDB(t), &fakeBackend{}, cfg)

	// Any request runs through CORS middleware; header should reflect origin.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRoutes_AuthGuard(t *testing.T) {
	r, _ := newAPI(t, &fakeBackend{})

	// Authenticated routes reject anonymous callers with the forced-logout 401.
	for _, path := range []string{"/api/v1/patients", "/api/v1/results", "/api/v1/auth/me", "/api/v1/profile"} {
		code, body := doJSON(t, r, http.MethodGet, path, "", nil)
		if code != http.StatusUnauthorized {
			t.Fatalf("GET %s anonymous = %d, want 401", path, code)
		}
		if body["code"] != "unauthorized" {
			t.Fatalf("GET %s error code = %v", path, body["code"])
		}
	}

	// Public routes answer without a session.
	code, body := doJSON(t, r, http.MethodGet, "/api/v1/screenings/types", "", nil)
	if code != http.StatusOK || body["success"] != true {
		t.Fatalf("GET /screenings/types = %d: %v", code, body)
	}
	code, _ = doJSON(t, r, http.MethodGet, "/api/v1/resources", "", nil)
	if code != http.StatusOK {
		t.Fatalf("GET /resources = %d", code)
	}
	code, body = doJSON(t, r, http.MethodPost, "/api/v1/chatbot/message", "", gin.H{"message": "hello"})
	if code != http.StatusOK || body["reply"] == "" {
		t.Fatalf("chatbot message = %d: %v", code, body)
	}
}

func TestRoutes_RegisterLoginAndSeededDashboard(t *testing.T) {
	r, _ := newAPI(t, &fakeBackend{})
	token := registerUser(t, r, "seeded@example.com")

	// Registration seeds the demo fixture: one patient, cached results.
	code, body := doJSON(t, r, http.MethodGet, "/api/v1/patients", token, nil)
	if code != http.StatusOK {
		t.Fatalf("GET /patients = %d: %v", code, body)
	}
	patients, _ := body["patients"].([]any)
	if len(patients) != 1 {
		t.Fatalf("expected 1 seeded patient, got %d", len(patients))
	}

	code, body = doJSON(t, r, http.MethodGet, "/api/v1/results", token, nil)
	if code != http.StatusOK {
		t.Fatalf("GET /results = %d: %v", code, body)
	}
	if n, _ := body["count"].(float64); n != 2 {
		t.Fatalf("expected 2 seeded results, got %v", body["count"])
	}

	// Login again and read the profile through /auth/me.
	code, body = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "seeded@example.com",
		"password": "Str0ngPass",
	})
	if code != http.StatusOK {
		t.Fatalf("login = %d: %v", code, body)
	}
	token2, _ := body["token"].(string)
	code, body = doJSON(t, r, http.MethodGet, "/api/v1/auth/me", token2, nil)
	if code != http.StatusOK {
		t.Fatalf("me = %d: %v", code, body)
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "seeded@example.com" {
		t.Fatalf("unexpected me payload: %v", body)
	}

	// Wrong password yields the exact invalid-credentials message.
	code, body = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "seeded@example.com",
		"password": "WrongPass1",
	})
	if code != http.StatusUnauthorized || body["message"] != "Invalid email or password" {
		t.Fatalf("bad login = %d: %v", code, body)
	}
}

func TestRoutes_ScreeningRun_EndToEnd_WithIdempotentReplay(t *testing.T) {
	backend := &fakeBackend{verdict: "Autistic Syndrome"}
	r, _ := newAPI(t, backend)
	token := registerUser(t, r, "runner@example.com")

	// Grab the seeded patient id.
	code, body := doJSON(t, r, http.MethodGet, "/api/v1/patients", token, nil)
	if code != http.StatusOK {
		t.Fatalf("GET /patients = %d", code)
	}
	patients := body["patients"].([]any)
	patientID := patients[0].(map[string]any)["id"].(string)

	runPayload, _ := json.Marshal(gin.H{"patientId": patientID, "screeningType": "basic-asd"})
	doRun := func() (int, map[string]any, http.Header) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/screenings/run", bytes.NewReader(runPayload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept-Encoding", "identity")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(middleware.HeaderIdempotencyKey, "run-key-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		out := map[string]any{}
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		return w.Code, out, w.Header()
	}

	code, body, _ = doRun()
	if code != http.StatusOK {
		t.Fatalf("run = %d: %v", code, body)
	}
	result := body["result"].(map[string]any)
	if result["risk"] != "high" || result["score"].(float64) != 82 {
		t.Fatalf("unexpected run outcome: %v", result)
	}
	if backend.starts != 1 {
		t.Fatalf("backend starts = %d, want 1", backend.starts)
	}

	// Replay with the same key: same record, no second backend session.
	code, body, hdr := doRun()
	if code != http.StatusOK {
		t.Fatalf("replay = %d: %v", code, body)
	}
	if hdr.Get("Idempotency-Replayed") != "true" {
		t.Fatalf("expected Idempotency-Replayed header")
	}
	replayed := body["result"].(map[string]any)
	if replayed["id"] != result["id"] {
		t.Fatalf("replay returned a different record: %v vs %v", replayed["id"], result["id"])
	}
	if backend.starts != 1 {
		t.Fatalf("replay must not start another screening, starts=%d", backend.starts)
	}

	// The formal screening log now has the completed session.
	code, body = doJSON(t, r, http.MethodGet, "/api/v1/screenings", token, nil)
	if code != http.StatusOK {
		t.Fatalf("GET /screenings = %d", code)
	}
	screenings := body["screenings"].([]any)
	found := false
	for _, s := range screenings {
		if s.(map[string]any)["status"] == "completed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a completed screening, got %v", screenings)
	}
}

func TestRoutes_BackendDown_Returns503(t *testing.T) {
	backend := &fakeBackend{healthErr: fmt.Errorf("%w: refused", mlbackend.ErrUnreachable)}
	r, _ := newAPI(t, backend)
	token := registerUser(t, r, "down@example.com")

	code, body := doJSON(t, r, http.MethodGet, "/api/v1/patients", token, nil)
	if code != http.StatusOK {
		t.Fatalf("GET /patients = %d", code)
	}
	patientID := body["patients"].([]any)[0].(map[string]any)["id"].(string)

	code, body = doJSON(t, r, http.MethodPost, "/api/v1/screenings/run", token, gin.H{
		"patientId":     patientID,
		"screeningType": "basic-asd",
	})
	if code != http.StatusServiceUnavailable {
		t.Fatalf("run with dead backend = %d: %v", code, body)
	}
	if body["code"] != "backend_unreachable" {
		t.Fatalf("error code = %v", body["code"])
	}
	if backend.starts != 0 {
		t.Fatalf("no screening may start when health fails")
	}
}

func TestRoutes_ResultsETag304(t *testing.T) {
	r, _ := newAPI(t, &fakeBackend{})
	token := registerUser(t, r, "etag@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/results", nil)
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first GET /results = %d", w.Code)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag on results listing")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/results", nil)
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional GET /results = %d, want 304", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	// Hit all three
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/one", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "one" {
		t.Fatalf("GET /one got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/two", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "two" {
		t.Fatalf("GET /two got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("GET /api/ping got %d %q", rec.Code, rec.Body.String())
	}
}
