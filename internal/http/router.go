// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/earlyvue/go-screening-backend/internal/auth"
	"github.com/earlyvue/go-screening-backend/internal/config"
	"github.com/earlyvue/go-screening-backend/internal/events"
	"github.com/earlyvue/go-screening-backend/internal/http/handlers"
	"github.com/earlyvue/go-screening-backend/internal/http/middleware"
	"github.com/earlyvue/go-screening-backend/internal/repo"
	"github.com/earlyvue/go-screening-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, backend services.ScreeningBackend, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"apikey", // hosted-provider key must never reach the logs
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Response compression (metrics, xlsx exports and the SSE feed excluded)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{
		`^/metrics$`,
		`.*/results/export$`,
		`.*/results/stream$`,
	})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Session tokens. bearerUserID resolves the caller before the auth
	// middleware has run, so the idempotency lookup can key on the user.
	tokens := &auth.TokenIssuer{Secret: []byte(cfg.Auth.JWTSecret), TTL: cfg.Auth.TokenTTL}
	parseToken := func(raw string) (string, error) {
		claims, err := tokens.Parse(raw)
		if err != nil {
			return "", err
		}
		return claims.Subject, nil
	}
	bearerUserID := func(c *gin.Context) string {
		if uid, ok := middleware.UserIDFrom(c); ok {
			return uid
		}
		authz := c.GetHeader("Authorization")
		if len(authz) > 7 {
			if uid, err := parseToken(authz[7:]); err == nil {
				return uid
			}
		}
		return ""
	}

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen:   200,
			Identity: bearerUserID,
		},
		func(ctx context.Context, userID, scopeID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scopeID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/backend
	broadcast := &events.ResultBroadcast{}
	resultSvc := &services.ResultService{DB: db, Broadcast: broadcast}
	patientSvc := services.NewPatientService(db)
	profileSvc := &services.ProfileService{DB: db}
	screeningSvc := &services.ScreeningService{
		DB:          db,
		Backend:     backend,
		Results:     resultSvc,
		FeaturesCSV: cfg.ML.FeaturesCSV,
	}
	var provider auth.IdentityProvider
	if cfg.HostedMode() {
		provider = auth.NewHostedProvider(cfg.Hosted.URL, cfg.Hosted.AnonKey)
	}
	authSvc := &auth.Service{
		DB:       db,
		Tokens:   tokens,
		Provider: provider,
		Seeder:   &services.DemoSeeder{DB: db},
		Results:  resultSvc,
	}
	h := handlers.New(authSvc, profileSvc, patientSvc, screeningSvc, resultSvc)
	h.IdempotencyTTL = cfg.IdempotencyTTL

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Sessions
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)

		// Catalog (no session required)
		api.GET("/screenings/types", h.ListScreeningTypes)

		// Chatbot
		api.GET("/chatbot/greeting", h.ChatbotGreeting)
		api.POST("/chatbot/message", h.ChatbotMessage)
		api.POST("/chatbot/quick-action", h.ChatbotQuickAction)

		// Resources and specialists
		api.GET("/resources", h.ListResources)
		api.GET("/resources/search", h.SearchResources)
		api.GET("/resources/:slug", h.GetResource)
		api.GET("/specialists", h.ListSpecialists)
		api.GET("/specialists/specialties", h.ListSpecialties)
	}

	authed := api.Group("", middleware.AuthRequired(parseToken))
	{
		// Sessions
		authed.POST("/auth/logout", h.Logout)
		authed.GET("/auth/me", h.Me)

		// Profile
		authed.GET("/profile", h.GetProfile)
		authed.PUT("/profile", h.UpdateProfile)

		// Patients
		authed.POST("/patients", h.CreatePatient)
		authed.GET("/patients", h.ListPatients)
		authed.GET("/patients/:id", h.GetPatient)
		authed.PUT("/patients/:id", h.UpdatePatient)
		authed.DELETE("/patients/:id", h.DeletePatient)

		// Screenings
		authed.GET("/screenings", h.ListScreenings)
		authed.POST("/screenings", h.LogScreening)
		authed.POST("/screenings/run", h.RunScreening)
		authed.GET("/reports/:filename", h.DownloadReport)

		// Results
		authed.GET("/results", h.ListResults)
		authed.POST("/results", h.AppendResult)
		authed.DELETE("/results/:id", h.DeleteResult)
		authed.GET("/results/stats", h.ResultStats)
		authed.GET("/results/recent", h.RecentResults)
		authed.GET("/results/export", h.ExportResults)
		authed.GET("/results/stream", h.StreamResults)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
