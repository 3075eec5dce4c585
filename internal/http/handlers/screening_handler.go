// Screening HTTP handlers.
//
// This file exposes REST endpoints for screening sessions:
//   - GET  /screenings/types   (catalog; public)
//   - GET  /screenings         (formal sessions joined with their patients)
//   - POST /screenings         (log an already-computed result)
//   - POST /screenings/run     (drive the external ML backend end to end)
//   - GET  /reports/{filename} (redirect to the generated PDF report)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// run exists for (user, route, key), the handler returns that recorded result
// and sets `Idempotency-Replayed: true`. A retried run must never start a
// second session against the ML backend.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/earlyvue/go-screening-backend/internal/domain"
	"github.com/earlyvue/go-screening-backend/internal/http/middleware"
	"github.com/earlyvue/go-screening-backend/internal/mlbackend"
	"github.com/earlyvue/go-screening-backend/internal/repo"
	"github.com/earlyvue/go-screening-backend/internal/services"
)

// ScreeningService defines screening operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ScreeningService interface {
	// Types returns the screening catalog.
	Types() []services.ScreeningType
	// TypeByID resolves one catalog entry.
	TypeByID(id string) (services.ScreeningType, bool)
	// ListByUser returns the user's formal sessions with their patients.
	ListByUser(ctx context.Context, userID string) ([]repo.ScreeningWithPatient, error)
	// Log records an externally computed screening outcome.
	Log(ctx context.Context, userID string, in services.LogInput) (*domain.Screening, *domain.ResultRecord, error)
	// Run drives the ML backend and records the outcome.
	Run(ctx context.Context, userID, patientID, screeningType string) (*domain.ResultRecord, error)
}

//
// DTOs
//

// RunScreeningRequest is the JSON payload for starting a live screening.
type RunScreeningRequest struct {
	PatientID     string `json:"patientId" binding:"required" example:"1718000000000"`
	ScreeningType string `json:"screeningType" binding:"required" example:"basic-asd"`
}

// LogScreeningRequest is the JSON payload for recording a finished screening
// whose metrics were computed elsewhere.
type LogScreeningRequest struct {
	PatientID          string   `json:"patientId" binding:"required"`
	ScreeningType      string   `json:"screeningType" binding:"required"`
	Score              int      `json:"score"`
	RiskLevel          string   `json:"riskLevel" binding:"required"`
	DurationSeconds    int      `json:"durationSeconds"`
	SocialAttention    int      `json:"socialAttention"`
	NonSocialAttention int      `json:"nonSocialAttention"`
	Improvement        float64  `json:"improvement"`
	Recommendations    []string `json:"recommendations"`
	Strengths          []string `json:"strengths"`
	AreasForAttention  []string `json:"areasForAttention"`
}

//
// Handlers
//

// ListScreeningTypes godoc
// @ID          listScreeningTypes
// @Summary     Screening catalog
// @Description Returns the available screening types with durations and
// @Description feature lists. Public.
// @Tags        Screenings
// @Produce     json
//
// @Success     200  {object}  map[string]any  "types"
// @Router      /screenings/types [get]
func (h *Handlers) ListScreeningTypes(c *gin.Context) {
	ok(c, http.StatusOK, envelope("types", h.screeningSvc.Types(), nil))
}

// ListScreenings godoc
// @ID          listScreenings
// @Summary     List formal screening sessions
// @Description Returns the user's sessions joined with the owning patients,
// @Description newest first.
// @Tags        Screenings
// @Produce     json
//
// @Success     200  {object}  map[string]any          "screenings"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /screenings [get]
func (h *Handlers) ListScreenings(c *gin.Context) {
	items, err := h.screeningSvc.ListByUser(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list screenings")
		return
	}
	ok(c, http.StatusOK, envelope("screenings", items, gin.H{"count": len(items)}))
}

// LogScreening godoc
// @ID          logScreening
// @Summary     Record a finished screening
// @Description Stores a formal Screening with its result in one transaction
// @Description and mirrors it into the flat result cache.
// @Tags        Screenings
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LogScreeningRequest  true  "Screening outcome"
//
// @Success     201  {object}  map[string]any          "screening + result"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failure"
// @Failure     404  {object}  handlers.ErrorResponse  "Patient not found"
// @Router      /screenings [post]
func (h *Handlers) LogScreening(c *gin.Context) {
	var req LogScreeningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "patientId, screeningType and riskLevel are required")
		return
	}

	s, rec, err := h.screeningSvc.Log(c.Request.Context(), userID(c), services.LogInput{
		PatientID:          req.PatientID,
		ScreeningType:      req.ScreeningType,
		Score:              req.Score,
		RiskLevel:          req.RiskLevel,
		DurationSeconds:    req.DurationSeconds,
		SocialAttention:    req.SocialAttention,
		NonSocialAttention: req.NonSocialAttention,
		Improvement:        req.Improvement,
		Recommendations:    req.Recommendations,
		Strengths:          req.Strengths,
		AreasForAttention:  req.AreasForAttention,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPatientNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "patient not found")
		case errors.Is(err, services.ErrUnknownScreeningType), errors.Is(err, services.ErrInvalidInput):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not record screening")
		}
		return
	}
	ok(c, http.StatusCreated, envelope("screening", s, gin.H{"result": rec}))
}

// RunScreening godoc
// @ID          runScreening
// @Summary     Run a live screening
// @Description Health-checks the ML backend, initializes it, starts the
// @Description session, derives risk and score from the verdict, and records
// @Description the outcome. Supports idempotency via the Idempotency-Key
// @Description header (same key → same result, no second backend session).
// @Tags        Screenings
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"
// @Param       body  body  handlers.RunScreeningRequest  true  "Run payload"
//
// @Success     200  {object}  map[string]any          "result"
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown screening type"
// @Failure     404  {object}  handlers.ErrorResponse  "Patient not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Backend reported failure"
// @Failure     503  {object}  handlers.ErrorResponse  "Backend unreachable"
// @Router      /screenings/run [post]
func (h *Handlers) RunScreening(c *gin.Context) {
	ctx := c.Request.Context()

	var req RunScreeningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "patientId and screeningType are required")
		return
	}

	currentUser := userID(c)
	scope := middleware.ScopeFromRequest(c)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.screeningSvc.(*services.ScreeningService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, scope, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if id, err2 := strconv.ParseInt(rec.RecordID, 10, 64); err2 == nil {
					if prev, err3 := repo.GetResult(ctx, svc.DB, currentUser, id); err3 == nil {
						c.Header("Idempotency-Replayed", "true")
						ok(c, http.StatusOK, envelope("result", prev, nil))
						return
					}
				}
			}
		}
	}

	rec, err := h.screeningSvc.Run(ctx, currentUser, req.PatientID, req.ScreeningType)
	if err != nil {
		switch {
		case errors.Is(err, mlbackend.ErrUnreachable):
			fail(c, http.StatusServiceUnavailable, ErrCodeBackendUnreachable,
				"ML backend is not running. Please start the Python backend first.")
		case errors.Is(err, mlbackend.ErrScreeningFailed):
			fail(c, http.StatusBadGateway, ErrCodeScreeningFailed, err.Error())
		case errors.Is(err, services.ErrPatientNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "patient not found")
		case errors.Is(err, services.ErrUnknownScreeningType):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "screening could not be recorded")
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.screeningSvc.(*services.ScreeningService); okSvc && svc.DB != nil {
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, scope, idemKey,
				strconv.FormatInt(rec.ID, 10), http.StatusOK, h.idemTTL())
		}
	}

	ok(c, http.StatusOK, envelope("result", rec, nil))
}

// idemTTL returns the configured replay validity window, defaulting to 24 h.
func (h *Handlers) idemTTL() time.Duration {
	if h.IdempotencyTTL > 0 {
		return h.IdempotencyTTL
	}
	return 24 * time.Hour
}

// DownloadReport godoc
// @ID          downloadReport
// @Summary     Fetch a generated PDF report
// @Description Redirects to the ML backend's report download URL. The file is
// @Description opened by the client, never parsed here.
// @Tags        Screenings
// @Produce     json
//
// @Param       filename  path  string  true  "Report filename from a screening result"
//
// @Success     302  {string}  string                  "Redirect to the report"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid filename"
// @Failure     404  {object}  handlers.ErrorResponse  "Report routing unavailable"
// @Router      /reports/{filename} [get]
func (h *Handlers) DownloadReport(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "report filename required")
		return
	}
	// The name is interpolated into the redirect target; traversal sequences
	// and path separators must never reach the ML backend's download route.
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid report filename")
		return
	}
	svc, okSvc := h.screeningSvc.(*services.ScreeningService)
	if !okSvc || svc.Backend == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "report download unavailable")
		return
	}
	c.Redirect(http.StatusFound, svc.Backend.ReportURL(filename))
}
