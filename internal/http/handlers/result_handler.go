// Result-cache HTTP handlers.
//
// This file exposes REST endpoints over the flat result records that back the
// history, dashboard, and progress views:
//   - GET    /results         (list, optional child filter, ETag support)
//   - POST   /results         (append one record, e.g. a simulated outcome)
//   - DELETE /results/{id}    (delete one, ownership enforced)
//   - GET    /results/stats   (risk counts + averaged progress metrics)
//   - GET    /results/recent  (last 4, newest first)
//   - GET    /results/export  (xlsx download)
//
// The child filter compares ids stringwise and treats "all" as no filter,
// matching how historical records mix string and numeric child ids.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/earlyvue/go-screening-backend/internal/domain"
	"github.com/earlyvue/go-screening-backend/internal/repo"
	"github.com/earlyvue/go-screening-backend/internal/services"
)

// ResultService defines result-cache operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ResultService interface {
	// List returns the user's records, optionally filtered to one child.
	List(ctx context.Context, userID, childID string) ([]domain.ResultRecord, error)
	// Append stores one record for the user and publishes it.
	Append(ctx context.Context, userID string, r domain.ResultRecord) (*domain.ResultRecord, error)
	// Delete removes one record, scoped to the owner.
	Delete(ctx context.Context, userID string, id int64) error
	// Stats summarizes risk counts and averaged progress metrics.
	Stats(ctx context.Context, userID, childID string) (*services.ResultStats, error)
	// Recent returns the last few records, newest first.
	Recent(ctx context.Context, userID string) ([]domain.ResultRecord, error)
	// ExportXLSX renders the user's records as a spreadsheet.
	ExportXLSX(ctx context.Context, userID, childID string) ([]byte, error)
}

// AppendResultRequest is the JSON payload for appending a result record. The
// field names mirror the stored record so simulated outcomes round-trip.
type AppendResultRequest struct {
	ChildID            string             `json:"childId" binding:"required"`
	ChildName          string             `json:"childName"`
	Date               string             `json:"date"`
	Type               string             `json:"type"`
	Risk               string             `json:"risk" binding:"required"`
	Score              int                `json:"score"`
	Duration           string             `json:"duration"`
	Verdict            string             `json:"verdict"`
	Confidence         float64            `json:"confidence"`
	ModelProbs         map[string]float64 `json:"modelProbs"`
	SocialAttention    int                `json:"socialAttention"`
	NonSocialAttention int                `json:"nonSocialAttention"`
	Improvement        float64            `json:"improvement"`
	PDFReportURL       string             `json:"pdfReportUrl"`
}

// childFilter reads the optional child filter from the query string.
// Absent means "all" (no filter).
func childFilter(c *gin.Context) string {
	if v := c.Query("child_id"); v != "" {
		return v
	}
	return services.FilterAll
}

// ListResults godoc
// @ID          listResults
// @Summary     List result records
// @Description Returns the user's cached results in append order. Supports a
// @Description stringwise child filter ("all" disables it) and a weak ETag
// @Description via If-None-Match which may yield 304.
// @Tags        Results
// @Produce     json
//
// @Param       child_id       query   string  false  "Child filter; 'all' or a specific id"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
//
// @Success     200  {object}  map[string]any          "results"
// @Success     304  {string}  string                  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /results [get]
func (h *Handlers) ListResults(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	child := childFilter(c)

	// ETag pre-check (best effort); the filter is part of the tag so a cached
	// "all" listing never answers for a specific child.
	var db *gorm.DB
	if svc, okSvc := h.resultSvc.(*services.ResultService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxID, err := repo.ResultsStats(ctx, db, uid)
		if err == nil {
			etag := fmt.Sprintf(`W/"results:%s:%s:%d:%d"`, uid, child, count, maxID)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.resultSvc.List(ctx, uid, child)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list results")
		return
	}
	ok(c, http.StatusOK, envelope("results", items, gin.H{"count": len(items)}))
}

// AppendResult godoc
// @ID          appendResult
// @Summary     Append a result record
// @Description Stores one record for the current user (used for simulated
// @Description outcomes) and publishes it to the in-process broadcast.
// @Tags        Results
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.AppendResultRequest  true  "Result record"
//
// @Success     201  {object}  map[string]any          "result"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /results [post]
func (h *Handlers) AppendResult(c *gin.Context) {
	var req AppendResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "childId and risk are required")
		return
	}

	rec, err := h.resultSvc.Append(c.Request.Context(), userID(c), domain.ResultRecord{
		ChildID:            req.ChildID,
		ChildName:          req.ChildName,
		Date:               req.Date,
		Type:               req.Type,
		Risk:               req.Risk,
		Score:              req.Score,
		Duration:           req.Duration,
		Verdict:            req.Verdict,
		Confidence:         req.Confidence,
		ModelProbs:         datatypes.NewJSONType(req.ModelProbs),
		SocialAttention:    req.SocialAttention,
		NonSocialAttention: req.NonSocialAttention,
		Improvement:        req.Improvement,
		PDFReportURL:       req.PDFReportURL,
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not store result")
		return
	}
	ok(c, http.StatusCreated, envelope("result", rec, nil))
}

// DeleteResult godoc
// @ID          deleteResult
// @Summary     Delete one result record
// @Tags        Results
// @Produce     json
//
// @Param       id  path  int  true  "Record ID"
//
// @Success     204  {string}  string                  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Record not found"
// @Router      /results/{id} [delete]
func (h *Handlers) DeleteResult(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "record id must be numeric")
		return
	}
	if err := h.resultSvc.Delete(c.Request.Context(), userID(c), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, services.ErrResultNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "result not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not delete result")
		return
	}
	noContent(c)
}

// ResultStats godoc
// @ID          resultStats
// @Summary     Result summary statistics
// @Description Returns counts by risk level plus averaged social attention,
// @Description non-social attention, and improvement for the progress view.
// @Tags        Results
// @Produce     json
//
// @Param       child_id  query  string  false  "Child filter; 'all' or a specific id"
//
// @Success     200  {object}  map[string]any          "stats"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /results/stats [get]
func (h *Handlers) ResultStats(c *gin.Context) {
	stats, err := h.resultSvc.Stats(c.Request.Context(), userID(c), childFilter(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not compute stats")
		return
	}
	ok(c, http.StatusOK, envelope("stats", stats, nil))
}

// RecentResults godoc
// @ID          recentResults
// @Summary     Recent result records
// @Description Returns the last four records, newest first, for the dashboard.
// @Tags        Results
// @Produce     json
//
// @Success     200  {object}  map[string]any          "results"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /results/recent [get]
func (h *Handlers) RecentResults(c *gin.Context) {
	items, err := h.resultSvc.Recent(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list recent results")
		return
	}
	ok(c, http.StatusOK, envelope("results", items, gin.H{"count": len(items)}))
}

// ExportResults godoc
// @ID          exportResults
// @Summary     Export results as a spreadsheet
// @Description Streams the user's result records as an .xlsx attachment.
// @Tags        Results
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//
// @Param       child_id  query  string  false  "Child filter; 'all' or a specific id"
//
// @Success     200  {string}  binary                  "Workbook"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /results/export [get]
func (h *Handlers) ExportResults(c *gin.Context) {
	data, err := h.resultSvc.ExportXLSX(c.Request.Context(), userID(c), childFilter(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeExportFailed, "could not export results")
		return
	}
	filename := fmt.Sprintf("screening-results-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
