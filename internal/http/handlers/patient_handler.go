// Patient HTTP handlers.
//
// This file exposes REST endpoints for child profiles:
//   - POST   /patients        (create; age in months is frozen at creation)
//   - GET    /patients        (list for the current user, ETag support)
//   - GET    /patients/{id}   (read one, ownership enforced)
//   - PUT    /patients/{id}   (update name/DOB/gender; age is never recomputed)
//   - DELETE /patients/{id}   (delete; cascades through the result cache)
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/earlyvue/go-screening-backend/internal/domain"
	"github.com/earlyvue/go-screening-backend/internal/repo"
	"github.com/earlyvue/go-screening-backend/internal/services"
)

// PatientService defines child-profile operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PatientService interface {
	// Create stores a new child profile for userID.
	Create(ctx context.Context, userID string, in services.PatientInput) (*domain.Patient, error)
	// List returns all child profiles owned by userID.
	List(ctx context.Context, userID string) ([]domain.Patient, error)
	// Get returns one child profile, enforcing ownership.
	Get(ctx context.Context, userID, patientID string) (*domain.Patient, error)
	// Update edits a child profile, enforcing ownership.
	Update(ctx context.Context, userID, patientID string, in services.PatientInput) (*domain.Patient, error)
	// Delete removes a child profile and its cached results.
	Delete(ctx context.Context, userID, patientID string) (removedResults int64, err error)
}

// PatientRequest is the JSON payload for creating or updating a child profile.
type PatientRequest struct {
	Name        string `json:"name" binding:"required" example:"Emma Johnson"`
	DateOfBirth string `json:"dateOfBirth" binding:"required" example:"2022-06-15"`
	Gender      string `json:"gender" example:"Female"`
}

// CreatePatient godoc
// @ID          createPatient
// @Summary     Add a child profile
// @Description Creates a child profile; age in months is computed from the
// @Description date of birth once and stored.
// @Tags        Patients
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.PatientRequest  true  "Child profile payload"
//
// @Success     201  {object}  map[string]any          "patient"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failure"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /patients [post]
func (h *Handlers) CreatePatient(c *gin.Context) {
	var req PatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and dateOfBirth are required")
		return
	}

	p, err := h.patientSvc.Create(c.Request.Context(), userID(c), services.PatientInput{
		Name:        req.Name,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create patient")
		return
	}
	ok(c, http.StatusCreated, envelope("patient", p, nil))
}

// ListPatients godoc
// @ID          listPatients
// @Summary     List child profiles
// @Description Returns the current user's child profiles. Supports weak ETag
// @Description via If-None-Match and may return 304.
// @Tags        Patients
// @Produce     json
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
//
// @Success     200  {object}  map[string]any          "patients"
// @Success     304  {string}  string                  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /patients [get]
func (h *Handlers) ListPatients(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.patientSvc.(*services.PatientService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.PatientsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"patients:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.patientSvc.List(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list patients")
		return
	}
	ok(c, http.StatusOK, envelope("patients", items, gin.H{"count": len(items)}))
}

// GetPatient godoc
// @ID          getPatient
// @Summary     Read one child profile
// @Tags        Patients
// @Produce     json
//
// @Param       id  path  string  true  "Patient ID"
//
// @Success     200  {object}  map[string]any          "patient"
// @Failure     404  {object}  handlers.ErrorResponse  "Patient not found"
// @Router      /patients/{id} [get]
func (h *Handlers) GetPatient(c *gin.Context) {
	p, err := h.patientSvc.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrPatientNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "patient not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load patient")
		return
	}
	ok(c, http.StatusOK, envelope("patient", p, nil))
}

// UpdatePatient godoc
// @ID          updatePatient
// @Summary     Edit a child profile
// @Description Updates name, date of birth, and gender. The stored age in
// @Description months is a creation-time snapshot and is not recomputed.
// @Tags        Patients
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                   true  "Patient ID"
// @Param       body  body  handlers.PatientRequest  true  "Fields to change"
//
// @Success     200  {object}  map[string]any          "patient"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failure"
// @Failure     404  {object}  handlers.ErrorResponse  "Patient not found"
// @Router      /patients/{id} [put]
func (h *Handlers) UpdatePatient(c *gin.Context) {
	var req PatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and dateOfBirth are required")
		return
	}

	p, err := h.patientSvc.Update(c.Request.Context(), userID(c), c.Param("id"), services.PatientInput{
		Name:        req.Name,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPatientNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "patient not found")
		case errors.Is(err, services.ErrInvalidInput):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not update patient")
		}
		return
	}
	ok(c, http.StatusOK, envelope("patient", p, nil))
}

// DeletePatient godoc
// @ID          deletePatient
// @Summary     Remove a child profile
// @Description Deletes the profile and cascades through the cached result
// @Description records of that child (string and numeric ids both match).
// @Tags        Patients
// @Produce     json
//
// @Param       id  path  string  true  "Patient ID"
//
// @Success     200  {object}  map[string]any          "removed_results count"
// @Failure     404  {object}  handlers.ErrorResponse  "Patient not found"
// @Router      /patients/{id} [delete]
func (h *Handlers) DeletePatient(c *gin.Context) {
	removed, err := h.patientSvc.Delete(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrPatientNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "patient not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not delete patient")
		return
	}
	ok(c, http.StatusOK, envelope("", nil, gin.H{"removed_results": removed}))
}
