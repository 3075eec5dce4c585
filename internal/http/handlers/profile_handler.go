// Profile HTTP handlers.
//
// This file exposes REST endpoints for the authenticated user's own record:
//   - GET /profile   (read)
//   - PUT /profile   (partial update; omitted fields are left unchanged)
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/earlyvue/go-screening-backend/internal/domain"
	"github.com/earlyvue/go-screening-backend/internal/services"
)

// ProfileService defines profile operations consumed by HTTP handlers.
type ProfileService interface {
	// Get returns the user row for userID.
	Get(ctx context.Context, userID string) (*domain.User, error)
	// Update applies the non-nil fields of in to the user row.
	Update(ctx context.Context, userID string, in services.ProfileInput) (*domain.User, error)
}

// UpdateProfileRequest is the JSON payload for a profile update. Pointer
// fields distinguish "leave unchanged" (absent) from "set to empty" ("").
type UpdateProfileRequest struct {
	Name             *string `json:"name" example:"Jane Parent"`
	Phone            *string `json:"phone" example:"+1 212 555 1212"`
	Address          *string `json:"address" example:"1 Main St"`
	EmergencyContact *string `json:"emergencyContact" example:"John Parent"`
	EmergencyPhone   *string `json:"emergencyPhone" example:"+1 212 555 1213"`
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Read the current profile
// @Tags        Profile
// @Produce     json
//
// @Success     200  {object}  map[string]any          "user"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing/invalid session"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /profile [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	u, err := h.profileSvc.Get(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load profile")
		return
	}
	ok(c, http.StatusOK, envelope("user", u, nil))
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Update the current profile
// @Description Applies a partial update; a renamed account is mirrored into
// @Description the local credential store so future logins agree.
// @Tags        Profile
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.UpdateProfileRequest  true  "Fields to change"
//
// @Success     200  {object}  map[string]any          "user"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /profile [put]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	u, err := h.profileSvc.Update(c.Request.Context(), userID(c), services.ProfileInput{
		Name:             req.Name,
		Phone:            req.Phone,
		Address:          req.Address,
		EmergencyContact: req.EmergencyContact,
		EmergencyPhone:   req.EmergencyPhone,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		case errors.Is(err, services.ErrInvalidInput):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not update profile")
		}
		return
	}
	ok(c, http.StatusOK, envelope("user", u, nil))
}
