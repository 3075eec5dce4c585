// Auth HTTP handlers.
//
// This file exposes REST endpoints for the session lifecycle:
//   - POST /auth/register  (create account, returns token + user)
//   - POST /auth/login     (password grant, returns token + user)
//   - POST /auth/logout    (hosted sign-out; stateless locally)
//   - GET  /auth/me        (re-read the authenticated user row)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Clients treat any 401 as a
// forced logout.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/earlyvue/go-screening-backend/internal/auth"
	"github.com/earlyvue/go-screening-backend/internal/chatbot"
	"github.com/earlyvue/go-screening-backend/internal/domain"
	"github.com/earlyvue/go-screening-backend/internal/http/middleware"
	"github.com/earlyvue/go-screening-backend/internal/resources"
	"github.com/earlyvue/go-screening-backend/internal/search"
)

//
// Service contracts (context-aware)
//

// AuthService defines the session/identity operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AuthService interface {
	// Register creates an account and returns an authenticated session.
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Session, error)
	// Login verifies credentials and returns an authenticated session.
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	// Logout invalidates the hosted session; locally the token is simply dropped.
	Logout(ctx context.Context, token string) error
	// CurrentUser resolves a token to the current user row.
	CurrentUser(ctx context.Context, token string) (*domain.User, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the API: sessions, profile, patients,
// screenings, results, chatbot, and static resources. It depends on abstract
// service interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	authSvc      AuthService
	profileSvc   ProfileService
	patientSvc   PatientService
	screeningSvc ScreeningService
	resultSvc    ResultService
	bot          chatbot.Responder
	resourceIdx  search.Index

	// IdempotencyTTL is how long a stored screening-run replay stays valid.
	// Zero means the 24 h default.
	IdempotencyTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
// The resource index is built once from the static catalog.
func New(authSvc AuthService, profileSvc ProfileService, patientSvc PatientService, screeningSvc ScreeningService, resultSvc ResultService) *Handlers {
	return &Handlers{
		authSvc:      authSvc,
		profileSvc:   profileSvc,
		patientSvc:   patientSvc,
		screeningSvc: screeningSvc,
		resultSvc:    resultSvc,
		resourceIdx:  resources.SearchIndex(),
	}
}

// userID extracts the authenticated user id from Gin context (set by the auth
// middleware). If absent, it falls back to "X-User-ID" header (tests use it).
// It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if uid, ok := middleware.UserIDFrom(c); ok {
		return uid
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

//
// DTOs
//

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Name            string `json:"name" binding:"required" example:"Jane Parent"`
	Email           string `json:"email" binding:"required" example:"jane@example.com"`
	Password        string `json:"password" binding:"required" example:"Str0ngPass"`
	ConfirmPassword string `json:"confirmPassword" binding:"required" example:"Str0ngPass"`
}

// LoginRequest is the JSON payload for the password grant.
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"jane@example.com"`
	Password string `json:"password" binding:"required" example:"Str0ngPass"`
}

//
// Handlers
//

// Register godoc
// @ID          register
// @Summary     Create an account
// @Description Validates the registration, creates the account (local store or
// @Description hosted provider), seeds the demo fixture, and returns a session.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RegisterRequest  true  "Registration payload"
//
// @Success     201  {object}  map[string]any          "token + user"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failure"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already registered"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, email, password and confirmPassword are required")
		return
	}

	sess, err := h.authSvc.Register(c.Request.Context(), auth.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		case errors.Is(err, auth.ErrValidation):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, auth.ErrProvider):
			fail(c, http.StatusBadGateway, ErrCodeInternal, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create account")
		}
		return
	}

	ok(c, http.StatusCreated, envelope("user", sess.User, gin.H{"token": sess.Token}))
}

// Login godoc
// @ID          login
// @Summary     Sign in
// @Description Verifies credentials and returns a session token plus the user.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Login payload"
//
// @Success     200  {object}  map[string]any          "token + user"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}

	sess, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrProvider) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not sign in")
		return
	}

	ok(c, http.StatusOK, envelope("user", sess.User, gin.H{"token": sess.Token}))
}

// Logout godoc
// @ID          logout
// @Summary     Sign out
// @Description Hosted mode revokes the provider session; local sessions are
// @Description stateless and the client simply discards the token.
// @Tags        Auth
// @Produce     json
//
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing/invalid session"
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.authSvc.Logout(c.Request.Context(), middleware.TokenFrom(c)); err != nil {
		// Sign-out failures are logged but never block the client from leaving.
		middleware.LoggerFrom(c).Warn().Err(err).Msg("logout")
	}
	noContent(c)
}

// Me godoc
// @ID          me
// @Summary     Current user
// @Description Re-reads the user row for the session token, so profile edits
// @Description are visible without re-login.
// @Tags        Auth
// @Produce     json
//
// @Success     200  {object}  map[string]any          "user"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing/invalid session"
// @Router      /auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	u, err := h.authSvc.CurrentUser(c.Request.Context(), middleware.TokenFrom(c))
	if err != nil {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid or expired session")
		return
	}
	ok(c, http.StatusOK, envelope("user", u, nil))
}
