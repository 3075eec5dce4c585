package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/earlyvue/go-screening-backend/internal/domain"
	"github.com/earlyvue/go-screening-backend/internal/services"
)

func TestGetProfile_FoundAndMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("found", func(t *testing.T) {
		svc := stubProfileSvc{get: func(_ context.Context, uid string) (*domain.User, error) {
			return &domain.User{ID: uid, Email: "jane@example.com", Name: "Jane Parent"}, nil
		}}
		h := newStubHandlers(nil, svc, nil, nil, nil)
		r := gin.New()
		r.GET("/profile", h.GetProfile)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		req.Header.Set("X-User-ID", "u1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("profile -> %d", w.Code)
		}
		var out struct {
			User domain.User `json:"user"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.User.ID != "u1" || out.User.Email != "jane@example.com" {
			t.Fatalf("user envelope: %+v", out.User)
		}
	})

	t.Run("missing", func(t *testing.T) {
		svc := stubProfileSvc{get: func(context.Context, string) (*domain.User, error) {
			return nil, services.ErrUserNotFound
		}}
		h := newStubHandlers(nil, svc, nil, nil, nil)
		r := gin.New()
		r.GET("/profile", h.GetProfile)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/profile", nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("missing -> %d", w.Code)
		}
	})
}

func TestUpdateProfile_PartialFieldsForwarded(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got services.ProfileInput
	svc := stubProfileSvc{update: func(_ context.Context, _ string, in services.ProfileInput) (*domain.User, error) {
		got = in
		return &domain.User{ID: "u1", Name: *in.Name}, nil
	}}
	h := newStubHandlers(nil, svc, nil, nil, nil)
	r := gin.New()
	r.PUT("/profile", h.UpdateProfile)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/profile",
		jsonBody(`{"name":"Jane P.","phone":""}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update -> %d body=%s", w.Code, w.Body.String())
	}

	// Present fields arrive as pointers, absent ones stay nil.
	if got.Name == nil || *got.Name != "Jane P." {
		t.Fatalf("name not forwarded: %+v", got.Name)
	}
	if got.Phone == nil || *got.Phone != "" {
		t.Fatalf("explicit empty phone must be forwarded: %+v", got.Phone)
	}
	if got.Address != nil || got.EmergencyContact != nil || got.EmergencyPhone != nil {
		t.Fatalf("absent fields must stay nil: %+v", got)
	}
}

func TestUpdateProfile_BadJSONAndInvalidInput(t *testing.T) {
	gin.SetMode(gin.TestMode)

	put := func(h *Handlers, body string) *httptest.ResponseRecorder {
		r := gin.New()
		r.PUT("/profile", h.UpdateProfile)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/profile", jsonBody(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	if w := put(newStubHandlers(nil, stubProfileSvc{}, nil, nil, nil), `{bad`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json -> %d", w.Code)
	}

	invalid := stubProfileSvc{update: func(context.Context, string, services.ProfileInput) (*domain.User, error) {
		return nil, services.ErrInvalidInput
	}}
	if w := put(newStubHandlers(nil, invalid, nil, nil, nil), `{"name":""}`); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid input -> %d", w.Code)
	}
}
