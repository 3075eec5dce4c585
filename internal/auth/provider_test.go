package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHostedProvider_SignUp(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/signup" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Errorf("apikey header missing")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"hosted-1","email":"a@x.com","user_metadata":{"name":"Guardian"}}`))
	}))
	defer srv.Close()

	p := NewHostedProvider(srv.URL, "anon-key")
	u, err := p.SignUp(context.Background(), "a@x.com", "sturdy-pass-1", "Guardian")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if u.ID != "hosted-1" || u.Name != "Guardian" {
		t.Fatalf("user: %+v", u)
	}
	if data, ok := gotBody["data"].(map[string]any); !ok || data["name"] != "Guardian" {
		t.Fatalf("metadata not sent: %v", gotBody)
	}
}

func TestHostedProvider_SignInPasswordGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request: %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"id":"hosted-1","email":"a@x.com","user_metadata":{"name":"Guardian"}}}`))
	}))
	defer srv.Close()

	p := NewHostedProvider(srv.URL, "anon-key")
	u, err := p.SignIn(context.Background(), "a@x.com", "sturdy-pass-1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if u.ID != "hosted-1" || u.Name != "Guardian" {
		t.Fatalf("user: %+v", u)
	}
}

func TestHostedProvider_PropagatesProviderMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_description":"Invalid login credentials"}`))
	}))
	defer srv.Close()

	p := NewHostedProvider(srv.URL, "anon-key")
	_, err := p.SignIn(context.Background(), "a@x.com", "bad")
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "Invalid login credentials") {
		t.Fatalf("provider message lost: %q", got)
	}
}

func TestHostedProvider_NameFallsBackToEmailLocalPart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"id":"hosted-1","email":"guardian@x.com","user_metadata":{}}}`))
	}))
	defer srv.Close()

	p := NewHostedProvider(srv.URL, "anon-key")
	u, err := p.SignIn(context.Background(), "guardian@x.com", "sturdy-pass-1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if u.Name != "guardian" {
		t.Fatalf("name fallback = %q", u.Name)
	}
}
