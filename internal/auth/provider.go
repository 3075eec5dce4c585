// Package auth – hosted identity provider client
//
// In hosted mode, sign-up and password login are delegated to the managed
// backend's GoTrue-style auth REST API. The anon key rides along as both the
// apikey header and bearer token, matching what the hosted SDK sends.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// ErrProvider wraps hosted-provider rejections; the message carries the
// provider's own error text.
var ErrProvider = errors.New("auth provider rejected request")

// ProviderUser is the identity the hosted provider reports after sign-up or
// login.
type ProviderUser struct {
	ID    string
	Email string
	Name  string
}

// IdentityProvider is the contract the auth service needs from the hosted
// backend. Local mode runs without one.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password, name string) (*ProviderUser, error)
	SignIn(ctx context.Context, email, password string) (*ProviderUser, error)
	SignOut(ctx context.Context, token string) error
}

type providerUserPayload struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type providerAuthResponse struct {
	User             *providerUserPayload `json:"user"`
	ID               string               `json:"id"`    // signup responses are flat
	Email            string               `json:"email"` //
	UserMetadata     map[string]any       `json:"user_metadata"`
	ErrorDescription string               `json:"error_description"`
	Msg              string               `json:"msg"`
	Message          string               `json:"message"`
}

// HostedProvider talks to the managed backend's /auth/v1 endpoints.
type HostedProvider struct {
	http *resty.Client
}

// NewHostedProvider builds a provider client for baseURL using anonKey.
func NewHostedProvider(baseURL, anonKey string) *HostedProvider {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("apikey", anonKey).
		SetHeader("Authorization", "Bearer "+anonKey)
	return &HostedProvider{http: c}
}

// SignUp registers a new account, storing the display name as user metadata.
func (p *HostedProvider) SignUp(ctx context.Context, email, password, name string) (*ProviderUser, error) {
	var out providerAuthResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"email":    email,
			"password": password,
			"data":     map[string]any{"name": name},
		}).
		SetResult(&out).
		SetError(&out).
		Post("/auth/v1/signup")
	if err != nil {
		return nil, fmt.Errorf("signup request: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: %s", ErrProvider, out.errorText("registration failed"))
	}
	return out.user(email, name), nil
}

// SignIn performs a password grant and returns the provider identity.
func (p *HostedProvider) SignIn(ctx context.Context, email, password string) (*ProviderUser, error) {
	var out providerAuthResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		SetError(&out).
		Post("/auth/v1/token")
	if err != nil {
		return nil, fmt.Errorf("signin request: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: %s", ErrProvider, out.errorText("login failed"))
	}
	return out.user(email, ""), nil
}

// SignOut revokes the provider-side session. Failures are returned but the
// caller treats them as advisory: the local token is discarded regardless.
func (p *HostedProvider) SignOut(ctx context.Context, token string) error {
	resp, err := p.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		Post("/auth/v1/logout")
	if err != nil {
		return fmt.Errorf("signout request: %w", err)
	}
	if !resp.IsSuccess() && resp.StatusCode() != 401 {
		return fmt.Errorf("%w: signout returned %s", ErrProvider, resp.Status())
	}
	return nil
}

func (r *providerAuthResponse) errorText(fallback string) string {
	for _, s := range []string{r.ErrorDescription, r.Msg, r.Message} {
		if s != "" {
			return s
		}
	}
	return fallback
}

// user flattens the two response shapes (nested login, flat signup) into a
// ProviderUser. The display name falls back to the email's local part the
// same way the client SDK did.
func (r *providerAuthResponse) user(email, name string) *ProviderUser {
	id := r.ID
	em := r.Email
	meta := r.UserMetadata
	if r.User != nil {
		id = r.User.ID
		em = r.User.Email
		meta = r.User.UserMetadata
	}
	if em == "" {
		em = email
	}
	if name == "" {
		if v, ok := meta["name"].(string); ok {
			name = v
		}
	}
	if name == "" {
		if at := strings.Index(em, "@"); at > 0 {
			name = em[:at]
		}
	}
	return &ProviderUser{ID: id, Email: em, Name: name}
}
