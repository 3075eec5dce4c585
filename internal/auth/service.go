// Package auth – session/identity service
//
// This file implements the account lifecycle. Local mode keeps a credential
// store in the embedded database (bcrypt hashes, never plaintext); hosted
// mode delegates sign-up and password checks to the managed provider and
// mirrors the identity into the users table. Both paths seed the demo
// fixture for fresh accounts and run the result-cache repair at login.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/earlyvue/go-screening-backend/internal/domain"
	"github.com/earlyvue/go-screening-backend/internal/repo"
	"github.com/earlyvue/go-screening-backend/internal/services"
)

var (
	// ErrInvalidCredentials is the single message shown for any failed local
	// login, so attempts cannot probe which emails exist.
	ErrInvalidCredentials = errors.New("Invalid email or password")

	// ErrEmailTaken rejects a duplicate local registration.
	ErrEmailTaken = errors.New("User already exists with this email")

	// ErrValidation wraps field-level registration problems.
	ErrValidation = errors.New("validation failed")
)

// passwordStrengthRE: eight or more characters with lower, upper, and digit
// counts as strong.
var passwordStrengthRE = regexp.MustCompile(`[a-z]`)
var passwordUpperRE = regexp.MustCompile(`[A-Z]`)
var passwordDigitRE = regexp.MustCompile(`\d`)

// PasswordStrength classifies a password: "weak" (under 6), "fair" (under
// 8), "strong" (8+ with mixed case and a digit), "good" otherwise.
func PasswordStrength(password string) string {
	switch {
	case len(password) < 6:
		return "weak"
	case len(password) < 8:
		return "fair"
	case passwordStrengthRE.MatchString(password) &&
		passwordUpperRE.MatchString(password) &&
		passwordDigitRE.MatchString(password):
		return "strong"
	default:
		return "good"
	}
}

// RegisterInput carries a sign-up request.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Session is the result of a successful register or login.
type Session struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Service is the session/identity manager. Provider is nil in local mode.
type Service struct {
	DB       *gorm.DB
	Tokens   *TokenIssuer
	Provider IdentityProvider
	Seeder   *services.DemoSeeder
	Results  *services.ResultService

	// NewUserID mints local-mode user ids. Defaults to "user-<unix-ms>".
	NewUserID func() string
}

// Validate checks a registration before any store or network call.
func (in RegisterInput) Validate() error {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return fmt.Errorf("%w: full name is required", ErrValidation)
	case len(name) < 2:
		return fmt.Errorf("%w: name must be at least 2 characters", ErrValidation)
	case strings.TrimSpace(in.Email) == "":
		return fmt.Errorf("%w: email is required", ErrValidation)
	case !services.ValidEmail(in.Email):
		return fmt.Errorf("%w: please enter a valid email address", ErrValidation)
	case in.Password == "":
		return fmt.Errorf("%w: password is required", ErrValidation)
	case len(in.Password) < 6:
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	case PasswordStrength(in.Password) == "weak":
		return fmt.Errorf("%w: password is too weak", ErrValidation)
	case in.Password != in.ConfirmPassword:
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}
	return nil
}

// Register creates an account and returns an authenticated session. Local
// mode enforces email uniqueness in the credential store; hosted mode signs
// up against the provider first and mirrors the identity locally. Fresh
// accounts are seeded with the demo fixture.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	tr := otel.Tracer("auth/Service")
	ctx, span := tr.Start(ctx, "Register")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)

	var user *domain.User
	if s.Provider != nil {
		pu, err := s.Provider.SignUp(ctx, email, in.Password, name)
		if err != nil {
			return nil, err
		}
		user = &domain.User{ID: pu.ID, Email: pu.Email, Name: pu.Name}
		if _, err := repo.CreateUser(ctx, s.DB, user); err != nil {
			return nil, fmt.Errorf("mirror user row: %w", err)
		}
	} else {
		exists, err := repo.CredentialEmailExists(ctx, s.DB, email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrEmailTaken
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user = &domain.User{ID: s.newUserID(), Email: email, Name: name}
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := repo.CreateUser(ctx, tx, user); err != nil {
				return err
			}
			return repo.CreateCredential(ctx, tx, &domain.Credential{
				ID:           "cred-" + user.ID,
				UserID:       user.ID,
				Email:        email,
				Name:         name,
				PasswordHash: string(hash),
			})
		})
		if err != nil {
			return nil, err
		}
	}

	if s.Seeder != nil {
		if err := s.Seeder.Seed(ctx, user.ID); err != nil {
			// The account is usable without sample data.
			log.Warn().Err(err).Str("user_id", user.ID).Msg("demo seed failed")
		}
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	return s.session(user)
}

// Login authenticates email/password and returns a session. Local failures
// always surface ErrInvalidCredentials; hosted failures carry the provider
// message. The result-cache repair runs on every successful login.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	tr := otel.Tracer("auth/Service")
	ctx, span := tr.Start(ctx, "Login")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user *domain.User
	if s.Provider != nil {
		pu, err := s.Provider.SignIn(ctx, email, password)
		if err != nil {
			return nil, err
		}
		user, err = repo.GetUserByID(ctx, s.DB, pu.ID)
		if errors.Is(err, repo.ErrNotFound) {
			// Provider account exists but the mirror row is missing; recreate it.
			user = &domain.User{ID: pu.ID, Email: pu.Email, Name: pu.Name}
			if _, err := repo.CreateUser(ctx, s.DB, user); err != nil {
				return nil, fmt.Errorf("mirror user row: %w", err)
			}
		} else if err != nil {
			return nil, err
		}
	} else {
		cred, err := repo.GetCredentialByEmail(ctx, s.DB, email)
		if err != nil {
			return nil, ErrInvalidCredentials
		}
		if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
			return nil, ErrInvalidCredentials
		}
		user, err = repo.GetUserByID(ctx, s.DB, cred.UserID)
		if err != nil {
			return nil, ErrInvalidCredentials
		}
	}

	if s.Results != nil {
		if n, err := s.Results.RepairOnLogin(ctx, user.ID); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID).Msg("result repair failed")
		} else if n > 0 {
			log.Info().Int64("repaired", n).Str("user_id", user.ID).Msg("claimed orphaned results")
		}
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	return s.session(user)
}

// Logout revokes the hosted session when a provider is configured. The
// stateless local token simply expires; clients discard it immediately.
func (s *Service) Logout(ctx context.Context, token string) error {
	tr := otel.Tracer("auth/Service")
	ctx, span := tr.Start(ctx, "Logout")
	defer span.End()

	if s.Provider == nil {
		return nil
	}
	return s.Provider.SignOut(ctx, token)
}

// CurrentUser resolves a token to the live user row, so profile edits made
// since the token was issued are reflected.
func (s *Service) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	tr := otel.Tracer("auth/Service")
	ctx, span := tr.Start(ctx, "CurrentUser")
	defer span.End()

	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	u, err := repo.GetUserByID(ctx, s.DB, claims.Subject)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return u, err
}

func (s *Service) session(u *domain.User) (*Session, error) {
	token, err := s.Tokens.Issue(u.ID, u.Email, u.Name)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}

func (s *Service) newUserID() string {
	if s.NewUserID != nil {
		return s.NewUserID()
	}
	return "user-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
}
