// Package services – ProfileService
//
// This file implements ProfileService, which exposes the guardian's own
// account record for reading and partial updates. Name changes are mirrored
// into the credential store so the login greeting stays consistent; email is
// immutable here because it doubles as the login identity.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/earlyvue/go-screening-backend/internal/domain"
	"github.com/earlyvue/go-screening-backend/internal/repo"
)

// ProfileInput carries the updatable account fields. Nil pointers mean
// "leave unchanged"; empty strings clear the field (except Name, which is
// required to stay non-empty).
type ProfileInput struct {
	Name             *string
	Phone            *string
	Address          *string
	EmergencyContact *string
	EmergencyPhone   *string
}

// ProfileService reads and updates the authenticated user's own record.
type ProfileService struct {
	DB *gorm.DB
}

// Get returns the user row for userID.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.User, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	u, err := repo.GetUserByID(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// Update applies the provided fields and returns the refreshed row. A name
// change is mirrored into the credential store; a missing credential row
// (hosted mode) is not an error.
func (s *ProfileService) Update(ctx context.Context, userID string, in ProfileInput) (*domain.User, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	updates := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		updates["name"] = name
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		updates["address"] = strings.TrimSpace(*in.Address)
	}
	if in.EmergencyContact != nil {
		updates["emergency_contact"] = strings.TrimSpace(*in.EmergencyContact)
	}
	if in.EmergencyPhone != nil {
		updates["emergency_phone"] = strings.TrimSpace(*in.EmergencyPhone)
	}
	if len(updates) == 0 {
		return s.Get(ctx, userID)
	}

	var updated *domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := repo.UpdateUser(ctx, tx, userID, updates)
		if err != nil {
			return err
		}
		updated = u
		if name, ok := updates["name"].(string); ok {
			return repo.UpdateCredentialProfile(ctx, tx, userID, name, u.Email)
		}
		return nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ValidEmail reports whether s parses as a plain addr-spec email address.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	return err == nil && addr.Address == strings.TrimSpace(s)
}
