package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/earlyvue/go-screening-backend/internal/domain"
)

func TestCreateUser_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, err := CreateUser(context.Background(), db, &domain.User{ID: "u1", Email: "a@x.com", Name: "A"})
	if err == nil {
		t.Fatalf("expected error creating without table")
	}
}

func TestCreateUser_Success_RoundTrip(t *testing.T) {
	db := newTestDB(t, &domain.User{})

	start := time.Now().UTC().Add(-time.Minute)
	u, err := CreateUser(context.Background(), db, &domain.User{
		ID:    "user-1700000000000",
		Email: "parent@example.com",
		Name:  "Parent A",
		Phone: "555-0100",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.CreatedAt.Before(start) || u.UpdatedAt.Before(start) {
		t.Fatalf("timestamps unset: %+v", u)
	}

	got, err := GetUserByID(context.Background(), db, "user-1700000000000")
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Email != "parent@example.com" || got.Name != "Parent A" || got.Phone != "555-0100" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}

	byEmail, err := GetUserByEmail(context.Background(), db, "parent@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("GetUserByEmail mismatch: %+v err=%v", byEmail, err)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()

	if _, err := CreateUser(ctx, db, &domain.User{ID: "u1", Email: "dup@x.com", Name: "A"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := CreateUser(ctx, db, &domain.User{ID: "u2", Email: "dup@x.com", Name: "B"}); err == nil {
		t.Fatalf("expected unique violation for duplicate email")
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	_, err := GetUserByID(context.Background(), db, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUser_ProfileFields(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()

	if _, err := CreateUser(ctx, db, &domain.User{ID: "u1", Email: "p@x.com", Name: "P"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := UpdateUser(ctx, db, "u1", map[string]any{
		"phone":             "555-0101",
		"address":           "1 Main St",
		"emergency_contact": "Grandma",
		"emergency_phone":   "555-0102",
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if got.Phone != "555-0101" || got.Address != "1 Main St" || got.EmergencyContact != "Grandma" {
		t.Fatalf("update not applied: %+v", got)
	}

	if _, err := UpdateUser(ctx, db, "nope", map[string]any{"name": "X"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing user, got %v", err)
	}
}

func TestCredentials_ExistsAndLookup(t *testing.T) {
	db := newTestDB(t, &domain.Credential{})
	ctx := context.Background()

	exists, err := CredentialEmailExists(ctx, db, "a@x.com")
	if err != nil || exists {
		t.Fatalf("empty store: exists=%v err=%v", exists, err)
	}

	cred := &domain.Credential{ID: "c1", UserID: "u1", Email: "a@x.com", Name: "A", PasswordHash: "$2a$10$hash"}
	if err := CreateCredential(ctx, db, cred); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}

	exists, err = CredentialEmailExists(ctx, db, "a@x.com")
	if err != nil || !exists {
		t.Fatalf("after insert: exists=%v err=%v", exists, err)
	}

	got, err := GetCredentialByEmail(ctx, db, "a@x.com")
	if err != nil || got.UserID != "u1" || got.PasswordHash != "$2a$10$hash" {
		t.Fatalf("GetCredentialByEmail mismatch: %+v err=%v", got, err)
	}

	n, err := CountCredentials(ctx, db)
	if err != nil || n != 1 {
		t.Fatalf("CountCredentials = %d, err=%v", n, err)
	}
}

func TestUpdateCredentialProfile_MissingRowIsNoError(t *testing.T) {
	db := newTestDB(t, &domain.Credential{})
	if err := UpdateCredentialProfile(context.Background(), db, "hosted-user", "N", "n@x.com"); err != nil {
		t.Fatalf("expected nil for hosted-mode user without credentials, got %v", err)
	}
}
