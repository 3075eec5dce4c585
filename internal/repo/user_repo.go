// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model
// and the local-mode credential store.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/earlyvue/go-screening-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service
// layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateUser inserts a new User row. The caller supplies the id: a UUID in
// hosted mode (matching the auth provider's subject), "user-<unix-ms>" in
// local mode.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) (*domain.User, error) {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByID fetches a single user by id, or ErrNotFound.
func GetUserByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail fetches a single user by email, or ErrNotFound.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser applies the given column updates to a user and bumps
// updated_at. Returns ErrNotFound when no row matched.
func UpdateUser(ctx context.Context, db *gorm.DB, id string, updates map[string]any) (*domain.User, error) {
	updates["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return GetUserByID(ctx, db, id)
}

// CreateCredential inserts a local-mode credential row.
func CreateCredential(ctx context.Context, db *gorm.DB, c *domain.Credential) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	return db.WithContext(ctx).Create(c).Error
}

// GetCredentialByEmail returns the credential entry for email, or ErrNotFound.
func GetCredentialByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Credential, error) {
	var c domain.Credential
	if err := db.WithContext(ctx).Where("email = ?", email).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CredentialEmailExists reports whether an account with email is already
// registered in the local store.
func CredentialEmailExists(ctx context.Context, db *gorm.DB, email string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Credential{}).
		Where("email = ?", email).
		Count(&n).Error
	return n > 0, err
}

// CountCredentials returns the number of locally registered accounts.
func CountCredentials(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Credential{}).Count(&n).Error
	return n, err
}

// UpdateCredentialProfile keeps the credential row's name/email in sync with
// a profile edit. Missing rows are not an error: hosted-mode users have no
// local credential entry.
func UpdateCredentialProfile(ctx context.Context, db *gorm.DB, userID, name, email string) error {
	return db.WithContext(ctx).
		Model(&domain.Credential{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"name": name, "email": email, "updated_at": time.Now().UTC()}).Error
}
