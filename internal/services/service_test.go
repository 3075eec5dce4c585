package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/earlyvue/go-screening-backend/internal/domain"
	"github.com/earlyvue/go-screening-backend/internal/repo"
)

// newServiceDB opens a migrated throwaway SQLite database for service tests.
func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "svc.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Patient{},
		&domain.Screening{},
		&domain.ScreeningResult{},
		&domain.ResultRecord{},
		&domain.Credential{},
		&domain.Idempotency{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// seedUser inserts a user row and returns its id.
func seedUser(t *testing.T, db *gorm.DB, id, email string) string {
	t.Helper()
	if _, err := repo.CreateUser(context.Background(), db, &domain.User{
		ID:    id,
		Email: email,
		Name:  "Test Guardian",
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}
