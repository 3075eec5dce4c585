// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping for both
// adapters: the embedded SQLite store used in local/demo mode (pure Go
// driver) and the hosted Postgres data plane, plus schema migrations shared
// by the two.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/earlyvue/go-screening-backend/internal/config"
	"github.com/earlyvue/go-screening-backend/internal/domain"
)

// Open selects the adapter once per process lifetime: hosted Postgres when
// the Mode Selector says the backend is configured, the embedded SQLite
// fallback otherwise. There is no mixed mode and no migration between modes
// at runtime.
func Open(cfg config.Config) (*gorm.DB, error) {
	if cfg.HostedMode() {
		return OpenPostgres(cfg.Hosted.DSN)
	}
	return OpenSQLite(cfg.DBPath)
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := instrument(db); err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// OpenPostgres connects to the hosted Postgres store.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := instrument(db); err != nil {
		return nil, err
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// instrument attaches GORM query spans to whatever trace the request is
// already carrying. Query variables stay out of span attributes so guardian
// PII never reaches the collector; metrics remain Prometheus's job.
func instrument(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(
		tracing.WithoutMetrics(),
		tracing.WithoutQueryVariables(),
	))
}

// AutoMigrate creates or updates the four logical tables plus the flat
// result cache and the idempotency ledger.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Patient{},
		&domain.Screening{},
		&domain.ScreeningResult{},
		&domain.ResultRecord{},
		&domain.Credential{},
		&domain.Idempotency{},
	)
}
