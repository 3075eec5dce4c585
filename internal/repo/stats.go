// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/earlyvue/go-screening-backend/internal/domain"
)

// ResultsStats returns aggregate metadata for a user's result records: the
// total number of rows and the maximum record id (ids are unix-ms based and
// monotone per user, so they double as a freshness marker).
//
// Return values:
//   - count: total result records for userID
//   - maxID: greatest record id, 0 if no rows
//   - err:   database error, if any
func ResultsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxID int64, err error) {
	q := db.WithContext(ctx).Model(&domain.ResultRecord{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, 0, err
	}
	if count == 0 {
		return 0, 0, nil
	}

	var row struct {
		ID int64
	}
	if err = q.Select("id").Order("id DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	return count, row.ID, nil
}

// PatientsStats returns aggregate metadata for a guardian's child profiles:
// the total number of rows and the maximum UpdatedAt among them. Used for
// conditional responses on the patient listing.
func PatientsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Patient{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
