// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the flat
// ResultRecord cache, the list actually rendered by history, stats, and
// dashboard views.
//
// Child-id matching is deliberately tolerant: historical records carry both
// string and numeric forms of the same id, so deletes and filters compare
// through domain.ChildIDsEqual rather than raw SQL equality.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/earlyvue/go-screening-backend/internal/domain"
)

// AppendResult inserts one result record. The id is unix-milliseconds based;
// collisions (two appends in the same millisecond) are nudged forward.
func AppendResult(ctx context.Context, db *gorm.DB, r *domain.ResultRecord) (*domain.ResultRecord, error) {
	if r.ID == 0 {
		r.ID = time.Now().UnixMilli()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	err := db.WithContext(ctx).Create(r).Error
	for attempts := 0; err != nil && isUniqueViolation(err) && attempts < 3; attempts++ {
		r.ID++
		err = db.WithContext(ctx).Create(r).Error
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListResultsByUser returns the user's result records, oldest first (append
// order). The owner filter is always applied; records without a matching
// user_id are invisible to everyone until repaired.
func ListResultsByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.ResultRecord, error) {
	var out []domain.ResultRecord
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// GetResult returns one record by id, scoped to the owner. Used by the
// idempotent-replay path of the screening run endpoint.
func GetResult(ctx context.Context, db *gorm.DB, userID string, id int64) (*domain.ResultRecord, error) {
	var r domain.ResultRecord
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteResult removes a single record by id, scoped to the owner.
// Returns ErrNotFound when no row matched.
func DeleteResult(ctx context.Context, db *gorm.DB, userID string, id int64) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.ResultRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteResultsByChild removes every record of userID whose child id matches
// childID in either string or numeric form, and reports how many went.
// Matching happens in Go to honor the mixed representations.
func DeleteResultsByChild(ctx context.Context, db *gorm.DB, userID, childID string) (int64, error) {
	records, err := ListResultsByUser(ctx, db, userID)
	if err != nil {
		return 0, err
	}
	var ids []int64
	for _, r := range records {
		if r.MatchesChild(childID) {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&domain.ResultRecord{})
	return res.RowsAffected, res.Error
}

// RepairOrphanedResults backfills the owner on records written before the
// user id was known (e.g. during a race at registration): any record with an
// empty user_id whose child belongs to userID is claimed. Returns the number
// of repaired rows.
func RepairOrphanedResults(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	patients, err := ListPatientsByUser(ctx, db, userID)
	if err != nil {
		return 0, err
	}
	if len(patients) == 0 {
		return 0, nil
	}

	var orphans []domain.ResultRecord
	if err := db.WithContext(ctx).Where("user_id = ?", "").Find(&orphans).Error; err != nil {
		return 0, err
	}

	var ids []int64
	for _, r := range orphans {
		for _, p := range patients {
			if r.MatchesChild(p.ID) {
				ids = append(ids, r.ID)
				break
			}
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Model(&domain.ResultRecord{}).
		Where("id IN ?", ids).
		Update("user_id", userID)
	return res.RowsAffected, res.Error
}
