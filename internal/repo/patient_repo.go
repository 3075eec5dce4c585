// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Patient
// model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/earlyvue/go-screening-backend/internal/domain"
)

// CreatePatient inserts a new Patient row. AgeMonths must already be derived
// by the caller; it is frozen at insert and never recomputed here.
func CreatePatient(ctx context.Context, db *gorm.DB, p *domain.Patient) (*domain.Patient, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// ListPatientsByUser returns all patients owned by userID, most recent
// first. An empty slice is returned when the guardian has no children.
func ListPatientsByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Patient, error) {
	var out []domain.Patient
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// GetPatient fetches a single patient by id, or ErrNotFound.
func GetPatient(ctx context.Context, db *gorm.DB, id string) (*domain.Patient, error) {
	var p domain.Patient
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPatientOwned fetches a patient by id, enforcing guardian ownership.
func GetPatientOwned(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Patient, error) {
	var p domain.Patient
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePatient applies column updates to a patient owned by userID and
// bumps updated_at. Returns ErrNotFound when no row matched.
func UpdatePatient(ctx context.Context, db *gorm.DB, id, userID string, updates map[string]any) (*domain.Patient, error) {
	updates["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Patient{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return GetPatient(ctx, db, id)
}

// DeletePatient removes a patient owned by userID. Associated screenings and
// their results go with it via FK cascade; the flat result cache is cleaned
// separately by the service layer because its child ids need tolerant
// matching. Returns ErrNotFound when no row matched.
func DeletePatient(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Patient{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
