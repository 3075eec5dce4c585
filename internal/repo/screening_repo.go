// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the formal
// Screening and ScreeningResult models.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/earlyvue/go-screening-backend/internal/domain"
)

// CreateScreening inserts a new Screening row in the pending state.
func CreateScreening(ctx context.Context, db *gorm.DB, s *domain.Screening) (*domain.Screening, error) {
	now := time.Now().UTC()
	if s.Status == "" {
		s.Status = domain.ScreeningStatusPending
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetScreening fetches a screening by id, or ErrNotFound.
func GetScreening(ctx context.Context, db *gorm.DB, id string) (*domain.Screening, error) {
	var s domain.Screening
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListScreeningsByPatient returns all screenings for patientID, most recent
// first.
func ListScreeningsByPatient(ctx context.Context, db *gorm.DB, patientID string) ([]domain.Screening, error) {
	var out []domain.Screening
	err := db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// ScreeningWithPatient joins a screening with its child profile for the
// composite "all screenings for this guardian" read.
type ScreeningWithPatient struct {
	domain.Screening
	Patient domain.Patient `json:"patient"`
}

// ListScreeningsByUser returns every screening whose patient belongs to
// userID, most recent first, each joined with the owning patient.
func ListScreeningsByUser(ctx context.Context, db *gorm.DB, userID string) ([]ScreeningWithPatient, error) {
	var screenings []domain.Screening
	err := db.WithContext(ctx).
		Select("screenings.*").
		Joins("JOIN patients ON patients.id = screenings.patient_id").
		Where("patients.user_id = ?", userID).
		Order("screenings.created_at desc").
		Find(&screenings).Error
	if err != nil {
		return nil, err
	}
	if len(screenings) == 0 {
		return []ScreeningWithPatient{}, nil
	}

	patients, err := ListPatientsByUser(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Patient, len(patients))
	for _, p := range patients {
		byID[p.ID] = p
	}

	out := make([]ScreeningWithPatient, 0, len(screenings))
	for _, s := range screenings {
		out = append(out, ScreeningWithPatient{Screening: s, Patient: byID[s.PatientID]})
	}
	return out, nil
}

// CompleteScreening transitions a screening from pending to completed. The
// transition happens exactly once: an already-completed screening is left
// untouched and reported via ErrNotFound.
func CompleteScreening(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Screening{}).
		Where("id = ? AND status = ?", id, domain.ScreeningStatusPending).
		Updates(map[string]any{
			"status":     domain.ScreeningStatusCompleted,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateScreeningResult attaches the formal result to its screening and
// marks the screening completed, atomically.
func CreateScreeningResult(ctx context.Context, db *gorm.DB, r *domain.ScreeningResult) (*domain.ScreeningResult, error) {
	if r.CompletedAt.IsZero() {
		r.CompletedAt = time.Now().UTC()
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		return CompleteScreening(ctx, tx, r.ScreeningID)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetScreeningResult fetches the one-to-one result for screeningID, or
// ErrNotFound.
func GetScreeningResult(ctx context.Context, db *gorm.DB, screeningID string) (*domain.ScreeningResult, error) {
	var r domain.ScreeningResult
	err := db.WithContext(ctx).
		Where("screening_id = ?", screeningID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}
