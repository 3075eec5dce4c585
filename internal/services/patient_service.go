// Package services – PatientService
//
// This file implements the PatientService, which manages child profiles on
// behalf of their guardian. It validates and normalizes inputs, derives the
// age-in-months snapshot exactly once at creation, enforces ownership rules,
// and coordinates the cascade that removes a deleted child's cached result
// records (matching historical string and numeric child ids alike).
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// user and patient identifiers.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/earlyvue/go-screening-backend/internal/domain"
	"github.com/earlyvue/go-screening-backend/internal/repo"
)

// dobRE accepts calendar dates in YYYY-MM-DD form.
var dobRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// PatientInput carries the guardian-supplied fields for creating or updating
// a child profile.
type PatientInput struct {
	Name        string
	DateOfBirth string // YYYY-MM-DD
	Gender      string
}

// PatientService provides child-profile operations: creation with the frozen
// age snapshot, listing, updates, and the cascading delete.
type PatientService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// NewID mints profile identifiers. Defaults to unix-millisecond strings,
	// matching the historical id shape the tolerant child-id comparison was
	// built for.
	NewID func() string

	// Now is the clock used for age derivation. Defaults to time.Now.
	Now func() time.Time
}

// NewPatientService constructs a PatientService with default id and clock
// functions.
func NewPatientService(db *gorm.DB) *PatientService {
	return &PatientService{
		DB:    db,
		NewID: func() string { return strconv.FormatInt(time.Now().UnixMilli(), 10) },
		Now:   time.Now,
	}
}

// AgeMonths derives a child's age in whole months from a YYYY-MM-DD birth
// date as of now: twelve months per year plus the month delta, minus one
// when the day of month has not been reached yet, floored at zero.
func AgeMonths(dateOfBirth string, now time.Time) (int, error) {
	dob, err := time.Parse("2006-01-02", dateOfBirth)
	if err != nil {
		return 0, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", ErrInvalidInput)
	}
	months := (now.Year()-dob.Year())*12 + int(now.Month()) - int(dob.Month())
	if now.Day() < dob.Day() {
		months--
	}
	if months < 0 {
		months = 0
	}
	return months, nil
}

// Create validates the input, derives the age snapshot, and inserts the
// profile owned by userID. The snapshot is never recomputed afterwards.
func (s *PatientService) Create(ctx context.Context, userID string, in PatientInput) (*domain.Patient, error) {
	tr := otel.Tracer("services/PatientService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !dobRE.MatchString(strings.TrimSpace(in.DateOfBirth)) {
		return nil, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", ErrInvalidInput)
	}
	age, err := AgeMonths(strings.TrimSpace(in.DateOfBirth), s.now())
	if err != nil {
		return nil, err
	}

	p := &domain.Patient{
		ID:          s.newID(),
		UserID:      userID,
		Name:        name,
		DateOfBirth: strings.TrimSpace(in.DateOfBirth),
		AgeMonths:   age,
		Gender:      strings.TrimSpace(in.Gender),
	}
	return repo.CreatePatient(ctx, s.DB, p)
}

// List returns the user's child profiles, newest first.
func (s *PatientService) List(ctx context.Context, userID string) ([]domain.Patient, error) {
	tr := otel.Tracer("services/PatientService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return repo.ListPatientsByUser(ctx, s.DB, userID)
}

// Get fetches one profile, enforcing ownership.
func (s *PatientService) Get(ctx context.Context, userID, patientID string) (*domain.Patient, error) {
	tr := otel.Tracer("services/PatientService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("patient.id", patientID),
		),
	)
	defer span.End()

	p, err := repo.GetPatientOwned(ctx, s.DB, patientID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

// Update applies the changed fields of in to the profile. The age snapshot
// is left untouched even when the birth date changes; it reflects the age at
// profile creation time.
func (s *PatientService) Update(ctx context.Context, userID, patientID string, in PatientInput) (*domain.Patient, error) {
	tr := otel.Tracer("services/PatientService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("patient.id", patientID),
		),
	)
	defer span.End()

	updates := map[string]any{}
	if v := strings.TrimSpace(in.Name); v != "" {
		updates["name"] = v
	}
	if v := strings.TrimSpace(in.DateOfBirth); v != "" {
		if !dobRE.MatchString(v) {
			return nil, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", ErrInvalidInput)
		}
		updates["date_of_birth"] = v
	}
	if v := strings.TrimSpace(in.Gender); v != "" {
		updates["gender"] = v
	}
	if len(updates) == 0 {
		return s.Get(ctx, userID, patientID)
	}

	p, err := repo.UpdatePatient(ctx, s.DB, patientID, userID, updates)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

// Delete removes the profile and every cached result record that references
// the child, whether the stored child id is the same string or the same
// number. Returns the count of removed result records.
func (s *PatientService) Delete(ctx context.Context, userID, patientID string) (removedResults int64, err error) {
	tr := otel.Tracer("services/PatientService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("patient.id", patientID),
		),
	)
	defer span.End()

	if _, err := repo.GetPatientOwned(ctx, s.DB, patientID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, ErrPatientNotFound
		}
		return 0, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := repo.DeleteResultsByChild(ctx, tx, userID, patientID)
		if err != nil {
			return err
		}
		removedResults = n
		return repo.DeletePatient(ctx, tx, patientID, userID)
	})
	if err != nil {
		return 0, err
	}
	return removedResults, nil
}

func (s *PatientService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func (s *PatientService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
