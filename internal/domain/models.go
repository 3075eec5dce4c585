// Package domain defines the persistence models for guardians (users), child
// profiles (patients), screenings, and screening results. These types are
// mapped with GORM and are identical across the hosted Postgres adapter and
// the embedded local-fallback store; only the database substrate differs.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Screening status values. A screening is created pending and transitions to
// completed exactly once, when a result is attached.
const (
	ScreeningStatusPending   = "pending"
	ScreeningStatusCompleted = "completed"
)

// Risk levels attached to screening results.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// User represents the registered account holder (parent/guardian) who owns
// zero or more patients. Users are created at registration, mutated by
// profile edits, and never hard-deleted by any visible operation.
//
// The ID is opaque: a UUID in hosted mode, "user-<unix-ms>" in local mode.
type User struct {
	ID               string    `json:"id"                gorm:"type:varchar(64);primaryKey"`
	Email            string    `json:"email"             gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	Name             string    `json:"name"              gorm:"type:varchar(255);not null"`
	Phone            string    `json:"phone"             gorm:"type:varchar(32)"`
	Address          string    `json:"address"           gorm:"type:varchar(512)"`
	EmergencyContact string    `json:"emergency_contact" gorm:"type:varchar(255)"`
	EmergencyPhone   string    `json:"emergency_phone"   gorm:"type:varchar(32)"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Patient is a child profile under screening, owned by a guardian.
//
// AgeMonths is derived from DateOfBirth once at creation and deliberately
// never recomputed afterwards; no invariant ties the two fields together
// after insert.
type Patient struct {
	ID          string    `json:"id"            gorm:"type:varchar(64);primaryKey"`
	UserID      string    `json:"user_id"       gorm:"type:varchar(64);not null;index:idx_user_patients"`
	Name        string    `json:"name"          gorm:"type:varchar(255);not null"`
	DateOfBirth string    `json:"date_of_birth" gorm:"type:varchar(10)"` // YYYY-MM-DD
	AgeMonths   int       `json:"age_months"    gorm:"not null"`
	Gender      string    `json:"gender"        gorm:"type:varchar(16)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// User is the owning guardian.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Patient.
func (Patient) TableName() string { return "patients" }

// Screening is one administered assessment session (the formal record).
type Screening struct {
	ID            string    `json:"id"             gorm:"type:varchar(64);primaryKey"`
	PatientID     string    `json:"patient_id"     gorm:"type:varchar(64);not null;index:idx_patient_screenings"`
	ScreeningType string    `json:"screening_type" gorm:"type:varchar(64);not null"`
	Status        string    `json:"status"         gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','completed')"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Patient is the screened child. Screenings are cascade-deleted when
	// their patient is removed.
	Patient Patient `json:"-" gorm:"foreignKey:PatientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Screening.
func (Screening) TableName() string { return "screenings" }

// ScreeningResult is the formal outcome attached one-to-one to a Screening.
// It is created once per screening and immutable thereafter except for
// deletion. Social and non-social attention percentages sum to 100 when both
// come from the same run.
type ScreeningResult struct {
	ID                           string                      `json:"id"                              gorm:"type:varchar(64);primaryKey"`
	ScreeningID                  string                      `json:"screening_id"                    gorm:"type:varchar(64);not null;uniqueIndex:ux_result_screening"`
	Score                        int                         `json:"score"                           gorm:"not null"` // 0..100
	RiskLevel                    string                      `json:"risk_level"                      gorm:"type:varchar(16);not null;check:risk_level IN ('low','medium','high')"`
	DurationSeconds              int                         `json:"duration_seconds"`
	SocialAttentionPercentage    int                         `json:"social_attention_percentage"`
	NonSocialAttentionPercentage int                         `json:"non_social_attention_percentage"`
	ImprovementPercentage        float64                     `json:"improvement_percentage"`
	Recommendations              datatypes.JSONSlice[string] `json:"recommendations"`
	Strengths                    datatypes.JSONSlice[string] `json:"strengths"`
	AreasForAttention            datatypes.JSONSlice[string] `json:"areas_for_attention"`
	CompletedAt                  time.Time                   `json:"completed_at"`

	// Screening is the parent session record.
	Screening Screening `json:"-" gorm:"foreignKey:ScreeningID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ScreeningResult.
func (ScreeningResult) TableName() string { return "screening_results" }
