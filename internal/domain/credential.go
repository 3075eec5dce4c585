// Local-mode credential store. When no hosted backend is configured there is
// no external auth provider, so registered accounts live in this table (the
// "registered users" list). Passwords are stored as bcrypt hashes, never as
// plaintext.
package domain

import "time"

// Credential is one local-mode account entry. Email is unique within the
// local store; UserID points at the matching User row.
type Credential struct {
	ID           string `gorm:"type:varchar(64);primaryKey"`
	UserID       string `gorm:"type:varchar(64);not null;index"`
	Email        string `gorm:"type:varchar(255);not null;uniqueIndex:ux_credentials_email"`
	Name         string `gorm:"type:varchar(255);not null"`
	PasswordHash string `gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName implements the GORM tabler interface.
func (Credential) TableName() string { return "credentials" }
