package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CredentialRecord is the single-row persisted session for one device slot.
type CredentialRecord struct {
	RecordID    string         `gorm:"type:uuid;primaryKey"`
	Slot        string         `gorm:"not null;uniqueIndex:uniq_credential_slot"`
	Token       string         `gorm:"not null"`
	Profile     datatypes.JSON `gorm:"not null"`
	RecoveryKey string         `gorm:""`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

func (CredentialRecord) TableName() string { return "credential_state" }

func (record *CredentialRecord) BeforeCreate(tx *gorm.DB) error {
	if record.RecordID == "" {
		record.RecordID = uuid.NewString()
	}
	return nil
}
