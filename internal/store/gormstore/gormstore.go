package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BarakahPay/bcwallet/pkg/wallet"
)

const (
	defaultSlot             = "default"
	errorOperationStore     = "store"
	errorSubjectCredentials = "credentials"
	errorCodeClear          = "clear"
	errorCodeDecode         = "decode"
	errorCodeEncode         = "encode"
	errorCodeLoad           = "load"
	errorCodeMigrate        = "migrate"
	errorCodeSave           = "save"
)

// Store implements wallet.CredentialStore using GORM. One row per slot holds
// the token, profile snapshot, and recovery key; they are written and cleared
// together.
type Store struct {
	db   *gorm.DB
	slot string
}

// New returns a Store backed by gorm.DB using the default slot.
func New(db *gorm.DB) *Store {
	return &Store{db: db, slot: defaultSlot}
}

// NewWithSlot returns a Store bound to a named slot, for hosts that keep
// several identities in one database.
func NewWithSlot(db *gorm.DB, slot string) *Store {
	if slot == "" {
		slot = defaultSlot
	}
	return &Store{db: db, slot: slot}
}

// Migrate creates the credential table.
func (store *Store) Migrate(ctx context.Context) error {
	if err := store.db.WithContext(ctx).AutoMigrate(&CredentialRecord{}); err != nil {
		return wrapStoreError(errorCodeMigrate, err)
	}
	return nil
}

// Save upserts the persisted session for this slot.
func (store *Store) Save(ctx context.Context, state wallet.PersistedSession) error {
	profile, err := json.Marshal(state.Profile)
	if err != nil {
		return wrapStoreError(errorCodeEncode, err)
	}
	record := CredentialRecord{
		Slot:        store.slot,
		Token:       state.Token,
		Profile:     profile,
		RecoveryKey: state.RecoveryKey,
		UpdatedAt:   time.Now().UTC(),
	}
	err = store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "slot"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"token":        record.Token,
				"profile":      record.Profile,
				"recovery_key": record.RecoveryKey,
				"updated_at":   record.UpdatedAt,
			}),
		}).
		Create(&record).Error
	if err != nil {
		return wrapStoreError(errorCodeSave, err)
	}
	return nil
}

// Load reads the persisted session for this slot. A missing row is a clean
// not-found, not a failure.
func (store *Store) Load(ctx context.Context) (wallet.PersistedSession, bool, error) {
	var record CredentialRecord
	err := store.db.WithContext(ctx).
		Where("slot = ?", store.slot).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wallet.PersistedSession{}, false, nil
	}
	if err != nil {
		return wallet.PersistedSession{}, false, wrapStoreError(errorCodeLoad, err)
	}
	var profile wallet.Profile
	if err := json.Unmarshal(record.Profile, &profile); err != nil {
		return wallet.PersistedSession{}, false, wrapStoreError(errorCodeDecode, err)
	}
	return wallet.PersistedSession{
		Token:       record.Token,
		Profile:     profile,
		RecoveryKey: record.RecoveryKey,
	}, true, nil
}

// Clear removes the persisted session for this slot. Clearing an empty slot
// is a no-op.
func (store *Store) Clear(ctx context.Context) error {
	err := store.db.WithContext(ctx).
		Where("slot = ?", store.slot).
		Delete(&CredentialRecord{}).Error
	if err != nil {
		return wrapStoreError(errorCodeClear, err)
	}
	return nil
}

func wrapStoreError(code string, err error) error {
	return wallet.WrapError(errorOperationStore, errorSubjectCredentials, code, err)
}
