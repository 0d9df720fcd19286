package pgstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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

	sqlCreateCredentialTable = `
		create table if not exists credential_state (
			record_id uuid primary key default gen_random_uuid(),
			slot text not null unique,
			token text not null,
			profile jsonb not null,
			recovery_key text not null default '',
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now()
		)
	`

	sqlUpsertCredentials = `
		insert into credential_state(slot, token, profile, recovery_key)
		values ($1, $2, $3::jsonb, $4)
		on conflict (slot) do update
		set token = excluded.token,
		    profile = excluded.profile,
		    recovery_key = excluded.recovery_key,
		    updated_at = now()
	`

	sqlSelectCredentials = `
		select token, profile::text, recovery_key
		from credential_state
		where slot = $1
	`

	sqlDeleteCredentials = `
		delete from credential_state where slot = $1
	`
)

// Store implements wallet.CredentialStore using a pgx connection pool, for
// hosts that keep the device state in a shared Postgres instance.
type Store struct {
	pool *pgxpool.Pool
	slot string
}

// New returns a Store backed by a pgx pool using the default slot.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, slot: defaultSlot}
}

// NewWithSlot returns a Store bound to a named slot.
func NewWithSlot(pool *pgxpool.Pool, slot string) *Store {
	if slot == "" {
		slot = defaultSlot
	}
	return &Store{pool: pool, slot: slot}
}

// Migrate creates the credential table.
func (store *Store) Migrate(ctx context.Context) error {
	if _, err := store.pool.Exec(ctx, sqlCreateCredentialTable); err != nil {
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
	if _, err := store.pool.Exec(ctx, sqlUpsertCredentials, store.slot, state.Token, string(profile), state.RecoveryKey); err != nil {
		return wrapStoreError(errorCodeSave, err)
	}
	return nil
}

// Load reads the persisted session for this slot.
func (store *Store) Load(ctx context.Context) (wallet.PersistedSession, bool, error) {
	var (
		token       string
		profileJSON string
		recoveryKey string
	)
	err := store.pool.QueryRow(ctx, sqlSelectCredentials, store.slot).Scan(&token, &profileJSON, &recoveryKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return wallet.PersistedSession{}, false, nil
	}
	if err != nil {
		return wallet.PersistedSession{}, false, wrapStoreError(errorCodeLoad, err)
	}
	var profile wallet.Profile
	if err := json.Unmarshal([]byte(profileJSON), &profile); err != nil {
		return wallet.PersistedSession{}, false, wrapStoreError(errorCodeDecode, err)
	}
	return wallet.PersistedSession{
		Token:       token,
		Profile:     profile,
		RecoveryKey: recoveryKey,
	}, true, nil
}

// Clear removes the persisted session for this slot.
func (store *Store) Clear(ctx context.Context) error {
	if _, err := store.pool.Exec(ctx, sqlDeleteCredentials, store.slot); err != nil {
		return wrapStoreError(errorCodeClear, err)
	}
	return nil
}

func wrapStoreError(code string, err error) error {
	return wallet.WrapError(errorOperationStore, errorSubjectCredentials, code, err)
}
