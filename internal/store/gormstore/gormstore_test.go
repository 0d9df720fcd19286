package gormstore

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/BarakahPay/bcwallet/pkg/wallet"
)

func newTestDB(test *testing.T) *gorm.DB {
	test.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		test.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		test.Fatalf("db handle: %v", err)
	}
	// A pooled second connection would see its own empty in-memory database.
	sqlDB.SetMaxOpenConns(1)
	return db
}

func newTestStore(test *testing.T) *Store {
	test.Helper()
	store := New(newTestDB(test))
	if err := store.Migrate(context.Background()); err != nil {
		test.Fatalf("migrate: %v", err)
	}
	return store
}

func testState() wallet.PersistedSession {
	return wallet.PersistedSession{
		Token: "token-1",
		Profile: wallet.Profile{
			WalletID: "WALLET-SENDER-0001",
			FullName: "Asad Test",
			Email:    "a@b.com",
			CNIC:     "35202-1234567-1",
			Beneficiaries: []wallet.Beneficiary{
				{Name: "Amina", Relationship: "spouse", Percentage: 60},
			},
		},
		RecoveryKey: "recovery-key-0001",
	}
}

func TestLoadEmptySlot(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)

	state, found, err := store.Load(context.Background())
	if err != nil {
		test.Fatalf("load: %v", err)
	}
	if found {
		test.Fatalf("expected empty slot, got %+v", state)
	}
}

func TestSaveLoadRoundTrip(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	saved := testState()

	if err := store.Save(context.Background(), saved); err != nil {
		test.Fatalf("save: %v", err)
	}
	loaded, found, err := store.Load(context.Background())
	if err != nil {
		test.Fatalf("load: %v", err)
	}
	if !found {
		test.Fatalf("expected persisted state")
	}
	if loaded.Token != saved.Token || loaded.RecoveryKey != saved.RecoveryKey {
		test.Fatalf("unexpected state: %+v", loaded)
	}
	if loaded.Profile.WalletID != saved.Profile.WalletID || len(loaded.Profile.Beneficiaries) != 1 {
		test.Fatalf("profile did not survive the round trip: %+v", loaded.Profile)
	}
	if loaded.Profile.Beneficiaries[0].Percentage != 60 {
		test.Fatalf("unexpected beneficiary: %+v", loaded.Profile.Beneficiaries[0])
	}
}

func TestSaveOverwritesSingleRow(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	first := testState()
	if err := store.Save(context.Background(), first); err != nil {
		test.Fatalf("save: %v", err)
	}

	second := first
	second.Token = "token-2"
	second.Profile.FullName = "Asad Renamed"
	if err := store.Save(context.Background(), second); err != nil {
		test.Fatalf("save again: %v", err)
	}

	loaded, found, err := store.Load(context.Background())
	if err != nil || !found {
		test.Fatalf("load: found=%v err=%v", found, err)
	}
	if loaded.Token != "token-2" || loaded.Profile.FullName != "Asad Renamed" {
		test.Fatalf("expected overwritten state, got %+v", loaded)
	}
	if loaded.RecoveryKey != first.RecoveryKey {
		test.Fatalf("recovery key must survive overwrite, got %q", loaded.RecoveryKey)
	}
}

func TestClearRemovesEverythingTogether(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	if err := store.Save(context.Background(), testState()); err != nil {
		test.Fatalf("save: %v", err)
	}

	if err := store.Clear(context.Background()); err != nil {
		test.Fatalf("clear: %v", err)
	}
	state, found, err := store.Load(context.Background())
	if err != nil {
		test.Fatalf("load: %v", err)
	}
	if found {
		test.Fatalf("expected cleared slot, got %+v", state)
	}

	// Clearing an already-empty slot is a no-op.
	if err := store.Clear(context.Background()); err != nil {
		test.Fatalf("clear empty: %v", err)
	}
}

func TestSlotsAreIsolated(test *testing.T) {
	test.Parallel()
	db := newTestDB(test)
	first := NewWithSlot(db, "device-a")
	second := NewWithSlot(db, "device-b")
	if err := first.Migrate(context.Background()); err != nil {
		test.Fatalf("migrate: %v", err)
	}

	if err := first.Save(context.Background(), testState()); err != nil {
		test.Fatalf("save: %v", err)
	}
	_, found, err := second.Load(context.Background())
	if err != nil {
		test.Fatalf("load: %v", err)
	}
	if found {
		test.Fatalf("slots must not share state")
	}

	if err := second.Clear(context.Background()); err != nil {
		test.Fatalf("clear other slot: %v", err)
	}
	_, found, err = first.Load(context.Background())
	if err != nil || !found {
		test.Fatalf("clearing one slot must not clear another: found=%v err=%v", found, err)
	}
}
