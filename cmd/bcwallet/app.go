package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BarakahPay/bcwallet/internal/apiclient"
	"github.com/BarakahPay/bcwallet/internal/oplog"
	"github.com/BarakahPay/bcwallet/internal/store/gormstore"
	"github.com/BarakahPay/bcwallet/internal/store/pgstore"
	"github.com/BarakahPay/bcwallet/pkg/wallet"
)

// app bundles the wired components behind a single command invocation. Each
// invocation opens the credential database, builds the remote client, and
// tears both down when the command returns.
type app struct {
	cfg           *runtimeConfig
	logger        *zap.Logger
	client        *apiclient.Client
	credentials   wallet.CredentialStore
	sessions      *wallet.SessionStore
	handshake     *wallet.Handshake
	pipeline      *wallet.TransferPipeline
	beneficiaries *wallet.BeneficiaryManager
	closeStore    func() error
}

func newApp(ctx context.Context, cfg *runtimeConfig) (*app, error) {
	logger := zap.NewNop()
	if cfg.Verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("logger init: %w", err)
		}
	}

	credentials, closeStore, err := openCredentialStore(ctx, cfg.DatabaseURL, cfg.Slot)
	if err != nil {
		return nil, fmt.Errorf("credential store open: %w", err)
	}

	client, err := apiclient.New(apiclient.Config{BaseURL: cfg.APIURL, Timeout: cfg.Timeout})
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	clock := func() int64 { return time.Now().UTC().Unix() }
	logging := wallet.WithOperationLogger(oplog.New(logger))

	sessions, err := wallet.NewSessionStore(client, credentials, clock, logging)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	handshake, err := wallet.NewHandshake(client, clock, logging)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	pipeline, err := wallet.NewTransferPipeline(client, sessions, logging)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	beneficiaries, err := wallet.NewBeneficiaryManager(client, sessions, logging)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	return &app{
		cfg:           cfg,
		logger:        logger,
		client:        client,
		credentials:   credentials,
		sessions:      sessions,
		handshake:     handshake,
		pipeline:      pipeline,
		beneficiaries: beneficiaries,
		closeStore:    closeStore,
	}, nil
}

func (application *app) close() error {
	_ = application.logger.Sync()
	return application.closeStore()
}

// requireSession restores the persisted session and fails if none survives
// the restore round trip.
func (application *app) requireSession(ctx context.Context) (wallet.Session, error) {
	restored, err := application.sessions.Restore(ctx)
	if err != nil {
		return wallet.Session{}, err
	}
	if !restored {
		return wallet.Session{}, fmt.Errorf("not logged in; run \"bcwallet login\" first")
	}
	application.beneficiaries.Reload()
	session, _ := application.sessions.Current()
	return session, nil
}

// withApp wraps a command body with app construction and teardown.
func withApp(cfg *runtimeConfig, run func(cmd *cobra.Command, args []string, application *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		application, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = application.close() }()
		return run(cmd, args, application)
	}
}

// openCredentialStore selects a backend by URL scheme: postgres:// and
// postgresql:// open a GORM postgres store, pgx:// opens the raw pgx pool
// store, everything else is treated as sqlite.
func openCredentialStore(ctx context.Context, dsn string, slot string) (wallet.CredentialStore, func() error, error) {
	driver, location, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, err
	}
	switch driver {
	case "pgx":
		pool, err := pgxpool.New(ctx, location)
		if err != nil {
			return nil, nil, err
		}
		store := pgstore.NewWithSlot(pool, slot)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, func() error { pool.Close(); return nil }, nil
	case "postgres":
		return openGormStore(ctx, postgres.Open(location), slot)
	case "sqlite":
		return openGormStore(ctx, sqlite.Open(location), slot)
	default:
		return nil, nil, fmt.Errorf("unsupported database scheme %q", driver)
	}
}

func openGormStore(ctx context.Context, dialector gorm.Dialector, slot string) (wallet.CredentialStore, func() error, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, nil, err
	}
	store := gormstore.NewWithSlot(db, slot)
	if err := store.Migrate(ctx); err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return store, sqlDB.Close, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", dsn, nil
	}
	if rest, found := strings.CutPrefix(dsn, "pgx://"); found {
		return "pgx", "postgres://" + rest, nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "bcwallet.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o700); err != nil {
		return "", err
	}
	return abs, nil
}
