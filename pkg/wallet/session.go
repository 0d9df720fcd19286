package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

const (
	operationLogin          = "login"
	operationRegister       = "register"
	operationLogout         = "logout"
	operationRefreshProfile = "refresh_profile"
	operationRestore        = "restore"
)

// SessionStore owns the authenticated identity and profile snapshot. All
// other components read the session through it and never mutate it directly.
//
// The lifecycle is anonymous -> authenticated -> anonymous. Any
// authentication failure outside an explicit Login/Register is terminal for
// the current session; there is no expired-but-retryable state.
type SessionStore struct {
	mu          sync.RWMutex
	api         RemoteAPI
	credentials CredentialStore
	nowFn       func() int64
	observer

	session     *Session
	recoveryKey string
}

// NewSessionStore wires a SessionStore.
func NewSessionStore(api RemoteAPI, credentials CredentialStore, now func() int64, options ...Option) (*SessionStore, error) {
	if api == nil {
		return nil, fmt.Errorf("%w: remote api dependency is nil", ErrInvalidClientConfig)
	}
	if credentials == nil {
		return nil, fmt.Errorf("%w: credential store dependency is nil", ErrInvalidClientConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidClientConfig)
	}
	store := &SessionStore{api: api, credentials: credentials, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(&store.observer)
		}
	}
	return store, nil
}

// Login submits credentials and, on success, persists the session. On
// failure the store's state is unchanged and the server-reported reason is
// surfaced unmodified.
func (store *SessionStore) Login(ctx context.Context, email string, password string) (Session, error) {
	address, err := NewEmail(email)
	if err != nil {
		return Session{}, err
	}
	if strings.TrimSpace(password) == "" {
		return Session{}, fmt.Errorf("%w: empty password", ErrInvalidCredentials)
	}

	result, authErr := store.api.Authenticate(ctx, address.String(), password)
	if authErr != nil {
		store.emit(ctx, OperationLog{Operation: operationLogin, Email: address.String(), Error: authErr})
		return Session{}, authErr
	}
	session, err := NewSession(result.Token, result.Profile)
	if err != nil {
		return Session{}, WrapError(operationLogin, "session", "malformed", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	// A recovery key persisted by an earlier registration on this device
	// survives login; login itself never issues one.
	recoveryKey := store.recoveryKey
	if previous, found, loadErr := store.credentials.Load(ctx); loadErr == nil && found && recoveryKey == "" {
		recoveryKey = previous.RecoveryKey
	}
	if saveErr := store.credentials.Save(ctx, PersistedSession{Token: session.Token, Profile: session.Profile, RecoveryKey: recoveryKey}); saveErr != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrCredentialStore, saveErr)
	}
	store.session = &session
	store.recoveryKey = recoveryKey
	store.emit(ctx, OperationLog{Operation: operationLogin, Email: address.String(), WalletID: session.Profile.WalletID})
	return session, nil
}

// Register creates an account for an email that has completed the
// verification handshake. The caller passes the verified marker; the store
// accepts it as asserted and does not re-check the handshake's own record.
// The one-time recovery key is returned for display and persisted locally
// for later transfer signing.
func (store *SessionStore) Register(ctx context.Context, account NewAccount, verified VerifiedEmail) (Session, string, error) {
	address, err := NewEmail(account.Email)
	if err != nil {
		return Session{}, "", err
	}
	if verified.Email == "" || !strings.EqualFold(verified.Email, address.String()) {
		return Session{}, "", fmt.Errorf("%w: %s", ErrEmailNotVerified, address.String())
	}
	if strings.TrimSpace(account.Password) == "" {
		return Session{}, "", fmt.Errorf("%w: empty password", ErrInvalidCredentials)
	}
	if strings.TrimSpace(account.FullName) == "" {
		return Session{}, "", fmt.Errorf("%w: full name is required", ErrInvalidProfile)
	}
	if strings.TrimSpace(account.CNIC) == "" {
		return Session{}, "", fmt.Errorf("%w: cnic is required", ErrInvalidProfile)
	}
	account.Email = address.String()

	result, registerErr := store.api.CreateAccount(ctx, account)
	if registerErr != nil {
		store.emit(ctx, OperationLog{Operation: operationRegister, Email: address.String(), Error: registerErr})
		return Session{}, "", registerErr
	}
	session, err := NewSession(result.Token, result.Profile)
	if err != nil {
		return Session{}, "", WrapError(operationRegister, "session", "malformed", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if saveErr := store.credentials.Save(ctx, PersistedSession{Token: session.Token, Profile: session.Profile, RecoveryKey: result.RecoveryKey}); saveErr != nil {
		return Session{}, "", fmt.Errorf("%w: %v", ErrCredentialStore, saveErr)
	}
	store.session = &session
	store.recoveryKey = result.RecoveryKey
	store.emit(ctx, OperationLog{Operation: operationRegister, Email: address.String(), WalletID: session.Profile.WalletID})
	return session, result.RecoveryKey, nil
}

// Logout clears the identity, profile, and persisted recovery key
// unconditionally. Calling it on an anonymous store is a no-op.
func (store *SessionStore) Logout(ctx context.Context) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.clearLocked(ctx)
}

func (store *SessionStore) clearLocked(ctx context.Context) error {
	store.session = nil
	store.recoveryKey = ""
	if err := store.credentials.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrCredentialStore, err)
	}
	store.emit(ctx, OperationLog{Operation: operationLogout})
	return nil
}

// Current returns the live session, if any.
func (store *SessionStore) Current() (Session, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	if store.session == nil {
		return Session{}, false
	}
	return *store.session, true
}

// RecoveryKey returns the persisted signing credential, if one is held.
func (store *SessionStore) RecoveryKey() (string, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	if store.recoveryKey == "" {
		return "", false
	}
	return store.recoveryKey, true
}

// Token returns the authentication token for an outgoing call. A token whose
// exp claim has already passed is treated as an authentication failure and
// invalidates the session without a round trip.
func (store *SessionStore) Token(ctx context.Context) (string, error) {
	store.mu.RLock()
	session := store.session
	store.mu.RUnlock()
	if session == nil {
		return "", ErrNoSession
	}
	if tokenExpired(session.Token, store.nowFn()) {
		_ = store.Logout(ctx)
		return "", fmt.Errorf("%w: token expired", ErrSessionInvalid)
	}
	return session.Token, nil
}

// NoteAuthFailure inspects a failure from an authenticated call. A rejected
// token is terminal: the store transitions to anonymous and the caller must
// re-authenticate rather than retry. The error is returned unchanged.
func (store *SessionStore) NoteAuthFailure(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSessionInvalid) {
		_ = store.Logout(ctx)
	}
	return err
}

// RefreshProfile re-fetches the profile using the current token. The token
// itself is unchanged; an authentication failure logs the store out.
func (store *SessionStore) RefreshProfile(ctx context.Context) (Profile, error) {
	token, err := store.Token(ctx)
	if err != nil {
		return Profile{}, err
	}
	profile, fetchErr := store.api.FetchProfile(ctx, token)
	if fetchErr != nil {
		store.emit(ctx, OperationLog{Operation: operationRefreshProfile, Error: fetchErr})
		return Profile{}, store.NoteAuthFailure(ctx, fetchErr)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.session == nil || store.session.Token != token {
		// Logged out while the fetch was in flight; discard.
		return Profile{}, ErrNoSession
	}
	session := Session{Token: token, Profile: profile}
	if saveErr := store.credentials.Save(ctx, PersistedSession{Token: token, Profile: profile, RecoveryKey: store.recoveryKey}); saveErr != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrCredentialStore, saveErr)
	}
	store.session = &session
	store.emit(ctx, OperationLog{Operation: operationRefreshProfile, WalletID: profile.WalletID})
	return profile, nil
}

// UpdateProfile submits a partial profile edit and refreshes the snapshot.
func (store *SessionStore) UpdateProfile(ctx context.Context, update ProfileUpdate) (Profile, error) {
	if strings.TrimSpace(update.FullName) == "" && strings.TrimSpace(update.CNIC) == "" {
		return Profile{}, fmt.Errorf("%w: nothing to update", ErrInvalidProfile)
	}
	token, err := store.Token(ctx)
	if err != nil {
		return Profile{}, err
	}
	if updateErr := store.api.UpdateProfile(ctx, token, update); updateErr != nil {
		return Profile{}, store.NoteAuthFailure(ctx, updateErr)
	}
	return store.RefreshProfile(ctx)
}

// Restore reconstructs a session from persisted state on process start, then
// refreshes the profile. Restoration completes before any authenticated call
// is attempted; a failed refresh transitions the store to anonymous.
func (store *SessionStore) Restore(ctx context.Context) (bool, error) {
	state, found, err := store.credentials.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCredentialStore, err)
	}
	if !found || strings.TrimSpace(state.Token) == "" {
		return false, nil
	}
	session, err := NewSession(state.Token, state.Profile)
	if err != nil {
		// Partial persisted state violates the session invariant; discard it.
		store.mu.Lock()
		clearErr := store.clearLocked(ctx)
		store.mu.Unlock()
		return false, clearErr
	}

	store.mu.Lock()
	store.session = &session
	store.recoveryKey = state.RecoveryKey
	store.mu.Unlock()

	if _, refreshErr := store.RefreshProfile(ctx); refreshErr != nil {
		store.mu.Lock()
		_ = store.clearLocked(ctx)
		store.mu.Unlock()
		store.emit(ctx, OperationLog{Operation: operationRestore, Error: refreshErr})
		return false, refreshErr
	}
	store.emit(ctx, OperationLog{Operation: operationRestore, WalletID: session.Profile.WalletID})
	return true, nil
}

func tokenExpired(raw string, nowUnixUTC int64) bool {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		// Opaque tokens are left for the remote to judge.
		return false
	}
	expiry, err := token.Claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return false
	}
	return expiry.Unix() <= nowUnixUTC
}
