package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

const (
	senderWalletIDValue   = "WALLET-SENDER-0001"
	receiverWalletIDValue = "WALLET-RECEIVER-01"
	testEmailValue        = "a@b.com"
	testPasswordValue     = "hunter-2-secret"
	testRecoveryKeyValue  = "recovery-key-0001"
	testTokenSecret       = "test-signing-secret"
)

type fakeClock struct {
	mu  sync.Mutex
	now int64
}

func newFakeClock(start int64) *fakeClock {
	return &fakeClock{now: start}
}

func (clock *fakeClock) Now() int64 {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *fakeClock) Advance(seconds int64) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now += seconds
}

func (clock *fakeClock) Fn() func() int64 {
	return clock.Now
}

type stubRemote struct {
	mu sync.Mutex

	authResult AuthResult
	authErr    error
	authCalls  int

	registration RegistrationResult
	registerErr  error

	profile    Profile
	profileErr error

	updateErr error

	lastBeneficiaries     []Beneficiary
	beneficiariesErr      error
	setBeneficiariesCalls int

	issueReceipt IssueReceipt
	issueErr     error
	issueCalls   int

	verifyErr   error
	verifyCalls int

	balance      float64
	balanceErr   error
	balanceCalls int

	walletChecks  map[string]WalletCheck
	validateErr   error
	validateCalls int
	validateGate  map[string]chan struct{}

	transaction   Transaction
	submitErr     error
	submitCalls   int
	submitGate    chan struct{}
	submitStarted chan struct{}
	lastOrder     TransferOrder
}

func newStubRemote() *stubRemote {
	return &stubRemote{
		walletChecks: make(map[string]WalletCheck),
		validateGate: make(map[string]chan struct{}),
	}
}

func (remote *stubRemote) Authenticate(_ context.Context, email string, password string) (AuthResult, error) {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	remote.authCalls++
	if remote.authErr != nil {
		return AuthResult{}, remote.authErr
	}
	return remote.authResult, nil
}

func (remote *stubRemote) CreateAccount(_ context.Context, account NewAccount) (RegistrationResult, error) {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if remote.registerErr != nil {
		return RegistrationResult{}, remote.registerErr
	}
	return remote.registration, nil
}

func (remote *stubRemote) FetchProfile(_ context.Context, token string) (Profile, error) {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if remote.profileErr != nil {
		return Profile{}, remote.profileErr
	}
	return remote.profile, nil
}

func (remote *stubRemote) UpdateProfile(_ context.Context, token string, update ProfileUpdate) error {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if remote.updateErr != nil {
		return remote.updateErr
	}
	if update.FullName != "" {
		remote.profile.FullName = update.FullName
	}
	if update.CNIC != "" {
		remote.profile.CNIC = update.CNIC
	}
	return nil
}

func (remote *stubRemote) SetBeneficiaries(_ context.Context, token string, list []Beneficiary) error {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	remote.setBeneficiariesCalls++
	if remote.beneficiariesErr != nil {
		return remote.beneficiariesErr
	}
	remote.lastBeneficiaries = append([]Beneficiary(nil), list...)
	return nil
}

func (remote *stubRemote) IssueCode(_ context.Context, email string) (IssueReceipt, error) {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	remote.issueCalls++
	if remote.issueErr != nil {
		return IssueReceipt{}, remote.issueErr
	}
	return remote.issueReceipt, nil
}

func (remote *stubRemote) VerifyCode(_ context.Context, email string, code string) error {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	remote.verifyCalls++
	return remote.verifyErr
}

func (remote *stubRemote) FetchBalance(_ context.Context, token string) (float64, error) {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	remote.balanceCalls++
	if remote.balanceErr != nil {
		return 0, remote.balanceErr
	}
	return remote.balance, nil
}

func (remote *stubRemote) ValidateWallet(_ context.Context, walletID string) (WalletCheck, error) {
	remote.mu.Lock()
	gate := remote.validateGate[walletID]
	remote.mu.Unlock()
	if gate != nil {
		<-gate
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	remote.validateCalls++
	if remote.validateErr != nil {
		return WalletCheck{}, remote.validateErr
	}
	check, known := remote.walletChecks[walletID]
	if !known {
		return WalletCheck{Valid: false, WalletID: walletID}, nil
	}
	return check, nil
}

func (remote *stubRemote) SubmitTransfer(_ context.Context, token string, order TransferOrder) (Transaction, error) {
	remote.mu.Lock()
	gate := remote.submitGate
	started := remote.submitStarted
	remote.mu.Unlock()
	if gate != nil {
		if started != nil {
			select {
			case started <- struct{}{}:
			default:
			}
		}
		<-gate
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	remote.submitCalls++
	remote.lastOrder = order
	if remote.submitErr != nil {
		return Transaction{}, remote.submitErr
	}
	return remote.transaction, nil
}

type stubCredentials struct {
	mu       sync.Mutex
	state    PersistedSession
	found    bool
	saveErr  error
	loadErr  error
	clearErr error
	saves    int
	clears   int
}

func (credentials *stubCredentials) Save(_ context.Context, state PersistedSession) error {
	credentials.mu.Lock()
	defer credentials.mu.Unlock()
	if credentials.saveErr != nil {
		return credentials.saveErr
	}
	credentials.state = state
	credentials.found = true
	credentials.saves++
	return nil
}

func (credentials *stubCredentials) Load(_ context.Context) (PersistedSession, bool, error) {
	credentials.mu.Lock()
	defer credentials.mu.Unlock()
	if credentials.loadErr != nil {
		return PersistedSession{}, false, credentials.loadErr
	}
	return credentials.state, credentials.found, nil
}

func (credentials *stubCredentials) Clear(_ context.Context) error {
	credentials.mu.Lock()
	defer credentials.mu.Unlock()
	if credentials.clearErr != nil {
		return credentials.clearErr
	}
	credentials.state = PersistedSession{}
	credentials.found = false
	credentials.clears++
	return nil
}

func testProfile() Profile {
	return Profile{
		WalletID: senderWalletIDValue,
		FullName: "Asad Test",
		Email:    testEmailValue,
		CNIC:     "35202-1234567-1",
	}
}

func testJWT(test *testing.T, expiresAtUnixUTC int64) string {
	test.Helper()
	claims := jwt.MapClaims{"sub": "user-1", "exp": expiresAtUnixUTC}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testTokenSecret))
	if err != nil {
		test.Fatalf("sign test token: %v", err)
	}
	return signed
}

func mustSessionStore(test *testing.T, remote RemoteAPI, credentials CredentialStore, clock *fakeClock) *SessionStore {
	test.Helper()
	store, err := NewSessionStore(remote, credentials, clock.Fn())
	if err != nil {
		test.Fatalf("new session store: %v", err)
	}
	return store
}

func mustHandshake(test *testing.T, remote RemoteAPI, clock *fakeClock) *Handshake {
	test.Helper()
	handshake, err := NewHandshake(remote, clock.Fn())
	if err != nil {
		test.Fatalf("new handshake: %v", err)
	}
	return handshake
}

func mustPipeline(test *testing.T, remote RemoteAPI, sessions *SessionStore) *TransferPipeline {
	test.Helper()
	pipeline, err := NewTransferPipeline(remote, sessions)
	if err != nil {
		test.Fatalf("new transfer pipeline: %v", err)
	}
	return pipeline
}

func mustManager(test *testing.T, remote RemoteAPI, sessions *SessionStore) *BeneficiaryManager {
	test.Helper()
	manager, err := NewBeneficiaryManager(remote, sessions)
	if err != nil {
		test.Fatalf("new beneficiary manager: %v", err)
	}
	return manager
}

func mustLogin(test *testing.T, store *SessionStore, remote *stubRemote, clock *fakeClock) Session {
	test.Helper()
	remote.mu.Lock()
	remote.authResult = AuthResult{Token: testJWT(test, clock.Now()+3600), Profile: testProfile()}
	remote.mu.Unlock()
	session, err := store.Login(context.Background(), testEmailValue, testPasswordValue)
	if err != nil {
		test.Fatalf("login: %v", err)
	}
	return session
}
