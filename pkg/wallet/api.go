package wallet

import "context"

// AuthResult is the remote response to a successful login.
type AuthResult struct {
	Token   string
	Profile Profile
}

// NewAccount carries the registration input. The email must have completed
// the verification handshake before CreateAccount is invoked.
type NewAccount struct {
	Email    string
	Password string
	FullName string
	CNIC     string
}

// RegistrationResult is the remote response to a successful registration.
// The recovery key is issued exactly once and never returned again.
type RegistrationResult struct {
	Token       string
	Profile     Profile
	RecoveryKey string
}

// WalletCheck is the remote existence check for a candidate receiver.
type WalletCheck struct {
	Valid      bool
	WalletID   string
	HolderName string
}

// IssueReceipt acknowledges a one-time code issuance. DevCode is populated
// only when the remote runs without an outbound mail transport.
type IssueReceipt struct {
	DevCode string
}

// ProfileUpdate is a partial profile edit; empty fields are left unchanged.
type ProfileUpdate struct {
	FullName string
	CNIC     string
}

// TransferOrder is the submission payload for a funds transfer. The recovery
// key authorizes signing on the remote side.
type TransferOrder struct {
	ReceiverWalletID string
	Amount           float64
	Note             string
	RecoveryKey      string
}

// RemoteAPI is the contract with the backing service. Implementations map
// transport failures onto the package error taxonomy: rejected credentials
// surface as ErrInvalidCredentials, rejected tokens as ErrSessionInvalid,
// verification failures as ErrInvalidCode/ErrCodeExpired, and anything else
// as ErrRemote. Server-reported reasons are preserved verbatim in the
// wrapped message.
type RemoteAPI interface {
	Authenticate(ctx context.Context, email string, password string) (AuthResult, error)
	CreateAccount(ctx context.Context, account NewAccount) (RegistrationResult, error)
	FetchProfile(ctx context.Context, token string) (Profile, error)
	UpdateProfile(ctx context.Context, token string, update ProfileUpdate) error
	SetBeneficiaries(ctx context.Context, token string, list []Beneficiary) error
	IssueCode(ctx context.Context, email string) (IssueReceipt, error)
	VerifyCode(ctx context.Context, email string, code string) error
	FetchBalance(ctx context.Context, token string) (float64, error)
	ValidateWallet(ctx context.Context, walletID string) (WalletCheck, error)
	SubmitTransfer(ctx context.Context, token string, order TransferOrder) (Transaction, error)
}

// CredentialStore is the durable key-value contract for the persisted
// session. It is written by the SessionStore alone.
type CredentialStore interface {
	Save(ctx context.Context, state PersistedSession) error
	Load(ctx context.Context) (PersistedSession, bool, error)
	Clear(ctx context.Context) error
}
