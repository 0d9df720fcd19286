package wallet

import (
	"fmt"
	"regexp"
	"strings"
)

// Transfer bounds enforced before any submission reaches the network.
const (
	MinTransferAmount float64 = 0.01
	MaxTransferAmount float64 = 1_000_000
	MaxNoteLength             = 500
)

// Verification handshake windows, measured in seconds from issuance.
const (
	VerificationTTLSeconds    int64 = 300
	ResendCooldownSeconds     int64 = 60
	verificationCodeLength          = 6
	minWalletIDLength               = 10
	maxBeneficiaryAllocation        = 100.0
	allocationEpsilon               = 1e-9
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Email is a validated, normalized email address.
type Email struct {
	value string
}

// NewEmail validates and normalizes an email address.
func NewEmail(raw string) (Email, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if !emailPattern.MatchString(trimmed) {
		return Email{}, fmt.Errorf("%w: %q", ErrInvalidEmail, raw)
	}
	return Email{value: trimmed}, nil
}

// String returns the normalized address.
func (email Email) String() string {
	return email.value
}

// WalletID identifies a funds-holding account, distinct from the login email.
type WalletID struct {
	value string
}

// NewWalletID validates and normalizes a wallet identifier.
func NewWalletID(raw string) (WalletID, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < minWalletIDLength {
		return WalletID{}, fmt.Errorf("%w: must be at least %d characters", ErrInvalidWalletID, minWalletIDLength)
	}
	return WalletID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id WalletID) String() string {
	return id.value
}

// VerificationCode is the 6-digit one-time code proving control of an email.
type VerificationCode struct {
	value string
}

// NewVerificationCode validates the 6-digit code format.
func NewVerificationCode(raw string) (VerificationCode, error) {
	trimmed := strings.TrimSpace(raw)
	if !codePattern.MatchString(trimmed) {
		return VerificationCode{}, fmt.Errorf("%w: expected %d digits", ErrInvalidCode, verificationCodeLength)
	}
	return VerificationCode{value: trimmed}, nil
}

// String returns the code digits.
func (code VerificationCode) String() string {
	return code.value
}

// Beneficiary is a named party assigned a percentage share of the account.
type Beneficiary struct {
	Name         string  `json:"name"`
	Relationship string  `json:"relationship"`
	Percentage   float64 `json:"percentage"`
}

// NewBeneficiary validates a beneficiary entry. The percentage must sit in
// (0, 100]; the running-sum cap is enforced by the BeneficiaryManager.
func NewBeneficiary(name string, relationship string, percentage float64) (Beneficiary, error) {
	trimmedName := strings.TrimSpace(name)
	trimmedRelationship := strings.TrimSpace(relationship)
	if trimmedName == "" {
		return Beneficiary{}, fmt.Errorf("%w: empty name", ErrInvalidBeneficiary)
	}
	if trimmedRelationship == "" {
		return Beneficiary{}, fmt.Errorf("%w: empty relationship", ErrInvalidBeneficiary)
	}
	if percentage <= 0 || percentage > maxBeneficiaryAllocation {
		return Beneficiary{}, fmt.Errorf("%w: must be in (0, 100]", ErrInvalidPercentage)
	}
	return Beneficiary{
		Name:         trimmedName,
		Relationship: trimmedRelationship,
		Percentage:   percentage,
	}, nil
}

// Profile is the account snapshot fetched from the remote source of truth.
type Profile struct {
	WalletID      string        `json:"walletId"`
	FullName      string        `json:"fullName"`
	Email         string        `json:"email"`
	CNIC          string        `json:"cnic"`
	Beneficiaries []Beneficiary `json:"beneficiaries"`
}

// Session pairs the opaque authentication token with the profile snapshot.
// Both are present or the session does not exist; there is no partial state.
type Session struct {
	Token   string
	Profile Profile
}

// NewSession enforces the all-or-nothing session invariant.
func NewSession(token string, profile Profile) (Session, error) {
	if strings.TrimSpace(token) == "" {
		return Session{}, fmt.Errorf("%w: empty token", ErrSessionInvalid)
	}
	if strings.TrimSpace(profile.WalletID) == "" {
		return Session{}, fmt.Errorf("%w: missing wallet id", ErrInvalidProfile)
	}
	return Session{Token: token, Profile: profile}, nil
}

// PersistedSession is the durable client-side state: token, profile snapshot,
// and the recovery key issued at registration. The three are cleared together
// on logout.
type PersistedSession struct {
	Token       string
	Profile     Profile
	RecoveryKey string
}

// VerifiedEmail marks a completed verification handshake. Registration treats
// it as a necessary precondition.
type VerifiedEmail struct {
	Email             string
	VerifiedAtUnixUTC int64
}

// VerificationChallenge tracks an issued one-time code and its windows.
type VerificationChallenge struct {
	Email                    string
	IssuedAtUnixUTC          int64
	ExpiresAtUnixUTC         int64
	ResendAvailableAtUnixUTC int64
	DevCode                  string
}

// ChallengeStatus is the per-second display view over an active challenge.
type ChallengeStatus struct {
	Email             string
	SecondsRemaining  int64
	ResendAvailableIn int64
	Expired           bool
}

// AllocationState classifies the beneficiary percentage sum.
type AllocationState string

const (
	AllocationUnder AllocationState = "under"
	AllocationExact AllocationState = "exact"
	AllocationOver  AllocationState = "over"
)

// Transaction is the remote confirmation of a submitted transfer.
type Transaction struct {
	Hash             string  `json:"hash"`
	SenderWalletID   string  `json:"senderWalletId"`
	ReceiverWalletID string  `json:"receiverWalletId"`
	Amount           float64 `json:"amount"`
	Note             string  `json:"note,omitempty"`
	Status           string  `json:"status"`
	TimestampUnixUTC int64   `json:"timestamp"`
}

// ReceiverStatus is the validity view over the most recently set receiver.
type ReceiverStatus struct {
	WalletID   string
	HolderName string
	Checked    bool
	Valid      bool
}

// AmountPreview is the derived remaining-balance view for display.
type AmountPreview struct {
	Amount           float64
	RemainingBalance float64
	BalanceKnown     bool
}

func validateTransferAmount(amount float64) error {
	if amount < MinTransferAmount {
		return fmt.Errorf("%w: minimum transfer is %.2f", ErrInvalidAmount, MinTransferAmount)
	}
	if amount > MaxTransferAmount {
		return fmt.Errorf("%w: maximum transfer is %.0f", ErrInvalidAmount, MaxTransferAmount)
	}
	return nil
}
