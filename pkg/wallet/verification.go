package wallet

import (
	"context"
	"fmt"
	"sync"
)

const (
	operationIssueCode  = "issue_code"
	operationResendCode = "resend_code"
	operationVerifyCode = "verify_code"
)

// Handshake drives the one-time-code verification of an email address before
// account creation. A challenge is valid for verification while now <
// ExpiresAt; resend is permitted once now >= ResendAvailableAt, including
// after expiry. Incorrect attempts within the window are not counted or
// limited locally.
type Handshake struct {
	mu    sync.Mutex
	api   RemoteAPI
	nowFn func() int64
	observer

	challenge *VerificationChallenge
}

// NewHandshake wires a Handshake.
func NewHandshake(api RemoteAPI, now func() int64, options ...Option) (*Handshake, error) {
	if api == nil {
		return nil, fmt.Errorf("%w: remote api dependency is nil", ErrInvalidClientConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidClientConfig)
	}
	handshake := &Handshake{api: api, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(&handshake.observer)
		}
	}
	return handshake, nil
}

// Issue requests a fresh code for the address and starts the 300-second
// expiry countdown and 60-second resend cooldown, both measured from
// issuance.
func (handshake *Handshake) Issue(ctx context.Context, email string) (VerificationChallenge, error) {
	address, err := NewEmail(email)
	if err != nil {
		return VerificationChallenge{}, err
	}
	return handshake.issue(ctx, address, operationIssueCode)
}

// Resend re-issues the code for the active challenge, resetting both timers.
// It fails with ErrResendThrottled before the cooldown elapses and leaves
// the running expiry countdown untouched in that case.
func (handshake *Handshake) Resend(ctx context.Context, email string) (VerificationChallenge, error) {
	address, err := NewEmail(email)
	if err != nil {
		return VerificationChallenge{}, err
	}

	handshake.mu.Lock()
	challenge := handshake.challenge
	handshake.mu.Unlock()
	if challenge == nil || challenge.Email != address.String() {
		return VerificationChallenge{}, fmt.Errorf("%w: %s", ErrNoActiveChallenge, address.String())
	}
	if handshake.nowFn() < challenge.ResendAvailableAtUnixUTC {
		waitSeconds := challenge.ResendAvailableAtUnixUTC - handshake.nowFn()
		return VerificationChallenge{}, fmt.Errorf("%w: retry in %ds", ErrResendThrottled, waitSeconds)
	}
	return handshake.issue(ctx, address, operationResendCode)
}

func (handshake *Handshake) issue(ctx context.Context, address Email, operation string) (VerificationChallenge, error) {
	receipt, issueErr := handshake.api.IssueCode(ctx, address.String())
	if issueErr != nil {
		handshake.emit(ctx, OperationLog{Operation: operation, Email: address.String(), Error: issueErr})
		return VerificationChallenge{}, issueErr
	}
	issuedAt := handshake.nowFn()
	challenge := VerificationChallenge{
		Email:                    address.String(),
		IssuedAtUnixUTC:          issuedAt,
		ExpiresAtUnixUTC:         issuedAt + VerificationTTLSeconds,
		ResendAvailableAtUnixUTC: issuedAt + ResendCooldownSeconds,
		DevCode:                  receipt.DevCode,
	}
	handshake.mu.Lock()
	handshake.challenge = &challenge
	handshake.mu.Unlock()
	handshake.emit(ctx, OperationLog{Operation: operation, Email: address.String()})
	return challenge, nil
}

// Verify matches the code against the remote record. A locally expired
// challenge fails with ErrCodeExpired before any network call, even if the
// remote has not independently expired it. Success consumes the challenge
// and yields the verified marker registration requires.
func (handshake *Handshake) Verify(ctx context.Context, email string, code string) (VerifiedEmail, error) {
	address, err := NewEmail(email)
	if err != nil {
		return VerifiedEmail{}, err
	}
	digits, err := NewVerificationCode(code)
	if err != nil {
		return VerifiedEmail{}, err
	}

	handshake.mu.Lock()
	challenge := handshake.challenge
	handshake.mu.Unlock()
	if challenge == nil || challenge.Email != address.String() {
		return VerifiedEmail{}, fmt.Errorf("%w: %s", ErrNoActiveChallenge, address.String())
	}
	now := handshake.nowFn()
	if now >= challenge.ExpiresAtUnixUTC {
		return VerifiedEmail{}, fmt.Errorf("%w: request a new code", ErrCodeExpired)
	}

	if verifyErr := handshake.api.VerifyCode(ctx, address.String(), digits.String()); verifyErr != nil {
		handshake.emit(ctx, OperationLog{Operation: operationVerifyCode, Email: address.String(), Error: verifyErr})
		return VerifiedEmail{}, verifyErr
	}

	handshake.mu.Lock()
	if handshake.challenge == challenge {
		handshake.challenge = nil
	}
	handshake.mu.Unlock()
	handshake.emit(ctx, OperationLog{Operation: operationVerifyCode, Email: address.String()})
	return VerifiedEmail{Email: address.String(), VerifiedAtUnixUTC: now}, nil
}

// Status returns the display view over the active challenge. The countdown
// is a derived value; presentation recomputes it once per second.
func (handshake *Handshake) Status() (ChallengeStatus, bool) {
	handshake.mu.Lock()
	challenge := handshake.challenge
	handshake.mu.Unlock()
	if challenge == nil {
		return ChallengeStatus{}, false
	}
	now := handshake.nowFn()
	status := ChallengeStatus{
		Email:             challenge.Email,
		SecondsRemaining:  maxInt64(0, challenge.ExpiresAtUnixUTC-now),
		ResendAvailableIn: maxInt64(0, challenge.ResendAvailableAtUnixUTC-now),
	}
	status.Expired = status.SecondsRemaining == 0
	return status, true
}

func maxInt64(a int64, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
