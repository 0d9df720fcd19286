package wallet

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the wallet client components.
var (
	ErrInvalidEmail        = errors.New("invalid email")
	ErrInvalidWalletID     = errors.New("invalid wallet id")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidNote         = errors.New("invalid note")
	ErrInvalidPercentage   = errors.New("invalid percentage")
	ErrInvalidBeneficiary  = errors.New("invalid beneficiary")
	ErrInvalidCode         = errors.New("invalid verification code")
	ErrCodeExpired         = errors.New("verification code expired")
	ErrResendThrottled     = errors.New("resend not yet available")
	ErrNoActiveChallenge   = errors.New("no active verification challenge")
	ErrEmailRegistered     = errors.New("email already registered")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrSessionInvalid      = errors.New("session invalid")
	ErrNoSession           = errors.New("no active session")
	ErrRecoveryKeyMissing  = errors.New("recovery key missing")
	ErrSelfTransfer        = errors.New("cannot transfer to own wallet")
	ErrReceiverNotVerified = errors.New("receiver wallet not verified")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSubmitInFlight      = errors.New("submission already in flight")
	ErrLookupSuperseded    = errors.New("wallet lookup superseded")
	ErrRemote              = errors.New("remote service failure")
	ErrInvalidClientConfig = errors.New("invalid client config")
	ErrInvalidProfile      = errors.New("invalid profile")
	ErrAllocationExceeded  = errors.New("beneficiary allocation exceeds 100 percent")
	ErrCredentialStore     = errors.New("credential store failure")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}

// IsValidationError reports whether the failure was detected locally and
// never reached the network.
func IsValidationError(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidEmail,
		ErrInvalidWalletID,
		ErrInvalidAmount,
		ErrInvalidNote,
		ErrInvalidPercentage,
		ErrInvalidBeneficiary,
		ErrInvalidProfile,
		ErrAllocationExceeded,
		ErrSelfTransfer,
		ErrReceiverNotVerified,
		ErrEmailNotVerified,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
