package wallet

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

const (
	operationSetReceiver    = "set_receiver"
	operationSubmitTransfer = "submit_transfer"
	operationRefreshBalance = "refresh_balance"
)

// TransferPipeline validates a proposed transfer and submits it once per
// user confirmation. Receiver lookups follow a last-request-wins discipline:
// each SetReceiver bumps a generation counter and a resolving lookup is
// applied only if its generation is still the latest. Submission is
// serialized; a second Submit while one is outstanding is rejected, not
// queued.
type TransferPipeline struct {
	mu       sync.Mutex
	api      RemoteAPI
	sessions *SessionStore
	observer

	receiverID     string
	receiverHolder string
	receiverValid  bool
	receiverKnown  bool
	lookupSeq      uint64

	amount float64
	note   string

	balance      float64
	balanceKnown bool

	submitting bool
}

// NewTransferPipeline wires a TransferPipeline.
func NewTransferPipeline(api RemoteAPI, sessions *SessionStore, options ...Option) (*TransferPipeline, error) {
	if api == nil {
		return nil, fmt.Errorf("%w: remote api dependency is nil", ErrInvalidClientConfig)
	}
	if sessions == nil {
		return nil, fmt.Errorf("%w: session store dependency is nil", ErrInvalidClientConfig)
	}
	pipeline := &TransferPipeline{api: api, sessions: sessions}
	for _, option := range options {
		if option != nil {
			option(&pipeline.observer)
		}
	}
	return pipeline, nil
}

// RefreshBalance re-fetches the balance from the remote source of truth.
// The pipeline never computes the post-transfer balance locally.
func (pipeline *TransferPipeline) RefreshBalance(ctx context.Context) (float64, error) {
	token, err := pipeline.sessions.Token(ctx)
	if err != nil {
		return 0, err
	}
	balance, fetchErr := pipeline.api.FetchBalance(ctx, token)
	if fetchErr != nil {
		pipeline.emit(ctx, OperationLog{Operation: operationRefreshBalance, Error: fetchErr})
		return 0, pipeline.sessions.NoteAuthFailure(ctx, fetchErr)
	}
	pipeline.mu.Lock()
	pipeline.balance = balance
	pipeline.balanceKnown = true
	pipeline.mu.Unlock()
	return balance, nil
}

// SetReceiver records the candidate receiver and resolves its existence
// against the remote API. Equality with the sender's own wallet id
// short-circuits to invalid without a remote call. A result arriving for a
// superseded value is discarded and reported as ErrLookupSuperseded.
func (pipeline *TransferPipeline) SetReceiver(ctx context.Context, walletID string) (ReceiverStatus, error) {
	trimmed := strings.TrimSpace(walletID)

	pipeline.mu.Lock()
	pipeline.receiverID = trimmed
	pipeline.receiverHolder = ""
	pipeline.receiverValid = false
	pipeline.receiverKnown = false
	pipeline.lookupSeq++
	seq := pipeline.lookupSeq

	session, authenticated := pipeline.sessions.Current()
	if authenticated && trimmed != "" && trimmed == session.Profile.WalletID {
		pipeline.receiverKnown = true
		status := pipeline.receiverStatusLocked()
		pipeline.mu.Unlock()
		pipeline.emit(ctx, OperationLog{Operation: operationSetReceiver, WalletID: trimmed, Error: ErrSelfTransfer})
		return status, ErrSelfTransfer
	}
	if len(trimmed) < minWalletIDLength {
		// Too short to be a wallet id; left unresolved, no lookup issued.
		status := pipeline.receiverStatusLocked()
		pipeline.mu.Unlock()
		return status, nil
	}
	pipeline.mu.Unlock()

	check, lookupErr := pipeline.api.ValidateWallet(ctx, trimmed)

	pipeline.mu.Lock()
	defer pipeline.mu.Unlock()
	if seq != pipeline.lookupSeq {
		return pipeline.receiverStatusLocked(), fmt.Errorf("%w: %s", ErrLookupSuperseded, trimmed)
	}
	if lookupErr != nil {
		pipeline.receiverKnown = true
		pipeline.receiverValid = false
		return pipeline.receiverStatusLocked(), lookupErr
	}
	pipeline.receiverKnown = true
	pipeline.receiverValid = check.Valid
	pipeline.receiverHolder = check.HolderName
	return pipeline.receiverStatusLocked(), nil
}

func (pipeline *TransferPipeline) receiverStatusLocked() ReceiverStatus {
	return ReceiverStatus{
		WalletID:   pipeline.receiverID,
		HolderName: pipeline.receiverHolder,
		Checked:    pipeline.receiverKnown,
		Valid:      pipeline.receiverValid,
	}
}

// Receiver returns the validity view for the most recently set receiver.
func (pipeline *TransferPipeline) Receiver() ReceiverStatus {
	pipeline.mu.Lock()
	defer pipeline.mu.Unlock()
	return pipeline.receiverStatusLocked()
}

// SetAmount records the proposed amount and returns the remaining-balance
// preview. Bounds are not validated here; Submit checks them.
func (pipeline *TransferPipeline) SetAmount(amount float64) AmountPreview {
	pipeline.mu.Lock()
	defer pipeline.mu.Unlock()
	pipeline.amount = amount
	return AmountPreview{
		Amount:           amount,
		RemainingBalance: pipeline.balance - amount,
		BalanceKnown:     pipeline.balanceKnown,
	}
}

// SetNote records the optional transfer note.
func (pipeline *TransferPipeline) SetNote(note string) {
	pipeline.mu.Lock()
	defer pipeline.mu.Unlock()
	pipeline.note = note
}

// Submit re-checks the transfer preconditions in order and submits the
// request exactly once. The first failing check determines the reported
// error and short-circuits before any network call. On confirmation the
// form resets and the balance is re-fetched.
func (pipeline *TransferPipeline) Submit(ctx context.Context) (Transaction, error) {
	pipeline.mu.Lock()
	if pipeline.submitting {
		pipeline.mu.Unlock()
		return Transaction{}, ErrSubmitInFlight
	}
	if !pipeline.receiverKnown || !pipeline.receiverValid {
		pipeline.mu.Unlock()
		return Transaction{}, fmt.Errorf("%w: %s", ErrReceiverNotVerified, pipeline.receiverID)
	}
	if err := validateTransferAmount(pipeline.amount); err != nil {
		pipeline.mu.Unlock()
		return Transaction{}, err
	}
	if !pipeline.balanceKnown || pipeline.amount > pipeline.balance {
		pipeline.mu.Unlock()
		return Transaction{}, fmt.Errorf("%w: %.2f available", ErrInsufficientBalance, pipeline.balance)
	}
	if len(pipeline.note) > MaxNoteLength {
		pipeline.mu.Unlock()
		return Transaction{}, fmt.Errorf("%w: longer than %d characters", ErrInvalidNote, MaxNoteLength)
	}
	order := TransferOrder{
		ReceiverWalletID: pipeline.receiverID,
		Amount:           pipeline.amount,
		Note:             pipeline.note,
	}
	pipeline.mu.Unlock()

	recoveryKey, held := pipeline.sessions.RecoveryKey()
	if !held {
		return Transaction{}, fmt.Errorf("%w: log in again on the registering device", ErrRecoveryKeyMissing)
	}
	order.RecoveryKey = recoveryKey
	token, err := pipeline.sessions.Token(ctx)
	if err != nil {
		return Transaction{}, err
	}

	pipeline.mu.Lock()
	if pipeline.submitting {
		pipeline.mu.Unlock()
		return Transaction{}, ErrSubmitInFlight
	}
	pipeline.submitting = true
	pipeline.mu.Unlock()

	transaction, submitErr := pipeline.api.SubmitTransfer(ctx, token, order)

	pipeline.mu.Lock()
	pipeline.submitting = false
	if submitErr != nil {
		// The form stays populated and resubmittable.
		pipeline.mu.Unlock()
		pipeline.emit(ctx, OperationLog{Operation: operationSubmitTransfer, WalletID: order.ReceiverWalletID, Amount: order.Amount, Error: submitErr})
		return Transaction{}, pipeline.sessions.NoteAuthFailure(ctx, submitErr)
	}
	pipeline.resetFormLocked()
	pipeline.mu.Unlock()

	if _, refreshErr := pipeline.RefreshBalance(ctx); refreshErr != nil {
		pipeline.emit(ctx, OperationLog{Operation: operationRefreshBalance, Error: refreshErr})
	}
	pipeline.emit(ctx, OperationLog{Operation: operationSubmitTransfer, WalletID: order.ReceiverWalletID, Amount: order.Amount})
	return transaction, nil
}

func (pipeline *TransferPipeline) resetFormLocked() {
	pipeline.receiverID = ""
	pipeline.receiverHolder = ""
	pipeline.receiverValid = false
	pipeline.receiverKnown = false
	pipeline.amount = 0
	pipeline.note = ""
}
