package wallet

import "context"

const (
	operationStatusOK    = "ok"
	operationStatusError = "error"
)

// Option configures a component's observer.
type Option func(*observer)

// OperationLogger records domain-level events emitted by the wallet
// components.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing client operation.
type OperationLog struct {
	Operation string
	Email     string
	WalletID  string
	Amount    float64
	Status    string
	Error     error
}

// WithOperationLogger wires a logger that receives callbacks for every
// operation.
func WithOperationLogger(logger OperationLogger) Option {
	return func(observer *observer) {
		observer.logger = logger
	}
}

type observer struct {
	logger OperationLogger
}

func (observer *observer) emit(ctx context.Context, entry OperationLog) {
	if observer.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	observer.logger.LogOperation(ctx, entry)
}
