package oplog

import (
	"context"

	"go.uber.org/zap"

	"github.com/BarakahPay/bcwallet/pkg/wallet"
)

// Logger adapts wallet operation callbacks onto a zap logger.
type Logger struct {
	zap *zap.Logger
}

// New wraps a zap logger. A nil logger degrades to a no-op.
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{zap: logger}
}

// LogOperation implements wallet.OperationLogger.
func (logger *Logger) LogOperation(_ context.Context, entry wallet.OperationLog) {
	fields := make([]zap.Field, 0, 5)
	fields = append(fields, zap.String("status", entry.Status))
	if entry.Email != "" {
		fields = append(fields, zap.String("email", entry.Email))
	}
	if entry.WalletID != "" {
		fields = append(fields, zap.String("wallet_id", entry.WalletID))
	}
	if entry.Amount != 0 {
		fields = append(fields, zap.Float64("amount", entry.Amount))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		logger.zap.Warn(entry.Operation, fields...)
		return
	}
	logger.zap.Info(entry.Operation, fields...)
}
