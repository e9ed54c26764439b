package notify

import (
	"context"

	"go.uber.org/zap"
)

// Log writes messages to the logger. Useful as a dry-run channel.
type Log struct {
	logger *zap.Logger
}

// NewLog returns a log notifier.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Name implements Notifier.
func (l *Log) Name() string { return "log" }

// Notify implements Notifier.
func (l *Log) Notify(_ context.Context, msg Message) error {
	l.logger.Info("notification",
		zap.String("kind", string(msg.Kind)),
		zap.Stringer("date", msg.Date),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Body),
	)
	return nil
}
