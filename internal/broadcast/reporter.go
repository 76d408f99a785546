package broadcast

import (
	"context"

	"go.uber.org/zap"
)

// ErrorReporter receives failures an operator must see even though they
// cannot be retried transparently, such as a lost broadcast log.
type ErrorReporter interface {
	Report(ctx context.Context, event string, err error, fields ...zap.Field)
}

// ZapReporter reports to a zap logger at error level.
type ZapReporter struct {
	logger *zap.Logger
}

// NewZapReporter creates a reporter writing to logger.
func NewZapReporter(logger *zap.Logger) *ZapReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapReporter{logger: logger}
}

// Report logs err under event.
func (r *ZapReporter) Report(_ context.Context, event string, err error, fields ...zap.Field) {
	r.logger.Error(event, append(fields, zap.Error(err))...)
}
