package cachectl

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Observer receives an event after each Tool operation completes.
type Observer interface {
	OnOperation(ctx context.Context, op Operation, affected int, err error, dur time.Duration, driver Driver)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op Operation, affected int, err error, dur time.Duration, driver Driver)

// OnOperation implements Observer.
func (f ObserverFunc) OnOperation(ctx context.Context, op Operation, affected int, err error, dur time.Duration, driver Driver) {
	if f == nil {
		return
	}
	f(ctx, op, affected, err, dur, driver)
}

type logObserver struct {
	logger *zap.Logger
}

// NewLogObserver logs each operation at info level, or error level when it failed.
func NewLogObserver(logger *zap.Logger) Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logObserver{logger: logger}
}

func (o *logObserver) OnOperation(_ context.Context, op Operation, affected int, err error, dur time.Duration, driver Driver) {
	fields := []zap.Field{
		zap.String("op", string(op)),
		zap.String("driver", string(driver)),
		zap.Int("affected", affected),
		zap.Duration("duration", dur),
	}
	if err != nil {
		o.logger.Error("cache operation failed", append(fields, zap.Error(err))...)
		return
	}
	o.logger.Info("cache operation completed", fields...)
}
