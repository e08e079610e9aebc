package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Func defines the function signature for a retryable operation.
type Func func(ctx context.Context) error

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retrier runs operations until they succeed or attempts run out
type Retrier struct {
	cfg    Config
	clock  clockwork.Clock
	logger *zap.Logger
}

// New creates a retrier. A nil cfg disables retrying.
func New(cfg *Config, clock clockwork.Clock, logger *zap.Logger) *Retrier {
	r := &Retrier{clock: clock, logger: logger}
	if cfg != nil {
		r.cfg = *cfg
	}
	if r.clock == nil {
		r.clock = clockwork.NewRealClock()
	}
	return r
}

// Do performs op with the retry mechanism.
func (r *Retrier) Do(ctx context.Context, name string, op Func) error {
	if !r.cfg.Enable {
		return op(ctx)
	}
	if err := r.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid retry configuration: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == r.cfg.Attempts {
			break
		}

		wait := r.backoff(attempt)
		r.logger.Debug("Retrying operation",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Int("attempts", r.cfg.Attempts),
			zap.Duration("wait", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w (last error: %v)", name, ctx.Err(), lastErr)
		case <-r.clock.After(wait):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, r.cfg.Attempts, lastErr)
}

// backoff grows the wait quadratically up to MaxInterval
func (r *Retrier) backoff(attempt int) time.Duration {
	wait := r.cfg.Interval * time.Duration(attempt*attempt)
	if r.cfg.MaxInterval > 0 && wait > r.cfg.MaxInterval {
		wait = r.cfg.MaxInterval
	}
	return wait
}
