package observer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// LockFunc takes the cross-process writer lock for one check and returns
// its release func. An error means the lock is busy or unavailable.
type LockFunc func() (release func(), err error)

// Watch runs Observe once per interval until ctx ends. The first check runs
// immediately. When lock is non-nil every check runs under it; a check whose
// lock cannot be taken is skipped. fn, if non-nil, receives every result.
// Per-check failures are logged and polling continues.
func (o *Observer) Watch(ctx context.Context, interval time.Duration, lock LockFunc, fn func(*ObserveResult)) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %v", interval)
	}

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	o.logger.Info("observer watch started", "interval", interval)
	defer o.logger.Info("observer watch stopped")

	for {
		if err := limiter.Wait(ctx); err != nil {
			// Context canceled, or its deadline falls before the next tick
			return nil
		}

		result, ok := o.tick(ctx, lock)
		if !ok {
			continue
		}
		if fn != nil {
			fn(result)
		}
	}
}

func (o *Observer) tick(ctx context.Context, lock LockFunc) (*ObserveResult, bool) {
	if lock != nil {
		release, err := lock()
		if err != nil {
			o.logger.Warn("writer lock busy, skipping check", "error", err)
			return nil, false
		}
		defer release()
	}

	result, err := o.Observe(ctx)
	if err != nil {
		if ctx.Err() == nil {
			o.logger.Warn("observer check failed", "error", err)
		}
		return nil, false
	}
	return result, true
}
