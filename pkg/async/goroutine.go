// Package async provides a guarded goroutine launcher for
// fire-and-forget background work.
package async

import (
	"context"
	"time"

	"github.com/gathering/gatekeeper/pkg/observability"
)

// SafeGo executes a function in a goroutine with panic recovery, a
// per-task timeout, and error logging. Use this instead of a bare
// `go func()` for fire-and-forget work so a panicking task cannot take
// the process down.
//
// Example:
//
//	async.SafeGo(ctx, logger, 30*time.Second, "blacklist sweep", func(ctx context.Context) error {
//	    _, err := store.DeleteExpired(ctx)
//	    return err
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer observability.RecoverPanic(logger, taskName)

		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Warn("background task failed")
		}
	}()
}

// SafeGoNoError is like SafeGo for functions that do not return errors
func SafeGoNoError(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context)) {
	SafeGo(parentCtx, logger, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
