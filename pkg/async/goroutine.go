package async

import (
	"context"
	"time"

	"github.com/subledger/subledger/pkg/observability"
)

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Timeout enforcement
// - Error logging
//
// Use this instead of bare `go func()` to prevent goroutine leaks and crashes.
//
// Example:
//
//	SafeGo(context.Background(), 10*time.Second, "invoice archive", logger, func(ctx context.Context) error {
//	    return archiver.StoreInvoice(ctx, invoice)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, logger *observability.Logger, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer observability.RecoverPanic(logger.WithField("task", taskName), taskName)

		if err := fn(ctx); err != nil {
			// the task is best-effort; the caller already moved on
			logger.WithField("task", taskName).WithError(err).Error("background task failed")
		}
	}()
}
