// Package async provides safe concurrent execution primitives for background tasks.
//
// # Overview
//
// This package handles goroutine lifecycle management with panic recovery,
// timeout enforcement, and context cancellation for the engine's
// fire-and-forget work.
//
// # Key Functions
//
// SafeGo: Execute function in goroutine with safety features
//
//	async.SafeGo(ctx, 10*time.Second, "invoice archive", logger, func(ctx context.Context) error {
//		return archiver.StoreInvoice(ctx, invoice)
//	})
//
// # Use Cases
//
// Invoice archival after successful payment, anything else that must not
// block or crash the payment path.
package async
