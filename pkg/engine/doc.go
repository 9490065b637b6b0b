// Package engine is the composition root for the subscription ledger,
// billing engine, payment processor and usage meter.
//
// # Overview
//
// An Engine fronts every operation the service exposes: plan lookup,
// subscription lifecycle, invoices, payment methods, payments, and the
// entitlement checks that gate features and resources on the user's active
// plan. Callers construct one Engine from a Config and never touch the
// domain services directly.
//
// The Engine also owns the concurrency contract. Every mutating call for a
// user is serialized through a per-user lock, so two concurrent subscribe
// calls for the same user resolve to exactly one success and one conflict.
// Reads bypass the lock and go straight to the stores.
//
// Successful payments are followed up in the background: the paid invoice is
// handed to the configured archiver on a detached, bounded goroutine so the
// caller never waits on object storage.
//
// # Usage Example
//
//	eng := engine.New(engine.Config{
//		Store:   storage.NewMemoryStore(),
//		Meter:   usage.NewMeter(usage.NewMemoryStore()),
//		Gateway: payment.NewSimGateway(0.9, 0),
//	})
//
//	sub, inv, err := eng.CreateSubscription(ctx, userID, "premium", billing.CycleMonthly)
//	if err != nil {
//		return err
//	}
//	txn, err := eng.ProcessPayment(ctx, userID, inv.ID, "")
//
// # Related Packages
//
//   - pkg/subscription: ledger and downgrade advisor behind the facade
//   - pkg/payment: processor, gateways and transaction records
//   - pkg/usage: meters the counters entitlement checks read
//   - pkg/archive: receives paid invoices in the background
package engine
