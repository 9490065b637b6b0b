// Package subscription tracks the lifecycle of user subscriptions.
//
// # Overview
//
// A subscription moves through four states: pending (awaiting first
// payment), active, canceled, and expired. The Ledger owns every transition.
// Creation consults the plan catalog, conflicts when the user already holds
// an active record, and issues an invoice through the billing engine for
// paid tiers. Plan changes rank the current and target plans by tier
// priority: upgrades mutate the current record in place and re-invoice,
// downgrades from an active record are scheduled as a second pending record
// starting when the current period ends, and downgrades to the free tier
// apply immediately.
//
// Before any downgrade to a paid tier the Advisor compares the user's
// normalized usage against the target plan's limits and produces warnings.
// The warnings are logged and surfaced, never blocking.
//
// Nothing in this package expires subscriptions; the expired state exists so
// lapsed records can be excluded from current-subscription lookups.
//
// # Usage Example
//
//	ledger := subscription.NewLedger(cat, store, invoices, billing.NewEngine(), advisor, logger)
//
//	sub, inv, err := ledger.Create(ctx, userID, "premium", billing.CycleAnnual)
//	if err != nil {
//		return err
//	}
//	if inv != nil {
//		// paid plan: sub is pending until the invoice is settled
//	}
//
// # Related Packages
//
//   - pkg/catalog: plan definitions and tier ranking
//   - pkg/billing: invoice generation
//   - pkg/payment: settles invoices and activates pending records
package subscription
