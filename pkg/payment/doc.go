// Package payment manages payment instruments and settles invoices.
//
// # Overview
//
// The Processor owns two concerns. Payment methods: per-user instruments
// where the first added, or any explicitly promoted one, is the single
// default. And payments: a charge against the Gateway under a bounded
// timeout, always recorded as an immutable Transaction whether it
// completed, was declined, or timed out. A completed payment marks the
// invoice paid and activates every pending subscription whose plan appears
// on the invoice line items.
//
// The Gateway interface is the seam for real providers; SimGateway stands
// in with a seeded pseudo-random approval draw. Declines are results, not
// errors, so callers branch on the transaction status instead of the error.
//
// # Usage Example
//
//	processor := payment.NewProcessor(payment.Config{
//		Methods:       store,
//		Transactions:  store,
//		Invoices:      store,
//		Subscriptions: store,
//		Gateway:       payment.NewSimGateway(payment.DefaultSuccessRate, time.Now().UnixNano()),
//		Logger:        logger,
//	})
//
//	txn, err := processor.ProcessPayment(ctx, userID, invoiceID, "")
//	if err != nil {
//		return err
//	}
//	if txn.Status != payment.TransactionStatusCompleted {
//		// declined or timed out; retry later with RetryFailedPayment
//	}
//
// # Related Packages
//
//   - pkg/billing: the invoices being settled
//   - pkg/subscription: pending records activated on success
package payment
