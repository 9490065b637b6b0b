// Package archive persists settled invoices outside the primary store.
//
// # Overview
//
// After a payment completes, the engine hands the paid invoice to an Archiver
// in a detached goroutine. Failures are logged, never surfaced to the payment
// caller, so the archive is a best-effort audit copy rather than a system of
// record.
//
// FileArchiver writes indented JSON under a local root; S3Archiver uploads
// the same layout to a bucket, with MinIO-style custom endpoints supported
// for local stacks.
//
// # Usage Example
//
//	archiver, err := archive.NewFileArchiver("/var/lib/subledger/invoices")
//	if err != nil {
//		return err
//	}
//	if err := archiver.StoreInvoice(ctx, invoice); err != nil {
//		logger.WithError(err).Warn("invoice archive failed")
//	}
//
// # Related Packages
//
//   - pkg/billing: the invoices being archived
//   - pkg/engine: triggers archival on payment success
package archive
