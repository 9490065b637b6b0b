// Package reporting computes daily billing summaries from PostgreSQL.
//
// # Overview
//
// The Aggregator runs read-only SQL over the invoices and transactions
// tables: revenue collected per day, outstanding and overdue receivables,
// and payment outcomes by status. RunDaily fans the three queries out
// concurrently and bundles them into a DailyReport for the reporter daemon
// to render. Nothing here writes; the report is reproducible for any past
// day, which makes backfilling a matter of re-running it.
//
// Reporting requires the postgres backend. The in-memory store exists for
// tests and toy deployments, and those have nothing durable to report on.
//
// # Usage Example
//
//	agg := reporting.NewAggregator(store.DB())
//	report, err := agg.RunDaily(ctx, time.Now().UTC().AddDate(0, 0, -1))
//	if err != nil {
//		return err
//	}
//	out, _ := json.Marshal(report)
//
// # Related Packages
//
//   - pkg/storage/postgres: owns the schema these queries read
//   - cmd/subledger-reporter: schedules RunDaily with cron
package reporting
