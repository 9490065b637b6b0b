package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// RevenueReport summarizes the invoices settled during one UTC calendar day.
type RevenueReport struct {
	Date         string          `json:"date"`
	InvoicesPaid int64           `json:"invoices_paid"`
	Collected    decimal.Decimal `json:"collected"`
}

// ReceivablesReport summarizes open invoices at a point in time. The overdue
// figures cover the subset whose due date has already passed.
type ReceivablesReport struct {
	AsOf          time.Time       `json:"as_of"`
	OpenCount     int64           `json:"open_count"`
	OpenAmount    decimal.Decimal `json:"open_amount"`
	OverdueCount  int64           `json:"overdue_count"`
	OverdueAmount decimal.Decimal `json:"overdue_amount"`
}

// OutcomeReport counts payment transactions by status inside a half-open
// window [From, To).
type OutcomeReport struct {
	From   time.Time        `json:"from"`
	To     time.Time        `json:"to"`
	Counts map[string]int64 `json:"counts"`
}

// DailyReport bundles the summaries the reporter renders for one day.
type DailyReport struct {
	Revenue     *RevenueReport     `json:"revenue"`
	Receivables *ReceivablesReport `json:"receivables"`
	Outcomes    *OutcomeReport     `json:"payment_outcomes"`
}

// Aggregator computes billing summaries straight from PostgreSQL. It only
// reads; the write path stays with storage.Store.
type Aggregator struct {
	db *sql.DB
}

// NewAggregator creates an aggregator over an existing connection pool.
func NewAggregator(db *sql.DB) *Aggregator {
	return &Aggregator{db: db}
}

// RevenueSummary reports the count and summed total of invoices paid on the
// given day. The day is taken as-is; callers pass UTC dates.
func (a *Aggregator) RevenueSummary(ctx context.Context, day time.Time) (*RevenueReport, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM invoices
		WHERE status = 'paid'
		  AND paid_at >= $1::date
		  AND paid_at < $1::date + INTERVAL '1 day'
	`
	report := &RevenueReport{Date: day.Format("2006-01-02")}
	err := a.db.QueryRowContext(ctx, query, day).Scan(&report.InvoicesPaid, &report.Collected)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize revenue: %w", err)
	}
	return report, nil
}

// ReceivablesSummary reports outstanding invoices as of the given instant.
func (a *Aggregator) ReceivablesSummary(ctx context.Context, asOf time.Time) (*ReceivablesReport, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(total), 0),
			COALESCE(SUM(CASE WHEN due_date < $1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN due_date < $1 THEN total ELSE 0 END), 0)
		FROM invoices
		WHERE status = 'open'
	`
	report := &ReceivablesReport{AsOf: asOf}
	err := a.db.QueryRowContext(ctx, query, asOf).
		Scan(&report.OpenCount, &report.OpenAmount, &report.OverdueCount, &report.OverdueAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize receivables: %w", err)
	}
	return report, nil
}

// PaymentOutcomes counts transactions by status inside [from, to).
func (a *Aggregator) PaymentOutcomes(ctx context.Context, from, to time.Time) (*OutcomeReport, error) {
	query := `
		SELECT status, COUNT(*)
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY status
	`
	rows, err := a.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count payment outcomes: %w", err)
	}
	defer rows.Close()

	report := &OutcomeReport{From: from, To: to, Counts: make(map[string]int64)}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan payment outcome: %w", err)
		}
		report.Counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payment outcomes: %w", err)
	}
	return report, nil
}

// RunDaily computes the full report for one UTC day, fanning the three
// summaries out concurrently. Receivables are taken as of the end of that
// day so the report stays reproducible for backfills.
func (a *Aggregator) RunDaily(ctx context.Context, day time.Time) (*DailyReport, error) {
	day = day.UTC()
	dayEnd := day.AddDate(0, 0, 1)

	var (
		revenue     *RevenueReport
		receivables *ReceivablesReport
		outcomes    *OutcomeReport
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		revenue, err = a.RevenueSummary(ctx, day)
		return err
	})
	eg.Go(func() error {
		var err error
		receivables, err = a.ReceivablesSummary(ctx, dayEnd)
		return err
	})
	eg.Go(func() error {
		var err error
		outcomes, err = a.PaymentOutcomes(ctx, day, dayEnd)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &DailyReport{
		Revenue:     revenue,
		Receivables: receivables,
		Outcomes:    outcomes,
	}, nil
}
