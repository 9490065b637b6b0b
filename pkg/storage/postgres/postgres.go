// Package postgres implements storage.Store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/subledger/subledger/pkg/billing"
	"github.com/subledger/subledger/pkg/errdefs"
	"github.com/subledger/subledger/pkg/payment"
	"github.com/subledger/subledger/pkg/storage"
	"github.com/subledger/subledger/pkg/subscription"
)

// Config holds PostgreSQL connection settings. Zero-valued pool fields fall
// back to DefaultConfig.
type Config struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// DefaultConfig returns the pool settings applied when Config leaves them
// zero.
func DefaultConfig() Config {
	return Config{
		MaxConns:    20,
		MinConns:    2,
		Timeout:     10 * time.Second,
		MaxLifetime: 1 * time.Hour,
		MaxIdleTime: 10 * time.Minute,
	}
}

// Store implements storage.Store over database/sql with the lib/pq driver.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open connects to PostgreSQL, applies pool tuning, and verifies the
// connection with a bounded ping.
func Open(cfg Config) (*Store, error) {
	defaults := DefaultConfig()
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = defaults.MaxConns
	}
	if cfg.MinConns <= 0 {
		cfg.MinConns = defaults.MinConns
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxLifetime <= 0 {
		cfg.MaxLifetime = defaults.MaxLifetime
	}
	if cfg.MaxIdleTime <= 0 {
		cfg.MaxIdleTime = defaults.MaxIdleTime
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStore wraps an existing connection. Callers keep ownership of the pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for health checks and reporting.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema when missing. Safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, user_id, plan_id, status, cycle, start_date, end_date, auto_renew, canceled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		sub.ID,
		sub.UserID,
		sub.PlanID,
		string(sub.Status),
		string(sub.Cycle),
		sub.StartDate,
		sub.EndDate,
		sub.AutoRenew,
		sub.CanceledAt,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return errdefs.Conflictf("subscription %s already exists", sub.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		UPDATE subscriptions
		SET plan_id = $2, status = $3, cycle = $4, start_date = $5, end_date = $6, auto_renew = $7, canceled_at = $8, updated_at = $9
		WHERE id = $1
	`

	res, err := s.db.ExecContext(ctx, query,
		sub.ID,
		sub.PlanID,
		string(sub.Status),
		string(sub.Cycle),
		sub.StartDate,
		sub.EndDate,
		sub.AutoRenew,
		sub.CanceledAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return errdefs.NotFoundf("subscription %s not found", sub.ID)
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context, userID string) ([]*subscription.Subscription, error) {
	query := `
		SELECT id, user_id, plan_id, status, cycle, start_date, end_date, auto_renew, canceled_at, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY seq
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*subscription.Subscription
	for rows.Next() {
		var sub subscription.Subscription
		var canceledAt sql.NullTime
		err := rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.PlanID,
			&sub.Status,
			&sub.Cycle,
			&sub.StartDate,
			&sub.EndDate,
			&sub.AutoRenew,
			&canceledAt,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		if canceledAt.Valid {
			t := canceledAt.Time
			sub.CanceledAt = &t
		}
		out = append(out, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subscriptions: %w", err)
	}
	return out, nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv *billing.Invoice) error {
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal line items: %w", err)
	}

	query := `
		INSERT INTO invoices (id, number, user_id, subscription_id, items, subtotal, tax, total, status, created_at, due_date, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = s.db.ExecContext(ctx, query,
		inv.ID,
		inv.Number,
		inv.UserID,
		inv.SubscriptionID,
		items,
		inv.Subtotal,
		inv.Tax,
		inv.Total,
		string(inv.Status),
		inv.CreatedAt,
		inv.DueDate,
		inv.PaidAt,
	)
	if isUniqueViolation(err) {
		return errdefs.Conflictf("invoice %s already exists", inv.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *billing.Invoice) error {
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal line items: %w", err)
	}

	query := `
		UPDATE invoices
		SET items = $2, subtotal = $3, tax = $4, total = $5, status = $6, due_date = $7, paid_at = $8
		WHERE id = $1
	`

	res, err := s.db.ExecContext(ctx, query,
		inv.ID,
		items,
		inv.Subtotal,
		inv.Tax,
		inv.Total,
		string(inv.Status),
		inv.DueDate,
		inv.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return errdefs.NotFoundf("invoice %s not found", inv.ID)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, userID, id string) (*billing.Invoice, error) {
	query := `
		SELECT id, number, user_id, subscription_id, items, subtotal, tax, total, status, created_at, due_date, paid_at
		FROM invoices
		WHERE id = $1 AND user_id = $2
	`

	inv, err := scanInvoice(s.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, errdefs.NotFoundf("invoice %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, userID string) ([]*billing.Invoice, error) {
	query := `
		SELECT id, number, user_id, subscription_id, items, subtotal, tax, total, status, created_at, due_date, paid_at
		FROM invoices
		WHERE user_id = $1
		ORDER BY seq
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var out []*billing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invoices: %w", err)
	}
	return out, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row scanner) (*billing.Invoice, error) {
	var inv billing.Invoice
	var items []byte
	var paidAt sql.NullTime
	err := row.Scan(
		&inv.ID,
		&inv.Number,
		&inv.UserID,
		&inv.SubscriptionID,
		&items,
		&inv.Subtotal,
		&inv.Tax,
		&inv.Total,
		&inv.Status,
		&inv.CreatedAt,
		&inv.DueDate,
		&paidAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &inv.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal line items: %w", err)
	}
	if paidAt.Valid {
		t := paidAt.Time
		inv.PaidAt = &t
	}
	return &inv, nil
}

func (s *Store) CreateMethod(ctx context.Context, m *payment.Method) error {
	details, err := json.Marshal(m.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal method details: %w", err)
	}

	query := `
		INSERT INTO payment_methods (id, user_id, type, details, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.db.ExecContext(ctx, query,
		m.ID,
		m.UserID,
		string(m.Type),
		details,
		m.IsDefault,
		m.CreatedAt,
	)
	if isUniqueViolation(err) {
		return errdefs.Conflictf("payment method %s already exists", m.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create payment method: %w", err)
	}
	return nil
}

func (s *Store) GetMethod(ctx context.Context, userID, id string) (*payment.Method, error) {
	query := `
		SELECT id, user_id, type, details, is_default, created_at
		FROM payment_methods
		WHERE user_id = $1 AND id = $2
	`

	m, err := scanMethod(s.db.QueryRowContext(ctx, query, userID, id))
	if err == sql.ErrNoRows {
		return nil, errdefs.NotFoundf("payment method %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}
	return m, nil
}

func (s *Store) ListMethods(ctx context.Context, userID string) ([]*payment.Method, error) {
	query := `
		SELECT id, user_id, type, details, is_default, created_at
		FROM payment_methods
		WHERE user_id = $1
		ORDER BY seq
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	defer rows.Close()

	var out []*payment.Method
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payment methods: %w", err)
	}
	return out, nil
}

func scanMethod(row scanner) (*payment.Method, error) {
	var m payment.Method
	var details []byte
	err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.Type,
		&details,
		&m.IsDefault,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(details, &m.Details); err != nil {
		return nil, fmt.Errorf("failed to unmarshal method details: %w", err)
	}
	return &m, nil
}

func (s *Store) DeleteMethod(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM payment_methods WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment method: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return errdefs.NotFoundf("payment method %s not found", id)
	}
	return nil
}

func (s *Store) SetDefaultMethod(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE payment_methods SET is_default = FALSE WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear default methods: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE payment_methods SET is_default = TRUE WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to set default method: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return errdefs.NotFoundf("payment method %s not found", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, txn *payment.Transaction) error {
	metadata, err := json.Marshal(txn.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO transactions (id, user_id, invoice_id, gateway_ref, payment_method, amount, status, created_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.ExecContext(ctx, query,
		txn.ID,
		txn.UserID,
		txn.InvoiceID,
		txn.GatewayRef,
		string(txn.PaymentMethod),
		txn.Amount,
		string(txn.Status),
		txn.CreatedAt,
		metadata,
	)
	if isUniqueViolation(err) {
		return errdefs.Conflictf("transaction %s already exists", txn.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*payment.Transaction, error) {
	query := `
		SELECT id, user_id, invoice_id, gateway_ref, payment_method, amount, status, created_at, metadata
		FROM transactions
		WHERE user_id = $1 AND id = $2
	`

	txn, err := scanTransaction(s.db.QueryRowContext(ctx, query, userID, id))
	if err == sql.ErrNoRows {
		return nil, errdefs.NotFoundf("transaction %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]*payment.Transaction, error) {
	query := `
		SELECT id, user_id, invoice_id, gateway_ref, payment_method, amount, status, created_at, metadata
		FROM transactions
		WHERE user_id = $1
		ORDER BY seq
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []*payment.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return out, nil
}

func scanTransaction(row scanner) (*payment.Transaction, error) {
	var txn payment.Transaction
	var metadata []byte
	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.InvoiceID,
		&txn.GatewayRef,
		&txn.PaymentMethod,
		&txn.Amount,
		&txn.Status,
		&txn.CreatedAt,
		&metadata,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metadata, &txn.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
	}
	return &txn, nil
}
