package postgres

// Schema statements, all idempotent so Migrate can run on every start. The
// seq columns keep insertion order observable, matching the in-memory
// backend's list semantics. Money lands in NUMERIC; line items, method
// details, and transaction metadata land in JSONB.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS subscriptions (
		seq BIGSERIAL PRIMARY KEY,
		id VARCHAR(64) NOT NULL UNIQUE,
		user_id VARCHAR(64) NOT NULL,
		plan_id VARCHAR(64) NOT NULL,
		status VARCHAR(16) NOT NULL,
		cycle VARCHAR(16) NOT NULL,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		auto_renew BOOLEAN NOT NULL DEFAULT TRUE,
		canceled_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions(user_id)`,

	`CREATE TABLE IF NOT EXISTS invoices (
		seq BIGSERIAL PRIMARY KEY,
		id VARCHAR(64) NOT NULL UNIQUE,
		number VARCHAR(32) NOT NULL,
		user_id VARCHAR(64) NOT NULL,
		subscription_id VARCHAR(64) NOT NULL DEFAULT '',
		items JSONB NOT NULL DEFAULT '[]',
		subtotal NUMERIC(12,2) NOT NULL,
		tax NUMERIC(12,2) NOT NULL,
		total NUMERIC(12,2) NOT NULL,
		status VARCHAR(16) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		due_date TIMESTAMPTZ NOT NULL,
		paid_at TIMESTAMPTZ
	)`,

	`CREATE INDEX IF NOT EXISTS idx_invoices_user_id ON invoices(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_paid_at ON invoices(paid_at)`,

	`CREATE TABLE IF NOT EXISTS payment_methods (
		seq BIGSERIAL PRIMARY KEY,
		id VARCHAR(64) NOT NULL,
		user_id VARCHAR(64) NOT NULL,
		type VARCHAR(16) NOT NULL,
		details JSONB NOT NULL DEFAULT '{}',
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE(user_id, id)
	)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		seq BIGSERIAL PRIMARY KEY,
		id VARCHAR(64) NOT NULL UNIQUE,
		user_id VARCHAR(64) NOT NULL,
		invoice_id VARCHAR(64) NOT NULL,
		gateway_ref VARCHAR(64) NOT NULL DEFAULT '',
		payment_method VARCHAR(16) NOT NULL,
		amount NUMERIC(12,2) NOT NULL,
		status VARCHAR(16) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}'
	)`,

	`CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_invoice_id ON transactions(invoice_id)`,
}
