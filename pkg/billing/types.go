package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusOpen InvoiceStatus = "open"
	InvoiceStatusPaid InvoiceStatus = "paid"
)

// LineItem represents a single charge on an invoice. PlanID ties the charge
// back to the plan so a successful payment can activate the matching pending
// subscription.
type LineItem struct {
	Description string          `json:"description"`
	PlanID      string          `json:"plan_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// Invoice represents a bill for one period of a subscription.
type Invoice struct {
	ID             string          `json:"id"`
	Number         string          `json:"number"`
	UserID         string          `json:"user_id"`
	SubscriptionID string          `json:"subscription_id"`
	Items          []LineItem      `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	Status         InvoiceStatus   `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	DueDate        time.Time       `json:"due_date"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
}

// InvoiceStore persists invoices.
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	// GetInvoice is user-scoped; an invoice belonging to another user is
	// not found.
	GetInvoice(ctx context.Context, userID, id string) (*Invoice, error)
	// ListInvoices returns a user's invoices in insertion order.
	ListInvoices(ctx context.Context, userID string) ([]*Invoice, error)
}
