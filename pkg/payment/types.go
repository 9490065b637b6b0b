package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MethodType represents the kind of payment instrument.
type MethodType string

const (
	MethodTypeCard        MethodType = "card"
	MethodTypePayPal      MethodType = "paypal"
	MethodTypeBankAccount MethodType = "bank_account"
)

// Valid reports whether the type is a supported payment instrument.
func (t MethodType) Valid() bool {
	switch t {
	case MethodTypeCard, MethodTypePayPal, MethodTypeBankAccount:
		return true
	}
	return false
}

// Method represents a stored payment instrument. Details are opaque to this
// package; a card carries different keys than a bank account.
type Method struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Type      MethodType        `json:"type"`
	Details   map[string]string `json:"details,omitempty"`
	IsDefault bool              `json:"is_default"`
	CreatedAt time.Time         `json:"created_at"`
}

// CreateMethodRequest carries the fields for adding a payment method. An
// empty ID is filled with a generated one.
type CreateMethodRequest struct {
	ID          string            `json:"id,omitempty"`
	Type        MethodType        `json:"type"`
	Details     map[string]string `json:"details,omitempty"`
	MakeDefault bool              `json:"make_default"`
}

// TransactionStatus represents the outcome of a charge attempt. Timeouts
// are recorded distinctly from gateway declines.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusTimeout   TransactionStatus = "timeout"
)

// Transaction represents one attempt to settle an invoice. Rows are
// immutable once recorded; a retry appends a new row instead of mutating
// the old one.
type Transaction struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	InvoiceID     string            `json:"invoice_id"`
	GatewayRef    string            `json:"gateway_ref,omitempty"`
	PaymentMethod MethodType        `json:"payment_method"`
	Amount        decimal.Decimal   `json:"amount"`
	Status        TransactionStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// MethodStore persists payment methods.
type MethodStore interface {
	// CreateMethod stores a new method; a duplicate id is a conflict.
	CreateMethod(ctx context.Context, m *Method) error
	GetMethod(ctx context.Context, userID, id string) (*Method, error)
	// ListMethods returns a user's methods in insertion order.
	ListMethods(ctx context.Context, userID string) ([]*Method, error)
	DeleteMethod(ctx context.Context, userID, id string) error
	// SetDefaultMethod atomically clears every default for the user and
	// marks the given method.
	SetDefaultMethod(ctx context.Context, userID, id string) error
}

// TransactionStore persists payment transactions.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, txn *Transaction) error
	GetTransaction(ctx context.Context, userID, id string) (*Transaction, error)
	// ListTransactions returns a user's transactions in insertion order.
	ListTransactions(ctx context.Context, userID string) ([]*Transaction, error)
}
