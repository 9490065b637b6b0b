package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChargeRequest describes one charge attempt against the gateway.
type ChargeRequest struct {
	UserID    string
	InvoiceID string
	Amount    decimal.Decimal
	Currency  string
	Method    *Method
}

// ChargeResult is the gateway's verdict on a charge. A decline is a result,
// not an error.
type ChargeResult struct {
	Ref      string
	Approved bool
	Reason   string
}

// Gateway settles charges with a payment provider. Implementations return
// an error only for transport problems; business declines come back with
// Approved false.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}
