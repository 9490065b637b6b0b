package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subledger/subledger/pkg/catalog"
)

// taxRate is the flat rate applied to every invoice subtotal.
var taxRate = decimal.RequireFromString("0.10")

// quarterlyDiscount prices a quarter as three months at ten percent off.
var quarterlyDiscount = decimal.RequireFromString("0.90")

// paymentTerm is how long after issue an invoice falls due.
const paymentTerm = 14 * 24 * time.Hour

// Engine computes plan prices and builds invoices.
type Engine struct {
	now func() time.Time
}

// NewEngine creates a billing engine.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// PriceFor returns what one period of the plan costs under the given cycle.
func (e *Engine) PriceFor(plan *catalog.Plan, cycle BillingCycle) decimal.Decimal {
	switch cycle {
	case CycleAnnual:
		return plan.AnnualPrice
	case CycleQuarterly:
		return plan.MonthlyPrice.Mul(decimal.NewFromInt(3)).Mul(quarterlyDiscount).Round(2)
	default:
		return plan.MonthlyPrice
	}
}

// GenerateInvoice issues an Open invoice for one period of the plan with a
// single line item carrying the plan id.
func (e *Engine) GenerateInvoice(userID, subscriptionID string, plan *catalog.Plan, cycle BillingCycle) *Invoice {
	now := e.now().UTC()
	subtotal := e.PriceFor(plan, cycle)
	tax := subtotal.Mul(taxRate).Round(2)

	return &Invoice{
		ID:             uuid.NewString(),
		Number:         invoiceNumber(now),
		UserID:         userID,
		SubscriptionID: subscriptionID,
		Items: []LineItem{{
			Description: fmt.Sprintf("%s Plan (%s)", plan.Name, cycle),
			PlanID:      plan.ID,
			Quantity:    1,
			UnitPrice:   subtotal,
			Amount:      subtotal,
		}},
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     subtotal.Add(tax),
		Status:    InvoiceStatusOpen,
		CreatedAt: now,
		DueDate:   now.Add(paymentTerm),
	}
}

// invoiceNumber derives a human-facing number from the issue timestamp.
// Two invoices issued in the same millisecond share a number; the uuid ID
// stays the unique key.
func invoiceNumber(now time.Time) string {
	return fmt.Sprintf("INV-%d", now.UnixMilli()%1_000_000_000)
}
