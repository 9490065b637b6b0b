package storage

import (
	"github.com/subledger/subledger/pkg/billing"
	"github.com/subledger/subledger/pkg/payment"
	"github.com/subledger/subledger/pkg/subscription"
)

// Store is the full persistence surface for the billing engine. It composes
// the four domain store interfaces so one backend holds subscription records,
// invoices, payment methods, and transactions together.
//
// Usage counters are deliberately not part of Store; they live behind
// usage.Store so record storage and counter storage can be picked
// independently per deployment.
type Store interface {
	subscription.Store
	billing.InvoiceStore
	payment.MethodStore
	payment.TransactionStore
}
