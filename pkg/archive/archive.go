package archive

import (
	"context"

	"github.com/subledger/subledger/pkg/billing"
)

// Archiver persists settled invoices outside the primary store. Archival is
// best-effort; callers log failures instead of surfacing them to the payment
// path.
type Archiver interface {
	StoreInvoice(ctx context.Context, inv *billing.Invoice) error
}
