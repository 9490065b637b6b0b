package engine

import (
	"context"
	"os"
	"time"

	"github.com/subledger/subledger/pkg/archive"
	"github.com/subledger/subledger/pkg/async"
	"github.com/subledger/subledger/pkg/billing"
	"github.com/subledger/subledger/pkg/catalog"
	"github.com/subledger/subledger/pkg/observability"
	"github.com/subledger/subledger/pkg/payment"
	"github.com/subledger/subledger/pkg/storage"
	"github.com/subledger/subledger/pkg/subscription"
	"github.com/subledger/subledger/pkg/usage"
)

// DefaultArchiveTimeout bounds a single background invoice archive.
const DefaultArchiveTimeout = 30 * time.Second

// Config carries the collaborators an Engine is assembled from. Catalog and
// Logger fall back to catalog.Default and an info-level stderr logger; Store,
// Meter and Gateway are required. Metrics and Archiver are optional and
// disable their features when nil.
type Config struct {
	Catalog *catalog.Catalog
	Store   storage.Store
	Meter   *usage.Meter
	Gateway payment.Gateway

	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Archiver archive.Archiver

	// ChargeTimeout bounds a single gateway charge. Zero means
	// payment.DefaultChargeTimeout.
	ChargeTimeout time.Duration
	// ArchiveTimeout bounds a single background invoice archive. Zero means
	// DefaultArchiveTimeout.
	ArchiveTimeout time.Duration
}

// Engine is the single entry point for subscription, billing, payment and
// entitlement operations. It owns the domain services and enforces the
// concurrency contract: every mutating call for a user is serialized through
// a per-user lock, reads run lock-free against the stores.
type Engine struct {
	catalog   *catalog.Catalog
	store     storage.Store
	meter     *usage.Meter
	advisor   *subscription.Advisor
	ledger    *subscription.Ledger
	processor *payment.Processor
	archiver  archive.Archiver
	logger    *observability.Logger
	metrics   *observability.Metrics

	archiveTimeout time.Duration
	users          *keyedMutex
}

// New assembles an Engine and the domain services it fronts.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, os.Stderr)
	}
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	advisor := subscription.NewAdvisor(cfg.Meter, logger)
	ledger := subscription.NewLedger(cat, cfg.Store, cfg.Store, billing.NewEngine(), advisor, logger)
	processor := payment.NewProcessor(payment.Config{
		Methods:       cfg.Store,
		Transactions:  cfg.Store,
		Invoices:      cfg.Store,
		Subscriptions: cfg.Store,
		Gateway:       cfg.Gateway,
		Logger:        logger,
		Metrics:       cfg.Metrics,
		ChargeTimeout: cfg.ChargeTimeout,
	})

	archiveTimeout := cfg.ArchiveTimeout
	if archiveTimeout <= 0 {
		archiveTimeout = DefaultArchiveTimeout
	}

	return &Engine{
		catalog:        cat,
		store:          cfg.Store,
		meter:          cfg.Meter,
		advisor:        advisor,
		ledger:         ledger,
		processor:      processor,
		archiver:       cfg.Archiver,
		logger:         logger,
		metrics:        cfg.Metrics,
		archiveTimeout: archiveTimeout,
		users:          newKeyedMutex(),
	}
}

// ListPlans returns every available plan in catalog order.
func (e *Engine) ListPlans(ctx context.Context) []*catalog.Plan {
	return e.catalog.List()
}

// GetPlan returns an available plan by ID.
func (e *Engine) GetPlan(ctx context.Context, planID string) (*catalog.Plan, error) {
	return e.catalog.Get(planID)
}

// GetCurrentSubscription returns the user's newest non-canceled subscription,
// or (nil, nil) when there is none.
func (e *Engine) GetCurrentSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	return e.ledger.Current(ctx, userID)
}

// CreateSubscription opens a subscription to planID and, for paid plans, the
// invoice that must be settled before it activates.
func (e *Engine) CreateSubscription(ctx context.Context, userID, planID string, cycle billing.BillingCycle) (*subscription.Subscription, *billing.Invoice, error) {
	unlock := e.users.Lock(userID)
	defer unlock()

	sub, inv, err := e.ledger.Create(ctx, userID, planID, cycle)
	if err != nil {
		return nil, nil, err
	}
	if e.metrics != nil {
		e.metrics.SubscriptionsCreatedTotal.WithLabelValues(sub.PlanID, string(sub.Cycle)).Inc()
		if inv != nil {
			e.metrics.InvoicesIssuedTotal.Inc()
		}
	}
	return sub, inv, nil
}

// ChangeSubscription moves the user's subscription to planID. Upgrades take
// effect immediately and return the invoice for the new plan; downgrades are
// scheduled as a pending subscription for the next period.
func (e *Engine) ChangeSubscription(ctx context.Context, userID, planID string, cycle billing.BillingCycle) (*subscription.Subscription, *billing.Invoice, error) {
	unlock := e.users.Lock(userID)
	defer unlock()

	kind := e.changeKind(ctx, userID, planID)
	sub, inv, err := e.ledger.Change(ctx, userID, planID, cycle)
	if err != nil {
		return nil, nil, err
	}
	if e.metrics != nil {
		e.metrics.SubscriptionChangesTotal.WithLabelValues(kind).Inc()
		if inv != nil {
			e.metrics.InvoicesIssuedTotal.Inc()
		}
	}
	return sub, inv, nil
}

// changeKind classifies a plan change for metrics before the ledger applies
// it. Failures fall out as "unknown" and are never recorded because the
// change itself errors.
func (e *Engine) changeKind(ctx context.Context, userID, planID string) string {
	target, ok := e.catalog.Lookup(planID)
	if !ok {
		return "unknown"
	}
	current, err := e.ledger.Current(ctx, userID)
	if err != nil || current == nil {
		return "unknown"
	}
	currentPriority := -1
	if plan, ok := e.catalog.Lookup(current.PlanID); ok {
		currentPriority = plan.Priority()
	}
	if target.Priority() > currentPriority {
		return "upgrade"
	}
	return "downgrade"
}

// CancelSubscription cancels the user's subscription, immediately or at the
// end of the paid period.
func (e *Engine) CancelSubscription(ctx context.Context, userID string, immediate bool) (*subscription.Subscription, error) {
	unlock := e.users.Lock(userID)
	defer unlock()

	sub, err := e.ledger.Cancel(ctx, userID, immediate)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		mode := "period_end"
		if sub.Status == subscription.StatusCanceled {
			mode = "immediate"
		}
		e.metrics.SubscriptionCancelsTotal.WithLabelValues(mode).Inc()
	}
	return sub, nil
}

// GetSubscriptionHistory returns every subscription the user has held, oldest
// first.
func (e *Engine) GetSubscriptionHistory(ctx context.Context, userID string) ([]*subscription.Subscription, error) {
	return e.ledger.History(ctx, userID)
}

// GetInvoices returns the user's invoices in issue order.
func (e *Engine) GetInvoices(ctx context.Context, userID string) ([]*billing.Invoice, error) {
	return e.store.ListInvoices(ctx, userID)
}

// GetInvoice returns one of the user's invoices by ID.
func (e *Engine) GetInvoice(ctx context.Context, userID, invoiceID string) (*billing.Invoice, error) {
	return e.store.GetInvoice(ctx, userID, invoiceID)
}

// GetTransactions returns the user's payment transactions in creation order.
func (e *Engine) GetTransactions(ctx context.Context, userID string) ([]*payment.Transaction, error) {
	return e.store.ListTransactions(ctx, userID)
}

// AddPaymentMethod registers a payment method for the user. The first method
// becomes the default.
func (e *Engine) AddPaymentMethod(ctx context.Context, userID string, req *payment.CreateMethodRequest) (*payment.Method, error) {
	unlock := e.users.Lock(userID)
	defer unlock()
	return e.processor.AddMethod(ctx, userID, req)
}

// GetPaymentMethods returns the user's payment methods.
func (e *Engine) GetPaymentMethods(ctx context.Context, userID string) ([]*payment.Method, error) {
	return e.store.ListMethods(ctx, userID)
}

// GetPaymentMethod returns one of the user's payment methods by ID.
func (e *Engine) GetPaymentMethod(ctx context.Context, userID, methodID string) (*payment.Method, error) {
	return e.store.GetMethod(ctx, userID, methodID)
}

// SetDefaultPaymentMethod makes methodID the user's default, demoting any
// previous default.
func (e *Engine) SetDefaultPaymentMethod(ctx context.Context, userID, methodID string) error {
	unlock := e.users.Lock(userID)
	defer unlock()
	return e.processor.SetDefault(ctx, userID, methodID)
}

// RemovePaymentMethod deletes a payment method. The default cannot be removed
// while other methods remain.
func (e *Engine) RemovePaymentMethod(ctx context.Context, userID, methodID string) error {
	unlock := e.users.Lock(userID)
	defer unlock()
	return e.processor.RemoveMethod(ctx, userID, methodID)
}

// ProcessPayment charges an open invoice. An empty methodID uses the user's
// default method. Declines and timeouts come back as failed or timed-out
// transactions, not errors; a completed transaction marks the invoice paid,
// activates any subscription waiting on it and hands the invoice to the
// archiver in the background.
func (e *Engine) ProcessPayment(ctx context.Context, userID, invoiceID, methodID string) (*payment.Transaction, error) {
	unlock := e.users.Lock(userID)
	defer unlock()

	txn, err := e.processor.ProcessPayment(ctx, userID, invoiceID, methodID)
	if err != nil {
		return nil, err
	}
	if txn.Status == payment.TransactionStatusCompleted {
		e.archiveInvoice(ctx, userID, txn.InvoiceID)
	}
	return txn, nil
}

// RetryFailedPayment re-runs a failed or timed-out transaction as a fresh
// charge against the same invoice and method.
func (e *Engine) RetryFailedPayment(ctx context.Context, userID, transactionID string) (*payment.Transaction, error) {
	unlock := e.users.Lock(userID)
	defer unlock()

	txn, err := e.processor.RetryFailedPayment(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status == payment.TransactionStatusCompleted {
		e.archiveInvoice(ctx, userID, txn.InvoiceID)
	}
	return txn, nil
}

// archiveInvoice ships a paid invoice to the archiver without holding up the
// caller. The task runs detached from the request context so it survives the
// response.
func (e *Engine) archiveInvoice(ctx context.Context, userID, invoiceID string) {
	if e.archiver == nil {
		return
	}
	inv, err := e.store.GetInvoice(ctx, userID, invoiceID)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("invoice_id", invoiceID).
			Warn("could not load invoice for archiving")
		return
	}
	async.SafeGo(context.Background(), e.archiveTimeout, "invoice-archive", e.logger, func(ctx context.Context) error {
		return e.archiver.StoreInvoice(ctx, inv)
	})
}
