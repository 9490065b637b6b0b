package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/subledger/subledger/pkg/billing"
	"github.com/subledger/subledger/pkg/errdefs"
	"github.com/subledger/subledger/pkg/observability"
	"github.com/subledger/subledger/pkg/subscription"
)

var tracer = otel.Tracer("subledger/payment")

// DefaultChargeTimeout bounds a gateway charge when no override is set.
const DefaultChargeTimeout = 30 * time.Second

// defaultCurrency is what every charge settles in.
const defaultCurrency = "USD"

// metadataMethodID snapshots the payment method used on a transaction so a
// retry can reuse it.
const metadataMethodID = "payment_method_id"

// Config wires a Processor's collaborators. Metrics is optional.
type Config struct {
	Methods       MethodStore
	Transactions  TransactionStore
	Invoices      billing.InvoiceStore
	Subscriptions subscription.Store
	Gateway       Gateway
	Logger        *observability.Logger
	Metrics       *observability.Metrics
	// ChargeTimeout bounds a single gateway charge. Zero means
	// DefaultChargeTimeout.
	ChargeTimeout time.Duration
}

// Processor manages payment methods and settles invoices through the
// gateway.
type Processor struct {
	methods       MethodStore
	transactions  TransactionStore
	invoices      billing.InvoiceStore
	subscriptions subscription.Store
	gateway       Gateway
	logger        *observability.Logger
	metrics       *observability.Metrics
	chargeTimeout time.Duration
	now           func() time.Time
}

// NewProcessor creates a payment processor.
func NewProcessor(cfg Config) *Processor {
	timeout := cfg.ChargeTimeout
	if timeout <= 0 {
		timeout = DefaultChargeTimeout
	}
	return &Processor{
		methods:       cfg.Methods,
		transactions:  cfg.Transactions,
		invoices:      cfg.Invoices,
		subscriptions: cfg.Subscriptions,
		gateway:       cfg.Gateway,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		chargeTimeout: timeout,
		now:           time.Now,
	}
}

// AddMethod stores a payment instrument. The first method for a user, or an
// explicit MakeDefault, becomes the default; a user with methods always has
// exactly one default.
func (p *Processor) AddMethod(ctx context.Context, userID string, req *CreateMethodRequest) (*Method, error) {
	if !req.Type.Valid() {
		return nil, errdefs.BadRequestf("unknown payment method type %q", req.Type)
	}

	existing, err := p.methods.ListMethods(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	method := &Method{
		ID:        id,
		UserID:    userID,
		Type:      req.Type,
		Details:   req.Details,
		IsDefault: len(existing) == 0 || req.MakeDefault,
		CreatedAt: p.now().UTC(),
	}

	if err := p.methods.CreateMethod(ctx, method); err != nil {
		return nil, err
	}
	if method.IsDefault {
		if err := p.methods.SetDefaultMethod(ctx, userID, method.ID); err != nil {
			return nil, fmt.Errorf("failed to set default payment method: %w", err)
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"method":  method.ID,
		"type":    string(method.Type),
		"default": method.IsDefault,
	}).Info("payment method added")
	return method, nil
}

// Methods lists a user's stored payment instruments in insertion order.
func (p *Processor) Methods(ctx context.Context, userID string) ([]*Method, error) {
	return p.methods.ListMethods(ctx, userID)
}

// Method returns one of the user's payment instruments.
func (p *Processor) Method(ctx context.Context, userID, id string) (*Method, error) {
	return p.methods.GetMethod(ctx, userID, id)
}

// SetDefault marks one stored method as the user's default.
func (p *Processor) SetDefault(ctx context.Context, userID, id string) error {
	if _, err := p.methods.GetMethod(ctx, userID, id); err != nil {
		return err
	}
	return p.methods.SetDefaultMethod(ctx, userID, id)
}

// RemoveMethod deletes a stored method. The default can only be removed
// when it is the user's last method.
func (p *Processor) RemoveMethod(ctx context.Context, userID, id string) error {
	method, err := p.methods.GetMethod(ctx, userID, id)
	if err != nil {
		return err
	}
	if method.IsDefault {
		all, err := p.methods.ListMethods(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list payment methods: %w", err)
		}
		if len(all) > 1 {
			return errdefs.BadRequest("cannot remove the default payment method while other methods exist")
		}
	}
	if err := p.methods.DeleteMethod(ctx, userID, id); err != nil {
		return err
	}

	p.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"method":  id,
	}).Info("payment method removed")
	return nil
}

// ProcessPayment settles an open invoice. The gateway call is the only
// suspension point and runs under the configured timeout. Whatever the
// outcome, a new transaction is recorded; declines and timeouts are not
// errors, the outcome lives in the returned transaction. A completed charge
// marks the invoice paid and activates every pending subscription whose
// plan appears on the invoice line items.
func (p *Processor) ProcessPayment(ctx context.Context, userID, invoiceID, methodID string) (*Transaction, error) {
	inv, err := p.invoices.GetInvoice(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == billing.InvoiceStatusPaid {
		return nil, errdefs.BadRequestf("invoice %s is already paid", invoiceID)
	}

	method, err := p.selectMethod(ctx, userID, methodID)
	if err != nil {
		return nil, err
	}

	chargeCtx, cancel := context.WithTimeout(ctx, p.chargeTimeout)
	defer cancel()
	chargeCtx, span := tracer.Start(chargeCtx, "gateway.charge", trace.WithAttributes(
		attribute.String("invoice.id", inv.ID),
		attribute.String("method.type", string(method.Type)),
	))
	defer span.End()

	started := time.Now()
	result, chargeErr := p.gateway.Charge(chargeCtx, ChargeRequest{
		UserID:    userID,
		InvoiceID: inv.ID,
		Amount:    inv.Total,
		Currency:  defaultCurrency,
		Method:    method,
	})
	elapsed := time.Since(started)

	txn := &Transaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		InvoiceID:     inv.ID,
		PaymentMethod: method.Type,
		Amount:        inv.Total,
		CreatedAt:     p.now().UTC(),
		Metadata:      map[string]string{metadataMethodID: method.ID},
	}
	switch {
	case chargeErr == nil && result.Approved:
		txn.Status = TransactionStatusCompleted
		txn.GatewayRef = result.Ref
	case chargeErr == nil:
		txn.Status = TransactionStatusFailed
		txn.GatewayRef = result.Ref
		if result.Reason != "" {
			txn.Metadata["reason"] = result.Reason
		}
	case errors.Is(chargeErr, context.DeadlineExceeded):
		txn.Status = TransactionStatusTimeout
	default:
		txn.Status = TransactionStatusFailed
		txn.Metadata["reason"] = chargeErr.Error()
		span.RecordError(chargeErr)
	}
	span.SetAttributes(attribute.String("charge.outcome", string(txn.Status)))

	if err := p.transactions.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}
	if p.metrics != nil {
		p.metrics.GatewayChargeDuration.WithLabelValues(string(txn.Status)).Observe(elapsed.Seconds())
		p.metrics.PaymentsTotal.WithLabelValues(string(txn.Status)).Inc()
	}

	log := p.logger.WithFields(map[string]interface{}{
		"user_id":     userID,
		"invoice":     inv.ID,
		"transaction": txn.ID,
		"status":      string(txn.Status),
	})

	if txn.Status != TransactionStatusCompleted {
		log.Warn("payment did not complete")
		return txn, nil
	}

	paidAt := p.now().UTC()
	inv.Status = billing.InvoiceStatusPaid
	inv.PaidAt = &paidAt
	if err := p.invoices.UpdateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	if err := p.activateSubscriptions(ctx, userID, inv); err != nil {
		return nil, err
	}
	if p.metrics != nil {
		amount, _ := inv.Total.Float64()
		p.metrics.PaymentAmountTotal.Add(amount)
	}

	log.Info("payment completed")
	return txn, nil
}

// RetryFailedPayment re-runs payment for the invoice behind a failed or
// timed-out transaction, reusing the method recorded on it. The original
// transaction is never touched; the retry records its own row.
func (p *Processor) RetryFailedPayment(ctx context.Context, userID, transactionID string) (*Transaction, error) {
	original, err := p.transactions.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if original.Status != TransactionStatusFailed && original.Status != TransactionStatusTimeout {
		return nil, errdefs.NotFoundf("failed transaction %s not found", transactionID)
	}
	return p.ProcessPayment(ctx, userID, original.InvoiceID, original.Metadata[metadataMethodID])
}

// selectMethod resolves which instrument to charge: the explicit one when
// given, otherwise the user's default.
func (p *Processor) selectMethod(ctx context.Context, userID, methodID string) (*Method, error) {
	if methodID != "" {
		return p.methods.GetMethod(ctx, userID, methodID)
	}
	all, err := p.methods.ListMethods(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	for _, m := range all {
		if m.IsDefault {
			return m, nil
		}
	}
	return nil, errdefs.BadRequest("no default payment method")
}

// activateSubscriptions flips every pending subscription whose plan appears
// on the invoice to active.
func (p *Processor) activateSubscriptions(ctx context.Context, userID string, inv *billing.Invoice) error {
	planIDs := make(map[string]struct{}, len(inv.Items))
	for _, item := range inv.Items {
		if item.PlanID != "" {
			planIDs[item.PlanID] = struct{}{}
		}
	}

	subs, err := p.subscriptions.ListSubscriptions(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	now := p.now().UTC()
	for _, sub := range subs {
		if sub.Status != subscription.StatusPending {
			continue
		}
		if _, ok := planIDs[sub.PlanID]; !ok {
			continue
		}
		sub.Status = subscription.StatusActive
		sub.UpdatedAt = now
		if err := p.subscriptions.UpdateSubscription(ctx, sub); err != nil {
			return fmt.Errorf("failed to activate subscription %s: %w", sub.ID, err)
		}
		p.logger.WithFields(map[string]interface{}{
			"user_id":      userID,
			"subscription": sub.ID,
			"plan":         sub.PlanID,
		}).Info("subscription activated")
	}
	return nil
}
