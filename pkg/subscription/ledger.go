package subscription

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/subledger/subledger/pkg/billing"
	"github.com/subledger/subledger/pkg/catalog"
	"github.com/subledger/subledger/pkg/errdefs"
	"github.com/subledger/subledger/pkg/observability"
)

// Ledger owns every subscription lifecycle transition. It consults the plan
// catalog for tier ranking, the billing engine for invoices, and the advisor
// before downgrades.
type Ledger struct {
	catalog  *catalog.Catalog
	store    Store
	invoices billing.InvoiceStore
	billing  *billing.Engine
	advisor  *Advisor
	logger   *observability.Logger
	now      func() time.Time
}

// NewLedger creates a subscription ledger.
func NewLedger(cat *catalog.Catalog, store Store, invoices billing.InvoiceStore, engine *billing.Engine, advisor *Advisor, logger *observability.Logger) *Ledger {
	return &Ledger{
		catalog:  cat,
		store:    store,
		invoices: invoices,
		billing:  engine,
		advisor:  advisor,
		logger:   logger,
		now:      time.Now,
	}
}

// Current returns the user's first non-expired subscription in storage
// order, or nil when there is none. Absence is not an error at this layer;
// adapters decide how to shape it.
func (l *Ledger) Current(ctx context.Context, userID string) (*Subscription, error) {
	subs, err := l.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	for _, sub := range subs {
		if sub.Status != StatusExpired {
			return sub, nil
		}
	}
	return nil, nil
}

// Create enrolls a user in a plan. Free-tier plans activate immediately with
// no invoice; paid plans start pending and return the invoice awaiting
// payment. The cycle defaults to monthly.
func (l *Ledger) Create(ctx context.Context, userID, planID string, cycle billing.BillingCycle) (*Subscription, *billing.Invoice, error) {
	plan, err := l.catalog.Get(planID)
	if err != nil {
		return nil, nil, err
	}
	if !cycle.Valid() {
		cycle = billing.CycleMonthly
	}

	subs, err := l.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	for _, sub := range subs {
		if sub.Status == StatusActive {
			return nil, nil, errdefs.Conflictf("user %s already has an active subscription", userID)
		}
	}

	now := l.now().UTC()
	sub := &Subscription{
		ID:        uuid.NewString(),
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    StatusPending,
		Cycle:     cycle,
		StartDate: now,
		EndDate:   billing.PeriodEnd(now, cycle),
		AutoRenew: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if plan.Tier == catalog.TierFree {
		sub.Status = StatusActive
	}

	if err := l.store.CreateSubscription(ctx, sub); err != nil {
		return nil, nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	log := l.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"plan":    plan.ID,
		"cycle":   string(cycle),
	})

	if plan.Tier == catalog.TierFree {
		log.Info("subscription created")
		return sub, nil, nil
	}

	inv := l.billing.GenerateInvoice(userID, sub.ID, plan, cycle)
	if err := l.invoices.CreateInvoice(ctx, inv); err != nil {
		return nil, nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	log.WithField("invoice", inv.ID).Info("subscription created, awaiting payment")
	return sub, inv, nil
}

// Change moves the user's current subscription to a different plan. Upgrades
// take effect immediately and re-invoice; downgrades from an active record
// are scheduled as a new pending record starting at the current period's
// end; downgrades to the free tier apply immediately. Advisor warnings are
// logged, never blocking. A new cycle only applies where the branch says it
// does: in-place changes recompute the end date from the record's start.
func (l *Ledger) Change(ctx context.Context, userID, planID string, cycle billing.BillingCycle) (*Subscription, *billing.Invoice, error) {
	target, err := l.catalog.Get(planID)
	if err != nil {
		return nil, nil, err
	}

	cur, err := l.Current(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if cur == nil {
		return nil, nil, errdefs.NotFoundf("user %s has no subscription to change", userID)
	}

	// a retired plan still ranks by its tier; a vanished one ranks below free
	curPriority := -1
	if curPlan, ok := l.catalog.Lookup(cur.PlanID); ok {
		curPriority = curPlan.Priority()
	}
	isUpgrade := target.Priority() > curPriority

	if !isUpgrade && target.Tier != catalog.TierFree {
		for _, warning := range l.advisor.Warnings(ctx, userID, target) {
			l.logger.WithFields(map[string]interface{}{
				"user_id": userID,
				"plan":    target.ID,
			}).Warn(warning)
		}
	}

	now := l.now().UTC()

	switch {
	case isUpgrade:
		cur.PlanID = target.ID
		if cycle.Valid() {
			cur.Cycle = cycle
			cur.EndDate = billing.PeriodEnd(cur.StartDate, cycle)
		}
		cur.UpdatedAt = now
		if err := l.store.UpdateSubscription(ctx, cur); err != nil {
			return nil, nil, fmt.Errorf("failed to update subscription: %w", err)
		}
		inv := l.billing.GenerateInvoice(userID, cur.ID, target, cur.Cycle)
		if err := l.invoices.CreateInvoice(ctx, inv); err != nil {
			return nil, nil, fmt.Errorf("failed to create invoice: %w", err)
		}
		l.logger.WithFields(map[string]interface{}{
			"user_id": userID,
			"plan":    target.ID,
			"invoice": inv.ID,
		}).Info("subscription upgraded")
		return cur, inv, nil

	case target.Tier == catalog.TierFree:
		cur.PlanID = target.ID
		cur.Status = StatusActive
		cur.UpdatedAt = now
		if err := l.store.UpdateSubscription(ctx, cur); err != nil {
			return nil, nil, fmt.Errorf("failed to update subscription: %w", err)
		}
		l.logger.WithFields(map[string]interface{}{
			"user_id": userID,
			"plan":    target.ID,
		}).Info("subscription downgraded to free tier")
		return cur, nil, nil

	case cur.Status == StatusActive:
		// scheduled downgrade: the current record runs out its period and
		// the new plan takes over from its end date
		cur.AutoRenew = false
		cur.UpdatedAt = now
		if err := l.store.UpdateSubscription(ctx, cur); err != nil {
			return nil, nil, fmt.Errorf("failed to update subscription: %w", err)
		}

		nextCycle := cur.Cycle
		if cycle.Valid() {
			nextCycle = cycle
		}
		next := &Subscription{
			ID:        uuid.NewString(),
			UserID:    userID,
			PlanID:    target.ID,
			Status:    StatusPending,
			Cycle:     nextCycle,
			StartDate: cur.EndDate,
			EndDate:   billing.PeriodEnd(cur.EndDate, nextCycle),
			AutoRenew: true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := l.store.CreateSubscription(ctx, next); err != nil {
			return nil, nil, fmt.Errorf("failed to create subscription: %w", err)
		}
		l.logger.WithFields(map[string]interface{}{
			"user_id":  userID,
			"plan":     target.ID,
			"start_at": next.StartDate,
		}).Info("subscription downgrade scheduled")
		return next, nil, nil

	case cur.Status == StatusPending:
		cur.PlanID = target.ID
		if cycle.Valid() {
			cur.Cycle = cycle
			cur.EndDate = billing.PeriodEnd(cur.StartDate, cycle)
		}
		cur.UpdatedAt = now
		if err := l.store.UpdateSubscription(ctx, cur); err != nil {
			return nil, nil, fmt.Errorf("failed to update subscription: %w", err)
		}
		l.logger.WithFields(map[string]interface{}{
			"user_id": userID,
			"plan":    target.ID,
		}).Info("pending subscription redirected")
		return cur, nil, nil

	default:
		return nil, nil, errdefs.BadRequest("could not process subscription change")
	}
}

// Cancel ends the user's current subscription. Immediate cancellation, or a
// free plan with nothing left to bill, takes effect now; otherwise the
// record keeps its status with auto-renew off and lapses at period end.
func (l *Ledger) Cancel(ctx context.Context, userID string, immediate bool) (*Subscription, error) {
	cur, err := l.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, errdefs.NotFoundf("user %s has no subscription to cancel", userID)
	}

	isFree := false
	if plan, ok := l.catalog.Lookup(cur.PlanID); ok && plan.Tier == catalog.TierFree {
		isFree = true
	}

	now := l.now().UTC()
	if immediate || isFree {
		cur.Status = StatusCanceled
	} else {
		cur.AutoRenew = false
	}
	cur.CanceledAt = &now
	cur.UpdatedAt = now

	if err := l.store.UpdateSubscription(ctx, cur); err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	l.logger.WithFields(map[string]interface{}{
		"user_id":   userID,
		"plan":      cur.PlanID,
		"immediate": immediate || isFree,
	}).Info("subscription canceled")
	return cur, nil
}

// History returns every record for the user, newest start date first. The
// sort is stable so records sharing a start date keep their insertion order.
func (l *Ledger) History(ctx context.Context, userID string) ([]*Subscription, error) {
	subs, err := l.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].StartDate.After(subs[j].StartDate)
	})
	return subs, nil
}
