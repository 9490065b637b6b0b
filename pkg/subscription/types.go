package subscription

import (
	"context"
	"time"

	"github.com/subledger/subledger/pkg/billing"
)

// Status represents the lifecycle state of a subscription.
type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
	StatusPending  Status = "pending"
)

// Subscription represents one user's enrollment in a plan.
type Subscription struct {
	ID         string               `json:"id"`
	UserID     string               `json:"user_id"`
	PlanID     string               `json:"plan_id"`
	Status     Status               `json:"status"`
	Cycle      billing.BillingCycle `json:"cycle"`
	StartDate  time.Time            `json:"start_date"`
	EndDate    time.Time            `json:"end_date"`
	AutoRenew  bool                 `json:"auto_renew"`
	CanceledAt *time.Time           `json:"canceled_at,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// Store persists subscription records.
type Store interface {
	CreateSubscription(ctx context.Context, sub *Subscription) error
	UpdateSubscription(ctx context.Context, sub *Subscription) error
	// ListSubscriptions returns every record for a user in insertion order.
	ListSubscriptions(ctx context.Context, userID string) ([]*Subscription, error)
}
