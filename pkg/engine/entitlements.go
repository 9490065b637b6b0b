package engine

import (
	"context"
	"fmt"

	"github.com/subledger/subledger/pkg/catalog"
	"github.com/subledger/subledger/pkg/errdefs"
	"github.com/subledger/subledger/pkg/subscription"
	"github.com/subledger/subledger/pkg/usage"
)

// FeatureStatus annotates one plan feature with the user's consumption
// against it. Used is normalized into the limit's unit when the limit parses
// (storage counters become gigabytes); otherwise it is the raw counter.
type FeatureStatus struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Included    bool    `json:"included"`
	Limit       string  `json:"limit,omitempty"`
	Limited     bool    `json:"limited"`
	Used        float64 `json:"used"`
	Remaining   float64 `json:"remaining,omitempty"`
}

// activePlan resolves the plan behind the user's subscription, requiring the
// subscription to be active. A pending subscription grants no entitlements
// until its invoice is settled.
func (e *Engine) activePlan(ctx context.Context, userID string) (*catalog.Plan, error) {
	sub, err := e.ledger.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.Status != subscription.StatusActive {
		return nil, errdefs.Forbidden("no active subscription")
	}
	plan, ok := e.catalog.Lookup(sub.PlanID)
	if !ok {
		return nil, errdefs.Forbiddenf("plan %s is no longer offered", sub.PlanID)
	}
	return plan, nil
}

// HasFeatureAccess reports whether the user's active plan includes the named
// feature. A feature the plan does not mention is simply not accessible; a
// missing or inactive subscription is a Forbidden error.
func (e *Engine) HasFeatureAccess(ctx context.Context, userID, featureName string) (bool, error) {
	plan, err := e.activePlan(ctx, userID)
	if err != nil {
		return false, err
	}
	feature, ok := plan.Feature(featureName)
	if !ok {
		return false, nil
	}
	return feature.Included, nil
}

// GetResourceLimit returns the raw limit string for a feature of the user's
// active plan. An empty string means the feature is unlimited. Asking for a
// feature the plan excludes is a Forbidden error.
func (e *Engine) GetResourceLimit(ctx context.Context, userID, featureName string) (string, error) {
	plan, err := e.activePlan(ctx, userID)
	if err != nil {
		return "", err
	}
	feature, ok := plan.Feature(featureName)
	if !ok || !feature.Included {
		return "", errdefs.Forbiddenf("feature %s is not included in plan %s", featureName, plan.ID)
	}
	return feature.Limit, nil
}

// VerifyResourceLimit reports whether the user could consume delta more of a
// resource without crossing the plan's limit. Unlimited and unparsable limits
// always pass; a resource the plan excludes is a Forbidden error.
func (e *Engine) VerifyResourceLimit(ctx context.Context, userID, resource string, delta int64) (bool, error) {
	plan, err := e.activePlan(ctx, userID)
	if err != nil {
		return false, err
	}
	feature, ok := plan.Feature(resource)
	if !ok || !feature.Included {
		return false, errdefs.Forbiddenf("resource %s is not included in plan %s", resource, plan.ID)
	}
	return e.meter.WithinLimit(ctx, userID, resource, delta, feature.Limit)
}

// TrackResourceUsage records consumption and returns the new cumulative
// total. Tracking is deliberately ungated: enforcement belongs to
// VerifyResourceLimit so that overshoot remains visible to the downgrade
// advisor.
func (e *Engine) TrackResourceUsage(ctx context.Context, userID, resource string, amount int64) (int64, error) {
	total, err := e.meter.Track(ctx, userID, resource, amount)
	if err != nil {
		return 0, err
	}
	if e.metrics != nil {
		e.metrics.UsageTrackedTotal.WithLabelValues(usage.CanonicalResource(resource)).Inc()
	}
	return total, nil
}

// GetUsage returns the user's raw usage counters.
func (e *Engine) GetUsage(ctx context.Context, userID string) (*usage.Record, error) {
	return e.meter.Usage(ctx, userID)
}

// GetFeatures returns every feature of the user's active plan annotated with
// the user's consumption against its limit.
func (e *Engine) GetFeatures(ctx context.Context, userID string) ([]FeatureStatus, error) {
	plan, err := e.activePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	record, err := e.meter.Usage(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load usage for %s: %w", userID, err)
	}

	statuses := make([]FeatureStatus, 0, len(plan.Features))
	for _, feature := range plan.Features {
		status := FeatureStatus{
			Name:        feature.Name,
			Description: feature.Description,
			Included:    feature.Included,
			Limit:       feature.Limit,
		}
		if limit, ok := usage.ParseLimit(feature.Limit); ok {
			status.Limited = true
			status.Used = usage.NormalizedValue(record.Counters, feature.Name, limit)
			status.Remaining = float64(limit.Amount) - status.Used
		} else {
			status.Used = float64(record.Counters[usage.CanonicalResource(feature.Name)])
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// PreviewPlanChange returns the adjustments a user would have to make before
// a change to planID takes effect. An empty slice means the change is clean.
func (e *Engine) PreviewPlanChange(ctx context.Context, userID, planID string) ([]string, error) {
	plan, err := e.catalog.Get(planID)
	if err != nil {
		return nil, err
	}
	warnings := e.advisor.Warnings(ctx, userID, plan)
	if e.metrics != nil && len(warnings) > 0 {
		e.metrics.DowngradeWarningsTotal.Add(float64(len(warnings)))
	}
	return warnings, nil
}
