package subscription

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/subledger/subledger/pkg/catalog"
	"github.com/subledger/subledger/pkg/observability"
	"github.com/subledger/subledger/pkg/usage"
)

// Advisor warns about usage that would exceed a lower plan's limits.
type Advisor struct {
	meter  *usage.Meter
	logger *observability.Logger
}

// NewAdvisor creates a downgrade advisor over the given meter.
func NewAdvisor(meter *usage.Meter, logger *observability.Logger) *Advisor {
	return &Advisor{meter: meter, logger: logger}
}

// Warnings lists, for each target-plan feature whose limit the user's
// current usage already exceeds, what must shrink before the downgrade takes
// effect. It walks the plan's features in declaration order and skips any
// feature that is excluded or carries no parsable limit. The advisor never
// fails: internal errors are logged and produce no warnings.
func (a *Advisor) Warnings(ctx context.Context, userID string, target *catalog.Plan) []string {
	warnings := []string{}

	rec, err := a.meter.Usage(ctx, userID)
	if err != nil {
		a.logger.WithError(err).WithField("user_id", userID).Warn("downgrade advisor could not load usage")
		return warnings
	}

	for _, feature := range target.Features {
		if !feature.Included {
			continue
		}
		limit, ok := usage.ParseLimit(feature.Limit)
		if !ok {
			continue
		}
		used := usage.NormalizedValue(rec.Counters, feature.Name, limit)
		if used <= float64(limit.Amount) {
			continue
		}
		warnings = append(warnings, fmt.Sprintf(
			"You will need to reduce your %s from %s to %d before the downgrade takes effect.",
			strings.ToLower(feature.Name), strconv.FormatFloat(used, 'f', -1, 64), limit.Amount))
	}
	return warnings
}
