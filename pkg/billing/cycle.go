package billing

import "time"

// BillingCycle represents how often a subscription renews.
type BillingCycle string

const (
	CycleMonthly   BillingCycle = "monthly"
	CycleQuarterly BillingCycle = "quarterly"
	CycleAnnual    BillingCycle = "annual"
)

// Valid reports whether the cycle is a known renewal period.
func (c BillingCycle) Valid() bool {
	switch c {
	case CycleMonthly, CycleQuarterly, CycleAnnual:
		return true
	}
	return false
}

// PeriodEnd returns when a billing period starting at start runs out.
func PeriodEnd(start time.Time, cycle BillingCycle) time.Time {
	switch cycle {
	case CycleQuarterly:
		return start.AddDate(0, 3, 0)
	case CycleAnnual:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}
