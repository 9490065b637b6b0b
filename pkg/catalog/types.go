// Package catalog holds the plan catalog: the tiers, plans, and feature
// entitlements subscriptions are sold against. The catalog is immutable once
// built; plans change by seeding a new catalog, not by mutating a running one.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Tier represents the ranked level of a plan
type Tier string

const (
	TierFree       Tier = "free"
	TierBasic      Tier = "basic"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// Priority returns the strict ordering rank of a tier. Higher means more
// capable; unknown tiers rank below everything.
func (t Tier) Priority() int {
	switch t {
	case TierFree:
		return 0
	case TierBasic:
		return 1
	case TierPremium:
		return 2
	case TierEnterprise:
		return 3
	default:
		return -1
	}
}

// Valid reports whether the tier is one of the known tiers.
func (t Tier) Valid() bool {
	return t.Priority() >= 0
}

// Feature is a single entitlement carried by a plan. Limit is a free-form
// string in one of three parsable forms ("10", "10GB", "1000 requests/day");
// an absent or unparsable limit means unlimited.
type Feature struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Included    bool   `json:"included" yaml:"included"`
	Limit       string `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// Plan describes a sellable subscription plan
type Plan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Tier         Tier            `json:"tier"`
	Description  string          `json:"description,omitempty"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	AnnualPrice  decimal.Decimal `json:"annual_price"`
	Features     []Feature       `json:"features"`
	Available    bool            `json:"available"`
}

// Priority returns the plan's tier rank.
func (p *Plan) Priority() int {
	return p.Tier.Priority()
}

// Feature finds a feature by name, case-insensitively.
func (p *Plan) Feature(name string) (*Feature, bool) {
	for i := range p.Features {
		if strings.EqualFold(p.Features[i].Name, name) {
			return &p.Features[i], true
		}
	}
	return nil, false
}
