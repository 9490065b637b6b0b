package catalog

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk shape of a catalog seed.
type seedFile struct {
	Plans []planSpec `yaml:"plans"`
}

// planSpec mirrors Plan with string prices so seed files stay exact decimals.
type planSpec struct {
	ID           string    `yaml:"id"`
	Name         string    `yaml:"name"`
	Tier         string    `yaml:"tier"`
	Description  string    `yaml:"description"`
	MonthlyPrice string    `yaml:"monthly_price"`
	AnnualPrice  string    `yaml:"annual_price"`
	Features     []Feature `yaml:"features"`
	Available    *bool     `yaml:"available"`
}

// LoadFile parses a YAML plan seed file. Plans omitted from sale must set
// available: false explicitly; the default is available.
func LoadFile(path string) ([]*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog seed: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse catalog seed: %w", err)
	}
	if len(seed.Plans) == 0 {
		return nil, fmt.Errorf("catalog seed %s contains no plans", path)
	}

	plans := make([]*Plan, 0, len(seed.Plans))
	for i, spec := range seed.Plans {
		p, err := spec.toPlan()
		if err != nil {
			return nil, fmt.Errorf("catalog seed plan %d: %w", i, err)
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (s planSpec) toPlan() (*Plan, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	tier := Tier(s.Tier)
	if !tier.Valid() {
		return nil, fmt.Errorf("unknown tier %q", s.Tier)
	}

	monthly, err := parsePrice(s.MonthlyPrice)
	if err != nil {
		return nil, fmt.Errorf("monthly price: %w", err)
	}
	annual, err := parsePrice(s.AnnualPrice)
	if err != nil {
		return nil, fmt.Errorf("annual price: %w", err)
	}

	available := true
	if s.Available != nil {
		available = *s.Available
	}

	return &Plan{
		ID:           s.ID,
		Name:         s.Name,
		Tier:         tier,
		Description:  s.Description,
		MonthlyPrice: monthly,
		AnnualPrice:  annual,
		Features:     s.Features,
		Available:    available,
	}, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %q", s)
	}
	return d, nil
}

// DefaultPlans returns the built-in four-tier plan set used when no seed file
// is configured.
func DefaultPlans() []*Plan {
	return []*Plan{
		{
			ID:           "free",
			Name:         "Free",
			Tier:         TierFree,
			Description:  "For individuals trying things out",
			MonthlyPrice: decimal.Zero,
			AnnualPrice:  decimal.Zero,
			Available:    true,
			Features: []Feature{
				{Name: "Projects", Included: true, Limit: "3"},
				{Name: "Storage", Included: true, Limit: "1GB"},
				{Name: "Team Members", Included: true, Limit: "1"},
				{Name: "API Requests", Included: true, Limit: "100 requests/day"},
				{Name: "Community Support", Included: true},
				{Name: "Advanced Analytics", Included: false},
			},
		},
		{
			ID:           "basic",
			Name:         "Basic",
			Tier:         TierBasic,
			Description:  "For small teams getting started",
			MonthlyPrice: decimal.RequireFromString("9.99"),
			AnnualPrice:  decimal.RequireFromString("99.99"),
			Available:    true,
			Features: []Feature{
				{Name: "Projects", Included: true, Limit: "10"},
				{Name: "Storage", Included: true, Limit: "10GB"},
				{Name: "Team Members", Included: true, Limit: "5"},
				{Name: "API Requests", Included: true, Limit: "1000 requests/day"},
				{Name: "Email Support", Included: true},
				{Name: "Advanced Analytics", Included: false},
			},
		},
		{
			ID:           "premium",
			Name:         "Premium",
			Tier:         TierPremium,
			Description:  "For growing teams that need room",
			MonthlyPrice: decimal.RequireFromString("29.99"),
			AnnualPrice:  decimal.RequireFromString("299.99"),
			Available:    true,
			Features: []Feature{
				{Name: "Projects", Included: true, Limit: "50"},
				{Name: "Storage", Included: true, Limit: "100GB"},
				{Name: "Team Members", Included: true, Limit: "20"},
				{Name: "API Requests", Included: true, Limit: "10000 requests/day"},
				{Name: "Priority Support", Included: true},
				{Name: "Advanced Analytics", Included: true},
				{Name: "Custom Domains", Included: true},
			},
		},
		{
			ID:           "enterprise",
			Name:         "Enterprise",
			Tier:         TierEnterprise,
			Description:  "For organizations with heavy workloads",
			MonthlyPrice: decimal.RequireFromString("99.99"),
			AnnualPrice:  decimal.RequireFromString("999.99"),
			Available:    true,
			Features: []Feature{
				{Name: "Projects", Included: true},
				{Name: "Storage", Included: true, Limit: "1000GB"},
				{Name: "Team Members", Included: true},
				{Name: "API Requests", Included: true},
				{Name: "Dedicated Support", Included: true},
				{Name: "Advanced Analytics", Included: true},
				{Name: "Custom Domains", Included: true},
				{Name: "SSO", Included: true},
			},
		},
	}
}
