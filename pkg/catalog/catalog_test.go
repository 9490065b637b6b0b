package catalog

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/subledger/subledger/pkg/errdefs"
)

func TestTierPriority(t *testing.T) {
	order := []Tier{TierFree, TierBasic, TierPremium, TierEnterprise}
	for i := 1; i < len(order); i++ {
		if order[i-1].Priority() >= order[i].Priority() {
			t.Errorf("expected %s < %s", order[i-1], order[i])
		}
	}

	if Tier("platinum").Priority() != -1 {
		t.Errorf("unknown tier should rank -1, got %d", Tier("platinum").Priority())
	}
	if Tier("platinum").Valid() {
		t.Error("unknown tier should not be valid")
	}
}

func testPlans() []*Plan {
	return []*Plan{
		{ID: "free", Name: "Free", Tier: TierFree, Available: true},
		{ID: "basic", Name: "Basic", Tier: TierBasic, MonthlyPrice: decimal.RequireFromString("9.99"), Available: true},
		{ID: "legacy", Name: "Legacy", Tier: TierPremium, Available: false},
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		plans   []*Plan
		wantErr bool
	}{
		{"valid", testPlans(), false},
		{"empty id", []*Plan{{Name: "Nameless", Tier: TierFree}}, true},
		{"unknown tier", []*Plan{{ID: "odd", Tier: Tier("platinum")}}, true},
		{"duplicate id", []*Plan{
			{ID: "basic", Tier: TierBasic},
			{ID: "basic", Tier: TierPremium},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.plans...)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCatalog_Get(t *testing.T) {
	c, err := New(testPlans()...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if _, err := c.Get("basic"); err != nil {
		t.Errorf("expected basic to resolve, got %v", err)
	}

	_, err = c.Get("legacy")
	if !errdefs.IsNotFound(err) {
		t.Errorf("retired plan should be not-found, got %v", err)
	}

	_, err = c.Get("nope")
	if !errdefs.IsNotFound(err) {
		t.Errorf("unknown plan should be not-found, got %v", err)
	}
}

func TestCatalog_List(t *testing.T) {
	c, err := New(testPlans()...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	list := c.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 available plans, got %d", len(list))
	}
	if list[0].ID != "free" || list[1].ID != "basic" {
		t.Errorf("expected catalog order preserved, got %s, %s", list[0].ID, list[1].ID)
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c, err := New(testPlans()...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	p, ok := c.Lookup("legacy")
	if !ok {
		t.Fatal("expected retired plan to be visible via Lookup")
	}
	if p.Available {
		t.Error("legacy plan should stay unavailable")
	}

	if _, ok := c.Lookup("nope"); ok {
		t.Error("unknown plan should not resolve via Lookup")
	}
}

func TestPlan_Feature(t *testing.T) {
	p := &Plan{
		ID:   "basic",
		Tier: TierBasic,
		Features: []Feature{
			{Name: "Projects", Included: true, Limit: "10"},
			{Name: "Advanced Analytics", Included: false},
		},
	}

	f, ok := p.Feature("projects")
	if !ok {
		t.Fatal("expected case-insensitive feature lookup")
	}
	if f.Limit != "10" {
		t.Errorf("expected limit 10, got %q", f.Limit)
	}

	if _, ok := p.Feature("SSO"); ok {
		t.Error("expected missing feature to report not ok")
	}
}

func TestDefaultPlans(t *testing.T) {
	plans := DefaultPlans()
	if len(plans) != 4 {
		t.Fatalf("expected 4 default plans, got %d", len(plans))
	}

	c := Default()
	basic, err := c.Get("basic")
	if err != nil {
		t.Fatalf("expected basic plan: %v", err)
	}
	if !basic.MonthlyPrice.Equal(decimal.RequireFromString("9.99")) {
		t.Errorf("expected basic monthly price 9.99, got %s", basic.MonthlyPrice)
	}

	free, err := c.Get("free")
	if err != nil {
		t.Fatalf("expected free plan: %v", err)
	}
	projects, ok := free.Feature("Projects")
	if !ok || projects.Limit != "3" {
		t.Errorf("expected free projects limit 3, got %+v", projects)
	}

	prev := -1
	for _, p := range plans {
		if p.Priority() <= prev {
			t.Errorf("default plans should ascend by tier, %s breaks the order", p.ID)
		}
		prev = p.Priority()
	}
}
