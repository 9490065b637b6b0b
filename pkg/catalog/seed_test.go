package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plans.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write seed file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeSeed(t, `
plans:
  - id: starter
    name: Starter
    tier: basic
    monthly_price: "4.99"
    annual_price: "49.99"
    features:
      - name: Projects
        included: true
        limit: "5"
  - id: retired
    name: Retired
    tier: premium
    monthly_price: "19.99"
    available: false
`)

	plans, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	c, err := New(plans...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	starter, err := c.Get("starter")
	if err != nil {
		t.Fatalf("expected starter plan: %v", err)
	}
	if !starter.MonthlyPrice.Equal(decimal.RequireFromString("4.99")) {
		t.Errorf("expected monthly price 4.99, got %s", starter.MonthlyPrice)
	}
	if !starter.Available {
		t.Error("available should default to true")
	}
	if f, ok := starter.Feature("Projects"); !ok || f.Limit != "5" {
		t.Errorf("expected projects limit 5, got %+v", f)
	}

	if _, ok := c.Lookup("retired"); !ok {
		t.Error("expected retired plan to load as unavailable")
	}
	if len(c.List()) != 1 {
		t.Errorf("expected 1 available plan, got %d", len(c.List()))
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no plans", "plans: []\n"},
		{"bad tier", `
plans:
  - id: odd
    name: Odd
    tier: platinum
`},
		{"bad price", `
plans:
  - id: odd
    name: Odd
    tier: basic
    monthly_price: "ten dollars"
`},
		{"negative price", `
plans:
  - id: odd
    name: Odd
    tier: basic
    monthly_price: "-1.00"
`},
		{"not yaml", "{plans: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSeed(t, tt.body)
			if _, err := LoadFile(path); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
