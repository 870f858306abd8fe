package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validScenario = `
items:
  laptop:
    price: {min: 800, max: 1500, reference: 1200}
    delivery_days: {min: 5, max: 14}
    upfront_pct: {min: 0, max: 100}
  monitor:
    price: {min: 150, max: 400}
    delivery_days: {min: 3, max: 10}
    upfront_pct: {min: 0, max: 50}
bundles:
  office:
    items: [laptop, monitor]
    requests:
      - {item: laptop, quantity: 5}
      - {item: monitor, quantity: 3, min_quantity: 2, max_quantity: 4}
    delivery_days: {min: 7, max: 21}
    bulk_discounts: {5: 10, 10: 20}
agents:
  sellers:
    s1: {provider: stub, urgency: 0.4, term_weights: {price: 0.6, delivery_days: 0.2, upfront_pct: 0.2}}
  buyers:
    b1: {provider: stub, urgency: 0.7, term_weights: {price: 0.5, delivery_days: 0.3, upfront_pct: 0.2}}
    b2: {provider: stub, urgency: 0.3}
negotiations:
  - id: deal1
    seller: s1
    buyers: [b1, b2]
    item: laptop
    max_turns: 5
  - id: bulk1
    seller: s1
    buyers: [b1]
    bundle: office
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario_valid(t *testing.T) {
	t.Parallel()
	sc, err := LoadScenario(writeScenario(t, validScenario))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if len(sc.Items) != 2 || len(sc.Negotiations) != 2 {
		t.Fatalf("scenario = %d items, %d negotiations", len(sc.Items), len(sc.Negotiations))
	}
	if got := sc.Items["laptop"].Price.Maximum; got != 1500 {
		t.Fatalf("laptop price max = %v", got)
	}

	mt, err := sc.MultiTermsFor("office")
	if err != nil {
		t.Fatalf("MultiTermsFor: %v", err)
	}
	if len(mt.Items) != 2 || len(mt.Requests) != 2 {
		t.Fatalf("bundle terms = %+v", mt)
	}
	if mt.GlobalDeliveryDays == nil || mt.GlobalDeliveryDays.Maximum != 21 {
		t.Fatalf("bundle delivery range = %+v", mt.GlobalDeliveryDays)
	}
	if mt.BulkDiscountTiers[10] != 20 {
		t.Fatalf("bundle tiers = %+v", mt.BulkDiscountTiers)
	}
}

func TestLoadScenario_rejectsInvalid(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			"inverted range",
			func(s string) string { return strings.Replace(s, "{min: 800, max: 1500, reference: 1200}", "{min: 1500, max: 800}", 1) },
			"minimum",
		},
		{
			"unknown item",
			func(s string) string { return strings.Replace(s, "item: laptop\n", "item: yacht\n", 1) },
			"unknown item",
		},
		{
			"unknown seller",
			func(s string) string { return strings.Replace(s, "seller: s1\n", "seller: ghost\n", 1) },
			"unknown seller",
		},
		{
			"unknown provider",
			func(s string) string { return strings.Replace(s, "{provider: stub, urgency: 0.4", "{provider: psychic, urgency: 0.4", 1) },
			"unknown provider",
		},
		{
			"item and bundle together",
			func(s string) string { return strings.Replace(s, "bundle: office", "bundle: office\n    item: laptop", 1) },
			"mutually exclusive",
		},
		{
			"duplicate negotiation id",
			func(s string) string { return strings.Replace(s, "id: bulk1", "id: deal1", 1) },
			"duplicate",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadScenario(writeScenario(t, tc.mutate(validScenario)))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadScenario_missingFile(t *testing.T) {
	t.Parallel()
	if _, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
