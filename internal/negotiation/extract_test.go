package negotiation

import (
	"testing"

	"github.com/mfalcon/negotia/internal/terms"
)

func singleSession() *Negotiation {
	return New("deal1_b1", "s1", "b1", "laptop", laptopTerms(), 5)
}

func bundleSession() *Negotiation {
	mt := terms.MultiItemTerms{
		Items: map[string]terms.ItemTerms{
			"widgetA": {
				Price:        terms.Range{Minimum: 80, Maximum: 120},
				DeliveryDays: terms.Range{Minimum: 5, Maximum: 14},
				UpfrontPct:   terms.Range{Minimum: 0, Maximum: 100},
			},
			"widgetB": {
				Price:        terms.Range{Minimum: 40, Maximum: 60},
				DeliveryDays: terms.Range{Minimum: 3, Maximum: 10},
				UpfrontPct:   terms.Range{Minimum: 0, Maximum: 50},
			},
		},
		Requests: []terms.ItemRequest{
			{ItemID: "widgetA", Quantity: 5},
			{ItemID: "widgetB", Quantity: 3},
		},
		BulkDiscountTiers: map[int]float64{5: 10, 10: 20},
	}
	return NewMultiItem("deal2_b1", "s1", "b1", mt, 5)
}

func TestExtractTerms_single(t *testing.T) {
	t.Parallel()
	n := singleSession()
	a := ExtractTerms(n, "Done deal! price=1200, delivery=7, upfront=50")
	if a == nil {
		t.Fatal("expected agreement")
	}
	if a.Price != 1200 || a.DeliveryDays != 7 || a.UpfrontPct != 50 {
		t.Fatalf("agreed = %+v", a)
	}
}

func TestExtractTerms_singleCaseAndSpacing(t *testing.T) {
	t.Parallel()
	n := singleSession()
	a := ExtractTerms(n, "ok. PRICE = 1350.5, Delivery = 10, Upfront = 25")
	if a == nil {
		t.Fatal("expected agreement")
	}
	if a.Price != 1350.5 {
		t.Fatalf("price = %v, want 1350.5", a.Price)
	}
}

func TestExtractTerms_noSignal(t *testing.T) {
	t.Parallel()
	n := singleSession()
	for _, msg := range []string{
		"I could go as low as 1200 with a week of delivery.",
		"price=1200 and we can discuss the rest",     // partial
		"price=1200, delivery=7",                     // missing upfront
		"",
	} {
		if a := ExtractTerms(n, msg); a != nil {
			t.Fatalf("message %q should not parse as agreement: %+v", msg, a)
		}
	}
}

func TestExtractTerms_aggregate(t *testing.T) {
	t.Parallel()
	n := bundleSession()
	a := ExtractTerms(n, "Deal. total=585, quantity=8, delivery=10, upfront=30")
	if a == nil {
		t.Fatal("expected agreement")
	}
	if !a.Aggregate || a.TotalPrice != 585 || a.TotalQuantity != 8 {
		t.Fatalf("agreed = %+v", a)
	}
	if a.DeliveryDays != 10 || a.UpfrontPct != 30 {
		t.Fatalf("deal-wide scalars = %v/%v, want 10/30", a.DeliveryDays, a.UpfrontPct)
	}
}

func TestExtractTerms_perItem(t *testing.T) {
	t.Parallel()
	n := bundleSession()
	a := ExtractTerms(n, "Deal: 5 x widgetA @ 100, 3 x widgetB @ 50, delivery=10, upfront=30")
	if a == nil {
		t.Fatal("expected agreement")
	}
	if a.TotalQuantity != 8 {
		t.Fatalf("quantity = %d, want 8", a.TotalQuantity)
	}
	// 650 gross, tier 5 met -> 10% off.
	if a.TotalPrice != 585 {
		t.Fatalf("total = %v, want 585", a.TotalPrice)
	}
	if got := a.PerItem["widgetA"].UnitPrice; got != 100 {
		t.Fatalf("widgetA price = %v, want 100", got)
	}
}

func TestExtractTerms_perItemIncomplete(t *testing.T) {
	t.Parallel()
	n := bundleSession()
	// widgetB missing: all-or-nothing, never a guessed agreement.
	if a := ExtractTerms(n, "Deal: 5 x widgetA @ 100, delivery=10"); a != nil {
		t.Fatalf("incomplete per-item quote should not parse: %+v", a)
	}
}

func TestExtractTerms_dealWideDefaults(t *testing.T) {
	t.Parallel()
	n := bundleSession()
	a := ExtractTerms(n, "total=600, quantity=8")
	if a == nil {
		t.Fatal("expected agreement")
	}
	// Defaults: midpoint of the first requested item's envelopes
	// (widgetA delivery 5..14, upfront 0..100).
	if a.DeliveryDays != 9.5 || a.UpfrontPct != 50 {
		t.Fatalf("defaults = %v/%v, want 9.5/50", a.DeliveryDays, a.UpfrontPct)
	}
}
