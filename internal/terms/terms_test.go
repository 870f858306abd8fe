package terms

import (
	"errors"
	"testing"
)

func intp(n int) *int { return &n }

func TestRange_Validate(t *testing.T) {
	t.Parallel()
	if err := (Range{Minimum: 1, Maximum: 2}).Validate(); err != nil {
		t.Fatalf("valid range: %v", err)
	}
	if err := (Range{Minimum: 2, Maximum: 2}).Validate(); err != nil {
		t.Fatalf("degenerate range should be legal: %v", err)
	}
	if err := (Range{Minimum: 3, Maximum: 2}).Validate(); err == nil {
		t.Fatal("inverted range should fail validation")
	}
}

func TestItemRequest_Validate(t *testing.T) {
	t.Parallel()
	ok := ItemRequest{ItemID: "a", Quantity: 5, MinQuantity: intp(2), MaxQuantity: intp(8)}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid request: %v", err)
	}
	bad := ItemRequest{ItemID: "a", Quantity: 5, MinQuantity: intp(6)}
	if err := bad.Validate(); err == nil {
		t.Fatal("min_quantity above quantity should fail")
	}
	bad = ItemRequest{ItemID: "a", Quantity: 5, MaxQuantity: intp(4)}
	if err := bad.Validate(); err == nil {
		t.Fatal("max_quantity below quantity should fail")
	}
}

func testBundle() MultiItemTerms {
	return MultiItemTerms{
		Items: map[string]ItemTerms{
			"widgetA": {
				Price:        Range{Minimum: 80, Maximum: 120},
				DeliveryDays: Range{Minimum: 5, Maximum: 14},
				UpfrontPct:   Range{Minimum: 0, Maximum: 100},
			},
			"widgetB": {
				Price:        Range{Minimum: 40, Maximum: 60},
				DeliveryDays: Range{Minimum: 3, Maximum: 10},
				UpfrontPct:   Range{Minimum: 0, Maximum: 50},
			},
		},
		Requests: []ItemRequest{
			{ItemID: "widgetA", Quantity: 5},
			{ItemID: "widgetB", Quantity: 3, MinQuantity: intp(2), MaxQuantity: intp(4)},
		},
		BulkDiscountTiers: map[int]float64{5: 10, 10: 20},
	}
}

func TestTotalPriceRange(t *testing.T) {
	t.Parallel()
	b := testBundle()
	got := b.TotalPriceRange()
	// min: 80*5 + 40*2 = 480, max: 120*5 + 60*4 = 840
	if got.Minimum != 480 {
		t.Fatalf("minimum = %v, want 480", got.Minimum)
	}
	if got.Maximum != 840 {
		t.Fatalf("maximum = %v, want 840", got.Maximum)
	}
}

func TestTotalPriceRange_empty(t *testing.T) {
	t.Parallel()
	var b MultiItemTerms
	got := b.TotalPriceRange()
	if got.Minimum != 0 || got.Maximum != 0 {
		t.Fatalf("empty bundle should yield zero-width range at zero, got %+v", got)
	}
}

func TestLookups(t *testing.T) {
	t.Parallel()
	b := testBundle()
	if _, err := b.ItemTermsFor("widgetA"); err != nil {
		t.Fatalf("ItemTermsFor: %v", err)
	}
	if _, err := b.ItemTermsFor("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	req, err := b.RequestFor("widgetB")
	if err != nil {
		t.Fatalf("RequestFor: %v", err)
	}
	if req.Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", req.Quantity)
	}
	if _, err := b.RequestFor("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDiscountFor(t *testing.T) {
	t.Parallel()
	b := testBundle()
	cases := []struct {
		qty       int
		wantPct   float64
		wantTier  int
	}{
		{0, 0, 0},
		{4, 0, 0},
		{5, 10, 5},
		{8, 10, 5},
		{10, 20, 10},
		{50, 20, 10},
	}
	for _, c := range cases {
		pct, tier := b.DiscountFor(c.qty)
		if pct != c.wantPct || tier != c.wantTier {
			t.Fatalf("DiscountFor(%d) = (%v, %d), want (%v, %d)", c.qty, pct, tier, c.wantPct, c.wantTier)
		}
	}
}

func TestDiscountFor_monotonic(t *testing.T) {
	t.Parallel()
	b := testBundle()
	prev := 0.0
	for qty := 0; qty <= 20; qty++ {
		pct, _ := b.DiscountFor(qty)
		if pct < prev {
			t.Fatalf("discount decreased at quantity %d: %v -> %v", qty, prev, pct)
		}
		prev = pct
	}
}

func TestMultiItemTerms_Validate(t *testing.T) {
	t.Parallel()
	b := testBundle()
	if err := b.Validate(); err != nil {
		t.Fatalf("valid bundle: %v", err)
	}
	b.Requests = append(b.Requests, ItemRequest{ItemID: "ghost", Quantity: 1})
	if err := b.Validate(); err == nil {
		t.Fatal("request for unknown item should fail validation")
	}
}
