package scoring

import (
	"testing"

	"github.com/mfalcon/negotia/internal/terms"
	"github.com/mfalcon/negotia/pkg/models"
)

func laptopTerms() terms.ItemTerms {
	return terms.ItemTerms{
		Price:        terms.Range{Minimum: 800, Maximum: 1500},
		DeliveryDays: terms.Range{Minimum: 5, Maximum: 14},
		UpfrontPct:   terms.Range{Minimum: 0, Maximum: 100},
	}
}

func defaultWeights() map[string]float64 {
	return map[string]float64{
		models.TermPrice:        0.6,
		models.TermDeliveryDays: 0.2,
		models.TermUpfrontPct:   0.2,
	}
}

func TestNormalize_bounds(t *testing.T) {
	t.Parallel()
	if got := Normalize(800, 800, 1500, true); got != 0 {
		t.Fatalf("normalize(min, maximize) = %v, want 0", got)
	}
	if got := Normalize(1500, 800, 1500, true); got != 1 {
		t.Fatalf("normalize(max, maximize) = %v, want 1", got)
	}
	if got := Normalize(800, 800, 1500, false); got != 1 {
		t.Fatalf("normalize(min, minimize) = %v, want 1", got)
	}
	if got := Normalize(1500, 800, 1500, false); got != 0 {
		t.Fatalf("normalize(max, minimize) = %v, want 0", got)
	}
}

func TestNormalize_degenerate(t *testing.T) {
	t.Parallel()
	// A collapsed range contributes zero to both roles.
	if got := Normalize(42, 42, 42, true); got != 0 {
		t.Fatalf("degenerate maximize = %v, want 0", got)
	}
	if got := Normalize(42, 42, 42, false); got != 0 {
		t.Fatalf("degenerate minimize = %v, want 0", got)
	}
}

func TestScoreAgent_extremes(t *testing.T) {
	t.Parallel()
	tm := laptopTerms()
	w := defaultWeights()
	atMax := map[string]float64{
		models.TermPrice:        1500,
		models.TermDeliveryDays: 14,
		models.TermUpfrontPct:   100,
	}
	if got := ScoreAgent(models.RoleSeller, atMax, tm, w); got != 1.0 {
		t.Fatalf("seller at envelope maxima = %v, want 1.0", got)
	}
	if got := ScoreAgent(models.RoleBuyer, atMax, tm, w); got != 0.0 {
		t.Fatalf("buyer at envelope maxima = %v, want 0.0", got)
	}
	atMin := map[string]float64{
		models.TermPrice:        800,
		models.TermDeliveryDays: 5,
		models.TermUpfrontPct:   0,
	}
	if got := ScoreAgent(models.RoleBuyer, atMin, tm, w); got != 1.0 {
		t.Fatalf("buyer at envelope minima = %v, want 1.0", got)
	}
}

func TestScoreAgent_midpoint(t *testing.T) {
	t.Parallel()
	tm := laptopTerms()
	w := defaultWeights()
	mid := map[string]float64{
		models.TermPrice:        1150,
		models.TermDeliveryDays: 9.5,
		models.TermUpfrontPct:   50,
	}
	s := ScoreAgent(models.RoleSeller, mid, tm, w)
	b := ScoreAgent(models.RoleBuyer, mid, tm, w)
	if s != 0.5 || b != 0.5 {
		t.Fatalf("midpoint scores = %v/%v, want 0.5/0.5", s, b)
	}
}

func bundle() terms.MultiItemTerms {
	return terms.MultiItemTerms{
		Items: itemEnvelopes(),
		Requests: []terms.ItemRequest{
			{ItemID: "widgetA", Quantity: 5},
			{ItemID: "widgetB", Quantity: 3},
		},
		BulkDiscountTiers: map[int]float64{5: 10, 10: 20},
	}
}

func itemEnvelopes() map[string]terms.ItemTerms {
	return map[string]terms.ItemTerms{
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
	}
}

func TestAggregateMultiItemOutcome(t *testing.T) {
	t.Parallel()
	m := bundle()
	out := AggregateMultiItemOutcome(map[string]ItemAgreement{
		"widgetA": {UnitPrice: 100, Quantity: 5},
		"widgetB": {UnitPrice: 50, Quantity: 3},
	}, m)
	if out.GrossPrice != 650 {
		t.Fatalf("gross = %v, want 650", out.GrossPrice)
	}
	if out.TotalQuantity != 8 {
		t.Fatalf("quantity = %d, want 8", out.TotalQuantity)
	}
	if out.DiscountPct != 10 || out.DiscountTier != 5 {
		t.Fatalf("discount = %v%% (tier %d), want 10%% (tier 5)", out.DiscountPct, out.DiscountTier)
	}
	if out.TotalPrice != 585 {
		t.Fatalf("total = %v, want 585", out.TotalPrice)
	}
}

func TestAggregateMultiItemOutcome_higherTier(t *testing.T) {
	t.Parallel()
	m := bundle()
	out := AggregateMultiItemOutcome(map[string]ItemAgreement{
		"widgetA": {UnitPrice: 100, Quantity: 8},
		"widgetB": {UnitPrice: 50, Quantity: 4},
	}, m)
	if out.DiscountPct != 20 || out.DiscountTier != 10 {
		t.Fatalf("discount = %v%% (tier %d), want 20%% (tier 10)", out.DiscountPct, out.DiscountTier)
	}
}

func TestScoreMultiItem_globalFallback(t *testing.T) {
	t.Parallel()
	m := bundle()
	// No global delivery/upfront: widgetA (first request) supplies them.
	out := AggregateOutcome{TotalPrice: m.TotalPriceRange().Maximum}
	w := defaultWeights()
	s := ScoreMultiItem(models.RoleSeller, out, 14, 100, m, w)
	if s != 1.0 {
		t.Fatalf("seller at aggregate maxima = %v, want 1.0", s)
	}
	// Deal-wide override changes the envelope used.
	m.GlobalDeliveryDays = &terms.Range{Minimum: 7, Maximum: 21}
	s = ScoreMultiItem(models.RoleSeller, out, 21, 100, m, w)
	if s != 1.0 {
		t.Fatalf("seller with global delivery at max = %v, want 1.0", s)
	}
}
