// Package scoring converts agreed terms into 0-1 scores for each party,
// weighted by that party's term importance. Sellers score toward range
// maxima, buyers toward minima.
package scoring

import (
	"math"

	"github.com/mfalcon/negotia/internal/terms"
	"github.com/mfalcon/negotia/pkg/models"
)

// Normalize maps value into [0,1] relative to [lo,hi]. When maximize is
// false the result is inverted. A degenerate range (hi == lo) yields 0
// for both directions: it never rewards either side.
func Normalize(value, lo, hi float64, maximize bool) float64 {
	if hi == lo {
		return 0
	}
	pct := (value - lo) / (hi - lo)
	if maximize {
		return pct
	}
	return 1 - pct
}

// ScoreAgent scores an agreed single-item outcome for one role. agreed
// carries the price, delivery_days and upfront_pct dimensions; weights
// need not sum to 1 (callers normalize if they want a bounded result).
// The score is rounded to 3 decimals.
func ScoreAgent(role string, agreed map[string]float64, t terms.ItemTerms, weights map[string]float64) float64 {
	maximize := role == models.RoleSeller

	score := weights[models.TermPrice] * Normalize(
		agreed[models.TermPrice], t.Price.Minimum, t.Price.Maximum, maximize)
	score += weights[models.TermDeliveryDays] * Normalize(
		agreed[models.TermDeliveryDays], t.DeliveryDays.Minimum, t.DeliveryDays.Maximum, maximize)
	score += weights[models.TermUpfrontPct] * Normalize(
		agreed[models.TermUpfrontPct], t.UpfrontPct.Minimum, t.UpfrontPct.Maximum, maximize)
	return round3(score)
}

// ItemAgreement is one item's agreed unit price and quantity inside a
// multi-item deal.
type ItemAgreement struct {
	UnitPrice float64
	Quantity  int
}

// AggregateOutcome is the deal-level view of a multi-item agreement.
type AggregateOutcome struct {
	TotalPrice    float64 // after discount
	GrossPrice    float64 // before discount
	TotalQuantity int
	DiscountPct   float64
	DiscountTier  int
}

// AggregateMultiItemOutcome sums price*quantity across items, then
// applies the best-matching bulk discount tier (the largest threshold
// not exceeding the total quantity).
func AggregateMultiItemOutcome(perItem map[string]ItemAgreement, m terms.MultiItemTerms) AggregateOutcome {
	var out AggregateOutcome
	for _, a := range perItem {
		out.GrossPrice += a.UnitPrice * float64(a.Quantity)
		out.TotalQuantity += a.Quantity
	}
	out.DiscountPct, out.DiscountTier = m.DiscountFor(out.TotalQuantity)
	out.TotalPrice = out.GrossPrice * (1 - out.DiscountPct/100)
	return out
}

// ScoreMultiItem scores a multi-item agreement for one role using
// aggregate quantities: the discounted total price against the deal's
// total price range, and delivery/upfront against the deal-wide range
// when present, else the first requested item's own range.
func ScoreMultiItem(role string, out AggregateOutcome, agreedDelivery, agreedUpfront float64, m terms.MultiItemTerms, weights map[string]float64) float64 {
	maximize := role == models.RoleSeller

	priceRange := m.TotalPriceRange()
	deliveryRange, upfrontRange := fallbackRanges(m)

	score := weights[models.TermPrice] * Normalize(
		out.TotalPrice, priceRange.Minimum, priceRange.Maximum, maximize)
	score += weights[models.TermDeliveryDays] * Normalize(
		agreedDelivery, deliveryRange.Minimum, deliveryRange.Maximum, maximize)
	score += weights[models.TermUpfrontPct] * Normalize(
		agreedUpfront, upfrontRange.Minimum, upfrontRange.Maximum, maximize)
	return round3(score)
}

// fallbackRanges resolves the delivery and upfront envelopes for a deal:
// the global range wins; otherwise the first requested item's own range.
// Deterministic by request order, never an average across items.
func fallbackRanges(m terms.MultiItemTerms) (delivery, upfront terms.Range) {
	if m.GlobalDeliveryDays != nil {
		delivery = *m.GlobalDeliveryDays
	} else if len(m.Requests) > 0 {
		if it, err := m.ItemTermsFor(m.Requests[0].ItemID); err == nil {
			delivery = it.DeliveryDays
		}
	}
	if m.GlobalUpfrontPct != nil {
		upfront = *m.GlobalUpfrontPct
	} else if len(m.Requests) > 0 {
		if it, err := m.ItemTermsFor(m.Requests[0].ItemID); err == nil {
			upfront = it.UpfrontPct
		}
	}
	return delivery, upfront
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
