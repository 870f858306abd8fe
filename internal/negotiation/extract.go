package negotiation

import (
	"regexp"
	"strconv"

	"github.com/mfalcon/negotia/internal/scoring"
	"github.com/mfalcon/negotia/internal/terms"
)

// Recognized agreement forms. The scalar form is what the prompt
// templates instruct agents to emit, e.g.
//
//	Done deal! price=1200, delivery=7, upfront=50
//
// Multi-item sessions additionally accept an aggregate form
//
//	Done deal! total=585, quantity=8, delivery=10, upfront=30
//
// and a per-item form
//
//	Done deal! 5 x widgetA @ 100, 3 x widgetB @ 50, delivery=10, upfront=30
var (
	reSingle   = regexp.MustCompile(`(?i)price\s*=\s*([\d.]+)[,;\s]+delivery\s*=\s*([\d.]+)[,;\s]+upfront\s*=\s*([\d.]+)`)
	reTotal    = regexp.MustCompile(`(?i)total\s*=\s*([\d.]+)[,;\s]+quantity\s*=\s*(\d+)`)
	rePerItem  = regexp.MustCompile(`(?i)(\d+)\s*x\s*([\w-]+)\s*@\s*([\d.]+)`)
	reDelivery = regexp.MustCompile(`(?i)delivery\s*=\s*([\d.]+)`)
	reUpfront  = regexp.MustCompile(`(?i)upfront\s*=\s*([\d.]+)`)
)

// ExtractTerms parses a turn's text for an explicit agreement matching
// the session's shape. A nil result is the normal non-terminal case:
// no recognized pattern, or a partially-recognized one, simply means
// the session continues. Registration is all-or-nothing; the per-item
// form must quote every requested item or it is ignored.
func ExtractTerms(n *Negotiation, msg string) *AgreedTerms {
	if n.IsMultiItem() {
		if a := extractAggregate(n, msg); a != nil {
			return a
		}
		return extractPerItem(n, msg)
	}
	return extractSingle(msg)
}

func extractSingle(msg string) *AgreedTerms {
	m := reSingle.FindStringSubmatch(msg)
	if m == nil {
		return nil
	}
	price, err1 := strconv.ParseFloat(m[1], 64)
	delivery, err2 := strconv.ParseFloat(m[2], 64)
	upfront, err3 := strconv.ParseFloat(m[3], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	return &AgreedTerms{Price: price, DeliveryDays: delivery, UpfrontPct: upfront}
}

func extractAggregate(n *Negotiation, msg string) *AgreedTerms {
	m := reTotal.FindStringSubmatch(msg)
	if m == nil {
		return nil
	}
	total, err1 := strconv.ParseFloat(m[1], 64)
	qty, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return nil
	}
	a := &AgreedTerms{TotalPrice: total, TotalQuantity: qty, Aggregate: true}
	a.DeliveryDays, a.UpfrontPct = dealWideScalars(n, msg)
	return a
}

func extractPerItem(n *Negotiation, msg string) *AgreedTerms {
	matches := rePerItem.FindAllStringSubmatch(msg, -1)
	if len(matches) == 0 {
		return nil
	}
	perItem := make(map[string]scoring.ItemAgreement, len(matches))
	for _, m := range matches {
		qty, err1 := strconv.Atoi(m[1])
		price, err2 := strconv.ParseFloat(m[3], 64)
		if err1 != nil || err2 != nil {
			return nil
		}
		perItem[m[2]] = scoring.ItemAgreement{UnitPrice: price, Quantity: qty}
	}
	// Incomplete quotes are not agreements: every requested item must
	// be priced.
	for _, req := range n.MultiTerms.Requests {
		if _, ok := perItem[req.ItemID]; !ok {
			return nil
		}
	}
	out := scoring.AggregateMultiItemOutcome(perItem, *n.MultiTerms)
	a := &AgreedTerms{
		PerItem:       perItem,
		TotalPrice:    out.TotalPrice,
		TotalQuantity: out.TotalQuantity,
		Aggregate:     true,
	}
	a.DeliveryDays, a.UpfrontPct = dealWideScalars(n, msg)
	return a
}

// dealWideScalars reads the optional delivery/upfront values of a
// multi-item agreement. When a value is not quoted, the midpoint of the
// deal's effective envelope is assumed.
func dealWideScalars(n *Negotiation, msg string) (delivery, upfront float64) {
	mt := *n.MultiTerms
	deliveryRange := mt.GlobalDeliveryDays
	upfrontRange := mt.GlobalUpfrontPct
	if len(mt.Requests) > 0 {
		if it, err := mt.ItemTermsFor(mt.Requests[0].ItemID); err == nil {
			if deliveryRange == nil {
				r := it.DeliveryDays
				deliveryRange = &r
			}
			if upfrontRange == nil {
				r := it.UpfrontPct
				upfrontRange = &r
			}
		}
	}
	delivery = midpoint(deliveryRange)
	upfront = midpoint(upfrontRange)
	if m := reDelivery.FindStringSubmatch(msg); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			delivery = v
		}
	}
	if m := reUpfront.FindStringSubmatch(msg); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			upfront = v
		}
	}
	return delivery, upfront
}

func midpoint(r *terms.Range) float64 {
	if r == nil {
		return 0
	}
	return (r.Minimum + r.Maximum) / 2
}
