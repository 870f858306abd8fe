// Package terms models the negotiable dimensions of a deal: acceptable
// ranges for price, delivery and upfront payment, per-item quantity
// requests, and multi-item bundles with bulk discount tiers.
package terms

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups for items absent from a bundle.
var ErrNotFound = errors.New("not found")

// Range is a closed interval of acceptable values for one negotiable
// dimension. Reference is an optional target used for reporting only;
// it never affects scoring or scheduling.
type Range struct {
	Minimum   float64 `yaml:"min" json:"min"`
	Maximum   float64 `yaml:"max" json:"max"`
	Reference float64 `yaml:"reference,omitempty" json:"reference,omitempty"`
}

// Validate reports an error when the interval is inverted. Equal bounds
// are legal (they make normalization constant).
func (r Range) Validate() error {
	if r.Minimum > r.Maximum {
		return fmt.Errorf("range minimum %v exceeds maximum %v", r.Minimum, r.Maximum)
	}
	return nil
}

// Width returns Maximum - Minimum.
func (r Range) Width() float64 { return r.Maximum - r.Minimum }

// ItemTerms is one party's constraint envelope for a single item.
// Name and Category are descriptive only.
type ItemTerms struct {
	Price        Range  `yaml:"price" json:"price"`
	DeliveryDays Range  `yaml:"delivery_days" json:"delivery_days"`
	UpfrontPct   Range  `yaml:"upfront_pct" json:"upfront_pct"`
	Name         string `yaml:"name,omitempty" json:"name,omitempty"`
	Category     string `yaml:"category,omitempty" json:"category,omitempty"`
}

// Validate checks all three ranges.
func (t ItemTerms) Validate() error {
	if err := t.Price.Validate(); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	if err := t.DeliveryDays.Validate(); err != nil {
		return fmt.Errorf("delivery_days: %w", err)
	}
	if err := t.UpfrontPct.Validate(); err != nil {
		return fmt.Errorf("upfront_pct: %w", err)
	}
	return nil
}

// ItemRequest is a buyer's desired quantity of one item inside a
// multi-item deal. MinQuantity/MaxQuantity are optional flexibility
// bounds around Quantity.
type ItemRequest struct {
	ItemID      string `yaml:"item" json:"item"`
	Quantity    int    `yaml:"quantity" json:"quantity"`
	MinQuantity *int   `yaml:"min_quantity,omitempty" json:"min_quantity,omitempty"`
	MaxQuantity *int   `yaml:"max_quantity,omitempty" json:"max_quantity,omitempty"`
}

// Validate enforces min <= quantity <= max for whichever bounds are set.
func (r ItemRequest) Validate() error {
	if r.Quantity < 0 {
		return fmt.Errorf("item %q: negative quantity %d", r.ItemID, r.Quantity)
	}
	if r.MinQuantity != nil && *r.MinQuantity > r.Quantity {
		return fmt.Errorf("item %q: min_quantity %d exceeds quantity %d", r.ItemID, *r.MinQuantity, r.Quantity)
	}
	if r.MaxQuantity != nil && *r.MaxQuantity < r.Quantity {
		return fmt.Errorf("item %q: max_quantity %d below quantity %d", r.ItemID, *r.MaxQuantity, r.Quantity)
	}
	return nil
}

// minQty returns the lower quantity bound, falling back to Quantity.
func (r ItemRequest) minQty() int {
	if r.MinQuantity != nil {
		return *r.MinQuantity
	}
	return r.Quantity
}

// maxQty returns the upper quantity bound, falling back to Quantity.
func (r ItemRequest) maxQty() int {
	if r.MaxQuantity != nil {
		return *r.MaxQuantity
	}
	return r.Quantity
}

// MultiItemTerms is a composite deal over several items. The optional
// global ranges override the per-item delivery/upfront envelopes for
// the deal as a whole. BulkDiscountTiers maps a minimum total quantity
// to a discount percentage.
type MultiItemTerms struct {
	Items              map[string]ItemTerms `yaml:"items" json:"items"`
	Requests           []ItemRequest        `yaml:"requests" json:"requests"`
	GlobalDeliveryDays *Range               `yaml:"delivery_days,omitempty" json:"delivery_days,omitempty"`
	GlobalUpfrontPct   *Range               `yaml:"upfront_pct,omitempty" json:"upfront_pct,omitempty"`
	BulkDiscountTiers  map[int]float64      `yaml:"bulk_discounts,omitempty" json:"bulk_discounts,omitempty"`
}

// Validate checks every item envelope, every request, and that each
// request references a known item.
func (m MultiItemTerms) Validate() error {
	for id, it := range m.Items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("item %q: %w", id, err)
		}
	}
	for _, req := range m.Requests {
		if err := req.Validate(); err != nil {
			return err
		}
		if _, ok := m.Items[req.ItemID]; !ok {
			return fmt.Errorf("request references unknown item %q", req.ItemID)
		}
	}
	if m.GlobalDeliveryDays != nil {
		if err := m.GlobalDeliveryDays.Validate(); err != nil {
			return fmt.Errorf("delivery_days: %w", err)
		}
	}
	if m.GlobalUpfrontPct != nil {
		if err := m.GlobalUpfrontPct.Validate(); err != nil {
			return fmt.Errorf("upfront_pct: %w", err)
		}
	}
	for qty, pct := range m.BulkDiscountTiers {
		if qty < 0 || pct < 0 || pct > 100 {
			return fmt.Errorf("bulk discount tier %d: invalid percentage %v", qty, pct)
		}
	}
	return nil
}

// ItemTermsFor returns the constraint envelope for itemID.
func (m MultiItemTerms) ItemTermsFor(itemID string) (ItemTerms, error) {
	it, ok := m.Items[itemID]
	if !ok {
		return ItemTerms{}, fmt.Errorf("item terms %q: %w", itemID, ErrNotFound)
	}
	return it, nil
}

// RequestFor returns the quantity request for itemID.
func (m MultiItemTerms) RequestFor(itemID string) (ItemRequest, error) {
	for _, req := range m.Requests {
		if req.ItemID == itemID {
			return req, nil
		}
	}
	return ItemRequest{}, fmt.Errorf("item request %q: %w", itemID, ErrNotFound)
}

// TotalPriceRange sums each requested item's price bounds scaled by the
// matching quantity bound: the minimum pairs min price with min
// quantity, the maximum pairs max price with max quantity. Requests for
// items with no envelope contribute nothing. An empty request list
// yields a zero-width range at zero.
func (m MultiItemTerms) TotalPriceRange() Range {
	var total Range
	for _, req := range m.Requests {
		it, ok := m.Items[req.ItemID]
		if !ok {
			continue
		}
		total.Minimum += it.Price.Minimum * float64(req.minQty())
		total.Maximum += it.Price.Maximum * float64(req.maxQty())
		total.Reference += it.Price.Reference * float64(req.Quantity)
	}
	return total
}

// TotalQuantity sums the requested quantities.
func (m MultiItemTerms) TotalQuantity() int {
	var n int
	for _, req := range m.Requests {
		n += req.Quantity
	}
	return n
}

// DiscountFor returns the percentage of the highest discount tier whose
// threshold is met by totalQuantity, and the threshold itself. A zero
// return means no tier applies.
func (m MultiItemTerms) DiscountFor(totalQuantity int) (pct float64, threshold int) {
	threshold = -1
	for qty, p := range m.BulkDiscountTiers {
		// Best-matching tier: largest threshold not exceeding the total.
		if totalQuantity >= qty && qty > threshold {
			threshold = qty
			pct = p
		}
	}
	if threshold < 0 {
		threshold = 0
	}
	return pct, threshold
}
