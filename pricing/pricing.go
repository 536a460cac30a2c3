// Package pricing resolves the effective price of a catalog item at a given
// instant. Promotional state is modelled as an explicit variant rather than
// ad-hoc optional-field inspection: an item is either flat-priced or carries
// a discount with an expiry.
package pricing

import "time"

// Pricing is the promotional state of an item. It is one of Flat or
// Discounted.
type Pricing interface {
	// Resolve returns the effective unit price at the given instant.
	Resolve(now time.Time) float64
}

// Flat is a price with no active promotion.
type Flat struct {
	Base float64
}

// Discounted is a base price with a percentage discount that applies until
// ExpiresAt (inclusive).
type Discounted struct {
	Base      float64
	Percent   float64
	ExpiresAt time.Time
}

// Resolve implements Pricing.
func (f Flat) Resolve(time.Time) float64 {
	return clamp(f.Base, f.Base)
}

// Resolve implements Pricing. An expired discount resolves to the base
// price; an active one applies the percentage. The result never leaves the
// interval [0, Base].
func (d Discounted) Resolve(now time.Time) float64 {
	if now.After(d.ExpiresAt) {
		return clamp(d.Base, d.Base)
	}
	return clamp(d.Base*(1-d.Percent/100), d.Base)
}

// Classify maps an item's raw promotional fields onto a Pricing variant.
// A discount counts only when both the percentage and the promotion end are
// present and the percentage is positive; a zero percentage is "no discount"
// even though it is distinct from an absent one.
func Classify(base float64, discountPercent *float64, promotionEndsAt *time.Time) Pricing {
	if discountPercent == nil || promotionEndsAt == nil || *discountPercent <= 0 {
		return Flat{Base: base}
	}
	return Discounted{Base: base, Percent: *discountPercent, ExpiresAt: *promotionEndsAt}
}

// Effective is the one-call form of Classify + Resolve.
func Effective(base float64, discountPercent *float64, promotionEndsAt *time.Time, now time.Time) float64 {
	return Classify(base, discountPercent, promotionEndsAt).Resolve(now)
}

// clamp bounds a computed price to [0, base]. Malformed discount input
// (negative results, percentages above 100) must never surface as a
// negative or inflated price.
func clamp(price, base float64) float64 {
	if base < 0 {
		return 0
	}
	if price < 0 {
		return 0
	}
	if price > base {
		return base
	}
	return price
}
