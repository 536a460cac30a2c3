package item

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/jrsteele09/go-market-console/apierror"
	"github.com/jrsteele09/go-market-console/pricing"
)

// QuantityTier is a volume-discount rule: a flat unit price at or above a
// minimum purchase quantity. Tiers are informational for display; they
// never feed the effective-price computation.
type QuantityTier struct {
	MinQuantity int     `json:"quantity"`
	UnitPrice   float64 `json:"price"`
}

// Item is one product of the tenant's catalog.
type Item struct {
	ID              string         `json:"id"`
	CategoryID      string         `json:"category"`
	Name            string         `json:"name"`
	ImageRef        string         `json:"image,omitempty"`
	BasePrice       float64        `json:"price"`
	DiscountPercent *float64       `json:"discount,omitempty"`
	PromotionEndsAt *time.Time     `json:"promotionEnd,omitempty"`
	Description     string         `json:"description,omitempty"`
	Weight          float64        `json:"weight,omitempty"`
	Unit            string         `json:"unit,omitempty"`
	StockQuantity   int            `json:"stockQuantity"`
	TenantID        string         `json:"supermarket"`
	QuantityTiers   []QuantityTier `json:"quantityOffers,omitempty"`
}

// EffectivePrice is the price shown to a buyer at the given instant, with
// any active promotional discount applied. Always within [0, BasePrice].
func (it Item) EffectivePrice(now time.Time) float64 {
	return pricing.Effective(it.BasePrice, it.DiscountPercent, it.PromotionEndsAt, now)
}

// TierFor returns the best applicable quantity tier for a purchase
// quantity, or false when no tier applies. Display-only.
func (it Item) TierFor(quantity int) (QuantityTier, bool) {
	var best QuantityTier
	found := false
	for _, tier := range it.QuantityTiers {
		if quantity >= tier.MinQuantity && (!found || tier.MinQuantity > best.MinQuantity) {
			best = tier
			found = true
		}
	}
	return best, found
}

// Draft is the mutable attribute set submitted on create and update. Nil
// fields are omitted from the multipart payload.
type Draft struct {
	Name            *string
	CategoryID      *string
	BasePrice       *float64
	DiscountPercent *float64
	PromotionEndsAt *time.Time
	Description     *string
	Weight          *float64
	Unit            *string
	StockQuantity   *int
	QuantityTiers   []QuantityTier
}

// Validate checks the draft before any network call. Quantity tiers must
// have unique, strictly increasing minimum quantities; prices must not be
// negative.
func (d Draft) Validate() error {
	if d.BasePrice != nil && *d.BasePrice < 0 {
		return &apierror.ValidationError{Field: "price", Reason: "price must not be negative"}
	}
	if d.DiscountPercent != nil && (*d.DiscountPercent < 0 || *d.DiscountPercent > 100) {
		return &apierror.ValidationError{Field: "discount", Reason: "discount must be between 0 and 100"}
	}
	lastMin := -1
	for _, tier := range d.QuantityTiers {
		if tier.MinQuantity <= 0 {
			return &apierror.ValidationError{Field: "quantityOffers", Reason: "tier quantity must be positive"}
		}
		if tier.UnitPrice < 0 {
			return &apierror.ValidationError{Field: "quantityOffers", Reason: "tier price must not be negative"}
		}
		if tier.MinQuantity <= lastMin {
			return &apierror.ValidationError{Field: "quantityOffers", Reason: "tier quantities must be unique and ascending"}
		}
		lastMin = tier.MinQuantity
	}
	return nil
}

// Fields flattens the draft into multipart form fields: every non-nil
// field is serialized as a string, the promotion end as RFC 3339 and the
// quantity tiers as a single JSON string field the remote service parses
// back into structured data.
func (d Draft) Fields() (map[string]string, error) {
	fields := make(map[string]string)
	if d.Name != nil {
		fields["name"] = *d.Name
	}
	if d.CategoryID != nil {
		fields["category"] = *d.CategoryID
	}
	if d.BasePrice != nil {
		fields["price"] = formatFloat(*d.BasePrice)
	}
	if d.DiscountPercent != nil {
		fields["discount"] = formatFloat(*d.DiscountPercent)
	}
	if d.PromotionEndsAt != nil {
		fields["promotionEnd"] = d.PromotionEndsAt.UTC().Format(time.RFC3339)
	}
	if d.Description != nil {
		fields["description"] = *d.Description
	}
	if d.Weight != nil {
		fields["weight"] = formatFloat(*d.Weight)
	}
	if d.Unit != nil {
		fields["unit"] = *d.Unit
	}
	if d.StockQuantity != nil {
		fields["stockQuantity"] = strconv.Itoa(*d.StockQuantity)
	}
	if d.QuantityTiers != nil {
		encoded, err := json.Marshal(d.QuantityTiers)
		if err != nil {
			return nil, &apierror.ValidationError{Field: "quantityOffers", Reason: err.Error()}
		}
		fields["quantityOffers"] = string(encoded)
	}
	return fields, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
