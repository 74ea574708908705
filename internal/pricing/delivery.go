package pricing

import "github.com/shopspring/decimal"

// Default delivery policy values, in currency units
const (
	DefaultFreeShippingThreshold = 50000
	DefaultFlatDeliveryFee       = 3000
)

// DeliveryPolicy decides the delivery fee for a given merchandise total
type DeliveryPolicy struct {
	FreeShippingThreshold decimal.Decimal
	FlatFee               decimal.Decimal
}

// DefaultDeliveryPolicy returns the stock threshold/fee pair
func DefaultDeliveryPolicy() DeliveryPolicy {
	return DeliveryPolicy{
		FreeShippingThreshold: decimal.NewFromInt(DefaultFreeShippingThreshold),
		FlatFee:               decimal.NewFromInt(DefaultFlatDeliveryFee),
	}
}

// Fee returns zero when total reaches the free-shipping threshold,
// otherwise the flat fee.
func (p DeliveryPolicy) Fee(total decimal.Decimal) decimal.Decimal {
	if total.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return clamp(p.FlatFee)
}

// IsFree reports whether the total qualifies for free delivery
func (p DeliveryPolicy) IsFree(total decimal.Decimal) bool {
	return total.GreaterThanOrEqual(p.FreeShippingThreshold)
}

// RemainingForFreeShipping returns how much more must be spent to reach the
// threshold, or zero when it is already reached.
func (p DeliveryPolicy) RemainingForFreeShipping(total decimal.Decimal) decimal.Decimal {
	if p.IsFree(total) {
		return decimal.Zero
	}
	return p.FreeShippingThreshold.Sub(total)
}
