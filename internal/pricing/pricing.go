// Package pricing holds the money arithmetic shared by carts and orders.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Line is a priced quantity of a single product
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal returns unit price × quantity
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CalculateTotalAmount sums unit price × quantity over all lines
func CalculateTotalAmount(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// CalculateFinalAmount returns total − discount + deliveryFee.
// A negative discount or fee counts as zero.
func CalculateFinalAmount(total, discount, deliveryFee decimal.Decimal) decimal.Decimal {
	return total.Sub(clamp(discount)).Add(clamp(deliveryFee))
}

func clamp(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Amounts is the monetary state of an order. The final amount is derived on
// every change, so it can never be stale relative to its inputs.
type Amounts struct {
	total       decimal.Decimal
	discount    decimal.Decimal
	deliveryFee decimal.Decimal
	final       decimal.Decimal
}

// NewAmounts builds an Amounts value, clamping negative discount and fee to zero
func NewAmounts(total, discount, deliveryFee decimal.Decimal) Amounts {
	a := Amounts{
		total:       total,
		discount:    clamp(discount),
		deliveryFee: clamp(deliveryFee),
	}
	a.final = CalculateFinalAmount(a.total, a.discount, a.deliveryFee)
	return a
}

func (a Amounts) Total() decimal.Decimal       { return a.total }
func (a Amounts) Discount() decimal.Decimal    { return a.discount }
func (a Amounts) DeliveryFee() decimal.Decimal { return a.deliveryFee }
func (a Amounts) Final() decimal.Decimal       { return a.final }

// WithDiscount returns a copy with a new discount and a recomputed final amount
func (a Amounts) WithDiscount(discount decimal.Decimal) Amounts {
	return NewAmounts(a.total, discount, a.deliveryFee)
}

// WithDeliveryFee returns a copy with a new fee and a recomputed final amount
func (a Amounts) WithDeliveryFee(fee decimal.Decimal) Amounts {
	return NewAmounts(a.total, a.discount, fee)
}
