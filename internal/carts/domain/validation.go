package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	catalog "go-commerce/internal/catalog/domain"
	"go-commerce/internal/pricing"
)

// ItemValidation is the advisory verdict for one cart line
type ItemValidation struct {
	ItemID         uint
	ProductID      uint
	Quantity       int
	UnitPrice      decimal.Decimal
	CurrentPrice   decimal.Decimal
	AvailableStock int
	ProductStatus  catalog.ProductStatus
	StockAvailable bool
	PriceChanged   bool
	Warning        string
}

// HasIssue reports whether either axis flagged the line
func (v ItemValidation) HasIssue() bool {
	return !v.StockAvailable || v.PriceChanged
}

// ValidationReport summarises a cart against live catalog data. It never
// blocks anything by itself; callers decide how to act on it.
type ValidationReport struct {
	CartID                   uint
	Items                    []ItemValidation
	HasIssues                bool
	IssueCount               int
	TotalItems               int
	TotalPrice               decimal.Decimal
	DeliveryFee              decimal.Decimal
	EstimatedTotal           decimal.Decimal
	// RemainingForFreeShipping is how much more merchandise waives the fee
	RemainingForFreeShipping decimal.Decimal
}

// UnavailableItems returns the lines flagged as out of stock or not on sale
func (r ValidationReport) UnavailableItems() []ItemValidation {
	var out []ItemValidation
	for _, item := range r.Items {
		if !item.StockAvailable {
			out = append(out, item)
		}
	}
	return out
}

// PriceChangedItems returns the lines whose snapshot price drifted
func (r ValidationReport) PriceChangedItems() []ItemValidation {
	var out []ItemValidation
	for _, item := range r.Items {
		if item.PriceChanged {
			out = append(out, item)
		}
	}
	return out
}

// Validate classifies every line along two independent axes: stock
// availability (quantity within stock and product ACTIVE) and price drift
// (snapshot unit price differs from the current price, compared exactly).
// products holds live snapshots keyed by product ID; a missing entry means
// the product no longer exists.
func Validate(cart Cart, products map[uint]catalog.Product, policy pricing.DeliveryPolicy) ValidationReport {
	report := ValidationReport{
		CartID:     cart.ID,
		Items:      make([]ItemValidation, 0, len(cart.items)),
		TotalItems: cart.TotalItems(),
		TotalPrice: cart.TotalPrice(),
	}

	for _, item := range cart.items {
		v := validateItem(item, products)
		if v.HasIssue() {
			report.IssueCount++
		}
		report.Items = append(report.Items, v)
	}
	report.HasIssues = report.IssueCount > 0

	report.DeliveryFee = decimal.Zero
	if !cart.IsEmpty() {
		report.DeliveryFee = policy.Fee(report.TotalPrice)
	}
	report.EstimatedTotal = pricing.CalculateFinalAmount(report.TotalPrice, decimal.Zero, report.DeliveryFee)
	report.RemainingForFreeShipping = policy.RemainingForFreeShipping(report.TotalPrice)

	return report
}

func validateItem(item CartItem, products map[uint]catalog.Product) ItemValidation {
	v := ItemValidation{
		ItemID:    item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
	}

	product, ok := products[item.ProductID]
	if !ok {
		v.CurrentPrice = item.UnitPrice
		v.Warning = "product is no longer available"
		return v
	}

	v.CurrentPrice = product.Price
	v.AvailableStock = product.StockQuantity
	v.ProductStatus = product.Status
	v.StockAvailable = product.IsSellable() && product.HasStock(item.Quantity)
	v.PriceChanged = !item.UnitPrice.Equal(product.Price)

	var warnings []string
	switch {
	case !product.IsSellable():
		warnings = append(warnings, fmt.Sprintf("product is not on sale (%s)", product.Status))
	case !product.HasStock(item.Quantity):
		warnings = append(warnings, fmt.Sprintf("only %d left in stock", product.StockQuantity))
	}
	if v.PriceChanged {
		warnings = append(warnings, fmt.Sprintf("price changed from %s to %s", item.UnitPrice.String(), product.Price.String()))
	}
	v.Warning = strings.Join(warnings, "; ")

	return v
}
