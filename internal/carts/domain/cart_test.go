package domain

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	catalog "go-commerce/internal/catalog/domain"
	"go-commerce/internal/pricing"
	"go-commerce/pkg/errors"
)

var now = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func product(id uint, price int64, stock int) catalog.Product {
	return catalog.Product{
		ID:            id,
		Name:          "product",
		Price:         decimal.NewFromInt(price),
		StockQuantity: stock,
		Status:        catalog.ProductStatusActive,
	}
}

func requireTotalsConsistent(t *testing.T, c Cart) {
	t.Helper()

	count := 0
	sum := decimal.Zero
	for _, item := range c.Items() {
		count += item.Quantity
		sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	require.Equal(t, count, c.TotalItems())
	require.True(t, sum.Equal(c.TotalPrice()), "cached %s, computed %s", c.TotalPrice(), sum)
}

func TestNewCartRequiresUser(t *testing.T) {
	t.Parallel()

	_, err := NewCart(0, now)
	require.True(t, errors.Is(err, errors.CodeValidation))

	c, err := NewCart(7, now)
	require.NoError(t, err)
	require.True(t, c.IsEmpty())
	require.True(t, c.TotalPrice().IsZero())
}

func TestAddItemMergesSameProduct(t *testing.T) {
	t.Parallel()

	c, err := NewCart(1, now)
	require.NoError(t, err)
	p := product(10, 20000, 5)

	c, err = c.AddItem(p, 2, 0, now)
	require.NoError(t, err)
	c, err = c.AddItem(p, 1, 0, now)
	require.NoError(t, err)

	require.Len(t, c.Items(), 1)
	require.Equal(t, 3, c.Items()[0].Quantity)
	require.Equal(t, 3, c.TotalItems())
	require.True(t, c.TotalPrice().Equal(decimal.NewFromInt(60000)))
	requireTotalsConsistent(t, c)
}

func TestAddItemKeepsSnapshotPrice(t *testing.T) {
	t.Parallel()

	c, _ := NewCart(1, now)
	p := product(10, 20000, 10)
	c, err := c.AddItem(p, 1, 0, now)
	require.NoError(t, err)

	p.Price = decimal.NewFromInt(25000)
	c, err = c.AddItem(p, 1, 0, now)
	require.NoError(t, err)

	item, ok := c.ItemForProduct(10)
	require.True(t, ok)
	require.True(t, item.UnitPrice.Equal(decimal.NewFromInt(20000)))
	require.True(t, c.TotalPrice().Equal(decimal.NewFromInt(40000)))
}

func TestAddItemRejections(t *testing.T) {
	t.Parallel()

	inactive := product(11, 1000, 10)
	inactive.Status = catalog.ProductStatusInactive

	tests := []struct {
		name     string
		product  catalog.Product
		quantity int
		max      int
		code     string
	}{
		{name: "zero quantity", product: product(10, 1000, 10), quantity: 0, code: errors.CodeValidation},
		{name: "negative quantity", product: product(10, 1000, 10), quantity: -1, code: errors.CodeValidation},
		{name: "above stock", product: product(10, 1000, 2), quantity: 3, code: errors.CodeIllegalState},
		{name: "inactive product", product: inactive, quantity: 1, code: errors.CodeIllegalState},
		{name: "above line ceiling", product: product(10, 1000, 100), quantity: 11, max: 10, code: errors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := NewCart(1, now)
			next, err := c.AddItem(tt.product, tt.quantity, tt.max, now)
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.code), "got %v", err)
			require.True(t, next.IsEmpty())
		})
	}
}

func TestAddItemMergedQuantityChecksStock(t *testing.T) {
	t.Parallel()

	c, _ := NewCart(1, now)
	p := product(10, 1000, 3)
	c, err := c.AddItem(p, 2, 0, now)
	require.NoError(t, err)

	next, err := c.AddItem(p, 2, 0, now)
	require.True(t, errors.Is(err, errors.CodeIllegalState))
	require.Equal(t, 2, next.TotalItems())
}

func TestAddItemMergeDoesNotOverflow(t *testing.T) {
	t.Parallel()

	c, err := NewCart(1, now)
	require.NoError(t, err)
	p := product(10, 100, math.MaxInt)

	c, err = c.AddItem(p, 5, 0, now)
	require.NoError(t, err)

	_, err = c.AddItem(p, math.MaxInt, 0, now)
	require.True(t, errors.Is(err, errors.CodeIllegalState))

	item, ok := c.ItemForProduct(10)
	require.True(t, ok)
	require.Equal(t, 5, item.Quantity)
	requireTotalsConsistent(t, c)
}

func TestMutationsDoNotTouchReceiver(t *testing.T) {
	t.Parallel()

	original := RestoreCart(1, 1, []CartItem{
		{ID: 100, ProductID: 10, Quantity: 1, UnitPrice: decimal.NewFromInt(1000)},
	}, now, now)

	_, err := original.UpdateQuantity(100, 4, 0, product(10, 1000, 10), now)
	require.NoError(t, err)
	_, err = original.RemoveItem(100, now)
	require.NoError(t, err)
	_ = original.Clear(now)

	require.Equal(t, 1, original.Items()[0].Quantity)
	require.Equal(t, 1, original.TotalItems())
}

func TestUpdateQuantity(t *testing.T) {
	t.Parallel()

	c := RestoreCart(1, 1, []CartItem{
		{ID: 100, ProductID: 10, Quantity: 1, UnitPrice: decimal.NewFromInt(1000)},
		{ID: 101, ProductID: 11, Quantity: 2, UnitPrice: decimal.NewFromInt(500)},
	}, now, now)

	updated, err := c.UpdateQuantity(100, 5, 0, product(10, 1200, 5), now)
	require.NoError(t, err)
	require.Equal(t, 7, updated.TotalItems())
	require.True(t, updated.TotalPrice().Equal(decimal.NewFromInt(6000)))
	requireTotalsConsistent(t, updated)

	_, err = c.UpdateQuantity(100, 0, 0, product(10, 1000, 5), now)
	require.True(t, errors.Is(err, errors.CodeValidation))

	_, err = c.UpdateQuantity(100, 6, 0, product(10, 1000, 5), now)
	require.True(t, errors.Is(err, errors.CodeIllegalState))

	_, err = c.UpdateQuantity(999, 1, 0, product(10, 1000, 5), now)
	require.True(t, errors.Is(err, errors.CodeNotFound))

	_, err = c.UpdateQuantity(100, 1, 0, product(11, 1000, 5), now)
	require.True(t, errors.Is(err, errors.CodeValidation))
}

func TestRemoveItemAndClear(t *testing.T) {
	t.Parallel()

	c := RestoreCart(1, 1, []CartItem{
		{ID: 100, ProductID: 10, Quantity: 1, UnitPrice: decimal.NewFromInt(1000)},
		{ID: 101, ProductID: 11, Quantity: 2, UnitPrice: decimal.NewFromInt(500)},
	}, now, now)

	removed, err := c.RemoveItem(100, now)
	require.NoError(t, err)
	require.Len(t, removed.Items(), 1)
	require.True(t, removed.TotalPrice().Equal(decimal.NewFromInt(1000)))
	requireTotalsConsistent(t, removed)

	_, err = c.RemoveItem(555, now)
	require.True(t, errors.Is(err, errors.CodeNotFound))

	cleared := c.Clear(now)
	require.True(t, cleared.IsEmpty())
	require.Zero(t, cleared.TotalItems())
	require.True(t, cleared.TotalPrice().IsZero())
}

func TestRestoreCartRecomputesTotals(t *testing.T) {
	t.Parallel()

	c := RestoreCart(3, 9, []CartItem{
		{ID: 1, ProductID: 1, Quantity: 3, UnitPrice: decimal.RequireFromString("999.99")},
	}, now, now)

	require.Equal(t, 3, c.TotalItems())
	require.True(t, c.TotalPrice().Equal(decimal.RequireFromString("2999.97")))
}

func TestValidatePriceDriftIsAdvisory(t *testing.T) {
	t.Parallel()

	c := RestoreCart(1, 1, []CartItem{
		{ID: 100, ProductID: 10, Quantity: 2, UnitPrice: decimal.NewFromInt(20000)},
	}, now, now)
	p := product(10, 25000, 5)

	report := Validate(c, map[uint]catalog.Product{10: p}, pricing.DefaultDeliveryPolicy())

	require.Len(t, report.Items, 1)
	item := report.Items[0]
	require.True(t, item.PriceChanged)
	require.True(t, item.StockAvailable)
	require.Contains(t, item.Warning, "price changed")
	require.True(t, report.HasIssues)
	require.Equal(t, 1, report.IssueCount)
	require.Len(t, report.PriceChangedItems(), 1)
	require.Empty(t, report.UnavailableItems())
	require.True(t, report.DeliveryFee.Equal(decimal.NewFromInt(3000)))
}

func TestValidateStockAxis(t *testing.T) {
	t.Parallel()

	soldOut := product(12, 1000, 10)
	soldOut.Status = catalog.ProductStatusSoldOut

	c := RestoreCart(1, 1, []CartItem{
		{ID: 1, ProductID: 10, Quantity: 5, UnitPrice: decimal.NewFromInt(1000)},
		{ID: 2, ProductID: 11, Quantity: 6, UnitPrice: decimal.NewFromInt(1000)},
		{ID: 3, ProductID: 12, Quantity: 1, UnitPrice: decimal.NewFromInt(1000)},
		{ID: 4, ProductID: 13, Quantity: 1, UnitPrice: decimal.NewFromInt(1000)},
	}, now, now)
	products := map[uint]catalog.Product{
		10: product(10, 1000, 5),
		11: product(11, 1000, 5),
		12: soldOut,
	}

	report := Validate(c, products, pricing.DefaultDeliveryPolicy())

	require.True(t, report.Items[0].StockAvailable)
	require.False(t, report.Items[0].HasIssue())
	require.False(t, report.Items[1].StockAvailable)
	require.Contains(t, report.Items[1].Warning, "only 5 left")
	require.False(t, report.Items[2].StockAvailable)
	require.False(t, report.Items[2].PriceChanged)
	require.False(t, report.Items[3].StockAvailable)
	require.Equal(t, 3, report.IssueCount)
	require.Len(t, report.UnavailableItems(), 3)
}

func TestValidateExactPriceComparison(t *testing.T) {
	t.Parallel()

	c := RestoreCart(1, 1, []CartItem{
		{ID: 1, ProductID: 10, Quantity: 1, UnitPrice: decimal.RequireFromString("1000.00")},
		{ID: 2, ProductID: 11, Quantity: 1, UnitPrice: decimal.RequireFromString("1000.00")},
	}, now, now)
	other := product(11, 0, 5)
	other.Price = decimal.RequireFromString("1000.01")

	report := Validate(c, map[uint]catalog.Product{10: product(10, 1000, 5), 11: other}, pricing.DefaultDeliveryPolicy())

	require.False(t, report.Items[0].PriceChanged)
	require.True(t, report.Items[1].PriceChanged)
}

func TestValidateDeliveryFee(t *testing.T) {
	t.Parallel()

	policy := pricing.DefaultDeliveryPolicy()

	below := RestoreCart(1, 1, []CartItem{{ID: 1, ProductID: 10, Quantity: 1, UnitPrice: decimal.NewFromInt(49999)}}, now, now)
	at := RestoreCart(1, 1, []CartItem{{ID: 1, ProductID: 10, Quantity: 1, UnitPrice: decimal.NewFromInt(50000)}}, now, now)

	r := Validate(below, map[uint]catalog.Product{10: product(10, 49999, 1)}, policy)
	require.True(t, r.DeliveryFee.Equal(decimal.NewFromInt(3000)))
	require.True(t, r.EstimatedTotal.Equal(decimal.NewFromInt(52999)))
	require.True(t, r.RemainingForFreeShipping.Equal(decimal.NewFromInt(1)))

	r = Validate(at, map[uint]catalog.Product{10: product(10, 50000, 1)}, policy)
	require.True(t, r.DeliveryFee.IsZero())
	require.True(t, r.RemainingForFreeShipping.IsZero())

	empty, _ := NewCart(1, now)
	r = Validate(empty, nil, policy)
	require.True(t, r.DeliveryFee.IsZero())
	require.False(t, r.HasIssues)
}
