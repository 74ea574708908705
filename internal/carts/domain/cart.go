package domain

import (
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	catalog "go-commerce/internal/catalog/domain"
	"go-commerce/internal/pricing"
)

// CartItem is a line in a cart. UnitPrice is the product price at the time
// the line was first added, not the live catalog price.
type CartItem struct {
	ID        uint
	CartID    uint
	ProductID uint
	Quantity  int
	UnitPrice decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subtotal returns unit price × quantity
func (i CartItem) Subtotal() decimal.Decimal {
	return i.line().Subtotal()
}

func (i CartItem) line() pricing.Line {
	return pricing.Line{UnitPrice: i.UnitPrice, Quantity: i.Quantity}
}

// Cart is the per-user collection of prospective purchases. Its cached
// totals are private and recomputed by every mutation.
//
// Mutations never modify the receiver; they return the next cart state.
type Cart struct {
	ID        uint
	UserID    uint
	CreatedAt time.Time
	UpdatedAt time.Time

	items      []CartItem
	totalItems int
	totalPrice decimal.Decimal
}

// NewCart creates an empty cart for a user
func NewCart(userID uint, now time.Time) (Cart, error) {
	if userID == 0 {
		return Cart{}, ErrUserIDRequired
	}
	return Cart{
		UserID:     userID,
		CreatedAt:  now,
		UpdatedAt:  now,
		totalPrice: decimal.Zero,
	}, nil
}

// RestoreCart rebuilds a cart from persisted state. Stored totals are not
// trusted; they are recomputed from the items.
func RestoreCart(id, userID uint, items []CartItem, createdAt, updatedAt time.Time) Cart {
	c := Cart{
		ID:        id,
		UserID:    userID,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		items:     slices.Clone(items),
	}
	c.recalculate()
	return c
}

// Items returns a copy of the cart lines
func (c Cart) Items() []CartItem {
	return slices.Clone(c.items)
}

// TotalItems returns the cached sum of line quantities
func (c Cart) TotalItems() int {
	return c.totalItems
}

// TotalPrice returns the cached sum of line subtotals
func (c Cart) TotalPrice() decimal.Decimal {
	return c.totalPrice
}

// IsEmpty reports whether the cart has no lines
func (c Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// ProductIDs returns the distinct products referenced by the cart
func (c Cart) ProductIDs() []uint {
	ids := make([]uint, 0, len(c.items))
	for _, item := range c.items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Item looks up a line by its ID
func (c Cart) Item(itemID uint) (CartItem, bool) {
	idx := c.indexOf(itemID)
	if idx < 0 {
		return CartItem{}, false
	}
	return c.items[idx], true
}

// ItemForProduct looks up the line holding a product
func (c Cart) ItemForProduct(productID uint) (CartItem, bool) {
	for _, item := range c.items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

// AddItem puts quantity units of product into the cart. An existing line for
// the same product is merged by increasing its quantity; its unit price
// snapshot is kept. maxQuantity caps a single line, zero disables the cap.
func (c Cart) AddItem(product catalog.Product, quantity, maxQuantity int, now time.Time) (Cart, error) {
	if quantity <= 0 {
		return c, ErrInvalidQuantity
	}
	if !product.IsSellable() {
		return c, NewProductNotSellable(product.ID, product.Status)
	}

	next := c.clone()
	for i := range next.items {
		if next.items[i].ProductID != product.ID {
			continue
		}
		existing := next.items[i].Quantity
		if quantity > math.MaxInt-existing {
			return c, NewInsufficientStock(product.ID, quantity, product.StockQuantity)
		}
		merged := existing + quantity
		if err := checkQuantity(product, merged, maxQuantity); err != nil {
			return c, err
		}
		next.items[i].Quantity = merged
		next.items[i].UpdatedAt = now
		return next.touch(now), nil
	}

	if err := checkQuantity(product, quantity, maxQuantity); err != nil {
		return c, err
	}
	next.items = append(next.items, CartItem{
		CartID:    c.ID,
		ProductID: product.ID,
		Quantity:  quantity,
		UnitPrice: product.Price,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return next.touch(now), nil
}

// UpdateQuantity sets the quantity of an existing line
func (c Cart) UpdateQuantity(itemID uint, quantity, maxQuantity int, product catalog.Product, now time.Time) (Cart, error) {
	if quantity <= 0 {
		return c, ErrInvalidQuantity
	}
	idx := c.indexOf(itemID)
	if idx < 0 {
		return c, NewCartItemNotFound(itemID)
	}
	if c.items[idx].ProductID != product.ID {
		return c, ErrProductMismatch
	}
	if err := checkQuantity(product, quantity, maxQuantity); err != nil {
		return c, err
	}

	next := c.clone()
	next.items[idx].Quantity = quantity
	next.items[idx].UpdatedAt = now
	return next.touch(now), nil
}

// RemoveItem drops a line from the cart
func (c Cart) RemoveItem(itemID uint, now time.Time) (Cart, error) {
	idx := c.indexOf(itemID)
	if idx < 0 {
		return c, NewCartItemNotFound(itemID)
	}

	next := c.clone()
	next.items = slices.Delete(next.items, idx, idx+1)
	return next.touch(now), nil
}

// Clear removes every line and resets the cached totals
func (c Cart) Clear(now time.Time) Cart {
	next := c.clone()
	next.items = nil
	return next.touch(now)
}

func checkQuantity(product catalog.Product, quantity, maxQuantity int) error {
	if maxQuantity > 0 && quantity > maxQuantity {
		return NewQuantityTooLarge(quantity, maxQuantity)
	}
	if !product.HasStock(quantity) {
		return NewInsufficientStock(product.ID, quantity, product.StockQuantity)
	}
	return nil
}

func (c Cart) indexOf(itemID uint) int {
	if itemID == 0 {
		return -1
	}
	return slices.IndexFunc(c.items, func(item CartItem) bool { return item.ID == itemID })
}

func (c Cart) clone() Cart {
	c.items = slices.Clone(c.items)
	return c
}

func (c Cart) touch(now time.Time) Cart {
	c.UpdatedAt = now
	c.recalculate()
	return c
}

func (c *Cart) recalculate() {
	lines := make([]pricing.Line, len(c.items))
	count := 0
	for i, item := range c.items {
		lines[i] = item.line()
		count += item.Quantity
	}
	c.totalItems = count
	c.totalPrice = pricing.CalculateTotalAmount(lines)
}
