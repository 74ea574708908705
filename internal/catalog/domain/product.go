package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus represents whether a product can be sold
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
	ProductStatusSoldOut  ProductStatus = "SOLD_OUT"
)

// IsValid reports whether the status is a known value
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusActive, ProductStatusInactive, ProductStatusSoldOut:
		return true
	}
	return false
}

// Product represents the catalog entity carts and orders reference
type Product struct {
	ID            uint
	Name          string
	Price         decimal.Decimal
	StockQuantity int
	Status        ProductStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate validates the product entity
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	if p.Price.IsNegative() || p.Price.IsZero() {
		return ErrInvalidPrice
	}
	if p.StockQuantity < 0 {
		return ErrInvalidStock
	}
	if !p.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// NewProduct creates an active product with validation
func NewProduct(name string, price decimal.Decimal, stock int) (*Product, error) {
	now := time.Now()
	product := &Product{
		Name:          strings.TrimSpace(name),
		Price:         price,
		StockQuantity: stock,
		Status:        ProductStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := product.Validate(); err != nil {
		return nil, err
	}

	return product, nil
}

// IsSellable reports whether the product can be put in a cart at all
func (p Product) IsSellable() bool {
	return p.Status == ProductStatusActive
}

// HasStock reports whether quantity units are available
func (p Product) HasStock(quantity int) bool {
	return quantity <= p.StockQuantity
}
