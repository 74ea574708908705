package domain

import (
	catalog "go-commerce/internal/catalog/domain"
	"go-commerce/pkg/errors"
)

// Domain-specific errors
var (
	ErrUserIDRequired   = errors.NewValidation("user_id is required", nil)
	ErrInvalidQuantity  = errors.NewValidation("quantity must be greater than 0", nil)
	ErrQuantityTooLarge = errors.NewValidation("quantity exceeds the per-item limit", nil)
	ErrProductMismatch  = errors.NewValidation("product does not match the cart item", nil)
)

// NewCartNotFound creates a not found error for a user's cart
func NewCartNotFound(userID uint) error {
	return errors.NewNotFound("cart for user", userID)
}

// NewCartItemNotFound creates a not found error with the cart item ID
func NewCartItemNotFound(id uint) error {
	return errors.NewNotFound("cart item", id)
}

// NewInsufficientStock reports a requested quantity above available stock
func NewInsufficientStock(productID uint, requested, available int) error {
	return errors.NewIllegalState("requested quantity exceeds available stock", map[string]interface{}{
		"product_id": productID,
		"requested":  requested,
		"available":  available,
	})
}

// NewProductNotSellable reports an attempt to add a product that is not ACTIVE
func NewProductNotSellable(productID uint, status catalog.ProductStatus) error {
	return errors.NewIllegalState("product is not available for sale", map[string]interface{}{
		"product_id": productID,
		"status":     status,
	})
}

// NewQuantityTooLarge reports a quantity above the configured ceiling
func NewQuantityTooLarge(requested, limit int) error {
	return ErrQuantityTooLarge.WithDetails(map[string]interface{}{
		"requested": requested,
		"limit":     limit,
	})
}
