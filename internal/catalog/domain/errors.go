package domain

import "go-commerce/pkg/errors"

// Domain-specific errors
var (
	ErrNameRequired  = errors.NewValidation("name is required", nil)
	ErrInvalidPrice  = errors.NewValidation("price must be greater than 0", nil)
	ErrInvalidStock  = errors.NewValidation("stock quantity cannot be negative", nil)
	ErrInvalidStatus = errors.NewValidation("status must be one of ACTIVE, INACTIVE, SOLD_OUT", nil)
)

// NewProductNotFound creates a not found error with the product ID
func NewProductNotFound(id uint) error {
	return errors.NewNotFound("product", id)
}
