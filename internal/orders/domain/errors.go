package domain

import "go-commerce/pkg/errors"

// Domain-specific errors
var (
	ErrUserIDRequired         = errors.NewValidation("user_id is required", nil)
	ErrEmptyCart              = errors.NewValidation("cannot create an order from an empty cart", nil)
	ErrPaymentMethodInvalid   = errors.NewValidation("payment method is missing or unsupported", nil)
	ErrNegativeAmount         = errors.NewValidation("discount and delivery fee cannot be negative", nil)
	ErrDiscountExceedsTotal   = errors.NewValidation("discount cannot exceed the order total", nil)
	ErrDeliveryInfoRequired   = errors.NewValidation("recipient name, phone and address are required", nil)
	ErrTrackingNumberRequired = errors.NewValidation("tracking number is required", nil)
	ErrInvalidStatus          = errors.NewValidation("unknown order status", nil)
	ErrInvalidItemStatus      = errors.NewValidation("unknown order item status", nil)
	ErrCancelViaCancel        = errors.NewValidation("use the cancel operation to cancel an order", nil)
	ErrInvalidPaymentStatus   = errors.NewValidation("unknown payment status", nil)
	ErrRefundStatus           = errors.NewValidation("a refund must carry the CANCELED status", nil)
	ErrNoAmountChange         = errors.NewValidation("discount or delivery_fee is required", nil)
	ErrPaymentKeyRequired     = errors.NewValidation("payment key is required", nil)
	ErrOrderNumberRequired    = errors.NewValidation("order number is required", nil)
)

// NewOrderNotFound creates a not found error with the order ID
func NewOrderNotFound(id uint) error {
	return errors.NewNotFound("order", id)
}

// NewOrderNumberNotFound creates a not found error with the order number
func NewOrderNumberNotFound(number string) error {
	return errors.NewNotFound("order", number)
}

// NewOrderItemNotFound creates a not found error with the order item ID
func NewOrderItemNotFound(id uint) error {
	return errors.NewNotFound("order item", id)
}

// NewIllegalTransition reports an explicit transition the state machine forbids
func NewIllegalTransition(from, to OrderStatus) error {
	return errors.NewIllegalState("order status transition not allowed", map[string]interface{}{
		"current_status":   from,
		"requested_status": to,
	})
}

// NewNotCancellable reports a cancel attempt outside PENDING/CONFIRMED/PREPARING
func NewNotCancellable(status OrderStatus) error {
	return errors.NewIllegalState("order cannot be cancelled in its current status", map[string]interface{}{
		"current_status": status,
		"allowed":        cancellableStatuses,
	})
}

// NewNotRefundable reports a refund attempt outside SHIPPED/DELIVERED
func NewNotRefundable(status OrderStatus) error {
	return errors.NewIllegalState("order cannot be refunded in its current status", map[string]interface{}{
		"current_status": status,
		"allowed":        refundableStatuses,
	})
}

// NewOrderFinished reports a change to an order that reached a terminal status
func NewOrderFinished(status OrderStatus) error {
	return errors.NewIllegalState("order is already finished", map[string]interface{}{
		"current_status": status,
	})
}

// NewCartNotOrderable reports cart lines that are out of stock or off sale
// at checkout
func NewCartNotOrderable(productIDs []uint) error {
	return errors.NewIllegalState("cart contains unavailable items", map[string]interface{}{
		"product_ids": productIDs,
	})
}
