package domain

import "slices"

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// orderTransitions lists the explicit transitions each status allows.
// DELIVERED and CANCELLED are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
	OrderStatusDelivered: nil,
	OrderStatusCancelled: nil,
}

var (
	cancellableStatuses = []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing}
	refundableStatuses  = []OrderStatus{OrderStatusShipped, OrderStatusDelivered}
)

// IsValid reports whether the status is a known value
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether no explicit transition leaves the status
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether an explicit transition to target is allowed
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	return slices.Contains(orderTransitions[s], target)
}

// OrderItemStatus represents the fulfillment status of a single order line
type OrderItemStatus string

const (
	OrderItemStatusPending   OrderItemStatus = "PENDING"
	OrderItemStatusConfirmed OrderItemStatus = "CONFIRMED"
	OrderItemStatusPreparing OrderItemStatus = "PREPARING"
	OrderItemStatusShipped   OrderItemStatus = "SHIPPED"
	OrderItemStatusDelivered OrderItemStatus = "DELIVERED"
	OrderItemStatusCancelled OrderItemStatus = "CANCELLED"
)

// IsValid reports whether the item status is a known value
func (s OrderItemStatus) IsValid() bool {
	switch s {
	case OrderItemStatusPending, OrderItemStatusConfirmed, OrderItemStatusPreparing,
		OrderItemStatusShipped, OrderItemStatusDelivered, OrderItemStatusCancelled:
		return true
	}
	return false
}
