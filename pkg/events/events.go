package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Exchange names
const (
	ExchangeOrders   = "orders.events"
	ExchangePayments = "payments.events"
)

// Routing keys
const (
	RoutingKeyOrderCreated       = "order.created"
	RoutingKeyOrderStatusChanged = "order.status_changed"
	RoutingKeyOrderCancelled     = "order.cancelled"
	RoutingKeyPaymentUpdated     = "payment.updated"
	RoutingKeyPaymentCallback    = "payment.callback"
)

const version = "1.0"

// Envelope holds the fields shared by every event
type Envelope struct {
	ID        string    `json:"id"`
	Version   string    `json:"version"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"trace_id"`
}

func newEnvelope(eventType, traceID string) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		Version:   version,
		EventType: eventType,
		Timestamp: time.Now(),
		TraceID:   traceID,
	}
}

// OrderCreatedEvent is published after checkout commits
type OrderCreatedEvent struct {
	Envelope
	Payload OrderCreatedPayload `json:"payload"`
}

// OrderCreatedPayload contains order data
type OrderCreatedPayload struct {
	ID            uint            `json:"id"`
	OrderNumber   string          `json:"order_number"`
	UserID        uint            `json:"user_id"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
	ItemCount     int             `json:"item_count"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(payload OrderCreatedPayload, traceID string) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		Envelope: newEnvelope(RoutingKeyOrderCreated, traceID),
		Payload:  payload,
	}
}

// OrderStatusChangedEvent is published for every recorded status transition
type OrderStatusChangedEvent struct {
	Envelope
	Payload OrderStatusChangedPayload `json:"payload"`
}

// OrderStatusChangedPayload describes one transition
type OrderStatusChangedPayload struct {
	OrderID     uint      `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	FromStatus  string    `json:"from_status"`
	ToStatus    string    `json:"to_status"`
	Reason      string    `json:"reason,omitempty"`
	ChangedAt   time.Time `json:"changed_at"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(payload OrderStatusChangedPayload, traceID string) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		Envelope: newEnvelope(RoutingKeyOrderStatusChanged, traceID),
		Payload:  payload,
	}
}

// OrderCancelledEvent is published when an order is cancelled
type OrderCancelledEvent struct {
	Envelope
	Payload OrderCancelledPayload `json:"payload"`
}

// OrderCancelledPayload contains the cancelled order and the lines to restock
type OrderCancelledPayload struct {
	OrderID     uint                `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	UserID      uint                `json:"user_id"`
	Reason      string              `json:"reason"`
	Items       []CancelledLineItem `json:"items"`
	CancelledAt time.Time           `json:"cancelled_at"`
}

// CancelledLineItem is a product quantity released by a cancellation
type CancelledLineItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(payload OrderCancelledPayload, traceID string) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		Envelope: newEnvelope(RoutingKeyOrderCancelled, traceID),
		Payload:  payload,
	}
}

// PaymentUpdatedEvent is published after the order's payment state changes
type PaymentUpdatedEvent struct {
	Envelope
	Payload PaymentUpdatedPayload `json:"payload"`
}

// PaymentUpdatedPayload contains the payment state after the change
type PaymentUpdatedPayload struct {
	OrderID     uint            `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Status      string          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentKey  string          `json:"payment_key,omitempty"`
	Approved    bool            `json:"approved"`
	Refunded    bool            `json:"refunded"`
}

// NewPaymentUpdatedEvent creates a new PaymentUpdatedEvent
func NewPaymentUpdatedEvent(payload PaymentUpdatedPayload, traceID string) *PaymentUpdatedEvent {
	return &PaymentUpdatedEvent{
		Envelope: newEnvelope(RoutingKeyPaymentUpdated, traceID),
		Payload:  payload,
	}
}

// PaymentCallbackEvent is a provider push relayed through the broker
type PaymentCallbackEvent struct {
	Envelope
	Payload PaymentCallbackPayload `json:"payload"`
}

// PaymentCallbackPayload mirrors the provider's callback body
type PaymentCallbackPayload struct {
	OrderNumber   string          `json:"order_number"`
	PaymentKey    string          `json:"payment_key"`
	TransactionID string          `json:"transaction_id"`
	Method        string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Reason        string          `json:"reason"`
	Refunded      bool            `json:"refunded"`
}
