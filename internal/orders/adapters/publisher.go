package adapters

import (
	"context"

	"go-commerce/internal/orders/domain"
	"go-commerce/pkg/events"
	"go-commerce/pkg/logger"
)

// MessagePublisher is satisfied by the RabbitMQ and Kafka publishers
type MessagePublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// BrokerEventPublisher implements EventPublisher on a message broker
type BrokerEventPublisher struct {
	broker MessagePublisher
}

// NewBrokerEventPublisher creates a new event publisher
func NewBrokerEventPublisher(broker MessagePublisher) *BrokerEventPublisher {
	return &BrokerEventPublisher{broker: broker}
}

// PublishOrderCreated publishes an order created event
func (p *BrokerEventPublisher) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	event := events.NewOrderCreatedEvent(events.OrderCreatedPayload{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
		TotalAmount:   order.Amounts.Total(),
		FinalAmount:   order.Amounts.Final(),
		ItemCount:     len(order.Items),
		CreatedAt:     order.CreatedAt,
	}, logger.GetTraceID(ctx))

	return p.broker.Publish(ctx, events.RoutingKeyOrderCreated, event)
}

// PublishStatusChanged publishes one recorded status transition
func (p *BrokerEventPublisher) PublishStatusChanged(ctx context.Context, order domain.Order, change domain.StatusHistory) error {
	event := events.NewOrderStatusChangedEvent(events.OrderStatusChangedPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		FromStatus:  string(change.FromStatus),
		ToStatus:    string(change.ToStatus),
		Reason:      change.Reason,
		ChangedAt:   change.CreatedAt,
	}, logger.GetTraceID(ctx))

	return p.broker.Publish(ctx, events.RoutingKeyOrderStatusChanged, event)
}

// PublishOrderCancelled publishes the cancelled lines so stock can be released
func (p *BrokerEventPublisher) PublishOrderCancelled(ctx context.Context, order domain.Order, reason string) error {
	items := make([]events.CancelledLineItem, len(order.Items))
	for i, item := range order.Items {
		items[i] = events.CancelledLineItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	event := events.NewOrderCancelledEvent(events.OrderCancelledPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Reason:      reason,
		Items:       items,
		CancelledAt: order.UpdatedAt,
	}, logger.GetTraceID(ctx))

	return p.broker.Publish(ctx, events.RoutingKeyOrderCancelled, event)
}

// PublishPaymentUpdated publishes the order's payment state
func (p *BrokerEventPublisher) PublishPaymentUpdated(ctx context.Context, order domain.Order) error {
	payload := events.PaymentUpdatedPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
	}
	if pay := order.Payment; pay != nil {
		payload.Status = string(pay.Status)
		payload.Amount = pay.Amount
		payload.PaymentKey = pay.PaymentKey
		payload.Approved = pay.IsApproved()
		payload.Refunded = pay.IsRefunded()
	}

	event := events.NewPaymentUpdatedEvent(payload, logger.GetTraceID(ctx))
	return p.broker.Publish(ctx, events.RoutingKeyPaymentUpdated, event)
}
