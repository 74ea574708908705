package adapters

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"go-commerce/internal/orders/application"
	"go-commerce/internal/orders/domain"
	"go-commerce/pkg/errors"
	"go-commerce/pkg/events"
	"go-commerce/pkg/logger"
	"go-commerce/pkg/rabbitmq"
)

// PaymentReconciler applies a provider callback to an order
type PaymentReconciler interface {
	Reconcile(ctx context.Context, orderNumber string, payload domain.ProviderPayload) (*application.OrderOutput, error)
}

// PaymentCallbackConsumer consumes provider callbacks relayed through RabbitMQ
type PaymentCallbackConsumer struct {
	consumer *rabbitmq.Consumer
	handler  *PaymentCallbackHandler
}

// NewPaymentCallbackConsumer creates a new consumer for payment callbacks
func NewPaymentCallbackConsumer(conn *rabbitmq.Connection, payments PaymentReconciler, log *logger.Logger) (*PaymentCallbackConsumer, error) {
	consumer, err := rabbitmq.NewConsumer(
		conn,
		"orders.payment-callback", // queue name
		events.ExchangePayments,   // exchange
		[]string{events.RoutingKeyPaymentCallback},
		log,
	)
	if err != nil {
		return nil, err
	}

	return &PaymentCallbackConsumer{
		consumer: consumer,
		handler:  NewPaymentCallbackHandler(payments, log),
	}, nil
}

// Start starts consuming payment callbacks
func (c *PaymentCallbackConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handler.Handle)
}

// PaymentCallbackHandler decodes a callback message and reconciles it
type PaymentCallbackHandler struct {
	payments PaymentReconciler
	log      *logger.Logger
}

// NewPaymentCallbackHandler creates a new handler
func NewPaymentCallbackHandler(payments PaymentReconciler, log *logger.Logger) *PaymentCallbackHandler {
	return &PaymentCallbackHandler{payments: payments, log: log}
}

// Handle processes one message. Malformed messages and callbacks the
// domain rejects are permanent failures; anything else is retried.
func (h *PaymentCallbackHandler) Handle(ctx context.Context, body []byte) error {
	var event events.PaymentCallbackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.log.WithContext(ctx).Error("failed to unmarshal PaymentCallbackEvent",
			zap.Error(err),
		)
		return rabbitmq.Permanent(err)
	}

	payload := ToProviderPayload(event.Payload)
	out, err := h.payments.Reconcile(ctx, event.Payload.OrderNumber, payload)
	if err != nil {
		if errors.Is(err, errors.CodeValidation) ||
			errors.Is(err, errors.CodeNotFound) ||
			errors.Is(err, errors.CodeIllegalState) {
			return rabbitmq.Permanent(err)
		}
		return err
	}

	h.log.WithContext(ctx).Info("payment callback applied",
		zap.String("order_number", out.Order.OrderNumber),
		zap.String("payment_status", string(payload.Status)),
		zap.String("event_id", event.ID),
	)
	return nil
}

// ToProviderPayload maps a callback body onto the domain payload
func ToProviderPayload(p events.PaymentCallbackPayload) domain.ProviderPayload {
	return domain.ProviderPayload{
		PaymentKey:    p.PaymentKey,
		TransactionID: p.TransactionID,
		Method:        domain.PaymentMethod(p.Method),
		Amount:        p.Amount,
		Status:        domain.PaymentStatus(p.Status),
		Reason:        p.Reason,
		Refunded:      p.Refunded,
	}
}
