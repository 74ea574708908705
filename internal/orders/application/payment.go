package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go-commerce/internal/orders/domain"
	"go-commerce/internal/orders/ports"
	"go-commerce/pkg/logger"
)

// PaymentUseCase applies payment provider outcomes to orders. The provider
// is authoritative, so callbacks overwrite the payment state.
type PaymentUseCase struct {
	*transitioner
}

// NewPaymentUseCase creates a new payment use case
func NewPaymentUseCase(
	repo ports.OrderRepository,
	tx ports.Transactor,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	log *logger.Logger,
) *PaymentUseCase {
	return &PaymentUseCase{
		transitioner: &transitioner{
			repo:      repo,
			tx:        tx,
			publisher: publisher,
			metrics:   metrics,
			log:       log,
			now:       time.Now,
		},
	}
}

// ApprovePayment records a successful payment; a PENDING order is confirmed
func (uc *PaymentUseCase) ApprovePayment(ctx context.Context, orderNumber string, payload domain.ProviderPayload) (*OrderOutput, error) {
	return uc.apply(ctx, orderNumber, "approve", func(order domain.Order, now time.Time) (domain.Transition, error) {
		return order.ApprovePayment(payload, now)
	})
}

// MarkCancelled records a provider-side cancellation
func (uc *PaymentUseCase) MarkCancelled(ctx context.Context, orderNumber, reason string) (*OrderOutput, error) {
	return uc.apply(ctx, orderNumber, "cancel", func(order domain.Order, now time.Time) (domain.Transition, error) {
		return order.MarkPaymentCancelled(reason, now), nil
	})
}

// MarkRefunded records a refund of a shipped or delivered order
func (uc *PaymentUseCase) MarkRefunded(ctx context.Context, orderNumber string) (*OrderOutput, error) {
	return uc.apply(ctx, orderNumber, "refund", func(order domain.Order, now time.Time) (domain.Transition, error) {
		return order.MarkPaymentRefunded(now)
	})
}

// MarkFailed records an aborted payment
func (uc *PaymentUseCase) MarkFailed(ctx context.Context, orderNumber string) (*OrderOutput, error) {
	return uc.apply(ctx, orderNumber, "fail", func(order domain.Order, now time.Time) (domain.Transition, error) {
		return order.MarkPaymentFailed(now), nil
	})
}

// Reconcile applies a provider callback of any status. Approval, refund,
// cancellation and failure go to their own operations; the remaining
// statuses overwrite the payment status.
func (uc *PaymentUseCase) Reconcile(ctx context.Context, orderNumber string, payload domain.ProviderPayload) (*OrderOutput, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	var (
		out *OrderOutput
		err error
	)
	switch {
	case payload.Refunded:
		out, err = uc.MarkRefunded(ctx, orderNumber)
	case payload.Status == domain.PaymentStatusDone:
		out, err = uc.ApprovePayment(ctx, orderNumber, payload)
	case payload.Status == domain.PaymentStatusCanceled:
		out, err = uc.MarkCancelled(ctx, orderNumber, payload.Reason)
	case payload.Status == domain.PaymentStatusAborted:
		out, err = uc.MarkFailed(ctx, orderNumber)
	default:
		out, err = uc.apply(ctx, orderNumber, "reconcile", func(order domain.Order, now time.Time) (domain.Transition, error) {
			return order.ReconcilePayment(payload, now)
		})
	}
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.PaymentCallback(callbackLabel(payload))
	}
	return out, nil
}

func callbackLabel(payload domain.ProviderPayload) string {
	if payload.Refunded {
		return "REFUNDED"
	}
	return string(payload.Status)
}

func (uc *PaymentUseCase) apply(ctx context.Context, orderNumber, action string, fn applyFunc) (*OrderOutput, error) {
	if orderNumber == "" {
		return nil, domain.ErrOrderNumberRequired
	}

	tr, err := uc.run(ctx, uc.lockByNumber(orderNumber), fn)
	if err != nil {
		return nil, err
	}

	order := tr.Order
	uc.log.WithContext(ctx).Info("payment updated",
		zap.String("action", action),
		zap.Uint("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("payment_status", string(order.Payment.Status)),
	)
	uc.publish(ctx, "payment.updated", order, func(ctx context.Context) error {
		return uc.publisher.PublishPaymentUpdated(ctx, order)
	})

	return &OrderOutput{Order: order}, nil
}
