package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go-commerce/internal/orders/domain"
	"go-commerce/internal/orders/ports"
	"go-commerce/pkg/logger"
)

// transitioner applies a domain transition to a locked order and persists it
// together with its history in one transaction. Events go out after commit.
type transitioner struct {
	repo      ports.OrderRepository
	tx        ports.Transactor
	publisher ports.EventPublisher
	metrics   ports.Metrics
	log       *logger.Logger
	now       func() time.Time
}

type lockFunc func(ctx context.Context) (*domain.Order, error)

type applyFunc func(order domain.Order, now time.Time) (domain.Transition, error)

func (t *transitioner) run(ctx context.Context, lock lockFunc, apply applyFunc) (domain.Transition, error) {
	var result domain.Transition
	err := t.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := lock(ctx)
		if err != nil {
			return err
		}

		tr, err := apply(*order, t.now())
		if err != nil {
			return err
		}

		if err := t.repo.Save(ctx, &tr.Order); err != nil {
			return err
		}
		result = tr
		return nil
	})
	if err != nil {
		return domain.Transition{}, err
	}

	for _, change := range result.Recorded {
		if t.metrics != nil {
			t.metrics.StatusTransition(string(change.FromStatus), string(change.ToStatus))
		}
		t.log.WithContext(ctx).Info("order status changed",
			zap.Uint("order_id", result.Order.ID),
			zap.String("order_number", result.Order.OrderNumber),
			zap.String("from_status", string(change.FromStatus)),
			zap.String("to_status", string(change.ToStatus)),
			zap.String("reason", change.Reason),
		)
		t.publish(ctx, "order.status_changed", result.Order, func(ctx context.Context) error {
			return t.publisher.PublishStatusChanged(ctx, result.Order, change)
		})
	}

	return result, nil
}

func (t *transitioner) lockByID(id uint) lockFunc {
	return func(ctx context.Context) (*domain.Order, error) {
		return t.repo.LockByID(ctx, id)
	}
}

func (t *transitioner) lockByNumber(number string) lockFunc {
	return func(ctx context.Context) (*domain.Order, error) {
		return t.repo.LockByNumber(ctx, number)
	}
}

// publish never fails the caller; the state change is already committed
func (t *transitioner) publish(ctx context.Context, event string, order domain.Order, fn func(ctx context.Context) error) {
	if t.publisher == nil {
		return
	}
	if err := fn(ctx); err != nil {
		t.log.WithContext(ctx).Error("failed to publish event",
			zap.Error(err),
			zap.String("event", event),
			zap.Uint("order_id", order.ID),
			zap.String("order_number", order.OrderNumber),
		)
	}
}
