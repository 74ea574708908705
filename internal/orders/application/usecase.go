package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	carts "go-commerce/internal/carts/domain"
	"go-commerce/internal/orders/domain"
	"go-commerce/internal/orders/ports"
	"go-commerce/internal/pricing"
	"go-commerce/pkg/errors"
	"go-commerce/pkg/logger"
)

// OrderUseCase handles order business logic
type OrderUseCase struct {
	*transitioner
	carts     ports.CartGateway
	products  ports.ProductReader
	policy    pricing.DeliveryPolicy
	newNumber func(now time.Time) string
}

// NewOrderUseCase creates a new order use case
func NewOrderUseCase(
	repo ports.OrderRepository,
	cartGateway ports.CartGateway,
	products ports.ProductReader,
	tx ports.Transactor,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	policy pricing.DeliveryPolicy,
	log *logger.Logger,
) *OrderUseCase {
	return &OrderUseCase{
		transitioner: &transitioner{
			repo:      repo,
			tx:        tx,
			publisher: publisher,
			metrics:   metrics,
			log:       log,
			now:       time.Now,
		},
		carts:     cartGateway,
		products:  products,
		policy:    policy,
		newNumber: generateOrderNumber,
	}
}

func generateOrderNumber(now time.Time) string {
	return domain.NewOrderNumber(now, uuid.NewString()[:8])
}

// CreateOrderInput represents the input for checking out a cart
type CreateOrderInput struct {
	UserID        uint
	Delivery      domain.DeliveryInfo
	PaymentMethod domain.PaymentMethod
	Discount      decimal.Decimal
}

// OrderOutput is returned by order operations
type OrderOutput struct {
	Order domain.Order
}

// CreateOrder turns the user's cart into a PENDING order and empties the
// cart in the same transaction. Lines that are out of stock or off sale
// block checkout; price drift does not, the cart's snapshot prices are used.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderOutput, error) {
	if input.UserID == 0 {
		return nil, domain.ErrUserIDRequired
	}

	var order domain.Order
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		cart, err := uc.carts.LockByUserID(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, errors.CodeNotFound) {
				return domain.ErrEmptyCart
			}
			return err
		}
		if cart.IsEmpty() {
			return domain.ErrEmptyCart
		}

		products, err := uc.products.GetByIDs(ctx, cart.ProductIDs())
		if err != nil {
			return err
		}
		report := carts.Validate(*cart, products, uc.policy)
		if unavailable := report.UnavailableItems(); len(unavailable) > 0 {
			ids := make([]uint, len(unavailable))
			for i, item := range unavailable {
				ids[i] = item.ProductID
			}
			return domain.NewCartNotOrderable(ids)
		}
		if changed := report.PriceChangedItems(); len(changed) > 0 {
			uc.log.WithContext(ctx).Warn("checking out with changed prices",
				zap.Uint("cart_id", cart.ID),
				zap.Uint("user_id", cart.UserID),
				zap.Int("changed_items", len(changed)),
			)
		}

		now := uc.now()
		order, err = domain.NewOrderFromCart(domain.CheckoutInput{
			OrderNumber:   uc.newNumber(now),
			Cart:          *cart,
			Delivery:      input.Delivery,
			PaymentMethod: input.PaymentMethod,
			Discount:      input.Discount,
			Policy:        uc.policy,
			Now:           now,
		})
		if err != nil {
			return err
		}

		if err := uc.repo.Create(ctx, &order); err != nil {
			return err
		}

		cleared := cart.Clear(now)
		return uc.carts.Save(ctx, &cleared)
	})
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, "order.created", order, func(ctx context.Context) error {
		return uc.publisher.PublishOrderCreated(ctx, order)
	})

	uc.log.WithContext(ctx).Info("order created",
		zap.Uint("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Uint("user_id", order.UserID),
		zap.String("final_amount", order.Amounts.Final().String()),
	)

	return &OrderOutput{Order: order}, nil
}

// GetOrder retrieves an order by ID
func (uc *OrderUseCase) GetOrder(ctx context.Context, id uint) (*OrderOutput, error) {
	order, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &OrderOutput{Order: *order}, nil
}

// GetOrderByNumber retrieves an order by its order number
func (uc *OrderUseCase) GetOrderByNumber(ctx context.Context, number string) (*OrderOutput, error) {
	order, err := uc.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return &OrderOutput{Order: *order}, nil
}

// ListOrders retrieves a user's orders
func (uc *OrderUseCase) ListOrders(ctx context.Context, userID uint) ([]domain.Order, error) {
	if userID == 0 {
		return nil, domain.ErrUserIDRequired
	}
	return uc.repo.ListByUserID(ctx, userID)
}

// GetHistory retrieves the status history of an order
func (uc *OrderUseCase) GetHistory(ctx context.Context, orderID uint) ([]domain.StatusHistory, error) {
	if _, err := uc.repo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return uc.repo.ListHistory(ctx, orderID)
}

// ChangeStatusInput represents an explicit status transition request
type ChangeStatusInput struct {
	OrderID uint
	Status  domain.OrderStatus
	Reason  string
	Memo    string
}

// ChangeStatus performs an explicit transition and records it
func (uc *OrderUseCase) ChangeStatus(ctx context.Context, input ChangeStatusInput) (*OrderOutput, error) {
	tr, err := uc.run(ctx, uc.lockByID(input.OrderID), func(order domain.Order, now time.Time) (domain.Transition, error) {
		return order.ChangeStatus(input.Status, input.Reason, input.Memo, now)
	})
	if err != nil {
		return nil, err
	}
	return &OrderOutput{Order: tr.Order}, nil
}

// CancelOrderInput represents an order cancellation request
type CancelOrderInput struct {
	OrderID uint
	Reason  string
}

// CancelOrder cancels the order, its items and its payment
func (uc *OrderUseCase) CancelOrder(ctx context.Context, input CancelOrderInput) (*OrderOutput, error) {
	tr, err := uc.run(ctx, uc.lockByID(input.OrderID), func(order domain.Order, now time.Time) (domain.Transition, error) {
		return order.Cancel(input.Reason, now)
	})
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, "order.cancelled", tr.Order, func(ctx context.Context) error {
		return uc.publisher.PublishOrderCancelled(ctx, tr.Order, input.Reason)
	})
	return &OrderOutput{Order: tr.Order}, nil
}

// MarkDeliveredInput represents a delivery completion
type MarkDeliveredInput struct {
	OrderID        uint
	TrackingNumber string
}

// MarkDelivered completes delivery of a shipped order
func (uc *OrderUseCase) MarkDelivered(ctx context.Context, input MarkDeliveredInput) (*OrderOutput, error) {
	tr, err := uc.run(ctx, uc.lockByID(input.OrderID), func(order domain.Order, now time.Time) (domain.Transition, error) {
		return order.MarkAsDelivered(input.TrackingNumber, now)
	})
	if err != nil {
		return nil, err
	}
	return &OrderOutput{Order: tr.Order}, nil
}

// AdjustAmountsInput replaces the discount, the delivery fee or both
type AdjustAmountsInput struct {
	OrderID     uint
	Discount    *decimal.Decimal
	DeliveryFee *decimal.Decimal
}

// AdjustAmounts changes the order's discount or delivery fee. The final
// amount follows, and so does the payment amount until it is approved.
func (uc *OrderUseCase) AdjustAmounts(ctx context.Context, input AdjustAmountsInput) (*OrderOutput, error) {
	if input.Discount == nil && input.DeliveryFee == nil {
		return nil, domain.ErrNoAmountChange
	}

	tr, err := uc.run(ctx, uc.lockByID(input.OrderID), func(order domain.Order, now time.Time) (domain.Transition, error) {
		var err error
		if input.Discount != nil {
			if order, err = order.WithDiscount(*input.Discount, now); err != nil {
				return domain.Transition{}, err
			}
		}
		if input.DeliveryFee != nil {
			if order, err = order.WithDeliveryFee(*input.DeliveryFee, now); err != nil {
				return domain.Transition{}, err
			}
		}
		return domain.Transition{Order: order}, nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.WithContext(ctx).Info("order amounts adjusted",
		zap.Uint("order_id", tr.Order.ID),
		zap.String("discount", tr.Order.Amounts.Discount().String()),
		zap.String("delivery_fee", tr.Order.Amounts.DeliveryFee().String()),
		zap.String("final_amount", tr.Order.Amounts.Final().String()),
	)
	return &OrderOutput{Order: tr.Order}, nil
}

// UpdateItemStatusInput represents a fulfillment update for one line
type UpdateItemStatusInput struct {
	OrderID uint
	ItemID  uint
	Status  domain.OrderItemStatus
}

// UpdateItemStatus updates one line and re-derives the order status. When
// every line ends up cancelled the order is cancelled like CancelOrder.
func (uc *OrderUseCase) UpdateItemStatus(ctx context.Context, input UpdateItemStatusInput) (*OrderOutput, error) {
	var previous domain.OrderStatus
	tr, err := uc.run(ctx, uc.lockByID(input.OrderID), func(order domain.Order, now time.Time) (domain.Transition, error) {
		previous = order.Status
		return order.UpdateItemStatus(input.ItemID, input.Status, now)
	})
	if err != nil {
		return nil, err
	}

	if tr.Order.Status != previous && len(tr.Recorded) == 0 {
		uc.log.WithContext(ctx).Info("order status derived from items",
			zap.Uint("order_id", tr.Order.ID),
			zap.String("from_status", string(previous)),
			zap.String("to_status", string(tr.Order.Status)),
		)
	}
	if tr.Order.Status == domain.OrderStatusCancelled && len(tr.Recorded) > 0 {
		reason := tr.Recorded[0].Reason
		uc.publish(ctx, "order.cancelled", tr.Order, func(ctx context.Context) error {
			return uc.publisher.PublishOrderCancelled(ctx, tr.Order, reason)
		})
	}
	return &OrderOutput{Order: tr.Order}, nil
}
