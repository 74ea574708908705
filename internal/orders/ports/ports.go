package ports

import (
	"context"

	carts "go-commerce/internal/carts/domain"
	catalog "go-commerce/internal/catalog/domain"
	"go-commerce/internal/orders/domain"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// Create persists a new order with its items and payment; IDs are
	// assigned in place
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order with its items
	GetByID(ctx context.Context, id uint) (*domain.Order, error)

	// GetByNumber retrieves an order by its order number
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)

	// LockByID retrieves an order and holds its row lock until the
	// surrounding transaction ends
	LockByID(ctx context.Context, id uint) (*domain.Order, error)

	// LockByNumber is LockByID keyed by order number
	LockByNumber(ctx context.Context, number string) (*domain.Order, error)

	// ListByUserID retrieves a user's orders, newest first
	ListByUserID(ctx context.Context, userID uint) ([]domain.Order, error)

	// Save persists the order's current state and items and inserts any
	// history records that have no ID yet. History is never updated.
	Save(ctx context.Context, order *domain.Order) error

	// ListHistory retrieves an order's status history, oldest first
	ListHistory(ctx context.Context, orderID uint) ([]domain.StatusHistory, error)
}

// CartGateway is the cart side of checkout. Both calls run inside the
// checkout transaction.
type CartGateway interface {
	// LockByUserID retrieves the user's cart under a row lock
	LockByUserID(ctx context.Context, userID uint) (*carts.Cart, error)

	// Save persists the cart's current item set
	Save(ctx context.Context, cart *carts.Cart) error
}

// ProductReader returns current product snapshots for cart validation
type ProductReader interface {
	GetByIDs(ctx context.Context, ids []uint) (map[uint]catalog.Product, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// PublishOrderCreated publishes an order created event
	PublishOrderCreated(ctx context.Context, order domain.Order) error

	// PublishStatusChanged publishes one recorded status transition
	PublishStatusChanged(ctx context.Context, order domain.Order, change domain.StatusHistory) error

	// PublishOrderCancelled publishes an order cancelled event
	PublishOrderCancelled(ctx context.Context, order domain.Order, reason string) error

	// PublishPaymentUpdated publishes the order's payment state
	PublishPaymentUpdated(ctx context.Context, order domain.Order) error
}

// Transactor runs a unit of work atomically
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics records order activity
type Metrics interface {
	StatusTransition(from, to string)
	PaymentCallback(status string)
}
