package ports

import (
	"context"

	"go-commerce/internal/carts/domain"
	catalog "go-commerce/internal/catalog/domain"
)

// CartRepository defines the interface for cart persistence
type CartRepository interface {
	// GetByUserID retrieves a user's cart without locking it
	GetByUserID(ctx context.Context, userID uint) (*domain.Cart, error)

	// LockByUserID retrieves a user's cart and holds a row lock on it until
	// the surrounding transaction ends
	LockByUserID(ctx context.Context, userID uint) (*domain.Cart, error)

	// Create creates the user's cart. When a cart already exists for the
	// user the call succeeds and cart.ID is set to the existing row.
	Create(ctx context.Context, cart *domain.Cart) error

	// Save persists the cart and exactly its current set of items; lines no
	// longer present are deleted and new lines receive IDs
	Save(ctx context.Context, cart *domain.Cart) error
}

// ProductReader is the catalog view a cart needs
type ProductReader interface {
	// GetByID retrieves a product by ID
	GetByID(ctx context.Context, id uint) (*catalog.Product, error)

	// GetByIDs retrieves the products that exist among ids, keyed by ID
	GetByIDs(ctx context.Context, ids []uint) (map[uint]catalog.Product, error)
}

// Transactor runs a unit of work atomically
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics records cart activity
type Metrics interface {
	CartMutation(op string)
}
