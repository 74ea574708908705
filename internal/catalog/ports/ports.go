package ports

import (
	"context"

	"go-commerce/internal/catalog/domain"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// Create creates a new product
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by ID
	GetByID(ctx context.Context, id uint) (*domain.Product, error)

	// GetByIDs retrieves the products that exist among ids, keyed by ID
	GetByIDs(ctx context.Context, ids []uint) (map[uint]domain.Product, error)

	// Update updates an existing product
	Update(ctx context.Context, product *domain.Product) error
}
