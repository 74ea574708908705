package application

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"go-commerce/internal/catalog/domain"
	"go-commerce/internal/catalog/ports"
	"go-commerce/pkg/logger"
)

// ProductUseCase handles catalog maintenance
type ProductUseCase struct {
	repo ports.ProductRepository
	log  *logger.Logger
}

// NewProductUseCase creates a new product use case
func NewProductUseCase(repo ports.ProductRepository, log *logger.Logger) *ProductUseCase {
	return &ProductUseCase{
		repo: repo,
		log:  log,
	}
}

// CreateProductInput represents the input for creating a product
type CreateProductInput struct {
	Name          string
	Price         decimal.Decimal
	StockQuantity int
}

// CreateProduct creates a new active product
func (uc *ProductUseCase) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	product, err := domain.NewProduct(input.Name, input.Price, input.StockQuantity)
	if err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	uc.log.WithContext(ctx).Info("product created",
		zap.Uint("product_id", product.ID),
		zap.String("price", product.Price.String()),
		zap.Int("stock", product.StockQuantity),
	)

	return product, nil
}

// GetProduct retrieves a product by ID
func (uc *ProductUseCase) GetProduct(ctx context.Context, id uint) (*domain.Product, error) {
	return uc.repo.GetByID(ctx, id)
}

// UpdateProductInput carries the fields to change; nil fields are left alone
type UpdateProductInput struct {
	ID            uint
	Price         *decimal.Decimal
	StockQuantity *int
	Status        *domain.ProductStatus
}

// UpdateProduct changes price, stock or status. Carts keep their snapshotted
// unit prices; the cart validator reports the drift.
func (uc *ProductUseCase) UpdateProduct(ctx context.Context, input UpdateProductInput) (*domain.Product, error) {
	product, err := uc.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.StockQuantity != nil {
		product.StockQuantity = *input.StockQuantity
	}
	if input.Status != nil {
		product.Status = *input.Status
	}

	if err := product.Validate(); err != nil {
		return nil, err
	}

	if err := uc.repo.Update(ctx, product); err != nil {
		return nil, err
	}

	uc.log.WithContext(ctx).Info("product updated",
		zap.Uint("product_id", product.ID),
		zap.String("price", product.Price.String()),
		zap.Int("stock", product.StockQuantity),
		zap.String("status", string(product.Status)),
	)

	return product, nil
}
