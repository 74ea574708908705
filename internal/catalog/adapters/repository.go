package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go-commerce/internal/catalog/domain"
	"go-commerce/pkg/db"
	apperrors "go-commerce/pkg/errors"
)

// ProductModel is the GORM model for products (persistence layer)
type ProductModel struct {
	ID            uint                 `gorm:"primaryKey"`
	Name          string               `gorm:"size:200;not null"`
	Price         decimal.Decimal      `gorm:"type:numeric(15,2);not null"`
	StockQuantity int                  `gorm:"not null;default:0"`
	Status        domain.ProductStatus `gorm:"size:20;not null;default:'ACTIVE'"`
	CreatedAt     time.Time            `gorm:"autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// PostgresProductRepository implements ProductRepository using PostgreSQL
type PostgresProductRepository struct {
	db *gorm.DB
}

// NewPostgresProductRepository creates a new PostgreSQL product repository
func NewPostgresProductRepository(db *gorm.DB) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

// Migrate runs auto-migration for the product model
func (r *PostgresProductRepository) Migrate() error {
	return r.db.AutoMigrate(&ProductModel{})
}

// Create creates a new product
func (r *PostgresProductRepository) Create(ctx context.Context, product *domain.Product) error {
	model := toModel(product)

	if err := db.Conn(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.NewInternal("failed to create product", err)
	}

	product.ID = model.ID
	product.CreatedAt = model.CreatedAt
	product.UpdatedAt = model.UpdatedAt

	return nil
}

// GetByID retrieves a product by ID
func (r *PostgresProductRepository) GetByID(ctx context.Context, id uint) (*domain.Product, error) {
	var model ProductModel

	result := db.Conn(ctx, r.db).First(&model, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewProductNotFound(id)
		}
		return nil, apperrors.NewInternal("failed to get product", result.Error)
	}

	return toDomain(&model), nil
}

// GetByIDs retrieves all products among ids; missing ids are simply absent
func (r *PostgresProductRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]domain.Product, error) {
	products := make(map[uint]domain.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	var models []ProductModel
	if err := db.Conn(ctx, r.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, apperrors.NewInternal("failed to get products", err)
	}

	for i := range models {
		products[models[i].ID] = *toDomain(&models[i])
	}
	return products, nil
}

// Update updates an existing product
func (r *PostgresProductRepository) Update(ctx context.Context, product *domain.Product) error {
	model := toModel(product)

	result := db.Conn(ctx, r.db).Save(model)
	if result.Error != nil {
		return apperrors.NewInternal("failed to update product", result.Error)
	}

	product.UpdatedAt = model.UpdatedAt
	return nil
}

func toModel(product *domain.Product) *ProductModel {
	return &ProductModel{
		ID:            product.ID,
		Name:          product.Name,
		Price:         product.Price,
		StockQuantity: product.StockQuantity,
		Status:        product.Status,
		CreatedAt:     product.CreatedAt,
		UpdatedAt:     product.UpdatedAt,
	}
}

func toDomain(model *ProductModel) *domain.Product {
	return &domain.Product{
		ID:            model.ID,
		Name:          model.Name,
		Price:         model.Price,
		StockQuantity: model.StockQuantity,
		Status:        model.Status,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}
