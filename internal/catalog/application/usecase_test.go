package application

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"go-commerce/internal/catalog/domain"
	"go-commerce/pkg/errors"
	"go-commerce/pkg/logger"
)

// MockProductRepository is a mock implementation of ProductRepository
type MockProductRepository struct {
	products map[uint]domain.Product
	nextID   uint
}

func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[uint]domain.Product),
		nextID:   1,
	}
}

func (m *MockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	product.ID = m.nextID
	m.nextID++
	m.products[product.ID] = *product
	return nil
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uint) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, domain.NewProductNotFound(id)
	}
	return &product, nil
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]domain.Product, error) {
	out := make(map[uint]domain.Product)
	for _, id := range ids {
		if product, ok := m.products[id]; ok {
			out[id] = product
		}
	}
	return out, nil
}

func (m *MockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return domain.NewProductNotFound(product.ID)
	}
	m.products[product.ID] = *product
	return nil
}

func TestCreateProduct_Success(t *testing.T) {
	// Arrange
	repo := NewMockProductRepository()
	useCase := NewProductUseCase(repo, logger.New("test", "debug"))

	// Act
	product, err := useCase.CreateProduct(context.Background(), CreateProductInput{
		Name:          "  Keyboard ",
		Price:         decimal.NewFromInt(20000),
		StockQuantity: 5,
	})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if product.ID != 1 {
		t.Errorf("expected ID 1, got %d", product.ID)
	}
	if product.Name != "Keyboard" {
		t.Errorf("expected trimmed name, got %q", product.Name)
	}
	if product.Status != domain.ProductStatusActive {
		t.Errorf("expected ACTIVE, got %s", product.Status)
	}
}

func TestCreateProduct_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input CreateProductInput
	}{
		{"empty name", CreateProductInput{Name: "", Price: decimal.NewFromInt(1), StockQuantity: 1}},
		{"zero price", CreateProductInput{Name: "x", Price: decimal.Zero, StockQuantity: 1}},
		{"negative stock", CreateProductInput{Name: "x", Price: decimal.NewFromInt(1), StockQuantity: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			useCase := NewProductUseCase(NewMockProductRepository(), logger.New("test", "debug"))

			// Act
			_, err := useCase.CreateProduct(context.Background(), tt.input)

			// Assert
			if !errors.Is(err, errors.CodeValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUpdateProduct_PartialFields(t *testing.T) {
	// Arrange
	repo := NewMockProductRepository()
	useCase := NewProductUseCase(repo, logger.New("test", "debug"))
	created, _ := useCase.CreateProduct(context.Background(), CreateProductInput{
		Name:          "Keyboard",
		Price:         decimal.NewFromInt(20000),
		StockQuantity: 5,
	})
	price := decimal.NewFromInt(25000)
	status := domain.ProductStatusSoldOut

	// Act
	updated, err := useCase.UpdateProduct(context.Background(), UpdateProductInput{
		ID:     created.ID,
		Price:  &price,
		Status: &status,
	})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !updated.Price.Equal(price) {
		t.Errorf("expected price 25000, got %s", updated.Price)
	}
	if updated.StockQuantity != 5 {
		t.Errorf("expected stock untouched, got %d", updated.StockQuantity)
	}
	if updated.IsSellable() {
		t.Error("sold out product must not be sellable")
	}
}

func TestUpdateProduct_InvalidStatus(t *testing.T) {
	// Arrange
	repo := NewMockProductRepository()
	useCase := NewProductUseCase(repo, logger.New("test", "debug"))
	created, _ := useCase.CreateProduct(context.Background(), CreateProductInput{
		Name:          "Keyboard",
		Price:         decimal.NewFromInt(20000),
		StockQuantity: 5,
	})
	status := domain.ProductStatus("DISCONTINUED")

	// Act
	_, err := useCase.UpdateProduct(context.Background(), UpdateProductInput{ID: created.ID, Status: &status})

	// Assert
	if !errors.Is(err, errors.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if repo.products[created.ID].Status != domain.ProductStatusActive {
		t.Error("stored product must be unchanged")
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	// Arrange
	useCase := NewProductUseCase(NewMockProductRepository(), logger.New("test", "debug"))

	// Act
	_, err := useCase.GetProduct(context.Background(), 42)

	// Assert
	if !errors.Is(err, errors.CodeNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
}
