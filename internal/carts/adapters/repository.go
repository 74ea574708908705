package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-commerce/internal/carts/domain"
	"go-commerce/pkg/db"
	apperrors "go-commerce/pkg/errors"
)

// CartModel is the GORM model for carts (persistence layer)
type CartModel struct {
	ID         uint            `gorm:"primaryKey"`
	UserID     uint            `gorm:"uniqueIndex;not null"`
	TotalItems int             `gorm:"not null;default:0"`
	TotalPrice decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "carts"
}

// CartItemModel is the GORM model for cart lines. The composite unique index
// keeps a single line per (cart, product).
type CartItemModel struct {
	ID        uint            `gorm:"primaryKey"`
	CartID    uint            `gorm:"not null;uniqueIndex:idx_cart_items_cart_product"`
	ProductID uint            `gorm:"not null;uniqueIndex:idx_cart_items_cart_product"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime"`
	Cart      CartModel       `gorm:"foreignKey:CartID;constraint:OnDelete:RESTRICT"`
}

// TableName returns the table name for GORM
func (CartItemModel) TableName() string {
	return "cart_items"
}

// PostgresCartRepository implements CartRepository using PostgreSQL
type PostgresCartRepository struct {
	db *gorm.DB
}

// NewPostgresCartRepository creates a new PostgreSQL cart repository
func NewPostgresCartRepository(db *gorm.DB) *PostgresCartRepository {
	return &PostgresCartRepository{db: db}
}

// Migrate runs auto-migration for the cart models
func (r *PostgresCartRepository) Migrate() error {
	return r.db.AutoMigrate(&CartModel{}, &CartItemModel{})
}

// GetByUserID retrieves a user's cart
func (r *PostgresCartRepository) GetByUserID(ctx context.Context, userID uint) (*domain.Cart, error) {
	return r.load(db.Conn(ctx, r.db), userID, false)
}

// LockByUserID retrieves a user's cart with SELECT ... FOR UPDATE
func (r *PostgresCartRepository) LockByUserID(ctx context.Context, userID uint) (*domain.Cart, error) {
	return r.load(db.Conn(ctx, r.db), userID, true)
}

func (r *PostgresCartRepository) load(conn *gorm.DB, userID uint, lock bool) (*domain.Cart, error) {
	var model CartModel

	query := conn
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	result := query.Where("user_id = ?", userID).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewCartNotFound(userID)
		}
		return nil, apperrors.NewInternal("failed to get cart", result.Error)
	}

	var items []CartItemModel
	if err := conn.Where("cart_id = ?", model.ID).Order("id").Find(&items).Error; err != nil {
		return nil, apperrors.NewInternal("failed to get cart items", err)
	}

	cart := toDomain(&model, items)
	return &cart, nil
}

// Create inserts the cart row, tolerating a concurrent insert for the same user
func (r *PostgresCartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	conn := db.Conn(ctx, r.db)
	model := &CartModel{
		UserID:     cart.UserID,
		TotalItems: cart.TotalItems(),
		TotalPrice: cart.TotalPrice(),
	}

	result := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(model)
	if result.Error != nil {
		return apperrors.NewInternal("failed to create cart", result.Error)
	}

	if result.RowsAffected == 0 {
		var existing CartModel
		if err := conn.Where("user_id = ?", cart.UserID).First(&existing).Error; err != nil {
			return apperrors.NewInternal("failed to load existing cart", err)
		}
		model = &existing
	}

	cart.ID = model.ID
	cart.CreatedAt = model.CreatedAt
	cart.UpdatedAt = model.UpdatedAt
	return nil
}

// Save writes the cart totals and replaces its line set
func (r *PostgresCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	write := func(tx *gorm.DB) error {
		result := tx.Model(&CartModel{ID: cart.ID}).Updates(map[string]interface{}{
			"total_items": cart.TotalItems(),
			"total_price": cart.TotalPrice(),
			"updated_at":  cart.UpdatedAt,
		})
		if result.Error != nil {
			return apperrors.NewInternal("failed to update cart", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NewCartNotFound(cart.UserID)
		}

		items := cart.Items()
		keep := make([]uint, 0, len(items))
		for _, item := range items {
			if item.ID != 0 {
				keep = append(keep, item.ID)
			}
		}

		del := tx.Where("cart_id = ?", cart.ID)
		if len(keep) > 0 {
			del = del.Where("id NOT IN ?", keep)
		}
		if err := del.Delete(&CartItemModel{}).Error; err != nil {
			return apperrors.NewInternal("failed to delete cart items", err)
		}

		models := make([]CartItemModel, len(items))
		for i, item := range items {
			models[i] = toItemModel(cart.ID, item)
			if err := tx.Omit("Cart").Save(&models[i]).Error; err != nil {
				return apperrors.NewInternal("failed to save cart item", err)
			}
		}

		persisted := make([]domain.CartItem, len(models))
		for i := range models {
			persisted[i] = toItemDomain(&models[i])
		}
		*cart = domain.RestoreCart(cart.ID, cart.UserID, persisted, cart.CreatedAt, cart.UpdatedAt)
		return nil
	}

	if db.InTransaction(ctx) {
		return write(db.Conn(ctx, r.db))
	}
	return r.db.WithContext(ctx).Transaction(write)
}

func toItemModel(cartID uint, item domain.CartItem) CartItemModel {
	return CartItemModel{
		ID:        item.ID,
		CartID:    cartID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

func toItemDomain(model *CartItemModel) domain.CartItem {
	return domain.CartItem{
		ID:        model.ID,
		CartID:    model.CartID,
		ProductID: model.ProductID,
		Quantity:  model.Quantity,
		UnitPrice: model.UnitPrice,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// toDomain rebuilds the aggregate; the stored totals are recomputed from items
func toDomain(model *CartModel, items []CartItemModel) domain.Cart {
	lines := make([]domain.CartItem, len(items))
	for i := range items {
		lines[i] = toItemDomain(&items[i])
	}
	return domain.RestoreCart(model.ID, model.UserID, lines, model.CreatedAt, model.UpdatedAt)
}
