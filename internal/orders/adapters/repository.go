package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-commerce/internal/orders/domain"
	"go-commerce/internal/pricing"
	"go-commerce/pkg/db"
	apperrors "go-commerce/pkg/errors"
)

// OrderModel is the GORM model for orders (persistence layer)
type OrderModel struct {
	ID             uint                 `gorm:"primaryKey"`
	OrderNumber    string               `gorm:"size:32;uniqueIndex;not null"`
	UserID         uint                 `gorm:"index;not null"`
	Status         domain.OrderStatus   `gorm:"size:20;not null;default:'PENDING'"`
	PaymentMethod  domain.PaymentMethod `gorm:"size:20;not null"`
	TotalAmount    decimal.Decimal      `gorm:"type:numeric(15,2);not null"`
	DiscountAmount decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	DeliveryFee    decimal.Decimal      `gorm:"type:numeric(15,2);not null;default:0"`
	FinalAmount    decimal.Decimal      `gorm:"type:numeric(15,2);not null"`
	Delivery       DeliveryModel        `gorm:"embedded;embeddedPrefix:delivery_"`
	Payment        PaymentModel         `gorm:"embedded;embeddedPrefix:payment_"`
	CreatedAt      time.Time            `gorm:"autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// DeliveryModel is stored inline in the orders table
type DeliveryModel struct {
	RecipientName  string `gorm:"size:100"`
	Phone          string `gorm:"size:20"`
	Address        string `gorm:"size:500"`
	ZipCode        string `gorm:"size:10"`
	Memo           string `gorm:"size:500"`
	TrackingNumber string `gorm:"size:100"`
	DeliveredAt    *time.Time
}

// PaymentModel is stored inline in the orders table. An empty status means
// the order has no payment record.
type PaymentModel struct {
	Status        domain.PaymentStatus `gorm:"size:30"`
	Method        domain.PaymentMethod `gorm:"size:20"`
	Amount        decimal.Decimal      `gorm:"type:numeric(15,2)"`
	Key           string               `gorm:"size:200;index"`
	TransactionID string               `gorm:"size:200"`
	ApprovedAt    *time.Time
	PaidAt        *time.Time
	CancelledAt   *time.Time
	CancelReason  string `gorm:"size:500"`
	RefundedAt    *time.Time
}

// OrderItemModel is the GORM model for order lines. An item cannot exist
// without its order.
type OrderItemModel struct {
	ID         uint                   `gorm:"primaryKey"`
	OrderID    uint                   `gorm:"index;not null"`
	ProductID  uint                   `gorm:"index;not null"`
	Quantity   int                    `gorm:"not null"`
	UnitPrice  decimal.Decimal        `gorm:"type:numeric(15,2);not null"`
	TotalPrice decimal.Decimal        `gorm:"type:numeric(15,2);not null"`
	Status     domain.OrderItemStatus `gorm:"size:20;not null"`
	UpdatedAt  time.Time
	Order      OrderModel `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// OrderStatusHistoryModel is the insert-only audit trail of transitions
type OrderStatusHistoryModel struct {
	ID         uint               `gorm:"primaryKey"`
	OrderID    uint               `gorm:"index;not null"`
	FromStatus domain.OrderStatus `gorm:"size:20;not null"`
	ToStatus   domain.OrderStatus `gorm:"size:20;not null"`
	Reason     string             `gorm:"size:500"`
	Memo       string             `gorm:"size:1000"`
	CreatedAt  time.Time          `gorm:"not null"`
	Order      OrderModel         `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT"`
}

// TableName returns the table name for GORM
func (OrderStatusHistoryModel) TableName() string {
	return "order_status_histories"
}

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *gorm.DB
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository
func NewPostgresOrderRepository(db *gorm.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// Migrate runs auto-migration for the order models
func (r *PostgresOrderRepository) Migrate() error {
	return r.db.AutoMigrate(&OrderModel{}, &OrderItemModel{}, &OrderStatusHistoryModel{})
}

// Create inserts the order, its items and any pending history
func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.within(ctx, func(tx *gorm.DB) error {
		model := toModel(order)
		if err := tx.Create(model).Error; err != nil {
			return apperrors.NewInternal("failed to create order", err)
		}
		order.ID = model.ID
		order.CreatedAt = model.CreatedAt
		order.UpdatedAt = model.UpdatedAt

		for i := range order.Items {
			item := toItemModel(order.ID, order.Items[i])
			if err := tx.Omit("Order").Create(&item).Error; err != nil {
				return apperrors.NewInternal("failed to create order item", err)
			}
			order.Items[i].ID = item.ID
			order.Items[i].OrderID = order.ID
		}

		return appendHistory(tx, order)
	})
}

// GetByID retrieves an order by ID
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id uint) (*domain.Order, error) {
	return r.load(db.Conn(ctx, r.db), "id = ?", id, false, domain.NewOrderNotFound(id))
}

// GetByNumber retrieves an order by order number
func (r *PostgresOrderRepository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.load(db.Conn(ctx, r.db), "order_number = ?", number, false, domain.NewOrderNumberNotFound(number))
}

// LockByID retrieves an order by ID with SELECT ... FOR UPDATE
func (r *PostgresOrderRepository) LockByID(ctx context.Context, id uint) (*domain.Order, error) {
	return r.load(db.Conn(ctx, r.db), "id = ?", id, true, domain.NewOrderNotFound(id))
}

// LockByNumber retrieves an order by order number with SELECT ... FOR UPDATE
func (r *PostgresOrderRepository) LockByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.load(db.Conn(ctx, r.db), "order_number = ?", number, true, domain.NewOrderNumberNotFound(number))
}

func (r *PostgresOrderRepository) load(conn *gorm.DB, where string, arg interface{}, lock bool, notFound error) (*domain.Order, error) {
	var model OrderModel

	query := conn
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	result := query.Where(where, arg).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, apperrors.NewInternal("failed to get order", result.Error)
	}

	var items []OrderItemModel
	if err := conn.Where("order_id = ?", model.ID).Order("id").Find(&items).Error; err != nil {
		return nil, apperrors.NewInternal("failed to get order items", err)
	}

	var history []OrderStatusHistoryModel
	if err := conn.Where("order_id = ?", model.ID).Order("id").Find(&history).Error; err != nil {
		return nil, apperrors.NewInternal("failed to get order history", err)
	}

	order := toDomain(&model, items, history)
	return &order, nil
}

// ListByUserID retrieves a user's orders with their items, newest first
func (r *PostgresOrderRepository) ListByUserID(ctx context.Context, userID uint) ([]domain.Order, error) {
	conn := db.Conn(ctx, r.db)

	var models []OrderModel
	if err := conn.Where("user_id = ?", userID).Order("id DESC").Find(&models).Error; err != nil {
		return nil, apperrors.NewInternal("failed to list orders", err)
	}
	if len(models) == 0 {
		return []domain.Order{}, nil
	}

	ids := make([]uint, len(models))
	for i := range models {
		ids[i] = models[i].ID
	}
	var items []OrderItemModel
	if err := conn.Where("order_id IN ?", ids).Order("id").Find(&items).Error; err != nil {
		return nil, apperrors.NewInternal("failed to list order items", err)
	}
	byOrder := make(map[uint][]OrderItemModel, len(models))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}

	orders := make([]domain.Order, len(models))
	for i := range models {
		orders[i] = toDomain(&models[i], byOrder[models[i].ID], nil)
	}
	return orders, nil
}

// Save writes the order row and item statuses, then appends new history.
// Existing history rows are never rewritten.
func (r *PostgresOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	return r.within(ctx, func(tx *gorm.DB) error {
		model := toModel(order)
		result := tx.Model(&OrderModel{ID: order.ID}).
			Select("*").
			Omit("id", "order_number", "user_id", "created_at").
			Updates(model)
		if result.Error != nil {
			return apperrors.NewInternal("failed to update order", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NewOrderNotFound(order.ID)
		}

		for _, item := range order.Items {
			update := tx.Model(&OrderItemModel{}).
				Where("id = ? AND order_id = ?", item.ID, order.ID).
				Updates(map[string]interface{}{
					"status":     item.Status,
					"updated_at": item.UpdatedAt,
				})
			if update.Error != nil {
				return apperrors.NewInternal("failed to update order item", update.Error)
			}
		}

		return appendHistory(tx, order)
	})
}

// ListHistory retrieves an order's status history, oldest first
func (r *PostgresOrderRepository) ListHistory(ctx context.Context, orderID uint) ([]domain.StatusHistory, error) {
	var models []OrderStatusHistoryModel
	if err := db.Conn(ctx, r.db).Where("order_id = ?", orderID).Order("id").Find(&models).Error; err != nil {
		return nil, apperrors.NewInternal("failed to list order history", err)
	}

	history := make([]domain.StatusHistory, len(models))
	for i := range models {
		history[i] = toHistoryDomain(&models[i])
	}
	return history, nil
}

func (r *PostgresOrderRepository) within(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if db.InTransaction(ctx) {
		return fn(db.Conn(ctx, r.db))
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

func appendHistory(tx *gorm.DB, order *domain.Order) error {
	for i := range order.History {
		if !order.History[i].IsNew() {
			continue
		}
		model := OrderStatusHistoryModel{
			OrderID:    order.ID,
			FromStatus: order.History[i].FromStatus,
			ToStatus:   order.History[i].ToStatus,
			Reason:     order.History[i].Reason,
			Memo:       order.History[i].Memo,
			CreatedAt:  order.History[i].CreatedAt,
		}
		if err := tx.Omit("Order").Create(&model).Error; err != nil {
			return apperrors.NewInternal("failed to append order history", err)
		}
		order.History[i].ID = model.ID
		order.History[i].OrderID = order.ID
	}
	return nil
}

func toModel(order *domain.Order) *OrderModel {
	model := &OrderModel{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		Status:         order.Status,
		PaymentMethod:  order.PaymentMethod,
		TotalAmount:    order.Amounts.Total(),
		DiscountAmount: order.Amounts.Discount(),
		DeliveryFee:    order.Amounts.DeliveryFee(),
		FinalAmount:    order.Amounts.Final(),
		Delivery: DeliveryModel{
			RecipientName:  order.Delivery.RecipientName,
			Phone:          order.Delivery.Phone,
			Address:        order.Delivery.Address,
			ZipCode:        order.Delivery.ZipCode,
			Memo:           order.Delivery.Memo,
			TrackingNumber: order.Delivery.TrackingNumber,
			DeliveredAt:    order.Delivery.DeliveredAt,
		},
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
	if p := order.Payment; p != nil {
		model.Payment = PaymentModel{
			Status:        p.Status,
			Method:        p.Method,
			Amount:        p.Amount,
			Key:           p.PaymentKey,
			TransactionID: p.TransactionID,
			ApprovedAt:    p.ApprovedAt,
			PaidAt:        p.PaidAt,
			CancelledAt:   p.CancelledAt,
			CancelReason:  p.CancelReason,
			RefundedAt:    p.RefundedAt,
		}
	}
	return model
}

func toItemModel(orderID uint, item domain.OrderItem) OrderItemModel {
	return OrderItemModel{
		ID:         item.ID,
		OrderID:    orderID,
		ProductID:  item.ProductID,
		Quantity:   item.Quantity,
		UnitPrice:  item.UnitPrice,
		TotalPrice: item.TotalPrice,
		Status:     item.Status,
		UpdatedAt:  item.UpdatedAt,
	}
}

func toHistoryDomain(model *OrderStatusHistoryModel) domain.StatusHistory {
	return domain.StatusHistory{
		ID:         model.ID,
		OrderID:    model.OrderID,
		FromStatus: model.FromStatus,
		ToStatus:   model.ToStatus,
		Reason:     model.Reason,
		Memo:       model.Memo,
		CreatedAt:  model.CreatedAt,
	}
}

// toDomain rebuilds the aggregate; the final amount is recomputed from its
// inputs rather than trusted from the row
func toDomain(model *OrderModel, items []OrderItemModel, history []OrderStatusHistoryModel) domain.Order {
	order := domain.Order{
		ID:            model.ID,
		OrderNumber:   model.OrderNumber,
		UserID:        model.UserID,
		Status:        model.Status,
		PaymentMethod: model.PaymentMethod,
		Amounts:       pricing.NewAmounts(model.TotalAmount, model.DiscountAmount, model.DeliveryFee),
		Delivery: domain.DeliveryInfo{
			RecipientName:  model.Delivery.RecipientName,
			Phone:          model.Delivery.Phone,
			Address:        model.Delivery.Address,
			ZipCode:        model.Delivery.ZipCode,
			Memo:           model.Delivery.Memo,
			TrackingNumber: model.Delivery.TrackingNumber,
			DeliveredAt:    model.Delivery.DeliveredAt,
		},
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}

	if p := model.Payment; p.Status != "" {
		order.Payment = &domain.PaymentInfo{
			Status:        p.Status,
			Method:        p.Method,
			Amount:        p.Amount,
			PaymentKey:    p.Key,
			TransactionID: p.TransactionID,
			ApprovedAt:    p.ApprovedAt,
			PaidAt:        p.PaidAt,
			CancelledAt:   p.CancelledAt,
			CancelReason:  p.CancelReason,
			RefundedAt:    p.RefundedAt,
		}
	}

	order.Items = make([]domain.OrderItem, len(items))
	for i, item := range items {
		order.Items[i] = domain.OrderItem{
			ID:         item.ID,
			OrderID:    item.OrderID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
			Status:     item.Status,
			UpdatedAt:  item.UpdatedAt,
		}
	}

	for i := range history {
		order.History = append(order.History, toHistoryDomain(&history[i]))
	}
	return order
}
