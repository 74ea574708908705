package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go-commerce/internal/carts/domain"
	"go-commerce/internal/carts/ports"
	"go-commerce/internal/pricing"
	"go-commerce/pkg/errors"
	"go-commerce/pkg/logger"
)

// Cart mutation names used for logging and metrics
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpRemove = "remove"
	OpClear  = "clear"
)

// Settings carries the adjustable cart rules
type Settings struct {
	DeliveryPolicy  pricing.DeliveryPolicy
	MaxItemQuantity int
}

// CartUseCase handles cart business logic. Every mutation runs in one
// transaction that holds the user's cart row lock, so concurrent requests
// for the same cart are applied one after another.
type CartUseCase struct {
	carts    ports.CartRepository
	products ports.ProductReader
	tx       ports.Transactor
	metrics  ports.Metrics
	settings Settings
	log      *logger.Logger
	now      func() time.Time
}

// NewCartUseCase creates a new cart use case
func NewCartUseCase(
	carts ports.CartRepository,
	products ports.ProductReader,
	tx ports.Transactor,
	metrics ports.Metrics,
	settings Settings,
	log *logger.Logger,
) *CartUseCase {
	return &CartUseCase{
		carts:    carts,
		products: products,
		tx:       tx,
		metrics:  metrics,
		settings: settings,
		log:      log,
		now:      time.Now,
	}
}

// CartOutput is returned by every cart operation
type CartOutput struct {
	Cart domain.Cart
}

// GetCart returns the user's cart, creating an empty one on first access
func (uc *CartUseCase) GetCart(ctx context.Context, userID uint) (*CartOutput, error) {
	if userID == 0 {
		return nil, domain.ErrUserIDRequired
	}

	cart, err := uc.carts.GetByUserID(ctx, userID)
	if err == nil {
		return &CartOutput{Cart: *cart}, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, err
	}

	var out domain.Cart
	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := uc.lockOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		out = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &CartOutput{Cart: out}, nil
}

// AddItemInput represents the input for adding a product to a cart
type AddItemInput struct {
	UserID    uint
	ProductID uint
	Quantity  int
}

// AddItem adds a product, merging with an existing line for the same product
func (uc *CartUseCase) AddItem(ctx context.Context, input AddItemInput) (*CartOutput, error) {
	if input.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	return uc.mutate(ctx, input.UserID, OpAdd, func(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
		product, err := uc.products.GetByID(ctx, input.ProductID)
		if err != nil {
			return cart, err
		}
		return cart.AddItem(*product, input.Quantity, uc.settings.MaxItemQuantity, uc.now())
	})
}

// UpdateQuantityInput represents the input for changing a line quantity
type UpdateQuantityInput struct {
	UserID   uint
	ItemID   uint
	Quantity int
}

// UpdateQuantity sets the quantity of a cart line
func (uc *CartUseCase) UpdateQuantity(ctx context.Context, input UpdateQuantityInput) (*CartOutput, error) {
	if input.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	return uc.mutate(ctx, input.UserID, OpUpdate, func(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
		item, ok := cart.Item(input.ItemID)
		if !ok {
			return cart, domain.NewCartItemNotFound(input.ItemID)
		}
		product, err := uc.products.GetByID(ctx, item.ProductID)
		if err != nil {
			return cart, err
		}
		return cart.UpdateQuantity(input.ItemID, input.Quantity, uc.settings.MaxItemQuantity, *product, uc.now())
	})
}

// RemoveItem drops a line from the user's cart
func (uc *CartUseCase) RemoveItem(ctx context.Context, userID, itemID uint) (*CartOutput, error) {
	return uc.mutate(ctx, userID, OpRemove, func(_ context.Context, cart domain.Cart) (domain.Cart, error) {
		return cart.RemoveItem(itemID, uc.now())
	})
}

// ClearCart empties the user's cart; the cart itself is kept
func (uc *CartUseCase) ClearCart(ctx context.Context, userID uint) (*CartOutput, error) {
	return uc.mutate(ctx, userID, OpClear, func(_ context.Context, cart domain.Cart) (domain.Cart, error) {
		return cart.Clear(uc.now()), nil
	})
}

// ValidateCartOutput pairs the cart with its advisory report
type ValidateCartOutput struct {
	Cart   domain.Cart
	Report domain.ValidationReport
}

// ValidateCart compares the user's cart with live catalog data
func (uc *CartUseCase) ValidateCart(ctx context.Context, userID uint) (*ValidateCartOutput, error) {
	current, err := uc.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	products, err := uc.products.GetByIDs(ctx, current.Cart.ProductIDs())
	if err != nil {
		return nil, err
	}

	report := domain.Validate(current.Cart, products, uc.settings.DeliveryPolicy)
	if report.HasIssues {
		uc.log.WithContext(ctx).Info("cart has issues",
			zap.Uint("cart_id", current.Cart.ID),
			zap.Uint("user_id", userID),
			zap.Int("issue_count", report.IssueCount),
		)
	}

	return &ValidateCartOutput{Cart: current.Cart, Report: report}, nil
}

func (uc *CartUseCase) mutate(
	ctx context.Context,
	userID uint,
	op string,
	apply func(ctx context.Context, cart domain.Cart) (domain.Cart, error),
) (*CartOutput, error) {
	if userID == 0 {
		return nil, domain.ErrUserIDRequired
	}

	var out domain.Cart
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		cart, err := uc.lockOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		next, err := apply(ctx, cart)
		if err != nil {
			return err
		}

		if err := uc.carts.Save(ctx, &next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.CartMutation(op)
	}

	uc.log.WithContext(ctx).Info("cart updated",
		zap.String("op", op),
		zap.Uint("cart_id", out.ID),
		zap.Uint("user_id", userID),
		zap.Int("total_items", out.TotalItems()),
		zap.String("total_price", out.TotalPrice().String()),
	)

	return &CartOutput{Cart: out}, nil
}

// lockOrCreate must run inside a transaction
func (uc *CartUseCase) lockOrCreate(ctx context.Context, userID uint) (domain.Cart, error) {
	cart, err := uc.carts.LockByUserID(ctx, userID)
	if err == nil {
		return *cart, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return domain.Cart{}, err
	}

	fresh, err := domain.NewCart(userID, uc.now())
	if err != nil {
		return domain.Cart{}, err
	}
	if err := uc.carts.Create(ctx, &fresh); err != nil {
		return domain.Cart{}, err
	}

	cart, err = uc.carts.LockByUserID(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	return *cart, nil
}
