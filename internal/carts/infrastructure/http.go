package infrastructure

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"go-commerce/internal/carts/application"
	"go-commerce/internal/carts/domain"
	"go-commerce/pkg/errors"
	"go-commerce/pkg/middleware"
)

// CartService is the cart behaviour the handler needs
type CartService interface {
	GetCart(ctx context.Context, userID uint) (*application.CartOutput, error)
	AddItem(ctx context.Context, input application.AddItemInput) (*application.CartOutput, error)
	UpdateQuantity(ctx context.Context, input application.UpdateQuantityInput) (*application.CartOutput, error)
	RemoveItem(ctx context.Context, userID, itemID uint) (*application.CartOutput, error)
	ClearCart(ctx context.Context, userID uint) (*application.CartOutput, error)
	ValidateCart(ctx context.Context, userID uint) (*application.ValidateCartOutput, error)
}

// HTTPHandler handles HTTP requests for carts
type HTTPHandler struct {
	service CartService
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(service CartService) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// RegisterRoutes registers the cart routes
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	carts := r.Group("/carts/:userID")
	{
		carts.GET("", h.GetCart)
		carts.DELETE("", h.ClearCart)
		carts.GET("/validate", h.ValidateCart)
		carts.POST("/items", h.AddItem)
		carts.PATCH("/items/:itemID", h.UpdateQuantity)
		carts.DELETE("/items/:itemID", h.RemoveItem)
	}
}

// AddItemRequest is the request body for adding a product
type AddItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// UpdateQuantityRequest is the request body for changing a line quantity
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// CartItemResponse is a single cart line
type CartItemResponse struct {
	ID        uint            `json:"id"`
	ProductID uint            `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// CartResponse is the response body for cart operations
type CartResponse struct {
	ID         uint               `json:"id"`
	UserID     uint               `json:"user_id"`
	Items      []CartItemResponse `json:"items"`
	TotalItems int                `json:"total_items"`
	TotalPrice decimal.Decimal    `json:"total_price"`
	UpdatedAt  string             `json:"updated_at"`
}

// ItemValidationResponse is the verdict for one cart line
type ItemValidationResponse struct {
	ItemID         uint            `json:"item_id"`
	ProductID      uint            `json:"product_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	AvailableStock int             `json:"available_stock"`
	StockAvailable bool            `json:"stock_available"`
	PriceChanged   bool            `json:"price_changed"`
	Warning        string          `json:"warning,omitempty"`
}

// ValidationResponse is the response body for cart validation
type ValidationResponse struct {
	CartID                   uint                     `json:"cart_id"`
	Items                    []ItemValidationResponse `json:"items"`
	HasIssues                bool                     `json:"has_issues"`
	IssueCount               int                      `json:"issue_count"`
	TotalItems               int                      `json:"total_items"`
	TotalPrice               decimal.Decimal          `json:"total_price"`
	DeliveryFee              decimal.Decimal          `json:"delivery_fee"`
	EstimatedTotal           decimal.Decimal          `json:"estimated_total"`
	RemainingForFreeShipping decimal.Decimal          `json:"remaining_for_free_shipping"`
}

func toCartResponse(cart domain.Cart) CartResponse {
	items := make([]CartItemResponse, 0, len(cart.Items()))
	for _, item := range cart.Items() {
		items = append(items, CartItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal(),
		})
	}
	return CartResponse{
		ID:         cart.ID,
		UserID:     cart.UserID,
		Items:      items,
		TotalItems: cart.TotalItems(),
		TotalPrice: cart.TotalPrice(),
		UpdatedAt:  cart.UpdatedAt.Format(time.RFC3339),
	}
}

func toValidationResponse(report domain.ValidationReport) ValidationResponse {
	items := make([]ItemValidationResponse, 0, len(report.Items))
	for _, v := range report.Items {
		items = append(items, ItemValidationResponse{
			ItemID:         v.ItemID,
			ProductID:      v.ProductID,
			Quantity:       v.Quantity,
			UnitPrice:      v.UnitPrice,
			CurrentPrice:   v.CurrentPrice,
			AvailableStock: v.AvailableStock,
			StockAvailable: v.StockAvailable,
			PriceChanged:   v.PriceChanged,
			Warning:        v.Warning,
		})
	}
	return ValidationResponse{
		CartID:                   report.CartID,
		Items:                    items,
		HasIssues:                report.HasIssues,
		IssueCount:               report.IssueCount,
		TotalItems:               report.TotalItems,
		TotalPrice:               report.TotalPrice,
		DeliveryFee:              report.DeliveryFee,
		EstimatedTotal:           report.EstimatedTotal,
		RemainingForFreeShipping: report.RemainingForFreeShipping,
	}
}

// GetCart handles GET /carts/:userID
func (h *HTTPHandler) GetCart(c *gin.Context) {
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}

	output, err := h.service.GetCart(c.Request.Context(), userID)
	h.respond(c, http.StatusOK, output, err)
}

// AddItem handles POST /carts/:userID/items
func (h *HTTPHandler) AddItem(c *gin.Context) {
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.service.AddItem(c.Request.Context(), application.AddItemInput{
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	h.respond(c, http.StatusCreated, output, err)
}

// UpdateQuantity handles PATCH /carts/:userID/items/:itemID
func (h *HTTPHandler) UpdateQuantity(c *gin.Context) {
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}
	itemID, ok := parseID(c, "itemID")
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.service.UpdateQuantity(c.Request.Context(), application.UpdateQuantityInput{
		UserID:   userID,
		ItemID:   itemID,
		Quantity: req.Quantity,
	})
	h.respond(c, http.StatusOK, output, err)
}

// RemoveItem handles DELETE /carts/:userID/items/:itemID
func (h *HTTPHandler) RemoveItem(c *gin.Context) {
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}
	itemID, ok := parseID(c, "itemID")
	if !ok {
		return
	}

	output, err := h.service.RemoveItem(c.Request.Context(), userID, itemID)
	h.respond(c, http.StatusOK, output, err)
}

// ClearCart handles DELETE /carts/:userID
func (h *HTTPHandler) ClearCart(c *gin.Context) {
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}

	output, err := h.service.ClearCart(c.Request.Context(), userID)
	h.respond(c, http.StatusOK, output, err)
}

// ValidateCart handles GET /carts/:userID/validate
func (h *HTTPHandler) ValidateCart(c *gin.Context) {
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}

	output, err := h.service.ValidateCart(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"cart":       toCartResponse(output.Cart),
			"validation": toValidationResponse(output.Report),
		},
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

func (h *HTTPHandler) respond(c *gin.Context, status int, output *application.CartOutput, err error) {
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(status, gin.H{
		"data":     toCartResponse(output.Cart),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.Error(errors.NewValidation("invalid "+param, nil))
		return 0, false
	}
	return uint(id), true
}
