package infrastructure

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"go-commerce/internal/orders/adapters"
	"go-commerce/internal/orders/application"
	"go-commerce/internal/orders/domain"
	"go-commerce/pkg/errors"
	"go-commerce/pkg/events"
	"go-commerce/pkg/middleware"
)

// OrderService is the order behaviour the handler needs
type OrderService interface {
	CreateOrder(ctx context.Context, input application.CreateOrderInput) (*application.OrderOutput, error)
	GetOrder(ctx context.Context, id uint) (*application.OrderOutput, error)
	GetOrderByNumber(ctx context.Context, number string) (*application.OrderOutput, error)
	ListOrders(ctx context.Context, userID uint) ([]domain.Order, error)
	GetHistory(ctx context.Context, orderID uint) ([]domain.StatusHistory, error)
	ChangeStatus(ctx context.Context, input application.ChangeStatusInput) (*application.OrderOutput, error)
	CancelOrder(ctx context.Context, input application.CancelOrderInput) (*application.OrderOutput, error)
	MarkDelivered(ctx context.Context, input application.MarkDeliveredInput) (*application.OrderOutput, error)
	UpdateItemStatus(ctx context.Context, input application.UpdateItemStatusInput) (*application.OrderOutput, error)
	AdjustAmounts(ctx context.Context, input application.AdjustAmountsInput) (*application.OrderOutput, error)
}

// PaymentService applies provider callbacks
type PaymentService interface {
	Reconcile(ctx context.Context, orderNumber string, payload domain.ProviderPayload) (*application.OrderOutput, error)
}

// HTTPHandler handles HTTP requests for orders and payment callbacks
type HTTPHandler struct {
	orders   OrderService
	payments PaymentService
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(orders OrderService, payments PaymentService) *HTTPHandler {
	return &HTTPHandler{orders: orders, payments: payments}
}

// RegisterRoutes registers the order and payment routes
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("/:id", h.GetOrder)
		orders.GET("/number/:number", h.GetOrderByNumber)
		orders.GET("/:id/history", h.GetHistory)
		orders.PATCH("/:id/status", h.ChangeStatus)
		orders.POST("/:id/cancel", h.CancelOrder)
		orders.POST("/:id/deliver", h.MarkDelivered)
		orders.PATCH("/:id/items/:itemID/status", h.UpdateItemStatus)
		orders.PATCH("/:id/amounts", h.AdjustAmounts)
	}

	r.GET("/users/:userID/orders", h.ListOrders)
	r.POST("/payments/webhook", h.PaymentWebhook)
}

// DeliveryRequest is the shipping part of a checkout request
type DeliveryRequest struct {
	RecipientName string `json:"recipient_name" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	Address       string `json:"address" binding:"required"`
	ZipCode       string `json:"zip_code"`
	Memo          string `json:"memo"`
}

// CreateOrderRequest is the request body for checking out a cart
type CreateOrderRequest struct {
	UserID        uint            `json:"user_id" binding:"required"`
	Delivery      DeliveryRequest `json:"delivery" binding:"required"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
	Discount      decimal.Decimal `json:"discount"`
}

// ChangeStatusRequest is the request body for an explicit transition
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
	Memo   string `json:"memo"`
}

// CancelOrderRequest is the request body for cancelling an order
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// MarkDeliveredRequest is the request body for completing delivery
type MarkDeliveredRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required"`
}

// ItemStatusRequest is the request body for a fulfillment update
type ItemStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdjustAmountsRequest is the request body for a discount or fee change
type AdjustAmountsRequest struct {
	Discount    *decimal.Decimal `json:"discount"`
	DeliveryFee *decimal.Decimal `json:"delivery_fee"`
}

// OrderItemResponse is a single order line
type OrderItemResponse struct {
	ID         uint            `json:"id"`
	ProductID  uint            `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     string          `json:"status"`
}

// PaymentResponse is the order's payment state
type PaymentResponse struct {
	Status        string          `json:"status"`
	Method        string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentKey    string          `json:"payment_key,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	ApprovedAt    *string         `json:"approved_at,omitempty"`
	CancelledAt   *string         `json:"cancelled_at,omitempty"`
	CancelReason  string          `json:"cancel_reason,omitempty"`
	RefundedAt    *string         `json:"refunded_at,omitempty"`
}

// DeliveryResponse is the order's shipping state
type DeliveryResponse struct {
	RecipientName  string  `json:"recipient_name"`
	Phone          string  `json:"phone"`
	Address        string  `json:"address"`
	ZipCode        string  `json:"zip_code,omitempty"`
	Memo           string  `json:"memo,omitempty"`
	TrackingNumber string  `json:"tracking_number,omitempty"`
	DeliveredAt    *string `json:"delivered_at,omitempty"`
}

// OrderResponse is the response body for order operations
type OrderResponse struct {
	ID            uint                `json:"id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uint                `json:"user_id"`
	Status        string              `json:"status"`
	PaymentMethod string              `json:"payment_method"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Discount      decimal.Decimal     `json:"discount_amount"`
	DeliveryFee   decimal.Decimal     `json:"delivery_fee"`
	FinalAmount   decimal.Decimal     `json:"final_amount"`
	Delivery      DeliveryResponse    `json:"delivery"`
	Payment       *PaymentResponse    `json:"payment,omitempty"`
	Items         []OrderItemResponse `json:"items"`
	CreatedAt     string              `json:"created_at"`
	UpdatedAt     string              `json:"updated_at"`
}

// HistoryResponse is one status history record
type HistoryResponse struct {
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Reason     string `json:"reason,omitempty"`
	Memo       string `json:"memo,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func toOrderResponse(o domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
			Status:     string(item.Status),
		})
	}

	resp := OrderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		TotalAmount:   o.Amounts.Total(),
		Discount:      o.Amounts.Discount(),
		DeliveryFee:   o.Amounts.DeliveryFee(),
		FinalAmount:   o.Amounts.Final(),
		Delivery: DeliveryResponse{
			RecipientName:  o.Delivery.RecipientName,
			Phone:          o.Delivery.Phone,
			Address:        o.Delivery.Address,
			ZipCode:        o.Delivery.ZipCode,
			Memo:           o.Delivery.Memo,
			TrackingNumber: o.Delivery.TrackingNumber,
			DeliveredAt:    formatTime(o.Delivery.DeliveredAt),
		},
		Items:     items,
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
		UpdatedAt: o.UpdatedAt.Format(time.RFC3339),
	}

	if p := o.Payment; p != nil {
		resp.Payment = &PaymentResponse{
			Status:        string(p.Status),
			Method:        string(p.Method),
			Amount:        p.Amount,
			PaymentKey:    p.PaymentKey,
			TransactionID: p.TransactionID,
			ApprovedAt:    formatTime(p.ApprovedAt),
			CancelledAt:   formatTime(p.CancelledAt),
			CancelReason:  p.CancelReason,
			RefundedAt:    formatTime(p.RefundedAt),
		}
	}
	return resp
}

// CreateOrder handles POST /orders
func (h *HTTPHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.orders.CreateOrder(c.Request.Context(), application.CreateOrderInput{
		UserID: req.UserID,
		Delivery: domain.DeliveryInfo{
			RecipientName: req.Delivery.RecipientName,
			Phone:         req.Delivery.Phone,
			Address:       req.Delivery.Address,
			ZipCode:       req.Delivery.ZipCode,
			Memo:          req.Delivery.Memo,
		},
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Discount:      req.Discount,
	})
	h.respond(c, http.StatusCreated, output, err)
}

// GetOrder handles GET /orders/:id
func (h *HTTPHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	output, err := h.orders.GetOrder(c.Request.Context(), id)
	h.respond(c, http.StatusOK, output, err)
}

// GetOrderByNumber handles GET /orders/number/:number
func (h *HTTPHandler) GetOrderByNumber(c *gin.Context) {
	output, err := h.orders.GetOrderByNumber(c.Request.Context(), c.Param("number"))
	h.respond(c, http.StatusOK, output, err)
}

// ListOrders handles GET /users/:userID/orders
func (h *HTTPHandler) ListOrders(c *gin.Context) {
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	data := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		data = append(data, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, gin.H{
		"data":     data,
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// GetHistory handles GET /orders/:id/history
func (h *HTTPHandler) GetHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	history, err := h.orders.GetHistory(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	data := make([]HistoryResponse, 0, len(history))
	for _, record := range history {
		data = append(data, HistoryResponse{
			FromStatus: string(record.FromStatus),
			ToStatus:   string(record.ToStatus),
			Reason:     record.Reason,
			Memo:       record.Memo,
			CreatedAt:  record.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"data":     data,
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// ChangeStatus handles PATCH /orders/:id/status
func (h *HTTPHandler) ChangeStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.orders.ChangeStatus(c.Request.Context(), application.ChangeStatusInput{
		OrderID: id,
		Status:  domain.OrderStatus(req.Status),
		Reason:  req.Reason,
		Memo:    req.Memo,
	})
	h.respond(c, http.StatusOK, output, err)
}

// CancelOrder handles POST /orders/:id/cancel
func (h *HTTPHandler) CancelOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	// the body is optional
	var req CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.NewValidation("invalid request body", err.Error()))
			return
		}
	}

	output, err := h.orders.CancelOrder(c.Request.Context(), application.CancelOrderInput{
		OrderID: id,
		Reason:  req.Reason,
	})
	h.respond(c, http.StatusOK, output, err)
}

// MarkDelivered handles POST /orders/:id/deliver
func (h *HTTPHandler) MarkDelivered(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req MarkDeliveredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.orders.MarkDelivered(c.Request.Context(), application.MarkDeliveredInput{
		OrderID:        id,
		TrackingNumber: req.TrackingNumber,
	})
	h.respond(c, http.StatusOK, output, err)
}

// UpdateItemStatus handles PATCH /orders/:id/items/:itemID/status
func (h *HTTPHandler) UpdateItemStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseID(c, "itemID")
	if !ok {
		return
	}

	var req ItemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.orders.UpdateItemStatus(c.Request.Context(), application.UpdateItemStatusInput{
		OrderID: id,
		ItemID:  itemID,
		Status:  domain.OrderItemStatus(req.Status),
	})
	h.respond(c, http.StatusOK, output, err)
}

// AdjustAmounts handles PATCH /orders/:id/amounts
func (h *HTTPHandler) AdjustAmounts(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req AdjustAmountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.orders.AdjustAmounts(c.Request.Context(), application.AdjustAmountsInput{
		OrderID:     id,
		Discount:    req.Discount,
		DeliveryFee: req.DeliveryFee,
	})
	h.respond(c, http.StatusOK, output, err)
}

// PaymentWebhook handles POST /payments/webhook. The body has the same
// shape as the payment.callback message payload.
func (h *HTTPHandler) PaymentWebhook(c *gin.Context) {
	var req events.PaymentCallbackPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}
	if req.OrderNumber == "" {
		c.Error(domain.ErrOrderNumberRequired)
		return
	}

	output, err := h.payments.Reconcile(c.Request.Context(), req.OrderNumber, adapters.ToProviderPayload(req))
	h.respond(c, http.StatusOK, output, err)
}

func (h *HTTPHandler) respond(c *gin.Context, status int, output *application.OrderOutput, err error) {
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(status, gin.H{
		"data":     toOrderResponse(output.Order),
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
