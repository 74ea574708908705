package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"go-commerce/internal/orders/application"
	"go-commerce/internal/orders/domain"
	"go-commerce/internal/pricing"
	"go-commerce/pkg/errors"
	"go-commerce/pkg/logger"
	"go-commerce/pkg/middleware"
)

var now = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func sampleOrder() domain.Order {
	payment := domain.NewPaymentInfo(domain.PaymentMethodCard, decimal.NewFromInt(43000))
	return domain.Order{
		ID:            5,
		OrderNumber:   "20261015093000-ABCD1234",
		UserID:        7,
		Status:        domain.OrderStatusPending,
		PaymentMethod: domain.PaymentMethodCard,
		Amounts:       pricing.NewAmounts(decimal.NewFromInt(40000), decimal.Zero, decimal.NewFromInt(3000)),
		Delivery:      domain.DeliveryInfo{RecipientName: "Kim", Phone: "010", Address: "Seoul"},
		Payment:       &payment,
		Items: []domain.OrderItem{
			{ID: 1, OrderID: 5, ProductID: 10, Quantity: 2, UnitPrice: decimal.NewFromInt(20000),
				TotalPrice: decimal.NewFromInt(40000), Status: domain.OrderItemStatusPending},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type stubOrderService struct {
	created   application.CreateOrderInput
	changed   application.ChangeStatusInput
	cancelled application.CancelOrderInput
	delivered application.MarkDeliveredInput
	item      application.UpdateItemStatusInput
	adjusted  application.AdjustAmountsInput
	err       error
}

func (s *stubOrderService) output() (*application.OrderOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &application.OrderOutput{Order: sampleOrder()}, nil
}

func (s *stubOrderService) CreateOrder(ctx context.Context, input application.CreateOrderInput) (*application.OrderOutput, error) {
	s.created = input
	return s.output()
}

func (s *stubOrderService) GetOrder(ctx context.Context, id uint) (*application.OrderOutput, error) {
	return s.output()
}

func (s *stubOrderService) GetOrderByNumber(ctx context.Context, number string) (*application.OrderOutput, error) {
	return s.output()
}

func (s *stubOrderService) ListOrders(ctx context.Context, userID uint) ([]domain.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []domain.Order{sampleOrder(), sampleOrder()}, nil
}

func (s *stubOrderService) GetHistory(ctx context.Context, orderID uint) ([]domain.StatusHistory, error) {
	return []domain.StatusHistory{
		{ID: 1, OrderID: orderID, FromStatus: domain.OrderStatusPending, ToStatus: domain.OrderStatusConfirmed, Reason: "payment approved", CreatedAt: now},
	}, nil
}

func (s *stubOrderService) ChangeStatus(ctx context.Context, input application.ChangeStatusInput) (*application.OrderOutput, error) {
	s.changed = input
	return s.output()
}

func (s *stubOrderService) CancelOrder(ctx context.Context, input application.CancelOrderInput) (*application.OrderOutput, error) {
	s.cancelled = input
	return s.output()
}

func (s *stubOrderService) MarkDelivered(ctx context.Context, input application.MarkDeliveredInput) (*application.OrderOutput, error) {
	s.delivered = input
	return s.output()
}

func (s *stubOrderService) UpdateItemStatus(ctx context.Context, input application.UpdateItemStatusInput) (*application.OrderOutput, error) {
	s.item = input
	return s.output()
}

func (s *stubOrderService) AdjustAmounts(ctx context.Context, input application.AdjustAmountsInput) (*application.OrderOutput, error) {
	s.adjusted = input
	return s.output()
}

type stubPaymentService struct {
	orderNumber string
	payload     domain.ProviderPayload
	err         error
}

func (s *stubPaymentService) Reconcile(ctx context.Context, orderNumber string, payload domain.ProviderPayload) (*application.OrderOutput, error) {
	s.orderNumber = orderNumber
	s.payload = payload
	if s.err != nil {
		return nil, s.err
	}
	return &application.OrderOutput{Order: sampleOrder()}, nil
}

func newRouter(orders OrderService, payments PaymentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.TraceID(), middleware.ErrorHandler(logger.Nop()))
	NewHTTPHandler(orders, payments).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateOrderHandler(t *testing.T) {
	orders := &stubOrderService{}
	r := newRouter(orders, &stubPaymentService{})

	w := do(r, http.MethodPost, "/api/v1/orders", `{
		"user_id": 7,
		"delivery": {"recipient_name": "Kim", "phone": "010", "address": "Seoul"},
		"payment_method": "CARD",
		"discount": "1000"
	}`)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, uint(7), orders.created.UserID)
	require.Equal(t, domain.PaymentMethodCard, orders.created.PaymentMethod)
	require.True(t, orders.created.Discount.Equal(decimal.NewFromInt(1000)))
	require.Equal(t, "Seoul", orders.created.Delivery.Address)

	var resp struct {
		Data OrderResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "20261015093000-ABCD1234", resp.Data.OrderNumber)
	require.True(t, resp.Data.FinalAmount.Equal(decimal.NewFromInt(43000)))
	require.NotNil(t, resp.Data.Payment)
	require.Equal(t, "READY", resp.Data.Payment.Status)
}

func TestCreateOrderHandlerRejectsMissingDelivery(t *testing.T) {
	r := newRouter(&stubOrderService{}, &stubPaymentService{})

	w := do(r, http.MethodPost, "/api/v1/orders", `{"user_id": 7, "payment_method": "CARD"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderHandlerEmptyCart(t *testing.T) {
	r := newRouter(&stubOrderService{err: domain.ErrEmptyCart}, &stubPaymentService{})

	w := do(r, http.MethodPost, "/api/v1/orders", `{
		"user_id": 7,
		"delivery": {"recipient_name": "Kim", "phone": "010", "address": "Seoul"},
		"payment_method": "CARD"
	}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangeStatusHandlerMapsIllegalTransition(t *testing.T) {
	orders := &stubOrderService{err: domain.NewIllegalTransition(domain.OrderStatusDelivered, domain.OrderStatusShipped)}
	r := newRouter(orders, &stubPaymentService{})

	w := do(r, http.MethodPatch, "/api/v1/orders/5/status", `{"status":"SHIPPED","reason":"oops"}`)

	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, domain.OrderStatusShipped, orders.changed.Status)

	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, errors.CodeIllegalState, resp.Error.Code)
}

func TestCancelHandlerAcceptsEmptyBody(t *testing.T) {
	orders := &stubOrderService{}
	r := newRouter(orders, &stubPaymentService{})

	w := do(r, http.MethodPost, "/api/v1/orders/5/cancel", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, uint(5), orders.cancelled.OrderID)

	w = do(r, http.MethodPost, "/api/v1/orders/5/cancel", `{"reason":"changed my mind"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "changed my mind", orders.cancelled.Reason)
}

func TestDeliverAndItemStatusHandlers(t *testing.T) {
	orders := &stubOrderService{}
	r := newRouter(orders, &stubPaymentService{})

	w := do(r, http.MethodPost, "/api/v1/orders/5/deliver", `{"tracking_number":"TRK-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "TRK-1", orders.delivered.TrackingNumber)

	w = do(r, http.MethodPost, "/api/v1/orders/5/deliver", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPatch, "/api/v1/orders/5/items/1/status", `{"status":"SHIPPED"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, application.UpdateItemStatusInput{OrderID: 5, ItemID: 1, Status: domain.OrderItemStatusShipped}, orders.item)
}

func TestReadHandlers(t *testing.T) {
	r := newRouter(&stubOrderService{}, &stubPaymentService{})

	w := do(r, http.MethodGet, "/api/v1/orders/number/20261015093000-ABCD1234", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/v1/users/7/orders", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []OrderResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)

	w = do(r, http.MethodGet, "/api/v1/orders/5/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Data []HistoryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Data, 1)
	require.Equal(t, "CONFIRMED", history.Data[0].ToStatus)
}

func TestPaymentWebhookHandler(t *testing.T) {
	payments := &stubPaymentService{}
	r := newRouter(&stubOrderService{}, payments)

	w := do(r, http.MethodPost, "/api/v1/payments/webhook", `{
		"order_number": "20261015093000-ABCD1234",
		"payment_key": "pk_1",
		"transaction_id": "tx_1",
		"method": "CARD",
		"amount": "43000",
		"status": "DONE"
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "20261015093000-ABCD1234", payments.orderNumber)
	require.Equal(t, domain.PaymentStatusDone, payments.payload.Status)
	require.Equal(t, "pk_1", payments.payload.PaymentKey)
	require.True(t, payments.payload.Amount.Equal(decimal.NewFromInt(43000)))

	w = do(r, http.MethodPost, "/api/v1/payments/webhook", `{"status":"DONE"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentWebhookHandlerRefund(t *testing.T) {
	payments := &stubPaymentService{}
	r := newRouter(&stubOrderService{}, payments)

	w := do(r, http.MethodPost, "/api/v1/payments/webhook", `{
		"order_number": "20261015093000-ABCD1234",
		"status": "CANCELED",
		"refunded": true
	}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, payments.payload.Refunded)

	payments.err = domain.NewNotRefundable(domain.OrderStatusPending)
	w = do(r, http.MethodPost, "/api/v1/payments/webhook", `{
		"order_number": "20261015093000-ABCD1234",
		"status": "CANCELED",
		"refunded": true
	}`)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAdjustAmountsHandler(t *testing.T) {
	orders := &stubOrderService{}
	r := newRouter(orders, &stubPaymentService{})

	w := do(r, http.MethodPatch, "/api/v1/orders/5/amounts", `{"discount":"2000"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, uint(5), orders.adjusted.OrderID)
	require.NotNil(t, orders.adjusted.Discount)
	require.True(t, orders.adjusted.Discount.Equal(decimal.NewFromInt(2000)))
	require.Nil(t, orders.adjusted.DeliveryFee)

	orders.err = domain.ErrDiscountExceedsTotal
	w = do(r, http.MethodPatch, "/api/v1/orders/5/amounts", `{"discount":"999999"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
