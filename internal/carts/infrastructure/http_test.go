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

	"go-commerce/internal/carts/application"
	"go-commerce/internal/carts/domain"
	catalog "go-commerce/internal/catalog/domain"
	"go-commerce/internal/pricing"
	"go-commerce/pkg/errors"
	"go-commerce/pkg/logger"
	"go-commerce/pkg/middleware"
)

var now = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type stubCartService struct {
	cart    domain.Cart
	added   application.AddItemInput
	updated application.UpdateQuantityInput
	removed uint
	err     error
}

func (s *stubCartService) output() (*application.CartOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &application.CartOutput{Cart: s.cart}, nil
}

func (s *stubCartService) GetCart(ctx context.Context, userID uint) (*application.CartOutput, error) {
	return s.output()
}

func (s *stubCartService) AddItem(ctx context.Context, input application.AddItemInput) (*application.CartOutput, error) {
	s.added = input
	return s.output()
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, input application.UpdateQuantityInput) (*application.CartOutput, error) {
	s.updated = input
	return s.output()
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, itemID uint) (*application.CartOutput, error) {
	s.removed = itemID
	return s.output()
}

func (s *stubCartService) ClearCart(ctx context.Context, userID uint) (*application.CartOutput, error) {
	return s.output()
}

func (s *stubCartService) ValidateCart(ctx context.Context, userID uint) (*application.ValidateCartOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	products := map[uint]catalog.Product{
		10: {ID: 10, Price: decimal.NewFromInt(25000), StockQuantity: 1, Status: catalog.ProductStatusActive},
	}
	report := domain.Validate(s.cart, products, pricing.DefaultDeliveryPolicy())
	return &application.ValidateCartOutput{Cart: s.cart, Report: report}, nil
}

func sampleCart() domain.Cart {
	return domain.RestoreCart(1, 7, []domain.CartItem{
		{ID: 100, CartID: 1, ProductID: 10, Quantity: 2, UnitPrice: decimal.NewFromInt(20000)},
	}, now, now)
}

func newRouter(service CartService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.TraceID(), middleware.ErrorHandler(logger.Nop()))
	NewHTTPHandler(service).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetCartHandler(t *testing.T) {
	r := newRouter(&stubCartService{cart: sampleCart()})

	w := do(r, http.MethodGet, "/api/v1/carts/7", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data CartResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Data.TotalItems)
	require.True(t, resp.Data.TotalPrice.Equal(decimal.NewFromInt(40000)))
	require.Len(t, resp.Data.Items, 1)
	require.True(t, resp.Data.Items[0].Subtotal.Equal(decimal.NewFromInt(40000)))
}

func TestAddItemHandler(t *testing.T) {
	service := &stubCartService{cart: sampleCart()}
	r := newRouter(service)

	w := do(r, http.MethodPost, "/api/v1/carts/7/items", `{"product_id":10,"quantity":2}`)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, application.AddItemInput{UserID: 7, ProductID: 10, Quantity: 2}, service.added)
}

func TestAddItemHandlerMapsStockError(t *testing.T) {
	r := newRouter(&stubCartService{err: domain.NewInsufficientStock(10, 3, 1)})

	w := do(r, http.MethodPost, "/api/v1/carts/7/items", `{"product_id":10,"quantity":3}`)

	require.Equal(t, http.StatusConflict, w.Code)
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, errors.CodeIllegalState, resp.Error.Code)
}

func TestUpdateAndRemoveHandlers(t *testing.T) {
	service := &stubCartService{cart: sampleCart()}
	r := newRouter(service)

	w := do(r, http.MethodPatch, "/api/v1/carts/7/items/100", `{"quantity":4}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, application.UpdateQuantityInput{UserID: 7, ItemID: 100, Quantity: 4}, service.updated)

	w = do(r, http.MethodDelete, "/api/v1/carts/7/items/100", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, uint(100), service.removed)

	w = do(r, http.MethodDelete, "/api/v1/carts/7/items/zero", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateCartHandler(t *testing.T) {
	r := newRouter(&stubCartService{cart: sampleCart()})

	w := do(r, http.MethodGet, "/api/v1/carts/7/validate", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Validation ValidationResponse `json:"validation"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	v := resp.Data.Validation
	require.True(t, v.HasIssues)
	require.Equal(t, 1, v.IssueCount)
	require.Len(t, v.Items, 1)
	require.False(t, v.Items[0].StockAvailable)
	require.True(t, v.Items[0].PriceChanged)
	require.True(t, v.RemainingForFreeShipping.Equal(decimal.NewFromInt(10000)))
}

func TestCartHandlerRejectsZeroUser(t *testing.T) {
	r := newRouter(&stubCartService{cart: sampleCart()})

	w := do(r, http.MethodGet, "/api/v1/carts/0", "")

	require.Equal(t, http.StatusBadRequest, w.Code)
}
