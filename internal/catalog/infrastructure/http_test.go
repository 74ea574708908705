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

	"go-commerce/internal/catalog/application"
	"go-commerce/internal/catalog/domain"
	"go-commerce/pkg/errors"
	"go-commerce/pkg/logger"
	"go-commerce/pkg/middleware"
)

type stubProductService struct {
	created application.CreateProductInput
	updated application.UpdateProductInput
	err     error
}

func (s *stubProductService) product(id uint) *domain.Product {
	return &domain.Product{
		ID:            id,
		Name:          "Keyboard",
		Price:         decimal.NewFromInt(20000),
		StockQuantity: 5,
		Status:        domain.ProductStatusActive,
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *stubProductService) CreateProduct(ctx context.Context, input application.CreateProductInput) (*domain.Product, error) {
	s.created = input
	if s.err != nil {
		return nil, s.err
	}
	return s.product(1), nil
}

func (s *stubProductService) GetProduct(ctx context.Context, id uint) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.product(id), nil
}

func (s *stubProductService) UpdateProduct(ctx context.Context, input application.UpdateProductInput) (*domain.Product, error) {
	s.updated = input
	if s.err != nil {
		return nil, s.err
	}
	return s.product(input.ID), nil
}

func newRouter(service ProductService) *gin.Engine {
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

func TestCreateProductHandler(t *testing.T) {
	service := &stubProductService{}
	r := newRouter(service)

	w := do(r, http.MethodPost, "/api/v1/products", `{"name":"Keyboard","price":"20000.50","stock_quantity":5}`)

	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, service.created.Price.Equal(decimal.RequireFromString("20000.50")))
	require.Equal(t, 5, service.created.StockQuantity)

	var resp struct {
		Data    ProductResponse `json:"data"`
		TraceID string          `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, uint(1), resp.Data.ID)
	require.Equal(t, "ACTIVE", resp.Data.Status)
	require.NotEmpty(t, resp.TraceID)
}

func TestCreateProductHandlerRejectsMissingName(t *testing.T) {
	r := newRouter(&stubProductService{})

	w := do(r, http.MethodPost, "/api/v1/products", `{"price":"1"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProductHandlerErrors(t *testing.T) {
	r := newRouter(&stubProductService{err: domain.NewProductNotFound(9)})

	w := do(r, http.MethodGet, "/api/v1/products/9", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, errors.CodeNotFound, resp.Error.Code)

	w = do(r, http.MethodGet, "/api/v1/products/abc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProductHandlerPassesOnlyGivenFields(t *testing.T) {
	service := &stubProductService{}
	r := newRouter(service)

	w := do(r, http.MethodPatch, "/api/v1/products/3", `{"status":"SOLD_OUT"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, uint(3), service.updated.ID)
	require.Nil(t, service.updated.Price)
	require.Nil(t, service.updated.StockQuantity)
	require.NotNil(t, service.updated.Status)
	require.Equal(t, domain.ProductStatusSoldOut, *service.updated.Status)
}
