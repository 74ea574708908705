package infrastructure

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"go-commerce/internal/catalog/application"
	"go-commerce/internal/catalog/domain"
	"go-commerce/pkg/errors"
	"go-commerce/pkg/middleware"
)

// ProductService is the catalog behaviour the handler needs
type ProductService interface {
	CreateProduct(ctx context.Context, input application.CreateProductInput) (*domain.Product, error)
	GetProduct(ctx context.Context, id uint) (*domain.Product, error)
	UpdateProduct(ctx context.Context, input application.UpdateProductInput) (*domain.Product, error)
}

// HTTPHandler handles HTTP requests for products
type HTTPHandler struct {
	service ProductService
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(service ProductService) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// RegisterRoutes registers the product routes
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	products := r.Group("/products")
	{
		products.POST("", h.CreateProduct)
		products.GET("/:id", h.GetProduct)
		products.PATCH("/:id", h.UpdateProduct)
	}
}

// CreateProductRequest is the request body for creating a product
type CreateProductRequest struct {
	Name          string          `json:"name" binding:"required"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

// UpdateProductRequest is the request body for a partial product update
type UpdateProductRequest struct {
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stock_quantity"`
	Status        *string          `json:"status"`
}

// ProductResponse is the response body for product operations
type ProductResponse struct {
	ID            uint            `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateProduct handles POST /products
func (h *HTTPHandler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	product, err := h.service.CreateProduct(c.Request.Context(), application.CreateProductInput{
		Name:          req.Name,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":     toProductResponse(product),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// GetProduct handles GET /products/:id
func (h *HTTPHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toProductResponse(product),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

// UpdateProduct handles PATCH /products/:id
func (h *HTTPHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	input := application.UpdateProductInput{
		ID:            id,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	}
	if req.Status != nil {
		status := domain.ProductStatus(*req.Status)
		input.Status = &status
	}

	product, err := h.service.UpdateProduct(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toProductResponse(product),
		"trace_id": c.GetString(middleware.TraceIDKey),
	})
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		c.Error(errors.NewValidation("invalid "+param, nil))
		return 0, false
	}
	return uint(id), true
}
