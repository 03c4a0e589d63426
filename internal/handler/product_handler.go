package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lojinha-labs/service-catalog/internal/application"
	"github.com/lojinha-labs/service-catalog/internal/pkg/response"
)

// ProductHandler handles HTTP requests for product and discount operations.
type ProductHandler struct {
	products  *application.ProductService
	discounts *application.DiscountService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(products *application.ProductService, discounts *application.DiscountService) *ProductHandler {
	return &ProductHandler{products: products, discounts: discounts}
}

// RegisterRoutes registers all product routes.
func (h *ProductHandler) RegisterRoutes(r *gin.RouterGroup) {
	products := r.Group("/products")
	{
		products.POST("", h.CreateProduct)
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
		products.PATCH("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
		products.POST("/:id/restore", h.RestoreProduct)

		products.POST("/:id/discount/coupon", h.ApplyCoupon)
		products.POST("/:id/discount/percent", h.ApplyPercentDiscount)
		products.DELETE("/:id/discount", h.RemoveDiscount)
	}
}

// CreateProduct handles POST /api/v1/products.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req application.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.products.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListProducts handles GET /api/v1/products.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var query application.ListProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.products.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetProduct handles GET /api/v1/products/:id.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateProduct handles PATCH /api/v1/products/:id.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req application.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.products.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteProduct handles DELETE /api/v1/products/:id.
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// RestoreProduct handles POST /api/v1/products/:id/restore.
func (h *ProductHandler) RestoreProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.products.Restore(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ApplyCoupon handles POST /api/v1/products/:id/discount/coupon.
func (h *ProductHandler) ApplyCoupon(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req application.ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.discounts.ApplyCoupon(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ApplyPercentDiscount handles POST /api/v1/products/:id/discount/percent.
func (h *ProductHandler) ApplyPercentDiscount(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req application.ApplyPercentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.discounts.ApplyPercent(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RemoveDiscount handles DELETE /api/v1/products/:id/discount.
func (h *ProductHandler) RemoveDiscount(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.discounts.Remove(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// parseID parses the :id path parameter, writing a 400 on failure.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id: must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
