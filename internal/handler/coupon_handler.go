package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/lojinha-labs/service-catalog/internal/application"
	"github.com/lojinha-labs/service-catalog/internal/pkg/response"
)

// CouponHandler handles HTTP requests for coupon operations.
type CouponHandler struct {
	service *application.CouponService
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(service *application.CouponService) *CouponHandler {
	return &CouponHandler{service: service}
}

// RegisterRoutes registers all coupon routes.
func (h *CouponHandler) RegisterRoutes(r *gin.RouterGroup) {
	coupons := r.Group("/coupons")
	{
		coupons.POST("", h.CreateCoupon)
		coupons.GET("", h.ListCoupons)
		coupons.GET("/code/:code", h.GetCouponByCode)
		coupons.GET("/:id", h.GetCoupon)
		coupons.PATCH("/:id", h.UpdateCoupon)
		coupons.DELETE("/:id", h.DeleteCoupon)
		coupons.POST("/:id/restore", h.RestoreCoupon)
		coupons.GET("/:id/stats", h.GetCouponStats)
	}
}

// CreateCoupon handles POST /api/v1/coupons.
func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	var req application.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListCoupons handles GET /api/v1/coupons.
func (h *CouponHandler) ListCoupons(c *gin.Context) {
	result, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetCoupon handles GET /api/v1/coupons/:id.
func (h *CouponHandler) GetCoupon(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetCouponByCode handles GET /api/v1/coupons/code/:code.
func (h *CouponHandler) GetCouponByCode(c *gin.Context) {
	result, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateCoupon handles PATCH /api/v1/coupons/:id.
func (h *CouponHandler) UpdateCoupon(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req application.UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteCoupon handles DELETE /api/v1/coupons/:id.
func (h *CouponHandler) DeleteCoupon(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// RestoreCoupon handles POST /api/v1/coupons/:id/restore.
func (h *CouponHandler) RestoreCoupon(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.service.Restore(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetCouponStats handles GET /api/v1/coupons/:id/stats.
func (h *CouponHandler) GetCouponStats(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.service.Stats(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
