package api

import (
	"net/http"
	"strconv"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

const defaultRecentSales = 20

func (h *Handler) adminStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"configured": h.svc.Auth.AdminConfigured(c.Request.Context())})
}

func (h *Handler) adminSetup(c *gin.Context) {
	var req service.AdminSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	err := h.svc.Auth.ConfigureAdmin(c.Request.Context(), req)
	h.respondResult(c, http.StatusCreated, gin.H{"configured": err == nil}, err)
}

type adminLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// adminLogin is the first step; the token it returns only unlocks verify-pin
func (h *Handler) adminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := h.svc.Auth.AdminLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type verifyPinRequest struct {
	Challenge string `json:"challenge" binding:"required"`
	Pin       string `json:"pin" binding:"required"`
}

func (h *Handler) verifyAdminPin(c *gin.Context) {
	var req verifyPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := h.svc.Auth.VerifyAdminPin(c.Request.Context(), req.Challenge, req.Pin)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	product, err := h.svc.Products.CreateProduct(c.Request.Context(), req)
	h.respondResult(c, http.StatusCreated, product, err)
}

func (h *Handler) updateProduct(c *gin.Context) {
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	product, err := h.svc.Products.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	h.respondResult(c, http.StatusOK, product, err)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	err := h.svc.Products.DeleteProduct(c.Request.Context(), c.Param("id"))
	h.respondResult(c, http.StatusOK, gin.H{"id": c.Param("id")}, err)
}

func (h *Handler) listAllOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Checkout.ListAllOrders(c.Request.Context()))
}

type orderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req orderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	order, err := h.svc.Checkout.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status)
	h.respondResult(c, http.StatusOK, order, err)
}

func (h *Handler) listCustomers(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Users.ListCustomers(c.Request.Context()))
}

func (h *Handler) listAllPosts(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Blog.GetBlogPosts(c.Request.Context(), false))
}

func (h *Handler) getAnyPost(c *gin.Context) {
	post, err := h.svc.Blog.GetBlogPostBySlugAdmin(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) createPost(c *gin.Context) {
	var req service.BlogPostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	post, err := h.svc.Blog.AddBlogPost(c.Request.Context(), req)
	h.respondResult(c, http.StatusCreated, post, err)
}

func (h *Handler) updatePost(c *gin.Context) {
	var req service.BlogPostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	post, err := h.svc.Blog.UpdateBlogPost(c.Request.Context(), c.Param("id"), req)
	h.respondResult(c, http.StatusOK, post, err)
}

func (h *Handler) deletePost(c *gin.Context) {
	err := h.svc.Blog.DeleteBlogPost(c.Request.Context(), c.Param("id"))
	h.respondResult(c, http.StatusOK, gin.H{"id": c.Param("id")}, err)
}

func (h *Handler) listCoupons(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Pricing.GetCoupons(c.Request.Context()))
}

func (h *Handler) createCoupon(c *gin.Context) {
	var req service.CouponInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	coupon, err := h.svc.Pricing.AddCoupon(c.Request.Context(), req)
	h.respondResult(c, http.StatusCreated, coupon, err)
}

func (h *Handler) updateCoupon(c *gin.Context) {
	var req service.CouponInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	coupon, err := h.svc.Pricing.UpdateCoupon(c.Request.Context(), c.Param("id"), req)
	h.respondResult(c, http.StatusOK, coupon, err)
}

func (h *Handler) deleteCoupon(c *gin.Context) {
	err := h.svc.Pricing.DeleteCoupon(c.Request.Context(), c.Param("id"))
	h.respondResult(c, http.StatusOK, gin.H{"id": c.Param("id")}, err)
}

func (h *Handler) getDiscount(c *gin.Context) {
	h.respondResult(c, http.StatusOK, models.GlobalDiscount{
		Percentage: h.svc.Pricing.GetGlobalDiscountPercentage(c.Request.Context()),
	}, nil)
}

func (h *Handler) updateDiscount(c *gin.Context) {
	var req models.GlobalDiscount
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	percentage, err := h.svc.Pricing.UpdateGlobalDiscountPercentage(c.Request.Context(), req.Percentage)
	h.respondResult(c, http.StatusOK, models.GlobalDiscount{Percentage: percentage}, err)
}

func (h *Handler) getTax(c *gin.Context) {
	h.respondResult(c, http.StatusOK, models.TaxRate{Rate: h.svc.Pricing.GetTaxRate(c.Request.Context())}, nil)
}

func (h *Handler) updateTax(c *gin.Context) {
	var req models.TaxRate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	rate, err := h.svc.Pricing.UpdateTaxRate(c.Request.Context(), req.Rate)
	h.respondResult(c, http.StatusOK, models.TaxRate{Rate: rate}, err)
}

func (h *Handler) getShipping(c *gin.Context) {
	h.respondResult(c, http.StatusOK, h.svc.Pricing.GetShippingSettings(c.Request.Context()), nil)
}

func (h *Handler) updateShipping(c *gin.Context) {
	var req models.ShippingSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	settings, err := h.svc.Pricing.UpdateShippingSettings(c.Request.Context(), req.Rate, req.Threshold)
	h.respondResult(c, http.StatusOK, settings, err)
}

// salesReport reads the ledger kept by the ledger worker
func (h *Handler) salesReport(c *gin.Context) {
	if h.svc.Sales == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "sales ledger is not configured"})
		return
	}

	limit := defaultRecentSales
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	ctx := c.Request.Context()
	summary, err := h.svc.Sales.SalesSummary(ctx)
	if err != nil {
		h.respondResult(c, http.StatusOK, nil, err)
		return
	}
	recent, err := h.svc.Sales.RecentSales(ctx, limit)
	h.respondResult(c, http.StatusOK, gin.H{"summary": summary, "recent": recent}, err)
}
