package api

import (
	"net/http"
	"strings"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// listProducts serves the catalog, optionally narrowed by ?category= or ?q=
func (h *Handler) listProducts(c *gin.Context) {
	ctx := c.Request.Context()

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		c.JSON(http.StatusOK, h.svc.Products.SearchProducts(ctx, q))
		return
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		c.JSON(http.StatusOK, h.svc.Products.GetProductsByCategory(ctx, category))
		return
	}
	c.JSON(http.StatusOK, h.svc.Products.GetProducts(ctx))
}

func (h *Handler) featuredProducts(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Products.GetFeaturedProducts(c.Request.Context(), service.DefaultFeaturedLimit))
}

func (h *Handler) categories(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Products.GetCategories(c.Request.Context()))
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.svc.Products.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) relatedProducts(c *gin.Context) {
	ctx := c.Request.Context()

	product, err := h.svc.Products.GetProduct(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.Products.GetRelatedProducts(ctx, *product, service.DefaultRelatedLimit))
}

func (h *Handler) listPublishedPosts(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Blog.GetBlogPosts(c.Request.Context(), true))
}

func (h *Handler) getPublishedPost(c *gin.Context) {
	post, err := h.svc.Blog.GetBlogPostBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// pricingRules exposes the rules the storefront needs to preview totals
func (h *Handler) pricingRules(c *gin.Context) {
	ctx := c.Request.Context()

	c.JSON(http.StatusOK, gin.H{
		"discountPercentage": h.svc.Pricing.GetGlobalDiscountPercentage(ctx),
		"taxRate":            h.svc.Pricing.GetTaxRate(ctx),
		"shipping":           h.svc.Pricing.GetShippingSettings(ctx),
	})
}

type validateCouponRequest struct {
	Code     string  `json:"code" binding:"required"`
	Subtotal float64 `json:"subtotal"`
}

func (h *Handler) validateCoupon(c *gin.Context) {
	var req validateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	coupon, err := h.svc.Pricing.ValidateCoupon(c.Request.Context(), req.Code, req.Subtotal)
	h.respondResult(c, http.StatusOK, coupon, err)
}
