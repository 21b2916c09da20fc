package api

import (
	"net/http"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := h.svc.Auth.Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := h.svc.Auth.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getAccount(c *gin.Context) {
	account, err := h.svc.Users.GetAccount(c.Request.Context(), currentSession(c).Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	profile, err := h.svc.Users.UpdateProfile(c.Request.Context(), currentSession(c).Email, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type saveAddressesRequest struct {
	Addresses []models.Address `json:"addresses"`
}

func (h *Handler) saveAddresses(c *gin.Context) {
	var req saveAddressesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	addresses, err := h.svc.Users.SaveAddresses(c.Request.Context(), currentSession(c).Email, req.Addresses)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, addresses)
}

func (h *Handler) getWishlist(c *gin.Context) {
	items, err := h.svc.Wishlists.GetWishlist(c.Request.Context(), currentSession(c).Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

type toggleWishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

func (h *Handler) toggleWishlist(c *gin.Context) {
	var req toggleWishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := h.svc.Wishlists.Toggle(c.Request.Context(), currentSession(c).Email, req.ProductID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getCart(c *gin.Context) {
	h.respondCart(c)(h.svc.Carts.GetCart(c.Request.Context(), currentSession(c).Email))
}

func (h *Handler) clearCart(c *gin.Context) {
	h.respondCart(c)(h.svc.Carts.ClearCart(c.Request.Context(), currentSession(c).Email))
}

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if req.ProductID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId is required"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	h.respondCart(c)(h.svc.Carts.AddItem(c.Request.Context(), currentSession(c).Email, req.ProductID, req.Quantity))
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	h.respondCart(c)(h.svc.Carts.UpdateItem(c.Request.Context(), currentSession(c).Email, c.Param("productId"), req.Quantity))
}

func (h *Handler) removeCartItem(c *gin.Context) {
	h.respondCart(c)(h.svc.Carts.RemoveItem(c.Request.Context(), currentSession(c).Email, c.Param("productId")))
}

func (h *Handler) respondCart(c *gin.Context) func(*service.CartView, error) {
	return func(cart *service.CartView, err error) {
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

type quoteRequest struct {
	CouponCode string `json:"couponCode"`
}

func (h *Handler) quote(c *gin.Context) {
	var req quoteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
	}

	quote, err := h.svc.Checkout.QuoteCart(c.Request.Context(), currentSession(c).Email, req.CouponCode)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if key := c.GetHeader("Idempotency-Key"); key != "" && req.IdempotencyKey == "" {
		req.IdempotencyKey = key
	}

	order, err := h.svc.Checkout.PlaceOrder(c.Request.Context(), currentSession(c).Email, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) listMyOrders(c *gin.Context) {
	orders, err := h.svc.Checkout.ListOrders(c.Request.Context(), currentSession(c).Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}
