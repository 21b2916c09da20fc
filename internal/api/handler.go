package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/ledger"
	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SalesReport is the read side of the sales ledger
type SalesReport interface {
	Ping(ctx context.Context) error
	SalesSummary(ctx context.Context) ([]ledger.StatusTotal, error)
	RecentSales(ctx context.Context, limit int) ([]ledger.Sale, error)
}

// Services groups everything the HTTP layer calls
type Services struct {
	Products  *service.ProductService
	Blog      *service.BlogService
	Pricing   *service.PricingService
	Users     *service.UserService
	Carts     *service.CartService
	Wishlists *service.WishlistService
	Checkout  *service.CheckoutService
	Auth      *service.AuthService
	Assistant *service.AssistantService
	Sales     SalesReport // nil when no ledger is configured
}

// Limits are per-client-IP request budgets
type Limits struct {
	AuthPerMinute      int
	AssistantPerMinute int
}

// Handler contains HTTP handlers
type Handler struct {
	svc    Services
	limits Limits
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, limits Limits) *Handler {
	return &Handler{
		svc:    svc,
		limits: limits,
		logger: util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authLimit := rateLimitMiddleware(h.limits.AuthPerMinute)
	assistantLimit := rateLimitMiddleware(h.limits.AssistantPerMinute)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/featured", h.featuredProducts)
		v1.GET("/products/categories", h.categories)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/products/:id/related", h.relatedProducts)

		v1.GET("/blog", h.listPublishedPosts)
		v1.GET("/blog/:slug", h.getPublishedPost)

		v1.GET("/pricing", h.pricingRules)
		v1.POST("/coupons/validate", h.validateCoupon)

		v1.POST("/auth/register", authLimit, h.register)
		v1.POST("/auth/login", authLimit, h.login)

		v1.POST("/assistant/chat", assistantLimit, h.chat)
		v1.POST("/assistant/recommendations", assistantLimit, h.recommendations)
	}

	me := v1.Group("/me", h.requireStage(service.StageUser))
	{
		me.GET("", h.getAccount)
		me.PUT("", h.updateProfile)
		me.PUT("/addresses", h.saveAddresses)

		me.GET("/wishlist", h.getWishlist)
		me.POST("/wishlist/toggle", h.toggleWishlist)

		me.GET("/cart", h.getCart)
		me.DELETE("/cart", h.clearCart)
		me.POST("/cart/items", h.addCartItem)
		me.PUT("/cart/items/:productId", h.updateCartItem)
		me.DELETE("/cart/items/:productId", h.removeCartItem)

		me.POST("/checkout/quote", h.quote)
		me.POST("/orders", h.placeOrder)
		me.GET("/orders", h.listMyOrders)
	}

	admin := v1.Group("/admin")
	{
		admin.GET("/status", h.adminStatus)
		admin.POST("/setup", authLimit, h.adminSetup)
		admin.POST("/login", authLimit, h.adminLogin)
		admin.POST("/verify-pin", authLimit, h.verifyAdminPin)
	}

	secured := admin.Group("", h.requireStage(service.StageAdmin))
	{
		secured.GET("/products", h.listProducts)
		secured.POST("/products", h.createProduct)
		secured.PUT("/products/:id", h.updateProduct)
		secured.DELETE("/products/:id", h.deleteProduct)

		secured.GET("/orders", h.listAllOrders)
		secured.PUT("/orders/:id/status", h.updateOrderStatus)

		secured.GET("/customers", h.listCustomers)

		secured.GET("/blog", h.listAllPosts)
		secured.GET("/blog/:slug", h.getAnyPost)
		secured.POST("/blog", h.createPost)
		secured.PUT("/blog/:id", h.updatePost)
		secured.DELETE("/blog/:id", h.deletePost)

		secured.GET("/coupons", h.listCoupons)
		secured.POST("/coupons", h.createCoupon)
		secured.PUT("/coupons/:id", h.updateCoupon)
		secured.DELETE("/coupons/:id", h.deleteCoupon)

		secured.GET("/discount", h.getDiscount)
		secured.PUT("/discount", h.updateDiscount)
		secured.GET("/tax", h.getTax)
		secured.PUT("/tax", h.updateTax)
		secured.GET("/shipping", h.getShipping)
		secured.PUT("/shipping", h.updateShipping)

		secured.GET("/sales", h.salesReport)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports not ready while the sales ledger is unreachable
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.svc.Sales != nil {
		if err := h.svc.Sales.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not ready",
				"details": "sales ledger unreachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		util.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
