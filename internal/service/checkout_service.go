package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

const idempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers which order a checkout retry key produced
type IdempotencyStore interface {
	SetIdempotencyKey(ctx context.Context, key string, value string, ttl time.Duration) error
	GetIdempotencyKey(ctx context.Context, key string) (string, error)
}

// Quote is the price breakdown of a cart
type Quote struct {
	Subtotal           float64 `json:"subtotal"`
	GlobalDiscountRate float64 `json:"globalDiscountPercentage"`
	GlobalDiscount     float64 `json:"globalDiscount"`
	CouponCode         string  `json:"couponCode,omitempty"`
	CouponDiscount     float64 `json:"couponDiscount"`
	DiscountAmount     float64 `json:"discountAmount"`
	TaxRate            float64 `json:"taxRate"`
	TaxAmount          float64 `json:"taxAmount"`
	ShippingCost       float64 `json:"shippingCost"`
	Total              float64 `json:"total"`
}

// CheckoutService prices carts, places orders and moves them through statuses
type CheckoutService struct {
	store          *store.Store
	pricing        *PricingService
	catalog        *ProductService
	eventPublisher *broker.EventPublisher
	idempotency    IdempotencyStore
	logger         *zap.Logger
	now            func() time.Time

	idMu   sync.Mutex
	lastID int64
}

// NewCheckoutService creates the service. idempotency may be nil.
func NewCheckoutService(
	store *store.Store,
	pricing *PricingService,
	catalog *ProductService,
	eventPublisher *broker.EventPublisher,
	idempotency IdempotencyStore,
) *CheckoutService {
	return &CheckoutService{
		store:          store,
		pricing:        pricing,
		catalog:        catalog,
		eventPublisher: eventPublisher,
		idempotency:    idempotency,
		logger:         util.GetLogger(),
		now:            time.Now,
	}
}

// Quote applies, in order: global discount, coupon, tax on the discounted
// amount, then shipping. Shipping is free once the discounted amount reaches
// a positive threshold.
func (s *CheckoutService) Quote(ctx context.Context, items []models.CartItem, couponCode string) (*Quote, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Quote")
	defer span.End()

	cart := Cart{Items: items}
	q := &Quote{Subtotal: cart.Subtotal()}

	q.GlobalDiscountRate = s.pricing.GetGlobalDiscountPercentage(ctx)
	q.GlobalDiscount = roundMoney(q.Subtotal * q.GlobalDiscountRate / 100)
	amount := q.Subtotal - q.GlobalDiscount

	if code := strings.TrimSpace(couponCode); code != "" {
		coupon, err := s.pricing.ValidateCoupon(ctx, code, q.Subtotal)
		if err != nil {
			return nil, err
		}
		q.CouponCode = coupon.Code
		q.CouponDiscount = roundMoney(CouponDiscount(*coupon, amount))
		amount -= q.CouponDiscount
	}
	q.DiscountAmount = roundMoney(q.GlobalDiscount + q.CouponDiscount)
	amount = roundMoney(amount)

	q.TaxRate = s.pricing.GetTaxRate(ctx)
	q.TaxAmount = roundMoney(amount * q.TaxRate / 100)

	shipping := s.pricing.GetShippingSettings(ctx)
	switch {
	case len(items) == 0:
		q.ShippingCost = 0
	case shipping.Threshold > 0 && amount >= shipping.Threshold:
		q.ShippingCost = 0
	default:
		q.ShippingCost = roundMoney(shipping.Rate)
	}

	q.Total = roundMoney(amount + q.TaxAmount + q.ShippingCost)
	return q, nil
}

// QuoteCart prices the stored cart of a user
func (s *CheckoutService) QuoteCart(ctx context.Context, email, couponCode string) (*Quote, error) {
	user := s.store.GetUserData(ctx, email)
	if user == nil {
		return nil, notFound("account not found")
	}
	return s.Quote(ctx, s.catalog.RefreshCart(ctx, user.Cart), couponCode)
}

// PlaceOrderRequest is the checkout form
type PlaceOrderRequest struct {
	ShippingDetails models.ShippingDetails `json:"shippingDetails"`
	CouponCode      string                 `json:"couponCode"`
	IdempotencyKey  string                 `json:"idempotencyKey"`
}

// PlaceOrder turns the user's cart into a Processing order and empties the cart.
// Stock is decremented later by the inventory worker.
func (s *CheckoutService) PlaceOrder(ctx context.Context, email string, req PlaceOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.PlaceOrder")
	defer span.End()

	idemKey := ""
	if s.idempotency != nil && req.IdempotencyKey != "" {
		idemKey = fmt.Sprintf("checkout:%s:%s", email, req.IdempotencyKey)
		if existing := s.replay(ctx, email, idemKey); existing != nil {
			return existing, nil
		}
	}

	if err := validateShipping(req.ShippingDetails); err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_shipping").Inc()
		return nil, err
	}

	user := s.store.GetUserData(ctx, email)
	if user == nil {
		return nil, notFound("account not found")
	}

	items := s.catalog.RefreshCart(ctx, user.Cart)
	if len(items) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, invalid("your cart is empty")
	}
	if err := s.checkStock(ctx, items); err != nil {
		util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, err
	}

	quote, err := s.Quote(ctx, items, req.CouponCode)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_coupon").Inc()
		return nil, err
	}

	order := models.Order{
		ID:              s.nextOrderID(),
		Date:            s.now().UTC().Format(time.RFC3339),
		Items:           orderItems(items),
		TotalAmount:     quote.Total,
		ShippingDetails: req.ShippingDetails,
		Status:          models.OrderStatusProcessing,
		Subtotal:        quote.Subtotal,
		DiscountAmount:  quote.DiscountAmount,
		CouponCode:      quote.CouponCode,
		TaxAmount:       quote.TaxAmount,
		ShippingCost:    quote.ShippingCost,
	}

	err = s.store.MutateUser(ctx, email, func(u *models.UserData) error {
		u.Orders = append(u.Orders, order)
		store.SortOrders(u.Orders)
		u.Cart = removeOrdered(u.Cart, order.Items)
		return nil
	})
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("email", email),
		zap.Float64("total", order.TotalAmount))

	if idemKey != "" {
		if err := s.idempotency.SetIdempotencyKey(ctx, idemKey, order.ID, idempotencyTTL); err != nil {
			s.logger.Warn("Failed to store idempotency key", zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	if err := s.eventPublisher.PublishOrderPlaced(ctx, email, order); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.String("order_id", order.ID), zap.Error(err))
	}

	return &order, nil
}

// removeOrdered takes the ordered quantities out of the cart. Lines added or
// raised after the cart was priced stay behind.
func removeOrdered(cart []models.CartItem, ordered []models.OrderItem) []models.CartItem {
	taken := make(map[string]int, len(ordered))
	for _, item := range ordered {
		taken[item.ProductID] += item.Quantity
	}

	out := make([]models.CartItem, 0, len(cart))
	for _, item := range cart {
		item.Quantity -= taken[item.Product.ID]
		delete(taken, item.Product.ID)
		if item.Quantity > 0 {
			out = append(out, item)
		}
	}
	return out
}

func (s *CheckoutService) replay(ctx context.Context, email, key string) *models.Order {
	orderID, err := s.idempotency.GetIdempotencyKey(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.Error(err))
		return nil
	}
	if orderID == "" {
		return nil
	}

	user := s.store.GetUserData(ctx, email)
	if user == nil {
		return nil
	}
	for _, o := range user.Orders {
		if o.ID == orderID {
			s.logger.Info("Duplicate checkout request detected", zap.String("order_id", orderID))
			order := o
			return &order
		}
	}
	return nil
}

func (s *CheckoutService) checkStock(ctx context.Context, items []models.CartItem) error {
	for _, item := range items {
		live := s.store.GetProductByID(ctx, item.Product.ID)
		if live == nil {
			return invalid("%s is no longer available", item.Product.Name)
		}
		if item.Quantity <= 0 {
			return invalid("invalid quantity for %s", live.Name)
		}
		if live.Stock < item.Quantity {
			return invalid("only %d left of %s", live.Stock, live.Name)
		}
	}
	return nil
}

func validateShipping(d models.ShippingDetails) error {
	required := []struct{ name, value string }{
		{"name", d.Name},
		{"email", d.Email},
		{"phone", d.Phone},
		{"address", d.Address},
		{"city", d.City},
		{"zip", d.Zip},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return invalid("shipping %s is required", f.name)
		}
	}
	return nil
}

func orderItems(items []models.CartItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderItem{
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			Price:     item.Product.Price,
			Quantity:  item.Quantity,
			ImageURL:  item.Product.ImageURL,
		})
	}
	return out
}

// nextOrderID is the current Unix time in milliseconds, bumped to stay unique within the process
func (s *CheckoutService) nextOrderID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

// ListOrders returns the user's orders, newest first
func (s *CheckoutService) ListOrders(ctx context.Context, email string) ([]models.Order, error) {
	user := s.store.GetUserData(ctx, email)
	if user == nil {
		return nil, notFound("account not found")
	}
	return user.Orders, nil
}

// ListAllOrders returns every order with its owner
func (s *CheckoutService) ListAllOrders(ctx context.Context) []models.CustomerOrder {
	return s.store.ListOrders(ctx)
}

// UpdateOrderStatus sets any known status; transitions are not restricted
func (s *CheckoutService) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.UpdateOrderStatus")
	defer span.End()

	if !status.Valid() {
		return nil, invalid("status must be one of Processing, Shipped, Delivered, Cancelled")
	}

	email, order := s.store.FindOrder(ctx, orderID)
	if order == nil {
		return nil, notFound("order not found")
	}

	previous, err := s.store.UpdateOrderStatus(ctx, email, orderID, status)
	if errors.Is(err, store.ErrOrderNotFound) || errors.Is(err, store.ErrUserNotFound) {
		return nil, notFound("order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	util.OrderStatusChangesTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)))

	if err := s.eventPublisher.PublishOrderStatusChanged(ctx, email, orderID, previous, status); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.String("order_id", orderID), zap.Error(err))
	}

	order.Status = status
	return order, nil
}
