package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"
)

// Cart is the quantity math over a list of cart lines. Quantities never exceed the product stock.
type Cart struct {
	Items []models.CartItem
}

// Add merges with an existing line of the same product, clamped to stock
func (c *Cart) Add(product models.Product, quantity int) error {
	if quantity <= 0 {
		return invalid("quantity must be at least 1")
	}
	if product.Stock <= 0 {
		return invalid("%s is out of stock", product.Name)
	}

	for i := range c.Items {
		if c.Items[i].Product.ID == product.ID {
			c.Items[i].Product = product
			c.Items[i].Quantity = clamp(c.Items[i].Quantity+quantity, product.Stock)
			return nil
		}
	}

	c.Items = append(c.Items, models.CartItem{Product: product, Quantity: clamp(quantity, product.Stock)})
	return nil
}

// Update sets a line quantity; zero or less removes the line
func (c *Cart) Update(productID string, quantity int) error {
	for i := range c.Items {
		if c.Items[i].Product.ID != productID {
			continue
		}
		quantity = clamp(quantity, c.Items[i].Product.Stock)
		if quantity <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
		c.Items[i].Quantity = quantity
		return nil
	}
	return notFound("product is not in the cart")
}

func (c *Cart) Remove(productID string) {
	for i := range c.Items {
		if c.Items[i].Product.ID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.Items = []models.CartItem{}
}

// Subtotal is the sum of price times quantity, rounded to cents
func (c *Cart) Subtotal() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Product.Price * float64(item.Quantity)
	}
	return roundMoney(total)
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func clamp(quantity, stock int) int {
	if quantity > stock {
		quantity = stock
	}
	if quantity < 0 {
		quantity = 0
	}
	return quantity
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// CartView is a cart with its totals
type CartView struct {
	Items     []models.CartItem `json:"items"`
	Subtotal  float64           `json:"subtotal"`
	ItemCount int               `json:"itemCount"`
}

func newCartView(items []models.CartItem) *CartView {
	c := Cart{Items: items}
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	return &CartView{Items: c.Items, Subtotal: c.Subtotal(), ItemCount: c.ItemCount()}
}

// CartService keeps each user's cart in their account record
type CartService struct {
	store   *store.Store
	catalog *ProductService
}

func NewCartService(store *store.Store, catalog *ProductService) *CartService {
	return &CartService{store: store, catalog: catalog}
}

// GetCart returns the cart with snapshots refreshed from the catalog
func (s *CartService) GetCart(ctx context.Context, email string) (*CartView, error) {
	user := s.store.GetUserData(ctx, email)
	if user == nil {
		return nil, notFound("account not found")
	}
	return newCartView(s.catalog.RefreshCart(ctx, user.Cart)), nil
}

func (s *CartService) AddItem(ctx context.Context, email, productID string, quantity int) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, email, func(c *Cart) error {
		return c.Add(*product, quantity)
	})
}

// UpdateItem clamps against current stock of the live product
func (s *CartService) UpdateItem(ctx context.Context, email, productID string, quantity int) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateItem")
	defer span.End()

	live := s.store.GetProductByID(ctx, productID)
	return s.mutate(ctx, email, func(c *Cart) error {
		if live != nil {
			for i := range c.Items {
				if c.Items[i].Product.ID == productID {
					c.Items[i].Product = *live
				}
			}
		}
		return c.Update(productID, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, email, productID string) (*CartView, error) {
	return s.mutate(ctx, email, func(c *Cart) error {
		c.Remove(productID)
		return nil
	})
}

func (s *CartService) ClearCart(ctx context.Context, email string) (*CartView, error) {
	return s.mutate(ctx, email, func(c *Cart) error {
		c.Clear()
		return nil
	})
}

func (s *CartService) mutate(ctx context.Context, email string, fn func(*Cart) error) (*CartView, error) {
	var items []models.CartItem
	err := s.store.MutateUser(ctx, email, func(u *models.UserData) error {
		cart := Cart{Items: u.Cart}
		if err := fn(&cart); err != nil {
			return err
		}
		u.Cart = cart.Items
		if u.Cart == nil {
			u.Cart = []models.CartItem{}
		}
		items = u.Cart
		return nil
	})
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, notFound("account not found")
	}
	if err != nil {
		var rule *RuleError
		if errors.As(err, &rule) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return newCartView(items), nil
}
