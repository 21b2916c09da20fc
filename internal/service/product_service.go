package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultFeaturedLimit = 4
	DefaultRelatedLimit  = 4
)

// ProductService serves the catalog and its derived views
type ProductService struct {
	store  *store.Store
	logger *zap.Logger
}

func NewProductService(store *store.Store) *ProductService {
	return &ProductService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// ProductInput is the admin product form
type ProductInput struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Brand       string   `json:"brand"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl"`
	Stock       int      `json:"stock"`
	Rating      float64  `json:"rating"`
	Reviews     int      `json:"reviews"`
	Tags        []string `json:"tags"`
	Colors      []string `json:"colors"`
	Shades      []string `json:"shades"`
}

func (in ProductInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return invalid("product name is required")
	case strings.TrimSpace(in.Category) == "":
		return invalid("product category is required")
	case in.Price < 0:
		return invalid("price cannot be negative")
	case in.Stock < 0:
		return invalid("stock cannot be negative")
	case in.Rating < 0 || in.Rating > 5:
		return invalid("rating must be between 0 and 5")
	case in.Reviews < 0:
		return invalid("reviews cannot be negative")
	}
	return nil
}

func (in ProductInput) apply(p *models.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Category = strings.TrimSpace(in.Category)
	p.Brand = strings.TrimSpace(in.Brand)
	p.Price = in.Price
	p.Description = in.Description
	p.ImageURL = in.ImageURL
	p.Stock = in.Stock
	p.Rating = in.Rating
	p.Reviews = in.Reviews
	p.Tags = in.Tags
	p.Colors = in.Colors
	p.Shades = in.Shades
}

func (s *ProductService) GetProducts(ctx context.Context) []models.Product {
	return s.store.GetProducts(ctx)
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p := s.store.GetProductByID(ctx, id)
	if p == nil {
		return nil, notFound("product not found")
	}
	return p, nil
}

// GetFeaturedProducts returns the best rated products; missing ratings count as 0 and ties keep catalog order
func (s *ProductService) GetFeaturedProducts(ctx context.Context, limit int) []models.Product {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}

	products := s.store.GetProducts(ctx)
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Rating > products[j].Rating
	})
	if len(products) > limit {
		products = products[:limit]
	}
	return products
}

// GetRelatedProducts returns products of the same category, excluding the product itself
func (s *ProductService) GetRelatedProducts(ctx context.Context, product models.Product, limit int) []models.Product {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	related := make([]models.Product, 0, limit)
	for _, p := range s.store.GetProducts(ctx) {
		if len(related) == limit {
			break
		}
		if p.ID != product.ID && p.Category == product.Category {
			related = append(related, p)
		}
	}
	return related
}

func (s *ProductService) GetProductsByCategory(ctx context.Context, category string) []models.Product {
	out := make([]models.Product, 0)
	for _, p := range s.store.GetProducts(ctx) {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out
}

// GetCategories returns the distinct categories, sorted
func (s *ProductService) GetCategories(ctx context.Context) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, p := range s.store.GetProducts(ctx) {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out
}

// SearchProducts matches name, brand, category and tags case-insensitively
func (s *ProductService) SearchProducts(ctx context.Context, query string) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	products := s.store.GetProducts(ctx)
	if q == "" {
		return products
	}

	out := make([]models.Product, 0)
	for _, p := range products {
		if productMatches(p, q) {
			out = append(out, p)
		}
	}
	return out
}

func productMatches(p models.Product, q string) bool {
	for _, field := range []string{p.Name, p.Brand, p.Category} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.CreateProduct")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	product := models.Product{ID: uuid.New().String()}
	in.apply(&product)

	if _, err := s.store.SaveProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}

	s.logger.Info("Product created", zap.String("product_id", product.ID), zap.String("name", product.Name))
	return &product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.UpdateProduct")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	product := s.store.GetProductByID(ctx, id)
	if product == nil {
		return nil, notFound("product not found")
	}
	in.apply(product)

	if _, err := s.store.SaveProduct(ctx, *product); err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}
	return product, nil
}

// DeleteProduct removes the product; wishlists and orders keep their snapshots
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "ProductService.DeleteProduct")
	defer span.End()

	err := s.store.DeleteProduct(ctx, id)
	if errors.Is(err, store.ErrProductNotFound) {
		return notFound("product not found")
	}
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

// RefreshSnapshots replaces each snapshot with the live product when it still exists
func (s *ProductService) RefreshSnapshots(ctx context.Context, snapshots []models.Product) []models.Product {
	live := s.index(ctx)
	out := make([]models.Product, len(snapshots))
	for i, snap := range snapshots {
		if p, ok := live[snap.ID]; ok {
			out[i] = p
		} else {
			out[i] = snap
		}
	}
	return out
}

// RefreshCart refreshes the product snapshot of every cart line
func (s *ProductService) RefreshCart(ctx context.Context, cart []models.CartItem) []models.CartItem {
	live := s.index(ctx)
	out := make([]models.CartItem, len(cart))
	for i, item := range cart {
		if p, ok := live[item.Product.ID]; ok {
			item.Product = p
		}
		out[i] = item
	}
	return out
}

func (s *ProductService) index(ctx context.Context) map[string]models.Product {
	products := s.store.GetProducts(ctx)
	idx := make(map[string]models.Product, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return idx
}
