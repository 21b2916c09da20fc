package store

import (
	"context"

	"storefront/internal/models"
)

// GetProducts returns the whole catalog in file order
func (s *Store) GetProducts(ctx context.Context) []models.Product {
	return s.products.Read(ctx)
}

// GetProductByID returns nil when the product does not exist
func (s *Store) GetProductByID(ctx context.Context, id string) *models.Product {
	for _, p := range s.products.Read(ctx) {
		if p.ID == id {
			product := p
			return &product
		}
	}
	return nil
}

// SaveProduct replaces the product with the same id or appends it.
// It reports whether the product was newly created.
func (s *Store) SaveProduct(ctx context.Context, product models.Product) (bool, error) {
	created := true
	err := s.products.Update(ctx, func(products *[]models.Product) error {
		for i := range *products {
			if (*products)[i].ID == product.ID {
				(*products)[i] = product
				created = false
				return nil
			}
		}
		*products = append(*products, product)
		return nil
	})
	return created, err
}

// DeleteProduct removes a product. Wishlists and orders keep their snapshots.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.products.Update(ctx, func(products *[]models.Product) error {
		for i := range *products {
			if (*products)[i].ID == id {
				*products = append((*products)[:i], (*products)[i+1:]...)
				return nil
			}
		}
		return ErrProductNotFound
	})
}

// AdjustStock adds delta to the product stock, never going below zero
func (s *Store) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	var stock int
	err := s.products.Update(ctx, func(products *[]models.Product) error {
		for i := range *products {
			if (*products)[i].ID != id {
				continue
			}
			stock = (*products)[i].Stock + delta
			if stock < 0 {
				stock = 0
			}
			(*products)[i].Stock = stock
			return nil
		}
		return ErrProductNotFound
	})
	return stock, err
}
