package service

import (
	"context"
	"errors"
	"sync"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// PersistFunc saves a complete wishlist
type PersistFunc func(ctx context.Context, items []models.Product) error

// WishlistTracker applies toggles optimistically and restores the
// pre-toggle list when persisting fails.
type WishlistTracker struct {
	mu      sync.Mutex
	items   []models.Product
	persist PersistFunc
}

func NewWishlistTracker(items []models.Product, persist PersistFunc) *WishlistTracker {
	return &WishlistTracker{
		items:   append([]models.Product{}, items...),
		persist: persist,
	}
}

// Toggle adds the product if absent, removes it otherwise, and reports whether it is now in the list
func (t *WishlistTracker) Toggle(ctx context.Context, product models.Product) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := append([]models.Product{}, t.items...)

	added := true
	next := make([]models.Product, 0, len(t.items)+1)
	for _, p := range t.items {
		if p.ID == product.ID {
			added = false
			continue
		}
		next = append(next, p)
	}
	if added {
		next = append(next, product)
	}
	t.items = next

	if err := t.persist(ctx, next); err != nil {
		t.items = snapshot
		util.WishlistRevertsTotal.Inc()
		util.GetLogger().Warn("Wishlist update failed, reverted",
			zap.String("product_id", product.ID),
			zap.Error(err))
		return !added, err
	}
	return added, nil
}

func (t *WishlistTracker) IsInWishlist(productID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.items {
		if p.ID == productID {
			return true
		}
	}
	return false
}

func (t *WishlistTracker) Items() []models.Product {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Product{}, t.items...)
}

// WishlistService exposes the stored wishlist of an account
type WishlistService struct {
	store   *store.Store
	catalog *ProductService
}

func NewWishlistService(store *store.Store, catalog *ProductService) *WishlistService {
	return &WishlistService{store: store, catalog: catalog}
}

// GetWishlist returns snapshots refreshed from the live catalog
func (s *WishlistService) GetWishlist(ctx context.Context, email string) ([]models.Product, error) {
	user := s.store.GetUserData(ctx, email)
	if user == nil {
		return nil, notFound("account not found")
	}
	return s.catalog.RefreshSnapshots(ctx, user.Wishlist), nil
}

// WishlistToggle is the outcome of a toggle
type WishlistToggle struct {
	InWishlist bool             `json:"inWishlist"`
	Items      []models.Product `json:"items"`
}

// Toggle flips one product under the users file lock so concurrent toggles
// on the same account all land.
func (s *WishlistService) Toggle(ctx context.Context, email, productID string) (*WishlistToggle, error) {
	ctx, span := util.StartSpan(ctx, "WishlistService.Toggle")
	defer span.End()

	live := s.store.GetProductByID(ctx, productID)

	var result *WishlistToggle
	err := s.store.MutateUser(ctx, email, func(u *models.UserData) error {
		product := live
		if product == nil {
			// a deleted product can still be removed from the list
			for i := range u.Wishlist {
				if u.Wishlist[i].ID == productID {
					stored := u.Wishlist[i]
					product = &stored
					break
				}
			}
		}
		if product == nil {
			return notFound("product not found")
		}

		tracker := NewWishlistTracker(u.Wishlist, func(_ context.Context, items []models.Product) error {
			u.Wishlist = items
			return nil
		})
		in, err := tracker.Toggle(ctx, *product)
		if err != nil {
			return err
		}
		result = &WishlistToggle{InWishlist: in, Items: tracker.Items()}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, notFound("account not found")
		}
		util.FailSpan(span, err)
		return nil, wrapWrite(err, "wishlist")
	}
	return result, nil
}
