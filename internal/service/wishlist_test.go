package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWishlistTrackerToggle(t *testing.T) {
	var saved []models.Product
	tracker := NewWishlistTracker(nil, func(_ context.Context, items []models.Product) error {
		saved = items
		return nil
	})
	p := models.Product{ID: "1", Name: "Aloe Gel"}

	in, err := tracker.Toggle(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, in)
	assert.True(t, tracker.IsInWishlist("1"))
	assert.Len(t, saved, 1)

	in, err = tracker.Toggle(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, in)
	assert.False(t, tracker.IsInWishlist("1"))
	assert.Empty(t, saved)
}

func TestWishlistTrackerRevertsOnFailure(t *testing.T) {
	existing := []models.Product{{ID: "1"}}
	tracker := NewWishlistTracker(existing, func(context.Context, []models.Product) error {
		return errors.New("disk full")
	})

	in, err := tracker.Toggle(context.Background(), models.Product{ID: "2"})
	require.Error(t, err)
	assert.False(t, in)
	assert.False(t, tracker.IsInWishlist("2"))

	in, err = tracker.Toggle(context.Background(), models.Product{ID: "1"})
	require.Error(t, err)
	assert.True(t, in)
	assert.True(t, tracker.IsInWishlist("1"))
	assert.Len(t, tracker.Items(), 1)
}

func TestWishlistServiceRefreshesSnapshots(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	env.addUser(t, "a@example.com")
	ctx := context.Background()

	result, err := env.wishlists.Toggle(ctx, "a@example.com", "1")
	require.NoError(t, err)
	assert.True(t, result.InWishlist)

	_, err = env.products.UpdateProduct(ctx, "1", ProductInput{Name: "Aloe Vera Gel", Category: "Skin", Price: 179, Stock: 10})
	require.NoError(t, err)

	items, err := env.wishlists.GetWishlist(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Aloe Vera Gel", items[0].Name)
	assert.Equal(t, 179.0, items[0].Price)

	require.NoError(t, env.products.DeleteProduct(ctx, "1"))
	items, err = env.wishlists.GetWishlist(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Aloe Gel", items[0].Name, "deleted products keep the stored snapshot")

	result, err = env.wishlists.Toggle(ctx, "a@example.com", "1")
	require.NoError(t, err)
	assert.False(t, result.InWishlist)
	assert.Empty(t, result.Items)
}

func TestConcurrentWishlistTogglesAllLand(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "a@example.com")

	const n = 50
	for i := 0; i < n; i++ {
		env.addProduct(t, models.Product{ID: fmt.Sprintf("p%d", i), Name: "Item", Category: "Skincare", Stock: 1})
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.wishlists.Toggle(ctx, "a@example.com", fmt.Sprintf("p%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	items, err := env.wishlists.GetWishlist(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Len(t, items, n)
}
