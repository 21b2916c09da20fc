package service

import (
	"context"
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartMath(t *testing.T) {
	gel := models.Product{ID: "1", Name: "Aloe Gel", Price: 199.99, Stock: 3}
	oil := models.Product{ID: "2", Name: "Oil", Price: 100, Stock: 10}
	var cart Cart

	require.NoError(t, cart.Add(gel, 2))
	require.NoError(t, cart.Add(gel, 5))
	require.NoError(t, cart.Add(oil, 1))
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 4, cart.ItemCount())
	assert.Equal(t, 699.97, cart.Subtotal())

	require.NoError(t, cart.Update("2", 50))
	assert.Equal(t, 10, cart.Items[1].Quantity)

	require.NoError(t, cart.Update("1", 0))
	assert.Len(t, cart.Items, 1)
	assert.ErrorIs(t, cart.Update("1", 1), ErrNotFound)

	cart.Remove("2")
	assert.Empty(t, cart.Items)
}

func TestCartRejectsOutOfStockAndBadQuantity(t *testing.T) {
	var cart Cart
	assert.ErrorIs(t, cart.Add(models.Product{ID: "1", Stock: 0}, 1), ErrValidation)
	assert.ErrorIs(t, cart.Add(models.Product{ID: "1", Stock: 5}, 0), ErrValidation)
}

func TestCartServicePersists(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	env.addUser(t, "a@example.com")
	ctx := context.Background()

	view, err := env.carts.AddItem(ctx, "a@example.com", "2", 9)
	require.NoError(t, err)
	assert.Equal(t, 5, view.ItemCount)

	view, err = env.carts.UpdateItem(ctx, "a@example.com", "2", 2)
	require.NoError(t, err)
	assert.Equal(t, 1798.0, view.Subtotal)

	stored := env.store.GetUserData(ctx, "a@example.com")
	require.Len(t, stored.Cart, 1)
	assert.Equal(t, 2, stored.Cart[0].Quantity)

	view, err = env.carts.ClearCart(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = env.carts.AddItem(ctx, "nobody@example.com", "2", 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.carts.AddItem(ctx, "a@example.com", "3", 1)
	assert.ErrorIs(t, err, ErrValidation)
}
