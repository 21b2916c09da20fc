package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfileKeepsCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.store.InitializeUserAccount(ctx, models.UserProfile{Name: "Old", Email: "a@example.com", PasswordHash: "hash", IsAdmin: true})
	require.NoError(t, err)

	profile, err := env.users.UpdateProfile(ctx, "a@example.com", UpdateProfileRequest{Name: "New", Phone: "123"})
	require.NoError(t, err)
	assert.Empty(t, profile.PasswordHash)

	stored := env.store.GetUserData(ctx, "a@example.com")
	assert.Equal(t, "New", stored.Profile.Name)
	assert.Equal(t, "hash", stored.Profile.PasswordHash)
	assert.True(t, stored.Profile.IsAdmin)

	_, err = env.users.UpdateProfile(ctx, "ghost@example.com", UpdateProfileRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAddressesSingleDefault(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "a@example.com")
	ctx := context.Background()

	addr := func(label string, def bool) models.Address {
		return models.Address{Label: label, Name: "A", Street: "S", City: "C", Zip: "Z", Country: "IN", IsDefault: def}
	}

	saved, err := env.users.SaveAddresses(ctx, "a@example.com", []models.Address{addr("home", true), addr("work", true), addr("other", false)})
	require.NoError(t, err)
	assert.False(t, saved[0].IsDefault)
	assert.True(t, saved[1].IsDefault)
	assert.False(t, saved[2].IsDefault)
	for _, a := range saved {
		assert.NotEmpty(t, a.ID)
	}

	saved, err = env.users.SaveAddresses(ctx, "a@example.com", []models.Address{addr("only", false)})
	require.NoError(t, err)
	assert.True(t, saved[0].IsDefault)

	_, err = env.users.SaveAddresses(ctx, "a@example.com", []models.Address{{Name: "no street"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetAccountHidesPasswordHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.store.InitializeUserAccount(ctx, models.UserProfile{Email: "a@example.com", PasswordHash: "hash"})
	require.NoError(t, err)

	account, err := env.users.GetAccount(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Empty(t, account.Profile.PasswordHash)
	assert.Equal(t, "hash", env.store.GetUserData(ctx, "a@example.com").Profile.PasswordHash)

	for _, u := range env.users.ListCustomers(ctx) {
		assert.Empty(t, u.Profile.PasswordHash)
	}
}

func TestUpdateProfileKeepsConcurrentWishlistChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "a@example.com")

	const n = 20
	for i := 0; i < n; i++ {
		env.addProduct(t, models.Product{ID: fmt.Sprintf("p%d", i), Name: "Item", Category: "Skincare", Stock: 1})
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := env.wishlists.Toggle(ctx, "a@example.com", fmt.Sprintf("p%d", i))
			assert.NoError(t, err)
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := env.users.UpdateProfile(ctx, "a@example.com", UpdateProfileRequest{Name: fmt.Sprintf("Name %d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored := env.store.GetUserData(ctx, "a@example.com")
	assert.Len(t, stored.Wishlist, n)
}
