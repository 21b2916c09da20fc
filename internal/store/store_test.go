package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestMissingFileIsInitialisedWithDefault(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tax := s.GetTaxRate(ctx)
	assert.Equal(t, float64(models.DefaultTaxRate), tax.Rate)

	_, err := os.Stat(filepath.Join(s.Dir(), FileTax))
	assert.NoError(t, err)

	shipping := s.GetShippingSettings(ctx)
	assert.Equal(t, float64(models.DefaultShippingRate), shipping.Rate)
	assert.Equal(t, float64(models.DefaultShippingThreshold), shipping.Threshold)

	assert.Empty(t, s.GetProducts(ctx))
	assert.Nil(t, s.GetUserData(ctx, "nobody@example.com"))
}

func TestMalformedFileFallsBackAndIsNotOverwritten(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	path := filepath.Join(s.Dir(), FileProducts)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	assert.Empty(t, s.GetProducts(ctx))

	_, err := s.SaveProduct(ctx, models.Product{ID: "p1", Name: "Lipstick"})
	assert.ErrorIs(t, err, ErrCorruptFile)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestOutOfRangeSingletonFallsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), FileGlobalDiscount), []byte(`{"percentage": 250}`), 0o644))

	assert.Equal(t, float64(models.DefaultDiscountPercentage), s.GetGlobalDiscount(ctx).Percentage)
}

func TestWriteUsesTwoSpaceIndent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTaxRate(ctx, models.TaxRate{Rate: 5}))

	data, err := os.ReadFile(filepath.Join(s.Dir(), FileTax))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"rate\": 5\n}", string(data))
}

func TestInitializeUserAccountIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.InitializeUserAccount(ctx, models.UserProfile{Name: "Asha", Email: "asha@example.com"})
	require.NoError(t, err)
	assert.NotNil(t, created.Orders)
	assert.NotNil(t, created.Cart)

	require.NoError(t, s.UpdateUserAddresses(ctx, "asha@example.com", []models.Address{{ID: "a1", City: "Pune"}}))

	again, err := s.InitializeUserAccount(ctx, models.UserProfile{Name: "Someone Else", Email: "asha@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Asha", again.Profile.Name)
	assert.Len(t, again.Addresses, 1)
}

func TestUpdatesOnUnknownUserFail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.MutateUser(ctx, "ghost@example.com", func(u *models.UserData) error {
		u.Cart = nil
		return nil
	})
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = s.AddOrder(ctx, "ghost@example.com", models.Order{ID: "1"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAddOrderKeepsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	email := "meera@example.com"

	_, err := s.InitializeUserAccount(ctx, models.UserProfile{Email: email})
	require.NoError(t, err)

	for _, id := range []string{"1700000000100", "legacy-a", "1700000000300", "1700000000200"} {
		require.NoError(t, s.AddOrder(ctx, email, models.Order{ID: id, Status: models.OrderStatusProcessing}))
	}

	user := s.GetUserData(ctx, email)
	require.NotNil(t, user)

	ids := make([]string, 0, len(user.Orders))
	for _, o := range user.Orders {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"1700000000300", "1700000000200", "1700000000100", "legacy-a"}, ids)
}

func TestUpdateOrderStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	email := "ravi@example.com"

	_, err := s.InitializeUserAccount(ctx, models.UserProfile{Email: email})
	require.NoError(t, err)
	require.NoError(t, s.AddOrder(ctx, email, models.Order{ID: "42", Status: models.OrderStatusProcessing}))

	prev, err := s.UpdateOrderStatus(ctx, email, "42", models.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, prev)

	owner, order := s.FindOrder(ctx, "42")
	require.NotNil(t, order)
	assert.Equal(t, email, owner)
	assert.Equal(t, models.OrderStatusShipped, order.Status)

	_, err = s.UpdateOrderStatus(ctx, email, "43", models.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = s.UpdateOrderStatus(ctx, email, "42", models.OrderStatus("Lost"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestListOrdersAcrossUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, email := range []string{"a@example.com", "b@example.com"} {
		_, err := s.InitializeUserAccount(ctx, models.UserProfile{Email: email})
		require.NoError(t, err)
		require.NoError(t, s.AddOrder(ctx, email, models.Order{ID: []string{"10", "20"}[i]}))
	}

	orders := s.ListOrders(ctx)
	require.Len(t, orders, 2)
	assert.Equal(t, "b@example.com", orders[0].Email)
	assert.Equal(t, "20", orders[0].Order.ID)
}

func TestAdjustStockClampsAtZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.SaveProduct(ctx, models.Product{ID: "p1", Stock: 3})
	require.NoError(t, err)
	assert.True(t, created)

	stock, err := s.AdjustStock(ctx, "p1", -5)
	require.NoError(t, err)
	assert.Equal(t, 0, stock)

	_, err = s.AdjustStock(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestConcurrentUpdatesAreSerialised(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveProduct(ctx, models.Product{ID: "p1", Stock: 0})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AdjustStock(ctx, "p1", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, s.GetProductByID(ctx, "p1").Stock)
}

func TestConfigureAdminCredentialsOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := models.AdminCredentials{Email: "admin@example.com", PasswordHash: "h1", PinHash: "p1", ConfiguredAt: time.Now()}
	stored, err := s.ConfigureAdminCredentials(ctx, first)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = s.ConfigureAdminCredentials(ctx, models.AdminCredentials{Email: "other@example.com", PasswordHash: "h2", PinHash: "p2"})
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Equal(t, "admin@example.com", s.GetAdminCredentials(ctx).Email)
}

func TestLocalLockerRespectsContext(t *testing.T) {
	l := NewLocalLocker()

	unlock, err := l.Lock(context.Background(), "users.json")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "users.json")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func roundTrip[T any](t *testing.T, d *document[T], v T) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, d.Write(ctx, v))
	assert.Equal(t, v, d.Read(ctx))
}

func TestWriteThenReadIsDeepEqual(t *testing.T) {
	placed := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	expiry := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
	minSpend := 499.0
	usageLimit := 100

	bare := models.Product{ID: "p1", Name: "Aloe Gel", Category: "Skincare", Price: 199,
		Tags: []string{}, Colors: []string{}, Shades: []string{}}
	full := models.Product{ID: "p2", Name: "Matte Lipstick", Category: "Makeup", Brand: "Earth Puran", Price: 349.5,
		Stock: 7, Rating: 4.5, Reviews: 12,
		Tags: []string{"vegan"}, Colors: []string{"red", "nude"}, Shades: []string{"Rosewood"}}

	tests := []struct {
		name string
		run  func(t *testing.T, s *Store)
	}{
		{"users", func(t *testing.T, s *Store) {
			roundTrip(t, s.users, map[string]models.UserData{
				"asha@example.com": {
					Profile:   models.UserProfile{Name: "Asha", Email: "asha@example.com", Phone: "99999"},
					Addresses: []models.Address{{ID: "a1", Name: "Asha", Street: "1 MG Road", City: "Pune", Zip: "411001", IsDefault: true}},
					Orders: []models.Order{{
						ID:     "1700000000000",
						Date:   placed.Format(time.RFC3339),
						Items:  []models.OrderItem{{ProductID: "p1", Name: "Aloe Gel", Price: 199, Quantity: 2}},
						Status: models.OrderStatusShipped, TotalAmount: 448,
						ShippingDetails: models.ShippingDetails{Name: "Asha", City: "Pune"},
						Subtotal:        398, ShippingCost: 50,
					}},
					Wishlist: []models.Product{bare, full},
					Cart:     []models.CartItem{{Product: bare, Quantity: 1}},
				},
				"new@example.com": {
					Profile:   models.UserProfile{Name: "New", Email: "new@example.com"},
					Addresses: []models.Address{},
					Orders:    []models.Order{},
					Wishlist:  []models.Product{},
					Cart:      []models.CartItem{},
				},
			})
		}},
		{"products", func(t *testing.T, s *Store) {
			roundTrip(t, s.products, []models.Product{bare, full, {ID: "p3", Name: "Kajal", Category: "Makeup"}})
		}},
		{"blogs", func(t *testing.T, s *Store) {
			roundTrip(t, s.blogs, []models.BlogPost{{
				ID: "b1", Slug: "neem-benefits", Title: "Neem Benefits", Content: "Neem is...", Excerpt: "Neem is...",
				AuthorName: "Team", Category: "Skincare", Tags: []string{}, CreatedAt: placed, UpdatedAt: placed,
				IsPublished: true,
			}})
		}},
		{"coupons", func(t *testing.T, s *Store) {
			roundTrip(t, s.coupons, []models.Coupon{
				{ID: "c1", Code: "WELCOME10", DiscountType: models.DiscountPercentage, Value: 10,
					ExpiryDate: &expiry, MinSpend: &minSpend, UsageLimit: &usageLimit},
				{ID: "c2", Code: "FLAT50", DiscountType: models.DiscountFixed, Value: 50},
			})
		}},
		{"singletons", func(t *testing.T, s *Store) {
			roundTrip(t, s.discount, models.GlobalDiscount{Percentage: 15})
			roundTrip(t, s.tax, models.TaxRate{Rate: 12.5})
			roundTrip(t, s.shipping, models.ShippingSettings{Rate: 40, Threshold: 500})
			roundTrip(t, s.admin, models.AdminCredentials{
				Email: "admin@example.com", PasswordHash: "h", PinHash: "p", ConfiguredAt: placed,
			})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, newTestStore(t))
		})
	}
}

func TestFirstReadDoesNotClobberConcurrentWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := s.SaveProduct(ctx, models.Product{ID: fmt.Sprintf("p%d", i), Name: "Item"})
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			s.GetProducts(ctx)
		}()
	}
	wg.Wait()

	assert.Len(t, s.GetProducts(ctx), 20)
}
