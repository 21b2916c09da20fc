package service

import (
	"context"
	"testing"
	"time"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store     *store.Store
	products  *ProductService
	pricing   *PricingService
	users     *UserService
	carts     *CartService
	wishlists *WishlistService
	checkout  *CheckoutService
	bus       *broker.LocalBus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := store.NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	bus := broker.NewLocalBus()
	products := NewProductService(s)
	pricing := NewPricingService(s)

	return &testEnv{
		store:     s,
		products:  products,
		pricing:   pricing,
		users:     NewUserService(s, products),
		carts:     NewCartService(s, products),
		wishlists: NewWishlistService(s, products),
		checkout:  NewCheckoutService(s, pricing, products, broker.NewEventPublisher(bus), nil),
		bus:       bus,
	}
}

func (e *testEnv) addProduct(t *testing.T, p models.Product) {
	t.Helper()
	_, err := e.store.SaveProduct(context.Background(), p)
	require.NoError(t, err)
}

func (e *testEnv) addUser(t *testing.T, email string) {
	t.Helper()
	_, err := e.store.InitializeUserAccount(context.Background(), models.UserProfile{Name: "Test", Email: email})
	require.NoError(t, err)
}

// events subscribes to the bus and collects every published message
func (e *testEnv) events(t *testing.T) <-chan kafka.Message {
	t.Helper()
	sub := e.bus.Subscribe()
	ch := make(chan kafka.Message, 16)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		sub.Close()
	})
	go sub.StartConsuming(ctx, func(_ context.Context, msg kafka.Message) error {
		ch <- msg
		return nil
	})
	return ch
}

// memIdempotency is an in-memory IdempotencyStore
type memIdempotency map[string]string

func (m memIdempotency) SetIdempotencyKey(_ context.Context, key, value string, _ time.Duration) error {
	m[key] = value
	return nil
}

func (m memIdempotency) GetIdempotencyKey(_ context.Context, key string) (string, error) {
	return m[key], nil
}
