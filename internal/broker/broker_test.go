package broker

import (
	"context"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBusRoutesOrderPlaced(t *testing.T) {
	bus := NewLocalBus()
	sub := bus.Subscribe()
	defer sub.Close()

	received := make(chan *models.OrderPlacedEvent, 1)
	handler := NewEventHandler()
	handler.OnOrderPlaced(func(_ context.Context, e *models.OrderPlacedEvent) error {
		received <- e
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.StartConsuming(ctx, handler.HandleMessage)

	publisher := NewEventPublisher(bus)
	order := models.Order{
		ID:          "1700000000000",
		TotalAmount: 640,
		Items:       []models.OrderItem{{ProductID: "p1", Price: 320, Quantity: 2}},
	}
	require.NoError(t, publisher.PublishOrderPlaced(ctx, "asha@example.com", order))

	select {
	case e := <-received:
		assert.Equal(t, models.EventTypeOrderPlaced, e.EventType)
		assert.Equal(t, "1700000000000", e.OrderID)
		assert.Equal(t, "asha@example.com", e.Email)
		require.Len(t, e.Items, 1)
		assert.Equal(t, 2, e.Items[0].Quantity)
		assert.NotEmpty(t, e.EventID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestLocalBusFansOutToEverySubscriber(t *testing.T) {
	bus := NewLocalBus()
	first, second := bus.Subscribe(), bus.Subscribe()

	publisher := NewEventPublisher(bus)
	require.NoError(t, publisher.PublishOrderStatusChanged(context.Background(), "a@example.com", "7", models.OrderStatusProcessing, models.OrderStatusShipped))

	for _, sub := range []*LocalConsumer{first, second} {
		select {
		case msg := <-sub.messages:
			assert.Equal(t, "order-7", string(msg.Key))
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestPublishSkipsClosedSubscriber(t *testing.T) {
	bus := NewLocalBus()
	sub := bus.Subscribe()
	require.NoError(t, sub.Close())

	for i := 0; i < localBufferSize+1; i++ {
		require.NoError(t, bus.Publish(context.Background(), "k", map[string]int{"i": i}))
	}
}

func TestHandleMessageIgnoresUnknownTypes(t *testing.T) {
	handler := NewEventHandler()
	msg, err := encode("k", models.BaseEvent{EventType: "SOMETHING_ELSE"})
	require.NoError(t, err)

	assert.NoError(t, handler.HandleMessage(context.Background(), msg))
}
