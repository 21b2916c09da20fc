package broker

import (
	"context"
	"sync"

	"storefront/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Source is anything a worker can consume order events from
type Source interface {
	StartConsuming(ctx context.Context, handler MessageHandler) error
	Close() error
}

const localBufferSize = 256

// LocalBus delivers events in-process when no Kafka brokers are configured.
// Every subscriber receives every event, like one consumer group per worker.
type LocalBus struct {
	mu     sync.RWMutex
	subs   []*LocalConsumer
	offset int64
}

func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

// Subscribe registers a new consumer
func (b *LocalBus) Subscribe() *LocalConsumer {
	c := &LocalConsumer{
		messages: make(chan kafka.Message, localBufferSize),
		done:     make(chan struct{}),
	}

	b.mu.Lock()
	b.subs = append(b.subs, c)
	b.mu.Unlock()
	return c
}

// Publish hands the event to every open subscriber, blocking while a buffer is full
func (b *LocalBus) Publish(ctx context.Context, key string, event interface{}) error {
	msg, err := encode(key, event)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.offset++
	msg.Offset = b.offset
	subs := append([]*LocalConsumer(nil), b.subs...)
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.messages <- msg:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// LocalConsumer is one subscription on a LocalBus
type LocalConsumer struct {
	messages  chan kafka.Message
	done      chan struct{}
	closeOnce sync.Once
}

// StartConsuming runs handler for each message until ctx is cancelled or the consumer is closed
func (c *LocalConsumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	logger := util.GetLogger()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case msg := <-c.messages:
			if err := handler(ctx, msg); err != nil {
				logger.Error("Error handling local event",
					zap.String("key", string(msg.Key)),
					zap.Error(err))
			}
		}
	}
}

func (c *LocalConsumer) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}
