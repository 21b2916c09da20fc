package redisclient

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/util"

	"go.uber.org/zap"
)

const lockPollInterval = 25 * time.Millisecond

// Locker serialises store file writers across processes sharing a data directory
type Locker struct {
	client *Client
	ttl    time.Duration
}

// Locker returns a file locker backed by this client
func (c *Client) Locker(ttl time.Duration) *Locker {
	return &Locker{client: c, ttl: ttl}
}

// Lock polls SETNX until the lock is taken or ctx is done
func (l *Locker) Lock(ctx context.Context, name string) (func(), error) {
	key := "store:" + name
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		token, ok, err := l.client.AcquireLock(ctx, key, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", name, err)
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := l.client.ReleaseLock(releaseCtx, key, token); err != nil {
					util.GetLogger().Warn("Failed to release lock", zap.String("lock", key), zap.Error(err))
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w %s: %v", ErrLockTimeout, name, ctx.Err())
		case <-ticker.C:
		}
	}
}
