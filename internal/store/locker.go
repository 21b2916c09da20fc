package store

import (
	"context"
	"sync"
)

// Locker serialises writers of one store file
type Locker interface {
	Lock(ctx context.Context, name string) (unlock func(), err error)
}

type localLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalLocker returns a Locker scoped to this process
func NewLocalLocker() Locker {
	return &localLocker{slots: make(map[string]chan struct{})}
}

func (l *localLocker) Lock(ctx context.Context, name string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[name]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[name] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type multiLocker []Locker

// MultiLocker acquires every locker in order and releases them in reverse
func MultiLocker(lockers ...Locker) Locker {
	return multiLocker(lockers)
}

func (m multiLocker) Lock(ctx context.Context, name string) (func(), error) {
	unlocks := make([]func(), 0, len(m))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}

	for _, l := range m {
		unlock, err := l.Lock(ctx, name)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}
