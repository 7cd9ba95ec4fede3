package memory

import (
	"context"
	"sync"
)

// Locker is an in-process implementation of app.Locker: one mutex per key.
type Locker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]chan struct{})}
}

// Lock blocks until key is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	sem, ok := l.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		l.locks[key] = sem
	}
	l.mu.Unlock()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-sem })
	}, nil
}
