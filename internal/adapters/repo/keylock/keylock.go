// Package keylock serializes work per key without a global lock held across the critical section.
package keylock

import (
	"context"
	"sync"
)

type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	slot chan struct{}
	refs int
}

func New() *Locker {
	return &Locker{locks: map[string]*entry{}}
}

// Lock blocks until key is free or ctx is done. The returned func releases the key.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquire(key)

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.slot
			l.release(key, e)
		})
	}, nil
}

func (l *Locker) acquire(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[key]
	if !ok {
		e = &entry{slot: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++

	return e
}

func (l *Locker) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
