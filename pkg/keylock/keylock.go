// Package keylock serializes work per key while letting different keys run in parallel.
package keylock

import (
	"context"
	"sync"
)

type entry struct {
	sem  chan struct{}
	refs int
}

// Locker hands out one mutual-exclusion slot per key. Entries are dropped once no
// goroutine holds or waits for them, so memory follows the number of busy keys.
type Locker struct {
	mu   sync.Mutex
	keys map[string]*entry
}

func New() *Locker {
	return &Locker{keys: make(map[string]*entry)}
}

func (l *Locker) acquire(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}

// Lock blocks until key is free and returns the function that frees it.
func (l *Locker) Lock(key string) (unlock func()) {
	e := l.acquire(key)
	e.sem <- struct{}{}
	return func() {
		<-e.sem
		l.release(key, e)
	}
}

// LockContext is Lock that gives up when ctx is done.
func (l *Locker) LockContext(ctx context.Context, key string) (unlock func(), err error) {
	e := l.acquire(key)
	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			l.release(key, e)
		}, nil
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}
}

// Len reports how many keys are currently held or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
