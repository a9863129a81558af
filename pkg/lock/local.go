package lock

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	slot chan struct{}
	refs int
}

// LocalLocker is an in-process keyed mutex. It is enough for a single API
// instance; use RedisLocker when several instances share the database.
type LocalLocker struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	wait    time.Duration
}

// NewLocalLocker builds a LocalLocker. wait bounds how long Acquire blocks.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &LocalLocker{entries: make(map[string]*localEntry), wait: wait}
}

// Acquire takes every key in sorted order.
func (l *LocalLocker) Acquire(ctx context.Context, keys ...string) (Release, error) {
	keys = Normalize(keys)
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	held := make([]string, 0, len(keys))
	for _, key := range keys {
		entry := l.ref(key)
		select {
		case entry.slot <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			l.unref(key)
			l.release(held)
			return nil, ErrTimeout
		}
	}
	return once(func() { l.release(held) }), nil
}

func (l *LocalLocker) ref(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{slot: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (l *LocalLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.entries, key)
	}
}

func (l *LocalLocker) release(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		entry := l.entries[keys[i]]
		l.mu.Unlock()
		if entry != nil {
			<-entry.slot
		}
		l.unref(keys[i])
	}
}
