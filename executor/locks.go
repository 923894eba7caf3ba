package executor

import (
	"context"
	"sync"
)

// keyedMutex serializes turns per conversation. Acquisition is context
// aware so a cancelled caller does not stay in line for the lock. Entries
// are reference counted and removed once the last waiter is gone.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	// token has capacity 1; holding the token is holding the lock.
	token chan struct{}
	refs  int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*lockEntry)}
}

// Lock acquires the lock for key, blocking until the previous holder
// releases it or ctx is done. On success the returned func releases the
// lock and must be called exactly once.
func (k *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{token: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.token <- struct{}{}:
		return func() {
			<-e.token
			k.release(key, e)
		}, nil
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}
}

func (k *keyedMutex) release(key string, e *lockEntry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}
