package engine

import "sync"

// convLocks serialises message handling per conversation. Entries are
// reference-counted and removed once the last holder releases, so the map
// does not grow with conversation churn.
type convLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newConvLocks() *convLocks {
	return &convLocks{entries: make(map[string]*lockEntry)}
}

// acquire blocks until the conversation lock is held and returns the release
// function.
func (c *convLocks) acquire(key string) (release func()) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &lockEntry{}
		c.entries[key] = e
	}
	e.refs++
	c.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		c.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}
}
