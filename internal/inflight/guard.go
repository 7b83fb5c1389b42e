// Package inflight provides a keyed try-lock for operations that must not
// run concurrently for the same entity.
package inflight

import "sync"

// Guard tracks in-progress keys. TryAcquire is non-blocking; callers that
// lose the race get false and should surface a busy error instead of waiting.
type Guard struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{held: make(map[string]bool)}
}

// TryAcquire claims key if it is free. The caller must Release after use.
func (g *Guard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] {
		return false
	}
	g.held[key] = true
	return true
}

// Release frees key. Releasing an unheld key is a no-op.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
}

// Busy reports whether key is currently held.
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held[key]
}
