package cart

import (
	"context"
	"sync"
	"time"
)

// Store keeps one cart per browser session, created on first use. Sessions
// that go idle for longer than the TTL are evicted by a background janitor,
// mirroring the volatile lifetime a cart has in the browser.
type Store struct {
	ttl time.Duration

	mu    sync.Mutex
	carts map[string]*entry
}

type entry struct {
	cart     *Cart
	lastSeen time.Time
}

// NewStore creates a Store whose carts expire after ttl of inactivity.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:   ttl,
		carts: make(map[string]*entry),
	}
}

// Get returns the cart for sessionID, creating an empty one if the session
// has none. Every access refreshes the session's idle timer.
func (s *Store) Get(sessionID string) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.carts[sessionID]
	if !ok {
		e = &entry{cart: New()}
		s.carts[sessionID] = e
	}
	e.lastSeen = time.Now()
	return e.cart
}

// Drop discards the cart for sessionID, if any.
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

func (s *Store) evictExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.carts {
		if now.Sub(e.lastSeen) >= s.ttl {
			delete(s.carts, id)
		}
	}
}

// StartJanitor launches a goroutine that periodically evicts expired sessions.
// It stops when ctx is cancelled.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.evictExpired(now)
			}
		}
	}()
}
