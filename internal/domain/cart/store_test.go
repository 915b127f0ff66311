package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetCreatesOnce(t *testing.T) {
	s := NewStore(time.Minute)

	c1 := s.Get("sess-1")
	c1.Add(newTestProduct(1, "Widget", "10.00"), 1)

	c2 := s.Get("sess-1")
	require.Same(t, c1, c2)
	assert.Equal(t, 1, c2.TotalItems())

	other := s.Get("sess-2")
	assert.Equal(t, 0, other.TotalItems())
	assert.Equal(t, 2, s.Len())
}

func TestStore_Drop(t *testing.T) {
	s := NewStore(time.Minute)
	s.Get("sess-1")
	s.Drop("sess-1")
	assert.Equal(t, 0, s.Len())
}

func TestStore_EvictExpired(t *testing.T) {
	s := NewStore(10 * time.Millisecond)
	s.Get("stale")
	time.Sleep(20 * time.Millisecond)
	s.Get("fresh")

	s.evictExpired(time.Now())

	assert.Equal(t, 1, s.Len())
	// A fresh Get after eviction yields an empty cart for the stale session.
	assert.Equal(t, 0, s.Get("stale").TotalItems())
}
