package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/movie-service/internal/models"
)

// Cache defines the interface for per-id movie caching implementations.
// Get returns cached data if present and not expired, Set stores data with TTL,
// Delete drops an entry and is a no-op for missing keys.
type Cache interface {
	Get(ctx context.Context, id int64) (models.Movie, bool, error)
	Set(ctx context.Context, movie models.Movie, ttl time.Duration) error
	Delete(ctx context.Context, id int64) error
}

// InMemoryCache implements Cache using a map with TTL-based expiration.
// Expired entries are removed on access. Safe for concurrent use.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[int64]cacheEntry
}

type cacheEntry struct {
	value     models.Movie
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[int64]cacheEntry),
	}
}

// Get returns (movie, true, nil) on hit and (zero, false, nil) on miss or expiry.
func (c *InMemoryCache) Get(ctx context.Context, id int64) (models.Movie, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[id]
	if !ok {
		return models.Movie{}, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		delete(c.data, id)
		return models.Movie{}, false, nil
	}

	return entry.value, true, nil
}

// Set stores movie under its id for ttl.
func (c *InMemoryCache) Set(ctx context.Context, movie models.Movie, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[movie.ID] = cacheEntry{
		value:     movie,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (c *InMemoryCache) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, id)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
