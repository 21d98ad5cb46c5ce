package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/movie-service/internal/models"
)

const keyPrefix = "movie:"

// maxRelativeExp is the largest expiration memcached treats as relative seconds.
const maxRelativeExp = 30 * 24 * 60 * 60

// MemcachedCache implements Cache using memcached.
type MemcachedCache struct {
	client *memcache.Client
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// configure the client; both use package defaults if zero.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

// expirationSeconds converts ttl to memcached's relative expiration, falling back
// to one hour when ttl is unusable.
func expirationSeconds(ttl time.Duration) int32 {
	sec := int64(ttl / time.Second)
	if sec <= 0 || sec > maxRelativeExp {
		return 3600
	}
	return int32(sec)
}

// Get implements Cache.Get. Returns false, nil on cache miss; false, err on error.
func (c *MemcachedCache) Get(ctx context.Context, id int64) (models.Movie, bool, error) {
	if ctx.Err() != nil {
		return models.Movie{}, false, ctx.Err()
	}
	item, err := c.client.Get(key(id))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return models.Movie{}, false, nil
		}
		return models.Movie{}, false, err
	}
	var movie models.Movie
	if err := json.Unmarshal(item.Value, &movie); err != nil {
		return models.Movie{}, false, err
	}
	return movie, true, nil
}

// Set implements Cache.Set.
func (c *MemcachedCache) Set(ctx context.Context, movie models.Movie, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(movie)
	if err != nil {
		return err
	}
	return c.client.Set(&memcache.Item{
		Key:        key(movie.ID),
		Value:      raw,
		Expiration: expirationSeconds(ttl),
	})
}

// Delete implements Cache.Delete. A missing key is not an error.
func (c *MemcachedCache) Delete(ctx context.Context, id int64) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := c.client.Delete(key(id)); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return err
	}
	return nil
}

// Ping checks if memcached is reachable. Used for health checks.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
