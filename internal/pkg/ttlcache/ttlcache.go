// Package ttlcache provides an argument-keyed memoizing cache with lazy
// expiry. It is process-local and carries no cross-instance coherency
// guarantee.
package ttlcache

import (
	"context"
	"math/rand"
	"time"

	jsoniter "github.com/json-iterator/go"
	gocache "github.com/patrickmn/go-cache"

	"staking_portfolio/pkg/metrics"
)

// sweepChance is the fraction of calls that trigger a full sweep of
// expired entries. Expiry is otherwise lazy, so the occasional sweep
// bounds growth without a dedicated janitor goroutine.
const sweepChance = 0.01

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Cache is an explicit memoizer dependency, constructed at process start
// and passed into the services that use it.
type Cache struct {
	store *gocache.Cache
	ttl   time.Duration
}

// New creates a cache whose entries expire ttl after being stored.
// The backing store runs without a cleanup timer; see sweepChance.
func New(ttl time.Duration) *Cache {
	return &Cache{
		store: gocache.New(ttl, 0),
		ttl:   ttl,
	}
}

func (c *Cache) maybeSweep() {
	if rand.Float64() < sweepChance {
		c.store.DeleteExpired()
	}
}

// Memoize wraps fn so repeated calls with an equal argument within the TTL
// return the stored result without re-invoking fn. Errors are never cached.
// The key is name plus the JSON serialization of the argument; arguments
// that fail to serialize bypass the cache entirely.
func Memoize[A any, R any](c *Cache, name string, fn func(context.Context, A) (R, error)) func(context.Context, A) (R, error) {
	return func(ctx context.Context, arg A) (R, error) {
		key, err := cacheKey(name, arg)
		if err != nil {
			return fn(ctx, arg)
		}

		c.maybeSweep()

		if v, ok := c.store.Get(key); ok {
			metrics.CacheHits.Inc()
			return v.(R), nil
		}
		metrics.CacheMisses.Inc()

		v, err := fn(ctx, arg)
		if err != nil {
			var zero R
			return zero, err
		}
		c.store.Set(key, v, gocache.DefaultExpiration)
		return v, nil
	}
}

func cacheKey(name string, arg any) (string, error) {
	b, err := json.Marshal(arg)
	if err != nil {
		return "", err
	}
	return name + ":" + string(b), nil
}
