package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store is a byte cache keyed by string. Misses and backend failures both
// read as ok == false; a cache is never the source of truth.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool)
	Set(ctx context.Context, key string, val []byte)
	Delete(ctx context.Context, keys ...string)
}

var (
	_ Store = &Timed{}
	_ Store = &Redis{}
)

// GraphKey names the cached graph response for a location in some units.
func GraphKey(locationID int64, units string) string {
	return fmt.Sprintf("graph:%d:%s", locationID, units)
}

// GraphKeys lists every graph key for a location, for invalidation.
func GraphKeys(locationID int64, units ...string) []string {
	keys := make([]string, len(units))
	for i, u := range units {
		keys[i] = GraphKey(locationID, u)
	}
	return keys
}

// Timed is an in-process cache that invalidates elements on a timer basis and
// evicts the least recently used element beyond its size. It is safe for
// concurrent use.
type Timed struct {
	ttl   time.Duration
	cache *lru.Cache[string, element]
}

// element holds a timestamped value to save.
type element struct {
	value    []byte
	creation time.Time
}

// NewTimed creates a new Timed cache holding at most size elements, each
// invalidated after ttl in cache.
func NewTimed(size int, ttl time.Duration) (*Timed, error) {
	c, err := lru.New[string, element](size)
	if err != nil {
		return nil, err
	}
	return &Timed{
		ttl:   ttl,
		cache: c,
	}, nil
}

// Set assigns a value to a key.
func (c *Timed) Set(_ context.Context, key string, val []byte) {
	c.set(key, val, time.Now())
}

// set performs Set's work with the wall clock factored out.
func (c *Timed) set(key string, val []byte, t time.Time) {
	c.cache.Add(key, element{
		value:    val,
		creation: t,
	})
}

// Get retrieves a value for a key. The value may not exist or have expired, in
// which case ok will be false.
func (c *Timed) Get(_ context.Context, key string) (value []byte, ok bool) {
	return c.get(key, time.Now())
}

// get is like set in that the time is factored out
func (c *Timed) get(key string, t time.Time) (value []byte, ok bool) {
	el, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}

	// in memory elements might still be invalid
	if elapsed := t.Sub(el.creation); elapsed > c.ttl {
		c.cache.Remove(key)
		return nil, false
	}

	return el.value, true
}

func (c *Timed) Delete(_ context.Context, keys ...string) {
	for _, key := range keys {
		c.cache.Remove(key)
	}
}

func (c *Timed) Len() int {
	return c.cache.Len()
}
