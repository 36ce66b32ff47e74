// Package snapshot keeps the last good upstream snapshot in memory.
package snapshot

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"fieldops-map-backend/internal/dashboard"
	"fieldops-map-backend/internal/model"
)

const key = "snapshot"

// Cache serves the cached snapshot and falls through to the live source on a
// miss. It implements dashboard.Source.
type Cache struct {
	store *cache.Cache
	ttl   time.Duration
	live  dashboard.Source
}

var _ dashboard.Source = (*Cache)(nil)

// New returns a cache holding snapshots for ttl. A zero ttl never expires.
func New(live dashboard.Source, ttl time.Duration) *Cache {
	exp := ttl
	if exp <= 0 {
		exp = cache.NoExpiration
	}
	return &Cache{
		store: cache.New(exp, 10*time.Minute),
		ttl:   exp,
		live:  live,
	}
}

// Put stores snap as the current snapshot.
func (c *Cache) Put(snap model.RawSnapshot) {
	c.store.Set(key, snap, c.ttl)
}

// Clear drops the current snapshot.
func (c *Cache) Clear() {
	c.store.Delete(key)
}

// Get returns the cached snapshot, if any.
func (c *Cache) Get() (model.RawSnapshot, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return model.RawSnapshot{}, false
	}
	return v.(model.RawSnapshot), true
}

// Fetch returns the cached snapshot or fetches and caches a live one.
func (c *Cache) Fetch(ctx context.Context) (model.RawSnapshot, error) {
	if snap, ok := c.Get(); ok {
		return snap, nil
	}
	snap, err := c.live.Fetch(ctx)
	if err != nil {
		return model.RawSnapshot{}, err
	}
	c.Put(snap)
	return snap, nil
}
