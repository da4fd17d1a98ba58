// Package cache holds the short-lived in-memory copies of remote-store
// data. The UI surface re-reads everything on every interaction, so each
// named value keeps a last-refresh timestamp and a fixed expiry window.
// Staleness up to the window is accepted; there is no cross-process
// invalidation.
package cache

import (
	"sync"
	"time"
)

// Value caches a single value with a fixed expiry window.
type Value[T any] struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time

	val       T
	refreshed time.Time
	ok        bool
}

// NewValue creates an empty cache with the given expiry window. The clock
// defaults to time.Now and is injectable for tests.
func NewValue[T any](ttl time.Duration) *Value[T] {
	return &Value[T]{ttl: ttl, now: time.Now}
}

// WithClock replaces the clock. Call before first use.
func (v *Value[T]) WithClock(now func() time.Time) *Value[T] {
	v.now = now
	return v
}

// Get returns the cached value when it is younger than the expiry window.
func (v *Value[T]) Get() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.ok || v.now().Sub(v.refreshed) >= v.ttl {
		var zero T
		return zero, false
	}
	return v.val, true
}

// Put stores a fresh value and resets the refresh timestamp.
func (v *Value[T]) Put(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.val = val
	v.refreshed = v.now()
	v.ok = true
}

// Invalidate empties the cache.
func (v *Value[T]) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	var zero T
	v.val = zero
	v.refreshed = time.Time{}
	v.ok = false
}

// GetOrLoad returns the cached value or runs loader and caches its result.
// A loader error is returned as-is and nothing is cached.
func (v *Value[T]) GetOrLoad(loader func() (T, error)) (T, error) {
	if val, ok := v.Get(); ok {
		return val, nil
	}
	val, err := loader()
	if err != nil {
		return val, err
	}
	v.Put(val)
	return val, nil
}

type keyedEntry[T any] struct {
	val       T
	refreshed time.Time
}

// Keyed caches values by string key, each with the same expiry window.
// Used for the per-catalog lists and per-sheet handles.
type Keyed[T any] struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time

	entries map[string]keyedEntry[T]
}

func NewKeyed[T any](ttl time.Duration) *Keyed[T] {
	return &Keyed[T]{ttl: ttl, now: time.Now, entries: map[string]keyedEntry[T]{}}
}

func (k *Keyed[T]) WithClock(now func() time.Time) *Keyed[T] {
	k.now = now
	return k
}

func (k *Keyed[T]) Get(key string) (T, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	e, ok := k.entries[key]
	if !ok || k.now().Sub(e.refreshed) >= k.ttl {
		var zero T
		return zero, false
	}
	return e.val, true
}

func (k *Keyed[T]) Put(key string, val T) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries[key] = keyedEntry[T]{val: val, refreshed: k.now()}
}

func (k *Keyed[T]) Invalidate(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.entries, key)
}

func (k *Keyed[T]) InvalidateAll() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries = map[string]keyedEntry[T]{}
}

// Clearer is any cache that can be reset to empty.
type Clearer interface {
	clearAll()
}

func (v *Value[T]) clearAll() { v.Invalidate() }
func (k *Keyed[T]) clearAll() { k.InvalidateAll() }

// Registry aggregates every named cache so the whole set can be cleared in
// one operation.
type Registry struct {
	mu     sync.Mutex
	caches []Clearer
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a cache to the registry.
func (r *Registry) Register(c Clearer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caches = append(r.caches, c)
}

// ClearAll resets every registered cache to empty.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.caches {
		c.clearAll()
	}
}
