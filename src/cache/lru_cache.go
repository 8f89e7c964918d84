// Package cache provides a thread-safe LRU cache with per-entry expiry.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Entry is a cached value together with its expiry time. It is the unit
// exchanged by Dump and Restore.
type Entry[V any] struct {
	Value     V         `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LRU is a thread-safe least-recently-used cache with a fixed TTL.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	order    *list.List
	now      func() time.Time
}

type node[V any] struct {
	key   string
	entry Entry[V]
}

// New returns an LRU holding at most capacity entries, each living for ttl.
// A capacity below one is treated as one.
func New[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	n := elem.Value.(*node[V])
	if c.now().After(n.entry.ExpiresAt) {
		c.removeElement(elem)
		return zero, false
	}
	c.order.MoveToFront(elem)
	return n.entry.Value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := Entry[V]{Value: value, ExpiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.items[key]; ok {
		elem.Value.(*node[V]).entry = e
		c.order.MoveToFront(elem)
		return
	}
	c.items[key] = c.order.PushFront(&node[V]{key: key, entry: e})
	c.evict()
}

// Delete drops key if present.
func (c *LRU[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

// Len reports the number of entries, expired ones included until touched.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Dump snapshots all live entries for persistence.
func (c *LRU[V]) Dump() map[string]Entry[V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make(map[string]Entry[V], len(c.items))
	for k, elem := range c.items {
		e := elem.Value.(*node[V]).entry
		if now.After(e.ExpiresAt) {
			continue
		}
		out[k] = e
	}
	return out
}

// Restore replaces the contents with dump, skipping expired entries. Entries
// expiring soonest are evicted first if dump exceeds capacity.
func (c *LRU[V]) Restore(dump map[string]Entry[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()

	now := c.now()
	for k, e := range dump {
		if now.After(e.ExpiresAt) {
			continue
		}
		n := &node[V]{key: k, entry: e}
		// Keep the list ordered by expiry, latest at the front.
		var mark *list.Element
		for el := c.order.Front(); el != nil; el = el.Next() {
			if el.Value.(*node[V]).entry.ExpiresAt.Before(e.ExpiresAt) {
				mark = el
				break
			}
		}
		if mark != nil {
			c.items[k] = c.order.InsertBefore(n, mark)
		} else {
			c.items[k] = c.order.PushBack(n)
		}
	}
	c.evict()
}

func (c *LRU[V]) evict() {
	for c.order.Len() > c.capacity {
		c.removeElement(c.order.Back())
	}
}

func (c *LRU[V]) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*node[V]).key)
}

// HashKey returns the hex SHA-256 of b.
func HashKey(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
