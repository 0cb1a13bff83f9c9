// Package ttl provides a small typed expiring map. The gamma-history,
// trade-print and bias-hysteresis stores all need the same "keep for N
// seconds, then forget" behavior, so it lives in one place instead of being
// re-spliced in each engine.
package ttl

import (
	"sync"
	"time"
)

type entry[V any] struct {
	val V
	exp time.Time
}

// Map is a mutex-guarded map whose entries expire after a fixed TTL.
// A zero TTL means entries never expire.
type Map[V any] struct {
	mu        sync.Mutex
	ttl       time.Duration
	items     map[string]entry[V]
	lastPurge time.Time
}

func NewMap[V any](ttl time.Duration) *Map[V] {
	return &Map[V]{ttl: ttl, items: make(map[string]entry[V])}
}

// Get returns the live value for key. Expired entries are treated as absent.
func (m *Map[V]) Get(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !it.exp.IsZero() && time.Now().After(it.exp) {
		delete(m.items, key)
		var zero V
		return zero, false
	}
	return it.val, true
}

// Set stores val under key with the map's TTL, purging stale entries at most
// once a minute so abandoned keys don't accumulate.
func (m *Map[V]) Set(key string, val V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if m.lastPurge.IsZero() || now.Sub(m.lastPurge) > time.Minute {
		for k, it := range m.items {
			if !it.exp.IsZero() && now.After(it.exp) {
				delete(m.items, k)
			}
		}
		m.lastPurge = now
	}
	exp := time.Time{}
	if m.ttl > 0 {
		exp = now.Add(m.ttl)
	}
	m.items[key] = entry[V]{val: val, exp: exp}
}

// Len reports the number of stored entries, including any not yet purged.
func (m *Map[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
