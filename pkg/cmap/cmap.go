// Package cmap provides a concurrent-safe sharded map with string keys.
//
// Keys are spread across independently locked shards so that operations on
// unrelated keys never contend on a common mutex. This is the property the
// store relies on: many connections mutating disjoint keys proceed in
// parallel, and nothing serializes the whole keyspace.
package cmap

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the default number of shards.
const DefaultShardCount = 16

// Map is a concurrent-safe map sharded by key hash.
type Map[V any] struct {
	shards []*shard[V]
	mask   uint64
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// New creates a map with the default shard count.
func New[V any]() *Map[V] {
	return NewWithShards[V](DefaultShardCount)
}

// NewWithShards creates a map with the given shard count, which must be a
// power of two; anything else falls back to the default.
func NewWithShards[V any](shardCount int) *Map[V] {
	if shardCount <= 0 || shardCount&(shardCount-1) != 0 {
		shardCount = DefaultShardCount
	}

	m := &Map[V]{
		shards: make([]*shard[V], shardCount),
		mask:   uint64(shardCount - 1),
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	h := murmur3.Sum64([]byte(key))
	return m.shards[h&m.mask]
}

// Get retrieves the value stored under key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (m *Map[V]) Set(key string, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// GetOrSet returns the existing value for key, or stores and returns value
// if the key was absent. The second result reports whether the value was
// already present. The check and the insert happen under one lock, so two
// racing callers always agree on a single winner.
func (m *Map[V]) GetOrSet(key string, value V) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok {
		return existing, true
	}
	s.items[key] = value
	return value, false
}

// Delete removes key.
func (m *Map[V]) Delete(key string) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Has reports whether key is present.
func (m *Map[V]) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Count returns the total number of entries across all shards.
func (m *Map[V]) Count() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// Items returns a copy of all entries. Shards are copied one at a time
// under their read locks, so the result is a point-in-time snapshot per
// shard; no lock is held once Items returns.
func (m *Map[V]) Items() map[string]V {
	out := make(map[string]V, m.Count())
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			out[k] = v
		}
		s.mu.RUnlock()
	}
	return out
}

// Range iterates over all entries until fn returns false. Locks are taken
// shard by shard, so the traversal is not a consistent global snapshot.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Clear removes all entries.
func (m *Map[V]) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		s.items = make(map[string]V)
		s.mu.Unlock()
	}
}

// ShardCount returns the number of shards.
func (m *Map[V]) ShardCount() int { return len(m.shards) }
