// Package backend implements the shared in-memory store every connection
// operates on: a flat key-to-frame map and a nested key-to-hash map. Both
// are safe for concurrent use without any caller-side locking, and
// contention is per shard rather than global, so commands touching
// unrelated keys never serialize on each other.
package backend

import (
	"github.com/arvhen/respd/internal/resp"
	"github.com/arvhen/respd/pkg/cmap"
)

// Backend is the concurrent key-value store. It is created once at process
// start and shared by reference across all connection goroutines; copying
// the pointer is the only "clone" that ever happens.
type Backend struct {
	strings *cmap.Map[resp.Frame]
	hashes  *cmap.Map[*cmap.Map[resp.Frame]]
}

// New creates an empty backend.
func New() *Backend {
	return &Backend{
		strings: cmap.New[resp.Frame](),
		hashes:  cmap.New[*cmap.Map[resp.Frame]](),
	}
}

// Get returns the frame stored under key.
func (b *Backend) Get(key string) (resp.Frame, bool) {
	return b.strings.Get(key)
}

// Set stores value under key, unconditionally overwriting. Concurrent
// writers to the same key race; the shard lock decides the winner and the
// last write wins.
func (b *Backend) Set(key string, value resp.Frame) {
	b.strings.Set(key, value)
}

// HGet returns the frame stored under field of the hash at key.
func (b *Backend) HGet(key, field string) (resp.Frame, bool) {
	inner, ok := b.hashes.Get(key)
	if !ok {
		return nil, false
	}
	return inner.Get(field)
}

// HSet stores value under field of the hash at key. The inner map is
// created lazily on the first HSet to a key and never removed; GetOrSet
// makes the creation race-free when two writers hit a fresh key at once.
func (b *Backend) HSet(key, field string, value resp.Frame) {
	inner, _ := b.hashes.GetOrSet(key, cmap.New[resp.Frame]())
	inner.Set(field, value)
}

// HGetAll returns a snapshot of every field/value pair of the hash at key,
// or false when the key is absent. An existing-but-empty hash yields an
// empty non-nil map, so absence stays distinguishable from emptiness. The
// snapshot is a copy; no lock is held while the caller encodes it.
func (b *Backend) HGetAll(key string) (map[string]resp.Frame, bool) {
	inner, ok := b.hashes.Get(key)
	if !ok {
		return nil, false
	}
	return inner.Items(), true
}

// StringKeys returns the number of keys in the flat store.
func (b *Backend) StringKeys() int { return b.strings.Count() }

// HashKeys returns the number of keys in the nested store.
func (b *Backend) HashKeys() int { return b.hashes.Count() }
