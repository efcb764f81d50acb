package cmap

import (
	"fmt"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	m := New[int]()
	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.ShardCount() != DefaultShardCount {
		t.Errorf("shard count = %d, want %d", m.ShardCount(), DefaultShardCount)
	}
}

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},  // invalid → default
		{-1, DefaultShardCount}, // invalid → default
		{3, DefaultShardCount},  // not power of 2 → default
		{1, 1},
		{2, 2},
		{4, 4},
		{8, 8},
		{16, 16},
		{32, 32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := NewWithShards[int](tt.input)
			if m.ShardCount() != tt.expected {
				t.Errorf("NewWithShards(%d) shard count = %d, want %d",
					tt.input, m.ShardCount(), tt.expected)
			}
		})
	}
}

func TestSetAndGet(t *testing.T) {
	m := New[int]()

	m.Set("key1", 100)
	m.Set("key2", 200)

	val, ok := m.Get("key1")
	if !ok || val != 100 {
		t.Errorf("Get(key1) = (%d, %v), want (100, true)", val, ok)
	}

	val, ok = m.Get("key2")
	if !ok || val != 200 {
		t.Errorf("Get(key2) = (%d, %v), want (200, true)", val, ok)
	}

	val, ok = m.Get("nonexistent")
	if ok {
		t.Errorf("Get(nonexistent) = (%d, %v), want (0, false)", val, ok)
	}
}

func TestSetOverwrites(t *testing.T) {
	m := New[string]()
	m.Set("k", "old")
	m.Set("k", "new")

	if v, _ := m.Get("k"); v != "new" {
		t.Errorf("Get(k) = %q, want %q", v, "new")
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
}

func TestGetOrSet(t *testing.T) {
	m := New[int]()

	v, loaded := m.GetOrSet("k", 1)
	if loaded || v != 1 {
		t.Errorf("first GetOrSet = (%d, %v), want (1, false)", v, loaded)
	}

	v, loaded = m.GetOrSet("k", 2)
	if !loaded || v != 1 {
		t.Errorf("second GetOrSet = (%d, %v), want (1, true)", v, loaded)
	}
}

func TestGetOrSet_SingleWinnerUnderRace(t *testing.T) {
	m := New[int]()

	const goroutines = 32
	results := make([]int, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _ := m.GetOrSet("shared", i)
			results[i] = v
		}(i)
	}
	wg.Wait()

	winner := results[0]
	for i, v := range results {
		if v != winner {
			t.Fatalf("goroutine %d observed %d, others observed %d", i, v, winner)
		}
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
}

func TestDelete(t *testing.T) {
	m := New[int]()

	m.Set("key1", 100)
	m.Delete("key1")

	if _, ok := m.Get("key1"); ok {
		t.Error("key1 should not exist after deletion")
	}

	// Delete non-existent key should not panic
	m.Delete("nonexistent")
}

func TestHas(t *testing.T) {
	m := New[int]()

	m.Set("key1", 100)

	if !m.Has("key1") {
		t.Error("Has(key1) should return true")
	}
	if m.Has("nonexistent") {
		t.Error("Has(nonexistent) should return false")
	}
}

func TestCount(t *testing.T) {
	m := New[int]()

	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0", m.Count())
	}

	m.Set("key1", 1)
	m.Set("key2", 2)
	m.Set("key3", 3)

	if m.Count() != 3 {
		t.Errorf("Count() = %d, want 3", m.Count())
	}

	m.Delete("key2")
	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}
}

func TestClear(t *testing.T) {
	m := New[int]()
	for i := 0; i < 10; i++ {
		m.Set(fmt.Sprintf("key%d", i), i)
	}

	m.Clear()
	if m.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", m.Count())
	}
}

func TestItems(t *testing.T) {
	m := New[int]()
	m.Set("a", 1)
	m.Set("b", 2)

	items := m.Items()
	if len(items) != 2 {
		t.Fatalf("len(Items()) = %d, want 2", len(items))
	}
	if items["a"] != 1 || items["b"] != 2 {
		t.Errorf("Items() = %v", items)
	}

	// Mutating the snapshot must not touch the map.
	items["a"] = 99
	if v, _ := m.Get("a"); v != 1 {
		t.Errorf("Get(a) = %d after snapshot mutation, want 1", v)
	}
}

func TestRange(t *testing.T) {
	m := New[int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	seen := make(map[string]int)
	m.Range(func(k string, v int) bool {
		seen[k] = v
		return true
	})
	if len(seen) != 3 {
		t.Errorf("Range visited %d entries, want 3", len(seen))
	}

	// Early termination stops the walk.
	visits := 0
	m.Range(func(string, int) bool {
		visits++
		return false
	})
	if visits != 1 {
		t.Errorf("Range after early stop visited %d entries, want 1", visits)
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[int]()

	const (
		goroutines = 16
		keysPer    = 200
	)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < keysPer; i++ {
				key := fmt.Sprintf("g%d-k%d", g, i)
				m.Set(key, i)
				if v, ok := m.Get(key); !ok || v != i {
					t.Errorf("Get(%s) = (%d, %v), want (%d, true)", key, v, ok, i)
				}
			}
		}(g)
	}
	wg.Wait()

	if m.Count() != goroutines*keysPer {
		t.Errorf("Count() = %d, want %d", m.Count(), goroutines*keysPer)
	}
}
