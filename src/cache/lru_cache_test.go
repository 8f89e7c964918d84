package cache

import (
	"strconv"
	"testing"
	"time"
)

func BenchmarkLRU_Set(b *testing.B) {
	c := New[string](1000, 5*time.Minute)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(strconv.Itoa(i), "value")
	}
}

func BenchmarkLRU_ConcurrentAccess(b *testing.B) {
	c := New[string](1000, 5*time.Minute)
	for i := 0; i < 100; i++ {
		c.Set(strconv.Itoa(i), "value")
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := strconv.Itoa(i % 100)
			if i%2 == 0 {
				c.Get(key)
			} else {
				c.Set(key, "value")
			}
			i++
		}
	})
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](3, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected 1, got %v (ok=%v)", v, ok)
	}

	c.Set("d", 4)
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if c.Len() != 3 {
		t.Fatalf("expected length 3, got %d", c.Len())
	}
}

func TestLRU_TTL(t *testing.T) {
	c := New[string](10, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("key", "value")
	if v, ok := c.Get("key"); !ok || v != "value" {
		t.Fatal("expected value to be present")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("key"); ok {
		t.Fatal("expected value to be expired")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed, len=%d", c.Len())
	}
}

func TestLRU_DeleteAndClear(t *testing.T) {
	c := New[int](4, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to be deleted")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
}

func TestLRU_DumpRestore(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	src := New[string](10, time.Hour)
	src.now = func() time.Time { return now }
	src.Set("x", "1")
	src.Set("y", "2")

	dump := src.Dump()
	dump["stale"] = Entry[string]{Value: "old", ExpiresAt: now.Add(-time.Second)}

	dst := New[string](10, time.Hour)
	dst.now = func() time.Time { return now }
	dst.Restore(dump)

	if dst.Len() != 2 {
		t.Fatalf("expected 2 restored entries, got %d", dst.Len())
	}
	if v, ok := dst.Get("y"); !ok || v != "2" {
		t.Fatalf("expected y=2, got %q (ok=%v)", v, ok)
	}
}

func TestLRU_RestoreRespectsCapacity(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dump := map[string]Entry[int]{
		"soon":  {Value: 1, ExpiresAt: now.Add(time.Minute)},
		"later": {Value: 2, ExpiresAt: now.Add(time.Hour)},
		"mid":   {Value: 3, ExpiresAt: now.Add(10 * time.Minute)},
	}
	c := New[int](2, time.Hour)
	c.now = func() time.Time { return now }
	c.Restore(dump)

	if _, ok := c.Get("soon"); ok {
		t.Fatal("entry expiring soonest should have been evicted")
	}
	if _, ok := c.Get("later"); !ok {
		t.Fatal("expected later to survive")
	}
}

func TestHashKeyStable(t *testing.T) {
	a := HashKey([]byte("hello"))
	if a != HashKey([]byte("hello")) || len(a) != 64 {
		t.Fatalf("unexpected hash %q", a)
	}
	if a == HashKey([]byte("hello!")) {
		t.Fatal("different input produced same hash")
	}
}
