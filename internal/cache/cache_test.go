package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestCache_BasicOperations(t *testing.T) {
	cache := NewCache[string, string]()

	t.Run("Set and Get", func(t *testing.T) {
		cache.Set("key", "value")
		got, exists := cache.Get("key")
		if !exists || got != "value" {
			t.Errorf("Get() = %q, %v", got, exists)
		}
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		if _, exists := cache.Get("missing"); exists {
			t.Error("Expected key to not exist")
		}
	})

	t.Run("Overwrite existing key", func(t *testing.T) {
		cache.Set("key", "other")
		if got, _ := cache.Get("key"); got != "other" {
			t.Errorf("Expected %q, got %q", "other", got)
		}
		if cache.Len() != 1 {
			t.Errorf("Len() = %d", cache.Len())
		}
	})

	t.Run("Delete and Clear", func(t *testing.T) {
		cache.Set("a", "1")
		cache.Delete("key")
		if _, exists := cache.Get("key"); exists {
			t.Error("Expected deleted key to be gone")
		}
		cache.Clear()
		if cache.Len() != 0 {
			t.Errorf("Len() after Clear = %d", cache.Len())
		}
	})
}

func TestBoundedCache(t *testing.T) {
	cache := NewBoundedCache[int, string](3)
	for i := range 5 {
		cache.Set(i, fmt.Sprint(i))
	}

	if cache.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", cache.Len())
	}
	for _, evicted := range []int{0, 1} {
		if _, ok := cache.Get(evicted); ok {
			t.Errorf("Expected %d to be evicted", evicted)
		}
	}

	// Overwriting does not count as a new entry.
	cache.Set(4, "four")
	if _, ok := cache.Get(2); !ok {
		t.Error("Overwrite evicted an entry")
	}

	cache.Delete(2)
	cache.Set(5, "5")
	cache.Set(6, "6")
	if _, ok := cache.Get(3); ok {
		t.Error("Expected 3 to be evicted")
	}
}

func TestGetOrSet(t *testing.T) {
	cache := NewCache[string, int]()
	calls := 0
	compute := func() int { calls++; return 42 }

	if got := cache.GetOrSet("k", compute); got != 42 {
		t.Errorf("GetOrSet() = %d", got)
	}
	cache.GetOrSet("k", compute)
	if calls != 1 {
		t.Errorf("compute called %d times", calls)
	}
}

func TestCache_Concurrent(t *testing.T) {
	cache := NewBoundedCache[int, int](50)
	var wg sync.WaitGroup

	for g := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				cache.Set(g*100+i, i)
				cache.Get(i)
			}
		}()
	}
	wg.Wait()

	if cache.Len() != 50 {
		t.Errorf("Len() = %d, want 50", cache.Len())
	}
}
