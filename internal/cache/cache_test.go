package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newWithClock[V any]() (*Cache[V], *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	c := New[V]()
	c.now = clock.Now
	return c, clock
}

func TestNew(t *testing.T) {
	cache := New[string]()
	assert.NotNil(t, cache)
	assert.NotNil(t, cache.items)
	assert.Zero(t, cache.Len())
}

func TestCache_SetAndGet(t *testing.T) {
	cache := New[string]()

	cache.Set("key1", "value1", 10*time.Second)
	val, exists := cache.Get("key1")
	assert.True(t, exists)
	assert.Equal(t, "value1", val)

	val, exists = cache.Get("nonexistent")
	assert.False(t, exists)
	assert.Empty(t, val)
}

func TestCache_PointerValues(t *testing.T) {
	type subscription struct{ Status string }
	cache := New[*subscription]()

	cache.Set("org-1", &subscription{Status: "active"}, time.Minute)
	cache.Set("org-2", nil, time.Minute)

	val, exists := cache.Get("org-1")
	assert.True(t, exists)
	assert.Equal(t, "active", val.Status)

	// nil is a valid cached value (negative lookup)
	val, exists = cache.Get("org-2")
	assert.True(t, exists)
	assert.Nil(t, val)
}

func TestCache_Expiration(t *testing.T) {
	tests := []struct {
		name    string
		ttl     time.Duration
		advance time.Duration
		want    bool
	}{
		{"within ttl", time.Minute, 30 * time.Second, true},
		{"exactly at ttl", time.Minute, time.Minute, true},
		{"past ttl", time.Minute, time.Minute + time.Nanosecond, false},
		{"negative ttl", -time.Second, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, clock := newWithClock[string]()
			cache.Set("key", "value", tt.ttl)
			clock.Advance(tt.advance)

			_, exists := cache.Get("key")
			assert.Equal(t, tt.want, exists)
			if !tt.want {
				assert.Zero(t, cache.Len(), "expired item should be removed")
			}
		})
	}
}

func TestCache_UpdateRefreshesExpiry(t *testing.T) {
	cache, clock := newWithClock[int]()

	cache.Set("key", 1, time.Minute)
	clock.Advance(50 * time.Second)
	cache.Set("key", 2, time.Minute)
	clock.Advance(50 * time.Second)

	val, exists := cache.Get("key")
	assert.True(t, exists)
	assert.Equal(t, 2, val)
}

func TestCache_DeleteAndClear(t *testing.T) {
	cache := New[string]()
	cache.Set("key1", "value1", 10*time.Second)
	cache.Set("key2", "value2", 10*time.Second)

	cache.Delete("key1")
	_, exists := cache.Get("key1")
	assert.False(t, exists)

	// Delete non-existent key (should not panic)
	cache.Delete("nonexistent")

	cache.Clear()
	_, exists = cache.Get("key2")
	assert.False(t, exists)
	assert.Zero(t, cache.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := New[int]()
	iterations := 100
	var wg sync.WaitGroup

	wg.Add(iterations * 3)
	for i := 0; i < iterations; i++ {
		go func(n int) {
			defer wg.Done()
			cache.Set("key", n, 10*time.Second)
		}(i)

		go func() {
			defer wg.Done()
			cache.Get("key")
		}()

		go func(n int) {
			defer wg.Done()
			if n%10 == 0 {
				cache.Delete("key")
			}
			if n%25 == 0 {
				cache.Clear()
			}
		}(i)
	}
	wg.Wait()

	cache.Set("final", 7, 10*time.Second)
	val, exists := cache.Get("final")
	assert.True(t, exists)
	assert.Equal(t, 7, val)
}

func BenchmarkCache_Get(b *testing.B) {
	cache := New[string]()
	cache.Set("key", "value", 10*time.Second)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get("key")
	}
}

func BenchmarkCache_ConcurrentSetGet(b *testing.B) {
	cache := New[int]()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%2 == 0 {
				cache.Set("key", i, 10*time.Second)
			} else {
				cache.Get("key")
			}
			i++
		}
	})
}
