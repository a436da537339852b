package session

import (
	"fmt"
	"sync"
	"testing"
)

func TestPasswordCacheLifecycle(t *testing.T) {
	cache := NewPasswordCache()

	if _, ok := cache.Get("root@203.0.113.2:22"); ok {
		t.Fatal("expected cache miss")
	}

	cache.Set("root@203.0.113.2:22", "secret")
	if v, ok := cache.Get("root@203.0.113.2:22"); !ok || v != "secret" {
		t.Fatalf("unexpected cache value ok=%v v=%q", ok, v)
	}

	cache.Forget("root@203.0.113.2:22")
	if _, ok := cache.Get("root@203.0.113.2:22"); ok {
		t.Fatal("expected miss after forget")
	}

	cache.Set("a", "1")
	cache.Set("b", "2")
	cache.Clear()
	if cache.Len() != 0 {
		t.Fatal("expected empty cache after clear")
	}
}

func TestPasswordCacheConcurrentUse(t *testing.T) {
	cache := NewPasswordCache()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("root@host%d:22", i)
			cache.Set(key, "pw")
			cache.Get(key)
		}(i)
	}
	wg.Wait()
	if cache.Len() != 16 {
		t.Fatalf("Len()=%d", cache.Len())
	}
}
