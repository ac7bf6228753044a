// Package cache — generic in-memory TTL cache.
//
// Push transport'ları aynı event'i birden fazla kez teslim edebilir
// (reconnect sonrası replay, sunucu tarafı retry). TTLCache, son görülen event
// ID'lerini sınırlı bir süre tutarak duplicate delivery'yi yakalamak için kullanılır.
//
// Thread safety: tüm erişim tek bir sync.Mutex ile korunur.
// Seen() okuma + yazmayı atomik yapmak zorunda olduğu için RWMutex'e gerek yok.
package cache

import (
	"sync"
	"time"
)

// entry, cache'teki tek bir kayıttır.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache, generic in-memory TTL cache.
//
//	seen := cache.New[string, struct{}](5*time.Minute, time.Minute)
//	if seen.Seen("notif-17") { return } // ikinci teslimat
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	ttl     time.Duration
	now     func() time.Time

	// stopCleanup: periyodik temizleme goroutine'ini durdurur. Close() kapatır.
	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// New, yeni bir TTLCache oluşturur ve periyodik temizleme goroutine'ini başlatır.
//
// cleanupInterval < ttl olmalıdır; süresi dolan entry'ler Get/Seen'de zaten
// görünmez, cleanup sadece map'in büyümesini engeller.
func New[K comparable, V any](ttl, cleanupInterval time.Duration) *TTLCache[K, V] {
	c := &TTLCache[K, V]{
		entries:     make(map[K]entry[V]),
		ttl:         ttl,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.evictExpired()
			case <-c.stopCleanup:
				return
			}
		}
	}()

	return c
}

// Get, key varsa ve süresi dolmamışsa (value, true) döner.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set, cache'e bir değer yazar (TTL ile).
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Seen, key son TTL içinde görüldüyse true döner; görülmediyse kaydeder ve false döner.
// Kontrol ve kayıt tek lock altında yapılır — iki eşzamanlı teslimattan sadece biri false alır.
func (c *TTLCache[K, V]) Seen(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok && !now.After(e.expiresAt) {
		return true
	}
	var zero V
	c.entries[key] = entry[V]{value: zero, expiresAt: now.Add(c.ttl)}
	return false
}

// Clear, tüm cache'i boşaltır. Session değişiminde eski kullanıcının
// event ID'leri yeni session'a taşınmaz.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]entry[V])
}

// Len, cache'teki toplam entry sayısını döner (süresi dolmuşlar dahil).
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Close, periyodik temizleme goroutine'ini durdurur. Birden fazla çağrılabilir.
func (c *TTLCache[K, V]) Close() {
	c.closeOnce.Do(func() { close(c.stopCleanup) })
}

// evictExpired, süresi dolan entry'leri map'ten fiziksel olarak siler.
func (c *TTLCache[K, V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
