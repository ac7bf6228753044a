// Package ratelimit, anahtar (client ID, IP) bazlı token bucket rate limiting.
//
// Her anahtar kendi golang.org/x/time/rate.Limiter'ını alır. Uzun süre
// kullanılmayan anahtarlar arka plan goroutine'i ile temizlenir (memory leak engeli).
//
// Neden ayrı paket?
// Hem handlers (HTTP refresh) hem main'deki ws callback'i kullanır;
// ws ↔ handlers arasında import cycle oluşmaz.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter, anahtar başına token bucket.
//
//	limiter := ratelimit.NewKeyedLimiter(1, 3, 10*time.Minute)
//	if !limiter.Allow(clientID) { return }
type KeyedLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewKeyedLimiter, perSecond hız ve burst kapasiteli bir limiter oluşturur.
// idleTTL boyunca Allow çağrılmayan anahtarlar silinir.
func NewKeyedLimiter(perSecond float64, burst int, idleTTL time.Duration) *KeyedLimiter {
	l := &KeyedLimiter{
		buckets:     make(map[string]*bucket),
		limit:       rate.Limit(perSecond),
		burst:       burst,
		idleTTL:     idleTTL,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(idleTTL)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.evictIdle()
			case <-l.stopCleanup:
				return
			}
		}
	}()

	return l
}

// Allow, key için bir token tüketir; bucket boşsa false döner.
func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Forget, key'in bucket'ını siler (ör: client bağlantısı kapandı).
func (l *KeyedLimiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Len, takip edilen anahtar sayısı.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop, temizleme goroutine'ini durdurur. Birden fazla çağrılabilir.
func (l *KeyedLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

func (l *KeyedLimiter) evictIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleTTL)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}
