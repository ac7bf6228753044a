package services

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/akinalp/badgesync/models"
)

// CounterObserver, bir sayaç değiştiğinde yeni değeri alır (UI badge'leri, metrics, ws hub).
//
// Observer'lar mutasyondan hemen sonra, mutasyon sırasıyla ve senkron çağrılır.
// Bir observer store'u mutate ETMEMELİ — writer lock'u tutulurken çalışır.
// Get/Snapshot çağırmak serbesttir.
type CounterObserver func(name models.CounterName, value int)

// CounterStore, isimli ve negatif olmayan okunmamış sayaçları tutar.
//
// İki lock var:
//   - writeMu: tüm mutasyonları (değer + observer bildirimi) sıraya koyar.
//     Böylece observer'lar değişiklikleri uygulandıkları sırayla görür.
//   - valuesMu: sadece map'i korur. Get bunu kısa süreli RLock'lar —
//     yavaş bir observer okuyucuları bloklamaz.
type CounterStore struct {
	writeMu  sync.Mutex
	valuesMu sync.RWMutex
	values   map[models.CounterName]int

	obsMu     sync.RWMutex
	observers map[string]CounterObserver
	obsOrder  []string

	logger zerolog.Logger
}

// NewCounterStore, boş bir store oluşturur. Tüm sayaçlar 0 başlar.
func NewCounterStore(logger zerolog.Logger) *CounterStore {
	return &CounterStore{
		values:    make(map[models.CounterName]int),
		observers: make(map[string]CounterObserver),
		logger:    logger.With().Str("component", "counter_store").Logger(),
	}
}

// Set, sayacı koşulsuz olarak value'ya eşitler. Negatif değer 0'a clamp'lenir
// ve çağıranın mantık hatası olarak loglanır.
func (s *CounterStore) Set(name models.CounterName, value int) {
	if value < 0 {
		s.logger.Error().
			Str("counter", string(name)).
			Int("value", value).
			Msg("negative counter value requested, clamping to 0")
		value = 0
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.store(name, value)
	s.notify(name, value)
}

// Increment, sayaca delta ekler. Sonuç negatifse 0'a clamp'lenir.
func (s *CounterStore) Increment(name models.CounterName, delta int) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	value := s.Get(name) + delta
	if value < 0 {
		s.logger.Error().
			Str("counter", string(name)).
			Int("delta", delta).
			Int("result", value).
			Msg("counter would go negative, clamping to 0")
		value = 0
	}

	s.store(name, value)
	s.notify(name, value)
}

// Reset, Set(name, 0) ile aynıdır. Kullanıcı tüm öğeleri tükettiğinde çağrılır.
func (s *CounterStore) Reset(name models.CounterName) {
	s.Set(name, 0)
}

// Get, sayacın güncel değerini döner. Bilinmeyen sayaç 0'dır.
func (s *CounterStore) Get(name models.CounterName) int {
	s.valuesMu.RLock()
	defer s.valuesMu.RUnlock()

	return s.values[name]
}

// Snapshot, bilinen iki sayacı UI formatında döner.
func (s *CounterStore) Snapshot() models.BadgeCounts {
	s.valuesMu.RLock()
	defer s.valuesMu.RUnlock()

	return models.BadgeCounts{
		Notifications: s.values[models.CounterNotifications],
		Chat:          s.values[models.CounterChat],
	}
}

// Clear, tüm sayaçları atar (logout). Sıfır olmayan her sayaç için
// observer'lara 0 bildirilir ki UI badge'leri temizlensin.
func (s *CounterStore) Clear() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.valuesMu.Lock()
	old := s.values
	s.values = make(map[models.CounterName]int)
	s.valuesMu.Unlock()

	for _, name := range models.Counters {
		if old[name] != 0 {
			s.notify(name, 0)
		}
	}
	for name, value := range old {
		if value != 0 && !slices.Contains(models.Counters, name) {
			s.notify(name, 0)
		}
	}
}

// Observe, bir observer kaydeder ve kaydı silen bir cancel fonksiyonu döner.
func (s *CounterStore) Observe(fn CounterObserver) (cancel func()) {
	id := uuid.NewString()

	s.obsMu.Lock()
	s.observers[id] = fn
	s.obsOrder = append(s.obsOrder, id)
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			defer s.obsMu.Unlock()

			delete(s.observers, id)
			for i, oid := range s.obsOrder {
				if oid == id {
					s.obsOrder = append(s.obsOrder[:i:i], s.obsOrder[i+1:]...)
					break
				}
			}
		})
	}
}

func (s *CounterStore) store(name models.CounterName, value int) {
	s.valuesMu.Lock()
	s.values[name] = value
	s.valuesMu.Unlock()
}

// notify, observer'ları kayıt sırasıyla çağırır. writeMu tutulurken çağrılmalı.
func (s *CounterStore) notify(name models.CounterName, value int) {
	s.obsMu.RLock()
	fns := make([]CounterObserver, 0, len(s.obsOrder))
	for _, id := range s.obsOrder {
		fns = append(fns, s.observers[id])
	}
	s.obsMu.RUnlock()

	for _, fn := range fns {
		fn(name, value)
	}
}
