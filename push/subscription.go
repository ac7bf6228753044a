package push

import (
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Cleanup, Subscribe'ın döndüğü serbest bırakma fonksiyonu.
// Birden fazla çağrılabilir; sadece ilk çağrı etkilidir.
type Cleanup func()

// channelRef, transport kanalı ve onu paylaşan tüketici sayısı.
type channelRef struct {
	ch   Channel
	refs int
}

// Subscriptions, kanal bazlı reference counting ile transport subscription'larını yönetir.
//
// Kanal durumu:
//
//	UNSUBSCRIBED ──Subscribe──▶ SUBSCRIBED (refs=1)
//	SUBSCRIBED   ──Subscribe──▶ SUBSCRIBED (refs+1)
//	SUBSCRIBED   ──Cleanup───▶ refs-1, refs==0 ise UNSUBSCRIBED
//
// Global singleton değildir — main.go'da oluşturulup coordinator'a inject edilir.
type Subscriptions struct {
	transport Transport
	logger    zerolog.Logger

	mu       sync.Mutex
	channels map[string]*channelRef
}

// NewSubscriptions, transport üzerinde yeni bir subscription yöneticisi oluşturur.
func NewSubscriptions(transport Transport, logger zerolog.Logger) *Subscriptions {
	return &Subscriptions{
		transport: transport,
		logger:    logger.With().Str("component", "push_subscriptions").Logger(),
		channels:  make(map[string]*channelRef),
	}
}

// Subscribe, handler'ı channel üzerindeki event'e bağlar ve kanalın ref sayısını artırır.
// Kanal transport'ta yoksa subscribe edilir, varsa paylaşılır.
//
// Transport kapalıysa hata loglanır ve etkisiz bir Cleanup döner;
// çağıran taraf için subscribe hiçbir zaman başarısız olmaz.
func (s *Subscriptions) Subscribe(channel, event string, handler EventHandler) Cleanup {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.channels[channel]
	if !ok {
		ch, err := s.transport.Subscribe(channel)
		if err != nil {
			s.logger.Warn().Err(err).Str("channel", channel).Msg("transport subscribe failed")
			return func() {}
		}
		ref = &channelRef{ch: ch}
		s.channels[channel] = ref
		s.logger.Debug().Str("channel", channel).Msg("channel subscribed")
	}

	id := ref.ch.Bind(event, handler)
	ref.refs++

	var released atomic.Bool
	return func() {
		if !released.CompareAndSwap(false, true) {
			return
		}
		s.release(channel, event, ref, id)
	}
}

// release, tek bir binding'i kaldırır; son binding ise kanalı transport'tan düşürür.
func (s *Subscriptions) release(channel, event string, ref *channelRef, id BindingID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref.ch.Unbind(event, id)

	// Close() sonrası (veya kanal yeniden açıldıysa) bu ref artık map'te değildir.
	if current, ok := s.channels[channel]; !ok || current != ref {
		return
	}

	ref.refs--
	if ref.refs > 0 {
		return
	}

	delete(s.channels, channel)
	if err := s.transport.Unsubscribe(channel); err != nil {
		s.logger.Warn().Err(err).Str("channel", channel).Msg("transport unsubscribe failed")
		return
	}
	s.logger.Debug().Str("channel", channel).Msg("channel unsubscribed")
}

// Refs, kanalın aktif tüketici sayısını döner. Subscribe edilmemiş kanal için 0.
func (s *Subscriptions) Refs(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ref, ok := s.channels[channel]; ok {
		return ref.refs
	}
	return 0
}

// OnReconnect, transport'un taze bağlantı sinyalini fn'e iletir.
func (s *Subscriptions) OnReconnect(fn func()) {
	s.transport.OnReconnect(fn)
}

// Close, tüm kanalları transport'tan düşürür (process kapanışı).
// Açık kalan Cleanup'lar bundan sonra sadece kendi binding'lerini kaldırır.
func (s *Subscriptions) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs *multierror.Error
	for channel := range s.channels {
		if err := s.transport.Unsubscribe(channel); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	s.channels = make(map[string]*channelRef)

	return errs.ErrorOrNil()
}
