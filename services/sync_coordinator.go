package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/akinalp/badgesync/metrics"
	"github.com/akinalp/badgesync/models"
	"github.com/akinalp/badgesync/pkg"
	"github.com/akinalp/badgesync/pkg/cache"
	"github.com/akinalp/badgesync/push"
	"github.com/akinalp/badgesync/repository"
)

// DefaultPollInterval, authoritative resync aralığı.
const DefaultPollInterval = 30 * time.Second

// Subscriber, coordinator'ın push katmanından ihtiyaç duyduğu alt küme.
// push.Subscriptions bunu implement eder.
type Subscriber interface {
	Subscribe(channel, event string, handler push.EventHandler) push.Cleanup
	OnReconnect(fn func())
}

// counterSource, bir sayacın push kanalı ve authoritative fetch fonksiyonu.
type counterSource struct {
	name    models.CounterName
	channel string // fmt pattern, %s = userID
	event   string
	fetch   func(ctx context.Context) (int, error)
}

// SyncCoordinator, session başına badge senkronizasyon state machine'i.
//
//	IDLE ──Start(userID)──▶ ACTIVE ──Stop()──▶ IDLE
//
// ACTIVE iken üç kaynak aynı CounterStore'a yazar: poll tick'leri, push
// callback'leri ve kullanıcı reset'leri. Hepsi mu altında, gözlendikleri
// sırayla uygulanır. Ağ I/O'su asla mu tutulurken yapılmaz.
//
// Sequence fence: her fetch gönderildiği anda bir sequence numarası alır;
// sonucu, sayacın son uygulanan set/reset sequence'ından büyük değilse atılır.
// Böylece reset'ten önce gönderilip sonra dönen bir poll sayacı diriltemez.
//
// Session guard: her session bir generation numarası alır. Geç gelen push
// callback'i veya fetch sonucu kendi generation'ı hâlâ aktif değilse hiçbir
// şeyi mutate etmez.
type SyncCoordinator struct {
	store    *CounterStore
	subs     Subscriber
	poller   *PollScheduler
	repo     repository.ReadStateRepository
	dedupe   *cache.TTLCache[string, struct{}]
	metrics  *metrics.Collector
	interval time.Duration
	logger   zerolog.Logger
	sources  []counterSource

	// lifecycleMu: Start/Stop'u sıraya koyar. mu'dan önce alınır.
	lifecycleMu sync.Mutex

	mu             sync.Mutex
	gen            uint64
	userID         string // "" = IDLE
	seq            uint64
	fences         map[models.CounterName]uint64
	cleanups       []push.Cleanup
	onUnauthorized func(userID string)
}

// NewSyncCoordinator, IDLE durumda bir coordinator oluşturur ve transport'un
// reconnect sinyaline bağlanır.
func NewSyncCoordinator(
	store *CounterStore,
	subs Subscriber,
	poller *PollScheduler,
	repo repository.ReadStateRepository,
	dedupe *cache.TTLCache[string, struct{}],
	collector *metrics.Collector,
	interval time.Duration,
	logger zerolog.Logger,
) *SyncCoordinator {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	c := &SyncCoordinator{
		store:    store,
		subs:     subs,
		poller:   poller,
		repo:     repo,
		dedupe:   dedupe,
		metrics:  collector,
		interval: interval,
		logger:   logger.With().Str("component", "sync").Logger(),
		fences:   make(map[models.CounterName]uint64),
	}
	c.sources = []counterSource{
		{
			name:    models.CounterNotifications,
			channel: models.ChannelUserNotifications,
			event:   models.EventNewNotification,
			fetch:   repo.NotificationUnreadCount,
		},
		{
			name:    models.CounterChat,
			channel: models.ChannelSupportChat,
			event:   models.EventNewMessage,
			fetch:   repo.ChatUnreadCount,
		},
	}

	subs.OnReconnect(c.handleReconnect)
	return c
}

// OnUnauthorized, backend aktif session'ın token'ını reddettiğinde çağrılacak
// callback'i ayarlar. Callback ayrı bir goroutine'de çalışır — Stop'u
// çağırması güvenlidir.
func (c *SyncCoordinator) OnUnauthorized(fn func(userID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// Start, userID için session'ı açar. Önceki session varsa önce tamamen kapatılır.
func (c *SyncCoordinator) Start(userID string) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.stopLocked()

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.userID = userID
	c.fences = make(map[models.CounterName]uint64)
	c.mu.Unlock()

	cleanups := make([]push.Cleanup, 0, len(c.sources))
	for _, src := range c.sources {
		channel := fmt.Sprintf(src.channel, userID)
		cleanups = append(cleanups, c.subs.Subscribe(channel, src.event, c.pushHandler(gen, userID, src.name)))
	}

	c.mu.Lock()
	c.cleanups = cleanups
	c.mu.Unlock()

	c.poller.Start(c.interval, c.Resync)
	c.poller.Trigger()

	c.logger.Info().Str("user_id", userID).Dur("poll_interval", c.interval).Msg("sync started")
}

// Stop, session'ı kapatır: scheduler durur, tüm subscription'lar bırakılır,
// sayaçlar atılır. Döndükten sonra bu session için hiçbir mutasyon olmaz.
// IDLE iken çağırmak güvenlidir.
func (c *SyncCoordinator) Stop() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.stopLocked()
}

// stopLocked, lifecycleMu tutulurken çağrılmalı.
func (c *SyncCoordinator) stopLocked() {
	c.mu.Lock()
	if c.userID == "" {
		c.mu.Unlock()
		return
	}
	userID := c.userID
	c.gen++
	c.userID = ""
	c.fences = make(map[models.CounterName]uint64)
	cleanups := c.cleanups
	c.cleanups = nil
	c.store.Clear()
	c.dedupe.Clear()
	c.mu.Unlock()

	c.poller.Stop()
	for _, cleanup := range cleanups {
		cleanup()
	}

	c.logger.Info().Str("user_id", userID).Msg("sync stopped")
}

// Active, bir session'ın senkronize edilip edilmediğini döner.
func (c *SyncCoordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID != ""
}

// UserID, aktif session'ın kullanıcısı; IDLE iken "".
func (c *SyncCoordinator) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *SyncCoordinator) NotificationCount() int {
	return c.store.Get(models.CounterNotifications)
}

func (c *SyncCoordinator) ChatCount() int {
	return c.store.Get(models.CounterChat)
}

func (c *SyncCoordinator) Snapshot() models.BadgeCounts {
	return c.store.Snapshot()
}

// RefreshCounts, bir sonraki tick'i beklemeden resync ister. IDLE iken no-op.
func (c *SyncCoordinator) RefreshCounts() {
	c.poller.Trigger()
}

func (c *SyncCoordinator) ResetNotificationCount() {
	c.reset(models.CounterNotifications)
}

func (c *SyncCoordinator) ResetChatCount() {
	c.reset(models.CounterChat)
}

// reset, sayacı sıfırlar ve fence'i ilerletir: reset'ten önce gönderilmiş
// fetch'lerin sonuçları artık uygulanmaz.
func (c *SyncCoordinator) reset(name models.CounterName) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.userID != "" {
		c.seq++
		c.fences[name] = c.seq
	}
	c.store.Reset(name)
	c.metrics.Reset(name)
}

// Resync, tüm sayaçları backend'den eşzamanlı olarak çeker ve fence'i geçenleri
// Set eder. Başarısız endpoint'in sayacı olduğu gibi kalır. Poll tick'i budur.
func (c *SyncCoordinator) Resync(ctx context.Context) error {
	c.mu.Lock()
	if c.userID == "" {
		c.mu.Unlock()
		return nil
	}
	gen, userID := c.gen, c.userID
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	var (
		wg   sync.WaitGroup
		errM sync.Mutex
		errs *multierror.Error
	)
	for _, src := range c.sources {
		wg.Add(1)
		go func(src counterSource) {
			defer wg.Done()

			value, err := src.fetch(ctx)
			if err != nil {
				c.fetchFailed(gen, userID, src.name, err)
				errM.Lock()
				errs = multierror.Append(errs, fmt.Errorf("fetch %s: %w", src.name, err))
				errM.Unlock()
				return
			}
			c.applyFetched(gen, seq, src.name, value)
		}(src)
	}
	wg.Wait()

	return errs.ErrorOrNil()
}

// MarkAllNotificationsRead, backend'de tüm bildirimleri okundu işaretler ve
// onaylanınca bildirim sayacını sıfırlar.
func (c *SyncCoordinator) MarkAllNotificationsRead(ctx context.Context) error {
	gen, userID, _, err := c.begin()
	if err != nil {
		return err
	}

	if err := c.repo.MarkAllNotificationsRead(ctx); err != nil {
		c.checkUnauthorized(gen, userID, err)
		return fmt.Errorf("mark all notifications read: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return pkg.ErrNoSession
	}
	c.seq++
	c.fences[models.CounterNotifications] = c.seq
	c.store.Reset(models.CounterNotifications)
	c.metrics.Reset(models.CounterNotifications)
	return nil
}

// MarkNotificationRead, tek bir bildirimi okundu işaretler ve backend'in döndüğü
// güncel sayıyı fence kuralıyla uygular. Uygulanmış (güncel) sayıyı döner.
func (c *SyncCoordinator) MarkNotificationRead(ctx context.Context, notificationID string) (int, error) {
	gen, userID, seq, err := c.begin()
	if err != nil {
		return 0, err
	}

	count, err := c.repo.MarkNotificationRead(ctx, notificationID)
	if err != nil {
		c.checkUnauthorized(gen, userID, err)
		return 0, fmt.Errorf("mark notification read: %w", err)
	}

	if !c.applyFetched(gen, seq, models.CounterNotifications, count) {
		return 0, pkg.ErrNoSession
	}
	return c.store.Get(models.CounterNotifications), nil
}

// begin, aktif session'ın generation'ını ve yeni bir fetch sequence'ı döner.
func (c *SyncCoordinator) begin() (gen uint64, userID string, seq uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.userID == "" {
		return 0, "", 0, pkg.ErrNoSession
	}
	c.seq++
	return c.gen, c.userID, c.seq, nil
}

// applyFetched, seq'de gönderilmiş bir fetch'in sonucunu uygular.
// Session bu arada bittiyse false döner; stale sonuç atılır ama true döner.
func (c *SyncCoordinator) applyFetched(gen, seq uint64, name models.CounterName, value int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen || c.userID == "" {
		c.metrics.Resync(name, metrics.ResyncInactive)
		return false
	}
	if seq <= c.fences[name] {
		c.logger.Debug().
			Str("counter", string(name)).
			Uint64("seq", seq).
			Uint64("fence", c.fences[name]).
			Msg("discarding stale fetch result")
		c.metrics.Resync(name, metrics.ResyncStale)
		return true
	}

	c.fences[name] = seq
	c.store.Set(name, value)
	c.metrics.Resync(name, metrics.ResyncApplied)
	return true
}

func (c *SyncCoordinator) fetchFailed(gen uint64, userID string, name models.CounterName, err error) {
	c.metrics.Resync(name, metrics.ResyncFailed)
	if errors.Is(err, context.Canceled) || errors.Is(err, pkg.ErrNoSession) {
		return
	}
	c.logger.Warn().Err(err).Str("counter", string(name)).Msg("counter fetch failed, keeping previous value")
	c.checkUnauthorized(gen, userID, err)
}

// checkUnauthorized, err 401 ise ve session hâlâ aynıysa onUnauthorized'ı tetikler.
func (c *SyncCoordinator) checkUnauthorized(gen uint64, userID string, err error) {
	if !errors.Is(err, pkg.ErrUnauthorized) {
		return
	}

	c.mu.Lock()
	fn := c.onUnauthorized
	current := c.gen == gen
	c.mu.Unlock()

	if !current || fn == nil {
		return
	}
	c.logger.Warn().Str("user_id", userID).Msg("backend rejected session token")
	go fn(userID)
}

// pushHandler, bir sayacın live-update event'i için handler üretir.
func (c *SyncCoordinator) pushHandler(gen uint64, userID string, name models.CounterName) push.EventHandler {
	return func(e models.PushEvent) {
		var payload models.PushPayload
		if len(e.Data) > 0 {
			if err := json.Unmarshal(e.Data, &payload); err != nil {
				c.logger.Warn().Err(err).Str("channel", e.Channel).Msg("malformed push payload")
				c.metrics.PushEvent(name, metrics.PushMalformed)
				return
			}
		}

		if payload.SenderID != "" && string(payload.SenderID) == userID {
			c.metrics.PushEvent(name, metrics.PushSelf)
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.gen != gen || c.userID == "" {
			c.metrics.PushEvent(name, metrics.PushInactive)
			return
		}
		if payload.ID != "" && c.dedupe.Seen(e.Channel+"|"+e.Event+"|"+string(payload.ID)) {
			c.logger.Debug().Str("channel", e.Channel).Str("id", string(payload.ID)).Msg("duplicate push event")
			c.metrics.PushEvent(name, metrics.PushDuplicate)
			return
		}

		c.store.Increment(name, 1)
		c.metrics.PushEvent(name, metrics.PushApplied)
	}
}

// handleReconnect, transport taze bir bağlantı kurduğunda çağrılır. Kopukken
// kaçırılan event'ler için hemen resync ister.
func (c *SyncCoordinator) handleReconnect() {
	c.metrics.Reconnect()
	if c.Active() {
		c.logger.Info().Msg("push transport reconnected, resyncing")
		c.poller.Trigger()
	}
}
