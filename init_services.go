// Package main — Service katmanı başlatma.
//
// initServices, sync katmanının tüm parçalarını oluşturur ve birbirine bağlar.
//
// Sıralama kuralları:
// 1. CounterStore + PollScheduler + dedupe cache → SyncCoordinator'dan ÖNCE
// 2. SyncCoordinator → SessionService'ten ÖNCE (session lifecycle'ı coordinator'dır)
package main

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/akinalp/badgesync/config"
	"github.com/akinalp/badgesync/metrics"
	"github.com/akinalp/badgesync/pkg/cache"
	"github.com/akinalp/badgesync/push"
	"github.com/akinalp/badgesync/services"
)

// Services, tüm service instance'larını tutan container struct.
type Services struct {
	Store   *services.CounterStore
	Poller  *services.PollScheduler
	Sync    *services.SyncCoordinator
	Session services.SessionService
	Dedupe  *cache.TTLCache[string, struct{}]
}

// initServices, service'leri oluşturur. Session açılana kadar sync IDLE'dır.
func initServices(
	cfg *config.Config,
	repos *Repositories,
	subs *push.Subscriptions,
	collector *metrics.Collector,
	logger zerolog.Logger,
) *Services {
	store := services.NewCounterStore(logger)
	poller := services.NewPollScheduler(logger)

	// Süresi dolan ID'ler Seen'de zaten görünmez; cleanup sadece map'i küçük tutar.
	cleanupEvery := cfg.Sync.DedupeTTL / 2
	if cleanupEvery <= 0 {
		cleanupEvery = time.Minute
	}
	dedupe := cache.New[string, struct{}](cfg.Sync.DedupeTTL, cleanupEvery)

	coordinator := services.NewSyncCoordinator(
		store, subs, poller, repos.ReadState, dedupe, collector, cfg.Sync.PollInterval, logger,
	)
	session := services.NewSessionService(coordinator, logger)

	return &Services{
		Store:   store,
		Poller:  poller,
		Sync:    coordinator,
		Session: session,
		Dedupe:  dedupe,
	}
}

// Close, arka plan goroutine'i olan service'leri durdurur.
func (s *Services) Close() {
	s.Sync.Stop()
	s.Poller.Stop()
	s.Dedupe.Close()
}
