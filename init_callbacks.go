// Package main — callback wire-up.
//
// registerCallbacks, katmanlar arası olay bağlantılarını kurar:
//   - CounterStore observer'ları: metrics gauge + UI Hub broadcast
//   - SyncCoordinator 401 callback'i → SessionService.Invalidate
//   - Hub refresh callback'i → rate limit'li RefreshCounts
//
// Bu bağlantılar neden burada (main package'da)?
// services, ws'i ve metrics'i bilmez; ws services'i bilmez.
// main package wire-up noktasıdır — tüm katmanları birbirine bağlar.
package main

import (
	"time"

	"github.com/akinalp/badgesync/config"
	"github.com/akinalp/badgesync/metrics"
	"github.com/akinalp/badgesync/pkg/ratelimit"
	"github.com/akinalp/badgesync/ws"
)

// registerCallbacks, callback'leri bağlar ve ws refresh limiter'ını döner.
func registerCallbacks(cfg *config.Config, hub *ws.Hub, svcs *Services, collector *metrics.Collector) *ratelimit.KeyedLimiter {
	// Observer sırası: önce metrics, sonra UI.
	svcs.Store.Observe(collector.CounterChanged)
	svcs.Store.Observe(hub.CounterChanged)

	// Backend aktif token'ı reddetti → session düşer. Coordinator bunu ayrı
	// goroutine'de çağırır; Invalidate → coordinator.Stop güvenli.
	svcs.Sync.OnUnauthorized(svcs.Session.Invalidate)

	// Her UI client'ı kendi bucket'ını alır — tek bir sekme diğerlerini kısamaz.
	wsRefresh := ratelimit.NewKeyedLimiter(cfg.Sync.RefreshPerSec, cfg.Sync.RefreshBurst, 10*time.Minute)
	hub.OnRefreshRequest(func(clientID string) {
		if !svcs.Sync.Active() || !wsRefresh.Allow(clientID) {
			return
		}
		svcs.Sync.RefreshCounts()
	})

	return wsRefresh
}
