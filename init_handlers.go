// Package main — Handler katmanı başlatma.
//
// Handler'lar "thin" dir — sadece HTTP parse + service call + response write.
package main

import (
	"golang.org/x/time/rate"

	"github.com/akinalp/badgesync/config"
	"github.com/akinalp/badgesync/handlers"
	"github.com/akinalp/badgesync/push"
	"github.com/akinalp/badgesync/ws"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Badge   *handlers.BadgeHandler
	Session *handlers.SessionHandler
	Health  *handlers.HealthHandler
	WS      *ws.Handler
}

// initHandlers, handler'ları service dependency'leri ile oluşturur.
// HTTP refresh tek bir global bucket kullanır; ws refresh'leri client bazlıdır (init_callbacks.go).
func initHandlers(cfg *config.Config, svcs *Services, hub *ws.Hub, transport *push.WSTransport) *Handlers {
	refresh := rate.NewLimiter(rate.Limit(cfg.Sync.RefreshPerSec), cfg.Sync.RefreshBurst)

	return &Handlers{
		Badge:   handlers.NewBadgeHandler(svcs.Sync, refresh),
		Session: handlers.NewSessionHandler(svcs.Session),
		Health:  handlers.NewHealthHandler(svcs.Sync, transport),
		WS:      ws.NewHandler(hub, cfg.Server.AllowedOrigins),
	}
}
