// Package main, badgesync daemon'unun giriş noktasıdır.
//
// Bu dosyanın görevi — Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. Logger'ı kur
//  3. Prometheus registry + metrics collector
//  4. Push transport (Pusher WebSocket) + subscription yöneticisi
//  5. Repository'leri oluştur (REST client, token session'dan)
//  6. Service'leri oluştur (store, scheduler, coordinator, session)
//  7. UI WebSocket Hub'ı başlat, callback'leri bağla
//  8. Handler'ları oluştur
//  9. HTTP router'ı kur, route'ları bağla
//  10. CORS yapılandır
//  11. HTTP Server'ı başlat
//  12. Opsiyonel bootstrap session
//  13. Graceful shutdown
//
// Global değişken YOK — her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/akinalp/badgesync/config"
	"github.com/akinalp/badgesync/metrics"
	"github.com/akinalp/badgesync/pkg"
	"github.com/akinalp/badgesync/pkg/logger"
	"github.com/akinalp/badgesync/push"
	"github.com/akinalp/badgesync/services"
	"github.com/akinalp/badgesync/ws"
)

// tokenSourceFunc, fonksiyonu oauth2.TokenSource'a çevirir.
// Repository session service'ten önce oluşturulduğu için token'a closure ile erişir.
type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) { return f() }

func main() {
	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", os.Stderr)
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	// ─── 2. Logger ───
	var log zerolog.Logger
	if cfg.Log.Console {
		log = logger.NewConsole(cfg.Log.Level)
	} else {
		log = logger.New(cfg.Log.Level, os.Stderr)
	}
	mainLog := log.With().Str("component", "main").Logger()
	mainLog.Info().Int("port", cfg.Server.Port).Msg("badgesync starting")

	// ─── 3. Metrics ───
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// ─── 4. Push transport ───
	transport, err := push.NewWSTransport(push.WSConfig{
		URL:          cfg.Push.URL,
		AppKey:       cfg.Push.AppKey,
		BackoffBase:  cfg.Push.BackoffBase,
		BackoffMax:   cfg.Push.BackoffMax,
		PingInterval: cfg.Push.PingInterval,
	}, log)
	if err != nil {
		mainLog.Fatal().Err(err).Msg("failed to create push transport")
	}
	subs := push.NewSubscriptions(transport, log)

	// ─── 5. Repositories ───
	var sessions services.SessionService
	tokens := tokenSourceFunc(func() (*oauth2.Token, error) {
		if sessions == nil {
			return nil, pkg.ErrNoSession
		}
		return sessions.Token()
	})
	repos, err := initRepositories(cfg, tokens)
	if err != nil {
		mainLog.Fatal().Err(err).Msg("failed to create repositories")
	}

	// ─── 6. Services ───
	svcs := initServices(cfg, repos, subs, collector, log)
	sessions = svcs.Session

	// ─── 7. UI WebSocket Hub ───
	hub := ws.NewHub(svcs.Store, log)
	go hub.Run()
	limiters := registerCallbacks(cfg, hub, svcs, collector)

	// ─── 8. Handlers ───
	h := initHandlers(cfg, svcs, hub, transport)

	// ─── 9. HTTP Router ───
	mux := http.NewServeMux()
	initRoutes(mux, h, registry)

	// ─── 10. CORS ───
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		Debug:          false,
	})

	// ─── 11. HTTP Server ───
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      corsHandler.Handler(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		mainLog.Info().Str("addr", cfg.Server.Addr()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLog.Fatal().Err(err).Msg("server error")
		}
	}()

	// ─── 12. Bootstrap session ───
	if cfg.Session.BootstrapToken != "" {
		_, err := sessions.Login(context.Background(), services.LoginRequest{
			Token:  cfg.Session.BootstrapToken,
			UserID: cfg.Session.BootstrapUserID,
		})
		if err != nil {
			mainLog.Warn().Err(err).Msg("bootstrap session rejected, waiting for UI login")
		}
	}

	// ─── 13. Graceful Shutdown ───
	<-done
	mainLog.Info().Msg("shutting down...")

	// Önce sync'i durdur — yeni fetch/push mutasyonu olmasın.
	// Sonra UI bağlantılarını ve push transport'u kapat, en son HTTP server.
	sessions.Logout()
	limiters.Stop()
	svcs.Close()
	hub.Shutdown()

	if err := subs.Close(); err != nil {
		mainLog.Warn().Err(err).Msg("push unsubscribe on shutdown failed")
	}
	if err := transport.Close(); err != nil {
		mainLog.Warn().Err(err).Msg("push transport close failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		mainLog.Fatal().Err(err).Msg("forced shutdown")
	}

	mainLog.Info().Msg("server stopped gracefully")
}
