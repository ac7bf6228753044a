// Package main — HTTP route registration.
//
// Route sıralama kuralı: literal path'ler parametrik path'lerden ÖNCE tanımlanmalı.
// Örnek: "/api/notifications/read-all" → "/api/notifications/{id}/read" öncesinde.
package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// initRoutes, tüm endpoint'leri mux'a bağlar. Daemon 127.0.0.1'e bağlanır;
// auth middleware yoktur.
func initRoutes(mux *http.ServeMux, h *Handlers, gatherer prometheus.Gatherer) {
	// ─── Health & metrics ───
	mux.HandleFunc("GET /api/health", h.Health.Check)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// ─── Session ───
	mux.HandleFunc("POST /api/session", h.Session.Login)
	mux.HandleFunc("GET /api/session", h.Session.Current)
	mux.HandleFunc("DELETE /api/session", h.Session.Logout)

	// ─── Badges ───
	mux.HandleFunc("GET /api/badges", h.Badge.Get)
	mux.HandleFunc("POST /api/badges/refresh", h.Badge.Refresh)
	mux.HandleFunc("POST /api/badges/notifications/reset", h.Badge.ResetNotifications)
	mux.HandleFunc("POST /api/badges/chat/reset", h.Badge.ResetChat)

	// ─── Notifications (backend'e yazan) ───
	mux.HandleFunc("POST /api/notifications/read-all", h.Badge.MarkAllRead)
	mux.HandleFunc("POST /api/notifications/{id}/read", h.Badge.MarkRead)

	// ─── UI WebSocket ───
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)
}
