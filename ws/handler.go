package ws

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler, GET /ws isteklerini WebSocket'e yükseltir.
//
// Daemon 127.0.0.1'e bağlanır ve tek kullanıcılıdır; token doğrulaması yoktur.
// Tarayıcı tabanlı bir UI'ın başka bir siteden bağlanmasını engellemek için
// Origin kontrol edilir.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler, allowedOrigins ile Origin kontrolü yapan bir handler döner.
// "*" tüm origin'lere izin verir. Origin header'ı olmayan (native) client'lar
// her zaman kabul edilir.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}
		// Aynı host'tan gelen istek (UI daemon tarafından servis ediliyorsa).
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// HandleConnection, bağlantıyı yükseltir, client'ı Hub'a kaydeder ve pump'ları başlatır.
// ReadPump bu goroutine'de bağlantı kapanana kadar bloklar.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Debug().Err(err).Msg("upgrade failed")
		return
	}

	client := newClient(uuid.NewString(), h.hub, conn)
	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump()
}
