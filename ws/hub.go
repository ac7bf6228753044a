package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/akinalp/badgesync/models"
)

// CountsSource, ready event'i için güncel sayaçları veren kaynak (services.CounterStore).
//
// Snapshot hub lock'u tutulurken çağrılır; SyncCoordinator gibi kendi
// mutex'i altında store'a yazan bir şey buraya verilmemeli.
type CountsSource interface {
	Snapshot() models.BadgeCounts
}

// Hub, tüm UI WebSocket bağlantılarını yönetir.
//
// Kayıt senkron (Register), çıkış Run() goroutine'i üzerinden yapılır:
// broadcast RLock tutarken yavaş bir client'ı çıkarmak için unregister
// kanalına yazar — doğrudan Lock alsaydı kendi kendini kilitlerdi.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once

	seq    atomic.Int64
	counts CountsSource
	logger zerolog.Logger

	// onRefreshRequest: client "refresh" op'u gönderdiğinde çağrılır.
	// main.go'da rate limit'li RefreshCounts'a bağlanır.
	onRefreshRequest func(clientID string)
}

// NewHub, yeni bir Hub oluşturur. Run() ayrıca başlatılmalı.
func NewHub(counts CountsSource, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		counts:     counts,
		logger:     logger.With().Str("component", "ws").Logger(),
	}
}

// Run, unregister isteklerini işleyen döngü. main.go'da `go hub.Run()` ile başlar,
// Shutdown ile biter.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// OnRefreshRequest, refresh callback'ini ayarlar.
func (h *Hub) OnRefreshRequest(fn func(clientID string)) {
	h.onRefreshRequest = fn
}

// Register, client'ı ekler ve ready event'ini ilk mesaj olarak kuyruğa koyar.
// Hub kapatılmışsa false döner.
//
// Snapshot, Lock tutulurken alınır: eşzamanlı bir badge_update ya snapshot'tan
// önce uygulanmıştır (ready onu içerir) ya da ready'den sonra kuyruğa girer.
func (h *Hub) Register(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		return false
	default:
	}

	ready := Event{
		Op:   OpReady,
		Data: ReadyData{ClientID: client.id, Counts: h.counts.Snapshot()},
		Seq:  h.seq.Add(1),
	}
	if data, err := json.Marshal(ready); err == nil {
		client.send <- data // yeni client, buffer boş
	}

	h.clients[client] = true
	h.logger.Debug().Str("client_id", client.id).Int("clients", len(h.clients)).Msg("client connected")
	return true
}

// removeClient, client'ı çıkarır ve send kanalını kapatır. İki kez çağrılması güvenli.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.logger.Debug().Str("client_id", client.id).Int("clients", len(h.clients)).Msg("client disconnected")
}

// requestUnregister, client'ın çıkarılmasını Run() goroutine'ine bırakır.
func (h *Hub) requestUnregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToAll, tüm bağlı client'lara event gönderir. Buffer'ı dolu
// (yavaş) client'lar çıkarılır.
func (h *Hub) BroadcastToAll(event Event) {
	event.Seq = h.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("op", event.Op).Msg("failed to marshal broadcast event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			h.logger.Warn().Str("client_id", client.id).Msg("send buffer full, dropping client")
			go h.requestUnregister(client)
		}
	}
}

// sendTo, tek bir client'a event gönderir. Client çıkarılmışsa no-op —
// kapalı send kanalına yazılmaz.
func (h *Hub) sendTo(client *Client, event Event) {
	event.Seq = h.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("op", event.Op).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[client] {
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.Warn().Str("client_id", client.id).Msg("send buffer full, dropping client")
		go h.requestUnregister(client)
	}
}

// CounterChanged, services.CounterObserver imzasına uyar; store.Observe ile bağlanır.
func (h *Hub) CounterChanged(name models.CounterName, value int) {
	h.BroadcastToAll(Event{
		Op:   OpBadgeUpdate,
		Data: BadgeUpdateData{Counter: name, Value: value},
	})
}

// ClientCount, bağlı client sayısı.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown, tüm client bağlantılarını kapatır ve Run()'ı sonlandırır.
func (h *Hub) Shutdown() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()

		for client := range h.clients {
			close(client.send)
		}
		h.clients = make(map[*Client]bool)
		h.logger.Info().Msg("hub shut down, all connections closed")
	})
}
