// Package ws, UI kabuğuna badge değişikliklerini gerçek zamanlı ileten yerel WebSocket.
//
// Mimari:
//   - Hub: bağlı tüm UI client'larını tutar, CounterStore observer'ı olarak
//     her sayaç değişikliğini broadcast eder
//   - Client: tek bir WebSocket bağlantısı (ReadPump + WritePump)
//   - Event: client-server arası mesaj formatı
//
// Event akışı:
//  1. Push event / poll / reset → SyncCoordinator → CounterStore mutasyonu
//  2. CounterStore observer'ı Hub.CounterChanged'i çağırır
//  3. Hub badge_update event'ini tüm client'ların send buffer'ına koyar
//  4. Her client'ın WritePump'ı event'i WebSocket'e yazar
package ws

import "github.com/akinalp/badgesync/models"

// Event, WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Seq her outbound event'e verilen artan sayıdır; UI eksik event tespit
// ederse GET /api/badges ile tam durumu çeker.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server operasyonları
const (
	OpHeartbeat = "heartbeat" // UI her 30sn'de gönderir
	OpRefresh   = "refresh"   // UI hemen resync istiyor (pull-to-refresh)
)

// Server → Client operasyonları
const (
	OpReady        = "ready"         // bağlantıda ilk gönderilen — tüm sayaçlar
	OpHeartbeatAck = "heartbeat_ack" // heartbeat'e yanıt
	OpBadgeUpdate  = "badge_update"  // bir sayaç değişti
)

// ReadyData, bağlantı kurulduğunda gönderilen ilk event'in payload'ı.
type ReadyData struct {
	ClientID string             `json:"client_id"`
	Counts   models.BadgeCounts `json:"counts"`
}

// BadgeUpdateData, badge_update event'inin payload'ı.
type BadgeUpdateData struct {
	Counter models.CounterName `json:"counter"`
	Value   int                `json:"value"`
}
