package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: bir mesajı yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// pongWait: UI'ın heartbeat göndermesi için beklenen maksimum süre.
	// 3 heartbeat kaçırma = 30s × 3 = 90s.
	pongWait = 90 * time.Second

	// maxMessageSize: UI'dan gelen mesajlar sadece heartbeat/refresh — küçük kalır.
	maxMessageSize = 1024

	// sendBufferSize: her client'ın send kanalının buffer boyutu.
	// Doluysa client yavaş kabul edilip çıkarılır.
	sendBufferSize = 64
)

// Client, tek bir UI WebSocket bağlantısı.
//
// Her bağlantı için iki goroutine çalışır:
//   - ReadPump: UI'dan gelen heartbeat/refresh mesajlarını okur
//   - WritePump: Hub'dan gelen event'leri WebSocket'e yazar
//
// gorilla/websocket aynı anda sadece bir okuyucu ve bir yazıcı destekler.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.Mutex // conn yazmalarını korur
	logger zerolog.Logger
}

func newClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: hub.logger.With().Str("client_id", id).Logger(),
	}
}

// ReadPump, bağlantı kapanana kadar UI mesajlarını okur. Çıkışta client Hub'dan çıkarılır.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.requestUnregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn().Err(err).Msg("failed to set read deadline")
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("unexpected close")
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.logger.Debug().Err(err).Msg("invalid message")
			continue
		}

		c.handleEvent(event)
	}
}

// handleEvent, UI'dan gelen event'leri türüne göre işler.
func (c *Client) handleEvent(event Event) {
	switch event.Op {
	case OpHeartbeat:
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Warn().Err(err).Msg("failed to set read deadline")
			return
		}
		c.hub.sendTo(c, Event{Op: OpHeartbeatAck})

	case OpRefresh:
		// go ile: callback rate limiter veya coordinator'da bekleyebilir,
		// ReadPump heartbeat'leri kaçırmamalı.
		if c.hub.onRefreshRequest != nil {
			go c.hub.onRefreshRequest(c.id)
		}

	default:
		c.logger.Debug().Str("op", event.Op).Msg("unknown op")
	}
}

// WritePump, send kanalındaki mesajları WebSocket'e yazar.
// Kanal kapandığında (Hub client'ı çıkardı) close frame gönderip çıkar.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.writeMessage(websocket.CloseMessage, nil)
}

func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
