package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/akinalp/badgesync/models"
	"github.com/akinalp/badgesync/pkg"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: bir frame'i yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// maxMessageSize: sunucudan kabul edilen en büyük frame (byte).
	maxMessageSize = 64 * 1024

	// sendBufferSize: bağlantı başına giden frame kuyruğu.
	sendBufferSize = 64

	// protocolVersion: Pusher protokol sürümü (URL query'sinde gönderilir).
	protocolVersion = "7"
)

// Pusher protokol event isimleri
const (
	evConnectionEstablished = "pusher:connection_established"
	evError                 = "pusher:error"
	evPing                  = "pusher:ping"
	evPong                  = "pusher:pong"
	evSubscribe             = "pusher:subscribe"
	evUnsubscribe           = "pusher:unsubscribe"
	evSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
)

// frame, Pusher protokolünün tel formatı.
// Sunucu data'yı çoğunlukla JSON-encoded string olarak yollar; bazı
// uyumlu sunucular (soketi, laravel-websockets) düz obje de yollayabilir.
type frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type connectionEstablished struct {
	SocketID        string `json:"socket_id"`
	ActivityTimeout int    `json:"activity_timeout"`
}

// WSConfig, WSTransport ayarları.
type WSConfig struct {
	URL          string
	AppKey       string
	BackoffBase  time.Duration
	BackoffMax   time.Duration
	PingInterval time.Duration
	Dialer       *websocket.Dialer
}

// WSTransport, Pusher protokolü konuşan tek bir WebSocket bağlantısı üzerinde
// Transport implementasyonu.
//
// Bağlantı ilk Subscribe'da tembel olarak kurulur ve Close'a kadar
// exponential backoff ile yeniden kurulur. Her taze bağlantıda bilinen tüm
// kanallar yeniden subscribe edilir; ilk bağlantıdan sonrakiler OnReconnect
// hook'larını tetikler.
//
// Goroutine'ler (bağlantı başına):
//   - readPump: run() goroutine'inde çalışır, frame'leri okuyup dağıtır
//   - writePump: send kuyruğunu ve ping'leri yazar
type WSTransport struct {
	cfg    WSConfig
	logger zerolog.Logger

	mu        sync.Mutex
	channels  map[string]*wsChannel
	conn      *websocket.Conn
	send      chan []byte // aktif bağlantının kuyruğu; bağlı değilken nil
	socketID  string
	connected bool
	everUp    bool
	started   bool
	closed    bool
	hooks     []func()

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWSTransport, bağlanmadan bir transport oluşturur.
func NewWSTransport(cfg WSConfig, logger zerolog.Logger) (*WSTransport, error) {
	endpoint, err := buildURL(cfg.URL, cfg.AppKey)
	if err != nil {
		return nil, err
	}
	cfg.URL = endpoint

	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 60 * time.Second
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WSTransport{
		cfg:      cfg,
		logger:   logger.With().Str("component", "push_transport").Logger(),
		channels: make(map[string]*wsChannel),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// buildURL, app key'i Pusher path'ine yerleştirir ve protokol query'sini ekler.
func buildURL(raw, appKey string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid push url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid push url scheme %q", u.Scheme)
	}

	if appKey != "" && !strings.Contains(u.Path, "/app/") {
		u.Path = strings.TrimRight(u.Path, "/") + "/app/" + url.PathEscape(appKey)
	}

	q := u.Query()
	if q.Get("protocol") == "" {
		q.Set("protocol", protocolVersion)
	}
	if q.Get("client") == "" {
		q.Set("client", "badgesync-go")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe, kanalı kaydeder ve bağlıysa subscribe frame'ini gönderir.
// Bağlantı henüz yoksa kurulmaya başlanır; frame bağlantı gelince yollanır.
func (t *WSTransport) Subscribe(channel string) (Channel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, pkg.ErrTransportClosed
	}

	ch, ok := t.channels[channel]
	if !ok {
		ch = newWSChannel(channel, t.logger)
		t.channels[channel] = ch
		if t.connected {
			t.enqueueLocked(frameBytes(evSubscribe, "", map[string]string{"channel": channel}))
		}
	}

	if !t.started {
		t.started = true
		go t.run()
	}
	return ch, nil
}

// Unsubscribe, kanalı unutur ve bağlıysa unsubscribe frame'ini gönderir.
func (t *WSTransport) Unsubscribe(channel string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.channels[channel]; !ok {
		return nil
	}
	delete(t.channels, channel)

	if t.connected {
		t.enqueueLocked(frameBytes(evUnsubscribe, "", map[string]string{"channel": channel}))
	}
	return nil
}

// OnReconnect, ilk bağlantıdan sonraki her taze bağlantıda çağrılır.
func (t *WSTransport) OnReconnect(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, fn)
}

// Connected, bağlantının kurulu ve connection_established alınmış olduğunu döner.
func (t *WSTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// SocketID, sunucunun verdiği socket ID'si (bağlı değilken boş).
func (t *WSTransport) SocketID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.socketID
}

// Close, bağlantıyı kapatır ve reconnect döngüsünü durdurur.
// Döndüğünde okuma goroutine'i bitmiştir; hiçbir handler artık çağrılmaz.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	started := t.started
	conn := t.conn
	t.mu.Unlock()

	t.cancel()
	if conn != nil {
		_ = conn.Close()
	}
	if started {
		<-t.done
	}
	t.logger.Info().Msg("push transport closed")
	return nil
}

// run, Close'a kadar bağlan → servis et → kopunca tekrar bağlan döngüsü.
func (t *WSTransport) run() {
	defer close(t.done)

	for t.ctx.Err() == nil {
		conn, err := t.dialWithBackoff()
		if err != nil {
			// Sadece ctx iptal edildiğinde döner.
			return
		}

		connectedAt := time.Now()
		t.serve(conn)

		// Hemen kapanan bağlantılar (ör: sunucu app key'i reddetti) sıkı döngüye girmesin.
		if wait := t.cfg.BackoffBase - time.Since(connectedAt); wait > 0 {
			select {
			case <-time.After(wait):
			case <-t.ctx.Done():
				return
			}
		}
	}
}

// dialWithBackoff, bağlantı kurulana veya ctx iptal edilene kadar dener.
func (t *WSTransport) dialWithBackoff() (*websocket.Conn, error) {
	backoff := retry.NewExponential(t.cfg.BackoffBase)
	backoff = retry.WithCappedDuration(t.cfg.BackoffMax, backoff)

	var conn *websocket.Conn
	err := retry.Do(t.ctx, backoff, func(ctx context.Context) error {
		c, resp, err := t.cfg.Dialer.DialContext(ctx, t.cfg.URL, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			t.logger.Warn().Err(err).Msg("push dial failed, retrying")
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// serve, tek bir bağlantının ömrü boyunca okur. Bağlantı kopunca döner.
func (t *WSTransport) serve(conn *websocket.Conn) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = conn.Close()
		return
	}
	t.conn = conn
	t.mu.Unlock()

	send := make(chan []byte, sendBufferSize)
	writerDone := make(chan struct{})

	defer func() {
		t.mu.Lock()
		t.conn = nil
		t.send = nil
		t.connected = false
		t.socketID = ""
		t.mu.Unlock()

		close(send)
		<-writerDone
		_ = conn.Close()
	}()

	go t.writePump(conn, send, writerDone)

	conn.SetReadLimit(maxMessageSize)
	// connection_established'i beklerken ping aralığının iki katı tanınır.
	_ = conn.SetReadDeadline(time.Now().Add(2 * t.cfg.PingInterval))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if t.ctx.Err() == nil {
				t.logger.Warn().Err(err).Msg("push connection lost")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * t.cfg.PingInterval))

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.logger.Warn().Err(err).Msg("invalid push frame")
			continue
		}
		t.handleFrame(f, send)
	}
}

func (t *WSTransport) handleFrame(f frame, send chan []byte) {
	switch f.Event {
	case evConnectionEstablished:
		var info connectionEstablished
		if err := json.Unmarshal(unwrapData(f.Data), &info); err != nil {
			t.logger.Warn().Err(err).Msg("invalid connection_established payload")
		}
		t.onConnected(info, send)

	case evPing:
		select {
		case send <- frameBytes(evPong, "", map[string]string{}):
		default:
		}

	case evPong, evSubscriptionSucceeded:
		// bilgi amaçlı

	case evError:
		t.logger.Warn().RawJSON("data", unwrapData(f.Data)).Msg("push server error")

	default:
		t.dispatch(f)
	}
}

// onConnected, taze bağlantıyı aktif eder, bilinen kanalları yeniden subscribe eder
// ve reconnect ise hook'ları tetikler.
func (t *WSTransport) onConnected(info connectionEstablished, send chan []byte) {
	t.mu.Lock()
	t.send = send
	t.connected = true
	t.socketID = info.SocketID
	for name := range t.channels {
		t.enqueueLocked(frameBytes(evSubscribe, "", map[string]string{"channel": name}))
	}
	reconnect := t.everUp
	t.everUp = true
	hooks := append([]func(){}, t.hooks...)
	channels := len(t.channels)
	t.mu.Unlock()

	t.logger.Info().
		Str("socket_id", info.SocketID).
		Int("channels", channels).
		Bool("reconnect", reconnect).
		Msg("push connection established")

	if !reconnect {
		return
	}
	for _, fn := range hooks {
		go fn()
	}
}

// dispatch, uygulama event'ini kanalın bağlı handler'larına iletir.
func (t *WSTransport) dispatch(f frame) {
	t.mu.Lock()
	ch, ok := t.channels[f.Channel]
	t.mu.Unlock()
	if !ok {
		return
	}

	ch.deliver(models.PushEvent{
		Channel: f.Channel,
		Event:   f.Event,
		Data:    unwrapData(f.Data),
	})
}

// enqueueLocked, aktif bağlantının kuyruğuna frame ekler. t.mu tutulurken çağrılmalı.
// Kuyruk doluysa frame düşer; bir sonraki bağlantıda kanallar zaten yeniden subscribe edilir.
func (t *WSTransport) enqueueLocked(data []byte) {
	if t.send == nil {
		return
	}
	select {
	case t.send <- data:
	default:
		t.logger.Warn().Msg("push send buffer full, dropping frame")
	}
}

// writePump, send kuyruğunu bağlantıya yazar ve periyodik pusher:ping gönderir.
func (t *WSTransport) writePump(conn *websocket.Conn, send <-chan []byte, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.cfg.PingInterval)
	defer ticker.Stop()

	write := func(data []byte) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return false
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			t.logger.Debug().Err(err).Msg("push write failed")
			return false
		}
		return true
	}

	for {
		select {
		case data, ok := <-send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			if !write(data) {
				_ = conn.Close()
				drain(send)
				return
			}
		case <-ticker.C:
			if !write(frameBytes(evPing, "", map[string]string{})) {
				_ = conn.Close()
				drain(send)
				return
			}
		}
	}
}

// drain, writer erken bittiğinde kapanana kadar kuyruğu boşaltır.
func drain(send <-chan []byte) {
	for range send {
	}
}

// frameBytes, Pusher frame'ini serialize eder. data her zaman düz obje olarak gönderilir.
func frameBytes(event, channel string, data any) []byte {
	raw, _ := json.Marshal(data)
	b, _ := json.Marshal(frame{Event: event, Channel: channel, Data: raw})
	return b
}

// unwrapData, string içine gömülmüş JSON'u açar. Düz JSON ise olduğu gibi döner.
func unwrapData(data json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return trimmed
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	return trimmed
}

// ─── Channel ───

type wsBinding struct {
	id      BindingID
	handler EventHandler
}

// wsChannel, WSTransport üzerindeki bir kanalın handler kayıtları.
type wsChannel struct {
	name   string
	logger zerolog.Logger

	mu       sync.RWMutex
	bindings map[string][]wsBinding
}

func newWSChannel(name string, logger zerolog.Logger) *wsChannel {
	return &wsChannel{
		name:     name,
		logger:   logger,
		bindings: make(map[string][]wsBinding),
	}
}

func (c *wsChannel) Name() string { return c.name }

func (c *wsChannel) Bind(event string, handler EventHandler) BindingID {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := BindingID(uuid.NewString())
	c.bindings[event] = append(c.bindings[event], wsBinding{id: id, handler: handler})
	return id
}

func (c *wsChannel) Unbind(event string, id BindingID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.bindings[event]
	for i, b := range list {
		if b.id == id {
			c.bindings[event] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(c.bindings[event]) == 0 {
		delete(c.bindings, event)
	}
}

// deliver, event'i bağlı handler'lara sırayla verir. Panik eden handler
// diğerlerini ve okuma döngüsünü etkilemez.
func (c *wsChannel) deliver(event models.PushEvent) {
	c.mu.RLock()
	list := append([]wsBinding(nil), c.bindings[event.Event]...)
	c.mu.RUnlock()

	for _, b := range list {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error().
						Str("channel", c.name).
						Str("event", event.Event).
						Interface("panic", r).
						Msg("push handler panicked")
				}
			}()
			b.handler(event)
		}()
	}
}

var _ Transport = (*WSTransport)(nil)
