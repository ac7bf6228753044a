// Package pushtest, push.Transport'un bellek içi implementasyonunu sağlar.
// net/http/httptest gibi: testlerde ve push sunucusu olmadan çalıştırmada kullanılır.
package pushtest

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/akinalp/badgesync/models"
	"github.com/akinalp/badgesync/pkg"
	"github.com/akinalp/badgesync/push"
)

type binding struct {
	id      push.BindingID
	handler push.EventHandler
}

type channel struct {
	name string

	mu       sync.Mutex
	bindings map[string][]binding
}

func (c *channel) Name() string { return c.name }

func (c *channel) Bind(event string, handler push.EventHandler) push.BindingID {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := push.BindingID(uuid.NewString())
	c.bindings[event] = append(c.bindings[event], binding{id: id, handler: handler})
	return id
}

func (c *channel) Unbind(event string, id push.BindingID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.bindings[event]
	for i, b := range list {
		if b.id == id {
			c.bindings[event] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (c *channel) handlers(event string) []push.EventHandler {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]push.EventHandler, 0, len(c.bindings[event]))
	for _, b := range c.bindings[event] {
		out = append(out, b.handler)
	}
	return out
}

// Transport, bellek içi push transport'u. Publish teslimatı senkron yapar.
type Transport struct {
	mu           sync.Mutex
	channels     map[string]*channel
	subscribes   map[string]int
	unsubscribes map[string]int
	hooks        []func()
	closed       bool
}

// New, boş bir bellek içi transport döner.
func New() *Transport {
	return &Transport{
		channels:     make(map[string]*channel),
		subscribes:   make(map[string]int),
		unsubscribes: make(map[string]int),
	}
}

func (t *Transport) Subscribe(name string) (push.Channel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, pkg.ErrTransportClosed
	}
	ch, ok := t.channels[name]
	if !ok {
		ch = &channel{name: name, bindings: make(map[string][]binding)}
		t.channels[name] = ch
	}
	t.subscribes[name]++
	return ch, nil
}

func (t *Transport) Unsubscribe(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.channels[name]; !ok {
		return fmt.Errorf("%w: channel %s", pkg.ErrNotFound, name)
	}
	delete(t.channels, name)
	t.unsubscribes[name]++
	return nil
}

func (t *Transport) OnReconnect(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, fn)
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.channels = make(map[string]*channel)
	return nil
}

// Publish, data'yı JSON'a çevirip kanalın event'ine bağlı tüm handler'lara teslim eder.
// Teslim edilen handler sayısını döner; kanal subscribe değilse 0.
func (t *Transport) Publish(name, event string, data any) int {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}

	t.mu.Lock()
	ch, ok := t.channels[name]
	t.mu.Unlock()
	if !ok {
		return 0
	}

	handlers := ch.handlers(event)
	for _, h := range handlers {
		h(models.PushEvent{Channel: name, Event: event, Data: raw})
	}
	return len(handlers)
}

// Reconnect, kayıtlı OnReconnect hook'larını senkron çağırır.
func (t *Transport) Reconnect() {
	t.mu.Lock()
	hooks := append([]func(){}, t.hooks...)
	t.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// Subscribed, kanalın transport seviyesinde subscribe olup olmadığını döner.
func (t *Transport) Subscribed(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.channels[name]
	return ok
}

// SubscribeCount, kanal için transport seviyesindeki subscribe çağrısı sayısı.
func (t *Transport) SubscribeCount(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subscribes[name]
}

// UnsubscribeCount, kanal için transport seviyesindeki unsubscribe çağrısı sayısı.
func (t *Transport) UnsubscribeCount(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unsubscribes[name]
}

// Bindings, kanalın event'ine bağlı handler sayısı.
func (t *Transport) Bindings(name, event string) int {
	t.mu.Lock()
	ch, ok := t.channels[name]
	t.mu.Unlock()
	if !ok {
		return 0
	}
	return len(ch.handlers(event))
}
