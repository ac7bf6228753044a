package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/badgesync/models"
)

type staticCounts struct {
	mu     sync.Mutex
	counts models.BadgeCounts
}

func (s *staticCounts) Snapshot() models.BadgeCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

type inbound struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d"`
	Seq  int64           `json:"seq"`
}

func startHub(t *testing.T, counts CountsSource, origins []string) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(counts, zerolog.Nop())
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(NewHandler(hub, origins).HandleConnection))
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) inbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev inbound
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestReadyCarriesSnapshot(t *testing.T) {
	_, srv := startHub(t, &staticCounts{counts: models.BadgeCounts{Notifications: 3, Chat: 1}}, nil)
	conn := dial(t, srv, nil)

	ev := read(t, conn)
	require.Equal(t, OpReady, ev.Op)

	var ready ReadyData
	require.NoError(t, json.Unmarshal(ev.Data, &ready))
	assert.Equal(t, models.BadgeCounts{Notifications: 3, Chat: 1}, ready.Counts)
	assert.NotEmpty(t, ready.ClientID)
}

func TestCounterChangedBroadcastsToAllClients(t *testing.T) {
	hub, srv := startHub(t, &staticCounts{}, nil)
	a := dial(t, srv, nil)
	b := dial(t, srv, nil)
	read(t, a)
	read(t, b)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	hub.CounterChanged(models.CounterChat, 5)

	for _, conn := range []*websocket.Conn{a, b} {
		ev := read(t, conn)
		require.Equal(t, OpBadgeUpdate, ev.Op)
		var upd BadgeUpdateData
		require.NoError(t, json.Unmarshal(ev.Data, &upd))
		assert.Equal(t, BadgeUpdateData{Counter: models.CounterChat, Value: 5}, upd)
	}
}

func TestHeartbeatAck(t *testing.T) {
	_, srv := startHub(t, &staticCounts{}, nil)
	conn := dial(t, srv, nil)
	ready := read(t, conn)

	require.NoError(t, conn.WriteJSON(Event{Op: OpHeartbeat}))
	ev := read(t, conn)
	assert.Equal(t, OpHeartbeatAck, ev.Op)
	assert.Greater(t, ev.Seq, ready.Seq)
}

func TestRefreshOpInvokesCallback(t *testing.T) {
	hub, srv := startHub(t, &staticCounts{}, nil)

	got := make(chan string, 1)
	hub.OnRefreshRequest(func(clientID string) { got <- clientID })

	conn := dial(t, srv, nil)
	ev := read(t, conn)
	var ready ReadyData
	require.NoError(t, json.Unmarshal(ev.Data, &ready))

	require.NoError(t, conn.WriteJSON(Event{Op: OpRefresh}))
	select {
	case id := <-got:
		assert.Equal(t, ready.ClientID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh callback not invoked")
	}
}

func TestDisconnectRemovesClient(t *testing.T) {
	hub, srv := startHub(t, &staticCounts{}, nil)
	conn := dial(t, srv, nil)
	read(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)

	// Çıkarılmış client'lara broadcast panik üretmemeli.
	hub.CounterChanged(models.CounterNotifications, 1)
}

func TestOriginCheck(t *testing.T) {
	_, srv := startHub(t, &staticCounts{}, []string{"http://localhost:5173"})
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dial(t, srv, http.Header{"Origin": {"http://localhost:5173"}})
	assert.Equal(t, OpReady, read(t, conn).Op)
}

func TestShutdownClosesClientsAndRejectsNew(t *testing.T) {
	hub, srv := startHub(t, &staticCounts{}, nil)
	conn := dial(t, srv, nil)
	read(t, conn)

	hub.Shutdown()
	hub.Shutdown()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	late := &Client{id: "late", send: make(chan []byte, 1)}
	assert.False(t, hub.Register(late))
}
