package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propheseer/propheseer-go/pkg/client"
)

// streamServer is a scriptable mock of the streaming API.
type streamServer struct {
	*httptest.Server

	upgrader gws.Upgrader

	mu       sync.Mutex
	conns    []*gws.Conn
	inbound  chan Message
	rejectN  int32 // reject this many upgrade attempts
	silent   int32 // when set, pings go unanswered
	helloErr string
	lastKey  string
}

func newStreamServer(t *testing.T) *streamServer {
	t.Helper()
	s := &streamServer{inbound: make(chan Message, 64)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *streamServer) handle(w http.ResponseWriter, r *http.Request) {
	if atomic.AddInt32(&s.rejectN, -1) >= 0 {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	atomic.AddInt32(&s.rejectN, 1)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.lastKey = r.URL.Query().Get("api_key")
	helloErr := s.helloErr
	s.mu.Unlock()

	if helloErr != "" {
		conn.WriteJSON(Message{Type: "error", Error: helloErr})
		return
	}
	conn.WriteJSON(Message{Type: "connected", SessionID: "sess-1", Plan: "pro"})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		s.inbound <- msg
		if msg.Type == "ping" && atomic.LoadInt32(&s.silent) == 0 {
			conn.WriteJSON(Message{Type: "pong"})
		}
	}
}

// sendToClient pushes a frame down the most recent connection.
func (s *streamServer) sendToClient(t *testing.T, msg Message) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.conns)
	require.NoError(t, s.conns[len(s.conns)-1].WriteJSON(msg))
}

// dropClient closes the most recent connection from the server side.
func (s *streamServer) dropClient(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.conns)
	s.conns[len(s.conns)-1].Close()
}

// expectFrame waits for the next frame of the wanted type, skipping
// keepalive pings.
func (s *streamServer) expectFrame(t *testing.T, wantType string) Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-s.inbound:
			if msg.Type == "ping" && wantType != "ping" {
				continue
			}
			require.Equal(t, wantType, msg.Type)
			return msg
		case <-deadline:
			t.Fatalf("timed out waiting for %q frame", wantType)
			return Message{}
		}
	}
}

func newTestSession(t *testing.T, srv *streamServer, mutate func(*Config)) *Session {
	t.Helper()
	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL
	cfg.PingInterval = 50 * time.Millisecond
	cfg.ReconnectBaseDelay = 20 * time.Millisecond
	cfg.ReconnectMaxDelay = 200 * time.Millisecond
	cfg.HandshakeTimeout = 2 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}
	ws, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Setenv(client.EnvAPIKey, "")

	_, err := New(Config{})
	var authErr *client.AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestConnect_HandshakeAndEvent(t *testing.T) {
	srv := newStreamServer(t)
	ws := newTestSession(t, srv, nil)

	connected := make(chan struct{})
	var hello Message
	ws.On(EventConnected, func(msg Message) {
		hello = msg
		close(connected)
	})

	require.NoError(t, ws.Connect(context.Background()))
	waitFor(t, connected, "connected event")

	assert.Equal(t, StateConnected, ws.State())
	assert.Equal(t, "sess-1", hello.SessionID)
	assert.Equal(t, "pro", hello.Plan)
}

func TestConnect_CredentialInQuery(t *testing.T) {
	srv := newStreamServer(t)
	ws := newTestSession(t, srv, nil)
	require.NoError(t, ws.Connect(context.Background()))

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, "test-key", srv.lastKey)
}

func TestConnect_ErrorFrameIsAuthFailure(t *testing.T) {
	srv := newStreamServer(t)
	srv.helloErr = "invalid api key"
	ws := newTestSession(t, srv, nil)

	errs := make(chan Message, 1)
	ws.On(EventError, func(msg Message) { errs <- msg })

	err := ws.Connect(context.Background())
	var authErr *client.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, StateDisconnected, ws.State())

	// The failure is also delivered to error event subscribers.
	select {
	case msg := <-errs:
		assert.Contains(t, msg.Error, "invalid api key")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error event")
	}
}

func TestConnect_DialFailure(t *testing.T) {
	srv := newStreamServer(t)
	srv.Close()

	ws := newTestSession(t, srv, nil)

	errs := make(chan Message, 1)
	ws.On(EventError, func(msg Message) { errs <- msg })

	err := ws.Connect(context.Background())

	var connErr *client.ConnectionError
	require.ErrorAs(t, err, &connErr)
	// A failed initial connect never auto-reconnects.
	assert.Equal(t, StateDisconnected, ws.State())

	select {
	case msg := <-errs:
		assert.NotEmpty(t, msg.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error event")
	}
}

func TestSubscribe_SendsFrameWhenConnected(t *testing.T) {
	srv := newStreamServer(t)
	ws := newTestSession(t, srv, nil)
	require.NoError(t, ws.Connect(context.Background()))

	ws.Subscribe([]string{"pm_1", "pm_2"})

	frame := srv.expectFrame(t, "subscribe")
	assert.Equal(t, []string{"pm_1", "pm_2"}, frame.IDs)
	assert.Equal(t, []string{"pm_1", "pm_2"}, ws.Subscriptions())
}

func TestSubscribe_BeforeConnectReplaysOnConnect(t *testing.T) {
	srv := newStreamServer(t)
	ws := newTestSession(t, srv, nil)

	ws.Subscribe([]string{"b"})
	ws.Subscribe([]string{"a"})

	require.NoError(t, ws.Connect(context.Background()))

	frame := srv.expectFrame(t, "subscribe")
	assert.ElementsMatch(t, []string{"a", "b"}, frame.IDs)
}

func TestEventDispatch_OrderAndPanicIsolation(t *testing.T) {
	srv := newStreamServer(t)
	ws := newTestSession(t, srv, nil)

	var mu sync.Mutex
	var order []int
	second := make(chan struct{})

	ws.On(EventMarketUpdate, func(Message) {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
		panic("handler bug")
	})
	ws.On(EventMarketUpdate, func(Message) {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		close(second)
	})

	require.NoError(t, ws.Connect(context.Background()))
	srv.sendToClient(t, Message{Type: "market_update", Market: json.RawMessage(`{"id":"pm_1"}`)})

	waitFor(t, second, "second handler despite panic in first")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, order)
}

func TestOff_RemovesHandler(t *testing.T) {
	srv := newStreamServer(t)
	ws := newTestSession(t, srv, nil)

	calls := make(chan string, 8)
	remove := ws.On(EventMarketUpdate, func(Message) { calls <- "removed" })
	ws.On(EventMarketUpdate, func(Message) { calls <- "kept" })
	remove()

	require.NoError(t, ws.Connect(context.Background()))
	srv.sendToClient(t, Message{Type: "market_update"})

	select {
	case got := <-calls:
		assert.Equal(t, "kept", got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handler")
	}
	select {
	case got := <-calls:
		t.Fatalf("unexpected extra handler call %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestKeepalive_SendsPings(t *testing.T) {
	srv := newStreamServer(t)
	ws := newTestSession(t, srv, nil)
	require.NoError(t, ws.Connect(context.Background()))

	srv.expectFrame(t, "ping")
	srv.expectFrame(t, "ping")
}

func TestKeepalive_TimeoutTriggersReconnect(t *testing.T) {
	srv := newStreamServer(t)
	atomic.StoreInt32(&srv.silent, 1)
	ws := newTestSession(t, srv, nil)

	dropped := make(chan struct{})
	var dropOnce sync.Once
	ws.On(EventDisconnect, func(Message) {
		dropOnce.Do(func() { close(dropped) })
	})

	require.NoError(t, ws.Connect(context.Background()))

	// The server answers nothing after the handshake; the session must
	// detect the silence on its own and treat the connection as lost.
	waitFor(t, dropped, "keepalive timeout disconnect")

	// Once the server talks again the reconnect succeeds.
	atomic.StoreInt32(&srv.silent, 0)
	require.Eventually(t, func() bool {
		return ws.State() == StateConnected
	}, 3*time.Second, 20*time.Millisecond)
}

func TestReconnect_ReplaysSubscriptions(t *testing.T) {
	srv := newStreamServer(t)
	ws := newTestSession(t, srv, nil)

	reconnected := make(chan struct{})
	var once sync.Once
	ws.On(EventReconnect, func(Message) {
		once.Do(func() { close(reconnected) })
	})

	require.NoError(t, ws.Connect(context.Background()))
	ws.Subscribe([]string{"a", "b"})
	srv.expectFrame(t, "subscribe")

	srv.dropClient(t)
	waitFor(t, reconnected, "reconnect event")

	frame := srv.expectFrame(t, "subscribe")
	assert.ElementsMatch(t, []string{"a", "b"}, frame.IDs)

	require.Eventually(t, func() bool {
		return ws.State() == StateConnected
	}, 3*time.Second, 20*time.Millisecond)
}

func TestReconnect_ExhaustionClosesSession(t *testing.T) {
	srv := newStreamServer(t)
	ws := newTestSession(t, srv, func(cfg *Config) {
		cfg.MaxReconnectAttempts = 3
	})

	var attempts []int
	var mu sync.Mutex
	ws.On(EventReconnect, func(msg Message) {
		mu.Lock()
		attempts = append(attempts, msg.Attempt)
		mu.Unlock()
	})
	terminal := make(chan struct{})
	ws.On(EventError, func(Message) { close(terminal) })

	require.NoError(t, ws.Connect(context.Background()))

	// Every redial from here on is refused.
	atomic.StoreInt32(&srv.rejectN, 1000)
	srv.dropClient(t)

	start := time.Now()
	waitFor(t, terminal, "terminal error event")
	elapsed := time.Since(start)

	mu.Lock()
	assert.Equal(t, []int{1, 2, 3}, attempts)
	mu.Unlock()
	assert.Equal(t, StateClosed, ws.State())
	// Backoff grows per attempt: at least base*(1+2+4).
	assert.GreaterOrEqual(t, elapsed, 7*20*time.Millisecond)

	// A closed session cannot reconnect.
	require.ErrorIs(t, ws.Connect(context.Background()), ErrClosed)
}

func TestReconnect_DisabledStaysDisconnected(t *testing.T) {
	srv := newStreamServer(t)
	ws := newTestSession(t, srv, func(cfg *Config) {
		cfg.Reconnect = false
	})

	dropped := make(chan struct{})
	ws.On(EventDisconnect, func(Message) { close(dropped) })

	require.NoError(t, ws.Connect(context.Background()))
	srv.dropClient(t)
	waitFor(t, dropped, "disconnect event")

	require.Eventually(t, func() bool {
		return ws.State() == StateDisconnected
	}, 2*time.Second, 20*time.Millisecond)
}

func TestClose_Idempotent(t *testing.T) {
	srv := newStreamServer(t)
	ws := newTestSession(t, srv, nil)
	require.NoError(t, ws.Connect(context.Background()))

	require.NoError(t, ws.Close())
	require.NoError(t, ws.Close())
	assert.Equal(t, StateClosed, ws.State())
	assert.Empty(t, ws.Subscriptions())

	err := ws.Connect(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestWsScheme(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "https://api.propheseer.com", want: "wss://api.propheseer.com"},
		{in: "http://127.0.0.1:8080", want: "ws://127.0.0.1:8080"},
		{in: "wss://api.propheseer.com", want: "wss://api.propheseer.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wsScheme(tt.in))
	}
}

func TestServerErrorFrameDispatched(t *testing.T) {
	srv := newStreamServer(t)
	ws := newTestSession(t, srv, nil)

	errs := make(chan Message, 1)
	ws.On(EventError, func(msg Message) { errs <- msg })

	require.NoError(t, ws.Connect(context.Background()))
	srv.sendToClient(t, Message{Type: "error", Error: "subscription limit reached"})

	select {
	case msg := <-errs:
		assert.Equal(t, "subscription limit reached", msg.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error event")
	}

	// A server error frame alone does not kill the session.
	assert.Equal(t, StateConnected, ws.State())
	require.NoError(t, ws.Close())
}
