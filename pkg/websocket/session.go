package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/propheseer/propheseer-go/pkg/client"
)

// DefaultBaseURL is the production streaming endpoint.
const DefaultBaseURL = "wss://api.propheseer.com"

// Session defaults.
const (
	DefaultPingInterval         = 25 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultReconnectMaxDelay    = 30 * time.Second
	DefaultHandshakeTimeout     = 10 * time.Second
)

// State is the lifecycle state of a Session.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// ErrClosed is returned when operating on a session that has been closed.
var ErrClosed = errors.New("websocket session closed")

// Message is one frame exchanged with the streaming API. Raw always holds
// the original payload; the other fields are populated per message type.
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Plan      string          `json:"plan,omitempty"`
	Market    json.RawMessage `json:"market,omitempty"`
	IDs       []string        `json:"ids,omitempty"`
	Error     string          `json:"error,omitempty"`
	Attempt   int             `json:"attempt,omitempty"`

	Raw []byte `json:"-"`
}

// Config holds the session configuration.
type Config struct {
	// APIKey authenticates the session. Falls back to the
	// PROPHESEER_API_KEY environment variable when empty. Required.
	APIKey string

	// BaseURL overrides the production endpoint. http(s) schemes are
	// rewritten to ws(s), so an httptest server URL works directly.
	BaseURL string

	// Reconnect enables automatic reconnection after a dropped
	// connection. DefaultConfig turns it on.
	Reconnect bool

	// MaxReconnectAttempts bounds consecutive failed reconnects before
	// the session closes.
	MaxReconnectAttempts int

	// PingInterval is the keepalive period. Silence for twice this long
	// counts as a dead connection.
	PingInterval time.Duration

	// ReconnectBaseDelay seeds the exponential backoff between
	// reconnect attempts; ReconnectMaxDelay caps it.
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration

	// HandshakeTimeout bounds the wait for the server's connected frame.
	HandshakeTimeout time.Duration

	// Logger for session logging. Defaults to a disabled logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a Config with production defaults and reconnection
// enabled.
func DefaultConfig() Config {
	return Config{
		BaseURL:              DefaultBaseURL,
		Reconnect:            true,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		PingInterval:         DefaultPingInterval,
		ReconnectBaseDelay:   DefaultReconnectBaseDelay,
		ReconnectMaxDelay:    DefaultReconnectMaxDelay,
		HandshakeTimeout:     DefaultHandshakeTimeout,
	}
}

// Session is a streaming connection to the Propheseer real-time API. All
// methods are safe for concurrent use.
type Session struct {
	emitter

	cfg    Config
	wsURL  string
	logger zerolog.Logger

	// writeMu serializes frame writes; gorilla allows one writer at a time.
	writeMu sync.Mutex

	mu           sync.Mutex
	state        State
	conn         *gws.Conn
	subs         map[string]struct{}
	epoch        int
	lastActivity time.Time
	closed       chan struct{}
	closeOnce    sync.Once
}

// New creates a Session. Unlike the HTTP client, a credential is required
// up front: the streaming API has no unauthenticated surface.
func New(cfg Config) (*Session, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(client.EnvAPIKey)
	}
	if cfg.APIKey == "" {
		return nil, &client.AuthenticationError{APIError: client.APIError{
			Status:  http.StatusUnauthorized,
			Code:    "UNAUTHORIZED",
			Message: "no API key configured (set " + client.EnvAPIKey + " or Config.APIKey)",
		}}
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if cfg.ReconnectMaxDelay <= 0 {
		cfg.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	logger = logger.With().Str("component", "websocket").Logger()

	// The streaming endpoint authenticates via query parameter.
	s := &Session{
		cfg: cfg,
		wsURL: wsScheme(strings.TrimRight(cfg.BaseURL, "/")) +
			"/ws?api_key=" + url.QueryEscape(cfg.APIKey),
		logger: logger,
		state:  StateDisconnected,
		subs:   make(map[string]struct{}),
		closed: make(chan struct{}),
	}
	s.emitter.logger = logger
	return s, nil
}

// wsScheme rewrites http(s) URLs to their ws(s) equivalents.
func wsScheme(u string) string {
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	default:
		return u
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscriptions returns the current subscription set, sorted.
func (s *Session) Subscriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// On registers a handler for the named event and returns a function that
// removes it.
func (s *Session) On(event string, fn Handler) func() {
	return s.on(event, fn)
}

// Connect dials the streaming endpoint and waits for the server's connected
// frame. A failed initial connect does not trigger automatic reconnection;
// reconnection only covers established sessions that drop.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return ErrClosed
	case StateConnected, StateConnecting, StateReconnecting:
		s.mu.Unlock()
		return errors.New("websocket session already active")
	}
	s.state = StateConnecting
	s.mu.Unlock()

	if err := s.dial(ctx); err != nil {
		s.mu.Lock()
		if s.state == StateConnecting {
			s.state = StateDisconnected
		}
		s.mu.Unlock()
		// The failure is also observable through the error event, so
		// subscribers that only watch events see it too.
		s.emit(EventError, Message{Type: EventError, Error: err.Error()})
		return err
	}
	return nil
}

// dial performs one connection attempt: handshake, state transition, loop
// startup, and subscription replay.
func (s *Session) dial(ctx context.Context) error {
	dialer := gws.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}

	conn, resp, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return &client.AuthenticationError{APIError: client.APIError{
				Status:  http.StatusUnauthorized,
				Code:    "UNAUTHORIZED",
				Message: "websocket handshake rejected",
			}}
		}
		return &client.ConnectionError{Message: "websocket dial failed", Err: err}
	}

	// The server confirms the session with a connected frame before any
	// data flows.
	conn.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return &client.ConnectionError{Message: "websocket handshake read failed", Err: err}
	}
	conn.SetReadDeadline(time.Time{})

	var hello Message
	if err := json.Unmarshal(payload, &hello); err != nil {
		conn.Close()
		return &client.ConnectionError{Message: "malformed handshake frame", Err: err}
	}
	hello.Raw = payload

	switch hello.Type {
	case EventConnected:
	case EventError:
		conn.Close()
		return &client.AuthenticationError{APIError: client.APIError{
			Status:  http.StatusUnauthorized,
			Code:    "UNAUTHORIZED",
			Message: hello.Error,
		}}
	default:
		conn.Close()
		return &client.ConnectionError{Message: "unexpected handshake frame: " + hello.Type}
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	s.conn = conn
	s.state = StateConnected
	s.epoch++
	epoch := s.epoch
	s.lastActivity = time.Now()
	replay := make([]string, 0, len(s.subs))
	for id := range s.subs {
		replay = append(replay, id)
	}
	sort.Strings(replay)
	s.mu.Unlock()

	s.logger.Info().
		Str("session_id", hello.SessionID).
		Str("plan", hello.Plan).
		Msg("WebSocket connected")

	go s.readLoop(epoch, conn)
	go s.pingLoop(epoch, conn)

	s.emit(EventConnected, hello)

	if len(replay) > 0 {
		s.send(conn, Message{Type: "subscribe", IDs: replay})
	}
	return nil
}

// Subscribe adds market IDs to the subscription set. The control frame is
// sent immediately when connected; otherwise the set is replayed on the
// next successful (re)connect.
func (s *Session) Subscribe(ids []string) {
	s.updateSubs("subscribe", ids)
}

// Unsubscribe removes market IDs from the subscription set.
func (s *Session) Unsubscribe(ids []string) {
	s.updateSubs("unsubscribe", ids)
}

func (s *Session) updateSubs(op string, ids []string) {
	if len(ids) == 0 {
		return
	}

	s.mu.Lock()
	for _, id := range ids {
		if op == "subscribe" {
			s.subs[id] = struct{}{}
		} else {
			delete(s.subs, id)
		}
	}
	conn := s.conn
	connected := s.state == StateConnected
	s.mu.Unlock()

	if connected && conn != nil {
		s.send(conn, Message{Type: op, IDs: ids})
	}
}

// Close shuts the session down. It is idempotent; a closed session cannot
// be reconnected.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	s.epoch++
	conn := s.conn
	s.conn = nil
	s.subs = make(map[string]struct{})
	s.mu.Unlock()

	s.closeOnce.Do(func() { close(s.closed) })

	if conn != nil {
		s.writeMu.Lock()
		conn.WriteControl(gws.CloseMessage,
			gws.FormatCloseMessage(gws.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		conn.Close()
	}

	s.logger.Info().Msg("WebSocket session closed")
	return nil
}

// send serializes one outbound frame. Write errors surface through the read
// loop as a connection drop, so they are only logged here.
func (s *Session) send(conn *gws.Conn, msg Message) {
	s.writeMu.Lock()
	err := conn.WriteJSON(msg)
	s.writeMu.Unlock()
	if err != nil {
		s.logger.Warn().Str("type", msg.Type).Err(err).Msg("WebSocket write failed")
	}
}

// readLoop consumes inbound frames until the connection drops or the
// session moves on to a newer epoch.
func (s *Session) readLoop(epoch int, conn *gws.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			s.handleDisconnect(epoch, err)
			return
		}

		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			return
		}
		s.lastActivity = time.Now()
		s.mu.Unlock()

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Warn().Err(err).Msg("Malformed WebSocket frame")
			continue
		}
		msg.Raw = payload
		s.dispatch(msg)
	}
}

// dispatch routes one inbound frame to its event handlers. Pongs only
// refresh liveness.
func (s *Session) dispatch(msg Message) {
	switch msg.Type {
	case "pong":
		return
	case EventError:
		s.logger.Warn().Str("error", msg.Error).Msg("WebSocket error frame")
		s.emit(EventError, msg)
	default:
		s.emit(msg.Type, msg)
	}
}

// pingLoop sends keepalive pings and treats prolonged silence as a dead
// connection.
func (s *Session) pingLoop(epoch int, conn *gws.Conn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closed:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.epoch != epoch || s.state != StateConnected {
			s.mu.Unlock()
			return
		}
		stale := time.Since(s.lastActivity) > 2*s.cfg.PingInterval
		s.mu.Unlock()

		if stale {
			s.logger.Warn().Msg("WebSocket keepalive timeout")
			// Forcing the connection closed unblocks the read loop,
			// which owns the disconnect handling.
			conn.Close()
			return
		}

		s.send(conn, Message{Type: "ping"})
	}
}

// handleDisconnect reacts to a dropped connection: it either hands off to
// the reconnect loop or settles in Disconnected.
func (s *Session) handleDisconnect(epoch int, cause error) {
	s.mu.Lock()
	if s.epoch != epoch || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	reconnect := s.cfg.Reconnect
	if reconnect {
		s.state = StateReconnecting
	} else {
		s.state = StateDisconnected
	}
	s.mu.Unlock()

	s.logger.Warn().Err(cause).Msg("WebSocket connection lost")
	s.emit(EventDisconnect, Message{Type: EventDisconnect, Error: errString(cause)})

	if reconnect {
		go s.reconnectLoop()
	}
}

// reconnectLoop redials with exponential backoff. It stops on success, on
// session close, or after MaxReconnectAttempts failures.
func (s *Session) reconnectLoop() {
	for attempt := 1; attempt <= s.cfg.MaxReconnectAttempts; attempt++ {
		delay := s.cfg.ReconnectBaseDelay << (attempt - 1)
		if delay > s.cfg.ReconnectMaxDelay {
			delay = s.cfg.ReconnectMaxDelay
		}

		s.logger.Info().
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("WebSocket reconnecting")
		s.emit(EventReconnect, Message{Type: EventReconnect, Attempt: attempt})

		select {
		case <-s.closed:
			return
		case <-time.After(delay):
		}

		s.mu.Lock()
		if s.state != StateReconnecting {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		err := s.dial(context.Background())
		if err == nil {
			return
		}
		s.logger.Warn().Int("attempt", attempt).Err(err).Msg("WebSocket reconnect failed")
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.closed) })

	s.logger.Error().
		Int("attempts", s.cfg.MaxReconnectAttempts).
		Msg("WebSocket reconnect attempts exhausted")
	s.emit(EventError, Message{
		Type:  EventError,
		Error: "reconnect attempts exhausted",
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
