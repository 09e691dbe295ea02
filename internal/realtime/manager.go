// Package realtime owns the persistent WebSocket connection to the analysis
// service: one connection per session, an explicit lifecycle state machine,
// and bounded exponential reconnect driven by an injectable clock.
package realtime

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/webbOF/SmileAdventure-sub000/internal/insight"
)

const (
	defaultBaseDelay  = 3 * time.Second
	defaultMaxDelay   = 48 * time.Second
	defaultMaxRetries = 5

	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// State is the lifecycle state of one session's connection.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
	StateFailed     State = "failed"
)

// TransportError is the terminal error surfaced once reconnect attempts are
// exhausted. Earlier transport failures are absorbed by the retry loop.
type TransportError struct {
	SessionID string
	Attempts  int
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("session %s: connection lost after %d reconnect attempts: %v", e.SessionID, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// InsightHandler receives every classified inbound frame, in receive order.
type InsightHandler func(insight.Insight)

// ErrorHandler receives the terminal TransportError.
type ErrorHandler func(error)

// DialFunc opens a WebSocket connection to the given URL.
type DialFunc func(url string) (*websocket.Conn, error)

// Options configures a Manager. Zero values take the documented defaults.
type Options struct {
	BaseURL    string // ws:// or wss:// base, no trailing slash
	AuthToken  string
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Clock      Clock    // nil uses the wall clock
	Dial       DialFunc // nil uses the gorilla default dialer
}

// Manager tracks one connection per session. All exported methods are safe
// for concurrent use and none of them block on the network.
type Manager struct {
	opts  Options
	log   zerolog.Logger
	clock Clock
	dial  DialFunc

	mu    sync.Mutex
	conns map[string]*conn
}

type conn struct {
	sessionID string
	state     State
	wanted    bool

	ws      *websocket.Conn
	writeMu sync.Mutex

	retries    int
	backoff    *backoff.ExponentialBackOff
	reconnect  Timer
	pingCancel context.CancelFunc

	onInsight InsightHandler
	onError   ErrorHandler
}

func NewManager(opts Options, log zerolog.Logger) *Manager {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.BaseDelay == 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxDelay == 0 {
		opts.MaxDelay = defaultMaxDelay
	}
	m := &Manager{
		opts:  opts,
		log:   log.With().Str("component", "realtime").Logger(),
		clock: opts.Clock,
		dial:  opts.Dial,
		conns: make(map[string]*conn),
	}
	if m.clock == nil {
		m.clock = realClock{}
	}
	if m.dial == nil {
		m.dial = func(u string) (*websocket.Conn, error) {
			ws, _, err := websocket.DefaultDialer.Dial(u, nil)
			return ws, err
		}
	}
	return m
}

func (m *Manager) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.opts.BaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = m.opts.MaxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Open starts the connection for a session. Calling Open while a connection
// is already wanted for that session is a no-op that logs. The dial happens
// asynchronously; outcomes arrive through onInsight/onError.
func (m *Manager) Open(sessionID string, onInsight InsightHandler, onError ErrorHandler) {
	m.mu.Lock()
	if existing, ok := m.conns[sessionID]; ok && existing.wanted {
		state := existing.state
		m.mu.Unlock()
		m.log.Info().Str("session", sessionID).Str("state", string(state)).
			Msg("open ignored, connection already active")
		return
	}
	c := &conn{
		sessionID: sessionID,
		state:     StateConnecting,
		wanted:    true,
		backoff:   m.newBackoff(),
		onInsight: onInsight,
		onError:   onError,
	}
	m.conns[sessionID] = c
	m.mu.Unlock()

	go m.connect(c)
}

func (m *Manager) endpoint(sessionID string) string {
	return fmt.Sprintf("%s/insights/%s?token=%s", m.opts.BaseURL, sessionID, url.QueryEscape(m.opts.AuthToken))
}

func (m *Manager) connect(c *conn) {
	ws, err := m.dial(m.endpoint(c.sessionID))

	m.mu.Lock()
	if !c.wanted {
		m.mu.Unlock()
		if ws != nil {
			ws.Close()
		}
		return
	}
	if err != nil {
		m.mu.Unlock()
		m.handleFailure(c, err)
		return
	}

	pingCtx, pingCancel := context.WithCancel(context.Background())
	c.ws = ws
	c.state = StateOpen
	c.retries = 0
	c.backoff.Reset()
	c.pingCancel = pingCancel
	m.mu.Unlock()

	m.log.Info().Str("session", c.sessionID).Msg("connection open")

	// Initial control frame. A write failure here surfaces through the read
	// loop moments later, so it is only logged.
	start := insight.ControlFrame{
		Type:      insight.FrameStartMonitoring,
		SessionID: c.sessionID,
		Timestamp: m.clock.Now().UTC().Format(time.RFC3339),
	}
	if werr := m.write(c, ws, start); werr != nil {
		m.log.Warn().Str("session", c.sessionID).Err(werr).Msg("start_monitoring write failed")
	}

	go m.readLoop(c, ws)
	go m.pingLoop(pingCtx, c, ws)
}

// handleFailure runs the Failed branch of the state machine: schedule a
// bounded reconnect or report the terminal error.
func (m *Manager) handleFailure(c *conn, cause error) {
	m.mu.Lock()
	if !c.wanted {
		m.mu.Unlock()
		return
	}
	c.state = StateFailed

	if c.retries >= m.opts.MaxRetries {
		c.state = StateClosed
		c.wanted = false
		attempts := c.retries
		onError := c.onError
		m.mu.Unlock()

		m.log.Error().Str("session", c.sessionID).Int("attempts", attempts).Err(cause).
			Msg("reconnect attempts exhausted")
		if onError != nil {
			onError(&TransportError{SessionID: c.sessionID, Attempts: attempts, Err: cause})
		}
		return
	}

	delay := c.backoff.NextBackOff()
	c.retries++
	attempt := c.retries
	c.reconnect = m.clock.AfterFunc(delay, func() {
		m.mu.Lock()
		if !c.wanted {
			m.mu.Unlock()
			return
		}
		c.state = StateConnecting
		c.reconnect = nil
		m.mu.Unlock()
		m.connect(c)
	})
	m.mu.Unlock()

	m.log.Warn().Str("session", c.sessionID).Int("attempt", attempt).Dur("delay", delay).
		Err(cause).Msg("connection failed, reconnect scheduled")
}

func (m *Manager) readLoop(c *conn, ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			m.mu.Lock()
			mine := c.ws == ws
			if mine {
				c.ws = nil
				if c.pingCancel != nil {
					c.pingCancel()
					c.pingCancel = nil
				}
			}
			wanted := c.wanted && mine
			m.mu.Unlock()
			ws.Close()
			if wanted {
				m.handleFailure(c, err)
			}
			return
		}

		ins, cerr := insight.Classify(data)
		if cerr != nil {
			m.log.Warn().Str("session", c.sessionID).Err(cerr).Msg("dropping unparseable frame")
			continue
		}
		if ins.Kind == insight.KindUnknown {
			m.log.Debug().Str("session", c.sessionID).Msg("unrecognised frame type, delivering as unknown")
		}
		ins.SessionID = c.sessionID
		c.onInsight(ins)
	}
}

// pingLoop keeps the connection alive. It exits when the context is
// cancelled or the connection has been replaced.
func (m *Manager) pingLoop(ctx context.Context, c *conn, ws *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			current := c.ws
			m.mu.Unlock()
			if current != ws {
				return
			}
			c.writeMu.Lock()
			ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Send writes one message on a session's connection. If the connection is
// not open this is a logged no-op: callers are never blocked by transport
// unavailability.
func (m *Manager) Send(sessionID string, msg interface{}) {
	m.mu.Lock()
	c, ok := m.conns[sessionID]
	var ws *websocket.Conn
	if ok && c.state == StateOpen {
		ws = c.ws
	}
	m.mu.Unlock()

	if ws == nil {
		m.log.Warn().Str("session", sessionID).Msg("send dropped, connection not open")
		return
	}
	if err := m.write(c, ws, msg); err != nil {
		m.log.Warn().Str("session", sessionID).Err(err).Msg("send failed")
	}
}

func (m *Manager) write(c *conn, ws *websocket.Conn, msg interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return ws.WriteJSON(msg)
}

// Close tears down a session's connection: pending reconnects are cancelled,
// the socket is closed, the state becomes Closed. Idempotent.
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	c, ok := m.conns[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	c.wanted = false
	c.state = StateClosed
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	if c.pingCancel != nil {
		c.pingCancel()
		c.pingCancel = nil
	}
	ws := c.ws
	c.ws = nil
	delete(m.conns, sessionID)
	m.mu.Unlock()

	if ws != nil {
		ws.Close()
	}
	m.log.Info().Str("session", sessionID).Msg("connection closed")
}

// State reports the lifecycle state for a session. Sessions the manager has
// never seen (or has fully released) are Idle.
func (m *Manager) State(sessionID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conns[sessionID]; ok {
		return c.state
	}
	return StateIdle
}
