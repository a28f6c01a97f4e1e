package live

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/five82/amaroom/internal/metrics"
)

// State is the lifecycle position of a Manager.
type State int

const (
	Idle State = iota
	Connecting
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrorSink receives non-fatal connection failures.
type ErrorSink func(error)

// ConnectionError reports a failed dial or a connection that ended without
// being asked to.
type ConnectionError struct {
	Op  string // "dial" or "read"
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("live %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

const (
	defaultReadTimeout      = 10 * time.Second
	defaultHandshakeTimeout = 5 * time.Second
	defaultFrameBuffer      = 64
	writeWait               = time.Second
)

// Options tune a Manager. The zero value is usable.
type Options struct {
	// ReadTimeout is how long the connection may stay silent, pings included,
	// before it is treated as lost. The server pings every 5s.
	ReadTimeout      time.Duration
	HandshakeTimeout time.Duration
	FrameBuffer      int
	OnError          ErrorSink
	// OnStateChange is called after every state transition, outside the lock.
	OnStateChange func(State)
	Metrics       *metrics.Recorder
}

// Conn is one connection attempt. A new Conn is created per dial.
type Conn struct {
	ID     string
	URL    string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Done is closed once the connection attempt has fully ended.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Manager owns the live connection of a single room.
type Manager struct {
	url    string
	opts   Options
	dialer *websocket.Dialer
	frames chan []byte

	mu    sync.Mutex
	state State
	conn  *Conn
}

// New creates an idle Manager for the stream at rawURL.
func New(rawURL string, opts Options) *Manager {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.FrameBuffer <= 0 {
		opts.FrameBuffer = defaultFrameBuffer
	}
	return &Manager{
		url:  rawURL,
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		frames: make(chan []byte, opts.FrameBuffer),
	}
}

// SubscribeURL builds the stream URL of roomID under the websocket base URL.
func SubscribeURL(wsBase, roomID string) (string, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return "", fmt.Errorf("room id is required")
	}
	u, err := url.Parse(strings.TrimSpace(wsBase))
	if err != nil {
		return "", fmt.Errorf("parse ws url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return "", fmt.Errorf("ws url %q: scheme must be ws or wss", wsBase)
	}
	if u.Host == "" {
		return "", fmt.Errorf("ws url %q missing host", wsBase)
	}
	return u.JoinPath("room", "subscribe", url.PathEscape(roomID)).String(), nil
}

// URL returns the stream URL.
func (m *Manager) URL() string { return m.url }

// Frames delivers inbound text frames in arrival order. The channel is shared
// by every connection the manager opens and is never closed.
func (m *Manager) Frames() <-chan []byte { return m.frames }

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect starts a connection in the background and returns its handle without
// waiting for the network. While a connection is connecting or open the
// existing handle is returned and no new dial happens. ctx bounds the life of
// a newly started connection.
func (m *Manager) Connect(ctx context.Context) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.conn != nil && (m.state == Connecting || m.state == Open) {
		c := m.conn
		m.mu.Unlock()
		return c, nil
	}
	connCtx, cancel := context.WithCancel(ctx)
	c := &Conn{
		ID:     ulid.Make().String(),
		URL:    m.url,
		ctx:    connCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.conn = c
	m.state = Connecting
	m.mu.Unlock()

	glog.V(1).Infof("live: connecting %s (conn %s)", m.url, c.ID)
	m.notify(Connecting)
	go m.run(c)
	return c, nil
}

// Disconnect closes the current connection, if any. It is idempotent and
// never reports an error.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	c := m.conn
	m.conn = nil
	changed := m.state == Connecting || m.state == Open
	if changed {
		m.state = Closed
	}
	m.mu.Unlock()

	if c != nil {
		c.cancel()
		glog.V(1).Infof("live: disconnected conn %s", c.ID)
	}
	if changed {
		m.opts.Metrics.Connection(metrics.ConnClosed)
		m.notify(Closed)
	}
}

func (m *Manager) run(c *Conn) {
	defer close(c.done)
	defer c.cancel()

	ws, resp, err := m.dialer.DialContext(c.ctx, c.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if c.ctx.Err() == nil {
			m.opts.Metrics.Connection(metrics.ConnFailed)
		}
		m.lost(c, "dial", err)
		return
	}
	defer ws.Close()

	if !m.transition(c, Open) {
		return
	}
	m.opts.Metrics.Connection(metrics.ConnOpened)
	glog.V(1).Infof("live: open %s (conn %s)", c.URL, c.ID)

	readTimeout := m.opts.ReadTimeout
	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPingHandler(func(data string) error {
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
		err := ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})

	// Unblock ReadMessage when the connection is cancelled.
	go func() {
		<-c.ctx.Done()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = ws.Close()
	}()

	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			m.lost(c, "read", err)
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
		if kind != websocket.TextMessage {
			glog.V(2).Infof("live: skip message type %d (conn %s)", kind, c.ID)
			continue
		}
		select {
		case m.frames <- data:
		case <-c.ctx.Done():
			m.lost(c, "read", c.ctx.Err())
			return
		}
	}
}

// transition moves to next if c is still the current connection.
func (m *Manager) transition(c *Conn, next State) bool {
	m.mu.Lock()
	if m.conn != c {
		m.mu.Unlock()
		return false
	}
	m.state = next
	m.mu.Unlock()
	m.notify(next)
	return true
}

// lost clears c after it ended. Endings caused by Disconnect or a cancelled
// context are not reported.
func (m *Manager) lost(c *Conn, op string, err error) {
	m.mu.Lock()
	current := m.conn == c
	if current {
		m.conn = nil
		m.state = Closed
	}
	m.mu.Unlock()

	if !current {
		return
	}
	if c.ctx.Err() != nil {
		m.opts.Metrics.Connection(metrics.ConnClosed)
		m.notify(Closed)
		return
	}

	cerr := &ConnectionError{Op: op, URL: c.URL, Err: err}
	glog.Warningf("live: %v (conn %s)", cerr, c.ID)
	if op == "read" {
		m.opts.Metrics.Connection(metrics.ConnClosed)
	}
	if m.opts.OnError != nil {
		m.opts.OnError(cerr)
	}
	m.notify(Closed)
}

func (m *Manager) notify(s State) {
	if m.opts.OnStateChange != nil {
		m.opts.OnStateChange(s)
	}
}
