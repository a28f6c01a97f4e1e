package roomsync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/five82/amaroom/internal/api"
	"github.com/five82/amaroom/internal/event"
	"github.com/five82/amaroom/internal/live"
	"github.com/five82/amaroom/internal/metrics"
	"github.com/five82/amaroom/internal/state"
)

// ErrInactive is returned by operations that need an active handle.
var ErrInactive = errors.New("room sync is not active")

// Connector is the live connection a handle drives. *live.Manager implements it.
type Connector interface {
	Connect(ctx context.Context) (*live.Conn, error)
	Disconnect()
	State() live.State
	Frames() <-chan []byte
}

var _ Connector = (*live.Manager)(nil)

// ConnectFunc builds the connector for one activation. hooks carries the
// handle's error sink and state observer and must be installed on the result.
type ConnectFunc func(roomID string, hooks live.Options) (Connector, error)

// LiveConnector returns a ConnectFunc that subscribes to rooms under wsBase
// with a fresh live.Manager per activation.
func LiveConnector(wsBase string, base live.Options) ConnectFunc {
	return func(roomID string, hooks live.Options) (Connector, error) {
		u, err := live.SubscribeURL(wsBase, roomID)
		if err != nil {
			return nil, err
		}
		opts := base
		opts.OnError = hooks.OnError
		opts.OnStateChange = hooks.OnStateChange
		if opts.Metrics == nil {
			opts.Metrics = hooks.Metrics
		}
		return live.New(u, opts), nil
	}
}

// Status is the connection and fetch health of a handle.
type Status struct {
	RoomID      string
	Active      bool
	Connection  live.State
	SnapshotErr error // last snapshot failure, cleared by a successful snapshot
	ConnErr     error // last connection failure, cleared by Reconnect
	ChangedAt   time.Time
}

// Option configures a Handle.
type Option func(*Handle)

// WithMetrics records sync activity on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(h *Handle) { h.metrics = r }
}

type phase int

const (
	phaseNew phase = iota
	phaseActive
	phaseDone
)

type snapshotResult struct {
	questions []api.Question
	err       error
}

// Handle keeps one room's question list in sync for the life of one
// activation. It is safe for concurrent use.
type Handle struct {
	roomID  string
	loader  api.SnapshotLoader
	connect ConnectFunc
	metrics *metrics.Recorder

	store   *state.Store
	updates chan struct{}

	mu        sync.Mutex
	phase     phase
	ctx       context.Context
	cancel    context.CancelFunc
	conn      Connector
	snapshots chan snapshotResult
	status    Status
	wg        sync.WaitGroup // pump and loop
}

// New creates an inactive handle for roomID.
func New(roomID string, loader api.SnapshotLoader, connect ConnectFunc, opts ...Option) *Handle {
	h := &Handle{
		roomID:  strings.TrimSpace(roomID),
		loader:  loader,
		connect: connect,
		store:   &state.Store{},
		updates: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.status.RoomID = h.roomID
	return h
}

// RoomID returns the room this handle syncs.
func (h *Handle) RoomID() string { return h.roomID }

// Activate starts syncing: one connection attempt, one snapshot fetch, one
// decoder and one reconciler loop. It does nothing for an empty room id or a
// handle that was already activated.
func (h *Handle) Activate(ctx context.Context) error {
	if h.roomID == "" {
		return nil
	}

	h.mu.Lock()
	if h.phase != phaseNew {
		h.mu.Unlock()
		return nil
	}
	conn, err := h.connect(h.roomID, live.Options{
		OnError:       h.connectionFailed,
		OnStateChange: h.connectionChanged,
		Metrics:       h.metrics,
	})
	if err != nil {
		h.mu.Unlock()
		return err
	}

	actx, cancel := context.WithCancel(ctx)
	events := make(chan event.Event)
	h.phase = phaseActive
	h.ctx = actx
	h.cancel = cancel
	h.conn = conn
	h.snapshots = make(chan snapshotResult)
	h.status.Active = true
	h.status.ChangedAt = time.Now()

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		event.Pump(actx, conn.Frames(), events, h.dropFrame)
	}()
	go func() {
		defer h.wg.Done()
		h.loop(actx, events)
	}()
	go h.fetch(actx)
	h.mu.Unlock()

	glog.V(1).Infof("roomsync: activated room %s", h.roomID)
	if _, err := conn.Connect(actx); err != nil {
		h.connectionFailed(err)
	}
	h.notify()
	return nil
}

// Deactivate tears the activation down exactly once: the connection is
// closed, in-flight work is cancelled and any result arriving afterwards is
// discarded. It returns once the decoder and reconciler loop have exited. A
// snapshot fetch still in flight finishes on its own and is thrown away.
// Calling it before Activate prevents any later activation.
func (h *Handle) Deactivate() {
	h.mu.Lock()
	if h.phase == phaseDone {
		started := h.cancel != nil
		h.mu.Unlock()
		if started {
			h.wg.Wait()
		}
		return
	}
	wasActive := h.phase == phaseActive
	h.phase = phaseDone
	cancel := h.cancel
	conn := h.conn
	h.status.Active = false
	h.status.ChangedAt = time.Now()
	h.mu.Unlock()

	if !wasActive {
		return
	}
	cancel()
	conn.Disconnect()
	h.wg.Wait()
	glog.V(1).Infof("roomsync: deactivated room %s", h.roomID)
	h.notify()
}

// Reconnect asks for a new connection. It does nothing while one is connecting
// or open. The connection lives as long as the activation, not ctx.
func (h *Handle) Reconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	if h.phase != phaseActive {
		h.mu.Unlock()
		return ErrInactive
	}
	actx, conn := h.ctx, h.conn
	h.status.ConnErr = nil
	h.mu.Unlock()

	glog.V(1).Infof("roomsync: reconnect requested for room %s", h.roomID)
	if _, err := conn.Connect(actx); err != nil {
		h.connectionFailed(err)
		return err
	}
	h.notify()
	return nil
}

// Refresh starts another snapshot fetch whose result replaces the current
// state. It returns without waiting for the fetch.
func (h *Handle) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.phase != phaseActive {
		return ErrInactive
	}
	go h.fetch(h.ctx)
	return nil
}

// Read returns the reconciled room state.
func (h *Handle) Read() state.RoomState {
	return h.store.Read()
}

// Status returns the current connection and fetch health.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := h.status
	if h.conn != nil {
		st.Connection = h.conn.State()
	}
	return st
}

// Updates fires after state or status changes. Notifications coalesce: a
// reader sees at least one signal after any burst of changes.
func (h *Handle) Updates() <-chan struct{} {
	return h.updates
}

func (h *Handle) fetch(ctx context.Context) {
	qs, err := h.loader.FetchQuestions(ctx, h.roomID)
	select {
	case h.snapshots <- snapshotResult{questions: qs, err: err}:
	case <-ctx.Done():
		h.metrics.Snapshot(metrics.SnapshotDiscarded)
		glog.V(2).Infof("roomsync: snapshot for room %s discarded after deactivation", h.roomID)
	}
}

// loop is the only goroutine that mutates the store.
func (h *Handle) loop(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.applyEvent(ev)
		case res := <-h.snapshots:
			h.applySnapshot(res)
		}
	}
}

func (h *Handle) applyEvent(ev event.Event) {
	h.metrics.Frame(metrics.FrameDecoded)

	h.mu.Lock()
	if h.phase != phaseActive {
		h.mu.Unlock()
		return
	}
	out := h.store.ApplyEvent(ev)
	h.mu.Unlock()

	h.metrics.EventApplied(string(ev.Kind), out.String())
	if out == state.Dropped {
		glog.V(2).Infof("roomsync: dropped %s for unknown question %s", ev.Kind, ev.Data.ID)
		return
	}
	h.metrics.Questions(h.store.Read().Len())
	h.notify()
}

func (h *Handle) applySnapshot(res snapshotResult) {
	h.mu.Lock()
	if h.phase != phaseActive {
		h.mu.Unlock()
		h.metrics.Snapshot(metrics.SnapshotDiscarded)
		return
	}
	if res.err != nil {
		h.status.SnapshotErr = res.err
		h.status.ChangedAt = time.Now()
		if api.IsNotFound(res.err) {
			h.mu.Unlock()
			h.metrics.Snapshot(metrics.SnapshotNotFound)
			glog.Warningf("roomsync: room %s not found, ending sync: %v", h.roomID, res.err)
			h.end()
			return
		}
		h.mu.Unlock()

		h.metrics.Snapshot(metrics.SnapshotTransportError)
		glog.Warningf("roomsync: snapshot for room %s: %v", h.roomID, res.err)
		h.notify()
		return
	}
	h.store.ApplySnapshot(res.questions)
	h.status.SnapshotErr = nil
	h.status.ChangedAt = time.Now()
	h.mu.Unlock()

	h.metrics.Snapshot(metrics.SnapshotOK)
	h.metrics.Questions(len(res.questions))
	glog.V(1).Infof("roomsync: snapshot for room %s applied (%d questions)", h.roomID, len(res.questions))
	h.notify()
}

// end finishes the activation from inside the loop. It cannot wait for the
// loop to exit; Deactivate does that.
func (h *Handle) end() {
	h.mu.Lock()
	if h.phase != phaseActive {
		h.mu.Unlock()
		return
	}
	h.phase = phaseDone
	h.status.Active = false
	h.status.ChangedAt = time.Now()
	cancel, conn := h.cancel, h.conn
	h.mu.Unlock()

	cancel()
	conn.Disconnect()
	h.notify()
}

func (h *Handle) dropFrame(frame []byte, err error) {
	if errors.Is(err, event.ErrUnknownKind) {
		h.metrics.Frame(metrics.FrameIgnored)
		glog.V(1).Infof("roomsync: ignoring frame: %v", err)
		return
	}
	h.metrics.Frame(metrics.FrameMalformed)
	glog.Warningf("roomsync: dropping frame %q: %v", truncate(frame, 120), err)
}

func (h *Handle) connectionFailed(err error) {
	h.mu.Lock()
	if h.phase != phaseActive {
		h.mu.Unlock()
		return
	}
	h.status.ConnErr = err
	h.status.ChangedAt = time.Now()
	h.mu.Unlock()
	h.notify()
}

func (h *Handle) connectionChanged(s live.State) {
	glog.V(2).Infof("roomsync: room %s connection %s", h.roomID, s)
	h.mu.Lock()
	h.status.ChangedAt = time.Now()
	h.mu.Unlock()
	h.notify()
}

func (h *Handle) notify() {
	select {
	case h.updates <- struct{}{}:
	default:
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
