package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang/glog"
	"golang.org/x/time/rate"

	"github.com/five82/amaroom/internal/api"
	"github.com/five82/amaroom/internal/live"
	"github.com/five82/amaroom/internal/prefs"
	"github.com/five82/amaroom/internal/roomsync"
	"github.com/five82/amaroom/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewRoom View = iota
	ViewDiagnostics
)

// Room is the synced room the view renders. *roomsync.Handle implements it.
type Room interface {
	RoomID() string
	Read() state.RoomState
	Status() roomsync.Status
	Updates() <-chan struct{}
	Reconnect(ctx context.Context) error
	Refresh(ctx context.Context) error
}

var _ Room = (*roomsync.Handle)(nil)

// Actions are the room mutations the view can trigger. Their results come
// back through the live stream, so return values only feed the notice line.
type Actions interface {
	CreateQuestion(ctx context.Context, roomID, value string) (*api.Question, error)
	ReactQuestion(ctx context.Context, questionID string) (*api.Question, error)
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Room      Room
	Actions   Actions
	RoomName  string
	LogPath   string // glog INFO file shown in the diagnostics view
	ThemeName string
	Sort      string
	PrefsPath string
	Tick      time.Duration
}

const (
	noticeTTL       = 5 * time.Second
	maxQuestionLen  = 500
	diagnosticLines = 500
)

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	room      Room
	actions   Actions
	roomName  string
	logPath   string
	prefsPath string
	tick      time.Duration
	keys      keyMap

	// UI state
	theme  Theme
	sort   string
	view   View
	width  int
	height int
	ready  bool
	now    time.Time

	// Data state
	state  state.RoomState
	status roomsync.Status

	// Selection follows the question id, not the row, so arrivals and
	// re-sorting never move it.
	selectedID string
	offset     int

	notice    string
	noticeErr bool
	noticeAt  time.Time

	composing bool
	input     textinput.Model

	diagViewport viewport.Model

	showHelp bool

	upvoteLimiter    *rate.Limiter
	reconnectLimiter *rate.Limiter
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	tick := opts.Tick
	if tick <= 0 {
		tick = time.Second
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	sortMode := opts.Sort
	if sortMode != prefs.SortVotes {
		sortMode = prefs.SortArrival
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	input := textinput.New()
	input.Placeholder = "Ask something..."
	input.CharLimit = maxQuestionLen
	input.Prompt = "> "

	m := Model{
		ctx:       ctx,
		room:      opts.Room,
		actions:   opts.Actions,
		roomName:  strings.TrimSpace(opts.RoomName),
		logPath:   opts.LogPath,
		prefsPath: prefsPath,
		tick:      tick,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(themeName),
		sort:      sortMode,
		view:      ViewRoom,
		now:       time.Now(),
		input:     input,

		upvoteLimiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 3),
		reconnectLimiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
	m.sync()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.tick)}
	if m.room != nil {
		cmds = append(cmds, waitForChange(m.ctx, m.room))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.diagViewport = viewport.New(msg.Width, m.bodyHeight())
		}
		m.ready = true
		m.diagViewport.Width = msg.Width
		m.diagViewport.Height = m.bodyHeight()
		m.input.Width = maxInt(msg.Width-8, 10)
		m.scrollToSelection()
		return m, nil

	case roomChangedMsg:
		m.sync()
		return m, waitForChange(m.ctx, m.room)

	case tickMsg:
		m.now = time.Time(msg)
		if m.notice != "" && m.now.Sub(m.noticeAt) > noticeTTL {
			m.notice = ""
		}
		cmds := []tea.Cmd{tickCmd(m.tick)}
		if m.view == ViewDiagnostics {
			cmds = append(cmds, loadDiagnosticsCmd(m.logPath))
		}
		return m, tea.Batch(cmds...)

	case actionMsg:
		m.setNotice(msg.text, msg.err)
		return m, nil

	case diagnosticsMsg:
		m.handleDiagnostics(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	switch m.view {
	case ViewDiagnostics:
		b.WriteString(m.diagViewport.View())
	default:
		b.WriteString(m.renderQuestions())
	}
	b.WriteString("\n")
	if m.composing {
		b.WriteString(m.renderCompose())
		b.WriteString("\n")
	}
	b.WriteString(m.renderNotice())
	return b.String()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.composing {
		return m.handleComposeKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Diagnostics):
		m.view = ViewDiagnostics
		return m, loadDiagnosticsCmd(m.logPath)

	case key.Matches(msg, m.keys.Escape):
		m.view = ViewRoom
		return m, nil
	}

	if m.view == ViewDiagnostics {
		var cmd tea.Cmd
		m.diagViewport, cmd = m.diagViewport.Update(msg)
		return m, cmd
	}
	return m.handleRoomKey(msg)
}

func (m Model) handleRoomKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	questions := m.visibleQuestions()

	switch {
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(questions, 1)
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(questions, -1)
	case key.Matches(msg, m.keys.Top):
		if len(questions) > 0 {
			m.selectedID = questions[0].ID
		}
	case key.Matches(msg, m.keys.Bottom):
		if len(questions) > 0 {
			m.selectedID = questions[len(questions)-1].ID
		}

	case key.Matches(msg, m.keys.Upvote):
		q, ok := m.selectedQuestion(questions)
		if !ok || m.actions == nil {
			return m, nil
		}
		if !m.upvoteLimiter.Allow() {
			m.setNotice("Slow down, too many upvotes", nil)
			return m, nil
		}
		return m, upvoteCmd(m.ctx, m.actions, q)

	case key.Matches(msg, m.keys.Ask):
		if m.actions == nil {
			return m, nil
		}
		m.composing = true
		m.input.Reset()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Reconnect):
		if m.room == nil {
			return m, nil
		}
		if !m.reconnectLimiter.Allow() {
			m.setNotice("Reconnect already requested", nil)
			return m, nil
		}
		return m, reconnectCmd(m.ctx, m.room)

	case key.Matches(msg, m.keys.Refresh):
		if m.room == nil {
			return m, nil
		}
		return m, refreshCmd(m.ctx, m.room)

	case key.Matches(msg, m.keys.ToggleSort):
		m.sort = prefs.NextSort(m.sort)
		m.savePrefs()
	}

	m.scrollToSelection()
	return m, nil
}

// sync pulls the latest state and status from the room.
func (m *Model) sync() {
	if m.room == nil {
		return
	}
	m.state = m.room.Read()
	m.status = m.room.Status()
	if m.selectedID == "" && len(m.state.Questions) > 0 {
		m.selectedID = m.visibleQuestions()[0].ID
	}
	m.scrollToSelection()
}

func (m *Model) setNotice(text string, err error) {
	m.noticeErr = err != nil
	if err != nil {
		text = text + ": " + err.Error()
	}
	m.notice = text
	m.noticeAt = m.now
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, Sort: m.sort}); err != nil {
		glog.Warningf("ui: save prefs: %v", err)
	}
}

// bodyHeight is the number of rows left for the question list or log.
func (m Model) bodyHeight() int {
	used := 3 // header, command bar, notice
	if m.composing {
		used += 3
	}
	return maxInt(m.height-used, 1)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Messages

type tickMsg time.Time

type roomChangedMsg struct{}

type actionMsg struct {
	text string
	err  error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForChange(ctx context.Context, room Room) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-room.Updates():
			return roomChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func upvoteCmd(ctx context.Context, actions Actions, q api.Question) tea.Cmd {
	return func() tea.Msg {
		if _, err := actions.ReactQuestion(ctx, q.ID); err != nil {
			return actionMsg{text: "Upvote failed", err: err}
		}
		return actionMsg{text: "Upvoted: " + truncate(singleLine(q.Value), 40)}
	}
}

func reconnectCmd(ctx context.Context, room Room) tea.Cmd {
	return func() tea.Msg {
		switch room.Status().Connection {
		case live.Open:
			return actionMsg{text: "Already connected"}
		case live.Connecting:
			return actionMsg{text: "Already connecting..."}
		}
		if err := room.Reconnect(ctx); err != nil {
			return actionMsg{text: "Reconnect failed", err: err}
		}
		return actionMsg{text: "Reconnecting..."}
	}
}

func refreshCmd(ctx context.Context, room Room) tea.Cmd {
	return func() tea.Msg {
		if err := room.Refresh(ctx); err != nil {
			return actionMsg{text: "Reload failed", err: err}
		}
		return actionMsg{text: "Reloading questions..."}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
