package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/amaroom/internal/api"
	"github.com/five82/amaroom/internal/live"
	"github.com/five82/amaroom/internal/prefs"
	"github.com/five82/amaroom/internal/roomsync"
	"github.com/five82/amaroom/internal/state"
)

type fakeRoom struct {
	mu         sync.Mutex
	st         state.RoomState
	status     roomsync.Status
	updates    chan struct{}
	reconnects int
	refreshes  int
}

func newFakeRoom(qs ...api.Question) *fakeRoom {
	return &fakeRoom{
		st:      state.RoomState{Questions: qs, Loaded: true, Version: 1, UpdatedAt: time.Now()},
		status:  roomsync.Status{RoomID: "r1", Active: true, Connection: live.Open},
		updates: make(chan struct{}, 1),
	}
}

func (f *fakeRoom) RoomID() string { return "r1" }

func (f *fakeRoom) Read() state.RoomState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st
}

func (f *fakeRoom) Status() roomsync.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeRoom) Updates() <-chan struct{} { return f.updates }

func (f *fakeRoom) Reconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	return nil
}

func (f *fakeRoom) Refresh(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return nil
}

type fakeActions struct {
	mu      sync.Mutex
	asked   []string
	reacted []string
	err     error
}

func (f *fakeActions) CreateQuestion(_ context.Context, roomID, value string) (*api.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.asked = append(f.asked, roomID+":"+value)
	return &api.Question{ID: "new", Value: value}, nil
}

func (f *fakeActions) ReactQuestion(_ context.Context, id string) (*api.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.reacted = append(f.reacted, id)
	return &api.Question{ID: id}, nil
}

func testQuestions() []api.Question {
	return []api.Question{
		{ID: "q1", Value: "first", ReactionCount: 1},
		{ID: "q2", Value: "second", ReactionCount: 5},
		{ID: "q3", Value: "third", ReactionCount: 3, Answered: true},
	}
}

func newTestModel(t *testing.T, room Room, actions Actions) (Model, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.toml")
	m := New(Options{Room: room, Actions: actions, RoomName: "Town hall", PrefsPath: path})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	return next.(Model), path
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, c := m.Update(msg)
		m = next.(Model)
		cmd = c
	}
	return m, cmd
}

func TestModel_SelectionFollowsKeys(t *testing.T) {
	m, _ := newTestModel(t, newFakeRoom(testQuestions()...), &fakeActions{})
	if m.selectedID != "q1" {
		t.Fatalf("initial selection = %q, want q1", m.selectedID)
	}

	m, _ = press(t, m, "j", "j", "j")
	if m.selectedID != "q3" {
		t.Fatalf("after j x3 selection = %q, want q3", m.selectedID)
	}
	m, _ = press(t, m, "g")
	if m.selectedID != "q1" {
		t.Fatalf("after g selection = %q, want q1", m.selectedID)
	}
	m, _ = press(t, m, "G")
	if m.selectedID != "q3" {
		t.Fatalf("after G selection = %q, want q3", m.selectedID)
	}
}

func TestModel_ToggleSortReordersAndPersists(t *testing.T) {
	m, path := newTestModel(t, newFakeRoom(testQuestions()...), &fakeActions{})

	m, _ = press(t, m, "s")
	if m.sort != prefs.SortVotes {
		t.Fatalf("sort = %q, want votes", m.sort)
	}
	var ids []string
	for _, q := range m.visibleQuestions() {
		ids = append(ids, q.ID)
	}
	if got := strings.Join(ids, ","); got != "q2,q3,q1" {
		t.Fatalf("votes order = %s, want q2,q3,q1", got)
	}
	if m.state.Questions[0].ID != "q1" {
		t.Fatal("sorting must not reorder the room state")
	}

	saved, err := prefs.Load(path)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if saved.Sort != prefs.SortVotes {
		t.Fatalf("saved sort = %q, want votes", saved.Sort)
	}
	if saved.Theme != m.theme.Name {
		t.Fatalf("saved theme = %q, want %q", saved.Theme, m.theme.Name)
	}
}

func TestModel_AskRejectsEmptyAndSendsText(t *testing.T) {
	actions := &fakeActions{}
	m, _ := newTestModel(t, newFakeRoom(testQuestions()...), actions)

	m, _ = press(t, m, "a")
	if !m.composing {
		t.Fatal("a should open the compose line")
	}
	m, cmd := press(t, m, "enter")
	if cmd != nil {
		t.Fatal("empty question should not be sent")
	}
	if m.notice != "Question is empty" || !m.composing {
		t.Fatalf("notice = %q composing = %v", m.notice, m.composing)
	}

	m, _ = press(t, m, "w", "h", "y", "?")
	m, cmd = press(t, m, "enter")
	if m.composing {
		t.Fatal("compose line should close after submit")
	}
	if cmd == nil {
		t.Fatal("expected ask command")
	}
	msg := cmd().(actionMsg)
	if msg.err != nil {
		t.Fatalf("ask returned error: %v", msg.err)
	}
	if len(actions.asked) != 1 || actions.asked[0] != "r1:why?" {
		t.Fatalf("asked = %v, want [r1:why?]", actions.asked)
	}
}

func TestModel_ComposeEscCancels(t *testing.T) {
	actions := &fakeActions{}
	m, _ := newTestModel(t, newFakeRoom(testQuestions()...), actions)

	m, _ = press(t, m, "a", "x", "esc")
	if m.composing {
		t.Fatal("esc should close the compose line")
	}
	if m.input.Value() != "" {
		t.Fatalf("input = %q, want reset", m.input.Value())
	}
	if len(actions.asked) != 0 {
		t.Fatal("cancelled question was sent")
	}
}

func TestModel_UpvoteIsRateLimited(t *testing.T) {
	actions := &fakeActions{}
	m, _ := newTestModel(t, newFakeRoom(testQuestions()...), actions)

	var cmds []tea.Cmd
	for i := 0; i < 3; i++ {
		var cmd tea.Cmd
		m, cmd = press(t, m, "u")
		if cmd == nil {
			t.Fatalf("upvote %d: expected command", i+1)
		}
		cmds = append(cmds, cmd)
	}
	m, cmd := press(t, m, "u")
	if cmd != nil {
		t.Fatal("fourth rapid upvote should be limited")
	}
	if !strings.Contains(m.notice, "Slow down") {
		t.Fatalf("notice = %q", m.notice)
	}

	for _, c := range cmds {
		c()
	}
	if len(actions.reacted) != 3 || actions.reacted[0] != "q1" {
		t.Fatalf("reacted = %v", actions.reacted)
	}
}

func TestModel_ActionErrorShowsNotice(t *testing.T) {
	actions := &fakeActions{err: errors.New("boom")}
	m, _ := newTestModel(t, newFakeRoom(testQuestions()...), actions)

	_, cmd := press(t, m, "u")
	next, _ := m.Update(cmd())
	m = next.(Model)
	if !m.noticeErr || !strings.Contains(m.notice, "boom") {
		t.Fatalf("notice = %q err = %v", m.notice, m.noticeErr)
	}
}

func TestModel_ConnectionErrorNotice(t *testing.T) {
	room := newFakeRoom(testQuestions()...)
	room.status.Connection = live.Closed
	room.status.ConnErr = errors.New("read: connection reset")
	m, _ := newTestModel(t, room, &fakeActions{})

	text, _ := m.noticeText(m.theme.Styles())
	if !strings.Contains(text, "connection reset") || !strings.Contains(text, "reconnect") {
		t.Fatalf("notice = %q", text)
	}

	_, cmd := press(t, m, "r")
	if cmd == nil {
		t.Fatal("expected reconnect command")
	}
	cmd()
	if room.reconnects != 1 {
		t.Fatalf("reconnects = %d, want 1", room.reconnects)
	}
}

func TestModel_RoomChangeResyncs(t *testing.T) {
	room := newFakeRoom(testQuestions()[:1]...)
	m, _ := newTestModel(t, room, &fakeActions{})

	room.mu.Lock()
	room.st.Questions = testQuestions()
	room.mu.Unlock()

	next, cmd := m.Update(roomChangedMsg{})
	m = next.(Model)
	if m.state.Len() != 3 {
		t.Fatalf("questions = %d, want 3", m.state.Len())
	}
	if cmd == nil {
		t.Fatal("expected the model to keep waiting for changes")
	}
	if m.selectedID != "q1" {
		t.Fatalf("selection = %q, want it kept on q1", m.selectedID)
	}
	if !strings.Contains(m.View(), "Town") {
		t.Fatal("view should render the room name")
	}
}

func TestModel_ReconnectWhileOpenIsNoop(t *testing.T) {
	room := newFakeRoom(testQuestions()...)
	m, _ := newTestModel(t, room, &fakeActions{})

	_, cmd := press(t, m, "r")
	if cmd == nil {
		t.Fatal("expected reconnect command")
	}
	msg := cmd().(actionMsg)
	if msg.text != "Already connected" || msg.err != nil {
		t.Fatalf("reconnect message = %+v, want Already connected", msg)
	}
	if room.reconnects != 0 {
		t.Fatalf("reconnects = %d, want 0 while open", room.reconnects)
	}
}

func TestModel_MissingRoomNotice(t *testing.T) {
	room := newFakeRoom()
	room.status.Active = false
	room.status.Connection = live.Closed
	room.status.SnapshotErr = &api.NotFoundError{Op: "GET /room/r1/questions", Message: "Room not found"}
	m, _ := newTestModel(t, room, &fakeActions{})

	text, _ := m.noticeText(m.theme.Styles())
	if !strings.Contains(text, "no longer exists") {
		t.Fatalf("notice = %q", text)
	}
}
