package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/five82/amaroom/internal/api"
	"github.com/five82/amaroom/internal/roomsync"
	"github.com/five82/amaroom/internal/state"
)

// syncedRoom is what follow reads from. *roomsync.Handle implements it.
type syncedRoom interface {
	Read() state.RoomState
	Status() roomsync.Status
	Updates() <-chan struct{}
}

// follow prints the difference between consecutive reads of room each time it
// signals a change.
func follow(ctx context.Context, room syncedRoom, w io.Writer) error {
	var (
		prev       state.RoomState
		prevStatus roomsync.Status
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-room.Updates():
		}

		now := time.Now()
		st := room.Status()
		writeStatus(w, now, prevStatus, st)
		prevStatus = st
		if !st.Active && api.IsNotFound(st.SnapshotErr) {
			return fmt.Errorf("room sync ended: %w", st.SnapshotErr)
		}

		next := room.Read()
		writeChanges(w, now, prev, next)
		prev = next
	}
}

func writeStatus(w io.Writer, now time.Time, prev, next roomsync.Status) {
	ts := now.Format("15:04:05")
	if next.Connection != prev.Connection {
		fmt.Fprintf(w, "%s connection %s\n", ts, next.Connection)
	}
	if next.ConnErr != nil && (prev.ConnErr == nil || prev.ConnErr.Error() != next.ConnErr.Error()) {
		fmt.Fprintf(w, "%s live updates stopped: %v\n", ts, next.ConnErr)
	}
	if next.SnapshotErr != nil && (prev.SnapshotErr == nil || prev.SnapshotErr.Error() != next.SnapshotErr.Error()) {
		fmt.Fprintf(w, "%s snapshot failed: %v\n", ts, next.SnapshotErr)
	}
}

// writeChanges prints new and changed questions. The first loaded snapshot
// prints the whole list.
func writeChanges(w io.Writer, now time.Time, prev, next state.RoomState) {
	if next.Version == prev.Version {
		return
	}
	ts := now.Format("15:04:05")
	if next.Loaded && !prev.Loaded {
		fmt.Fprintf(w, "%s loaded %s %s\n", ts, humanize.Comma(int64(next.Len())), pluralize(next.Len(), "question", "questions"))
	}

	old := make(map[string]api.Question, len(prev.Questions))
	for _, q := range prev.Questions {
		old[q.ID] = q
	}
	for _, q := range next.Questions {
		was, ok := old[q.ID]
		switch {
		case !ok:
			fmt.Fprintf(w, "%s + %s\n", ts, formatQuestion(q))
		case was != q:
			fmt.Fprintf(w, "%s ~ %s\n", ts, formatQuestion(q))
		}
	}
}

func formatQuestion(q api.Question) string {
	line := fmt.Sprintf("%s ▲%d %s", q.ID, q.ReactionCount, q.Preview())
	if q.Answered {
		line += " (answered)"
	}
	return line
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

var _ syncedRoom = (*roomsync.Handle)(nil)
