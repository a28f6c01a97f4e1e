package app

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/five82/amaroom/internal/live"
	"github.com/five82/amaroom/internal/roomsync"
)

const (
	defaultReconnectInterval = 2 * time.Second
	maxBackoff               = 30 * time.Second
	supervisorTick           = 500 * time.Millisecond
)

// reconnecter is the part of a synced room the supervisor drives.
type reconnecter interface {
	Status() roomsync.Status
	Reconnect(ctx context.Context) error
}

// Supervisor reconnects a room whose live connection dropped, backing off
// exponentially while attempts keep failing.
type Supervisor struct {
	room     reconnecter
	base     time.Duration
	failures int
	retryAt  time.Time
}

// NewSupervisor returns a supervisor for room. A non-positive base uses the
// default reconnect interval.
func NewSupervisor(room reconnecter, base time.Duration) *Supervisor {
	if base <= 0 {
		base = defaultReconnectInterval
	}
	return &Supervisor{room: room, base: base}
}

// Start runs the supervisor in a background goroutine. It returns immediately.
func (s *Supervisor) Start(ctx context.Context) {
	go s.Run(ctx)
}

// Run checks the connection on a fixed tick until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(supervisorTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !s.step(ctx, now) {
				return
			}
		}
	}
}

// step looks at the connection once. It returns false when the room is no
// longer active and supervision should stop.
func (s *Supervisor) step(ctx context.Context, now time.Time) bool {
	st := s.room.Status()
	if !st.Active {
		return false
	}

	switch st.Connection {
	case live.Open:
		if s.failures > 0 {
			glog.V(1).Infof("supervisor: room %s reconnected after %d attempt(s)", st.RoomID, s.failures)
		}
		s.failures = 0
		s.retryAt = time.Time{}

	case live.Idle, live.Closed:
		if s.retryAt.IsZero() {
			delay := calculateBackoff(s.failures, s.base)
			s.retryAt = now.Add(delay)
			glog.V(1).Infof("supervisor: room %s disconnected, retrying in %v", st.RoomID, delay)
			return true
		}
		if now.Before(s.retryAt) {
			return true
		}
		s.failures++
		s.retryAt = time.Time{}
		if err := s.room.Reconnect(ctx); err != nil {
			if errors.Is(err, roomsync.ErrInactive) {
				return false
			}
			glog.Warningf("supervisor: reconnect room %s: %v", st.RoomID, err)
		}
	}
	return true
}

// calculateBackoff returns base doubled once per consecutive failure, capped
// at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
