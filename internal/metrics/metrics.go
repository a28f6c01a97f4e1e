// Package metrics exposes Prometheus counters for room synchronization.
//
// A nil *Recorder is valid and records nothing, so components take one as an
// optional dependency.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "amaroom"

// Frame results.
const (
	FrameDecoded   = "decoded"
	FrameMalformed = "malformed"
	FrameIgnored   = "ignored"
)

// Snapshot results.
const (
	SnapshotOK             = "ok"
	SnapshotNotFound       = "not_found"
	SnapshotTransportError = "transport_error"
	SnapshotDiscarded      = "discarded"
)

// Connection results.
const (
	ConnOpened = "opened"
	ConnFailed = "failed"
	ConnClosed = "closed"
)

// Recorder holds the sync collectors.
type Recorder struct {
	frames      *prometheus.CounterVec
	events      *prometheus.CounterVec
	snapshots   *prometheus.CounterVec
	connections *prometheus.CounterVec
	questions   prometheus.Gauge
}

// New creates a Recorder and registers its collectors with reg. A nil reg
// leaves the collectors unregistered, which is useful in tests.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Stream frames received, by decode result.",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_applied_total",
			Help:      "Events applied to the room state, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Snapshot fetches, by result.",
		}, []string{"result"}),
		connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Live connection transitions, by result.",
		}, []string{"result"}),
		questions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "questions",
			Help:      "Questions currently held for the room.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.frames, r.events, r.snapshots, r.connections, r.questions)
	}
	return r
}

// Frame counts one received frame.
func (r *Recorder) Frame(result string) {
	if r == nil {
		return
	}
	r.frames.WithLabelValues(result).Inc()
}

// EventApplied counts one event handed to the store.
func (r *Recorder) EventApplied(kind, outcome string) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(kind, outcome).Inc()
}

// Snapshot counts one snapshot fetch result.
func (r *Recorder) Snapshot(result string) {
	if r == nil {
		return
	}
	r.snapshots.WithLabelValues(result).Inc()
}

// Connection counts one connection transition.
func (r *Recorder) Connection(result string) {
	if r == nil {
		return
	}
	r.connections.WithLabelValues(result).Inc()
}

// Questions sets the current question count.
func (r *Recorder) Questions(n int) {
	if r == nil {
		return
	}
	r.questions.Set(float64(n))
}

// Serve exposes g on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		glog.V(1).Infof("metrics listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
