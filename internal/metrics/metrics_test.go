package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_NilIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Frame(FrameDecoded)
		r.EventApplied("Create", "inserted")
		r.Snapshot(SnapshotOK)
		r.Connection(ConnOpened)
		r.Questions(3)
	})
}

func TestRecorder_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.Frame(FrameDecoded)
	r.Frame(FrameDecoded)
	r.Frame(FrameMalformed)
	r.EventApplied("Update", "dropped")
	r.Snapshot(SnapshotDiscarded)
	r.Connection(ConnFailed)
	r.Questions(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.frames.WithLabelValues(FrameDecoded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.frames.WithLabelValues(FrameMalformed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.events.WithLabelValues("Update", "dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.snapshots.WithLabelValues(SnapshotDiscarded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.connections.WithLabelValues(ConnFailed)))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.questions))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestServe_ExposesMetricsAndStops(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	reg := prometheus.NewRegistry()
	New(reg).Questions(2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, reg) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.True(t, strings.Contains(body, "amaroom_questions 2"), body)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
