package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/five82/amaroom/internal/api"
	"github.com/five82/amaroom/internal/config"
	"github.com/five82/amaroom/internal/live"
	"github.com/five82/amaroom/internal/metrics"
	"github.com/five82/amaroom/internal/prefs"
	"github.com/five82/amaroom/internal/roomsync"
	"github.com/five82/amaroom/internal/ui"
)

// Options configure the amaroom commands.
type Options struct {
	ConfigPath  string
	EnvFile     string // empty loads ./.env when present
	PrefsPath   string // empty uses default ~/.config/amaroom/prefs.toml
	MetricsAddr string // empty disables the /metrics listener
}

// Setup loads the environment file and configuration and points glog at the
// configured log directory.
func Setup(opts Options) (config.Config, error) {
	if err := config.LoadEnvFile(opts.EnvFile); err != nil {
		return config.Config{}, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := setupLogging(cfg.LogDir); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

var logOnce sync.Once

// setupLogging sets glog's log_dir unless the user passed one. glog opens its
// files on first write, so this must run before anything logs.
func setupLogging(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	var err error
	logOnce.Do(func() {
		f := flag.Lookup("log_dir")
		if f == nil || f.Value.String() != "" {
			return
		}
		err = flag.Set("log_dir", dir)
	})
	return err
}

// NewClient builds the HTTP API client for cfg.
func NewClient(cfg config.Config) (*api.Client, error) {
	client, err := api.NewClient(cfg.APIURL, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}
	return client, nil
}

// session is one activated room plus the services around it.
type session struct {
	cfg      config.Config
	client   *api.Client
	handle   *roomsync.Handle
	room     *api.Room
	registry *prometheus.Registry
}

// open validates the room, activates a handle for it and starts the optional
// supervisor and metrics listener. The caller must call close.
func open(ctx context.Context, opts Options, roomID string) (*session, error) {
	cfg, err := Setup(opts)
	if err != nil {
		return nil, err
	}
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	room, err := client.FetchRoom(ctx, roomID)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, fmt.Errorf("room %s does not exist: %w", roomID, err)
		}
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}

	s := &session{cfg: cfg, client: client, room: room}

	var rec *metrics.Recorder
	if opts.MetricsAddr != "" {
		s.registry = prometheus.NewRegistry()
		rec = metrics.New(s.registry)
		go func() {
			if err := metrics.Serve(ctx, opts.MetricsAddr, s.registry); err != nil {
				glog.Warningf("metrics server: %v", err)
			}
		}()
	}

	connect := roomsync.LiveConnector(cfg.WSURL, live.Options{HandshakeTimeout: cfg.RequestTimeout})
	s.handle = roomsync.New(room.ID, client, connect, roomsync.WithMetrics(rec))
	if err := s.handle.Activate(ctx); err != nil {
		return nil, fmt.Errorf("activate room %s: %w", room.ID, err)
	}

	if cfg.AutoReconnect {
		NewSupervisor(s.handle, cfg.ReconnectInterval).Start(ctx)
	}
	glog.Infof("watching room %s (%s) via %s", room.ID, room.Name, cfg.WSURL)
	return s, nil
}

func (s *session) close() {
	s.handle.Deactivate()
	glog.Flush()
}

// Watch runs the room TUI until the user quits or ctx is cancelled.
func Watch(ctx context.Context, opts Options, roomID string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := open(ctx, opts, roomID)
	if err != nil {
		return err
	}
	defer s.close()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	return ui.Run(ui.Options{
		Context:   ctx,
		Room:      s.handle,
		Actions:   s.client,
		RoomName:  s.room.Name,
		LogPath:   s.cfg.InfoLogPath(),
		ThemeName: userPrefs.Theme,
		Sort:      userPrefs.Sort,
		PrefsPath: opts.PrefsPath,
	})
}

// Tail syncs the room without the TUI and writes each change to w until ctx
// is cancelled.
func Tail(ctx context.Context, opts Options, roomID string, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := open(ctx, opts, roomID)
	if err != nil {
		return err
	}
	defer s.close()

	fmt.Fprintf(w, "room %s (%s)\n", s.room.ID, s.room.Name)
	return follow(ctx, s.handle, w)
}
