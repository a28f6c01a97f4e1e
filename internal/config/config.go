package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything the client needs to reach an AMA server.
type Config struct {
	APIURL            string
	WSURL             string
	RequestTimeout    time.Duration
	LogDir            string
	AutoReconnect     bool
	ReconnectInterval time.Duration

	wsExplicit bool // ws_url was set by the file, not derived
}

const (
	defaultConfigPath        = "~/.config/amaroom/config.toml"
	defaultLogDir            = "~/.local/state/amaroom/logs"
	defaultAPIURL            = "http://127.0.0.1:3333"
	defaultRequestTimeout    = 5 * time.Second
	defaultReconnectInterval = 2 * time.Second
	defaultEnvFile           = ".env"

	envAPIURL        = "AMAROOM_API_URL"
	envWSURL         = "AMAROOM_WS_URL"
	envLogDir        = "AMAROOM_LOG_DIR"
	envAutoReconnect = "AMAROOM_AUTO_RECONNECT"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:            defaultAPIURL,
		WSURL:             mustDeriveWS(defaultAPIURL),
		RequestTimeout:    defaultRequestTimeout,
		LogDir:            mustExpand(defaultLogDir),
		ReconnectInterval: defaultReconnectInterval,
	}
}

// LoadEnvFile loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. An empty path reads
// ./.env and tolerates its absence; an explicit path must exist.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", defaultEnvFile, err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load parses the config at path (or the default location), falling back to
// defaults when the file is missing, then applies environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		if err := parse(file, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.finish(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parse(r io.Reader, cfg *Config) error {
	bytes, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL            string `toml:"api_url"`
		WSURL             string `toml:"ws_url"`
		RequestTimeout    string `toml:"request_timeout"`
		LogDir            string `toml:"log_dir"`
		AutoReconnect     *bool  `toml:"auto_reconnect"`
		ReconnectInterval string `toml:"reconnect_interval"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
		cfg.WSURL = ""
	}
	if v := strings.TrimSpace(raw.WSURL); v != "" {
		cfg.WSURL = v
		cfg.wsExplicit = true
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.LogDir = v
	}
	if raw.AutoReconnect != nil {
		cfg.AutoReconnect = *raw.AutoReconnect
	}
	if d, err := parseDuration("request_timeout", raw.RequestTimeout); err != nil {
		return err
	} else if d > 0 {
		cfg.RequestTimeout = d
	}
	if d, err := parseDuration("reconnect_interval", raw.ReconnectInterval); err != nil {
		return err
	} else if d > 0 {
		cfg.ReconnectInterval = d
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(envAPIURL)); v != "" {
		cfg.APIURL = v
		if !cfg.wsExplicit {
			cfg.WSURL = ""
		}
	}
	if v := strings.TrimSpace(os.Getenv(envWSURL)); v != "" {
		cfg.WSURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envLogDir)); v != "" {
		cfg.LogDir = v
	}
	if v := strings.TrimSpace(os.Getenv(envAutoReconnect)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envAutoReconnect, err)
		}
		cfg.AutoReconnect = b
	}
	return nil
}

// finish derives the websocket URL when unset and expands the log dir.
func (c *Config) finish() error {
	if c.WSURL == "" {
		ws, err := DeriveWSURL(c.APIURL)
		if err != nil {
			return err
		}
		c.WSURL = ws
	}
	c.LogDir = mustExpand(c.LogDir)
	return nil
}

// DeriveWSURL maps an http(s) API URL to its ws(s) counterpart.
func DeriveWSURL(apiURL string) (string, error) {
	trimmed := strings.TrimSpace(apiURL)
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse api_url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("api_url %q: unsupported scheme %q", apiURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("api_url %q missing host", apiURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String(), nil
}

// InfoLogPath returns the glog INFO symlink inside the log directory.
func (c Config) InfoLogPath() string {
	dir := strings.TrimSpace(c.LogDir)
	if dir == "" {
		dir = mustExpand(defaultLogDir)
	}
	return filepath.Join(dir, "amaroom.INFO")
}

func parseDuration(field, value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("parse %s: must not be negative", field)
	}
	return d, nil
}

func mustDeriveWS(apiURL string) string {
	ws, err := DeriveWSURL(apiURL)
	if err != nil {
		return ""
	}
	return ws
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
