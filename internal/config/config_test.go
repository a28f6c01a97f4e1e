package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{envAPIURL, envWSURL, envLogDir, envAutoReconnect} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.WSURL != "ws://127.0.0.1:3333" {
		t.Fatalf("WSURL = %q, want %q", cfg.WSURL, "ws://127.0.0.1:3333")
	}
	if cfg.RequestTimeout != defaultRequestTimeout {
		t.Fatalf("RequestTimeout = %v, want %v", cfg.RequestTimeout, defaultRequestTimeout)
	}
	if cfg.AutoReconnect {
		t.Fatal("AutoReconnect should default to false")
	}
	if cfg.ReconnectInterval != defaultReconnectInterval {
		t.Fatalf("ReconnectInterval = %v, want %v", cfg.ReconnectInterval, defaultReconnectInterval)
	}

	wantLogDir, err := expandPath(defaultLogDir)
	if err != nil {
		t.Fatalf("expandPath(defaultLogDir) returned error: %v", err)
	}
	if cfg.LogDir != wantLogDir {
		t.Fatalf("LogDir = %q, want %q", cfg.LogDir, wantLogDir)
	}
	if cfg.InfoLogPath() != filepath.Join(wantLogDir, "amaroom.INFO") {
		t.Fatalf("InfoLogPath = %q", cfg.InfoLogPath())
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	path := writeConfig(t, `
api_url = "  https://ama.example/api/  "
request_timeout = " 750ms "
log_dir = "  ~/.amaroom/logs  "
auto_reconnect = true
reconnect_interval = "3s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://ama.example/api/" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.WSURL != "wss://ama.example/api" {
		t.Fatalf("WSURL = %q, want derived wss URL", cfg.WSURL)
	}
	if cfg.RequestTimeout != 750*time.Millisecond {
		t.Fatalf("RequestTimeout = %v, want 750ms", cfg.RequestTimeout)
	}
	if !strings.HasPrefix(cfg.LogDir, home) {
		t.Fatalf("LogDir = %q, want it under HOME %q", cfg.LogDir, home)
	}
	if !cfg.AutoReconnect {
		t.Fatal("AutoReconnect = false, want true")
	}
	if cfg.ReconnectInterval != 3*time.Second {
		t.Fatalf("ReconnectInterval = %v, want 3s", cfg.ReconnectInterval)
	}
}

func TestLoad_ExplicitWSURLWins(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	path := writeConfig(t, `
api_url = "http://10.0.0.5:8080"
ws_url = "ws://10.0.0.6:9090"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.WSURL != "ws://10.0.0.6:9090" {
		t.Fatalf("WSURL = %q, want explicit value", cfg.WSURL)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	path := writeConfig(t, `
api_url = "   "
log_dir = ""
request_timeout = ""
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.RequestTimeout != defaultRequestTimeout {
		t.Fatalf("RequestTimeout = %v, want default", cfg.RequestTimeout)
	}
	wantLogDir, err := expandPath(defaultLogDir)
	if err != nil {
		t.Fatalf("expandPath(defaultLogDir) returned error: %v", err)
	}
	if cfg.LogDir != wantLogDir {
		t.Fatalf("LogDir = %q, want %q", cfg.LogDir, wantLogDir)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	path := writeConfig(t, `
api_url = "http://file.example"
auto_reconnect = false
`)
	t.Setenv(envAPIURL, "https://env.example:8443")
	t.Setenv(envLogDir, "~/env-logs")
	t.Setenv(envAutoReconnect, "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://env.example:8443" {
		t.Fatalf("APIURL = %q, want env value", cfg.APIURL)
	}
	if cfg.WSURL != "wss://env.example:8443" {
		t.Fatalf("WSURL = %q, want derived from env api url", cfg.WSURL)
	}
	if cfg.LogDir != filepath.Join(home, "env-logs") {
		t.Fatalf("LogDir = %q", cfg.LogDir)
	}
	if !cfg.AutoReconnect {
		t.Fatal("AutoReconnect should follow env")
	}
}

func TestLoad_EnvAPIURLKeepsExplicitFileWSURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	path := writeConfig(t, `
api_url = "http://file.example"
ws_url = "wss://stream.example/live"
`)
	t.Setenv(envAPIURL, "https://env.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://env.example" {
		t.Fatalf("APIURL = %q, want env value", cfg.APIURL)
	}
	if cfg.WSURL != "wss://stream.example/live" {
		t.Fatalf("WSURL = %q, want the file's explicit value", cfg.WSURL)
	}

	t.Setenv(envWSURL, "ws://override.example")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.WSURL != "ws://override.example" {
		t.Fatalf("WSURL = %q, want env override", cfg.WSURL)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	cases := map[string]string{
		"bad toml":     `api_url = `,
		"bad duration": `request_timeout = "soon"`,
		"negative":     `reconnect_interval = "-1s"`,
		"bad scheme":   `api_url = "ftp://x"`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	t.Run("bad env bool", func(t *testing.T) {
		t.Setenv(envAutoReconnect, "maybe")
		if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Fatal("expected error for invalid AMAROOM_AUTO_RECONNECT")
		}
	})
}

func TestDeriveWSURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://127.0.0.1:3333", "ws://127.0.0.1:3333"},
		{"https://ama.example", "wss://ama.example"},
		{"https://ama.example/base/", "wss://ama.example/base"},
		{"localhost:3333", "ws://localhost:3333"},
	}
	for _, tt := range tests {
		got, err := DeriveWSURL(tt.in)
		if err != nil {
			t.Fatalf("DeriveWSURL(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("DeriveWSURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := DeriveWSURL("http://"); err == nil {
		t.Fatal("expected error for missing host")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("AMAROOM_TEST_ONLY=from-file\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("AMAROOM_TEST_ONLY", "")
	os.Unsetenv("AMAROOM_TEST_ONLY")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("AMAROOM_TEST_ONLY"); got != "from-file" {
		t.Fatalf("AMAROOM_TEST_ONLY = %q, want from-file", got)
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err == nil {
		t.Fatal("explicit missing env file should fail")
	}

	chdir(t, dir)
	if err := LoadEnvFile(""); err != nil {
		t.Fatalf("default .env absence should be tolerated: %v", err)
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
