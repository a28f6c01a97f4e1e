// Package config loads the amaroom client configuration.
//
// # Overview
//
// The client needs two endpoints (the HTTP API and the websocket base), a
// request timeout, a log directory and the optional reconnect policy. All of
// them have defaults, so a missing config file is not an error.
//
// # Resolution Order
//
//  1. Built-in defaults
//  2. The TOML file (explicit path, else ~/.config/amaroom/config.toml)
//  3. Environment variables (AMAROOM_API_URL, AMAROOM_WS_URL,
//     AMAROOM_LOG_DIR, AMAROOM_AUTO_RECONNECT)
//
// LoadEnvFile can seed the environment from a .env file before Load runs.
// Variables already set in the process win over the file.
//
// # TOML Format
//
//	api_url            = "http://127.0.0.1:3333"
//	ws_url             = ""      # derived from api_url when empty
//	request_timeout    = "5s"
//	log_dir            = "~/.local/state/amaroom/logs"
//	auto_reconnect     = false
//	reconnect_interval = "2s"
//
// Every field is optional. Values are trimmed and tilde paths are expanded.
// When ws_url is empty it is derived from api_url, path prefix included, so
// the stream and the REST calls share one base. An api_url from the
// environment re-derives it unless the file set ws_url explicitly; an
// AMAROOM_WS_URL override always wins.
//
// # Error Handling
//
// Load fails on unreadable files, invalid TOML, unparsable durations,
// negative durations, non-http API schemes and malformed boolean overrides.
package config
