// Package app wires configuration, the API client, room sync and the
// front ends together. It is the composition root for cmd/amaroom.
//
// # Startup
//
//  1. Load the .env file and the TOML config (env overrides file)
//  2. Point glog at the configured log directory
//  3. Validate the room with GET /room/{id}
//  4. Activate a roomsync.Handle with a live websocket connector
//  5. Optionally start the reconnect supervisor and the /metrics listener
//  6. Run the TUI (Watch) or print changes to a writer (Tail)
//
// Deactivating the handle on the way out closes the connection and discards
// any snapshot still in flight.
//
// # Reconnecting
//
// The client does not reconnect on its own. With auto_reconnect enabled, a
// Supervisor checks the connection on a short tick and calls Reconnect once
// the backoff for the current failure count has elapsed. Backoff starts at
// reconnect_interval, doubles per failed attempt and is capped at 30s. An open
// connection resets the count.
//
// # One-shot commands
//
// ListQuestions, ShowRoom, CreateRoom, Ask and React call the HTTP API once
// and print the result. Questions created or upvoted this way reach watching
// clients through the room stream.
package app
