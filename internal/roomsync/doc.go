// Package roomsync keeps a room's question list current by combining the
// HTTP snapshot with the live event stream.
//
// A Handle covers one activation. Activate starts exactly one connection
// attempt, one snapshot fetch, one frame decoder and one reconciler loop. The
// loop is the only goroutine that writes the store. Deactivate cancels all of
// it once; a snapshot that completes afterwards is thrown away instead of
// reviving the room.
//
// A snapshot that reports the room as missing ends the activation the same
// way: the connection closes and Reconnect and Refresh return ErrInactive.
// Other snapshot failures only show up in Status.
//
// Connection loss is reported through Status and never retried here. Callers
// that want automatic reconnects drive Reconnect themselves.
package roomsync
