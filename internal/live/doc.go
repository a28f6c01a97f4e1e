// Package live manages the per-room websocket subscription.
//
// A Manager moves through Idle → Connecting → Open → Closed. Connect never
// waits on the network and never opens a second connection while one is
// connecting or open. An unexpected close clears the connection so that the
// next Connect dials fresh; the manager itself never retries.
//
// Inbound text frames land on Frames() in arrival order. Server pings extend
// the read deadline and are answered with pongs, so a connection that stays
// silent past ReadTimeout is treated as lost.
package live
