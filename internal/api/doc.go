// Package api provides an HTTP client for the AMA room API.
//
// # Overview
//
// This package covers the request/response half of the AMA protocol: reading a
// room's question snapshot, creating rooms and questions, and upvoting. The live
// half (the per-room event stream) lives in package live.
//
// # Endpoints
//
//   - GET   /room/{id}            room metadata
//   - GET   /room/{id}/questions  ordered question snapshot
//   - POST  /room                 {name}
//   - POST  /question             {room_id, value}
//   - PATCH /question/{id}/react  increments reaction_count
//
// Mutations are fire-and-forget from the sync client's point of view: the server
// broadcasts the resulting Create or Update event to every subscriber of the room,
// including the caller, so their return values are informational only.
//
// # Error Handling
//
// Two error types cover every failure after validation:
//
//   - *NotFoundError: HTTP 404, e.g. an unknown room
//   - *TransportError: network failure, any other 4xx/5xx, or an undecodable body
//
// The server's {"status", "error"} body is surfaced as the error message. Nothing
// in this package retries; that is a caller decision.
//
// Example error messages:
//   - "api GET /room/abc/questions: Room not found"
//   - "api GET /room/abc/questions returned status 500: Internal error"
//   - "api GET /room/abc/questions: execute request: dial tcp: connection refused"
//
// # Thread Safety
//
// Client is safe for concurrent use.
package api
