// Package state reconciles a room's question snapshot with its live events.
//
// # Overview
//
// Two sources describe the same room: a one-shot snapshot from the HTTP API
// and an unbounded stream of Create/Update events from the live connection.
// They race. The Store merges them into one ordered list with unique ids that
// the UI can render at any moment.
//
//	Snapshot loader:               Event pump:
//	┌──────────────────┐          ┌──────────────────┐
//	│ FetchQuestions() │          │ Decode(frame)    │
//	│       ↓          │          │       ↓          │
//	│ ApplySnapshot()  │───┐  ┌───│ ApplyEvent()     │
//	└──────────────────┘   ↓  ↓   └──────────────────┘
//	                     ┌──────┐
//	                     │Store │──→ Read() → render
//	                     └──────┘
//
// # Merge Rules
//
//   - ApplySnapshot replaces the whole list (never merges) and sets Loaded.
//   - Create appends an unseen id, or overwrites a known one in place.
//   - Update overwrites a known id in place and is dropped for an unknown id.
//   - The last write for an id wins; reaction counts are not compared.
//
// Positions are stable: an id keeps its slot until the next snapshot. Events
// may arrive before the snapshot; they are applied and then superseded when the
// snapshot lands.
//
// # Concurrency Model
//
// A sync.RWMutex guards the list. The sync loop is the only writer; the UI and
// CLI read. Read returns a RoomState with a cloned question slice, so callers
// may keep or modify it freely.
//
// Version increases on every mutation and lets readers skip re-rendering an
// unchanged state. Dropped events do not bump it.
//
// # Zero Value
//
// The zero Store is ready to use and reports Loaded == false until the first
// snapshot is applied.
package state
