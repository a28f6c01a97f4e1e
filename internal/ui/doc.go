// Package ui renders a live AMA room in the terminal with Bubble Tea.
//
// The model never mutates room state. It re-reads the synced room whenever
// the room signals a change and renders that snapshot: a header with the
// connection badge, the question list, and a notice line for the latest
// action result or connection problem.
//
// Upvotes and new questions are sent through the HTTP API and show up once
// the server broadcasts them back over the live stream. Upvote and reconnect
// keys are rate limited so a held key cannot flood the server.
//
// Theme and sort order are saved to the preferences file when changed.
package ui
