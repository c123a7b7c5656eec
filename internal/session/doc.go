// Package session implements the checklist execution engine: it converts
// a mutable SOP into an immutable checklist snapshot, tracks per-step
// completion and notes, derives aggregate status, and schedules debounced
// persistence. Edits to the source SOP never touch checklists already in
// flight.
package session
