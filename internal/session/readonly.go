package session

import "github.com/opsdeck/opsdeck/internal/checklist"

// ReadOnlySession is the historical view of a checklist. Completed runs
// are audit records, so this type simply has no mutating methods: the
// compiler enforces read-only instead of a runtime flag threaded through
// every handler.
type ReadOnlySession struct {
	mgr     *Manager
	current checklist.Checklist
}

// Checklist returns a snapshot of the record being viewed.
func (s *ReadOnlySession) Checklist() checklist.Checklist {
	return s.current.Clone()
}

// Progress derives the completion report for display.
func (s *ReadOnlySession) Progress() checklist.Report {
	return checklist.Progress(s.current.Steps)
}

// Back leaves the view. Nothing was mutable, so there is nothing to flush.
func (s *ReadOnlySession) Back() {
	s.mgr.emit(Event{Kind: EventBack, Checklist: s.Checklist()})
}
