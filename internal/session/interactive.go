package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opsdeck/opsdeck/internal/checklist"
	"github.com/opsdeck/opsdeck/internal/sop"
)

// InteractiveSession owns one running checklist. Mutating methods run to
// completion before returning; the only background activity is the
// debounced autosave timer, which persists a snapshot of whatever state it
// finds when it fires. The model assumes a single active editor per
// checklist; two editors are last-write-wins.
type InteractiveSession struct {
	mgr   *Manager
	saver *autosave

	mu         sync.Mutex
	current    checklist.Checklist
	persistErr error
	// source caches the live SOP when it resolved at session start, so
	// Restart can still identify the procedure if the checklist record's
	// reference ever goes blank.
	source *sop.SOP
}

// Checklist returns a snapshot of the current state.
func (s *InteractiveSession) Checklist() checklist.Checklist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Progress derives the current completion report.
func (s *InteractiveSession) Progress() checklist.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return checklist.Progress(s.current.Steps)
}

// ToggleStep sets a step's completion state. Counts and status are
// recomputed, the change is scheduled for a debounced persist, and a
// StepChanged event fires. Reaching full completion persists immediately
// and fires Completed.
func (s *InteractiveSession) ToggleStep(index int, completed bool) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.current.Steps) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrStepOutOfRange, index)
	}
	now := s.mgr.clock()
	wasComplete := s.current.IsComplete()
	step := &s.current.Steps[index]
	step.Completed = completed
	if completed {
		at := now
		step.CompletedAt = &at
	} else {
		step.CompletedAt = nil
	}
	s.current.Recompute(now)
	justCompleted := s.current.IsComplete() && !wasComplete
	stepCopy := *step
	snapshot := s.current.Clone()
	s.mu.Unlock()

	if justCompleted {
		s.persistNow(snapshot)
	} else {
		s.saver.Schedule()
	}
	s.mgr.emit(Event{Kind: EventStepChanged, Checklist: snapshot, Step: stepCopy, StepIndex: index})
	if justCompleted {
		s.mgr.logf("session: checklist %s completed", snapshot.ID)
		s.mgr.emit(Event{Kind: EventCompleted, Checklist: snapshot})
	}
	return nil
}

// UpdateStepNote sets the user's annotation on a step. Notes never affect
// completion, so no status recompute happens; the write is debounced.
func (s *InteractiveSession) UpdateStepNote(index int, text string) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.current.Steps) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrStepOutOfRange, index)
	}
	s.current.Steps[index].UserNote = text
	s.current.UpdatedAt = s.mgr.clock()
	s.mu.Unlock()
	s.saver.Schedule()
	return nil
}

// ResetAll clears every step's completion state and user note and returns
// the checklist to in_progress. Destructive, so the caller confirms first;
// the write bypasses the debounce.
func (s *InteractiveSession) ResetAll() error {
	s.mu.Lock()
	now := s.mgr.clock()
	for i := range s.current.Steps {
		s.current.Steps[i].Completed = false
		s.current.Steps[i].CompletedAt = nil
		s.current.Steps[i].UserNote = ""
	}
	s.current.Status = checklist.StatusInProgress
	s.current.CompletedAt = nil
	s.current.Recompute(now)
	snapshot := s.current.Clone()
	s.mu.Unlock()
	s.persistNow(snapshot)
	s.mgr.logf("session: checklist %s reset", snapshot.ID)
	return s.lastPersistErr()
}

// MarkAllComplete completes every remaining step with one shared
// timestamp. Reversible via ResetAll, so no confirmation is required.
func (s *InteractiveSession) MarkAllComplete() error {
	s.mu.Lock()
	now := s.mgr.clock()
	wasComplete := s.current.IsComplete()
	for i := range s.current.Steps {
		if !s.current.Steps[i].Completed {
			s.current.Steps[i].Completed = true
			at := now
			s.current.Steps[i].CompletedAt = &at
		}
	}
	s.current.Recompute(now)
	justCompleted := s.current.IsComplete() && !wasComplete
	snapshot := s.current.Clone()
	s.mu.Unlock()
	s.persistNow(snapshot)
	if justCompleted {
		s.mgr.logf("session: checklist %s completed", snapshot.ID)
		s.mgr.emit(Event{Kind: EventCompleted, Checklist: snapshot})
	}
	return s.lastPersistErr()
}

// RestartCheck reports what a restart would do before any state changes.
type RestartCheck struct {
	// SOP is the live procedure a restart would snapshot.
	SOP sop.SOP
	// Stale is true when the procedure was edited after this checklist's
	// snapshot was taken; the caller must confirm before restarting.
	Stale      bool
	SnapshotAt time.Time
	RevisedAt  time.Time
}

// PrepareRestart resolves the live procedure and detects staleness. It
// never mutates anything; a deleted source SOP aborts with
// ErrSourceSOPDeleted.
func (s *InteractiveSession) PrepareRestart() (RestartCheck, error) {
	s.mu.Lock()
	sopID := s.current.SOPID
	if sopID == "" && s.source != nil {
		sopID = s.source.ID
	}
	snapshotAt := s.current.SOPSnapshotAt
	s.mu.Unlock()

	live, err := s.mgr.sops.Get(sopID)
	if err != nil {
		if errors.Is(err, sop.ErrNotFound) {
			return RestartCheck{}, fmt.Errorf("%w: %s", ErrSourceSOPDeleted, sopID)
		}
		return RestartCheck{}, fmt.Errorf("session: resolve sop %s: %w", sopID, err)
	}
	revised := live.RevisedAt()
	return RestartCheck{
		SOP:        live,
		Stale:      revised.After(snapshotAt),
		SnapshotAt: snapshotAt,
		RevisedAt:  revised,
	}, nil
}

// Restart creates a brand-new checklist from the live procedure with a
// fresh snapshot. The current checklist is flushed and left untouched;
// callers run PrepareRestart first and obtain confirmation when the
// procedure is stale.
func (s *InteractiveSession) Restart() (*InteractiveSession, error) {
	check, err := s.PrepareRestart()
	if err != nil {
		return nil, err
	}
	s.saver.Flush()
	return s.mgr.StartFromSOP(check.SOP.ID)
}

// Back leaves the session: any pending debounced write is flushed so no
// edit is lost, then the Back event fires.
func (s *InteractiveSession) Back() {
	s.saver.Flush()
	s.mgr.emit(Event{Kind: EventBack, Checklist: s.Checklist()})
}

// persistSnapshot is the autosave callback: it stores whatever the
// current state is at fire time, coalescing a burst of edits into one
// write of the final state.
func (s *InteractiveSession) persistSnapshot() {
	s.persistNow(s.Checklist())
}

func (s *InteractiveSession) persistNow(c checklist.Checklist) {
	s.saver.Cancel()
	if err := s.mgr.repo.Upsert(c); err != nil {
		s.mu.Lock()
		s.persistErr = err
		s.mu.Unlock()
		s.mgr.logf("session: persist checklist %s: %v", c.ID, err)
		return
	}
	s.mu.Lock()
	s.persistErr = nil
	s.mu.Unlock()
}

func (s *InteractiveSession) lastPersistErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persistErr != nil {
		return fmt.Errorf("session: persist checklist: %w", s.persistErr)
	}
	return nil
}
