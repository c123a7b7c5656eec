package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opsdeck/opsdeck/internal/checklist"
	"github.com/opsdeck/opsdeck/internal/sop"
)

// Typed failures surfaced by the session layer. Every failure path is
// recoverable; the caller decides on messaging and navigation.
var (
	ErrSOPNotFound       = errors.New("session: sop not found")
	ErrSOPHasNoSteps     = errors.New("session: sop has no steps")
	ErrChecklistNotFound = errors.New("session: checklist not found")
	ErrChecklistInvalid  = errors.New("session: checklist invalid")
	ErrSourceSOPDeleted  = errors.New("session: source sop deleted")
	ErrStepOutOfRange    = errors.New("session: step index out of range")
)

// Manager orchestrates the checklist lifecycle: snapshot creation, resume,
// read-only viewing, deletion, and the query helpers the UI lists are
// built from. Mutating a running checklist happens on the sessions it
// hands out, never on the manager itself.
type Manager struct {
	sops  sop.Provider
	repo  checklist.Repository
	clock func() time.Time
	newID func() string
	delay time.Duration
	log   Logger

	mu   sync.Mutex
	subs []Subscriber
}

// Option customizes the manager instance.
type Option func(*Manager)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithIDGenerator overrides checklist ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithAutosaveDelay overrides the debounce quiet window.
func WithAutosaveDelay(delay time.Duration) Option {
	return func(m *Manager) {
		if delay > 0 {
			m.delay = delay
		}
	}
}

// WithLogger injects a logger for lifecycle diagnostics.
func WithLogger(log Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// New wires a session manager to an SOP provider and checklist repository.
func New(sops sop.Provider, repo checklist.Repository, opts ...Option) (*Manager, error) {
	if sops == nil {
		return nil, fmt.Errorf("session: sop provider is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("session: checklist repository is required")
	}
	m := &Manager{
		sops:  sops,
		repo:  repo,
		clock: time.Now,
		newID: uuid.NewString,
		delay: DefaultAutosaveDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Subscribe registers a lifecycle event subscriber. Zero subscribers is a
// no-op, never an error.
func (m *Manager) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
}

func (m *Manager) emit(e Event) {
	m.mu.Lock()
	subs := make([]Subscriber, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()
	for _, fn := range subs {
		fn(e)
	}
}

func (m *Manager) logf(format string, args ...any) {
	if m.log != nil {
		m.log.Printf(format, args...)
	}
}

// CreateFromSOP snapshots the procedure into a fresh checklist and
// persists it. Nothing is written on failure, and no events fire: only
// user-driven transitions notify.
func (m *Manager) CreateFromSOP(sopID string) (checklist.Checklist, error) {
	src, err := m.sops.Get(sopID)
	if err != nil {
		if errors.Is(err, sop.ErrNotFound) {
			return checklist.Checklist{}, fmt.Errorf("%w: %s", ErrSOPNotFound, sopID)
		}
		return checklist.Checklist{}, fmt.Errorf("session: resolve sop %s: %w", sopID, err)
	}
	c, err := checklist.NewFromSOP(src, m.newID(), m.clock())
	if err != nil {
		if errors.Is(err, checklist.ErrNoSteps) {
			return checklist.Checklist{}, fmt.Errorf("%w: %s", ErrSOPHasNoSteps, sopID)
		}
		return checklist.Checklist{}, err
	}
	if err := m.repo.Upsert(c); err != nil {
		return checklist.Checklist{}, fmt.Errorf("session: persist checklist: %w", err)
	}
	m.logf("session: created checklist %s from sop %s (%d steps)", c.ID, sopID, c.TotalSteps)
	return c, nil
}

// StartFromSOP is the public entry for running a new checklist. On failure
// it emits the Back event carrying the error so the caller navigates away.
func (m *Manager) StartFromSOP(sopID string) (*InteractiveSession, error) {
	c, err := m.CreateFromSOP(sopID)
	if err != nil {
		m.emit(Event{Kind: EventBack, Err: err})
		return nil, err
	}
	src, srcErr := m.sops.Get(sopID)
	s := m.newInteractive(c)
	if srcErr == nil {
		s.source = &src
	}
	return s, nil
}

// Resume continues an existing, possibly paused checklist. The source SOP
// is re-fetched only to prime the restart staleness check; its absence is
// tolerated.
func (m *Manager) Resume(checklistID string) (*InteractiveSession, error) {
	c, err := m.loadValid(checklistID)
	if err != nil {
		return nil, err
	}
	s := m.newInteractive(c)
	if src, srcErr := m.sops.Get(c.SOPID); srcErr == nil {
		s.source = &src
	}
	return s, nil
}

// ViewCompleted loads a checklist as an immutable historical record. The
// returned type exposes no mutating methods, so read-only is enforced by
// the compiler rather than a runtime flag.
func (m *Manager) ViewCompleted(checklistID string) (*ReadOnlySession, error) {
	c, err := m.loadValid(checklistID)
	if err != nil {
		return nil, err
	}
	return &ReadOnlySession{mgr: m, current: c}, nil
}

// DeleteChecklist removes the record unconditionally. The source SOP is
// never touched.
func (m *Manager) DeleteChecklist(id string) error {
	if err := m.repo.DeleteByID(id); err != nil {
		return fmt.Errorf("session: delete checklist %s: %w", id, err)
	}
	m.logf("session: deleted checklist %s", id)
	return nil
}

// Checklist is a direct non-mutating lookup.
func (m *Manager) Checklist(id string) (checklist.Checklist, error) {
	c, err := m.repo.Get(id)
	if err != nil {
		if errors.Is(err, checklist.ErrNotFound) {
			return checklist.Checklist{}, fmt.Errorf("%w: %s", ErrChecklistNotFound, id)
		}
		return checklist.Checklist{}, err
	}
	return c, nil
}

// RecentChecklists lists runs sorted by UpdatedAt descending, capped at
// limit when limit > 0.
func (m *Manager) RecentChecklists(limit int) ([]checklist.Checklist, error) {
	items, err := m.repo.ListAll()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// InProgressChecklists lists unfinished runs, most recently touched first.
func (m *Manager) InProgressChecklists() ([]checklist.Checklist, error) {
	items, err := m.RecentChecklists(0)
	if err != nil {
		return nil, err
	}
	kept := items[:0]
	for _, c := range items {
		if c.Status == checklist.StatusInProgress {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

func (m *Manager) loadValid(id string) (checklist.Checklist, error) {
	c, err := m.repo.Get(id)
	if err != nil {
		if errors.Is(err, checklist.ErrNotFound) {
			return checklist.Checklist{}, fmt.Errorf("%w: %s", ErrChecklistNotFound, id)
		}
		return checklist.Checklist{}, fmt.Errorf("session: load checklist %s: %w", id, err)
	}
	if err := c.Validate(); err != nil {
		return checklist.Checklist{}, fmt.Errorf("%w: %v", ErrChecklistInvalid, err)
	}
	return c, nil
}

func (m *Manager) newInteractive(c checklist.Checklist) *InteractiveSession {
	s := &InteractiveSession{mgr: m, current: c}
	s.saver = newAutosave(m.delay, s.persistSnapshot)
	return s
}
