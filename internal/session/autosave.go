package session

import (
	"sync"
	"time"
)

// DefaultAutosaveDelay is the quiet window after the last mutation before
// a debounced write runs.
const DefaultAutosaveDelay = time.Second

// autosave coalesces rapid mutations into a single durable write. Each
// Schedule call restarts the quiet window; Flush runs a pending write
// immediately and Cancel discards it. The write callback captures the
// current checklist state when it finally runs, so a coalesced write
// always stores the final state of the burst.
type autosave struct {
	mu      sync.Mutex
	delay   time.Duration
	write   func()
	timer   *time.Timer
	pending bool
}

func newAutosave(delay time.Duration, write func()) *autosave {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &autosave{delay: delay, write: write}
}

// Schedule arms (or re-arms) the debounce timer.
func (a *autosave) Schedule() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

// Flush runs any pending write now. Safe to call when nothing is pending.
func (a *autosave) Flush() {
	a.mu.Lock()
	due := a.pending
	a.pending = false
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	if due {
		a.write()
	}
}

// Cancel discards any pending write, used when an immediate persist has
// already stored the same state.
func (a *autosave) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = false
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *autosave) fire() {
	a.mu.Lock()
	due := a.pending
	a.pending = false
	a.timer = nil
	a.mu.Unlock()
	if due {
		a.write()
	}
}
