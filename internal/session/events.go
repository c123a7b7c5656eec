package session

import "github.com/opsdeck/opsdeck/internal/checklist"

// EventKind is the closed set of lifecycle notifications a session emits.
// Unknown kinds cannot be constructed by callers, so a subscriber switch
// over the enum is exhaustive at compile time.
type EventKind int

const (
	// EventCompleted fires when a checklist transitions to completed.
	EventCompleted EventKind = iota
	// EventBack fires when the user leaves a session, including failed
	// session starts that should navigate the caller away.
	EventBack
	// EventStepChanged fires on every step toggle.
	EventStepChanged
)

// String names the event kind for logs.
func (k EventKind) String() string {
	switch k {
	case EventCompleted:
		return "completed"
	case EventBack:
		return "back"
	case EventStepChanged:
		return "step_changed"
	default:
		return "unknown"
	}
}

// Event is the notification payload. Checklist is a snapshot clone; Step
// and StepIndex are populated for EventStepChanged; Err is populated when
// an EventBack was caused by a failure.
type Event struct {
	Kind      EventKind
	Checklist checklist.Checklist
	Step      checklist.Step
	StepIndex int
	Err       error
}

// Subscriber consumes session events. Delivery is synchronous and purely
// observational; subscribers must not call back into the session.
type Subscriber func(Event)

// Logger records session diagnostics. It matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}
