package checklist

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opsdeck/opsdeck/internal/sop"
)

// Status enumerates the lifecycle phases of a checklist run.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

// ErrNoSteps is returned when a checklist would be created from a
// procedure with an empty step list.
var ErrNoSteps = errors.New("checklist: procedure has no steps")

// Step is one checklist entry: the frozen copy of the source step plus the
// execution state layered on top. Text and Note never change after the
// snapshot is taken; Completed, CompletedAt, and UserNote are the only
// mutable fields.
type Step struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Note        string     `json:"note,omitempty"`
	UserNote    string     `json:"user_note,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Order       int        `json:"order"`
}

// Checklist is an executable instance derived from an SOP snapshot. Once
// created it lives independently of the source procedure: the title and
// step content are copies, and SOPID is a weak reference that may point at
// a procedure that no longer exists.
type Checklist struct {
	ID             string     `json:"id"`
	SOPID          string     `json:"sop_id"`
	SOPTitle       string     `json:"sop_title"`
	SOPSnapshotAt  time.Time  `json:"sop_snapshot_at"`
	Steps          []Step     `json:"steps"`
	Status         Status     `json:"status"`
	CompletedSteps int        `json:"completed_steps"`
	TotalSteps     int        `json:"total_steps"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// NewFromSOP snapshots a procedure into a fresh checklist. Step text and
// notes are deep-copied, execution state starts cleared, and the snapshot
// anchor records the procedure's revision instant for later staleness
// checks. Procedures without steps are rejected.
func NewFromSOP(src sop.SOP, id string, now time.Time) (Checklist, error) {
	if len(src.Steps) == 0 {
		return Checklist{}, fmt.Errorf("%w: %s", ErrNoSteps, src.ID)
	}
	steps := make([]Step, len(src.Steps))
	for i, s := range src.Steps {
		steps[i] = Step{
			ID:    s.ID,
			Text:  s.Text,
			Note:  s.Note,
			Order: i + 1,
		}
	}
	c := Checklist{
		ID:            id,
		SOPID:         src.ID,
		SOPTitle:      src.Title,
		SOPSnapshotAt: src.RevisedAt(),
		Steps:         steps,
		Status:        StatusInProgress,
		TotalSteps:    len(steps),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return c, nil
}

// Recompute rederives the step counts and status from the step list. It is
// the only way counts and completion status change; callers never assign
// them directly. The completion instant is stamped when the recompute
// crosses into fully-complete, and cleared again on any reversal.
func (c *Checklist) Recompute(now time.Time) {
	completed := 0
	for _, s := range c.Steps {
		if s.Completed {
			completed++
		}
	}
	c.CompletedSteps = completed
	c.TotalSteps = len(c.Steps)
	if c.TotalSteps > 0 && completed == c.TotalSteps {
		if c.Status != StatusCompleted {
			c.Status = StatusCompleted
			at := now
			c.CompletedAt = &at
		}
	} else if c.Status == StatusCompleted {
		c.Status = StatusInProgress
		c.CompletedAt = nil
	}
	c.UpdatedAt = now
}

// IsComplete reports whether every step is checked off.
func (c Checklist) IsComplete() bool {
	return c.TotalSteps > 0 && c.CompletedSteps == c.TotalSteps
}

// Validate guards against malformed persisted records. A checklist that
// fails validation is treated as invalid by the session layer, never as a
// crash.
func (c Checklist) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("checklist: id is required")
	}
	if len(c.Steps) == 0 {
		return errors.New("checklist: steps are missing")
	}
	return nil
}

// Clone deep-copies the checklist so callers can hand out snapshots
// without exposing internal step slices to mutation.
func (c Checklist) Clone() Checklist {
	out := c
	out.Steps = make([]Step, len(c.Steps))
	copy(out.Steps, c.Steps)
	for i := range out.Steps {
		if c.Steps[i].CompletedAt != nil {
			at := *c.Steps[i].CompletedAt
			out.Steps[i].CompletedAt = &at
		}
	}
	if c.CompletedAt != nil {
		at := *c.CompletedAt
		out.CompletedAt = &at
	}
	return out
}
