package sop

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a procedure does not exist in the provider.
var ErrNotFound = errors.New("sop: not found")

// Step is a single instruction inside a procedure. Note carries author
// guidance that travels with the step text.
type Step struct {
	ID   string `yaml:"id" json:"id"`
	Text string `yaml:"text" json:"text"`
	Note string `yaml:"note,omitempty" json:"note,omitempty"`
}

// SOP is a titled, ordered list of instructional steps. The authoring side
// owns it; the checklist core only ever reads it.
type SOP struct {
	ID        string    `yaml:"id" json:"id"`
	Title     string    `yaml:"title" json:"title"`
	Steps     []Step    `yaml:"steps" json:"steps"`
	CreatedAt time.Time `yaml:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// RevisedAt reports the most recent edit instant, falling back to the
// creation instant for procedures that were never updated.
func (s SOP) RevisedAt() time.Time {
	if !s.UpdatedAt.IsZero() {
		return s.UpdatedAt
	}
	return s.CreatedAt
}

// Validate enforces baseline requirements before a procedure can be served.
func (s SOP) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("sop: id is required")
	}
	if strings.TrimSpace(s.Title) == "" {
		return errors.New("sop: title is required")
	}
	return nil
}

// Provider resolves procedures by ID. Implementations return ErrNotFound
// (possibly wrapped) when the procedure does not exist.
type Provider interface {
	Get(id string) (SOP, error)
}
