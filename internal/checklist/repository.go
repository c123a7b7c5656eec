package checklist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when a checklist does not exist in the repository.
var ErrNotFound = errors.New("checklist: not found")

// Repository is durable keyed storage for checklists. Writes are
// last-write-wins per ID; ListAll imposes no ordering guarantee beyond
// preserving what the driver stores, so callers sort.
type Repository interface {
	ListAll() ([]Checklist, error)
	Get(id string) (Checklist, error)
	Upsert(Checklist) error
	DeleteByID(id string) error
}

// FileRepository stores the whole collection as one JSON document. New
// checklists are prepended so the file reads most-recent-first, matching
// how the run history is browsed.
type FileRepository struct {
	path string
}

// NewFileRepository creates a repository backed by a single JSON file.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// ListAll reads every stored checklist. A missing file is an empty
// repository, not an error.
func (r *FileRepository) ListAll() ([]Checklist, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("checklist: read store: %w", err)
	}
	var items []Checklist
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("checklist: parse store: %w", err)
	}
	return items, nil
}

// Get returns the checklist with the given ID.
func (r *FileRepository) Get(id string) (Checklist, error) {
	items, err := r.ListAll()
	if err != nil {
		return Checklist{}, err
	}
	for _, c := range items {
		if c.ID == id {
			return c, nil
		}
	}
	return Checklist{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Upsert replaces an existing record in place or prepends a new one.
func (r *FileRepository) Upsert(c Checklist) error {
	items, err := r.ListAll()
	if err != nil {
		return err
	}
	replaced := false
	for i := range items {
		if items[i].ID == c.ID {
			items[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		items = append([]Checklist{c}, items...)
	}
	return r.write(items)
}

// DeleteByID removes a record. Deleting an absent ID is a no-op.
func (r *FileRepository) DeleteByID(id string) error {
	items, err := r.ListAll()
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, c := range items {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	return r.write(kept)
}

func (r *FileRepository) write(items []Checklist) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("checklist: ensure store dir: %w", err)
	}
	if items == nil {
		items = []Checklist{}
	}
	encoded, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("checklist: encode store: %w", err)
	}
	return os.WriteFile(r.path, append(encoded, '\n'), 0o644)
}
