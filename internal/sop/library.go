package sop

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Library serves procedures from a directory of YAML files, one procedure
// per file. The file's base name doubles as the procedure ID when the
// document omits one, so a library can be maintained by hand.
type Library struct {
	dir string
}

// NewLibrary points a library at a directory. The directory is created on
// demand so a fresh project starts with an empty library instead of an error.
func NewLibrary(dir string) (*Library, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("sop: library directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sop: ensure library dir: %w", err)
	}
	return &Library{dir: dir}, nil
}

// Dir returns the directory backing this library.
func (l *Library) Dir() string {
	return l.dir
}

// Get loads a single procedure by ID.
func (l *Library) Get(id string) (SOP, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return SOP{}, ErrNotFound
	}
	path := filepath.Join(l.dir, id+".yaml")
	doc, err := l.load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SOP{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return SOP{}, err
	}
	return doc, nil
}

// List returns every procedure in the library sorted by title. Unreadable
// files are skipped rather than failing the whole listing.
func (l *Library) List() ([]SOP, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("sop: read library dir: %w", err)
	}
	var sops []SOP
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		doc, err := l.load(filepath.Join(l.dir, entry.Name()))
		if err != nil {
			continue
		}
		sops = append(sops, doc)
	}
	sort.Slice(sops, func(i, j int) bool {
		return strings.ToLower(sops[i].Title) < strings.ToLower(sops[j].Title)
	})
	return sops, nil
}

func (l *Library) load(path string) (SOP, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SOP{}, err
	}
	var doc SOP
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return SOP{}, fmt.Errorf("sop: parse %s: %w", path, err)
	}
	doc.normalize(path)
	if err := doc.Validate(); err != nil {
		return SOP{}, fmt.Errorf("sop: %s: %w", path, err)
	}
	return doc, nil
}

// normalize fills in the pieces a hand-written file may omit: the ID from
// the file name, per-step IDs from their position, and timestamps from the
// file's modification time.
func (doc *SOP) normalize(path string) {
	if strings.TrimSpace(doc.ID) == "" {
		base := filepath.Base(path)
		doc.ID = strings.TrimSuffix(strings.TrimSuffix(base, ".yaml"), ".yml")
	}
	doc.ID = strings.TrimSpace(doc.ID)
	doc.Title = strings.TrimSpace(doc.Title)
	for i := range doc.Steps {
		doc.Steps[i].Text = strings.TrimSpace(doc.Steps[i].Text)
		if strings.TrimSpace(doc.Steps[i].ID) == "" {
			doc.Steps[i].ID = fmt.Sprintf("%s-step-%d", doc.ID, i+1)
		}
	}
	if doc.UpdatedAt.IsZero() || doc.CreatedAt.IsZero() {
		if info, err := os.Stat(path); err == nil {
			if doc.CreatedAt.IsZero() {
				doc.CreatedAt = info.ModTime().UTC()
			}
			if doc.UpdatedAt.IsZero() {
				doc.UpdatedAt = info.ModTime().UTC()
			}
		}
	}
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
