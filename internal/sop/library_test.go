package sop

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSOPFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestNewLibraryCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sops")
	lib, err := NewLibrary(dir)
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("library dir not created: %v", err)
	}
	sops, err := lib.List()
	if err != nil {
		t.Fatalf("list empty library: %v", err)
	}
	if len(sops) != 0 {
		t.Fatalf("fresh library should be empty, got %d", len(sops))
	}
}

func TestLibraryGet(t *testing.T) {
	dir := t.TempDir()
	writeSOPFile(t, dir, "open-store.yaml", `
title: Open the store
created_at: 2026-03-01T09:00:00Z
updated_at: 2026-03-01T10:00:00Z
steps:
  - text: Unlock the front door
    note: Keys are in the safe
  - text: Turn on the lights
`)
	lib, err := NewLibrary(dir)
	if err != nil {
		t.Fatalf("new library: %v", err)
	}

	doc, err := lib.Get("open-store")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.ID != "open-store" {
		t.Fatalf("id should default to the file name, got %q", doc.ID)
	}
	if doc.Title != "Open the store" || len(doc.Steps) != 2 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.Steps[0].ID != "open-store-step-1" || doc.Steps[1].ID != "open-store-step-2" {
		t.Fatalf("step ids not assigned: %+v", doc.Steps)
	}
	if doc.Steps[0].Note != "Keys are in the safe" {
		t.Fatalf("note lost: %+v", doc.Steps[0])
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !doc.RevisedAt().Equal(want) {
		t.Fatalf("revised at: got %s, want %s", doc.RevisedAt(), want)
	}
}

func TestLibraryGetMissing(t *testing.T) {
	lib, err := NewLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	if _, err := lib.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := lib.Get("  "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank id should be ErrNotFound, got %v", err)
	}
}

func TestLibraryTimestampsFallBackToModTime(t *testing.T) {
	dir := t.TempDir()
	writeSOPFile(t, dir, "close-store.yaml", `
title: Close the store
steps:
  - text: Lock the register
`)
	lib, err := NewLibrary(dir)
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	doc, err := lib.Get("close-store")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.CreatedAt.IsZero() || doc.UpdatedAt.IsZero() {
		t.Fatalf("timestamps should come from the file mod time: %+v", doc)
	}
	if doc.RevisedAt().IsZero() {
		t.Fatalf("revised at should never be zero for an on-disk file")
	}
}

func TestLibraryListSortsAndSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeSOPFile(t, dir, "b-second.yaml", "title: Zebra drill\nsteps:\n  - text: Run\n")
	writeSOPFile(t, dir, "a-first.yml", "title: Alarm check\nsteps:\n  - text: Check\n")
	writeSOPFile(t, dir, "broken.yaml", "title: [unclosed\n")
	writeSOPFile(t, dir, "untitled.yaml", "steps:\n  - text: No title here\n")
	writeSOPFile(t, dir, "notes.txt", "not a procedure")

	lib, err := NewLibrary(dir)
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	sops, err := lib.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sops) != 2 {
		t.Fatalf("expected 2 readable procedures, got %d", len(sops))
	}
	if sops[0].Title != "Alarm check" || sops[1].Title != "Zebra drill" {
		t.Fatalf("listing not sorted by title: %+v", sops)
	}
	if sops[0].ID != "a-first" {
		t.Fatalf(".yml extension should strip to the id, got %q", sops[0].ID)
	}
}
