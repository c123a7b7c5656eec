package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInitOpsdeckDirCreatesStructure(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitOpsdeckDir(projectDir); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, sub := range []string{"sops", "runs", "logs"} {
		dir := filepath.Join(projectDir, OpsdeckDir, sub)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("missing directory %s: %v", dir, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(projectDir, OpsdeckDir, "config.yaml"))
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if !strings.Contains(string(data), "storage: file") {
		t.Fatalf("default config unexpected:\n%s", data)
	}

	// A second init must not clobber an edited config.
	path := filepath.Join(projectDir, OpsdeckDir, "config.yaml")
	if err := os.WriteFile(path, []byte("version: 1\nstorage: sqlite\n"), 0o644); err != nil {
		t.Fatalf("edit config: %v", err)
	}
	if err := InitOpsdeckDir(projectDir); err != nil {
		t.Fatalf("second init: %v", err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "sqlite") {
		t.Fatalf("init overwrote existing config:\n%s", data)
	}
}

func TestNewConfigDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.Project.Version != 1 {
		t.Fatalf("version: got %d, want 1", cfg.Project.Version)
	}
	if cfg.Storage() != StorageFile {
		t.Fatalf("storage: got %q, want %q", cfg.Storage(), StorageFile)
	}
	if cfg.AutosaveDelay() != time.Second {
		t.Fatalf("autosave delay: got %s, want 1s", cfg.AutosaveDelay())
	}
	if got := cfg.SOPsDir(); got != filepath.Join(projectDir, OpsdeckDir, "sops") {
		t.Fatalf("sops dir: %s", got)
	}
	if got := cfg.RunStorePath(); got != filepath.Join(projectDir, OpsdeckDir, "runs", "checklists.json") {
		t.Fatalf("run store path: %s", got)
	}
	if got := cfg.RunDBPath(); got != filepath.Join(projectDir, OpsdeckDir, "runs", "checklists.db") {
		t.Fatalf("run db path: %s", got)
	}
}

func TestNewConfigReadsProjectFile(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitOpsdeckDir(projectDir); err != nil {
		t.Fatalf("init: %v", err)
	}
	yaml := strings.Join([]string{
		"version: 1",
		"sops_dir: procedures",
		"storage: SQLite",
		"autosave_ms: 250",
	}, "\n")
	path := filepath.Join(projectDir, OpsdeckDir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.Storage() != StorageSQLite {
		t.Fatalf("storage not normalized: %q", cfg.Storage())
	}
	if cfg.AutosaveDelay() != 250*time.Millisecond {
		t.Fatalf("autosave delay: %s", cfg.AutosaveDelay())
	}
	if got := cfg.SOPsDir(); got != filepath.Join(projectDir, "procedures") {
		t.Fatalf("relative sops dir should resolve against the project: %s", got)
	}
}

func TestNewConfigPartialFileGetsDefaults(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitOpsdeckDir(projectDir); err != nil {
		t.Fatalf("init: %v", err)
	}
	path := filepath.Join(projectDir, OpsdeckDir, "config.yaml")
	if err := os.WriteFile(path, []byte("storage: sqlite\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.Project.Version != 1 || cfg.AutosaveDelay() != time.Second {
		t.Fatalf("defaults not applied: %+v", cfg.Project)
	}
	if cfg.Storage() != StorageSQLite {
		t.Fatalf("explicit value lost: %q", cfg.Storage())
	}
}

func TestNewConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{name: "unknown storage", yaml: "version: 1\nstorage: redis\n"},
		{name: "malformed yaml", yaml: "storage: [unclosed\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			projectDir := t.TempDir()
			if err := InitOpsdeckDir(projectDir); err != nil {
				t.Fatalf("init: %v", err)
			}
			path := filepath.Join(projectDir, OpsdeckDir, "config.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := NewConfig(projectDir); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}
