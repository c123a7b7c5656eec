// internal/config/config.go
//
// This package handles configuration and the .opsdeck directory structure.
// Every project that uses opsdeck gets a .opsdeck/ folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// OpsdeckDir is the name of the directory we create in each project
	OpsdeckDir = ".opsdeck"

	// StorageFile keeps the run history in a single JSON document.
	StorageFile = "file"
	// StorageSQLite keeps the run history in a local sqlite database.
	StorageSQLite = "sqlite"

	defaultAutosaveMillis = 1000
)

const defaultProjectConfigYAML = `# opsdeck project configuration
version: 1

# Where procedure definitions live, relative to the project root.
sops_dir: .opsdeck/sops

# Storage driver for checklist runs: file or sqlite.
storage: file

# Quiet window in milliseconds before an autosave write runs.
autosave_ms: 1000
`

// ProjectConfig models .opsdeck/config.yaml.
type ProjectConfig struct {
	Version    int    `yaml:"version"`
	SOPsDir    string `yaml:"sops_dir"`
	Storage    string `yaml:"storage"`
	AutosaveMS int    `yaml:"autosave_ms"`
}

// Config holds the runtime configuration for opsdeck.
type Config struct {
	// ProjectDir is the directory where the user ran `opsdeck` from
	ProjectDir string

	// OpsdeckProjectDir is ProjectDir/.opsdeck
	OpsdeckProjectDir string

	Project ProjectConfig
}

// InitOpsdeckDir creates the .opsdeck directory structure in the given
// project directory. Called on startup before anything else runs.
//
// Structure created:
// .opsdeck/
// ├── sops/     <- Procedure definitions (one YAML file per SOP)
// ├── runs/     <- Checklist run storage
// └── logs/     <- Activity log
func InitOpsdeckDir(projectDir string) error {
	opsdeckDir := filepath.Join(projectDir, OpsdeckDir)

	dirs := []string{
		filepath.Join(opsdeckDir, "sops"),
		filepath.Join(opsdeckDir, "runs"),
		filepath.Join(opsdeckDir, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return ensureProjectConfig(filepath.Join(opsdeckDir, "config.yaml"))
}

// NewConfig creates a Config populated with project settings.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:        projectDir,
		OpsdeckProjectDir: filepath.Join(projectDir, OpsdeckDir),
		Project:           defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SOPsDir returns the directory holding procedure definitions.
func (c *Config) SOPsDir() string {
	if filepath.IsAbs(c.Project.SOPsDir) {
		return c.Project.SOPsDir
	}
	return filepath.Join(c.ProjectDir, c.Project.SOPsDir)
}

// RunsDir returns the directory holding checklist run storage.
func (c *Config) RunsDir() string {
	return filepath.Join(c.OpsdeckProjectDir, "runs")
}

// RunStorePath returns the JSON store path for the file storage driver.
func (c *Config) RunStorePath() string {
	return filepath.Join(c.RunsDir(), "checklists.json")
}

// RunDBPath returns the database path for the sqlite storage driver.
func (c *Config) RunDBPath() string {
	return filepath.Join(c.RunsDir(), "checklists.db")
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.OpsdeckProjectDir, "logs")
}

// ProjectConfigPath returns the on-disk location for the config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.OpsdeckProjectDir, "config.yaml")
}

// AutosaveDelay returns the debounce quiet window as a duration.
func (c *Config) AutosaveDelay() time.Duration {
	return time.Duration(c.Project.AutosaveMS) * time.Millisecond
}

// Storage returns the configured storage driver name.
func (c *Config) Storage() string {
	return c.Project.Storage
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:    1,
		SOPsDir:    filepath.Join(OpsdeckDir, "sops"),
		Storage:    StorageFile,
		AutosaveMS: defaultAutosaveMillis,
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.SOPsDir) == "" {
		pc.SOPsDir = filepath.Join(OpsdeckDir, "sops")
	}
	if strings.TrimSpace(pc.Storage) == "" {
		pc.Storage = StorageFile
	}
	if pc.AutosaveMS <= 0 {
		pc.AutosaveMS = defaultAutosaveMillis
	}
}

func (pc *ProjectConfig) normalize() {
	pc.SOPsDir = filepath.Clean(strings.TrimSpace(pc.SOPsDir))
	pc.Storage = strings.ToLower(strings.TrimSpace(pc.Storage))
}

func (pc ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	switch pc.Storage {
	case StorageFile, StorageSQLite:
	default:
		return fmt.Errorf("storage must be %q or %q", StorageFile, StorageSQLite)
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
