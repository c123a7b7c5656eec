package checklist

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores checklists in a local sqlite database. The step
// list is serialized as JSON inside the row; the repository contract is
// keyed blob storage, so there is no need to normalize steps into their
// own table.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at dbPath and runs
// migrations.
func OpenSQLite(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("checklist: ensure db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("checklist: open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	repo := &SQLiteRepository{db: db}
	if err := repo.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS checklists (
			id TEXT PRIMARY KEY,
			sop_id TEXT NOT NULL,
			sop_title TEXT NOT NULL,
			sop_snapshot_at TEXT NOT NULL,
			status TEXT NOT NULL,
			completed_steps INTEGER NOT NULL,
			total_steps INTEGER NOT NULL,
			steps_json TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			completed_at TEXT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_checklists_updated ON checklists(updated_at DESC);`,
	}
	for _, statement := range statements {
		if _, err := r.db.Exec(statement); err != nil {
			return fmt.Errorf("checklist: migration failed: %w", err)
		}
	}
	return nil
}

// ListAll returns every stored checklist, newest creation first.
func (r *SQLiteRepository) ListAll() ([]Checklist, error) {
	rows, err := r.db.Query(
		`SELECT id, sop_id, sop_title, sop_snapshot_at, status, completed_steps, total_steps, steps_json, created_at, updated_at, completed_at
		 FROM checklists
		 ORDER BY created_at DESC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Checklist, 0)
	for rows.Next() {
		c, scanErr := scanChecklist(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Get returns the checklist with the given ID.
func (r *SQLiteRepository) Get(id string) (Checklist, error) {
	row := r.db.QueryRow(
		`SELECT id, sop_id, sop_title, sop_snapshot_at, status, completed_steps, total_steps, steps_json, created_at, updated_at, completed_at
		 FROM checklists WHERE id = ?`,
		id,
	)
	c, err := scanChecklist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Checklist{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Checklist{}, err
	}
	return c, nil
}

// Upsert writes the whole record, replacing any existing row.
func (r *SQLiteRepository) Upsert(c Checklist) error {
	stepsJSON, err := json.Marshal(c.Steps)
	if err != nil {
		return fmt.Errorf("checklist: encode steps: %w", err)
	}
	_, err = r.db.Exec(
		`INSERT INTO checklists(id, sop_id, sop_title, sop_snapshot_at, status, completed_steps, total_steps, steps_json, created_at, updated_at, completed_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			sop_id = excluded.sop_id,
			sop_title = excluded.sop_title,
			sop_snapshot_at = excluded.sop_snapshot_at,
			status = excluded.status,
			completed_steps = excluded.completed_steps,
			total_steps = excluded.total_steps,
			steps_json = excluded.steps_json,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			completed_at = excluded.completed_at`,
		c.ID,
		c.SOPID,
		c.SOPTitle,
		formatInstant(c.SOPSnapshotAt),
		string(c.Status),
		c.CompletedSteps,
		c.TotalSteps,
		string(stepsJSON),
		formatInstant(c.CreatedAt),
		formatInstant(c.UpdatedAt),
		nullableInstant(c.CompletedAt),
	)
	return err
}

// DeleteByID removes a row. Deleting an absent ID is a no-op.
func (r *SQLiteRepository) DeleteByID(id string) error {
	_, err := r.db.Exec(`DELETE FROM checklists WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChecklist(scanner rowScanner) (Checklist, error) {
	var c Checklist
	var snapshotAt, createdAt, updatedAt string
	var completedAt sql.NullString
	var status string
	var stepsJSON string
	err := scanner.Scan(
		&c.ID,
		&c.SOPID,
		&c.SOPTitle,
		&snapshotAt,
		&status,
		&c.CompletedSteps,
		&c.TotalSteps,
		&stepsJSON,
		&createdAt,
		&updatedAt,
		&completedAt,
	)
	if err != nil {
		return Checklist{}, err
	}
	c.Status = Status(status)
	if err := json.Unmarshal([]byte(stepsJSON), &c.Steps); err != nil {
		return Checklist{}, fmt.Errorf("checklist: decode steps: %w", err)
	}
	if c.SOPSnapshotAt, err = parseInstant(snapshotAt); err != nil {
		return Checklist{}, err
	}
	if c.CreatedAt, err = parseInstant(createdAt); err != nil {
		return Checklist{}, err
	}
	if c.UpdatedAt, err = parseInstant(updatedAt); err != nil {
		return Checklist{}, err
	}
	if completedAt.Valid {
		at, parseErr := parseInstant(completedAt.String)
		if parseErr != nil {
			return Checklist{}, parseErr
		}
		c.CompletedAt = &at
	}
	return c, nil
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableInstant(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatInstant(*t)
}

func parseInstant(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("checklist: parse timestamp %q: %w", value, err)
	}
	return t, nil
}
