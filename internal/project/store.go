package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"reelsmith/internal/config"
)

// Store persists project documents and render-progress records in SQLite.
// Each project is one JSON document addressed by id; the state machine does
// the read-modify-write, the store stays a dumb key-value layer.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS projects (
    id         TEXT PRIMARY KEY,
    document   TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS render_progress (
    project_id  TEXT PRIMARY KEY,
    status      TEXT NOT NULL,
    percent     REAL NOT NULL DEFAULT 0,
    stage       TEXT,
    eta_seconds REAL NOT NULL DEFAULT 0,
    message     TEXT,
    updated_at  TEXT NOT NULL
);
`

// Open initializes or connects to the project database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.ProjectsDir, "projects.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put upserts the whole project document.
func (s *Store) Put(ctx context.Context, p *Project) error {
	if p == nil {
		return errors.New("project is nil")
	}
	document, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO projects (id, document, created_at, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		p.ID,
		string(document),
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
		p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put project: %w", err)
	}
	return nil
}

// Get fetches a project document by id. Returns (nil, nil) when the
// project does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM projects WHERE id = ?`, id)
	var document string
	if err := row.Scan(&document); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	var p Project
	if err := json.Unmarshal([]byte(document), &p); err != nil {
		return nil, fmt.Errorf("decode project document: %w", err)
	}
	return &p, nil
}

// List returns all projects ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, err
		}
		var p Project
		if err := json.Unmarshal([]byte(document), &p); err != nil {
			return nil, fmt.Errorf("decode project document: %w", err)
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// Delete removes a project and its render progress. Reports whether a row
// was deleted.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM render_progress WHERE project_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete render progress: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SaveRenderProgress upserts the progress record for a project's render.
func (s *Store) SaveRenderProgress(ctx context.Context, progress RenderProgress) error {
	progress.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO render_progress (project_id, status, percent, stage, eta_seconds, message, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(project_id) DO UPDATE SET
             status = excluded.status, percent = excluded.percent, stage = excluded.stage,
             eta_seconds = excluded.eta_seconds, message = excluded.message, updated_at = excluded.updated_at`,
		progress.ProjectID,
		string(progress.Status),
		progress.Percent,
		nullableString(progress.Stage),
		progress.ETASeconds,
		nullableString(progress.Message),
		progress.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save render progress: %w", err)
	}
	return nil
}

// RenderProgressFor fetches the progress record for a project, or
// (nil, nil) when no render has run.
func (s *Store) RenderProgressFor(ctx context.Context, projectID string) (*RenderProgress, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT project_id, status, percent, stage, eta_seconds, message, updated_at
         FROM render_progress WHERE project_id = ?`,
		projectID,
	)
	var (
		progress   RenderProgress
		status     string
		stage      sql.NullString
		message    sql.NullString
		updatedRaw string
	)
	if err := row.Scan(&progress.ProjectID, &status, &progress.Percent, &stage, &progress.ETASeconds, &message, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get render progress: %w", err)
	}
	progress.Status = RenderStatus(status)
	progress.Stage = stage.String
	progress.Message = message.String
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		progress.UpdatedAt = updated
	}
	return &progress, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
