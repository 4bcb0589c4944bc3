// Package sqlite persists project snapshots in a local SQLite database,
// the default storage for a desktop installation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"fabula-backend/application/ports"
	pkgerrors "fabula-backend/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	project_id TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	snapshot   BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_updated_at ON projects (updated_at DESC);
`

// Store is a SQLite-backed ports.SnapshotStore
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed creates) the database at path
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, pkgerrors.NewStorageError("open database", err)
	}
	// A single writer keeps SQLite happy under WAL.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pkgerrors.NewStorageError("migrate database", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// Save implements ports.SnapshotStore
func (s *Store) Save(ctx context.Context, projectID, name string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (project_id, name, snapshot, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (project_id) DO UPDATE SET
			name = excluded.name,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at`,
		projectID, name, data, time.Now().UnixMilli(),
	)
	if err != nil {
		return pkgerrors.NewStorageError("save snapshot", err)
	}
	return nil
}

// Load implements ports.SnapshotStore
func (s *Store) Load(ctx context.Context, projectID string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM projects WHERE project_id = ?`, projectID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("project " + projectID)
	}
	if err != nil {
		return nil, pkgerrors.NewStorageError("load snapshot", err)
	}
	return data, nil
}

// List implements ports.SnapshotStore
func (s *Store) List(ctx context.Context) ([]ports.SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, name, LENGTH(snapshot), updated_at
		FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, pkgerrors.NewStorageError("list snapshots", err)
	}
	defer rows.Close()

	var out []ports.SnapshotInfo
	for rows.Next() {
		var info ports.SnapshotInfo
		var updatedMS int64
		if err := rows.Scan(&info.ProjectID, &info.Name, &info.SizeBytes, &updatedMS); err != nil {
			return nil, pkgerrors.NewStorageError("scan snapshot row", err)
		}
		info.UpdatedAt = time.UnixMilli(updatedMS)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewStorageError("list snapshots", err)
	}
	return out, nil
}

// Delete implements ports.SnapshotStore
func (s *Store) Delete(ctx context.Context, projectID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM projects WHERE project_id = ?`, projectID)
	if err != nil {
		return pkgerrors.NewStorageError("delete snapshot", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.NewStorageError("delete snapshot", err)
	}
	if affected == 0 {
		return pkgerrors.NewNotFoundError("project " + projectID)
	}
	return nil
}
