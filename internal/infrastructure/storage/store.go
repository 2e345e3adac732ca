// Package storage persists workspace records in SQLite so a supervisor
// restart can re-adopt agents whose slots are still alive.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/helmware/deckhand/internal/application/ports"
	"github.com/helmware/deckhand/internal/domain/workspace"
)

var _ ports.WorkspaceStateStore = (*SQLiteStateStore)(nil)

// SQLiteStateStore implements WorkspaceStateStore on a local SQLite file.
type SQLiteStateStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the state database at dbPath and applies
// migrations.
func Open(dbPath string) (*SQLiteStateStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("state database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not open state database: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not ping state database: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not migrate state database: %w", err)
	}

	return &SQLiteStateStore{db: db}, nil
}

// Save inserts or replaces the record for a workspace.
func (s *SQLiteStateStore) Save(ctx context.Context, rec ports.WorkspaceRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("workspace record requires an ID")
	}
	if rec.Name == "" {
		return fmt.Errorf("workspace record requires a name")
	}

	query := `
		INSERT OR REPLACE INTO workspaces
			(id, name, dir, status, branch, is_worktree, worktree_path, external_ref, slot_label, launched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Name,
		rec.Dir,
		string(rec.Status),
		nullableString(rec.BranchName),
		rec.IsWorktree,
		nullableString(rec.WorktreePath),
		nullableString(rec.ExternalRef),
		nullableString(rec.SlotLabel),
		rec.LaunchedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save workspace record: %w", err)
	}

	return nil
}

// Delete removes the record for a workspace. Deleting an absent record is
// not an error.
func (s *SQLiteStateStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM workspaces WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete workspace record: %w", err)
	}
	return nil
}

// List returns all persisted records, oldest launch first.
func (s *SQLiteStateStore) List(ctx context.Context) ([]ports.WorkspaceRecord, error) {
	query := `
		SELECT id, name, dir, status, branch, is_worktree, worktree_path, external_ref, slot_label, launched_at
		FROM workspaces
		ORDER BY launched_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace records: %w", err)
	}
	defer rows.Close()

	var records []ports.WorkspaceRecord
	for rows.Next() {
		var (
			rec        ports.WorkspaceRecord
			status     string
			branch     sql.NullString
			wtPath     sql.NullString
			extRef     sql.NullString
			slotLabel  sql.NullString
			launchedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Dir, &status, &branch,
			&rec.IsWorktree, &wtPath, &extRef, &slotLabel, &launchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace record: %w", err)
		}

		rec.Status = workspace.Status(status)
		rec.BranchName = branch.String
		rec.WorktreePath = wtPath.String
		rec.ExternalRef = extRef.String
		rec.SlotLabel = slotLabel.String
		if t, err := time.Parse(time.RFC3339, launchedAt); err == nil {
			rec.LaunchedAt = t
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read workspace records: %w", err)
	}

	return records, nil
}

// Close closes the underlying database.
func (s *SQLiteStateStore) Close() error {
	return s.db.Close()
}

// nullableString converts empty strings to NULL for optional columns.
func nullableString(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
