package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"archsketch/internal/repository"

	_ "modernc.org/sqlite"
)

// MemoryDSN keeps the ledger in process memory
const MemoryDSN = ":memory:"

// Repository implements repository.ArtifactLedger using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.ArtifactLedger = (*Repository)(nil)

// New opens the ledger at dsn, a file path or MemoryDSN
func New(dsn string) (*Repository, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}

	source := dsn
	if dsn != MemoryDSN && !strings.Contains(dsn, "?") {
		source = "file:" + dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dsn == MemoryDSN {
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		path TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(created_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Record adds or replaces an artifact row
func (r *Repository) Record(ctx context.Context, a repository.Artifact) error {
	if a.ID == "" || a.Name == "" {
		return errors.New("artifact id and name are required")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, name, path, fingerprint, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			path = excluded.path,
			fingerprint = excluded.fingerprint,
			size = excluded.size,
			created_at = excluded.created_at
	`, a.ID, a.Name, a.Path, a.Fingerprint, a.Size, a.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record artifact: %w", err)
	}
	return nil
}

// Get looks an artifact up by file name
func (r *Repository) Get(ctx context.Context, name string) (*repository.Artifact, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, path, fingerprint, size, created_at
		FROM artifacts WHERE name = ?
	`, name)

	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return &a, nil
}

// Expired lists artifacts created before cutoff, oldest first
func (r *Repository) Expired(ctx context.Context, cutoff time.Time) ([]repository.Artifact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, path, fingerprint, size, created_at
		FROM artifacts
		WHERE created_at < ?
		ORDER BY created_at, id
	`, cutoff.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var out []repository.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artifacts: %w", err)
	}
	return out, nil
}

// Delete removes the row for id
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

// Count returns the number of recorded artifacts
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artifacts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count artifacts: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(s scanner) (repository.Artifact, error) {
	var (
		a       repository.Artifact
		created int64
	)
	if err := s.Scan(&a.ID, &a.Name, &a.Path, &a.Fingerprint, &a.Size, &created); err != nil {
		return repository.Artifact{}, err
	}
	a.CreatedAt = time.Unix(0, created).UTC()
	return a, nil
}
