package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/airaware/airaware/internal/database"
)

// ErrNotFound is returned when a document has not been published yet.
var ErrNotFound = errors.New("snapshot not found")

// Store persists snapshot documents by name.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, body []byte) error
}

// FileStore keeps documents as files in a directory, by default the
// public directory the page is served from.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Get reads a document.
func (s *FileStore) Get(_ context.Context, name string) ([]byte, error) {
	body, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return body, nil
}

// Put writes a document atomically through a temp file and rename.
func (s *FileStore) Put(_ context.Context, name string, body []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(name)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, filepath.Base(name))); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// PostgresStore keeps documents in the snapshots table.
type PostgresStore struct {
	db database.DB
}

// NewPostgresStore creates a PostgreSQL-backed store.
func NewPostgresStore(db database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get reads a document.
func (s *PostgresStore) Get(ctx context.Context, name string) ([]byte, error) {
	query := `
		SELECT body
		FROM snapshots
		WHERE name = $1
	`

	var body []byte
	if err := s.db.QueryRow(ctx, query, name).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select snapshot %s: %w", name, err)
	}
	return body, nil
}

// Put creates or replaces a document.
func (s *PostgresStore) Put(ctx context.Context, name string, body []byte) error {
	query := `
		INSERT INTO snapshots (name, body, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.Exec(ctx, query, name, body, time.Now()); err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", name, err)
	}
	return nil
}

// Ensure both stores implement Store.
var (
	_ Store = (*FileStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
