package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/repository"
	"github.com/user/blocklist-service/pkg/utils"
)

// DocumentRepoImpl stores documents as rows of a single SQLite table.
type DocumentRepoImpl struct {
	db *sql.DB
}

// New opens the SQLite database file and runs migrations.
func New(ctx context.Context, path string) (*DocumentRepoImpl, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	// One connection keeps writers on the same document strictly serialized.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	r := &DocumentRepoImpl{db: db}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return r, nil
}

// Close closes the database connection.
func (r *DocumentRepoImpl) Close() error { return r.db.Close() }

// Ping checks the database connection.
func (r *DocumentRepoImpl) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *DocumentRepoImpl) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS documents (
	name       TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	version    INTEGER NOT NULL,
	updated_at TEXT NOT NULL
);
`
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *DocumentRepoImpl) Get(ctx context.Context, kind entity.DocumentKind) (*entity.Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%q: %w", kind, entity.ErrUnknownDocument)
	}

	var content string
	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT content, version FROM documents WHERE name = ?`, kind.FileName()).Scan(&content, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", kind.FileName(), repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %v: %w", kind.FileName(), err, repository.ErrRead)
	}

	sites, err := utils.DecodeSites([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", kind.FileName(), repository.ErrParse)
	}
	return &entity.Document{Kind: kind, Sites: sites, Version: strconv.FormatInt(version, 10)}, nil
}

func (r *DocumentRepoImpl) Put(ctx context.Context, kind entity.DocumentKind, sites []string, expectedVersion string) (*entity.Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%q: %w", kind, entity.ErrUnknownDocument)
	}
	data, err := utils.EncodeSites(sites)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %v: %w", kind, err, repository.ErrWrite)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var version int64
	if expectedVersion == "" {
		query := `
INSERT INTO documents (name, content, version, updated_at)
VALUES (?, ?, 1, ?)
ON CONFLICT(name) DO UPDATE SET
	content = excluded.content,
	version = documents.version + 1,
	updated_at = excluded.updated_at
RETURNING version`
		err = r.db.QueryRowContext(ctx, query, kind.FileName(), string(data), now).Scan(&version)
	} else {
		expected, convErr := strconv.ParseInt(expectedVersion, 10, 64)
		if convErr != nil {
			return nil, fmt.Errorf("%s: malformed version %q: %w", kind, expectedVersion, repository.ErrVersionConflict)
		}
		query := `
UPDATE documents SET content = ?, version = version + 1, updated_at = ?
WHERE name = ? AND version = ?
RETURNING version`
		err = r.db.QueryRowContext(ctx, query, string(data), now, kind.FileName(), expected).Scan(&version)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: expected version %s: %w", kind, expectedVersion, repository.ErrVersionConflict)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("writing %s: %v: %w", kind, err, repository.ErrWrite)
	}

	return &entity.Document{Kind: kind, Sites: utils.CloneSites(sites), Version: strconv.FormatInt(version, 10)}, nil
}
