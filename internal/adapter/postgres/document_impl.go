package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/repository"
	"github.com/user/blocklist-service/pkg/utils"
)

// DocumentRepoImpl provides a concrete implementation for the DocumentRepository interface using PostgreSQL.
type DocumentRepoImpl struct {
	db *pgxpool.Pool
}

// NewDocumentRepo creates a new instance of DocumentRepoImpl.
func NewDocumentRepo(db *pgxpool.Pool) *DocumentRepoImpl {
	return &DocumentRepoImpl{db: db}
}

// EnsureSchema creates the documents table if it does not exist.
func (r *DocumentRepoImpl) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS documents (
			name       TEXT PRIMARY KEY,
			content    JSONB NOT NULL,
			version    BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	_, err := r.db.Exec(ctx, query)
	return err
}

// Get retrieves a document by kind.
func (r *DocumentRepoImpl) Get(ctx context.Context, kind entity.DocumentKind) (*entity.Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%q: %w", kind, entity.ErrUnknownDocument)
	}

	var content string
	var version int64
	err := r.db.QueryRow(ctx, `SELECT content::text, version FROM documents WHERE name = $1;`, kind.FileName()).Scan(&content, &version)
	if errors.Is(err, pgx.ErrNoRows) {
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

// Put overwrites a document. With an expected version the UPDATE only matches
// the row the caller read, so a concurrent writer turns into ErrVersionConflict.
func (r *DocumentRepoImpl) Put(ctx context.Context, kind entity.DocumentKind, sites []string, expectedVersion string) (*entity.Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%q: %w", kind, entity.ErrUnknownDocument)
	}
	data, err := utils.EncodeSites(sites)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %v: %w", kind, err, repository.ErrWrite)
	}

	var version int64
	if expectedVersion == "" {
		query := `
			INSERT INTO documents (name, content, version, updated_at)
			VALUES ($1, $2::jsonb, 1, NOW())
			ON CONFLICT (name) DO UPDATE SET
				content = EXCLUDED.content,
				version = documents.version + 1,
				updated_at = NOW()
			RETURNING version;
		`
		err = r.db.QueryRow(ctx, query, kind.FileName(), string(data)).Scan(&version)
	} else {
		expected, convErr := strconv.ParseInt(expectedVersion, 10, 64)
		if convErr != nil {
			return nil, fmt.Errorf("%s: malformed version %q: %w", kind, expectedVersion, repository.ErrVersionConflict)
		}
		query := `
			UPDATE documents SET content = $2::jsonb, version = version + 1, updated_at = NOW()
			WHERE name = $1 AND version = $3
			RETURNING version;
		`
		err = r.db.QueryRow(ctx, query, kind.FileName(), string(data), expected).Scan(&version)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: expected version %s: %w", kind, expectedVersion, repository.ErrVersionConflict)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("writing %s: %v: %w", kind, err, repository.ErrWrite)
	}

	return &entity.Document{Kind: kind, Sites: utils.CloneSites(sites), Version: strconv.FormatInt(version, 10)}, nil
}
