package repository

import (
	"context"
	"errors"

	"github.com/user/blocklist-service/internal/entity"
)

var (
	// ErrNotFound is returned when the requested document has never been written.
	ErrNotFound = errors.New("document not found")
	// ErrRead is returned when the document exists but could not be read.
	ErrRead = errors.New("document read failed")
	// ErrParse is returned when the stored content is not a JSON array of strings.
	ErrParse = errors.New("document is not a JSON array of strings")
	// ErrWrite is returned when the document could not be persisted.
	ErrWrite = errors.New("document write failed")
	// ErrVersionConflict is returned when a conditional write lost against a concurrent writer.
	ErrVersionConflict = errors.New("document version conflict")
	// ErrNetwork is returned by remote repositories when the request itself failed.
	ErrNetwork = errors.New("document request failed")
)

// DocumentRepository defines the storage contract for whole site-list documents.
type DocumentRepository interface {
	// Get returns the document with its current version.
	Get(ctx context.Context, kind entity.DocumentKind) (*entity.Document, error)
	// Put overwrites the whole document. A non-empty expectedVersion makes the
	// write conditional: it fails with ErrVersionConflict if the stored version differs.
	Put(ctx context.Context, kind entity.DocumentKind, sites []string, expectedVersion string) (*entity.Document, error)
}
