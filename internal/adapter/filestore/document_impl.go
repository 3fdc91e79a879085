package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/repository"
	"github.com/user/blocklist-service/pkg/utils"
)

// DocumentRepoImpl stores each document as a flat JSON file named after its kind.
// The version of a document is the SHA-256 of its file content.
type DocumentRepoImpl struct {
	dataDir string
	locks   map[entity.DocumentKind]*sync.Mutex
}

// NewDocumentRepo creates the data directory if needed and returns a file-backed repository.
func NewDocumentRepo(dataDir string) (*DocumentRepoImpl, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	locks := make(map[entity.DocumentKind]*sync.Mutex, len(entity.DocumentKinds))
	for _, k := range entity.DocumentKinds {
		locks[k] = &sync.Mutex{}
	}
	return &DocumentRepoImpl{dataDir: dataDir, locks: locks}, nil
}

// Get reads and parses the document file.
func (r *DocumentRepoImpl) Get(ctx context.Context, kind entity.DocumentKind) (*entity.Document, error) {
	mu, err := r.lockFor(kind)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	defer mu.Unlock()

	return r.read(kind)
}

// Put overwrites the document file. Writers of the same document are serialized,
// and the version check happens under the same lock as the write.
func (r *DocumentRepoImpl) Put(ctx context.Context, kind entity.DocumentKind, sites []string, expectedVersion string) (*entity.Document, error) {
	mu, err := r.lockFor(kind)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	defer mu.Unlock()

	if expectedVersion != "" {
		current, err := r.read(kind)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%s: expected version %s but document is missing: %w", kind, expectedVersion, repository.ErrVersionConflict)
		case errors.Is(err, repository.ErrParse):
			// A corrupt document can still be replaced by a caller that read the same bytes.
			if v, _ := r.rawVersion(kind); v != expectedVersion {
				return nil, fmt.Errorf("%s: %w", kind, repository.ErrVersionConflict)
			}
		case err != nil:
			return nil, err
		case current.Version != expectedVersion:
			return nil, fmt.Errorf("%s: expected version %s, found %s: %w", kind, expectedVersion, current.Version, repository.ErrVersionConflict)
		}
	}

	data, err := utils.EncodeSites(sites)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %v: %w", kind, err, repository.ErrWrite)
	}
	if err := atomicWriteFile(r.path(kind), data); err != nil {
		return nil, fmt.Errorf("writing %s: %v: %w", kind, err, repository.ErrWrite)
	}

	return &entity.Document{
		Kind:    kind,
		Sites:   utils.CloneSites(sites),
		Version: utils.HashContent(data),
	}, nil
}

func (r *DocumentRepoImpl) read(kind entity.DocumentKind) (*entity.Document, error) {
	data, err := os.ReadFile(r.path(kind))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", kind.FileName(), repository.ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %v: %w", kind.FileName(), err, repository.ErrRead)
	}

	sites, err := utils.DecodeSites(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", kind.FileName(), repository.ErrParse)
	}

	return &entity.Document{
		Kind:    kind,
		Sites:   sites,
		Version: utils.HashContent(data),
	}, nil
}

func (r *DocumentRepoImpl) rawVersion(kind entity.DocumentKind) (string, error) {
	data, err := os.ReadFile(r.path(kind))
	if err != nil {
		return "", err
	}
	return utils.HashContent(data), nil
}

func (r *DocumentRepoImpl) lockFor(kind entity.DocumentKind) (*sync.Mutex, error) {
	mu, ok := r.locks[kind]
	if !ok {
		return nil, fmt.Errorf("%q: %w", kind, entity.ErrUnknownDocument)
	}
	return mu, nil
}

func (r *DocumentRepoImpl) path(kind entity.DocumentKind) string {
	return filepath.Join(r.dataDir, kind.FileName())
}

// atomicWriteFile writes data to a temp file in the same directory and renames it into place.
func atomicWriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
