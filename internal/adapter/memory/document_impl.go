package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/repository"
	"github.com/user/blocklist-service/pkg/utils"
)

type record struct {
	sites   []string
	version int64
}

// DocumentRepoImpl keeps documents in process memory. Nothing survives a restart.
type DocumentRepoImpl struct {
	mu   sync.Mutex
	docs map[entity.DocumentKind]*record
}

// NewDocumentRepo returns an empty in-memory repository.
func NewDocumentRepo() *DocumentRepoImpl {
	return &DocumentRepoImpl{docs: make(map[entity.DocumentKind]*record)}
}

// Seed stores sites unconditionally. Intended for tests and local demos.
func (r *DocumentRepoImpl) Seed(kind entity.DocumentKind, sites ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(kind, sites)
}

func (r *DocumentRepoImpl) Get(ctx context.Context, kind entity.DocumentKind) (*entity.Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%q: %w", kind, entity.ErrUnknownDocument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.docs[kind]
	if !ok {
		return nil, fmt.Errorf("%s: %w", kind.FileName(), repository.ErrNotFound)
	}
	return &entity.Document{
		Kind:    kind,
		Sites:   utils.CloneSites(rec.sites),
		Version: strconv.FormatInt(rec.version, 10),
	}, nil
}

func (r *DocumentRepoImpl) Put(ctx context.Context, kind entity.DocumentKind, sites []string, expectedVersion string) (*entity.Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%q: %w", kind, entity.ErrUnknownDocument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if expectedVersion != "" {
		current := ""
		if rec, ok := r.docs[kind]; ok {
			current = strconv.FormatInt(rec.version, 10)
		}
		if current != expectedVersion {
			return nil, fmt.Errorf("%s: expected version %s, found %q: %w", kind, expectedVersion, current, repository.ErrVersionConflict)
		}
	}

	rec := r.putLocked(kind, sites)
	return &entity.Document{
		Kind:    kind,
		Sites:   utils.CloneSites(rec.sites),
		Version: strconv.FormatInt(rec.version, 10),
	}, nil
}

func (r *DocumentRepoImpl) putLocked(kind entity.DocumentKind, sites []string) *record {
	var version int64 = 1
	if rec, ok := r.docs[kind]; ok {
		version = rec.version + 1
	}
	rec := &record{sites: utils.CloneSites(sites), version: version}
	r.docs[kind] = rec
	return rec
}
