package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/repository"
	"github.com/user/blocklist-service/pkg/metrics"
)

// DocumentService reads and overwrites the two persisted documents by name or kind.
type DocumentService interface {
	Fetch(ctx context.Context, name string) (*entity.Document, error)
	Store(ctx context.Context, name string, sites []string, expectedVersion string) (*entity.Document, error)
}

type documentsUseCase struct {
	repo     repository.DocumentRepository
	notifier Notifier
	logger   *zap.Logger
}

// NewDocumentService creates a DocumentService. notifier may be nil.
func NewDocumentService(repo repository.DocumentRepository, notifier Notifier, logger *zap.Logger) DocumentService {
	return &documentsUseCase{
		repo:     repo,
		notifier: orNop(notifier),
		logger:   logger,
	}
}

// Fetch resolves name against the allow-list and returns the stored document.
// A missing document is reported as repository.ErrNotFound; no fallback is applied here.
func (uc *documentsUseCase) Fetch(ctx context.Context, name string) (*entity.Document, error) {
	kind, err := entity.ParseDocumentName(name)
	if err != nil {
		return nil, err
	}
	return get(ctx, uc.repo, kind)
}

// Store resolves name and overwrites the document. expectedVersion "" writes unconditionally.
func (uc *documentsUseCase) Store(ctx context.Context, name string, sites []string, expectedVersion string) (*entity.Document, error) {
	kind, err := entity.ParseDocumentName(name)
	if err != nil {
		return nil, err
	}

	doc, err := put(ctx, uc.repo, kind, sites, expectedVersion)
	if err != nil {
		uc.logger.Error("Failed to store document", zap.String("document", kind.FileName()), zap.Error(err))
		uc.notifier.Notify(entity.Notice{
			Op:      "store",
			Message: fmt.Sprintf("Failed to update %s", kind.FileName()),
			Err:     err.Error(),
		})
		return nil, err
	}

	uc.logger.Debug("Document stored", zap.String("document", kind.FileName()), zap.Int("sites", len(doc.Sites)), zap.String("version", doc.Version))
	uc.notifier.Notify(entity.Notice{
		Op:      "store",
		Message: fmt.Sprintf("%s updated", kind.FileName()),
	})
	return doc, nil
}

// get and put wrap the repository with per-document metrics.
func get(ctx context.Context, repo repository.DocumentRepository, kind entity.DocumentKind) (*entity.Document, error) {
	doc, err := repo.Get(ctx, kind)
	metrics.DocumentOpsTotal.WithLabelValues("read", string(kind), resultLabel(err)).Inc()
	return doc, err
}

func put(ctx context.Context, repo repository.DocumentRepository, kind entity.DocumentKind, sites []string, expectedVersion string) (*entity.Document, error) {
	doc, err := repo.Put(ctx, kind, sites, expectedVersion)
	metrics.DocumentOpsTotal.WithLabelValues("write", string(kind), resultLabel(err)).Inc()
	return doc, err
}

// getOrEmpty applies the read fallback policy: a missing document reads as an
// empty list with no version. Every other failure is returned.
func getOrEmpty(ctx context.Context, repo repository.DocumentRepository, kind entity.DocumentKind, logger *zap.Logger) (*entity.Document, error) {
	doc, err := get(ctx, repo, kind)
	if errors.Is(err, repository.ErrNotFound) {
		logger.Warn("Document missing, treating as empty", zap.String("document", kind.FileName()))
		return &entity.Document{Kind: kind, Sites: []string{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrParse):
		return "parse_error"
	case errors.Is(err, repository.ErrVersionConflict):
		return "conflict"
	case errors.Is(err, repository.ErrNetwork):
		return "network_error"
	default:
		return "error"
	}
}
