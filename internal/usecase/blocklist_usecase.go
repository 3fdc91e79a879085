package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/repository"
	"github.com/user/blocklist-service/pkg/metrics"
	"github.com/user/blocklist-service/pkg/utils"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrToggleInFlight = errors.New("a toggle for this website is already in progress")
)

// ExportFileName is the download name of an exported blocked list.
const ExportFileName = "blocked_sites.json"

// Blocklist runs the workflows that move websites between the two lists.
type Blocklist interface {
	// Lists returns both documents, reading a missing one as empty.
	Lists(ctx context.Context) (*entity.Lists, error)
	// Toggle blocks a website, or unblocks it when currentlyBlocked is true.
	Toggle(ctx context.Context, website string, currentlyBlocked bool) (*entity.Lists, error)
	// Export returns the blocked list as indented JSON.
	Export(ctx context.Context) ([]byte, error)
	// Import merges a JSON array of websites into the blocked list.
	Import(ctx context.Context, data []byte) ([]string, error)
}

type blocklistUseCase struct {
	repo     repository.DocumentRepository
	notifier Notifier
	logger   *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewBlocklist creates the blocklist workflows. notifier may be nil.
func NewBlocklist(repo repository.DocumentRepository, notifier Notifier, logger *zap.Logger) Blocklist {
	return &blocklistUseCase{
		repo:     repo,
		notifier: orNop(notifier),
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

func (uc *blocklistUseCase) Lists(ctx context.Context) (*entity.Lists, error) {
	detected, err := getOrEmpty(ctx, uc.repo, entity.DocumentDetected, uc.logger)
	if err != nil {
		return nil, err
	}
	blocked, err := getOrEmpty(ctx, uc.repo, entity.DocumentBlocked, uc.logger)
	if err != nil {
		return nil, err
	}
	return &entity.Lists{Detected: detected.Sites, Blocked: blocked.Sites}, nil
}

func (uc *blocklistUseCase) Toggle(ctx context.Context, website string, currentlyBlocked bool) (*entity.Lists, error) {
	op := "block"
	if currentlyBlocked {
		op = "unblock"
	}
	if website == "" {
		err := fmt.Errorf("website must not be empty: %w", ErrValidation)
		uc.finish(op, "", nil, err)
		return nil, err
	}

	if !uc.acquire(website) {
		err := fmt.Errorf("%s: %w", website, ErrToggleInFlight)
		uc.finish(op, website, nil, err)
		return nil, err
	}
	defer uc.release(website)

	lists, err := uc.toggle(ctx, website, currentlyBlocked)
	uc.finish(op, website, lists, err)
	return lists, err
}

func (uc *blocklistUseCase) toggle(ctx context.Context, website string, currentlyBlocked bool) (*entity.Lists, error) {
	detected, err := getOrEmpty(ctx, uc.repo, entity.DocumentDetected, uc.logger)
	if err != nil {
		return nil, fmt.Errorf("fetching detected list: %w", err)
	}
	blocked, err := getOrEmpty(ctx, uc.repo, entity.DocumentBlocked, uc.logger)
	if err != nil {
		return nil, fmt.Errorf("fetching blocked list: %w", err)
	}

	nextDetected := detected.Sites
	var nextBlocked []string
	if currentlyBlocked {
		// Unblocking leaves the detected list alone.
		nextBlocked = without(blocked.Sites, website)
	} else {
		nextDetected = without(detected.Sites, website)
		nextBlocked = utils.CloneSites(blocked.Sites)
		if !blocked.Contains(website) {
			nextBlocked = append(nextBlocked, website)
		}
	}

	// Blocked first: a failure on the second write leaves the site blocked
	// and still detected, never in neither list.
	savedBlocked, err := put(ctx, uc.repo, entity.DocumentBlocked, nextBlocked, blocked.Version)
	if err != nil {
		return nil, fmt.Errorf("saving blocked list: %w", err)
	}
	savedDetected, err := put(ctx, uc.repo, entity.DocumentDetected, nextDetected, detected.Version)
	if err != nil {
		return nil, fmt.Errorf("saving detected list (blocked list already saved): %w", err)
	}

	return &entity.Lists{Detected: savedDetected.Sites, Blocked: savedBlocked.Sites}, nil
}

func (uc *blocklistUseCase) finish(op, website string, lists *entity.Lists, err error) {
	if err != nil {
		metrics.WorkflowsTotal.WithLabelValues(op, "failure").Inc()
		uc.logger.Error("Toggle failed", zap.String("op", op), zap.String("website", website), zap.Error(err))
		uc.notifier.Notify(entity.Notice{
			Op:      op,
			Website: website,
			Message: fmt.Sprintf("Failed to %s %s", op, website),
			Err:     err.Error(),
		})
		return
	}
	metrics.WorkflowsTotal.WithLabelValues(op, "success").Inc()
	uc.logger.Info("Toggle completed", zap.String("op", op), zap.String("website", website),
		zap.Int("detected", len(lists.Detected)), zap.Int("blocked", len(lists.Blocked)))
	uc.notifier.Notify(entity.Notice{
		Op:      op,
		Website: website,
		Message: fmt.Sprintf("%s: %sed", website, op),
	})
}

func (uc *blocklistUseCase) acquire(website string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if _, busy := uc.inFlight[website]; busy {
		return false
	}
	uc.inFlight[website] = struct{}{}
	return true
}

func (uc *blocklistUseCase) release(website string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.inFlight, website)
}

func (uc *blocklistUseCase) Export(ctx context.Context) ([]byte, error) {
	blocked, err := getOrEmpty(ctx, uc.repo, entity.DocumentBlocked, uc.logger)
	if err == nil {
		var data []byte
		data, err = json.MarshalIndent(blocked.Sites, "", "  ")
		if err == nil {
			metrics.WorkflowsTotal.WithLabelValues("export", "success").Inc()
			uc.logger.Info("Blocked list exported", zap.Int("sites", len(blocked.Sites)))
			return data, nil
		}
	}

	metrics.WorkflowsTotal.WithLabelValues("export", "failure").Inc()
	uc.logger.Error("Export failed", zap.Error(err))
	uc.notifier.Notify(entity.Notice{Op: "export", Message: "Failed to export blocked sites", Err: err.Error()})
	return nil, fmt.Errorf("exporting blocked list: %w", err)
}

func (uc *blocklistUseCase) Import(ctx context.Context, data []byte) ([]string, error) {
	blocked, added, err := uc.importSites(ctx, data)
	if err != nil {
		metrics.WorkflowsTotal.WithLabelValues("import", "failure").Inc()
		uc.logger.Error("Import failed", zap.Error(err))
		uc.notifier.Notify(entity.Notice{
			Op:       "import",
			Message:  "Error importing blocked sites",
			Err:      err.Error(),
			Blocking: true,
		})
		return nil, err
	}

	metrics.WorkflowsTotal.WithLabelValues("import", "success").Inc()
	uc.logger.Info("Blocked list imported", zap.Int("added", added), zap.Int("blocked", len(blocked)))
	uc.notifier.Notify(entity.Notice{
		Op:       "import",
		Message:  fmt.Sprintf("Blocked sites imported successfully (%d new)", added),
		Blocking: true,
	})
	return blocked, nil
}

func (uc *blocklistUseCase) importSites(ctx context.Context, data []byte) ([]string, int, error) {
	imported, err := utils.DecodeSites(data)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid file format: %v: %w", err, ErrValidation)
	}

	current, err := getOrEmpty(ctx, uc.repo, entity.DocumentBlocked, uc.logger)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching blocked list: %w", err)
	}

	merged := union(current.Sites, imported)
	saved, err := put(ctx, uc.repo, entity.DocumentBlocked, merged, current.Version)
	if err != nil {
		return nil, 0, fmt.Errorf("saving blocked list: %w", err)
	}
	return saved.Sites, len(merged) - len(union(current.Sites, nil)), nil
}

// union appends the elements of extra missing from base, keeping first-seen order
// and dropping duplicates from both inputs.
func union(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// without returns list with every occurrence of site removed.
func without(list []string, site string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != site {
			out = append(out, s)
		}
	}
	return out
}
