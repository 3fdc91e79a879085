// Package repositorytest holds the behavioral contract every DocumentRepository
// adapter must satisfy. Adapter packages run it from their own tests.
package repositorytest

import (
	"context"
	"errors"
	"testing"

	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/repository"
)

// Run exercises repo-agnostic behavior. newRepo must return an empty repository.
func Run(t *testing.T, newRepo func(t *testing.T) repository.DocumentRepository) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissingIsNotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(ctx, entity.DocumentBlocked)
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("PutThenGet", func(t *testing.T) {
		repo := newRepo(t)
		put, err := repo.Put(ctx, entity.DocumentDetected, []string{"a.com", "b.com"}, "")
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if put.Version == "" {
			t.Fatal("Put returned an empty version")
		}

		got, err := repo.Get(ctx, entity.DocumentDetected)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		assertSites(t, got.Sites, "a.com", "b.com")
		if got.Version != put.Version {
			t.Errorf("Get version %q, Put version %q", got.Version, put.Version)
		}
		if got.Kind != entity.DocumentDetected {
			t.Errorf("kind = %q", got.Kind)
		}
	})

	t.Run("DocumentsAreIndependent", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.Put(ctx, entity.DocumentDetected, []string{"a.com"}, ""); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if _, err := repo.Get(ctx, entity.DocumentBlocked); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected blocked to be missing, got %v", err)
		}
	})

	t.Run("NilSitesStoredAsEmpty", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.Put(ctx, entity.DocumentBlocked, nil, ""); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := repo.Get(ctx, entity.DocumentBlocked)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Sites == nil || len(got.Sites) != 0 {
			t.Errorf("expected empty non-nil sites, got %#v", got.Sites)
		}
	})

	t.Run("ConditionalPutWithCurrentVersion", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.Put(ctx, entity.DocumentBlocked, []string{"a.com"}, "")
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		second, err := repo.Put(ctx, entity.DocumentBlocked, []string{"a.com", "b.com"}, first.Version)
		if err != nil {
			t.Fatalf("conditional Put: %v", err)
		}
		if second.Version == first.Version {
			t.Error("version did not change after content changed")
		}
	})

	t.Run("ConditionalPutWithStaleVersionConflicts", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.Put(ctx, entity.DocumentBlocked, []string{"a.com"}, "")
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if _, err := repo.Put(ctx, entity.DocumentBlocked, []string{"b.com"}, first.Version); err != nil {
			t.Fatalf("second Put: %v", err)
		}

		_, err = repo.Put(ctx, entity.DocumentBlocked, []string{"c.com"}, first.Version)
		if !errors.Is(err, repository.ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}

		got, err := repo.Get(ctx, entity.DocumentBlocked)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		assertSites(t, got.Sites, "b.com")
	})

	t.Run("ConditionalPutOnMissingConflicts", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Put(ctx, entity.DocumentDetected, []string{"a.com"}, "42")
		if !errors.Is(err, repository.ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("UnknownKind", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.Get(ctx, entity.DocumentKind("secrets")); !errors.Is(err, entity.ErrUnknownDocument) {
			t.Errorf("Get: expected ErrUnknownDocument, got %v", err)
		}
		if _, err := repo.Put(ctx, entity.DocumentKind("secrets"), []string{"x"}, ""); !errors.Is(err, entity.ErrUnknownDocument) {
			t.Errorf("Put: expected ErrUnknownDocument, got %v", err)
		}
	})

	t.Run("ReturnedSitesDoNotAliasInput", func(t *testing.T) {
		repo := newRepo(t)
		in := []string{"a.com"}
		put, err := repo.Put(ctx, entity.DocumentBlocked, in, "")
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		in[0] = "mutated.com"
		assertSites(t, put.Sites, "a.com")

		got, err := repo.Get(ctx, entity.DocumentBlocked)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		assertSites(t, got.Sites, "a.com")
	})
}

func assertSites(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got sites %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got sites %v, want %v", got, want)
		}
	}
}
