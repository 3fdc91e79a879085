package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/repository"
)

// stubRepo wraps a real repository and injects failures and hooks.
type stubRepo struct {
	repository.DocumentRepository

	mu        sync.Mutex
	getErr    map[entity.DocumentKind]error
	putErr    map[entity.DocumentKind]error
	puts      []entity.DocumentKind
	beforePut func(kind entity.DocumentKind)

	// When set, Get signals entered and waits on gate.
	entered chan struct{}
	gate    chan struct{}
}

func (s *stubRepo) Get(ctx context.Context, kind entity.DocumentKind) (*entity.Document, error) {
	if s.gate != nil {
		s.entered <- struct{}{}
		<-s.gate
	}
	s.mu.Lock()
	err := s.getErr[kind]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.DocumentRepository.Get(ctx, kind)
}

func (s *stubRepo) Put(ctx context.Context, kind entity.DocumentKind, sites []string, expectedVersion string) (*entity.Document, error) {
	s.mu.Lock()
	s.puts = append(s.puts, kind)
	err := s.putErr[kind]
	hook := s.beforePut
	s.mu.Unlock()
	if hook != nil {
		hook(kind)
	}
	if err != nil {
		return nil, err
	}
	return s.DocumentRepository.Put(ctx, kind, sites, expectedVersion)
}

type recorder struct {
	mu      sync.Mutex
	notices []entity.Notice
}

func (r *recorder) Notify(n entity.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) last() entity.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return entity.Notice{}
	}
	return r.notices[len(r.notices)-1]
}

func sites(ctx context.Context, repo repository.DocumentRepository, kind entity.DocumentKind) []string {
	doc, err := repo.Get(ctx, kind)
	if err != nil {
		return nil
	}
	return doc.Sites
}

func setEqual(a, b []string) bool {
	as := dedupeSorted(a)
	bs := dedupeSorted(b)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func dedupeSorted(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
