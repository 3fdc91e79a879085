package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/user/blocklist-service/internal/adapter/memory"
	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/repository"
)

func newBlocklist(t *testing.T, repo repository.DocumentRepository) (Blocklist, *recorder) {
	t.Helper()
	rec := &recorder{}
	return NewBlocklist(repo, rec, zaptest.NewLogger(t)), rec
}

func TestToggle_Block(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewDocumentRepo()
	repo.Seed(entity.DocumentDetected, "a.com", "b.com")
	repo.Seed(entity.DocumentBlocked)
	uc, rec := newBlocklist(t, repo)

	lists, err := uc.Toggle(ctx, "a.com", false)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !equal(lists.Detected, []string{"b.com"}) {
		t.Errorf("detected = %v, want [b.com]", lists.Detected)
	}
	if !equal(lists.Blocked, []string{"a.com"}) {
		t.Errorf("blocked = %v, want [a.com]", lists.Blocked)
	}
	if got := sites(ctx, repo, entity.DocumentBlocked); !equal(got, []string{"a.com"}) {
		t.Errorf("stored blocked = %v", got)
	}
	if got := sites(ctx, repo, entity.DocumentDetected); !equal(got, []string{"b.com"}) {
		t.Errorf("stored detected = %v", got)
	}

	n := rec.last()
	if n.Op != "block" || n.Website != "a.com" || n.Failed() || n.Blocking {
		t.Errorf("unexpected notice %+v", n)
	}
}

func TestToggle_Unblock(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewDocumentRepo()
	repo.Seed(entity.DocumentDetected, "x.com")
	repo.Seed(entity.DocumentBlocked, "a.com", "b.com")
	uc, rec := newBlocklist(t, repo)

	lists, err := uc.Toggle(ctx, "a.com", true)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !equal(lists.Blocked, []string{"b.com"}) {
		t.Errorf("blocked = %v, want [b.com]", lists.Blocked)
	}
	// Unblocking never puts the site back into the detected list.
	if !equal(lists.Detected, []string{"x.com"}) {
		t.Errorf("detected = %v, want [x.com]", lists.Detected)
	}
	if got := sites(ctx, repo, entity.DocumentDetected); !equal(got, []string{"x.com"}) {
		t.Errorf("stored detected = %v", got)
	}
	if rec.last().Op != "unblock" {
		t.Errorf("notice op = %q", rec.last().Op)
	}
}

func TestToggle_BlockProperties(t *testing.T) {
	tests := []struct {
		name     string
		detected []string
		blocked  []string
		website  string
	}{
		{"not detected", []string{"a.com"}, []string{"b.com"}, "c.com"},
		{"detected twice", []string{"a.com", "c.com", "a.com"}, nil, "a.com"},
		{"already blocked", []string{"a.com"}, []string{"a.com", "b.com"}, "a.com"},
		{"both empty", nil, nil, "z.org"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := memory.NewDocumentRepo()
			repo.Seed(entity.DocumentDetected, tt.detected...)
			repo.Seed(entity.DocumentBlocked, tt.blocked...)
			uc, _ := newBlocklist(t, repo)

			lists, err := uc.Toggle(ctx, tt.website, false)
			if err != nil {
				t.Fatalf("Toggle: %v", err)
			}
			if contains(lists.Detected, tt.website) {
				t.Errorf("%s still detected: %v", tt.website, lists.Detected)
			}
			if !contains(lists.Blocked, tt.website) {
				t.Errorf("%s not blocked: %v", tt.website, lists.Blocked)
			}
			want := len(tt.blocked)
			if !contains(tt.blocked, tt.website) {
				want++
			}
			if len(lists.Blocked) != want {
				t.Errorf("len(blocked) = %d, want %d", len(lists.Blocked), want)
			}
		})
	}
}

func TestToggle_UnblockProperties(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewDocumentRepo()
	repo.Seed(entity.DocumentDetected, "d1.com", "d2.com")
	repo.Seed(entity.DocumentBlocked, "w.com", "b.com", "w.com")
	uc, _ := newBlocklist(t, repo)

	lists, err := uc.Toggle(ctx, "w.com", true)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if contains(lists.Blocked, "w.com") {
		t.Errorf("w.com still blocked: %v", lists.Blocked)
	}
	if !equal(lists.Detected, []string{"d1.com", "d2.com"}) {
		t.Errorf("detected changed: %v", lists.Detected)
	}
}

func TestToggle_MissingDocumentsReadAsEmpty(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewDocumentRepo()
	uc, _ := newBlocklist(t, repo)

	lists, err := uc.Toggle(ctx, "a.com", false)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if len(lists.Detected) != 0 || !equal(lists.Blocked, []string{"a.com"}) {
		t.Errorf("unexpected lists %+v", lists)
	}
}

func TestToggle_ReadFailureAborts(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewDocumentRepo()
	mem.Seed(entity.DocumentDetected, "a.com")
	repo := &stubRepo{
		DocumentRepository: mem,
		getErr:             map[entity.DocumentKind]error{entity.DocumentBlocked: repository.ErrParse},
	}
	uc, rec := newBlocklist(t, repo)

	_, err := uc.Toggle(ctx, "a.com", false)
	if !errors.Is(err, repository.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if len(repo.puts) != 0 {
		t.Errorf("expected no writes, got %v", repo.puts)
	}
	if !rec.last().Failed() {
		t.Error("expected a failure notice")
	}
}

func TestToggle_WritesBlockedBeforeDetected(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewDocumentRepo()
	mem.Seed(entity.DocumentDetected, "a.com")
	mem.Seed(entity.DocumentBlocked)
	repo := &stubRepo{DocumentRepository: mem}
	uc, _ := newBlocklist(t, repo)

	if _, err := uc.Toggle(ctx, "a.com", false); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	want := []entity.DocumentKind{entity.DocumentBlocked, entity.DocumentDetected}
	if len(repo.puts) != 2 || repo.puts[0] != want[0] || repo.puts[1] != want[1] {
		t.Errorf("write order = %v, want %v", repo.puts, want)
	}
}

func TestToggle_SecondWriteFailureIsReported(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewDocumentRepo()
	mem.Seed(entity.DocumentDetected, "a.com")
	mem.Seed(entity.DocumentBlocked)
	repo := &stubRepo{
		DocumentRepository: mem,
		putErr:             map[entity.DocumentKind]error{entity.DocumentDetected: repository.ErrWrite},
	}
	uc, rec := newBlocklist(t, repo)

	_, err := uc.Toggle(ctx, "a.com", false)
	if !errors.Is(err, repository.ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
	// The blocked write already landed.
	if got := sites(ctx, mem, entity.DocumentBlocked); !equal(got, []string{"a.com"}) {
		t.Errorf("stored blocked = %v", got)
	}
	if got := sites(ctx, mem, entity.DocumentDetected); !equal(got, []string{"a.com"}) {
		t.Errorf("stored detected = %v", got)
	}
	if n := rec.last(); !n.Failed() || n.Website != "a.com" {
		t.Errorf("unexpected notice %+v", n)
	}
}

func TestToggle_ConcurrentWriterConflicts(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewDocumentRepo()
	mem.Seed(entity.DocumentDetected, "a.com", "b.com")
	mem.Seed(entity.DocumentBlocked)
	repo := &stubRepo{DocumentRepository: mem}
	repo.beforePut = func(kind entity.DocumentKind) {
		if kind == entity.DocumentBlocked {
			// Another workflow blocks b.com between our read and our write.
			mem.Seed(entity.DocumentBlocked, "b.com")
		}
	}
	uc, _ := newBlocklist(t, repo)

	_, err := uc.Toggle(ctx, "a.com", false)
	if !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if got := sites(ctx, mem, entity.DocumentBlocked); !equal(got, []string{"b.com"}) {
		t.Errorf("concurrent write was lost: blocked = %v", got)
	}
	if got := sites(ctx, mem, entity.DocumentDetected); !equal(got, []string{"a.com", "b.com"}) {
		t.Errorf("detected should be untouched, got %v", got)
	}
}

func TestToggle_InFlightGuard(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewDocumentRepo()
	mem.Seed(entity.DocumentDetected, "a.com")
	repo := &stubRepo{
		DocumentRepository: mem,
		entered:            make(chan struct{}),
		gate:               make(chan struct{}),
	}
	uc, _ := newBlocklist(t, repo)

	done := make(chan error, 1)
	go func() {
		_, err := uc.Toggle(ctx, "a.com", false)
		done <- err
	}()
	<-repo.entered

	if _, err := uc.Toggle(ctx, "a.com", false); !errors.Is(err, ErrToggleInFlight) {
		t.Fatalf("expected ErrToggleInFlight, got %v", err)
	}

	// Let the first toggle finish its two reads.
	repo.gate <- struct{}{}
	<-repo.entered
	repo.gate <- struct{}{}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first Toggle: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first Toggle did not finish")
	}

	// The guard is released: unblocking the same site now goes through.
	repo.gate = nil
	if _, err := uc.Toggle(ctx, "a.com", true); err != nil {
		t.Fatalf("Toggle after release: %v", err)
	}
}

func TestToggle_GuardReleasedAfterFailure(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewDocumentRepo()
	repo := &stubRepo{
		DocumentRepository: mem,
		getErr:             map[entity.DocumentKind]error{entity.DocumentDetected: repository.ErrRead},
	}
	uc, _ := newBlocklist(t, repo)

	if _, err := uc.Toggle(ctx, "a.com", false); !errors.Is(err, repository.ErrRead) {
		t.Fatalf("expected ErrRead, got %v", err)
	}
	repo.mu.Lock()
	repo.getErr = nil
	repo.mu.Unlock()
	if _, err := uc.Toggle(ctx, "a.com", false); err != nil {
		t.Fatalf("Toggle after failure: %v", err)
	}
}

func TestToggle_EmptyWebsite(t *testing.T) {
	uc, rec := newBlocklist(t, memory.NewDocumentRepo())
	if _, err := uc.Toggle(context.Background(), "", false); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !rec.last().Failed() {
		t.Error("expected a failure notice")
	}
}

func TestImport_Union(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewDocumentRepo()
	repo.Seed(entity.DocumentBlocked, "a.com")
	uc, rec := newBlocklist(t, repo)

	blocked, err := uc.Import(ctx, []byte(`["a.com","c.com"]`))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !setEqual(blocked, []string{"a.com", "c.com"}) {
		t.Errorf("blocked = %v, want {a.com, c.com}", blocked)
	}
	if !equal(blocked, []string{"a.com", "c.com"}) {
		t.Errorf("first-seen order not kept: %v", blocked)
	}
	n := rec.last()
	if n.Op != "import" || !n.Blocking || n.Failed() {
		t.Errorf("unexpected notice %+v", n)
	}
	if !strings.Contains(n.Message, "1 new") {
		t.Errorf("message = %q", n.Message)
	}
}

func TestImport_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewDocumentRepo()
	repo.Seed(entity.DocumentBlocked, "a.com", "b.com")
	uc, _ := newBlocklist(t, repo)

	blocked, err := uc.Import(ctx, []byte(`["a.com","b.com"]`))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !setEqual(blocked, []string{"a.com", "b.com"}) {
		t.Errorf("blocked = %v", blocked)
	}
}

func TestImport_DoesNotTouchDetected(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewDocumentRepo()
	repo.Seed(entity.DocumentDetected, "c.com")
	uc, _ := newBlocklist(t, repo)

	if _, err := uc.Import(ctx, []byte(`["c.com"]`)); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got := sites(ctx, repo, entity.DocumentDetected); !equal(got, []string{"c.com"}) {
		t.Errorf("detected = %v", got)
	}
}

func TestImport_ValidationFailure(t *testing.T) {
	payloads := []string{
		`{"sites":["a.com"]}`,
		`"a.com"`,
		`42`,
		`null`,
		`["a.com", 7]`,
		`["a.com", null]`,
		`[null,"c.com"]`,
		`not json`,
		``,
	}
	for _, p := range payloads {
		t.Run(p, func(t *testing.T) {
			ctx := context.Background()
			repo := memory.NewDocumentRepo()
			repo.Seed(entity.DocumentDetected, "d.com")
			repo.Seed(entity.DocumentBlocked, "a.com")
			before := map[entity.DocumentKind]string{}
			for _, k := range entity.DocumentKinds {
				doc, _ := repo.Get(ctx, k)
				before[k] = doc.Version
			}
			uc, rec := newBlocklist(t, repo)

			if _, err := uc.Import(ctx, []byte(p)); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			for _, k := range entity.DocumentKinds {
				doc, _ := repo.Get(ctx, k)
				if doc.Version != before[k] {
					t.Errorf("%s was rewritten", k)
				}
			}
			n := rec.last()
			if !n.Failed() || !n.Blocking {
				t.Errorf("expected blocking failure notice, got %+v", n)
			}
		})
	}
}

func TestExport_Format(t *testing.T) {
	repo := memory.NewDocumentRepo()
	repo.Seed(entity.DocumentBlocked, "a.com", "b.com")
	uc, _ := newBlocklist(t, repo)

	data, err := uc.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	want := "[\n  \"a.com\",\n  \"b.com\"\n]"
	if string(data) != want {
		t.Errorf("Export = %q, want %q", data, want)
	}
}

func TestExport_MissingDocumentIsEmpty(t *testing.T) {
	uc, _ := newBlocklist(t, memory.NewDocumentRepo())
	data, err := uc.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("Export = %q, want []", data)
	}
}

func TestExport_ReadFailure(t *testing.T) {
	repo := &stubRepo{
		DocumentRepository: memory.NewDocumentRepo(),
		getErr:             map[entity.DocumentKind]error{entity.DocumentBlocked: repository.ErrParse},
	}
	uc, rec := newBlocklist(t, repo)
	if _, err := uc.Export(context.Background()); !errors.Is(err, repository.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if n := rec.last(); n.Op != "export" || !n.Failed() {
		t.Errorf("unexpected notice %+v", n)
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewDocumentRepo()
	repo.Seed(entity.DocumentBlocked, "a.com", "b.com", "c.com")
	uc, _ := newBlocklist(t, repo)

	data, err := uc.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	blocked, err := uc.Import(ctx, data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !setEqual(blocked, []string{"a.com", "b.com", "c.com"}) {
		t.Errorf("blocked after round trip = %v", blocked)
	}
}

func TestLists_Fallback(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewDocumentRepo()
	repo.Seed(entity.DocumentBlocked, "a.com")
	uc, _ := newBlocklist(t, repo)

	lists, err := uc.Lists(ctx)
	if err != nil {
		t.Fatalf("Lists: %v", err)
	}
	if lists.Detected == nil || len(lists.Detected) != 0 {
		t.Errorf("detected = %#v, want empty list", lists.Detected)
	}
	if !equal(lists.Blocked, []string{"a.com"}) {
		t.Errorf("blocked = %v", lists.Blocked)
	}
}

func TestUnionAndWithout(t *testing.T) {
	if got := union([]string{"a", "b", "a"}, []string{"c", "b", "d"}); !equal(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("union = %v", got)
	}
	if got := without([]string{"a", "b", "a"}, "a"); !equal(got, []string{"b"}) {
		t.Errorf("without = %v", got)
	}
}
