package seen

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mkowalczk/jobscout/internal/models"
)

func TestNormalize(t *testing.T) {
	got := Normalize("  Senior   Software\tEngineer  ")
	want := "senior software engineer"
	if got != want {
		t.Fatalf("Normalize = %q, want %q", got, want)
	}
}

func TestKey(t *testing.T) {
	job := models.Job{Title: "Backend  Engineer", Company: " Acme Corp "}
	key, ok := Key(job)
	if !ok {
		t.Fatal("expected a key")
	}
	if key != "backend engineer::acme corp" {
		t.Fatalf("key = %q", key)
	}

	if _, ok := Key(models.Job{Title: "Engineer"}); ok {
		t.Fatal("job without company should have no key")
	}
	if _, ok := Key(models.Job{Company: "Acme"}); ok {
		t.Fatal("job without title should have no key")
	}
}

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seen.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, path
}

func TestFilterNewAndMarkSeen(t *testing.T) {
	s, _ := openTestStore(t)

	jobs := []models.Job{
		{Title: "Engineer", Company: "Acme"},
		{Title: "Engineer", Company: "Globex"},
	}

	fresh := s.FilterNew("s1", jobs)
	if len(fresh) != 2 {
		t.Fatalf("fresh = %d, want 2", len(fresh))
	}

	if err := s.MarkSeen("s1", jobs); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	again := s.FilterNew("s1", append(jobs, models.Job{Title: "Engineer", Company: "Hooli"}))
	if len(again) != 1 || again[0].Company != "Hooli" {
		t.Fatalf("again = %+v", again)
	}

	// History is scoped per search.
	other := s.FilterNew("s2", jobs)
	if len(other) != 2 {
		t.Fatalf("other search saw shared history: %+v", other)
	}
}

func TestFilterNewKeepsKeylessJobs(t *testing.T) {
	s, _ := openTestStore(t)
	jobs := []models.Job{{Title: "Engineer"}}

	if err := s.MarkSeen("s1", jobs); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	fresh := s.FilterNew("s1", jobs)
	if len(fresh) != 1 {
		t.Fatal("keyless job should always pass through")
	}
}

func TestFilterNewDedupesWithinBatch(t *testing.T) {
	s, _ := openTestStore(t)
	jobs := []models.Job{
		{Title: "Engineer", Company: "Acme"},
		{Title: "engineer", Company: "ACME"},
	}
	fresh := s.FilterNew("s1", jobs)
	if len(fresh) != 1 {
		t.Fatalf("fresh = %d, want 1", len(fresh))
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	s, path := openTestStore(t)
	jobs := []models.Job{{Title: "Engineer", Company: "Acme"}}
	if err := s.MarkSeen("s1", jobs); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if fresh := reopened.FilterNew("s1", jobs); len(fresh) != 0 {
		t.Fatalf("history lost across reopen: %+v", fresh)
	}
}

func TestCleanup(t *testing.T) {
	s, _ := openTestStore(t)

	old := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	s.WithClock(func() time.Time { return old })
	if err := s.MarkSeen("s1", []models.Job{{Title: "Old", Company: "Acme"}}); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	recent := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)
	s.WithClock(func() time.Time { return recent })
	if err := s.MarkSeen("s1", []models.Job{{Title: "New", Company: "Acme"}}); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	s.WithClock(func() time.Time { return time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC) })
	removed, err := s.Cleanup(DefaultMaxAge)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	fresh := s.FilterNew("s1", []models.Job{
		{Title: "Old", Company: "Acme"},
		{Title: "New", Company: "Acme"},
	})
	if len(fresh) != 1 || fresh[0].Title != "Old" {
		t.Fatalf("fresh after cleanup = %+v", fresh)
	}
}

func TestForget(t *testing.T) {
	s, _ := openTestStore(t)
	jobs := []models.Job{{Title: "Engineer", Company: "Acme"}}
	if err := s.MarkSeen("s1", jobs); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if err := s.Forget("s1"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if fresh := s.FilterNew("s1", jobs); len(fresh) != 1 {
		t.Fatal("history survived Forget")
	}
}
