package sched

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkowalczk/jobscout/internal/jsearch"
	"github.com/mkowalczk/jobscout/internal/models"
	"github.com/mkowalczk/jobscout/internal/salary"
	"github.com/mkowalczk/jobscout/internal/search"
)

func TestDue(t *testing.T) {
	// A Sunday.
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	earlierToday := now.Add(-2 * time.Hour)
	lastWeek := now.AddDate(0, 0, -7)
	threeDaysAgo := now.AddDate(0, 0, -3)

	cases := []struct {
		name  string
		saved models.SavedSearch
		want  bool
	}{
		{"daily never run", models.SavedSearch{Frequency: models.FrequencyDaily}, true},
		{"daily ran yesterday", models.SavedSearch{Frequency: models.FrequencyDaily, LastRun: &yesterday}, true},
		{"daily already ran today", models.SavedSearch{Frequency: models.FrequencyDaily, LastRun: &earlierToday}, false},
		{"weekly on its day, never run", models.SavedSearch{Frequency: models.FrequencyWeekly, DayOfWeek: "sunday"}, true},
		{"weekly on its day, ran last week", models.SavedSearch{Frequency: models.FrequencyWeekly, DayOfWeek: "Sunday", LastRun: &lastWeek}, true},
		{"weekly on its day, ran recently", models.SavedSearch{Frequency: models.FrequencyWeekly, DayOfWeek: "sunday", LastRun: &threeDaysAgo}, false},
		{"weekly wrong day", models.SavedSearch{Frequency: models.FrequencyWeekly, DayOfWeek: "monday"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Due(tc.saved, now); got != tc.want {
				t.Fatalf("Due = %v, want %v", got, tc.want)
			}
		})
	}
}

type fakeFetcher struct {
	postings     []jsearch.Posting
	gotCriteria  models.SearchCriteria
	fetchedCount int
}

func (f *fakeFetcher) FetchAll(_ context.Context, _ []string, criteria models.SearchCriteria) ([]jsearch.Posting, error) {
	f.gotCriteria = criteria
	f.fetchedCount++
	return f.postings, nil
}

type fakeSource struct {
	active  []models.SavedSearch
	stamped []string
}

func (s *fakeSource) Active() []models.SavedSearch { return s.active }

func (s *fakeSource) UpdateLastRun(id string, _ time.Time) error {
	s.stamped = append(s.stamped, id)
	return nil
}

type fakeHistory struct {
	seenKeys map[string]bool
	marked   int
}

func (h *fakeHistory) FilterNew(_ string, jobs []models.Job) []models.Job {
	fresh := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		if !h.seenKeys[job.Title] {
			fresh = append(fresh, job)
		}
	}
	return fresh
}

func (h *fakeHistory) MarkSeen(_ string, jobs []models.Job) error {
	h.marked += len(jobs)
	return nil
}

func (h *fakeHistory) Cleanup(time.Duration) (int, error) { return 0, nil }

type fakeMailer struct {
	recipient string
	jobCount  int
	sends     int
}

func (m *fakeMailer) SendJobAlert(recipient string, jobs []models.Job, _ models.SearchCriteria) error {
	m.recipient = recipient
	m.jobCount = len(jobs)
	m.sends++
	return nil
}

func TestRunDue(t *testing.T) {
	fetcher := &fakeFetcher{postings: []jsearch.Posting{
		{JobID: "1", Title: "Seen Engineer", Employer: "Acme", EmploymentType: "FULL_TIME", ApplyLink: "https://a.example/1"},
		{JobID: "2", Title: "New Engineer", Employer: "Acme", EmploymentType: "FULL_TIME", ApplyLink: "https://a.example/2"},
	}}
	orch := search.NewOrchestrator(fetcher, nil, salary.NewParser(), zerolog.Nop())

	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	source := &fakeSource{active: []models.SavedSearch{
		{ID: "due", Frequency: models.FrequencyDaily, UserEmail: "dev@example.com",
			SearchCriteria: models.SearchCriteria{JobTitle: "engineer"}},
		{ID: "not-due", Frequency: models.FrequencyWeekly, DayOfWeek: "monday"},
	}}
	history := &fakeHistory{seenKeys: map[string]bool{"Seen Engineer": true}}
	mailer := &fakeMailer{}

	s := New(source, orch, history, mailer, zerolog.Nop())
	s.now = func() time.Time { return now }
	s.RunDue(now)

	if fetcher.fetchedCount != 1 {
		t.Fatalf("fetched %d times, want 1", fetcher.fetchedCount)
	}
	if !fetcher.gotCriteria.SkipScraping {
		t.Error("scheduled run did not skip scraping")
	}
	if mailer.sends != 1 || mailer.jobCount != 1 || mailer.recipient != "dev@example.com" {
		t.Errorf("mailer sends=%d jobs=%d to=%q", mailer.sends, mailer.jobCount, mailer.recipient)
	}
	if history.marked != 1 {
		t.Errorf("marked = %d, want 1", history.marked)
	}
	if len(source.stamped) != 1 || source.stamped[0] != "due" {
		t.Errorf("stamped = %v", source.stamped)
	}
}

func TestRunDueWindowsByFrequency(t *testing.T) {
	fetcher := &fakeFetcher{postings: []jsearch.Posting{
		{JobID: "1", Title: "Fresh Engineer", Employer: "Acme", EmploymentType: "FULL_TIME",
			ApplyLink: "https://a.example/1", PostedAt: "2025-06-15T06:00:00Z"},
		{JobID: "2", Title: "Stale Engineer", Employer: "Acme", EmploymentType: "FULL_TIME",
			ApplyLink: "https://a.example/2", PostedAt: "2025-05-10T06:00:00Z"},
	}}
	orch := search.NewOrchestrator(fetcher, nil, salary.NewParser(), zerolog.Nop())

	// The saved search asks for every posting age, but a daily digest only
	// reports the last day's postings.
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	source := &fakeSource{active: []models.SavedSearch{
		{ID: "due", Frequency: models.FrequencyDaily, UserEmail: "dev@example.com",
			SearchCriteria: models.SearchCriteria{JobTitle: "engineer", DatePosted: models.DateAll}},
	}}
	history := &fakeHistory{seenKeys: map[string]bool{}}
	mailer := &fakeMailer{}

	s := New(source, orch, history, mailer, zerolog.Nop())
	s.now = func() time.Time { return now }
	s.RunDue(now)

	if mailer.sends != 1 || mailer.jobCount != 1 {
		t.Fatalf("mailer sends=%d jobs=%d, want one digest with the fresh posting only", mailer.sends, mailer.jobCount)
	}
	if history.marked != 1 {
		t.Fatalf("marked = %d, want 1", history.marked)
	}
}

func TestWindowByFrequency(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	jobs := []models.Job{
		{Title: "today", PostingDate: "2025-06-15"},
		{Title: "five days ago", PostingDate: "2025-06-10"},
		{Title: "last month", PostingDate: "2025-05-10"},
		{Title: "undated", PostingDate: ""},
	}

	daily := windowByFrequency(append([]models.Job(nil), jobs...), models.FrequencyDaily, now)
	if len(daily) != 2 || daily[0].Title != "today" || daily[1].Title != "undated" {
		t.Fatalf("daily window = %+v", titles(daily))
	}

	weekly := windowByFrequency(append([]models.Job(nil), jobs...), models.FrequencyWeekly, now)
	if len(weekly) != 3 {
		t.Fatalf("weekly window = %+v", titles(weekly))
	}
}

func titles(jobs []models.Job) []string {
	out := make([]string, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.Title)
	}
	return out
}

func TestRunDueNoNewJobs(t *testing.T) {
	fetcher := &fakeFetcher{postings: []jsearch.Posting{
		{JobID: "1", Title: "Seen Engineer", Employer: "Acme", EmploymentType: "FULL_TIME", ApplyLink: "https://a.example/1"},
	}}
	orch := search.NewOrchestrator(fetcher, nil, salary.NewParser(), zerolog.Nop())

	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	source := &fakeSource{active: []models.SavedSearch{
		{ID: "due", Frequency: models.FrequencyDaily, UserEmail: "dev@example.com",
			SearchCriteria: models.SearchCriteria{JobTitle: "engineer"}},
	}}
	history := &fakeHistory{seenKeys: map[string]bool{"Seen Engineer": true}}
	mailer := &fakeMailer{}

	s := New(source, orch, history, mailer, zerolog.Nop())
	s.now = func() time.Time { return now }
	s.RunDue(now)

	if mailer.sends != 0 {
		t.Fatalf("sent a digest with no new jobs")
	}
	if len(source.stamped) != 1 {
		t.Fatalf("run without new jobs should still stamp lastRun, got %v", source.stamped)
	}
}
