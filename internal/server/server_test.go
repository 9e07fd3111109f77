package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkowalczk/jobscout/internal/jsearch"
	"github.com/mkowalczk/jobscout/internal/models"
	"github.com/mkowalczk/jobscout/internal/runstatus"
	"github.com/mkowalczk/jobscout/internal/salary"
	"github.com/mkowalczk/jobscout/internal/search"
	"github.com/mkowalczk/jobscout/internal/store"
	"github.com/mkowalczk/jobscout/internal/usage"
)

type fakeFetcher struct {
	postings []jsearch.Posting
	err      error
}

func (f *fakeFetcher) FetchAll(context.Context, []string, models.SearchCriteria) ([]jsearch.Posting, error) {
	return f.postings, f.err
}

func newTestServer(t *testing.T, fetcher *fakeFetcher) *Server {
	t.Helper()
	dir := t.TempDir()

	searches, err := store.Open(filepath.Join(dir, "searches.json"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	usageRec, err := usage.Open(filepath.Join(dir, "usage.json"))
	if err != nil {
		t.Fatalf("usage: %v", err)
	}

	orch := search.NewOrchestrator(fetcher, nil, salary.NewParser(), zerolog.Nop())
	tracker := runstatus.New()
	runner := search.NewRunner(searches, tracker, orch, nil, zerolog.Nop())
	return New(orch, searches, runner, tracker, usageRec, zerolog.Nop())
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeFetcher{postings: []jsearch.Posting{{
		JobID:          "1",
		Title:          "Backend Engineer",
		Employer:       "Acme",
		EmploymentType: "FULL_TIME",
		ApplyLink:      "https://acme.example/jobs/1",
	}}})

	rec := doJSON(t, srv, http.MethodPost, "/api/jobs/search", models.SearchCriteria{
		JobTitle:     "engineer",
		SkipScraping: true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}

	result := decodeBody[searchResponse](t, rec)
	if !result.Success || result.Count != 1 {
		t.Fatalf("success=%v count=%d", result.Success, result.Count)
	}
	if len(result.Jobs) != 1 || result.Jobs[0].Title != "Backend Engineer" {
		t.Fatalf("jobs = %+v", result.Jobs)
	}
	if result.Debug.APIReturned != 1 {
		t.Fatalf("debug = %+v", result.Debug)
	}
}

func TestSearchEndpointDegraded(t *testing.T) {
	srv := newTestServer(t, &fakeFetcher{err: jsearch.ErrQuotaExhausted})

	rec := doJSON(t, srv, http.MethodPost, "/api/jobs/search", models.SearchCriteria{JobTitle: "engineer"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	result := decodeBody[searchResponse](t, rec)
	if result.Success || result.Count != 0 {
		t.Fatalf("success=%v count=%d, want degraded", result.Success, result.Count)
	}
	if result.Debug.Error == "" {
		t.Fatal("missing debug error")
	}
}

func TestSearchEndpointBadBody(t *testing.T) {
	srv := newTestServer(t, &fakeFetcher{})
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/search", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSavedSearchCRUD(t *testing.T) {
	srv := newTestServer(t, &fakeFetcher{})

	rec := doJSON(t, srv, http.MethodPost, "/api/searches", models.SavedSearch{
		SearchCriteria: models.SearchCriteria{JobTitle: "go developer"},
		Frequency:      models.FrequencyDaily,
		UserEmail:      "dev@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rec.Code, rec.Body)
	}
	created := decodeBody[models.SavedSearch](t, rec)
	if created.ID == "" || !created.IsActive {
		t.Fatalf("created = %+v", created)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/searches", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if all := decodeBody[[]models.SavedSearch](t, rec); len(all) != 1 {
		t.Fatalf("list = %+v", all)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/searches/"+created.ID+"/toggle", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rec.Code)
	}
	if toggled := decodeBody[models.SavedSearch](t, rec); toggled.IsActive {
		t.Fatal("toggle did not deactivate")
	}

	rec = doJSON(t, srv, http.MethodDelete, "/api/searches/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/searches/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}

func TestCreateSearchRequiresTitle(t *testing.T) {
	srv := newTestServer(t, &fakeFetcher{})
	rec := doJSON(t, srv, http.MethodPost, "/api/searches", models.SavedSearch{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRunNowAndPoll(t *testing.T) {
	srv := newTestServer(t, &fakeFetcher{postings: []jsearch.Posting{{
		JobID:          "1",
		Title:          "Engineer",
		Employer:       "Acme",
		EmploymentType: "FULL_TIME",
		ApplyLink:      "https://acme.example/jobs/1",
	}}})

	rec := doJSON(t, srv, http.MethodPost, "/api/searches", models.SavedSearch{
		SearchCriteria: models.SearchCriteria{JobTitle: "engineer", SkipScraping: true},
	})
	created := decodeBody[models.SavedSearch](t, rec)

	rec = doJSON(t, srv, http.MethodPost, "/api/searches/"+created.ID+"/run", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("run status = %d body = %s", rec.Code, rec.Body)
	}
	token := decodeBody[map[string]string](t, rec)["statusToken"]
	if token == "" {
		t.Fatal("no status token")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = doJSON(t, srv, http.MethodGet, "/api/runs/"+token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("poll status = %d", rec.Code)
		}
		status := decodeBody[models.RunStatus](t, rec)
		if status.Status != models.RunRunning {
			if status.Status != models.RunCompleted || status.JobsFound != 1 {
				t.Fatalf("terminal status = %+v", status)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunUnknownSearch(t *testing.T) {
	srv := newTestServer(t, &fakeFetcher{})
	rec := doJSON(t, srv, http.MethodPost, "/api/searches/missing/run", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRunStatusUnknownToken(t *testing.T) {
	srv := newTestServer(t, &fakeFetcher{})
	rec := doJSON(t, srv, http.MethodGet, "/api/runs/nope-123", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody[map[string]string](t, rec); body["error"] == "" {
		t.Fatal("missing error message")
	}
}

func TestUsageEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeFetcher{})
	srv.usage.RecordCall(1, jsearch.CallSuccess, "")

	rec := doJSON(t, srv, http.MethodGet, "/api/usage", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	stats := decodeBody[usage.Stats](t, rec)
	if stats.TotalCalls != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}
