package jsearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"

	"github.com/mkowalczk/jobscout/internal/models"
)

type fakeResponse struct {
	status int
	body   string
	err    error
}

type fakeTransport struct {
	responses []fakeResponse
	calls     []string
}

func (f *fakeTransport) DoWithTimeout(req *fhttp.Request, _ time.Duration) (*fhttp.Response, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, req.URL.Query().Get("query")+"#"+req.URL.Query().Get("page"))

	if idx >= len(f.responses) {
		return &fhttp.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(`{"data":[]}`))}, nil
	}
	r := f.responses[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &fhttp.Response{StatusCode: r.status, Body: io.NopCloser(strings.NewReader(r.body))}, nil
}

type recordingUsage struct {
	statuses []string
}

func (r *recordingUsage) RecordCall(pages int, status string, errType string) {
	r.statuses = append(r.statuses, status)
}

func newTestClient(transport Transport, usage UsageRecorder) *Client {
	c := NewClient(transport, "test-key", "example.test", usage, zerolog.Nop())
	return c
}

func postingJSON(id, title, employer string) string {
	return fmt.Sprintf(`{"job_id":%q,"job_title":%q,"employer_name":%q}`, id, title, employer)
}

func TestFetchAllDeduplicatesAcrossTitles(t *testing.T) {
	transport := &fakeTransport{responses: []fakeResponse{
		{status: 200, body: `{"data":[` + postingJSON("j1", "Engineer", "Acme") + `,` + postingJSON("j2", "Engineer II", "Acme") + `]}`},
		{status: 200, body: `{"data":[]}`},
		{status: 200, body: `{"data":[` + postingJSON("j1", "Engineer", "Acme") + `,` + postingJSON("j3", "Developer", "Beta") + `]}`},
		{status: 200, body: `{"data":[]}`},
	}}
	client := newTestClient(transport, nil)
	client.MaxTotalPages = 4

	postings, err := client.FetchAll(context.Background(), []string{"engineer", "developer"}, models.SearchCriteria{})
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(postings) != 3 {
		t.Fatalf("len(postings) = %d, want 3", len(postings))
	}
	if len(transport.calls) != 4 {
		t.Fatalf("calls = %v, want 4 page requests", transport.calls)
	}
}

func TestFetchAllRetriesEmptyFirstPageOnce(t *testing.T) {
	transport := &fakeTransport{responses: []fakeResponse{
		{status: 200, body: `{"data":[]}`},
		{status: 200, body: `{"data":[` + postingJSON("j1", "Engineer", "Acme") + `]}`},
	}}
	client := newTestClient(transport, nil)
	client.MaxTotalPages = 1

	postings, err := client.FetchAll(context.Background(), []string{"engineer"}, models.SearchCriteria{})
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("len(postings) = %d, want 1 (retry should have recovered)", len(postings))
	}
	if len(transport.calls) != 2 {
		t.Fatalf("calls = %v, want exactly one retry", transport.calls)
	}
}

func TestFetchAllQuotaMessageShortCircuits(t *testing.T) {
	usage := &recordingUsage{}
	transport := &fakeTransport{responses: []fakeResponse{
		{status: 200, body: `{"message":"You have exceeded your monthly quota"}`},
	}}
	client := newTestClient(transport, usage)

	postings, err := client.FetchAll(context.Background(), []string{"engineer", "developer"}, models.SearchCriteria{})
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("error = %v, want ErrQuotaExhausted", err)
	}
	if !strings.Contains(err.Error(), "exceeded") {
		t.Fatalf("error %q should carry the upstream message", err)
	}
	if postings != nil {
		t.Fatalf("postings = %v, want nil on quota exhaustion", postings)
	}
	if len(transport.calls) != 1 {
		t.Fatalf("calls = %v, want no further requests after quota message", transport.calls)
	}
	if len(usage.statuses) != 1 || usage.statuses[0] != CallQuota {
		t.Fatalf("usage statuses = %v, want one quota_exceeded", usage.statuses)
	}
}

func TestFetchAllRateLimitIsFatal(t *testing.T) {
	usage := &recordingUsage{}
	transport := &fakeTransport{responses: []fakeResponse{
		{status: 429, body: `{}`},
	}}
	client := newTestClient(transport, usage)

	_, err := client.FetchAll(context.Background(), []string{"engineer", "developer"}, models.SearchCriteria{})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
	if len(transport.calls) != 1 {
		t.Fatalf("calls = %v, want 1", transport.calls)
	}
	if len(usage.statuses) != 1 || usage.statuses[0] != CallRateLimit {
		t.Fatalf("usage statuses = %v", usage.statuses)
	}
}

func TestFetchAllWallClockBudget(t *testing.T) {
	transport := &fakeTransport{responses: []fakeResponse{
		{status: 200, body: `{"data":[` + postingJSON("j1", "Engineer", "Acme") + `]}`},
	}}
	client := newTestClient(transport, nil)
	client.FetchBudget = time.Nanosecond

	postings, err := client.FetchAll(context.Background(), []string{"engineer"}, models.SearchCriteria{})
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(postings) != 0 {
		t.Fatalf("len(postings) = %d, want 0 once budget is spent", len(postings))
	}
	if len(transport.calls) != 0 {
		t.Fatalf("calls = %v, want none once budget is spent", transport.calls)
	}
}

func TestFetchAllTransportErrorSkipsTitle(t *testing.T) {
	usage := &recordingUsage{}
	transport := &fakeTransport{responses: []fakeResponse{
		{err: errors.New("connection reset")},
		{status: 200, body: `{"data":[` + postingJSON("j1", "Engineer", "Acme") + `]}`},
		{status: 200, body: `{"data":[]}`},
	}}
	client := newTestClient(transport, usage)
	client.MaxTotalPages = 4

	postings, err := client.FetchAll(context.Background(), []string{"engineer", "developer"}, models.SearchCriteria{})
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("len(postings) = %d, want 1 from the surviving title", len(postings))
	}
	if usage.statuses[0] != CallOther {
		t.Fatalf("usage statuses = %v, want other first", usage.statuses)
	}
}
