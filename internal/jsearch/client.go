// Package jsearch wraps the upstream job-search API: per-title pagination
// with bounded retry, a cumulative wall-clock budget, quota detection, and
// usage accounting for every page attempt.
package jsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"

	"github.com/mkowalczk/jobscout/internal/models"
)

// Outcome classifications reported to the usage recorder.
const (
	CallSuccess   = "success"
	CallTimeout   = "timeout"
	CallRateLimit = "rate_limit"
	CallQuota     = "quota_exceeded"
	CallOther     = "other"
)

var (
	// ErrQuotaExhausted marks an upstream response that signals the API
	// quota is spent. Fatal for the whole invocation: partial results
	// would be misleading.
	ErrQuotaExhausted = errors.New("upstream quota exhausted")

	// ErrRateLimited marks an HTTP 429 from the upstream.
	ErrRateLimited = errors.New("upstream rate limited")

	// ErrInvalidKey marks an HTTP 403 (bad key or quota enforced at the
	// gateway).
	ErrInvalidKey = errors.New("upstream rejected API key")
)

const (
	defaultMaxTotalPages = 10
	defaultPageTimeout   = 25 * time.Second
	defaultFetchBudget   = 50 * time.Second
)

// Transport issues one HTTP request under its own deadline.
// *network.Client satisfies it.
type Transport interface {
	DoWithTimeout(req *fhttp.Request, timeout time.Duration) (*fhttp.Response, error)
}

// UsageRecorder receives one append per page attempt. Write-only from the
// pipeline's point of view.
type UsageRecorder interface {
	RecordCall(pages int, status string, errType string)
}

type noopUsage struct{}

func (noopUsage) RecordCall(int, string, string) {}

// Client fetches postings from the upstream search provider.
type Client struct {
	transport Transport
	apiKey    string
	apiHost   string
	usage     UsageRecorder
	log       zerolog.Logger

	// MaxTotalPages bounds pages across all titles per invocation.
	MaxTotalPages int
	// PageTimeout bounds each individual page request.
	PageTimeout time.Duration
	// FetchBudget bounds the whole multi-title fetch; checked before
	// each new request is issued.
	FetchBudget time.Duration

	now func() time.Time
}

func NewClient(transport Transport, apiKey, apiHost string, usage UsageRecorder, log zerolog.Logger) *Client {
	if usage == nil {
		usage = noopUsage{}
	}
	return &Client{
		transport:     transport,
		apiKey:        apiKey,
		apiHost:       apiHost,
		usage:         usage,
		log:           log,
		MaxTotalPages: defaultMaxTotalPages,
		PageTimeout:   defaultPageTimeout,
		FetchBudget:   defaultFetchBudget,
		now:           time.Now,
	}
}

// FetchAll paginates the upstream per title and returns postings
// deduplicated by identity key. Pages within a title are fetched strictly
// in order: an empty page means "no more results" and must be observed
// before stopping. Titles are also sequential so the budget check stays
// predictable.
func (c *Client) FetchAll(ctx context.Context, titles []string, criteria models.SearchCriteria) ([]Posting, error) {
	if len(titles) == 0 {
		return nil, nil
	}

	perTitle := c.MaxTotalPages / len(titles)
	if perTitle < 1 {
		perTitle = 1
	}

	start := c.now()
	seen := make(map[string]struct{})
	var postings []Posting

	for _, title := range titles {
		if c.overBudget(start) {
			c.log.Warn().Str("title", title).Msg("fetch budget exhausted, returning accumulated results")
			return postings, nil
		}

		for page := 1; page <= perTitle; page++ {
			if c.overBudget(start) {
				return postings, nil
			}

			batch, err := c.fetchPage(ctx, title, page, criteria)
			if err != nil && page == 1 && retryable(err) {
				// One retry only: the upstream is intermittently
				// empty or slow on first hit. A single retry cannot
				// tell "slow" from "no results"; this is a
				// heuristic, not a guarantee.
				batch, err = c.fetchPage(ctx, title, page, criteria)
			}
			if err != nil {
				if fatal(err) {
					return nil, err
				}
				c.log.Warn().Err(err).Str("title", title).Int("page", page).Msg("page fetch failed, skipping remaining pages for title")
				break
			}
			if len(batch) == 0 && page == 1 {
				// Same one-retry heuristic for an empty first page.
				batch, err = c.fetchPage(ctx, title, page, criteria)
				if err != nil {
					if fatal(err) {
						return nil, err
					}
					break
				}
			}
			if len(batch) == 0 {
				break
			}

			for _, posting := range batch {
				key := posting.IdentityKey()
				if key == "" {
					postings = append(postings, posting)
					continue
				}
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				postings = append(postings, posting)
			}
		}
	}

	return postings, nil
}

func (c *Client) overBudget(start time.Time) bool {
	return c.FetchBudget > 0 && c.now().Sub(start) > c.FetchBudget
}

func (c *Client) fetchPage(ctx context.Context, title string, page int, criteria models.SearchCriteria) ([]Posting, error) {
	query := buildQuery(title, criteria)

	values := url.Values{}
	values.Set("query", query)
	values.Set("page", fmt.Sprintf("%d", page))
	values.Set("num_pages", "1")
	values.Set("date_posted", datePostedParam(criteria.DatePosted))
	if criteria.RemoteOnly() {
		values.Set("remote_jobs_only", "true")
	} else {
		values.Set("remote_jobs_only", "false")
	}

	target := fmt.Sprintf("https://%s/search?%s", c.apiHost, values.Encode())
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, target, nil)
	if err != nil {
		c.usage.RecordCall(1, CallOther, "request")
		return nil, err
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.apiHost)
	req.Header.Set("Accept", "application/json")

	resp, err := c.transport.DoWithTimeout(req, c.PageTimeout)
	if err != nil {
		if isTimeout(err) {
			c.usage.RecordCall(1, CallTimeout, "timeout")
			return nil, fmt.Errorf("page %d for %q: %w", page, title, err)
		}
		c.usage.RecordCall(1, CallOther, "network")
		return nil, fmt.Errorf("page %d for %q: %w", page, title, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == 403:
		c.usage.RecordCall(1, CallQuota, "403")
		return nil, fmt.Errorf("%w (403)", ErrInvalidKey)
	case resp.StatusCode == 429:
		c.usage.RecordCall(1, CallRateLimit, "429")
		return nil, fmt.Errorf("%w (429)", ErrRateLimited)
	case resp.StatusCode >= 400:
		c.usage.RecordCall(1, CallOther, fmt.Sprintf("http_%d", resp.StatusCode))
		return nil, fmt.Errorf("page %d for %q: http %d", page, title, resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.usage.RecordCall(1, CallOther, "decode")
		return nil, fmt.Errorf("page %d for %q: decode: %w", page, title, err)
	}

	// A 200 carrying an error message instead of data means the quota is
	// spent at the provider even though the gateway let us through.
	if decoded.Message != "" && len(decoded.Data) == 0 {
		c.usage.RecordCall(1, CallQuota, "message")
		return nil, fmt.Errorf("%w: %s", ErrQuotaExhausted, decoded.Message)
	}

	c.usage.RecordCall(1, CallSuccess, "")
	c.log.Debug().Str("title", title).Int("page", page).Int("results", len(decoded.Data)).Msg("fetched page")
	return decoded.Data, nil
}

func buildQuery(title string, criteria models.SearchCriteria) string {
	query := title
	if criteria.Location != "" && wantsOnsite(criteria.LocationType) {
		query = query + " in " + criteria.Location
	}
	return query
}

func wantsOnsite(locationTypes []string) bool {
	for _, lt := range locationTypes {
		switch strings.ToLower(lt) {
		case "onsite", "hybrid":
			return true
		}
	}
	return false
}

func datePostedParam(option string) string {
	switch option {
	case models.DateToday:
		return "today"
	case models.Date3Days:
		return "3days"
	case models.DateWeek:
		return "week"
	case models.DateMonth:
		return "month"
	default:
		return "all"
	}
}

func fatal(err error) bool {
	return errors.Is(err, ErrQuotaExhausted) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrInvalidKey)
}

func retryable(err error) bool {
	return isTimeout(err) && !fatal(err)
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
