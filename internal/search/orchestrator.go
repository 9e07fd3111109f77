// Package search composes the pipeline: fetch postings per title, run the
// filter chain with full trace accounting, backfill missing salaries, and
// hand back a well-formed result no matter how the upstream misbehaves.
package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkowalczk/jobscout/internal/filter"
	"github.com/mkowalczk/jobscout/internal/jsearch"
	"github.com/mkowalczk/jobscout/internal/models"
	"github.com/mkowalczk/jobscout/internal/salary"
	"github.com/mkowalczk/jobscout/internal/scrape"
)

const (
	defaultSource     = "JSearch API (Google Jobs/LinkedIn/Indeed)"
	descriptionLimit  = 300
	datePulledLayout  = "2006-01-02 15:04:05"
	postingDateLayout = "2006-01-02"
)

// Fetcher retrieves raw postings for a set of titles.
type Fetcher interface {
	FetchAll(ctx context.Context, titles []string, criteria models.SearchCriteria) ([]jsearch.Posting, error)
}

// Backfiller fills missing salaries by scraping individual job pages.
type Backfiller interface {
	BackfillSalaries(ctx context.Context, jobs []models.Job, parser salary.Parser, max int) int
}

// Result is the orchestrator's complete answer: the surviving jobs plus
// the trace explaining every drop. Zero jobs is a normal outcome.
type Result struct {
	Jobs  []models.Job       `json:"jobs"`
	Debug models.FilterTrace `json:"debug"`
}

type Orchestrator struct {
	fetcher   Fetcher
	scraper   Backfiller
	parser    salary.Parser
	log       zerolog.Logger
	scrapeCap int
	now       func() time.Time
}

func NewOrchestrator(fetcher Fetcher, scraper Backfiller, parser salary.Parser, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher:   fetcher,
		scraper:   scraper,
		parser:    parser,
		log:       log,
		scrapeCap: scrape.DefaultMaxPages,
		now:       time.Now,
	}
}

// WithClock injects the time source, for tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// WithScrapeCap overrides how many job pages a single search may scrape
// for salary backfill.
func (o *Orchestrator) WithScrapeCap(cap int) *Orchestrator {
	if cap > 0 {
		o.scrapeCap = cap
	}
	return o
}

// Search runs one full request/response cycle. Upstream failures degrade
// to an empty job list with the classified message in Debug.Error; they
// never propagate as errors.
func (o *Orchestrator) Search(ctx context.Context, criteria models.SearchCriteria) Result {
	trace := models.FilterTrace{}
	titles := criteria.Titles()

	postings, err := o.fetcher.FetchAll(ctx, titles, criteria)
	if err != nil {
		trace.Error = classifyFetchError(err)
		o.log.Error().Err(err).Strs("titles", titles).Msg("upstream fetch failed")
		return Result{Jobs: []models.Job{}, Debug: trace}
	}

	trace.APIReturned = len(postings)
	remoteOnly := criteria.RemoteOnly()
	pulled := o.now().UTC()

	jobs := make([]models.Job, 0, len(postings))
	for _, posting := range postings {
		if remoteOnly {
			ok, reason := filter.IsGenuinelyRemote(posting.AllText(), filter.Location{
				City:          posting.City,
				State:         posting.State,
				Country:       posting.Country,
				FlaggedRemote: posting.IsRemote,
			})
			if !ok {
				trace.RemoteRejected++
				trace.RemoteReasons = append(trace.RemoteReasons, models.Rejection{Title: posting.Title, Reason: reason})
				continue
			}
		}

		normalized := o.resolveSalary(posting)
		if rejectedBySalaryCriteria(normalized, criteria) {
			trace.SalaryRejected++
			continue
		}

		jobs = append(jobs, o.transform(posting, normalized, pulled))
	}

	trace.AfterRemoteFilter = trace.APIReturned - trace.RemoteRejected
	trace.AfterSalaryFilter = trace.AfterRemoteFilter - trace.SalaryRejected

	jobs = o.applySourceFilter(jobs, &trace)
	trace.AfterSourceFilter = trace.AfterSalaryFilter - trace.SourceRejected

	jobs = o.applyDateFilter(jobs, criteria.DatePosted, &trace)
	trace.AfterDateFilter = trace.AfterSourceFilter - trace.DateRejected

	jobs = o.applyEmploymentFilter(jobs, &trace)
	trace.AfterEmploymentFilter = trace.AfterDateFilter - trace.EmploymentRejected

	if !criteria.SkipScraping && o.scraper != nil {
		filled := o.scraper.BackfillSalaries(ctx, jobs, o.parser, o.scrapeCap)
		if filled > 0 {
			o.log.Debug().Int("filled", filled).Msg("salary backfill")
		}
	}

	o.log.Info().
		Int("api_returned", trace.APIReturned).
		Int("final", len(jobs)).
		Msg("search complete")

	return Result{Jobs: jobs, Debug: trace}
}

func (o *Orchestrator) applySourceFilter(jobs []models.Job, trace *models.FilterTrace) []models.Job {
	kept := jobs[:0]
	for _, job := range jobs {
		if filter.IsBlockedSource(job.Source, job.Link) {
			trace.SourceRejected++
			continue
		}
		kept = append(kept, job)
	}
	return kept
}

func (o *Orchestrator) applyDateFilter(jobs []models.Job, option string, trace *models.FilterTrace) []models.Job {
	now := o.now()
	kept := jobs[:0]
	for _, job := range jobs {
		if !filter.WithinWindow(job.PostingDate, option, now) {
			trace.DateRejected++
			continue
		}
		kept = append(kept, job)
	}
	return kept
}

func (o *Orchestrator) applyEmploymentFilter(jobs []models.Job, trace *models.FilterTrace) []models.Job {
	kept := jobs[:0]
	for _, job := range jobs {
		if !filter.AcceptableEmployment(job.EmploymentType) {
			trace.EmploymentRejected++
			trace.EmploymentReasons = append(trace.EmploymentReasons, models.Rejection{
				Title:  job.Title,
				Reason: job.EmploymentType,
			})
			continue
		}
		kept = append(kept, job)
	}
	return kept
}

// resolveSalary prefers the structured numeric fields, then mines the
// highlight sections, the description, and finally the title.
func (o *Orchestrator) resolveSalary(posting jsearch.Posting) string {
	if posting.MinSalary > 0 || posting.MaxSalary > 0 {
		if s := o.parser.FromStructured(posting.MinSalary, posting.MaxSalary, posting.SalaryPeriod); s != "" {
			return s
		}
	}

	for _, text := range []string{posting.HighlightText(), posting.Description, posting.Title} {
		match := salary.ExtractText(text)
		if match == "" {
			continue
		}
		if s := o.parser.Normalize(match); s != "" {
			return s
		}
	}
	return models.SalaryNotSpecified
}

func rejectedBySalaryCriteria(normalized string, criteria models.SearchCriteria) bool {
	if criteria.MinSalary <= 0 && criteria.MaxSalary <= 0 {
		return false
	}
	if normalized == models.SalaryNotSpecified {
		return false
	}
	min, max, ok := salary.AnnualBounds(normalized)
	if !ok {
		return false
	}
	if criteria.MinSalary > 0 && max < float64(criteria.MinSalary) {
		return true
	}
	if criteria.MaxSalary > 0 && min > float64(criteria.MaxSalary) {
		return true
	}
	return false
}

func (o *Orchestrator) transform(posting jsearch.Posting, normalizedSalary string, pulled time.Time) models.Job {
	title := posting.Title
	if title == "" {
		title = "No title"
	}
	company := posting.Employer
	if company == "" {
		company = "Unknown"
	}
	link := posting.Link()
	if link == "" {
		link = "#"
	}
	description := truncate(posting.Description, descriptionLimit)
	if description == "" {
		description = "No description available"
	}
	source := posting.Publisher
	if source == "" {
		source = defaultSource
	}

	return models.Job{
		Title:          title,
		Company:        company,
		Location:       posting.LocationString(),
		Link:           link,
		Description:    description,
		Salary:         normalizedSalary,
		EmploymentType: filter.EmploymentLabel(posting.EmploymentType),
		CompanyType:    posting.EmployerType,
		PostingDate:    postingDate(posting.PostedAt, pulled),
		DatePulled:     pulled.Format(datePulledLayout),
		Source:         source,
	}
}

func postingDate(raw string, fallback time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		for _, layout := range []string{time.RFC3339, time.RFC3339Nano, postingDateLayout} {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts.UTC().Format(postingDateLayout)
			}
		}
	}
	return fallback.Format(postingDateLayout)
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	return strings.TrimSpace(value[:max]) + "..."
}

func classifyFetchError(err error) string {
	switch {
	case errors.Is(err, jsearch.ErrQuotaExhausted):
		return err.Error()
	case errors.Is(err, jsearch.ErrInvalidKey):
		return "Invalid API key or quota exceeded"
	case errors.Is(err, jsearch.ErrRateLimited):
		return "Rate limit exceeded"
	default:
		return err.Error()
	}
}
