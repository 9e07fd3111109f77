// Package scrape implements the best-effort salary backfill: fetching a
// bounded number of individual job pages and mining them for compensation
// text the upstream API did not provide. Every failure here is silent; a
// miss is indistinguishable from "no salary on the page".
package scrape

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/rs/zerolog"

	"github.com/mkowalczk/jobscout/internal/models"
	"github.com/mkowalczk/jobscout/internal/salary"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultBodyCap  = 512 << 10 // bytes read off the wire
	defaultTextCap  = 20000     // chars of page text scanned as fallback
	DefaultMaxPages = 5         // job pages fetched per search
)

// Selector patterns for blocks associated with salary display, scanned in
// order before falling back to the full page text.
var salarySelectors = []string{
	".salary",
	".compensation",
	".pay-range",
	"[class*='salary']",
	"[class*='compensation']",
	"[class*='pay']",
	"[data-testid*='salary']",
}

// Transport issues one HTTP request under its own deadline.
type Transport interface {
	DoWithTimeout(req *fhttp.Request, timeout time.Duration) (*fhttp.Response, error)
}

type Scraper struct {
	transport Transport
	log       zerolog.Logger

	Timeout  time.Duration
	BodyCap  int64
	MaxPages int
}

func New(transport Transport, log zerolog.Logger) *Scraper {
	return &Scraper{
		transport: transport,
		log:       log,
		Timeout:   defaultTimeout,
		BodyCap:   defaultBodyCap,
		MaxPages:  DefaultMaxPages,
	}
}

// ScrapeSalary fetches one job page and returns the first salary text it
// can mine, or "" on any failure.
func (s *Scraper) ScrapeSalary(ctx context.Context, target string) string {
	if target == "" || target == "#" {
		return ""
	}

	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, target, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.transport.DoWithTimeout(req, s.Timeout)
	if err != nil {
		s.log.Debug().Err(err).Str("url", target).Msg("salary scrape fetch failed")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, s.BodyCap))
	if err != nil {
		return ""
	}
	return mineSalary(doc)
}

func mineSalary(doc *goquery.Document) string {
	for _, selector := range salarySelectors {
		found := ""
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if match := salary.ExtractText(cleanText(sel.Text())); match != "" {
				found = match
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	text := cleanText(doc.Find("body").Text())
	if len(text) > defaultTextCap {
		text = text[:defaultTextCap]
	}
	return salary.ExtractText(text)
}

func cleanText(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// BackfillSalaries fires a scrape for up to max jobs still lacking salary
// and awaits the batch. Each goroutine writes only its own index, so no
// lock is needed on the slice. Returns how many salaries were filled.
func (s *Scraper) BackfillSalaries(ctx context.Context, jobs []models.Job, parser salary.Parser, max int) int {
	if max <= 0 {
		max = s.MaxPages
	}

	var indices []int
	for i := range jobs {
		if len(indices) >= max {
			break
		}
		if !jobs[i].HasSalary() && jobs[i].Link != "" {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return 0
	}

	var wg sync.WaitGroup
	filled := make([]bool, len(indices))
	for n, idx := range indices {
		wg.Add(1)
		go func(n, idx int) {
			defer wg.Done()
			raw := s.ScrapeSalary(ctx, jobs[idx].Link)
			if raw == "" {
				return
			}
			if normalized := parser.Normalize(raw); normalized != "" {
				jobs[idx].Salary = normalized
				filled[n] = true
			}
		}(n, idx)
	}
	wg.Wait()

	count := 0
	for _, ok := range filled {
		if ok {
			count++
		}
	}
	return count
}
