// Package sched runs saved searches on a schedule: a morning sweep that
// executes whatever is due, and a nightly seen-history cleanup.
package sched

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mkowalczk/jobscout/internal/filter"
	"github.com/mkowalczk/jobscout/internal/models"
	"github.com/mkowalczk/jobscout/internal/search"
	"github.com/mkowalczk/jobscout/internal/seen"
)

const (
	sweepSpec   = "0 9 * * *"
	cleanupSpec = "30 3 * * *"
)

// SearchSource is the slice of the saved-search store the scheduler needs.
type SearchSource interface {
	Active() []models.SavedSearch
	UpdateLastRun(id string, at time.Time) error
}

// History is the seen-jobs store interface the scheduler needs.
type History interface {
	FilterNew(searchID string, jobs []models.Job) []models.Job
	MarkSeen(searchID string, jobs []models.Job) error
	Cleanup(maxAge time.Duration) (int, error)
}

type Scheduler struct {
	cron     *cron.Cron
	searches SearchSource
	orch     *search.Orchestrator
	history  History
	mailer   search.Mailer
	log      zerolog.Logger
	now      func() time.Time
}

func New(searches SearchSource, orch *search.Orchestrator, history History, mailer search.Mailer, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		searches: searches,
		orch:     orch,
		history:  history,
		mailer:   mailer,
		log:      log,
		now:      time.Now,
	}
}

// Start registers the cron entries and begins running them.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(sweepSpec, func() { s.RunDue(s.now()) }); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	if _, err := s.cron.AddFunc(cleanupSpec, s.cleanup); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}
	s.cron.Start()
	s.log.Info().Str("sweep", sweepSpec).Str("cleanup", cleanupSpec).Msg("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for any in-flight run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunDue executes every active saved search that is due at the given time.
func (s *Scheduler) RunDue(now time.Time) {
	for _, saved := range s.searches.Active() {
		if !Due(saved, now) {
			continue
		}
		s.runOne(saved)
	}
}

// Due decides whether a saved search should run at the given time. Daily
// searches run once per calendar day; weekly searches only on their
// configured weekday, once per week.
func Due(saved models.SavedSearch, now time.Time) bool {
	utc := now.UTC()
	midnight := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)

	switch saved.Frequency {
	case models.FrequencyWeekly:
		if !strings.EqualFold(saved.DayOfWeek, utc.Weekday().String()) {
			return false
		}
		return saved.LastRun == nil || saved.LastRun.Before(midnight.AddDate(0, 0, -6))
	default:
		return saved.LastRun == nil || saved.LastRun.Before(midnight)
	}
}

func (s *Scheduler) runOne(saved models.SavedSearch) {
	log := s.log.With().Str("search_id", saved.ID).Logger()

	criteria := saved.SearchCriteria
	criteria.SkipScraping = true

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result := s.orch.Search(ctx, criteria)
	if result.Debug.Error != "" {
		log.Error().Str("error", result.Debug.Error).Msg("scheduled run failed")
		return
	}

	recent := windowByFrequency(result.Jobs, saved.Frequency, s.now())
	fresh := s.history.FilterNew(saved.ID, recent)
	log.Info().Int("found", len(result.Jobs)).Int("recent", len(recent)).Int("new", len(fresh)).Msg("scheduled run complete")

	if len(fresh) > 0 && s.mailer != nil {
		if err := s.mailer.SendJobAlert(saved.UserEmail, fresh, criteria); err != nil {
			log.Error().Err(err).Msg("digest send failed")
			return
		}
	}

	if err := s.history.MarkSeen(saved.ID, fresh); err != nil {
		log.Warn().Err(err).Msg("seen history update failed")
	}
	if err := s.searches.UpdateLastRun(saved.ID, s.now().UTC()); err != nil {
		log.Warn().Err(err).Msg("last-run stamp failed")
	}
}

// windowByFrequency narrows digest results to postings from the last run
// interval: one day for daily searches, seven for weekly. The saved date
// option may be wider (or "all"), so this applies on top of it.
func windowByFrequency(jobs []models.Job, frequency string, now time.Time) []models.Job {
	days := 1
	if frequency == models.FrequencyWeekly {
		days = 7
	}

	kept := jobs[:0]
	for _, job := range jobs {
		if filter.PostedWithinDays(job.PostingDate, days, now) {
			kept = append(kept, job)
		}
	}
	return kept
}

func (s *Scheduler) cleanup() {
	removed, err := s.history.Cleanup(seen.DefaultMaxAge)
	if err != nil {
		s.log.Error().Err(err).Msg("seen cleanup failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("seen history pruned")
	}
}
