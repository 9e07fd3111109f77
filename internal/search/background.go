package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkowalczk/jobscout/internal/models"
	"github.com/mkowalczk/jobscout/internal/runstatus"
)

// SavedSearches is the slice of the saved-search store the runner needs.
type SavedSearches interface {
	Get(id string) (models.SavedSearch, error)
	UpdateLastRun(id string, at time.Time) error
}

// Mailer delivers a digest of found jobs to the search owner.
type Mailer interface {
	SendJobAlert(recipient string, jobs []models.Job, criteria models.SearchCriteria) error
}

// Runner executes saved searches in the background and reports progress
// through the status tracker. The returned token is immediately pollable.
type Runner struct {
	searches SavedSearches
	tracker  *runstatus.Tracker
	orch     *Orchestrator
	mailer   Mailer
	log      zerolog.Logger
	timeout  time.Duration
}

func NewRunner(searches SavedSearches, tracker *runstatus.Tracker, orch *Orchestrator, mailer Mailer, log zerolog.Logger) *Runner {
	return &Runner{
		searches: searches,
		tracker:  tracker,
		orch:     orch,
		mailer:   mailer,
		log:      log,
		timeout:  2 * time.Minute,
	}
}

// StartRun kicks off an asynchronous run of the saved search and returns
// its status token. The lookup is synchronous so an unknown id fails fast.
func (r *Runner) StartRun(searchID string) (string, error) {
	saved, err := r.searches.Get(searchID)
	if err != nil {
		return "", fmt.Errorf("load search %s: %w", searchID, err)
	}

	token := r.tracker.Start(searchID)
	go r.run(token, saved)
	return token, nil
}

func (r *Runner) run(token string, saved models.SavedSearch) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("token", token).Interface("panic", rec).Msg("background run panicked")
			r.tracker.Fail(token, fmt.Errorf("internal error: %v", rec))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	r.tracker.SetMessage(token, "Searching for jobs...")

	result := r.orch.Search(ctx, saved.SearchCriteria)
	if result.Debug.Error != "" {
		r.tracker.Fail(token, errors.New(result.Debug.Error))
		return
	}

	if len(result.Jobs) > 0 && saved.UserEmail != "" && r.mailer != nil {
		r.tracker.SetMessage(token, "Sending email digest...")
		if err := r.mailer.SendJobAlert(saved.UserEmail, result.Jobs, saved.SearchCriteria); err != nil {
			r.log.Error().Err(err).Str("search_id", saved.ID).Msg("digest send failed")
			r.tracker.Fail(token, fmt.Errorf("email delivery: %w", err))
			return
		}
	}

	if err := r.searches.UpdateLastRun(saved.ID, time.Now().UTC()); err != nil {
		r.log.Warn().Err(err).Str("search_id", saved.ID).Msg("last-run stamp failed")
	}

	r.tracker.Complete(token, len(result.Jobs), &result.Debug)
}
