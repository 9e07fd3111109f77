// Package runstatus tracks asynchronous run-now invocations: an in-memory
// map of pollable status records keyed by an opaque token, swept on a fixed
// retention window.
package runstatus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mkowalczk/jobscout/internal/models"
)

// ErrNotFound is returned for unknown or expired tokens. Expected once the
// retention window elapses; callers treat it as "unknown", not a crash.
var ErrNotFound = errors.New("run status not found")

// DefaultRetention is how long finished (or abandoned) records stay
// pollable.
const DefaultRetention = 10 * time.Minute

// Tracker owns the status map. Each record is written by the one
// background task that owns its token and read by pollers; the mutex only
// guards the map itself and record snapshots.
type Tracker struct {
	mu        sync.Mutex
	runs      map[string]*entry
	retention time.Duration
	now       func() time.Time
}

type entry struct {
	status  models.RunStatus
	created time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithRetention overrides the sweep window.
func WithRetention(d time.Duration) Option {
	return func(t *Tracker) { t.retention = d }
}

func New(opts ...Option) *Tracker {
	t := &Tracker{
		runs:      make(map[string]*entry),
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start registers a new run in the running state and returns its token.
// Records older than the retention window are swept first.
func (t *Tracker) Start(searchID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweepLocked()

	now := t.now()
	base := fmt.Sprintf("%s-%d", searchID, now.UnixMilli())
	token := base
	for seq := 2; ; seq++ {
		if _, taken := t.runs[token]; !taken {
			break
		}
		token = fmt.Sprintf("%s-%d", base, seq)
	}
	t.runs[token] = &entry{
		created: now,
		status: models.RunStatus{
			SearchID:  searchID,
			Status:    models.RunRunning,
			StartTime: now,
			Message:   "Search started",
		},
	}
	return token
}

// Get returns a snapshot of the run record for token.
func (t *Tracker) Get(token string) (models.RunStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.runs[token]
	if !ok {
		return models.RunStatus{}, ErrNotFound
	}
	return e.status, nil
}

// SetMessage updates the progress message of a running record.
func (t *Tracker) SetMessage(token, message string) {
	t.mutate(token, func(s *models.RunStatus) {
		s.Message = message
	})
}

// Complete marks the run finished with its result size and trace.
func (t *Tracker) Complete(token string, jobsFound int, debug *models.FilterTrace) {
	t.mutate(token, func(s *models.RunStatus) {
		s.Status = models.RunCompleted
		s.JobsFound = jobsFound
		s.Debug = debug
		s.Message = fmt.Sprintf("Found %d jobs", jobsFound)
	})
}

// Fail marks the run errored with a human-readable message.
func (t *Tracker) Fail(token string, err error) {
	t.mutate(token, func(s *models.RunStatus) {
		s.Status = models.RunError
		if err != nil {
			s.Error = err.Error()
		}
	})
}

func (t *Tracker) mutate(token string, fn func(*models.RunStatus)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.runs[token]; ok {
		fn(&e.status)
	}
}

func (t *Tracker) sweepLocked() {
	cutoff := t.now().Add(-t.retention)
	for token, e := range t.runs {
		if e.created.Before(cutoff) {
			delete(t.runs, token)
		}
	}
}
