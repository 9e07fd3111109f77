// Package usage records upstream API consumption so quota problems are
// visible before the provider starts refusing calls.
package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Call is one recorded page request against the upstream API.
type Call struct {
	Timestamp time.Time `json:"timestamp"`
	Pages     int       `json:"pages"`
	Status    string    `json:"status"`
	ErrorType string    `json:"errorType,omitempty"`
}

// Stats is the aggregate view served by the usage endpoint.
type Stats struct {
	TotalCalls     int            `json:"totalCalls"`
	CallsThisMonth int            `json:"callsThisMonth"`
	ByStatus       map[string]int `json:"byStatus"`
	LastCall       *time.Time     `json:"lastCall,omitempty"`
}

// Recorder appends every upstream page request to a JSON file and serves
// aggregates over it. Safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	path  string
	calls []Call
	now   func() time.Time
}

// Open loads the usage log at path, creating parent directories as needed.
// A missing or corrupt file starts an empty log rather than failing: usage
// accounting is advisory and must never block a search.
func Open(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("usage dir: %w", err)
	}

	r := &Recorder{path: path, now: time.Now}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("read usage log: %w", err)
	}
	if err := json.Unmarshal(data, &r.calls); err != nil {
		r.calls = nil
	}
	return r, nil
}

// WithClock injects the time source, for tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// RecordCall appends one page request. Persistence failures are swallowed;
// the in-memory log stays coherent either way.
func (r *Recorder) RecordCall(pages int, status string, errType string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{
		Timestamp: r.now().UTC(),
		Pages:     pages,
		Status:    status,
		ErrorType: errType,
	})
	r.persistLocked()
}

// Stats aggregates the full log plus a calendar-month window on the
// recorder's clock.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	stats := Stats{ByStatus: make(map[string]int)}
	for i := range r.calls {
		call := r.calls[i]
		stats.TotalCalls += call.Pages
		if !call.Timestamp.Before(monthStart) {
			stats.CallsThisMonth += call.Pages
		}
		stats.ByStatus[call.Status] += call.Pages
	}
	if n := len(r.calls); n > 0 {
		last := r.calls[n-1].Timestamp
		stats.LastCall = &last
	}
	return stats
}

func (r *Recorder) persistLocked() {
	data, err := json.MarshalIndent(r.calls, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(r.path, data, 0o644)
}
