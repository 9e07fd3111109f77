package seen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mkowalczk/jobscout/internal/models"
)

// DefaultMaxAge is how long a seen entry stays on file before a repost of
// the same job counts as new again.
const DefaultMaxAge = 30 * 24 * time.Hour

type record struct {
	Key    string    `json:"key"`
	SeenAt time.Time `json:"seenAt"`
}

// Store is the file-backed seen history, keyed by saved-search id. Safe
// for concurrent use.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string][]record
	now     func() time.Time
}

// Open loads the seen history at path, creating parent directories as
// needed. A missing or corrupt file starts empty: losing history means a
// few duplicate digest entries, never a failed run.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("seen dir: %w", err)
	}

	s := &Store{
		path:    path,
		entries: make(map[string][]record),
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read seen history: %w", err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		s.entries = make(map[string][]record)
	}
	return s, nil
}

// WithClock injects the time source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// FilterNew returns the jobs not already on file for the search. Jobs with
// no usable identity pass through: better a duplicate than a silent drop.
func (s *Store) FilterNew(searchID string, jobs []models.Job) []models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]struct{}, len(s.entries[searchID]))
	for _, rec := range s.entries[searchID] {
		known[rec.Key] = struct{}{}
	}

	fresh := make([]models.Job, 0, len(jobs))
	emitted := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		key, ok := Key(job)
		if !ok {
			fresh = append(fresh, job)
			continue
		}
		if _, dup := emitted[key]; dup {
			continue
		}
		if _, seen := known[key]; seen {
			continue
		}
		emitted[key] = struct{}{}
		fresh = append(fresh, job)
	}
	return fresh
}

// MarkSeen records the jobs as surfaced for the search. Already-known keys
// keep their original timestamp.
func (s *Store) MarkSeen(searchID string, jobs []models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]struct{}, len(s.entries[searchID]))
	for _, rec := range s.entries[searchID] {
		known[rec.Key] = struct{}{}
	}

	at := s.now().UTC()
	added := false
	for _, job := range jobs {
		key, ok := Key(job)
		if !ok {
			continue
		}
		if _, exists := known[key]; exists {
			continue
		}
		known[key] = struct{}{}
		s.entries[searchID] = append(s.entries[searchID], record{Key: key, SeenAt: at})
		added = true
	}

	if !added {
		return nil
	}
	return s.persistLocked()
}

// Cleanup drops entries older than maxAge across all searches and returns
// how many were removed. Searches left empty disappear from the file.
func (s *Store) Cleanup(maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().UTC().Add(-maxAge)
	removed := 0
	for searchID, records := range s.entries {
		kept := records[:0]
		for _, rec := range records {
			if rec.SeenAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, rec)
		}
		if len(kept) == 0 {
			delete(s.entries, searchID)
			continue
		}
		s.entries[searchID] = kept
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, s.persistLocked()
}

// Forget drops the entire history for one search, for when the search
// itself is deleted.
func (s *Store) Forget(searchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[searchID]; !ok {
		return nil
	}
	delete(s.entries, searchID)
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode seen history: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write seen history: %w", err)
	}
	return nil
}
