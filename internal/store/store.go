// Package store persists saved searches as a single JSON file. The whole
// file is rewritten on every mutation; write volume is tiny and atomicity
// via rename keeps a crash from corrupting the store.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkowalczk/jobscout/internal/models"
)

var ErrNotFound = errors.New("saved search not found")

type Store struct {
	mu       sync.Mutex
	path     string
	searches map[string]models.SavedSearch
	now      func() time.Time
	newID    func() string
}

// Open loads the saved-search file at path, creating parent directories
// as needed. A missing file starts an empty store.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store dir: %w", err)
	}

	s := &Store{
		path:     path,
		searches: make(map[string]models.SavedSearch),
		now:      time.Now,
		newID:    uuid.NewString,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}

	var searches []models.SavedSearch
	if err := json.Unmarshal(data, &searches); err != nil {
		return nil, fmt.Errorf("decode store: %w", err)
	}
	for _, search := range searches {
		s.searches[search.ID] = search
	}
	return s, nil
}

// WithClock injects the time source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Save persists a new search. The id and creation stamp are assigned here;
// new searches start active.
func (s *Store) Save(search models.SavedSearch) (models.SavedSearch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search.ID = s.newID()
	search.CreatedAt = s.now().UTC()
	search.IsActive = true
	search.LastRun = nil
	if search.Frequency == "" {
		search.Frequency = models.FrequencyDaily
	}

	s.searches[search.ID] = search
	if err := s.persistLocked(); err != nil {
		delete(s.searches, search.ID)
		return models.SavedSearch{}, err
	}
	return search, nil
}

func (s *Store) Get(id string) (models.SavedSearch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search, ok := s.searches[id]
	if !ok {
		return models.SavedSearch{}, ErrNotFound
	}
	return search, nil
}

// GetAll returns every saved search ordered by creation time.
func (s *Store) GetAll() []models.SavedSearch {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]models.SavedSearch, 0, len(s.searches))
	for _, search := range s.searches {
		all = append(all, search)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return all
}

// Active returns the searches the scheduler should consider.
func (s *Store) Active() []models.SavedSearch {
	all := s.GetAll()
	active := all[:0]
	for _, search := range all {
		if search.IsActive {
			active = append(active, search)
		}
	}
	return active
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	search, ok := s.searches[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.searches, id)
	if err := s.persistLocked(); err != nil {
		s.searches[id] = search
		return err
	}
	return nil
}

// Toggle flips the active flag and returns the updated search.
func (s *Store) Toggle(id string) (models.SavedSearch, error) {
	return s.update(id, func(search *models.SavedSearch) {
		search.IsActive = !search.IsActive
	})
}

// UpdateLastRun stamps the most recent execution time.
func (s *Store) UpdateLastRun(id string, at time.Time) error {
	_, err := s.update(id, func(search *models.SavedSearch) {
		at := at.UTC()
		search.LastRun = &at
	})
	return err
}

func (s *Store) update(id string, fn func(*models.SavedSearch)) (models.SavedSearch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search, ok := s.searches[id]
	if !ok {
		return models.SavedSearch{}, ErrNotFound
	}
	prev := search
	fn(&search)
	s.searches[id] = search
	if err := s.persistLocked(); err != nil {
		s.searches[id] = prev
		return models.SavedSearch{}, err
	}
	return search, nil
}

func (s *Store) persistLocked() error {
	all := make([]models.SavedSearch, 0, len(s.searches))
	for _, search := range s.searches {
		all = append(all, search)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
