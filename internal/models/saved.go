package models

import "time"

// Saved-search frequencies.
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// SavedSearch is a persisted recurring search.
type SavedSearch struct {
	ID             string         `json:"id"`
	SearchCriteria SearchCriteria `json:"searchCriteria"`
	Frequency      string         `json:"frequency"`
	DayOfWeek      string         `json:"dayOfWeek,omitempty"`
	UserEmail      string         `json:"userEmail,omitempty"`
	IsActive       bool           `json:"isActive"`
	LastRun        *time.Time     `json:"lastRun,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}
