package models

import "strings"

// Date window options accepted by SearchCriteria.DatePosted.
const (
	DateAll    = "all"
	DateToday  = "today"
	Date3Days  = "3days"
	DateWeek   = "week"
	DateMonth  = "month"
)

// SearchCriteria captures one search request. JobTitle and JobTitles are
// alternative input shapes; Titles() folds them into one list.
type SearchCriteria struct {
	JobTitle     string   `json:"jobTitle,omitempty"`
	JobTitles    []string `json:"jobTitles,omitempty"`
	LocationType []string `json:"locationType,omitempty"`
	Location     string   `json:"location,omitempty"`
	MinSalary    int      `json:"minSalary,omitempty"`
	MaxSalary    int      `json:"maxSalary,omitempty"`
	DatePosted   string   `json:"datePosted,omitempty"`
	SkipScraping bool     `json:"skipScraping,omitempty"`
}

// Titles returns the deduplicated title list, defaulting to a generic
// placeholder when the criteria carry no titles at all.
func (c SearchCriteria) Titles() []string {
	raw := make([]string, 0, len(c.JobTitles)+1)
	if strings.TrimSpace(c.JobTitle) != "" {
		raw = append(raw, c.JobTitle)
	}
	raw = append(raw, c.JobTitles...)

	seen := make(map[string]struct{}, len(raw))
	titles := make([]string, 0, len(raw))
	for _, title := range raw {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		key := strings.ToLower(title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		titles = append(titles, title)
	}

	if len(titles) == 0 {
		titles = []string{"software engineer"}
	}
	return titles
}

// RemoteOnly reports whether remote is the sole requested location type,
// which switches on the strict remote classification stage.
func (c SearchCriteria) RemoteOnly() bool {
	return len(c.LocationType) == 1 && strings.EqualFold(c.LocationType[0], "remote")
}
