package filter

import (
	"strings"
	"time"

	"github.com/mkowalczk/jobscout/internal/models"
)

var postingDateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
}

// WithinWindow re-validates posting recency against the requested window.
// The upstream's own date filter is not trustworthy, so this runs on every
// posting regardless of what was requested upstream. Unparseable dates are
// kept: there is not enough evidence to reject.
func WithinWindow(postingDate string, option string, now time.Time) bool {
	cutoff, bounded := windowCutoff(option, now)
	if !bounded {
		return true
	}

	posted, ok := parsePostingDate(postingDate)
	if !ok {
		return true
	}
	return !posted.Before(cutoff)
}

// PostedWithinDays keeps postings dated on or after midnight UTC the given
// number of days back. Scheduled digests use it to window results to the
// search frequency regardless of the saved date option. Unparseable dates
// are kept, same as WithinWindow.
func PostedWithinDays(postingDate string, days int, now time.Time) bool {
	utc := now.UTC()
	midnight := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := midnight.AddDate(0, 0, -days)

	posted, ok := parsePostingDate(postingDate)
	if !ok {
		return true
	}
	return !posted.Before(cutoff)
}

func windowCutoff(option string, now time.Time) (time.Time, bool) {
	utc := now.UTC()
	midnight := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)

	switch option {
	case models.DateToday:
		return midnight, true
	case models.Date3Days:
		return midnight.AddDate(0, 0, -3), true
	case models.DateWeek:
		return midnight.AddDate(0, 0, -7), true
	case models.DateMonth:
		return midnight.AddDate(0, -1, 0), true
	default:
		return time.Time{}, false
	}
}

func parsePostingDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range postingDateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
