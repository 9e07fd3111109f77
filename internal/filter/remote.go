// Package filter holds the heuristic stages applied to upstream postings:
// remote classification, source quality, date window, and employment type.
// The upstream API's own filters for these are unreliable, so every stage
// here is authoritative rather than advisory.
package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Location carries the posting metadata the remote classifier inspects
// alongside the free text.
type Location struct {
	City          string
	State         string
	Country       string
	FlaggedRemote bool
}

// Plain substrings that disqualify a remote claim wherever they appear.
var nonRemoteKeywords = []string{
	"hybrid",
	"onsite",
	"on-site",
	"in office",
	"in-office",
	"return to office",
}

type remotePattern struct {
	name    string
	pattern *regexp.Regexp
}

// Context-dependent signals a plain substring would false-positive on.
// "in person" needs word boundaries so "personal"/"personnel" don't match;
// "N days a week in/at" catches office-attendance phrasing without banning
// every mention of "week".
var nonRemotePatterns = []remotePattern{
	{"office days per week", regexp.MustCompile(`(?i)\b\d+\s+days?\s+(?:per|a|each)\s+week\s+(?:in|at)\b`)},
	{"rto", regexp.MustCompile(`(?i)\brto\b`)},
	{"return to office", regexp.MustCompile(`(?i)\breturn(?:ing)?[\s-]to[\s-](?:the[\s-])?office\b`)},
	{"in person", regexp.MustCompile(`(?i)\bin[\s-]person\b`)},
}

var remoteLocationMarkers = []string{"remote", "anywhere", "worldwide"}

// IsGenuinelyRemote decides whether a posting qualifies as remote-only.
// On rejection the returned reason names the first matching signal for the
// filter trace. Invoked only when remote is the sole requested location type.
func IsGenuinelyRemote(allText string, loc Location) (bool, string) {
	lower := strings.ToLower(allText)

	for _, keyword := range nonRemoteKeywords {
		if strings.Contains(lower, keyword) {
			return false, fmt.Sprintf("keyword %q", keyword)
		}
	}

	for _, p := range nonRemotePatterns {
		if match := p.pattern.FindString(allText); match != "" {
			return false, fmt.Sprintf("pattern %q matched %q", p.name, strings.ToLower(match))
		}
	}

	// A concrete city+state contradicts a remote claim even without a
	// keyword hit, unless the upstream flagged the job remote or the
	// location itself is tagged remote/anywhere/worldwide.
	if loc.City != "" && loc.State != "" && !loc.FlaggedRemote {
		place := strings.ToLower(loc.City + " " + loc.State)
		tagged := false
		for _, marker := range remoteLocationMarkers {
			if strings.Contains(place, marker) {
				tagged = true
				break
			}
		}
		if !tagged {
			return false, fmt.Sprintf("specific location %q", loc.City+", "+loc.State)
		}
	}

	return true, ""
}
