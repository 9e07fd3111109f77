package filter

import "strings"

// Gig/freelance platforms and low-quality aggregators whose postings are
// not worth surfacing. Matched as substrings of the publisher label or the
// apply link.
var blockedSources = []string{
	"upwork",
	"fiverr",
	"freelancer",
	"peopleperhour",
	"guru.com",
	"craigslist",
	"jooble",
	"bebee",
	"lensa",
}

// IsBlockedSource reports whether either the publisher label or the apply
// link points at a blocklisted platform.
func IsBlockedSource(sourceLabel, applyLink string) bool {
	source := strings.ToLower(sourceLabel)
	link := strings.ToLower(applyLink)
	for _, blocked := range blockedSources {
		if strings.Contains(source, blocked) || strings.Contains(link, blocked) {
			return true
		}
	}
	return false
}
