// Package seen tracks which jobs have already been surfaced per saved
// search, so recurring digests only contain genuinely new postings.
package seen

import (
	"strings"

	"github.com/mkowalczk/jobscout/internal/models"
)

const keySeparator = "::"

// Normalize collapses case and interior whitespace so cosmetic repost
// variations map to the same key.
func Normalize(value string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(value)))
	return strings.Join(fields, " ")
}

// Key builds the normalized title+company identity for a job. Jobs missing
// either field have no usable identity and are never tracked.
func Key(job models.Job) (string, bool) {
	title := Normalize(job.Title)
	company := Normalize(job.Company)
	if title == "" || company == "" {
		return "", false
	}
	return title + keySeparator + company, true
}
