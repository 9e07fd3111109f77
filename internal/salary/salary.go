// Package salary extracts and normalizes compensation ranges from the
// free-text and structured fields carried by upstream postings. Extraction
// is an ordered rule table: the first pattern that matches wins.
package salary

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultFloor is the minimum believable annualized amount. Values that
// stay below it after conversion are treated as noise (e.g. "2 years
// experience" misread as a rate). Empirically tuned, hence configurable.
const DefaultFloor = 5000

const annualHours = 2080

// Rates between these bounds with no explicit period marker are assumed
// to be mislabeled hourly figures and annualized.
const (
	impliedHourlyMin = 10
	impliedHourlyMax = 150
)

type extractRule struct {
	name    string
	pattern *regexp.Regexp
}

// Extraction rules in priority order. Narrow, high-confidence shapes come
// first; a bare dollar amount is the last resort.
var extractRules = []extractRule{
	{"hourly-range", regexp.MustCompile(`(?i)\$\s*\d+(?:\.\d+)?\s*(?:-|to)\s*\$?\s*\d+(?:\.\d+)?\s*(?:per\s+|/\s*|an?\s+)(?:hour|hr)\b`)},
	{"annual-range", regexp.MustCompile(`(?i)\$\s*\d[\d,]*(?:\.\d+)?k?\s*(?:-|to)\s*\$?\s*\d[\d,]*(?:\.\d+)?k?(?:\s*(?:per\s+year|/\s*year|/\s*yr|a\s+year|annually|yearly))?`)},
	{"single-hourly", regexp.MustCompile(`(?i)\$\s*\d+(?:\.\d+)?\s*(?:per\s+|/\s*|an?\s+)(?:hour|hr)\b`)},
	{"single-annual", regexp.MustCompile(`(?i)\$\s*\d[\d,]*(?:\.\d+)?k?\s*(?:per\s+year|/\s*year|/\s*yr|a\s+year|annually|yearly)`)},
	{"prefixed-range", regexp.MustCompile(`(?i)(?:salary|compensation|pay|base\s+pay)\s*:?\s*\$?\s*\d[\d,]*k?\s*(?:-|to)\s*\$?\s*\d[\d,]*k?`)},
	{"prefixed-single", regexp.MustCompile(`(?i)(?:salary|compensation|pay|base\s+pay)\s*:?\s*\$\s*\d[\d,]*k?`)},
	{"plus-amount", regexp.MustCompile(`(?i)\$\s*\d[\d,]*k?\s*\+`)},
	{"bare-k-range", regexp.MustCompile(`(?i)\b\d{2,3}k\s*(?:-|to)\s*\d{2,3}k\b`)},
	{"bare-amount", regexp.MustCompile(`(?i)\$\s*\d[\d,]*(?:\.\d+)?k?`)},
}

var (
	hourlyMarker = regexp.MustCompile(`(?i)(?:/\s*|per\s+|an?\s+)(?:hour|hr)\b`)
	numericToken = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(k?)`)
	dashVariants = strings.NewReplacer("–", "-", "—", "-", "−", "-")
)

// ExtractText scans free text for the highest-priority salary shape and
// returns the full match, or "" when nothing matches.
func ExtractText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = dashVariants.Replace(text)
	for _, rule := range extractRules {
		if match := rule.pattern.FindString(text); match != "" {
			return strings.TrimSpace(match)
		}
	}
	return ""
}

// Parser normalizes extracted salary strings and structured fields into
// the canonical "$X/yr" form.
type Parser struct {
	// Floor is the minimum annualized amount considered real.
	Floor float64
}

// NewParser returns a Parser with the default sanity floor.
func NewParser() Parser {
	return Parser{Floor: DefaultFloor}
}

func (p Parser) floor() float64 {
	if p.Floor <= 0 {
		return DefaultFloor
	}
	return p.Floor
}

// Normalize converts a matched salary string into an annualized canonical
// string: "$X/yr", "$X+/yr" or "$X - $Y/yr". Returns "" when no usable
// numeric signal survives. Never fails on garbage input.
func (p Parser) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	hourly := hourlyMarker.MatchString(raw)
	open := strings.Contains(raw, "+")

	min, max, ok := bounds(raw)
	if !ok {
		return ""
	}

	if hourly {
		min *= annualHours
		max *= annualHours
	} else if min >= impliedHourlyMin && max < impliedHourlyMax {
		min *= annualHours
		max *= annualHours
	}

	if max < p.floor() {
		return ""
	}

	return format(min, max, open)
}

// FromStructured converts explicit numeric salary fields into the canonical
// form. Takes precedence over text-mined values when either bound is set.
func (p Parser) FromStructured(min, max float64, period string) string {
	if min <= 0 && max <= 0 {
		return ""
	}

	factor := 1.0
	switch strings.ToUpper(strings.TrimSpace(period)) {
	case "HOUR", "HOURLY":
		factor = annualHours
	case "WEEK", "WEEKLY":
		factor = 52
	case "MONTH", "MONTHLY":
		factor = 12
	}
	min *= factor
	max *= factor

	switch {
	case min > 0 && max > 0:
		if max < p.floor() {
			return ""
		}
		return format(min, max, false)
	case min > 0:
		if min < p.floor() {
			return ""
		}
		return format(min, min, true)
	default:
		if max < p.floor() {
			return ""
		}
		return fmt.Sprintf("Up to $%s/yr", formatAmount(max))
	}
}

// AnnualBounds re-reads the numeric bounds out of a canonical salary
// string, for range checks against search criteria.
func AnnualBounds(canonical string) (float64, float64, bool) {
	return bounds(canonical)
}

// bounds extracts every numeric token (expanding a k suffix) and returns
// the min and max across them.
func bounds(raw string) (float64, float64, bool) {
	matches := numericToken.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return 0, 0, false
	}

	min, max := 0.0, 0.0
	found := false
	for _, m := range matches {
		digits := strings.ReplaceAll(m[1], ",", "")
		value, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			continue
		}
		if strings.EqualFold(m[2], "k") {
			value *= 1000
		}
		if !found {
			min, max = value, value
			found = true
			continue
		}
		if value < min {
			min = value
		}
		if value > max {
			max = value
		}
	}
	return min, max, found
}

func format(min, max float64, open bool) string {
	if open {
		return fmt.Sprintf("$%s+/yr", formatAmount(min))
	}
	if min == max {
		return fmt.Sprintf("$%s/yr", formatAmount(min))
	}
	return fmt.Sprintf("$%s - $%s/yr", formatAmount(min), formatAmount(max))
}

func formatAmount(value float64) string {
	digits := strconv.FormatInt(int64(value+0.5), 10)
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
