package jsearch

import "strings"

// Posting mirrors one job record as returned by the upstream search API.
// Read-only once decoded; the pipeline never mutates it.
type Posting struct {
	JobID          string     `json:"job_id"`
	Title          string     `json:"job_title"`
	Employer       string     `json:"employer_name"`
	EmployerType   string     `json:"employer_company_type"`
	Publisher      string     `json:"job_publisher"`
	City           string     `json:"job_city"`
	State          string     `json:"job_state"`
	Country        string     `json:"job_country"`
	IsRemote       bool       `json:"job_is_remote"`
	Description    string     `json:"job_description"`
	Highlights     Highlights `json:"job_highlights"`
	EmploymentType string     `json:"job_employment_type"`
	MinSalary      float64    `json:"job_min_salary"`
	MaxSalary      float64    `json:"job_max_salary"`
	SalaryPeriod   string     `json:"job_salary_period"`
	PostedAt       string     `json:"job_posted_at_datetime_utc"`
	ApplyLink      string     `json:"job_apply_link"`
	GoogleLink     string     `json:"job_google_link"`
}

type Highlights struct {
	Qualifications   []string `json:"Qualifications"`
	Responsibilities []string `json:"Responsibilities"`
	Benefits         []string `json:"Benefits"`
}

// IdentityKey returns the stable identity used to deduplicate postings
// across title queries: upstream id, else apply link, else a
// title+employer composite.
func (p Posting) IdentityKey() string {
	if p.JobID != "" {
		return p.JobID
	}
	if p.ApplyLink != "" {
		return p.ApplyLink
	}
	key := strings.ToLower(strings.TrimSpace(p.Title) + "|" + strings.TrimSpace(p.Employer))
	if key == "|" {
		return ""
	}
	return key
}

// AllText concatenates every free-text field the classifiers scan.
func (p Posting) AllText() string {
	parts := []string{p.Title, p.Description}
	parts = append(parts, p.Highlights.Qualifications...)
	parts = append(parts, p.Highlights.Responsibilities...)
	parts = append(parts, p.Highlights.Benefits...)
	return strings.Join(parts, " ")
}

// HighlightText joins just the highlight sections, the secondary source
// for text-mined salaries.
func (p Posting) HighlightText() string {
	parts := make([]string, 0, 3)
	parts = append(parts, p.Highlights.Qualifications...)
	parts = append(parts, p.Highlights.Responsibilities...)
	parts = append(parts, p.Highlights.Benefits...)
	return strings.Join(parts, " ")
}

// LocationString renders the display location the way results show it.
func (p Posting) LocationString() string {
	if p.City != "" && p.State != "" {
		return p.City + ", " + p.State
	}
	if p.Country != "" {
		return p.Country
	}
	return "Remote"
}

// Link returns the best available link to the posting.
func (p Posting) Link() string {
	if p.ApplyLink != "" {
		return p.ApplyLink
	}
	return p.GoogleLink
}

type searchResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Data    []Posting `json:"data"`
}
