package models

// SalaryNotSpecified is the placeholder used when no salary signal was found.
const SalaryNotSpecified = "Not specified"

// Job is the normalized posting produced by the search pipeline.
// Constructed once per surviving upstream result, never mutated afterwards.
type Job struct {
	Title          string `json:"title"`
	Company        string `json:"company"`
	Location       string `json:"location"`
	Link           string `json:"link"`
	Description    string `json:"description"`
	Salary         string `json:"salary"`
	EmploymentType string `json:"employmentType,omitempty"`
	CompanyType    string `json:"companyType,omitempty"`
	PostingDate    string `json:"postingDate"`
	DatePulled     string `json:"datePulled"`
	Source         string `json:"source"`
}

// HasSalary reports whether the pipeline found any salary signal for the job.
func (j Job) HasSalary() bool {
	return j.Salary != "" && j.Salary != SalaryNotSpecified
}
