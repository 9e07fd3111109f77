package filter

import "strings"

// Normalized employment-type labels.
const (
	FullTime   = "Full-Time"
	PartTime   = "Part-Time"
	Contract   = "Contract"
	Temporary  = "Temporary"
	Internship = "Internship"
	OtherType  = "Other"
)

var employmentLabels = map[string]string{
	"FULL_TIME":  FullTime,
	"FULLTIME":   FullTime,
	"PART_TIME":  PartTime,
	"PARTTIME":   PartTime,
	"CONTRACTOR": Contract,
	"CONTRACT":   Contract,
	"TEMPORARY":  Temporary,
	"INTERN":     Internship,
	"INTERNSHIP": Internship,
	"OTHER":      OtherType,
}

var rejectedEmployment = map[string]bool{
	PartTime:   true,
	Contract:   true,
	Temporary:  true,
	Internship: true,
}

// EmploymentLabel maps an upstream employment code to its normalized label.
// Unknown or empty codes map to "".
func EmploymentLabel(code string) string {
	return employmentLabels[strings.ToUpper(strings.TrimSpace(code))]
}

// AcceptableEmployment keeps full-time and unclassified postings. The
// upstream mislabels many legitimately full-time remote roles as untyped,
// so missing classification is not grounds for rejection.
func AcceptableEmployment(label string) bool {
	return !rejectedEmployment[label]
}
