package models

// Rejection records why a specific posting was dropped by a filter stage.
type Rejection struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// FilterTrace accumulates per-stage survival counts and rejection reasons
// for one search invocation. The stage counts are monotonically
// non-increasing in the order the fields are declared. Created fresh per
// invocation, returned alongside the result list, never persisted.
type FilterTrace struct {
	APIReturned           int `json:"apiReturned"`
	AfterRemoteFilter     int `json:"afterRemoteFilter"`
	AfterSalaryFilter     int `json:"afterSalaryFilter"`
	AfterSourceFilter     int `json:"afterSourceFilter"`
	AfterDateFilter       int `json:"afterDateFilter"`
	AfterEmploymentFilter int `json:"afterEmploymentFilter"`

	RemoteRejected     int `json:"remoteRejected"`
	SalaryRejected     int `json:"salaryRejected"`
	SourceRejected     int `json:"sourceRejected"`
	DateRejected       int `json:"dateRejected"`
	EmploymentRejected int `json:"employmentRejected"`

	RemoteReasons     []Rejection `json:"remoteReasons,omitempty"`
	EmploymentReasons []Rejection `json:"employmentReasons,omitempty"`

	Error string `json:"error,omitempty"`
}
