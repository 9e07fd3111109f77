package models

import "time"

// Background run states.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunError     = "error"
	RunTimeout   = "timeout"
)

// RunStatus is the pollable record for one background run-now invocation.
// Mutated in place by the owning background task; read-only for pollers.
type RunStatus struct {
	SearchID  string       `json:"searchId"`
	Status    string       `json:"status"`
	StartTime time.Time    `json:"startTime"`
	Message   string       `json:"message,omitempty"`
	Debug     *FilterTrace `json:"debug,omitempty"`
	Error     string       `json:"error,omitempty"`
	JobsFound int          `json:"jobsFound"`
}
