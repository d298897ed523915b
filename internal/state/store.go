// Package state records modeling runs in a local SQLite database: when
// they ran, how they ended, which artifacts they wrote and the frozen
// model snapshot they produced.
package state

import (
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded pipeline run.
type Run struct {
	ID          string     `json:"id"`
	Input       string     `json:"input"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Summary
}

// Summary counts what a run produced.
type Summary struct {
	Tables        int `json:"tables"`
	Relationships int `json:"relationships"`
	Facts         int `json:"facts"`
	Dimensions    int `json:"dimensions"`
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Artifact is one file written by a run.
type Artifact struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
}
