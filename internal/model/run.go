package model

import "time"

// RunStatus represents the outcome of a pipeline run or one of its stages.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunsCollection is the collection that keeps one Run per finished pipeline run.
const RunsCollection = "_runs"

// Run is the persisted summary of one pipeline invocation.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	Stage      Stage     `json:"stage" yaml:"stage"`
	Categories []string  `json:"categories,omitempty" yaml:"categories,omitempty"`
	Stores     []string  `json:"stores,omitempty" yaml:"stores,omitempty"`
	Status     RunStatus `json:"status" yaml:"status"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}
