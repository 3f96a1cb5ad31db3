package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records a single pipeline execution.
type Run struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// EnrichmentSummary counts per-record enrichment outcomes for a batch.
type EnrichmentSummary struct {
	Total            int `json:"total"`
	Resolved         int `json:"resolved"`
	Unresolved       int `json:"unresolved"`
	Failed           int `json:"failed"`
	AlreadyLocated   int `json:"already_located"`
	Reprojected      int `json:"reprojected"`
	ReprojectFailed  int `json:"reproject_failed"`
	PostalBackfilled int `json:"postal_backfilled"`
}

// Add accumulates other into s.
func (s *EnrichmentSummary) Add(other EnrichmentSummary) {
	s.Total += other.Total
	s.Resolved += other.Resolved
	s.Unresolved += other.Unresolved
	s.Failed += other.Failed
	s.AlreadyLocated += other.AlreadyLocated
	s.Reprojected += other.Reprojected
	s.ReprojectFailed += other.ReprojectFailed
	s.PostalBackfilled += other.PostalBackfilled
}
