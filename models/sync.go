// ABOUTME: Sync run state and counters for the incremental sync orchestrator
// ABOUTME: Singleton record persisted between runs; staleness drives crash recovery
package models

import "time"

// Sync status constants.
const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// StaleRunThreshold is how long a "running" record may go without a heartbeat
// before another process is allowed to reclaim it.
const StaleRunThreshold = 45 * time.Minute

// SyncStats are the counters accumulated over one run.
type SyncStats struct {
	Processed       int `json:"processed"`
	New             int `json:"new"`
	Updated         int `json:"updated"`
	Conversations   int `json:"conversations"`
	IgnoredByDomain int `json:"ignored_by_domain"`
	IgnoredByMarket int `json:"ignored_by_market"`
	APICalls        int `json:"api_calls"`
}

// SyncState is the singleton coordination record. UpdatedAt doubles as the
// heartbeat consulted by the staleness check.
type SyncState struct {
	Status       string     `json:"status"`
	RunID        string     `json:"run_id,omitempty"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Stats        SyncStats  `json:"stats"`
	ErrorMessage string     `json:"error_message,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsStale reports whether a running record has gone without a heartbeat long
// enough to be reclaimed.
func (s *SyncState) IsStale(now time.Time) bool {
	return s.Status == SyncStatusRunning && now.Sub(s.UpdatedAt) > StaleRunThreshold
}
