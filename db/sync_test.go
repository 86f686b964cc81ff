// ABOUTME: Tests for sync-state persistence
// ABOUTME: Covers the singleton upsert, heartbeat touch, and staleness checks
package db

import (
	"testing"
	"time"

	"github.com/harperreed/leadsync/models"
)

func TestSyncStateRoundtrip(t *testing.T) {
	db := setupTestDB(t)

	got, err := GetSyncState(db)
	if err != nil {
		t.Fatalf("GetSyncState failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil before first run, got %+v", got)
	}

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	lastSync := started.Add(-time.Hour)
	state := &models.SyncState{
		Status:     models.SyncStatusRunning,
		RunID:      "01HV5TEST",
		LastSyncAt: &lastSync,
		StartedAt:  &started,
		Stats:      models.SyncStats{Processed: 10, New: 2},
		UpdatedAt:  started,
	}
	if err := SaveSyncState(db, state); err != nil {
		t.Fatalf("SaveSyncState failed: %v", err)
	}

	got, err = GetSyncState(db)
	if err != nil {
		t.Fatalf("GetSyncState failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored state")
	}
	if got.Status != models.SyncStatusRunning || got.RunID != "01HV5TEST" {
		t.Errorf("unexpected state: %+v", got)
	}
	if got.LastSyncAt == nil || !got.LastSyncAt.Equal(lastSync) {
		t.Errorf("last_sync_at lost in roundtrip: %v", got.LastSyncAt)
	}
	if got.Stats.Processed != 10 || got.Stats.New != 2 {
		t.Errorf("stats lost in roundtrip: %+v", got.Stats)
	}
	if got.FinishedAt != nil {
		t.Errorf("expected nil finished_at, got %v", got.FinishedAt)
	}
}

func TestSyncStateUpsertOverwrites(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	running := &models.SyncState{Status: models.SyncStatusRunning, RunID: "run-1", UpdatedAt: now}
	if err := SaveSyncState(db, running); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	finished := now.Add(5 * time.Minute)
	completed := &models.SyncState{
		Status:     models.SyncStatusCompleted,
		RunID:      "run-1",
		LastSyncAt: &finished,
		FinishedAt: &finished,
		UpdatedAt:  finished,
	}
	if err := SaveSyncState(db, completed); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	got, err := GetSyncState(db)
	if err != nil {
		t.Fatalf("GetSyncState failed: %v", err)
	}
	if got.Status != models.SyncStatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Errorf("finished_at not updated: %v", got.FinishedAt)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sync_state`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected singleton row, got %d", count)
	}
}

func TestSyncStateFailureMessage(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	failed := &models.SyncState{
		Status:       models.SyncStatusFailed,
		RunID:        "run-2",
		ErrorMessage: "helpdesk API returned 503 for /api/contacts",
		UpdatedAt:    now,
	}
	if err := SaveSyncState(db, failed); err != nil {
		t.Fatalf("SaveSyncState failed: %v", err)
	}

	got, err := GetSyncState(db)
	if err != nil {
		t.Fatalf("GetSyncState failed: %v", err)
	}
	if got.ErrorMessage != failed.ErrorMessage {
		t.Errorf("error message lost: %q", got.ErrorMessage)
	}
}

func TestTouchSyncState(t *testing.T) {
	db := setupTestDB(t)
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	state := &models.SyncState{Status: models.SyncStatusRunning, RunID: "run-3", UpdatedAt: started}
	if err := SaveSyncState(db, state); err != nil {
		t.Fatalf("SaveSyncState failed: %v", err)
	}

	beat := started.Add(10 * time.Minute)
	if err := TouchSyncState(db, models.SyncStats{Processed: 42}, beat); err != nil {
		t.Fatalf("TouchSyncState failed: %v", err)
	}

	got, err := GetSyncState(db)
	if err != nil {
		t.Fatalf("GetSyncState failed: %v", err)
	}
	if !got.UpdatedAt.Equal(beat) {
		t.Errorf("heartbeat not refreshed: %v", got.UpdatedAt)
	}
	if got.Stats.Processed != 42 {
		t.Errorf("mid-run stats not stored: %+v", got.Stats)
	}
	// Touch only moves the heartbeat, not the run identity
	if got.RunID != "run-3" || got.Status != models.SyncStatusRunning {
		t.Errorf("touch changed run identity: %+v", got)
	}
}

func TestSyncStateStaleness(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status string
		beat   time.Time
		want   bool
	}{
		{"fresh running", models.SyncStatusRunning, now.Add(-10 * time.Minute), false},
		{"at threshold", models.SyncStatusRunning, now.Add(-models.StaleRunThreshold), false},
		{"past threshold", models.SyncStatusRunning, now.Add(-models.StaleRunThreshold - time.Minute), true},
		{"completed never stale", models.SyncStatusCompleted, now.Add(-24 * time.Hour), false},
		{"failed never stale", models.SyncStatusFailed, now.Add(-24 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &models.SyncState{Status: tt.status, UpdatedAt: tt.beat}
			if got := state.IsStale(now); got != tt.want {
				t.Errorf("IsStale = %v, want %v", got, tt.want)
			}
		})
	}
}
