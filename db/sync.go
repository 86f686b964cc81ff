// ABOUTME: Singleton sync-state persistence for the orchestrator
// ABOUTME: Fixed-key upserts; updated_at doubles as the run heartbeat
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/leadsync/models"
)

// syncStateKey is the fixed id of the singleton row.
const syncStateKey = "crm"

// GetSyncState loads the singleton sync record, or nil before the first run.
func GetSyncState(db *sql.DB) (*models.SyncState, error) {
	var state models.SyncState
	var runID, errorMessage sql.NullString
	var lastSyncAt, startedAt, finishedAt sql.NullTime
	var statsJSON string

	err := db.QueryRow(`
		SELECT status, run_id, last_sync_at, started_at, finished_at, stats, error_message, updated_at
		FROM sync_state WHERE id = ?
	`, syncStateKey).Scan(
		&state.Status,
		&runID,
		&lastSyncAt,
		&startedAt,
		&finishedAt,
		&statsJSON,
		&errorMessage,
		&state.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	if runID.Valid {
		state.RunID = runID.String
	}
	if errorMessage.Valid {
		state.ErrorMessage = errorMessage.String
	}
	if lastSyncAt.Valid {
		state.LastSyncAt = &lastSyncAt.Time
	}
	if startedAt.Valid {
		state.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		state.FinishedAt = &finishedAt.Time
	}
	if err := json.Unmarshal([]byte(statsJSON), &state.Stats); err != nil {
		return nil, fmt.Errorf("failed to decode sync stats: %w", err)
	}

	return &state, nil
}

// SaveSyncState upserts the singleton record. The write refreshes updated_at,
// which is the heartbeat the staleness check reads.
func SaveSyncState(db *sql.DB, state *models.SyncState) error {
	statsJSON, err := json.Marshal(state.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode sync stats: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO sync_state (id, status, run_id, last_sync_at, started_at, finished_at, stats, error_message, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			run_id = excluded.run_id,
			last_sync_at = excluded.last_sync_at,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			stats = excluded.stats,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at
	`, syncStateKey, state.Status, nullIfEmpty(state.RunID), state.LastSyncAt,
		state.StartedAt, state.FinishedAt, string(statsJSON),
		nullIfEmpty(state.ErrorMessage), state.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}

	return nil
}

// TouchSyncState refreshes the heartbeat and running counters mid-run.
func TouchSyncState(db *sql.DB, stats models.SyncStats, now time.Time) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode sync stats: %w", err)
	}

	_, err = db.Exec(`
		UPDATE sync_state SET stats = ?, updated_at = ? WHERE id = ?
	`, string(statsJSON), now, syncStateKey)

	if err != nil {
		return fmt.Errorf("failed to touch sync state: %w", err)
	}

	return nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
