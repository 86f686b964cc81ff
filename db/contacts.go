// ABOUTME: Contact persistence with embedded analytics and summaries
// ABOUTME: Upsert-by-remote-id; change history appends rather than overwrites
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/leadsync/models"
)

// ContactRecord is the full stored document for one contact: the raw fields
// plus the conversation summaries, stats, analytics, and audit history the
// dashboard reads.
type ContactRecord struct {
	Contact       models.Contact               `json:"contact"`
	Summaries     []models.ConversationSummary `json:"conversation_summaries,omitempty"`
	Stats         *models.ConversationStats    `json:"conversation_stats,omitempty"`
	Analytics     *models.Analytics            `json:"crm_analytics,omitempty"`
	ChangeHistory []models.ChangeEntry         `json:"change_history,omitempty"`
	SyncedAt      time.Time                    `json:"synced_at"`
}

// GetContact loads a stored contact by remote id, or nil if absent.
func GetContact(db *sql.DB, id string) (*ContactRecord, error) {
	var payload, history string
	var summaries, stats, analytics sql.NullString
	var syncedAt time.Time

	err := db.QueryRow(`
		SELECT payload, conversation_summaries, conversation_stats, crm_analytics, change_history, updated_at
		FROM contacts WHERE id = ?
	`, id).Scan(&payload, &summaries, &stats, &analytics, &history, &syncedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact %s: %w", id, err)
	}

	rec := &ContactRecord{SyncedAt: syncedAt}
	if err := json.Unmarshal([]byte(payload), &rec.Contact); err != nil {
		return nil, fmt.Errorf("failed to decode contact %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(history), &rec.ChangeHistory); err != nil {
		return nil, fmt.Errorf("failed to decode change history for %s: %w", id, err)
	}
	if summaries.Valid {
		if err := json.Unmarshal([]byte(summaries.String), &rec.Summaries); err != nil {
			return nil, fmt.Errorf("failed to decode summaries for %s: %w", id, err)
		}
	}
	if stats.Valid {
		if err := json.Unmarshal([]byte(stats.String), &rec.Stats); err != nil {
			return nil, fmt.Errorf("failed to decode stats for %s: %w", id, err)
		}
	}
	if analytics.Valid {
		if err := json.Unmarshal([]byte(analytics.String), &rec.Analytics); err != nil {
			return nil, fmt.Errorf("failed to decode analytics for %s: %w", id, err)
		}
	}

	return rec, nil
}

// SaveContact upserts the full contact record. New rows get created_at = now;
// existing rows keep it.
func SaveContact(db *sql.DB, rec *ContactRecord, now time.Time) error {
	payload, err := json.Marshal(rec.Contact)
	if err != nil {
		return fmt.Errorf("failed to encode contact %s: %w", rec.Contact.ID, err)
	}

	history := rec.ChangeHistory
	if history == nil {
		history = []models.ChangeEntry{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode change history for %s: %w", rec.Contact.ID, err)
	}

	summariesJSON, err := marshalNullable(rec.Summaries)
	if err != nil {
		return err
	}
	statsJSON, err := marshalNullable(rec.Stats)
	if err != nil {
		return err
	}
	analyticsJSON, err := marshalNullable(rec.Analytics)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO contacts (
			id, name, payload, conversation_summaries, conversation_stats,
			crm_analytics, change_history, remote_updated_at, last_contacted_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			payload = excluded.payload,
			conversation_summaries = COALESCE(excluded.conversation_summaries, contacts.conversation_summaries),
			conversation_stats = COALESCE(excluded.conversation_stats, contacts.conversation_stats),
			crm_analytics = COALESCE(excluded.crm_analytics, contacts.crm_analytics),
			change_history = excluded.change_history,
			remote_updated_at = excluded.remote_updated_at,
			last_contacted_at = excluded.last_contacted_at,
			updated_at = excluded.updated_at
	`, rec.Contact.ID, rec.Contact.Name, string(payload), summariesJSON, statsJSON,
		analyticsJSON, string(historyJSON), rec.Contact.RemoteUpdatedAt,
		rec.Contact.LastContactedAt, now, now)

	if err != nil {
		return fmt.Errorf("failed to save contact %s: %w", rec.Contact.ID, err)
	}

	return nil
}

// CountContacts returns the number of stored contacts.
func CountContacts(db *sql.DB) (int, error) {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM contacts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}

func marshalNullable(v any) (sql.NullString, error) {
	switch val := v.(type) {
	case []models.ConversationSummary:
		if val == nil {
			return sql.NullString{}, nil
		}
	case *models.ConversationStats:
		if val == nil {
			return sql.NullString{}, nil
		}
	case *models.Analytics:
		if val == nil {
			return sql.NullString{}, nil
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode document: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
