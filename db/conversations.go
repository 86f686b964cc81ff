// ABOUTME: Conversation persistence keyed by (contact_id, conversation_id)
// ABOUTME: Re-sync replaces a contact's full set rather than merging
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/leadsync/models"
)

// ReplaceConversations swaps out a contact's stored conversation set in one
// transaction so no partial overlap is ever visible.
func ReplaceConversations(db *sql.DB, contactID string, conversations []models.Conversation, now time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Safe even after commit
	}()

	if _, err := tx.Exec(`DELETE FROM conversations WHERE contact_id = ?`, contactID); err != nil {
		return fmt.Errorf("failed to clear conversations for %s: %w", contactID, err)
	}

	for _, conv := range conversations {
		payload, err := json.Marshal(conv)
		if err != nil {
			return fmt.Errorf("failed to encode conversation %s: %w", conv.ID, err)
		}

		_, err = tx.Exec(`
			INSERT INTO conversations (contact_id, conversation_id, type, payload, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, contactID, conv.ID, conv.Type, string(payload), now)
		if err != nil {
			return fmt.Errorf("failed to insert conversation %s: %w", conv.ID, err)
		}
	}

	return tx.Commit()
}

// GetConversations loads a contact's stored conversations.
func GetConversations(db *sql.DB, contactID string) ([]models.Conversation, error) {
	rows, err := db.Query(`
		SELECT payload FROM conversations WHERE contact_id = ? ORDER BY conversation_id
	`, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations for %s: %w", contactID, err)
	}
	defer func() { _ = rows.Close() }()

	var conversations []models.Conversation
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}

		var conv models.Conversation
		if err := json.Unmarshal([]byte(payload), &conv); err != nil {
			return nil, fmt.Errorf("failed to decode conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}

	return conversations, rows.Err()
}
