// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	payload TEXT NOT NULL,
	conversation_summaries TEXT,
	conversation_stats TEXT,
	crm_analytics TEXT,
	change_history TEXT NOT NULL DEFAULT '[]',
	remote_updated_at DATETIME NOT NULL,
	last_contacted_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_remote_updated ON contacts(remote_updated_at DESC);

CREATE TABLE IF NOT EXISTS conversations (
	contact_id TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (contact_id, conversation_id)
);

CREATE INDEX IF NOT EXISTS idx_conversations_contact ON conversations(contact_id);

CREATE TABLE IF NOT EXISTS sync_state (
	id TEXT PRIMARY KEY CHECK (id = 'crm'),
	status TEXT NOT NULL CHECK (status IN ('running', 'completed', 'failed')),
	run_id TEXT,
	last_sync_at DATETIME,
	started_at DATETIME,
	finished_at DATETIME,
	stats TEXT NOT NULL DEFAULT '{}',
	error_message TEXT,
	updated_at DATETIME NOT NULL
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
