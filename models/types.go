// ABOUTME: Data models for synced CRM entities
// ABOUTME: Defines Contact, the Conversation variants, and Interaction records
package models

import (
	"time"
)

// Contact is the local copy of a remote CRM contact, keyed by the remote id.
type Contact struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	JobTitle        string            `json:"job_title,omitempty"`
	Emails          []string          `json:"emails,omitempty"`
	Phones          []string          `json:"phones,omitempty"`
	Company         string            `json:"company,omitempty"`
	OwnerName       string            `json:"owner_name,omitempty"`
	StatusName      string            `json:"status_name,omitempty"`
	TerritoryName   string            `json:"territory_name,omitempty"`
	MarketName      string            `json:"market_name,omitempty"`
	CustomFields    map[string]string `json:"custom_fields,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	LeadScore       int               `json:"lead_score"`
	LastContactedAt *time.Time        `json:"last_contacted_at,omitempty"`
	RemoteCreatedAt time.Time         `json:"remote_created_at"`
	RemoteUpdatedAt time.Time         `json:"remote_updated_at"`
}

// PrimaryEmail returns the first email address, if any.
func (c *Contact) PrimaryEmail() string {
	if len(c.Emails) == 0 {
		return ""
	}
	return c.Emails[0]
}

// Conversation type constants.
const (
	ConversationEmail = "email"
	ConversationPhone = "phone"
	ConversationNote  = "note"
)

// Direction constants.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Conversation is one unit of contact history. Exactly one of the variant
// pointers is non-nil, matching Type.
type Conversation struct {
	ID        string       `json:"id"`
	ContactID string       `json:"contact_id"`
	Type      string       `json:"type"`
	Email     *EmailThread `json:"email,omitempty"`
	Phone     *PhoneCall   `json:"phone,omitempty"`
	Note      *Note        `json:"note,omitempty"`
}

// EmailThread is a full email conversation with per-message detail.
// ThreadCount always equals len(Messages), and every message timestamp lies
// within [FirstMessageAt, LastMessageAt].
type EmailThread struct {
	EmailID        int64          `json:"email_id"`
	Subject        string         `json:"subject,omitempty"`
	Messages       []EmailMessage `json:"messages"`
	ThreadCount    int            `json:"thread_count"`
	FirstMessageAt time.Time      `json:"first_message_at"`
	LastMessageAt  time.Time      `json:"last_message_at"`
	Incoming       int            `json:"incoming"`
	Outgoing       int            `json:"outgoing"`
	Attachments    int            `json:"attachments"`
	Participants   int            `json:"participants"`
	NeedsResponse  bool           `json:"needs_response"`
	Unread         bool           `json:"unread"`
}

type EmailMessage struct {
	ID          int64         `json:"id"`
	Direction   string        `json:"direction"`
	Subject     string        `json:"subject,omitempty"`
	Content     string        `json:"content,omitempty"`
	SentAt      time.Time     `json:"sent_at"`
	Sender      *Participant  `json:"sender,omitempty"`
	Recipients  []Participant `json:"recipients,omitempty"`
	Attachments int           `json:"attachments"`
	Opened      bool          `json:"opened"`
	Clicked     bool          `json:"clicked"`
	Bounced     bool          `json:"bounced"`
}

// Participant kinds.
const (
	ParticipantUser    = "user"
	ParticipantContact = "contact"
	ParticipantUnknown = "unknown"
)

// Participant is a message sender or recipient, resolved against the known
// users and contacts returned alongside the thread.
type Participant struct {
	Kind  string `json:"kind"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

type PhoneCall struct {
	Direction    string    `json:"direction"`
	Duration     int       `json:"duration"`
	Outcome      string    `json:"outcome,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	UserName     string    `json:"user_name,omitempty"`
	UserEmail    string    `json:"user_email,omitempty"`
	CallerNumber string    `json:"caller_number,omitempty"`
	RecordingURL string    `json:"recording_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Note struct {
	Content     string    `json:"content"`
	CreatorID   string    `json:"creator_id,omitempty"`
	CreatorName string    `json:"creator_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Engagement carries per-recipient tracking flags copied from a message.
type Engagement struct {
	Opened  bool `json:"opened"`
	Clicked bool `json:"clicked"`
	Bounced bool `json:"bounced"`
}

// Interaction is the flattened unit fed to the analytics engine. DateIST is
// the display string stamped by the engine (fixed +05:30 offset); Date is the
// UTC instant used for all comparisons.
type Interaction struct {
	Date        time.Time   `json:"-"`
	DateIST     string      `json:"date"`
	Type        string      `json:"type"`
	Direction   string      `json:"direction,omitempty"`
	UserID      string      `json:"user_id,omitempty"`
	UserName    string      `json:"user_name,omitempty"`
	UserEmail   string      `json:"user_email,omitempty"`
	Duration    int         `json:"duration,omitempty"`
	Outcome     string      `json:"outcome,omitempty"`
	IsAutomated bool        `json:"is_automated,omitempty"`
	Engagement  *Engagement `json:"engagement,omitempty"`
}

// ConversationSummary is the lightweight per-conversation record embedded on
// the contact document for the dashboard (no message bodies).
type ConversationSummary struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Subject     string    `json:"subject,omitempty"`
	Direction   string    `json:"direction,omitempty"`
	Date        time.Time `json:"date"`
	Messages    int       `json:"messages,omitempty"`
	Incoming    int       `json:"incoming,omitempty"`
	Outgoing    int       `json:"outgoing,omitempty"`
	Attachments int       `json:"attachments,omitempty"`
	Duration    int       `json:"duration,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
}

// ConversationStats is the rollup embedded alongside the summaries.
type ConversationStats struct {
	Total             int        `json:"total"`
	Emails            int        `json:"emails"`
	Calls             int        `json:"calls"`
	Notes             int        `json:"notes"`
	EmailMessages     int        `json:"email_messages"`
	AvgThreadMessages float64    `json:"avg_thread_messages"`
	MaxThreadMessages int        `json:"max_thread_messages"`
	Attachments       int        `json:"attachments"`
	LastActivityAt    *time.Time `json:"last_activity_at,omitempty"`
}

// FieldChange records one field-level delta detected during sync.
type FieldChange struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// ChangeEntry is one audit record appended to a contact's change history.
type ChangeEntry struct {
	ID        string        `json:"id"`
	SyncTime  time.Time     `json:"sync_time"`
	UpdatedAt time.Time     `json:"updated_at"`
	Changes   []FieldChange `json:"changes"`
}
