// ABOUTME: Wire types for the helpdesk CRM API responses
// ABOUTME: Covers contact pages, conversation lists, and email threads
package freshsales

import "time"

// ContactsResponse is one page of the list-contacts-by-view endpoint,
// including the companion lookup arrays requested via include.
type ContactsResponse struct {
	Contacts        []APIContact `json:"contacts"`
	Users           []APIUser    `json:"users"`
	ContactStatuses []APILookup  `json:"contact_statuses"`
	Territories     []APILookup  `json:"territories"`
}

type APIContact struct {
	ID            int64             `json:"id"`
	DisplayName   string            `json:"display_name"`
	JobTitle      string            `json:"job_title,omitempty"`
	Email         string            `json:"email,omitempty"`
	OtherEmails   []string          `json:"other_emails,omitempty"`
	MobileNumber  string            `json:"mobile_number,omitempty"`
	WorkNumber    string            `json:"work_number,omitempty"`
	CompanyName   string            `json:"company_name,omitempty"`
	OwnerID       int64             `json:"owner_id,omitempty"`
	StatusID      int64             `json:"contact_status_id,omitempty"`
	TerritoryID   int64             `json:"territory_id,omitempty"`
	LeadScore     int               `json:"lead_score,omitempty"`
	CustomField   map[string]string `json:"custom_field,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	LastContacted *time.Time        `json:"last_contacted,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type APIUser struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

type APILookup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ConversationsResponse is the full conversation list for one contact. The
// conversation entries reference detail records in the companion arrays.
type ConversationsResponse struct {
	Conversations []APIConversation `json:"conversations"`
	PhoneCalls    []APIPhoneCall    `json:"phone_calls"`
	PhoneCallers  []APIPhoneCaller  `json:"phone_callers"`
	Notes         []APINote         `json:"notes"`
	Users         []APIUser         `json:"users"`
	CallOutcomes  []APILookup       `json:"call_outcomes"`
}

type APIConversation struct {
	ID          string `json:"id"`
	Type        string `json:"type"` // email | phone | note
	EmailID     int64  `json:"email_id,omitempty"`
	PhoneCallID int64  `json:"phone_call_id,omitempty"`
	NoteID      int64  `json:"note_id,omitempty"`
}

type APIPhoneCall struct {
	ID            int64     `json:"id"`
	Direction     string    `json:"direction"`
	Duration      int       `json:"call_duration"`
	OutcomeID     int64     `json:"call_outcome_id,omitempty"`
	UserID        int64     `json:"user_id,omitempty"`
	PhoneCallerID int64     `json:"phone_caller_id,omitempty"`
	RecordingURL  string    `json:"recording,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type APIPhoneCaller struct {
	ID     int64  `json:"id"`
	Number string `json:"number"`
}

type APINote struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	CreatorID   int64     `json:"creator_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// EmailThreadResponse is one page of a thread's messages plus the recipient,
// user, and contact arrays needed to resolve participants.
type EmailThreadResponse struct {
	EmailConversations []APIEmailMessage `json:"email_conversations"`
	Recipients         []APIRecipient    `json:"email_conversation_recipients"`
	Users              []APIUser         `json:"users"`
	Contacts           []APIContactRef   `json:"contacts"`
}

type APIEmailMessage struct {
	ID            int64     `json:"id"`
	Direction     string    `json:"direction"`
	Subject       string    `json:"subject,omitempty"`
	Content       string    `json:"content,omitempty"`
	SentAt        time.Time `json:"sent_at"`
	Attachments   int       `json:"attachments_count,omitempty"`
	RecipientIDs  []int64   `json:"recipient_ids,omitempty"`
	NeedsResponse bool      `json:"needs_response,omitempty"`
	Unread        bool      `json:"unread,omitempty"`
}

type APIRecipient struct {
	ID      int64  `json:"id"`
	Field   string `json:"field"` // from | to | cc
	Email   string `json:"email"`
	Opened  bool   `json:"opened,omitempty"`
	Clicked bool   `json:"clicked,omitempty"`
	Bounced bool   `json:"bounced,omitempty"`
}

type APIContactRef struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}
