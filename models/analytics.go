// ABOUTME: Analytics document types produced by the engagement engine
// ABOUTME: One document per contact, fully recomputed on every refetch
package models

// Analytics is the per-contact engagement document. It is recomputed from the
// full conversation set, never patched incrementally.
type Analytics struct {
	ComputedAt         string           `json:"computed_at"`
	FirstContact       *Interaction     `json:"first_contact"`
	FirstCall          *Interaction     `json:"first_call"`
	FirstEmailSent     *Interaction     `json:"first_email_sent"`
	FirstEmailReceived *Interaction     `json:"first_email_received"`
	LastContact        *Interaction     `json:"last_contact"`
	UserActivities     []UserActivity   `json:"user_activities"`
	TotalUsersInvolved int              `json:"total_users_involved"`
	PrimaryUser        *UserActivity    `json:"primary_user"`
	Engagement         EngagementStats  `json:"engagement"`
	ResponseMetrics    ResponseMetrics  `json:"response_metrics"`
	LeadProgression    LeadProgression  `json:"lead_progression"`
	ContactFrequency   ContactFrequency `json:"contact_frequency"`
	Meetings           MeetingStats     `json:"meetings"`
}

// UserActivity is the per-user rollup bucket. The UserActivities slice is
// ordered by first encounter in the date-sorted interaction list; that order
// is what makes the primary-user tie-break stable.
type UserActivity struct {
	UserID            string `json:"user_id"`
	UserName          string `json:"user_name,omitempty"`
	UserEmail         string `json:"user_email,omitempty"`
	FirstActivityAt   string `json:"first_activity_at"`
	LastActivityAt    string `json:"last_activity_at"`
	TotalActivities   int    `json:"total_activities"`
	EmailsSent        int    `json:"emails_sent"`
	CallsMade         int    `json:"calls_made"`
	CallDurationTotal int    `json:"call_duration_total"`
	FollowUps         int    `json:"follow_ups"`
	Last7Days         int    `json:"last_7_days"`
	Last30Days        int    `json:"last_30_days"`
}

type EngagementStats struct {
	TotalTouchpoints  int     `json:"total_touchpoints"`
	EmailsSent        int     `json:"emails_sent"`
	EmailsReceived    int     `json:"emails_received"`
	EmailsOpened      int     `json:"emails_opened"`
	EmailsClicked     int     `json:"emails_clicked"`
	NotesLogged       int     `json:"notes_logged"`
	CallsOutgoing     int     `json:"calls_outgoing"`
	CallsIncoming     int     `json:"calls_incoming"`
	CallAnswers       int     `json:"call_answers"`
	CallDurationTotal int     `json:"call_duration_total"`
	AvgCallDuration   float64 `json:"avg_call_duration"`
}

type ResponseMetrics struct {
	ResponseRate   float64 `json:"response_rate"`
	NeedsFollowUp  bool    `json:"needs_follow_up"`
	LastResponseAt *string `json:"last_response_at,omitempty"`
}

type LeadProgression struct {
	DaysInPipeline     int     `json:"days_in_pipeline"`
	QualificationScore int     `json:"qualification_score"`
	NextActionDue      *string `json:"next_action_due,omitempty"`
}

type ContactFrequency struct {
	Last7Days          int     `json:"last_7_days"`
	Last30Days         int     `json:"last_30_days"`
	Last90Days         int     `json:"last_90_days"`
	AvgContactsPerWeek float64 `json:"avg_contacts_per_week"`
}

// MeetingStats are placeholder counters; meeting sources are not wired into
// this pipeline, so both stay zero.
type MeetingStats struct {
	Scheduled int `json:"scheduled"`
	Completed int `json:"completed"`
}
