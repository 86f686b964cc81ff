// ABOUTME: Derives lightweight conversation summaries and rollup stats
// ABOUTME: Embedded on the contact record for the dashboard; no message bodies
package sync

import (
	"time"

	"github.com/harperreed/leadsync/models"
)

// Summarize builds the per-conversation summaries and the aggregate stats for
// one contact's conversation set.
func Summarize(conversations []models.Conversation) ([]models.ConversationSummary, models.ConversationStats) {
	summaries := make([]models.ConversationSummary, 0, len(conversations))
	stats := models.ConversationStats{Total: len(conversations)}

	var lastActivity time.Time

	for _, conv := range conversations {
		summary := models.ConversationSummary{
			ID:   conv.ID,
			Type: conv.Type,
		}

		switch conv.Type {
		case models.ConversationEmail:
			if conv.Email == nil {
				continue
			}
			thread := conv.Email
			summary.Subject = thread.Subject
			summary.Date = thread.LastMessageAt
			summary.Messages = thread.ThreadCount
			summary.Incoming = thread.Incoming
			summary.Outgoing = thread.Outgoing
			summary.Attachments = thread.Attachments

			stats.Emails++
			stats.EmailMessages += thread.ThreadCount
			stats.Attachments += thread.Attachments
			if thread.ThreadCount > stats.MaxThreadMessages {
				stats.MaxThreadMessages = thread.ThreadCount
			}

		case models.ConversationPhone:
			if conv.Phone == nil {
				continue
			}
			summary.Direction = conv.Phone.Direction
			summary.Date = conv.Phone.CreatedAt
			summary.Duration = conv.Phone.Duration
			summary.Outcome = conv.Phone.Outcome
			stats.Calls++

		case models.ConversationNote:
			if conv.Note == nil {
				continue
			}
			summary.Date = conv.Note.CreatedAt
			stats.Notes++
		}

		if summary.Date.After(lastActivity) {
			lastActivity = summary.Date
		}
		summaries = append(summaries, summary)
	}

	if stats.Emails > 0 {
		stats.AvgThreadMessages = float64(stats.EmailMessages) / float64(stats.Emails)
	}
	if !lastActivity.IsZero() {
		stats.LastActivityAt = &lastActivity
	}

	return summaries, stats
}
