// ABOUTME: Flattens the three conversation variants into interaction records
// ABOUTME: Output order is unspecified; the engine sorts before positional use
package analytics

import (
	"github.com/harperreed/leadsync/models"
)

// Normalize flattens a contact's conversations into one interaction list.
// Email threads contribute one interaction per message; calls and notes one
// each. Notes carry no actor, so their user id stays empty and they are
// excluded from every per-user rollup.
func Normalize(conversations []models.Conversation) []models.Interaction {
	var interactions []models.Interaction

	for _, conv := range conversations {
		switch conv.Type {
		case models.ConversationEmail:
			if conv.Email == nil {
				continue
			}
			for _, msg := range conv.Email.Messages {
				interactions = append(interactions, normalizeMessage(msg))
			}

		case models.ConversationPhone:
			if conv.Phone == nil {
				continue
			}
			call := conv.Phone
			interactions = append(interactions, models.Interaction{
				Date:      call.CreatedAt,
				Type:      models.ConversationPhone,
				Direction: call.Direction,
				UserID:    call.UserID,
				UserName:  call.UserName,
				UserEmail: call.UserEmail,
				Duration:  call.Duration,
				Outcome:   call.Outcome,
			})

		case models.ConversationNote:
			if conv.Note == nil {
				continue
			}
			interactions = append(interactions, models.Interaction{
				Date:     conv.Note.CreatedAt,
				Type:     models.ConversationNote,
				UserName: conv.Note.CreatorName,
			})
		}
	}

	return interactions
}

func normalizeMessage(msg models.EmailMessage) models.Interaction {
	var senderEmail string
	in := models.Interaction{
		Date:      msg.SentAt,
		Type:      models.ConversationEmail,
		Direction: msg.Direction,
		Engagement: &models.Engagement{
			Opened:  msg.Opened,
			Clicked: msg.Clicked,
			Bounced: msg.Bounced,
		},
	}

	if msg.Sender != nil {
		senderEmail = msg.Sender.Email
		// Only CRM users count as actors; inbound mail from the contact has
		// no user attribution.
		if msg.Sender.Kind == models.ParticipantUser {
			in.UserID = msg.Sender.ID
			in.UserName = msg.Sender.Name
			in.UserEmail = msg.Sender.Email
		}
	}

	in.IsAutomated = IsAutomatedEmail(msg.Subject, msg.Content, senderEmail)
	return in
}
