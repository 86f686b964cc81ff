// ABOUTME: Conversation fetch and assembly pipeline for one contact
// ABOUTME: Resolves companion lookup arrays and multi-page email threads
package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/leadsync/freshsales"
	"github.com/harperreed/leadsync/models"
)

const (
	// Throttle delays between successive thread fetches and thread pages.
	// Deliberate backpressure against the upstream, not a correctness need.
	threadDelay = 500 * time.Millisecond
	pageDelay   = 300 * time.Millisecond
)

// Fetcher retrieves and assembles a contact's full conversation set.
type Fetcher struct {
	api *freshsales.Client
	log *log.Logger

	// sleep is injectable so tests skip the throttle delays.
	sleep func(context.Context, time.Duration) error
}

func NewFetcher(api *freshsales.Client, logger *log.Logger) *Fetcher {
	return &Fetcher{
		api:   api,
		log:   logger,
		sleep: sleepCtx,
	}
}

// FetchConversations returns the assembled conversations for a contact, in no
// guaranteed order. An HTML error page from the upstream is a soft failure:
// it is logged and an empty result returned so one contact's auth hiccup does
// not abort the whole sync.
func (f *Fetcher) FetchConversations(ctx context.Context, contactID string) ([]models.Conversation, error) {
	resp, err := f.api.ListConversations(ctx, contactID)
	if errors.Is(err, freshsales.ErrHTMLResponse) {
		f.log.Warn("conversation list came back as HTML, skipping contact", "contact", contactID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations for %s: %w", contactID, err)
	}

	users := indexUsers(resp.Users)
	outcomes := indexLookups(resp.CallOutcomes)
	calls := make(map[int64]freshsales.APIPhoneCall, len(resp.PhoneCalls))
	for _, call := range resp.PhoneCalls {
		calls[call.ID] = call
	}
	callers := make(map[int64]string, len(resp.PhoneCallers))
	for _, caller := range resp.PhoneCallers {
		callers[caller.ID] = caller.Number
	}
	notes := make(map[int64]freshsales.APINote, len(resp.Notes))
	for _, note := range resp.Notes {
		notes[note.ID] = note
	}

	var conversations []models.Conversation
	var emailIDs []int64
	seenEmails := make(map[int64]bool)

	for _, raw := range resp.Conversations {
		switch raw.Type {
		case models.ConversationPhone:
			call, ok := calls[raw.PhoneCallID]
			if !ok {
				continue
			}
			phone := &models.PhoneCall{
				Direction:    call.Direction,
				Duration:     call.Duration,
				Outcome:      outcomes[call.OutcomeID],
				CallerNumber: callers[call.PhoneCallerID],
				RecordingURL: call.RecordingURL,
				CreatedAt:    call.CreatedAt,
			}
			if user, ok := users[call.UserID]; ok {
				phone.UserID = strconv.FormatInt(user.ID, 10)
				phone.UserName = user.DisplayName
				phone.UserEmail = user.Email
			}
			conversations = append(conversations, models.Conversation{
				ID:        raw.ID,
				ContactID: contactID,
				Type:      models.ConversationPhone,
				Phone:     phone,
			})

		case models.ConversationNote:
			note, ok := notes[raw.NoteID]
			if !ok {
				continue
			}
			rec := &models.Note{
				Content:   note.Description,
				CreatedAt: note.CreatedAt,
			}
			if user, ok := users[note.CreatorID]; ok {
				rec.CreatorID = strconv.FormatInt(user.ID, 10)
				rec.CreatorName = user.DisplayName
			}
			conversations = append(conversations, models.Conversation{
				ID:        raw.ID,
				ContactID: contactID,
				Type:      models.ConversationNote,
				Note:      rec,
			})

		case models.ConversationEmail:
			// Distinct entries can reference the same underlying thread;
			// threads are resolved after this loop.
			if raw.EmailID != 0 && !seenEmails[raw.EmailID] {
				seenEmails[raw.EmailID] = true
				emailIDs = append(emailIDs, raw.EmailID)
			}
		}
	}

	for i, emailID := range emailIDs {
		if i > 0 {
			if err := f.sleep(ctx, threadDelay); err != nil {
				return nil, err
			}
		}

		thread, err := f.fetchEmailThread(ctx, emailID)
		if err != nil {
			return nil, err
		}
		if thread == nil {
			continue
		}

		conversations = append(conversations, models.Conversation{
			ID:        fmt.Sprintf("email-%d", emailID),
			ContactID: contactID,
			Type:      models.ConversationEmail,
			Email:     thread,
		})
	}

	return conversations, nil
}

// fetchEmailThread pulls every page of one thread and assembles it. Returns
// (nil, nil) when the thread has no messages or the upstream serves HTML.
func (f *Fetcher) fetchEmailThread(ctx context.Context, emailID int64) (*models.EmailThread, error) {
	var messages []freshsales.APIEmailMessage
	recipients := make(map[int64]freshsales.APIRecipient)
	users := make(map[int64]freshsales.APIUser)
	contactRefs := make(map[string]freshsales.APIContactRef)

	for page := 1; ; page++ {
		if page > 1 {
			if err := f.sleep(ctx, pageDelay); err != nil {
				return nil, err
			}
		}

		resp, err := f.api.GetEmailThread(ctx, emailID, page)
		if errors.Is(err, freshsales.ErrHTMLResponse) {
			f.log.Warn("email thread came back as HTML, skipping", "email_id", emailID, "page", page)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch email thread %d page %d: %w", emailID, page, err)
		}

		if len(resp.EmailConversations) == 0 {
			break
		}

		messages = append(messages, resp.EmailConversations...)
		for _, rcpt := range resp.Recipients {
			recipients[rcpt.ID] = rcpt
		}
		for _, user := range resp.Users {
			users[user.ID] = user
		}
		for _, ref := range resp.Contacts {
			contactRefs[normalizeEmail(ref.Email)] = ref
		}
	}

	if len(messages) == 0 {
		return nil, nil
	}

	return assembleThread(emailID, messages, recipients, users, contactRefs), nil
}

// assembleThread sorts messages, resolves participants, and computes the
// thread-level stats.
func assembleThread(
	emailID int64,
	rawMessages []freshsales.APIEmailMessage,
	recipients map[int64]freshsales.APIRecipient,
	users map[int64]freshsales.APIUser,
	contactRefs map[string]freshsales.APIContactRef,
) *models.EmailThread {
	sort.SliceStable(rawMessages, func(i, j int) bool {
		return rawMessages[i].SentAt.Before(rawMessages[j].SentAt)
	})

	usersByEmail := make(map[string]freshsales.APIUser, len(users))
	for _, u := range users {
		usersByEmail[normalizeEmail(u.Email)] = u
	}

	thread := &models.EmailThread{
		EmailID:        emailID,
		Subject:        rawMessages[0].Subject,
		FirstMessageAt: rawMessages[0].SentAt,
		LastMessageAt:  rawMessages[len(rawMessages)-1].SentAt,
	}

	uniqueParticipants := make(map[string]bool)

	for _, raw := range rawMessages {
		msg := models.EmailMessage{
			ID:          raw.ID,
			Direction:   raw.Direction,
			Subject:     raw.Subject,
			Content:     raw.Content,
			SentAt:      raw.SentAt,
			Attachments: raw.Attachments,
		}

		for _, rcptID := range raw.RecipientIDs {
			rcpt, ok := recipients[rcptID]
			if !ok {
				continue
			}

			participant := resolveParticipant(rcpt, usersByEmail, contactRefs)
			uniqueParticipants[normalizeEmail(rcpt.Email)] = true

			// Engagement is "any participant flagged it".
			if rcpt.Opened {
				msg.Opened = true
			}
			if rcpt.Clicked {
				msg.Clicked = true
			}
			if rcpt.Bounced {
				msg.Bounced = true
			}

			if participant.Role == "from" {
				sender := participant
				msg.Sender = &sender
			} else {
				msg.Recipients = append(msg.Recipients, participant)
			}
		}

		if msg.Direction == models.DirectionIncoming {
			thread.Incoming++
		} else {
			thread.Outgoing++
		}
		thread.Attachments += msg.Attachments
		if raw.Unread {
			thread.Unread = true
		}

		thread.Messages = append(thread.Messages, msg)
	}

	thread.ThreadCount = len(thread.Messages)
	thread.Participants = len(uniqueParticipants)

	last := thread.Messages[len(thread.Messages)-1]
	thread.NeedsResponse = last.Direction == models.DirectionIncoming

	return thread
}

func resolveParticipant(
	rcpt freshsales.APIRecipient,
	usersByEmail map[string]freshsales.APIUser,
	contactRefs map[string]freshsales.APIContactRef,
) models.Participant {
	email := normalizeEmail(rcpt.Email)

	if user, ok := usersByEmail[email]; ok {
		return models.Participant{
			Kind:  models.ParticipantUser,
			ID:    strconv.FormatInt(user.ID, 10),
			Name:  user.DisplayName,
			Email: rcpt.Email,
			Role:  rcpt.Field,
		}
	}

	if ref, ok := contactRefs[email]; ok {
		return models.Participant{
			Kind:  models.ParticipantContact,
			ID:    strconv.FormatInt(ref.ID, 10),
			Name:  ref.DisplayName,
			Email: rcpt.Email,
			Role:  rcpt.Field,
		}
	}

	return models.Participant{
		Kind:  models.ParticipantUnknown,
		Email: rcpt.Email,
		Role:  rcpt.Field,
	}
}

func indexUsers(users []freshsales.APIUser) map[int64]freshsales.APIUser {
	m := make(map[int64]freshsales.APIUser, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return m
}

func indexLookups(lookups []freshsales.APILookup) map[int64]string {
	m := make(map[int64]string, len(lookups))
	for _, l := range lookups {
		m[l.ID] = l.Name
	}
	return m
}
