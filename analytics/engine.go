// ABOUTME: Per-contact engagement analytics engine
// ABOUTME: Pure function of (contact, conversations, now); no stored state
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/harperreed/leadsync/models"
)

// istOffset is a fixed display offset added to the UTC instant. This is not a
// timezone conversion; downstream dashboards expect the stored string to equal
// UTC + 5:30 with a literal +05:30 suffix.
const istOffset = 5*time.Hour + 30*time.Minute

const followUpWindow = 7 * 24 * time.Hour

// FormatIST renders a UTC instant as the dashboard's IST display string.
func FormatIST(t time.Time) string {
	return t.UTC().Add(istOffset).Format("2006-01-02T15:04:05") + "+05:30"
}

// Compute builds the analytics document for one contact from its full
// conversation set. now is injected so output is deterministic under test.
func Compute(contact *models.Contact, conversations []models.Conversation, now time.Time) *models.Analytics {
	interactions := Normalize(conversations)
	sort.SliceStable(interactions, func(i, j int) bool {
		return interactions[i].Date.Before(interactions[j].Date)
	})
	for i := range interactions {
		interactions[i].DateIST = FormatIST(interactions[i].Date)
	}

	a := &models.Analytics{
		ComputedAt:     FormatIST(now),
		UserActivities: []models.UserActivity{},
	}

	cutoff7 := now.Add(-7 * 24 * time.Hour)
	cutoff30 := now.Add(-30 * 24 * time.Hour)
	cutoff90 := now.Add(-90 * 24 * time.Hour)

	rollupUsers(a, interactions, cutoff7, cutoff30)
	markMilestones(a, interactions)
	countEngagement(a, interactions, cutoff7, cutoff30, cutoff90)

	// Derived metrics, all zero-guarded.
	eng := &a.Engagement
	if calls := eng.CallsOutgoing + eng.CallsIncoming; calls > 0 {
		eng.AvgCallDuration = float64(eng.CallDurationTotal) / float64(calls)
	}
	if outreach := eng.EmailsSent + eng.CallsOutgoing; outreach > 0 {
		responses := eng.EmailsReceived + eng.CallsIncoming + eng.CallAnswers
		a.ResponseMetrics.ResponseRate = float64(responses) / float64(outreach) * 100
	}

	days := int(math.Ceil(now.Sub(contact.RemoteCreatedAt).Hours() / 24))
	if days < 0 {
		days = 0
	}
	a.LeadProgression.DaysInPipeline = days
	a.LeadProgression.QualificationScore = contact.LeadScore
	if days > 0 {
		a.ContactFrequency.AvgContactsPerWeek = float64(eng.TotalTouchpoints) / (float64(days) / 7)
	}

	applyFollowUpPolicy(a, now)

	return a
}

// rollupUsers accumulates per-user buckets in first-encounter order. Notes
// and inbound mail carry no user id and are skipped.
func rollupUsers(a *models.Analytics, interactions []models.Interaction, cutoff7, cutoff30 time.Time) {
	index := make(map[string]int)

	for _, in := range interactions {
		if in.UserID == "" {
			continue
		}

		i, seen := index[in.UserID]
		if !seen {
			i = len(a.UserActivities)
			index[in.UserID] = i
			a.UserActivities = append(a.UserActivities, models.UserActivity{
				UserID:          in.UserID,
				UserName:        in.UserName,
				UserEmail:       in.UserEmail,
				FirstActivityAt: in.DateIST,
			})
		}

		u := &a.UserActivities[i]
		u.LastActivityAt = in.DateIST
		u.TotalActivities++
		if in.Type == models.ConversationEmail && in.Direction == models.DirectionOutgoing {
			u.EmailsSent++
		}
		if in.Type == models.ConversationPhone && in.Direction == models.DirectionOutgoing {
			u.CallsMade++
			u.CallDurationTotal += in.Duration
		}
		if in.Date.After(cutoff7) {
			u.Last7Days++
		}
		if in.Date.After(cutoff30) {
			u.Last30Days++
		}
	}

	for i := range a.UserActivities {
		// Every interaction after a user's first one counts as a follow-up.
		u := &a.UserActivities[i]
		if u.TotalActivities > 1 {
			u.FollowUps = u.TotalActivities - 1
		}
	}

	a.TotalUsersInvolved = len(a.UserActivities)

	// Stable argmax: strictly-greater keeps the first-seen bucket on ties.
	for i := range a.UserActivities {
		if a.PrimaryUser == nil || a.UserActivities[i].TotalActivities > a.PrimaryUser.TotalActivities {
			a.PrimaryUser = &a.UserActivities[i]
		}
	}
}

func markMilestones(a *models.Analytics, interactions []models.Interaction) {
	if len(interactions) == 0 {
		return
	}

	a.FirstContact = snapshot(interactions[0])
	a.LastContact = snapshot(interactions[len(interactions)-1])

	for _, in := range interactions {
		switch {
		case a.FirstCall == nil && in.Type == models.ConversationPhone:
			a.FirstCall = snapshot(in)
		case a.FirstEmailSent == nil && in.Type == models.ConversationEmail &&
			in.Direction == models.DirectionOutgoing && !in.IsAutomated:
			a.FirstEmailSent = snapshot(in)
		// Received side deliberately keeps automated mail: any reply counts.
		case a.FirstEmailReceived == nil && in.Type == models.ConversationEmail &&
			in.Direction == models.DirectionIncoming:
			a.FirstEmailReceived = snapshot(in)
		}
	}
}

func countEngagement(a *models.Analytics, interactions []models.Interaction, cutoff7, cutoff30, cutoff90 time.Time) {
	eng := &a.Engagement
	freq := &a.ContactFrequency

	for _, in := range interactions {
		eng.TotalTouchpoints++

		switch in.Type {
		case models.ConversationEmail:
			if in.Direction == models.DirectionOutgoing {
				eng.EmailsSent++
			} else {
				eng.EmailsReceived++
				if in.Engagement != nil {
					if in.Engagement.Opened {
						eng.EmailsOpened++
					}
					if in.Engagement.Clicked {
						eng.EmailsClicked++
					}
				}
			}
		case models.ConversationPhone:
			if in.Direction == models.DirectionOutgoing {
				eng.CallsOutgoing++
			} else {
				eng.CallsIncoming++
			}
			eng.CallDurationTotal += in.Duration
			if in.Duration > 0 {
				eng.CallAnswers++
			}
		case models.ConversationNote:
			eng.NotesLogged++
		}

		if in.Direction == models.DirectionIncoming {
			// Sorted ascending, so the final assignment is the latest response.
			date := in.DateIST
			a.ResponseMetrics.LastResponseAt = &date
		}

		if in.Date.After(cutoff7) {
			freq.Last7Days++
		}
		if in.Date.After(cutoff30) {
			freq.Last30Days++
		}
		if in.Date.After(cutoff90) {
			freq.Last90Days++
		}
	}
}

// applyFollowUpPolicy: follow up when there is no contact yet, when the last
// touch is older than the window, or when outreach has gone unanswered.
func applyFollowUpPolicy(a *models.Analytics, now time.Time) {
	needs := a.LastContact == nil ||
		now.Sub(a.LastContact.Date) > followUpWindow ||
		(a.Engagement.EmailsReceived == 0 && a.Engagement.EmailsSent > 0)

	a.ResponseMetrics.NeedsFollowUp = needs

	if needs && a.LastContact != nil {
		due := FormatIST(a.LastContact.Date.Add(followUpWindow))
		a.LeadProgression.NextActionDue = &due
	}
}

func snapshot(in models.Interaction) *models.Interaction {
	copied := in
	return &copied
}
