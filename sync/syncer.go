// ABOUTME: Incremental sync orchestrator for the helpdesk CRM
// ABOUTME: Pages contacts newest-first, skips, diffs, refetches, and upserts
package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/harperreed/leadsync/analytics"
	"github.com/harperreed/leadsync/db"
	"github.com/harperreed/leadsync/freshsales"
	"github.com/harperreed/leadsync/models"
)

const contactPageSize = 100

// ErrSyncInProgress is returned when a run is refused because another one is
// in flight, either in this process or per the persisted sync state.
var ErrSyncInProgress = errors.New("a sync run is already in progress")

// Syncer drives the end-to-end incremental sync. One logical run proceeds at
// a time; exclusion across processes is advisory via the sync-state record.
type Syncer struct {
	store          *sql.DB
	api            *freshsales.Client
	fetcher        *Fetcher
	log            *log.Logger
	view           string
	ignoredDomains []string

	// now is injectable for deterministic tests.
	now func() time.Time

	inFlight atomic.Bool
}

func NewSyncer(store *sql.DB, api *freshsales.Client, logger *log.Logger, view string, ignoredDomains []string) *Syncer {
	return &Syncer{
		store:          store,
		api:            api,
		fetcher:        NewFetcher(api, logger),
		log:            logger,
		view:           view,
		ignoredDomains: ignoredDomains,
		now:            time.Now,
	}
}

// Run executes one full sync pass. It refuses to start while another run is
// in flight, reclaiming persisted runs whose heartbeat has gone stale.
func (s *Syncer) Run(ctx context.Context) (models.SyncStats, error) {
	var stats models.SyncStats

	if !s.inFlight.CompareAndSwap(false, true) {
		return stats, ErrSyncInProgress
	}
	defer s.inFlight.Store(false)

	started := s.now()

	prev, err := db.GetSyncState(s.store)
	if err != nil {
		return stats, err
	}
	if prev != nil && prev.Status == models.SyncStatusRunning {
		if !prev.IsStale(started) {
			return stats, ErrSyncInProgress
		}
		s.log.Warn("reclaiming stale sync run", "run_id", prev.RunID, "last_heartbeat", prev.UpdatedAt)
	}

	firstRun := prev == nil || prev.LastSyncAt == nil
	var lastSync time.Time
	if !firstRun {
		lastSync = *prev.LastSyncAt
	}

	state := &models.SyncState{
		Status:    models.SyncStatusRunning,
		RunID:     ulid.Make().String(),
		StartedAt: &started,
		UpdatedAt: started,
	}
	if prev != nil {
		state.LastSyncAt = prev.LastSyncAt
	}
	if err := db.SaveSyncState(s.store, state); err != nil {
		return stats, err
	}

	s.log.Info("sync started", "run_id", state.RunID, "first_run", firstRun, "since", lastSync)

	callsBefore := s.api.TotalCalls()
	watermark := lastSync
	runErr := s.syncAllPages(ctx, firstRun, lastSync, &stats, &watermark)

	finished := s.now()
	stats.APICalls = s.api.TotalCalls() - callsBefore
	state.Stats = stats
	state.FinishedAt = &finished
	state.UpdatedAt = finished

	if runErr != nil {
		state.Status = models.SyncStatusFailed
		state.ErrorMessage = runErr.Error()
		if saveErr := db.SaveSyncState(s.store, state); saveErr != nil {
			s.log.Error("failed to record failed sync state", "error", saveErr)
		}
		return stats, runErr
	}

	state.Status = models.SyncStatusCompleted
	if !watermark.IsZero() {
		// True max of updated_at seen this run becomes the next cutoff.
		w := watermark
		state.LastSyncAt = &w
	}
	if err := db.SaveSyncState(s.store, state); err != nil {
		return stats, err
	}

	s.log.Info("sync completed",
		"run_id", state.RunID,
		"processed", stats.Processed,
		"new", stats.New,
		"updated", stats.Updated,
		"conversations", stats.Conversations,
		"ignored_domain", stats.IgnoredByDomain,
		"ignored_market", stats.IgnoredByMarket,
		"api_calls", stats.APICalls,
		"duration", finished.Sub(started))

	return stats, nil
}

func (s *Syncer) syncAllPages(ctx context.Context, firstRun bool, lastSync time.Time, stats *models.SyncStats, watermark *time.Time) error {
	for page := 1; ; page++ {
		resp, err := s.api.ListContacts(ctx, s.view, page)
		if err != nil {
			return fmt.Errorf("failed to fetch contacts page %d: %w", page, err)
		}
		if len(resp.Contacts) == 0 {
			break
		}

		lookups := NewPageLookups(resp)
		pageNew, cutoff, err := s.syncPage(ctx, resp.Contacts, lookups, firstRun, lastSync, stats, watermark)
		if err != nil {
			return err
		}

		if err := db.TouchSyncState(s.store, *stats, s.now()); err != nil {
			s.log.Error("failed to refresh sync heartbeat", "error", err)
		}
		s.log.Info("page synced", "page", page, "contacts", len(resp.Contacts), "processed", stats.Processed)

		if cutoff {
			s.log.Info("reached incremental cutoff, stopping")
			break
		}
		if len(resp.Contacts) < contactPageSize {
			break
		}
		if !firstRun && pageNew == 0 {
			break
		}
	}
	return nil
}

func (s *Syncer) syncPage(ctx context.Context, contacts []freshsales.APIContact, lookups *PageLookups, firstRun bool, lastSync time.Time, stats *models.SyncStats, watermark *time.Time) (int, bool, error) {
	pageNew := 0

	for _, apiContact := range contacts {
		contact := ConvertContact(apiContact, lookups)

		if matchesIgnoredDomain(contact.Emails, s.ignoredDomains) {
			stats.IgnoredByDomain++
			continue
		}
		if isBlankMarketName(contact.MarketName) {
			stats.IgnoredByMarket++
			continue
		}

		// Pages arrive sorted by updated_at descending, so the first contact
		// at or below the watermark ends the whole run.
		if !firstRun && !contact.RemoteUpdatedAt.After(lastSync) {
			return pageNew, true, nil
		}

		if err := s.syncContact(ctx, contact, stats); err != nil {
			if ctx.Err() != nil {
				return pageNew, false, ctx.Err()
			}
			// One bad contact is skipped, not fatal.
			s.log.Error("failed to sync contact", "contact", contact.ID, "error", err)
			continue
		}

		if contact.RemoteUpdatedAt.After(*watermark) {
			*watermark = contact.RemoteUpdatedAt
		}
		pageNew++
	}

	return pageNew, false, nil
}

func (s *Syncer) syncContact(ctx context.Context, contact models.Contact, stats *models.SyncStats) error {
	existing, err := db.GetContact(s.store, contact.ID)
	if err != nil {
		return err
	}

	isNew := existing == nil
	var changes []models.FieldChange
	rec := &db.ContactRecord{Contact: contact}

	if !isNew {
		changes = DiffContact(&existing.Contact, &contact)
		rec.Summaries = existing.Summaries
		rec.Stats = existing.Stats
		rec.Analytics = existing.Analytics
		rec.ChangeHistory = existing.ChangeHistory
	}

	// Refetch conversations only when something could have happened upstream:
	// brand-new contact, or the last-contacted proxy field moved.
	if isNew || HasChange(changes, lastContactedField) {
		conversations, err := s.fetcher.FetchConversations(ctx, contact.ID)
		if err != nil {
			return err
		}

		now := s.now()
		if err := db.ReplaceConversations(s.store, contact.ID, conversations, now); err != nil {
			return err
		}

		summaries, convStats := Summarize(conversations)
		rec.Summaries = summaries
		rec.Stats = &convStats
		rec.Analytics = analytics.Compute(&contact, conversations, now)
		stats.Conversations += len(conversations)
	}

	if !isNew && len(changes) > 0 {
		rec.ChangeHistory = append(rec.ChangeHistory, models.ChangeEntry{
			ID:        uuid.New().String(),
			SyncTime:  s.now(),
			UpdatedAt: contact.RemoteUpdatedAt,
			Changes:   changes,
		})
	}

	if err := db.SaveContact(s.store, rec, s.now()); err != nil {
		return err
	}

	stats.Processed++
	if isNew {
		stats.New++
	} else if len(changes) > 0 {
		stats.Updated++
	}

	return nil
}
