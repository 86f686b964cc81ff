// ABOUTME: Entry point for the lead sync daemon
// ABOUTME: Wires config, database, API client, and the periodic sync loop
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/db"
	"github.com/harperreed/leadsync/freshsales"
	"github.com/harperreed/leadsync/sync"
)

const version = "0.1.0"

const (
	syncInterval   = 15 * time.Minute
	reportInterval = time.Hour
)

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/leadsync/leadsync.db)")
	once := flag.Bool("once", false, "Run a single sync and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("leadsync version %s\n", version)
		os.Exit(0)
	}

	logger := log.NewWithOptions(os.Stdout, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "leadsync",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration error", "error", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	database, err := db.OpenDatabase(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", "error", err, "path", cfg.DBPath)
	}
	defer database.Close()

	logger.Info("database ready", "path", cfg.DBPath)

	api := freshsales.New(cfg.APIBaseURL, cfg.APIKeys, logger)
	syncer := sync.NewSyncer(database, api, logger, cfg.ContactView, cfg.IgnoredDomains)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		if _, err := syncer.Run(ctx); err != nil {
			logger.Fatal("sync failed", "error", err)
		}
		return
	}

	runLoop(ctx, logger, database, syncer)
}

// runLoop runs syncs on a fixed interval and logs a health report hourly,
// until the context is cancelled by a signal.
func runLoop(ctx context.Context, logger *log.Logger, database *sql.DB, syncer *sync.Syncer) {
	runSync := func() {
		if _, err := syncer.Run(ctx); err != nil {
			if errors.Is(err, sync.ErrSyncInProgress) {
				logger.Warn("sync skipped, previous run still in progress")
				return
			}
			if ctx.Err() != nil {
				return
			}
			logger.Error("sync failed", "error", err)
		}
	}

	runSync()

	syncTick := time.NewTicker(syncInterval)
	defer syncTick.Stop()
	reportTick := time.NewTicker(reportInterval)
	defer reportTick.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case <-syncTick.C:
			runSync()
		case <-reportTick.C:
			reportHealth(logger, database)
		}
	}
}

// reportHealth logs a one-line summary of the last sync run and the contact
// count, so a long-running daemon leaves a periodic trace even when idle.
func reportHealth(logger *log.Logger, database *sql.DB) {
	state, err := db.GetSyncState(database)
	if err != nil {
		logger.Error("health report failed", "error", err)
		return
	}
	contacts, err := db.CountContacts(database)
	if err != nil {
		logger.Error("health report failed", "error", err)
		return
	}
	if state == nil {
		logger.Info("health", "contacts", contacts, "last_sync", "never")
		return
	}
	logger.Info("health",
		"contacts", contacts,
		"status", state.Status,
		"last_sync", state.LastSyncAt,
		"processed", state.Stats.Processed,
		"api_calls", state.Stats.APICalls)
}
