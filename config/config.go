// ABOUTME: Environment-driven configuration for the lead sync daemon
// ABOUTME: Loads .env if present, validates required variables, applies XDG defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

// Config holds everything the daemon needs to run. All values come from the
// environment; a .env file in the working directory is loaded first if present.
type Config struct {
	APIKeys        []string
	APIBaseURL     string
	DBPath         string
	ContactView    string
	IgnoredDomains []string
}

// DefaultDBPath returns the XDG-compliant location for the sync database.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, "leadsync", "leadsync.db")
}

// Load reads configuration from the environment. Missing required variables
// are reported together so a fresh deployment fails with one clear message.
func Load() (*Config, error) {
	// Best effort; absence of a .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		APIKeys:        splitList(os.Getenv("LEADSYNC_API_KEYS")),
		APIBaseURL:     strings.TrimSpace(os.Getenv("LEADSYNC_API_BASE_URL")),
		DBPath:         strings.TrimSpace(os.Getenv("LEADSYNC_DB_PATH")),
		ContactView:    strings.TrimSpace(os.Getenv("LEADSYNC_CONTACT_VIEW")),
		IgnoredDomains: splitList(os.Getenv("LEADSYNC_IGNORED_DOMAINS")),
	}

	var missing []string
	if len(cfg.APIKeys) == 0 {
		missing = append(missing, "LEADSYNC_API_KEYS")
	}
	if cfg.APIBaseURL == "" {
		missing = append(missing, "LEADSYNC_API_BASE_URL")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	if cfg.ContactView == "" {
		cfg.ContactView = "all"
	}

	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	return cfg, nil
}

// splitList parses a comma-separated environment value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
