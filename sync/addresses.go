// ABOUTME: Email address helpers and the ignore-domain skip rule
// ABOUTME: Shared by the fetcher and the orchestrator
package sync

import (
	"context"
	"strings"
	"time"
)

// normalizeEmail converts an email to lowercase for comparison.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// extractDomain extracts the domain from an email address.
func extractDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// matchesIgnoredDomain reports whether any address belongs to a denylisted
// domain.
func matchesIgnoredDomain(emails []string, ignored []string) bool {
	for _, email := range emails {
		domain := normalizeEmail(extractDomain(email))
		for _, ig := range ignored {
			if domain == normalizeEmail(ig) {
				return true
			}
		}
	}
	return false
}

// marketNamePlaceholders are treated as a missing market name.
var marketNamePlaceholders = map[string]bool{
	"":    true,
	"-":   true,
	"na":  true,
	"n/a": true,
}

// isBlankMarketName reports whether the market-name custom field is missing
// or a known placeholder, case-insensitively.
func isBlankMarketName(name string) bool {
	return marketNamePlaceholders[strings.ToLower(strings.TrimSpace(name))]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
