// ABOUTME: Automated-email detection for engagement filtering
// ABOUTME: Pure predicate over subject, body, and sender address
package analytics

import "strings"

// automationMarkers are matched case-insensitively against subject and body.
var automationMarkers = []string{
	"auto-reply",
	"autoreply",
	"automatic reply",
	"out of office",
	"delivery status notification",
	"undeliverable",
	"bounce",
	"mailer-daemon",
	"no-reply",
	"do not reply",
	"unsubscribe",
	"newsletter",
	"campaign",
	"this is an automated",
}

// noReplySenders are matched as substrings of the sender address.
var noReplySenders = []string{
	"noreply",
	"no-reply",
	"donotreply",
}

// IsAutomatedEmail reports whether a message should be excluded from real
// engagement counts. It depends only on its arguments.
func IsAutomatedEmail(subject, content, senderEmail string) bool {
	subject = strings.ToLower(subject)
	content = strings.ToLower(content)
	for _, marker := range automationMarkers {
		if strings.Contains(subject, marker) || strings.Contains(content, marker) {
			return true
		}
	}

	sender := strings.ToLower(senderEmail)
	for _, marker := range noReplySenders {
		if strings.Contains(sender, marker) {
			return true
		}
	}

	return false
}
