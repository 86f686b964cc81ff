// ABOUTME: Tests for automated-email detection
// ABOUTME: Table-driven checks over subject, body, and sender markers
package analytics

import "testing"

func TestIsAutomatedEmail(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		content string
		sender  string
		want    bool
	}{
		{"plain human email", "Quick question", "Do you have time this week?", "alice@acme.com", false},
		{"out of office subject", "Out of Office: Re: Pricing", "", "bob@acme.com", true},
		{"auto-reply subject mixed case", "AUTO-REPLY", "", "bob@acme.com", true},
		{"automatic reply phrase", "Re: Pricing", "Automatic reply: I am travelling", "bob@acme.com", true},
		{"bounce notification", "Delivery Status Notification (Failure)", "", "mailer@relay.example", true},
		{"undeliverable", "Undeliverable: Proposal", "", "postmaster@relay.example", true},
		{"unsubscribe footer", "March update", "Click here to unsubscribe from this list", "news@vendor.com", true},
		{"newsletter marker", "Weekly Newsletter", "", "digest@vendor.com", true},
		{"campaign marker in body", "Hello", "Sent as part of our spring campaign", "sales@vendor.com", true},
		{"automated disclosure", "Receipt", "This is an automated message", "billing@vendor.com", true},
		{"noreply sender", "Your invoice", "Amount due: $100", "noreply@vendor.com", true},
		{"no-reply sender with subdomain", "Shipping update", "On its way", "no-reply@mail.vendor.com", true},
		{"donotreply sender", "Statement ready", "", "donotreply@bank.com", true},
		{"sender only matched on address", "Hi", "Hello", "norbert.eply@acme.com", false},
		{"empty everything", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsAutomatedEmail(tt.subject, tt.content, tt.sender)
			if got != tt.want {
				t.Errorf("IsAutomatedEmail(%q, %q, %q) = %v, want %v", tt.subject, tt.content, tt.sender, got, tt.want)
			}
		})
	}
}

func TestIsAutomatedEmailIsPure(t *testing.T) {
	// Same inputs must always produce the same answer.
	for i := 0; i < 3; i++ {
		if IsAutomatedEmail("Out of office", "", "bob@acme.com") != true {
			t.Fatal("expected consistent true result")
		}
		if IsAutomatedEmail("Hello", "Hi there", "bob@acme.com") != false {
			t.Fatal("expected consistent false result")
		}
	}
}
