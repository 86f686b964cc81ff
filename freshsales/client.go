// ABOUTME: Rate-limited HTTP client for the helpdesk CRM API
// ABOUTME: Rotates credentials on budget exhaustion and retries transient failures
package freshsales

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// callBudget is the per-credential call allowance before rotating.
	callBudget = 1900

	// fullCycleCooldown applies when rotation wraps past the last credential:
	// every key has hit its budget, so back off against the global ceiling.
	fullCycleCooldown = 60 * time.Second

	// maxTransientRetries bounds retries of transport-level failures.
	maxTransientRetries = 3

	// rateLimitMarker appears in response bodies when the upstream throttles
	// without using a 429 status.
	rateLimitMarker = "rate limit exceeded"

	pageSize = 100
)

// ErrHTMLResponse indicates the upstream returned an HTML error page where
// JSON was expected, usually an authentication or session problem.
var ErrHTMLResponse = errors.New("helpdesk API returned HTML instead of JSON")

// Client talks to the helpdesk API with credential rotation and retry. It is
// not safe for concurrent use; the sync pipeline is strictly sequential.
type Client struct {
	baseURL    string
	keys       []string
	httpClient *http.Client
	log        *log.Logger

	// sleep is injectable so tests can observe cooldowns without waiting.
	sleep func(context.Context, time.Duration) error

	keyIndex   int
	callCount  int
	budget     int
	totalCalls int
}

// New creates a client over the given base URL and ordered credential list.
func New(baseURL string, keys []string, logger *log.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		keys:       keys,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logger,
		sleep:      sleepCtx,
		budget:     callBudget,
	}
}

// TotalCalls returns the number of HTTP calls issued since creation.
func (c *Client) TotalCalls() int {
	return c.totalCalls
}

// ListContacts fetches one page of a contact view, newest-updated first.
func (c *Client) ListContacts(ctx context.Context, view string, page int) (*ContactsResponse, error) {
	path := fmt.Sprintf("/api/contacts/view/%s?page=%d&per_page=%d&sort=updated_at&sort_type=desc&include=owner,contact_status,territory",
		view, page, pageSize)
	var resp ContactsResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListConversations fetches the conversation list for one contact.
func (c *Client) ListConversations(ctx context.Context, contactID string) (*ConversationsResponse, error) {
	path := fmt.Sprintf("/api/contacts/%s/conversations/all?per_page=%d&include=phone_call,phone_caller,note,user,call_outcome",
		contactID, pageSize)
	var resp ConversationsResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetEmailThread fetches one page of an email thread's messages.
func (c *Client) GetEmailThread(ctx context.Context, emailID int64, page int) (*EmailThreadResponse, error) {
	path := fmt.Sprintf("/api/emails/%d?page=%d&include=email_conversation_recipients,users,contacts", emailID, page)
	var resp EmailThreadResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if isHTML(body) {
		return ErrHTMLResponse
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// Get issues a GET against the API, handling credential rotation, rate-limit
// signals, and transient transport failures. Statuses below 500 are returned
// to the caller; business-level validation is the caller's job.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	transient := 0
	rotatedForRateLimit := false
	var lastErr error

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.rotateIfExhausted(ctx); err != nil {
			return nil, err
		}

		body, status, err := c.do(ctx, path)

		switch {
		case err != nil && isTransient(err):
			lastErr = err
			transient++
			if transient > maxTransientRetries {
				return nil, fmt.Errorf("request to %s failed after %d attempts: %w", path, transient, lastErr)
			}
			// 1s, 2s, 4s
			delay := time.Second << (transient - 1)
			if serr := c.sleep(ctx, delay); serr != nil {
				return nil, serr
			}

		case err != nil:
			return nil, fmt.Errorf("request to %s failed: %w", path, err)

		case status == http.StatusTooManyRequests || bytes.Contains(bytes.ToLower(body), []byte(rateLimitMarker)):
			if rotatedForRateLimit {
				lastErr = fmt.Errorf("rate limited on %s after key rotation", path)
				transient++
				if transient > maxTransientRetries {
					return nil, lastErr
				}
				delay := time.Second << (transient - 1)
				if serr := c.sleep(ctx, delay); serr != nil {
					return nil, serr
				}
				continue
			}
			// Rotate and retry once immediately with the fresh credential.
			rotatedForRateLimit = true
			c.log.Warn("rate limit signal, rotating API key", "path", path, "key", c.keyIndex)
			if err := c.advanceKey(ctx); err != nil {
				return nil, err
			}

		case status >= 500:
			return nil, fmt.Errorf("helpdesk API returned %d for %s", status, path)

		default:
			return body, nil
		}
	}
}

// rotateIfExhausted advances to the next credential once the current one has
// spent its budget.
func (c *Client) rotateIfExhausted(ctx context.Context) error {
	if c.callCount < c.budget {
		return nil
	}
	c.log.Info("API key budget exhausted, rotating", "key", c.keyIndex, "calls", c.callCount)
	return c.advanceKey(ctx)
}

// advanceKey moves to the next credential and resets its counter. Wrapping
// back to the first key means the whole pool is hot, so we cool down.
func (c *Client) advanceKey(ctx context.Context) error {
	c.keyIndex = (c.keyIndex + 1) % len(c.keys)
	c.callCount = 0
	if c.keyIndex == 0 {
		c.log.Info("all API keys cycled, cooling down", "wait", fullCycleCooldown)
		return c.sleep(ctx, fullCycleCooldown)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Token token="+c.keys[c.keyIndex])
	req.Header.Set("Accept", "application/json")

	c.callCount++
	c.totalCalls++

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	return body, resp.StatusCode, nil
}

// isTransient reports whether a transport error is worth retrying.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{
		"connection reset",
		"connection refused",
		"broken pipe",
		"unexpected EOF",
		"socket hang up",
		"timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// isHTML sniffs an error page returned where JSON was expected.
func isHTML(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	lower := bytes.ToLower(trimmed)
	return bytes.HasPrefix(lower, []byte("<!doctype")) || bytes.HasPrefix(lower, []byte("<html"))
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
