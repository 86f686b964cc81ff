// ABOUTME: Tests for the rate-limited API client
// ABOUTME: Covers key rotation, cooldowns, retry backoff, and status handling
package freshsales

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// recordedSleep replaces the real sleep so tests observe delays instantly.
func recordedSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestClientRotatesOnBudgetAndCoolsDownOnWrap(t *testing.T) {
	var authHeaders []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var delays []time.Duration
	c := New(server.URL, []string{"key-a", "key-b"}, testLogger())
	c.budget = 2
	c.sleep = recordedSleep(&delays)

	for i := 0; i < 5; i++ {
		if _, err := c.Get(context.Background(), "/api/ping"); err != nil {
			t.Fatalf("call %d failed: %v", i+1, err)
		}
	}

	want := []string{
		"Token token=key-a",
		"Token token=key-a",
		"Token token=key-b",
		"Token token=key-b",
		"Token token=key-a",
	}
	if len(authHeaders) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(authHeaders))
	}
	for i := range want {
		if authHeaders[i] != want[i] {
			t.Errorf("call %d used %q, want %q", i+1, authHeaders[i], want[i])
		}
	}

	// First rotation (a to b) is free; wrapping back to the first key cools down.
	if len(delays) != 1 || delays[0] != fullCycleCooldown {
		t.Errorf("expected one cooldown of %v, got %v", fullCycleCooldown, delays)
	}

	if c.TotalCalls() != 5 {
		t.Errorf("expected 5 total calls, got %d", c.TotalCalls())
	}
}

// stubTransport serves canned results in order, then repeats the last one.
type stubTransport struct {
	results []stubResult
	calls   int
}

type stubResult struct {
	status int
	body   string
	err    error
}

func (s *stubTransport) RoundTrip(*http.Request) (*http.Response, error) {
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	r := s.results[i]
	if r.err != nil {
		return nil, r.err
	}
	return &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(strings.NewReader(r.body)),
		Header:     make(http.Header),
	}, nil
}

func stubbedClient(t *testing.T, results ...stubResult) (*Client, *stubTransport, *[]time.Duration) {
	t.Helper()
	transport := &stubTransport{results: results}
	delays := &[]time.Duration{}
	c := New("http://api.test", []string{"key-a", "key-b"}, testLogger())
	c.httpClient = &http.Client{Transport: transport}
	c.sleep = recordedSleep(delays)
	return c, transport, delays
}

func TestClientRetriesTransientErrors(t *testing.T) {
	hangUp := errors.New("socket hang up")
	c, transport, delays := stubbedClient(t,
		stubResult{err: hangUp},
		stubResult{err: hangUp},
		stubResult{status: http.StatusOK, body: `{"ok":true}`},
	)

	body, err := c.Get(context.Background(), "/api/thing")
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body %q", body)
	}
	if transport.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", transport.calls)
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; len(*delays) != 2 || (*delays)[0] != want[0] || (*delays)[1] != want[1] {
		t.Errorf("expected backoff %v, got %v", want, *delays)
	}
}

func TestClientGivesUpAfterTransientRetries(t *testing.T) {
	c, transport, delays := stubbedClient(t, stubResult{err: errors.New("connection reset by peer")})

	_, err := c.Get(context.Background(), "/api/thing")
	if err == nil {
		t.Fatal("expected failure after retries exhausted")
	}
	if !strings.Contains(err.Error(), "after 4 attempts") {
		t.Errorf("unexpected error: %v", err)
	}
	if transport.calls != 4 {
		t.Errorf("expected 4 attempts (1 + 3 retries), got %d", transport.calls)
	}
	if want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}; len(*delays) != 3 {
		t.Errorf("expected backoff %v, got %v", want, *delays)
	}
}

func TestClientDoesNotRetryContextCancellation(t *testing.T) {
	c, transport, _ := stubbedClient(t, stubResult{err: context.Canceled})

	_, err := c.Get(context.Background(), "/api/thing")
	if err == nil {
		t.Fatal("expected error")
	}
	if transport.calls != 1 {
		t.Errorf("cancellation must not be retried, got %d attempts", transport.calls)
	}
}

func TestClientRotatesOnceOn429(t *testing.T) {
	var authHeaders []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		if len(authHeaders) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var delays []time.Duration
	c := New(server.URL, []string{"key-a", "key-b"}, testLogger())
	c.sleep = recordedSleep(&delays)

	body, err := c.Get(context.Background(), "/api/thing")
	if err != nil {
		t.Fatalf("expected success after rotation, got %v", err)
	}
	if string(body) != `{}` {
		t.Errorf("unexpected body %q", body)
	}
	if len(authHeaders) != 2 || authHeaders[0] == authHeaders[1] {
		t.Errorf("expected one retry on a fresh key, got %v", authHeaders)
	}
	if len(delays) != 0 {
		t.Errorf("immediate retry must not sleep, got %v", delays)
	}
}

func TestClientRotatesOnRateLimitBodyMarker(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_, _ = w.Write([]byte(`{"error":"API Rate Limit Exceeded"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := New(server.URL, []string{"key-a", "key-b"}, testLogger())
	c.sleep = recordedSleep(&[]time.Duration{})

	body, err := c.Get(context.Background(), "/api/thing")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body %q", body)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestClientFailsWhenRateLimitPersists(t *testing.T) {
	c, transport, delays := stubbedClient(t, stubResult{status: http.StatusTooManyRequests})

	_, err := c.Get(context.Background(), "/api/thing")
	if err == nil {
		t.Fatal("expected error when every key is throttled")
	}
	// 1 initial + 1 post-rotation + 3 backed-off retries.
	if transport.calls != 5 {
		t.Errorf("expected 5 attempts, got %d", transport.calls)
	}
	if len(*delays) != 3 {
		t.Errorf("expected 3 backoff sleeps, got %v", *delays)
	}
}

func TestClientPropagatesServerErrors(t *testing.T) {
	c, transport, _ := stubbedClient(t, stubResult{status: http.StatusBadGateway, body: "bad gateway"})

	_, err := c.Get(context.Background(), "/api/thing")
	if err == nil {
		t.Fatal("expected error for 502")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("unexpected error: %v", err)
	}
	if transport.calls != 1 {
		t.Errorf("server errors must not be retried, got %d attempts", transport.calls)
	}
}

func TestClientReturnsClientErrorBodies(t *testing.T) {
	c, _, _ := stubbedClient(t, stubResult{status: http.StatusNotFound, body: `{"error":"not found"}`})

	body, err := c.Get(context.Background(), "/api/thing")
	if err != nil {
		t.Fatalf("statuses below 500 are the caller's problem, got %v", err)
	}
	if string(body) != `{"error":"not found"}` {
		t.Errorf("unexpected body %q", body)
	}
}

func TestClientDetectsHTMLResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<!DOCTYPE html><html><body>Sign in</body></html>"))
	}))
	defer server.Close()

	c := New(server.URL, []string{"key-a"}, testLogger())
	c.sleep = recordedSleep(&[]time.Duration{})

	_, err := c.ListContacts(context.Background(), "all", 1)
	if !errors.Is(err, ErrHTMLResponse) {
		t.Errorf("expected ErrHTMLResponse, got %v", err)
	}
}

func TestIsHTML(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{"<!DOCTYPE html>", true},
		{"  \n<html lang=\"en\">", true},
		{"<HTML>", true},
		{`{"contacts":[]}`, false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isHTML([]byte(tt.body)); got != tt.want {
			t.Errorf("isHTML(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}
