package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/praneethkvs/Memento/internal/display"
	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/reminder"
)

func testNotice() reminder.Notice {
	return reminder.Notice{
		UserID:   1,
		Event:    model.Event{ID: 42, PersonName: "Alice", EventType: model.EventBirthday, Notes: "likes <b>tulips</b>"},
		LeadDays: 7,
		Summary: display.Summary{
			Text:          "Alice's birthday in 7 days (turning 34)",
			FormattedDate: "March 15, 2026",
		},
	}
}

func newTestClient(t *testing.T, status int, received *postmarkEmail, gotToken *string) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotToken != nil {
			*gotToken = r.Header.Get("X-Postmark-Server-Token")
		}
		if received != nil {
			if err := json.NewDecoder(r.Body).Decode(received); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.WriteHeader(status)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	t.Cleanup(server.Close)

	// the client hardcodes the API URL, so redirect its transport to the test server
	transport := &rewriteTransport{base: http.DefaultTransport, target: server.URL}
	return NewClient("test-token", "noreply@example.com", "https://memento.test/",
		WithHTTPClient(&http.Client{Transport: transport}))
}

func TestSendReminder(t *testing.T) {
	var received postmarkEmail
	var gotToken string
	client := newTestClient(t, http.StatusOK, &received, &gotToken)

	if err := client.SendReminder(context.Background(), "alice@example.com", testNotice()); err != nil {
		t.Fatalf("send reminder: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "alice@example.com" {
		t.Errorf("To = %q", received.To)
	}
	if received.From != "noreply@example.com" {
		t.Errorf("From = %q", received.From)
	}
	if received.Subject != "Reminder: Alice's birthday in 7 days (turning 34)" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.TextBody, "https://memento.test/events/42") {
		t.Errorf("TextBody missing link: %q", received.TextBody)
	}
	if !strings.Contains(received.HtmlBody, "likes &lt;b&gt;tulips&lt;/b&gt;") {
		t.Errorf("HtmlBody not escaped: %q", received.HtmlBody)
	}
}

func TestSendReminderNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com", "https://memento.test")
	if client.Configured() {
		t.Error("expected Configured() = false")
	}
	if err := client.SendReminder(context.Background(), "alice@example.com", testNotice()); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestSendReminderAPIError(t *testing.T) {
	client := newTestClient(t, http.StatusUnprocessableEntity, nil, nil)
	if err := client.SendReminder(context.Background(), "alice@example.com", testNotice()); err == nil {
		t.Fatal("expected error for 422 response")
	}
}

type fakeUsers map[int64]*model.User

func (f fakeUsers) GetByID(id int64) (*model.User, error) { return f[id], nil }

func TestNotifier(t *testing.T) {
	var received postmarkEmail
	client := newTestClient(t, http.StatusOK, &received, nil)
	n := NewNotifier(client, fakeUsers{1: {ID: 1, Email: "alice@example.com"}})

	if n.Channel() != "email" {
		t.Errorf("channel = %q", n.Channel())
	}
	if err := n.Notify(context.Background(), testNotice()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if received.To != "alice@example.com" {
		t.Errorf("To = %q", received.To)
	}

	missing := testNotice()
	missing.UserID = 99
	if err := n.Notify(context.Background(), missing); !errors.Is(err, reminder.ErrNoRecipient) {
		t.Errorf("err = %v, want ErrNoRecipient", err)
	}
}

// rewriteTransport redirects all requests to a test server URL.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.target[len("http://"):]
	return t.base.RoundTrip(req)
}
