// Package reminder sends the day's event reminders over the configured
// channels.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/praneethkvs/Memento/internal/display"
	"github.com/praneethkvs/Memento/internal/model"
)

// ErrNoRecipient is returned by a Notifier that has nowhere to deliver for
// the notice's user, e.g. no linked chat. It counts as skipped, not failed.
var ErrNoRecipient = errors.New("no recipient for channel")

// Notice is one reminder for one occurrence of an event.
type Notice struct {
	UserID     int64
	Event      model.Event
	Occurrence time.Time
	// LeadDays is the number of days until Occurrence; 0 means today.
	LeadDays int
	Summary  display.Summary
}

// Subject is a short title for the notice.
func (n Notice) Subject() string {
	if n.LeadDays == 0 {
		return "Today: " + n.Summary.Text
	}
	return "Reminder: " + n.Summary.Text
}

// Body is the plain text message sent to every channel.
func (n Notice) Body() string {
	body := fmt.Sprintf("%s (%s).", n.Summary.Text, n.Summary.FormattedDate)
	if n.Event.Notes != "" {
		body += "\n\nNotes: " + n.Event.Notes
	}
	return body
}

// Notifier delivers notices over one channel.
type Notifier interface {
	Channel() string
	Notify(ctx context.Context, n Notice) error
}
