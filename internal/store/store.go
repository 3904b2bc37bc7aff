package store

import (
	"context"
	"strings"

	"github.com/praneethkvs/Memento/internal/model"
)

// EventRepository persists events. Every method is scoped to one user; an
// event owned by someone else behaves as if it did not exist.
type EventRepository interface {
	CreateEvent(ctx context.Context, userID int64, in model.EventInput) (*model.Event, error)
	// GetEvent returns nil, nil when the event does not exist.
	GetEvent(ctx context.Context, userID, id int64) (*model.Event, error)
	// UpdateEvent returns nil, nil when the event does not exist.
	UpdateEvent(ctx context.Context, userID, id int64, in model.EventInput) (*model.Event, error)
	// DeleteEvent reports whether a row was removed. The event's generated
	// message goes with it.
	DeleteEvent(ctx context.Context, userID, id int64) (bool, error)
	ListEvents(ctx context.Context, userID int64, f EventFilter) ([]model.Event, error)
	// ListEventOwners returns the IDs of users that own at least one event.
	ListEventOwners(ctx context.Context) ([]int64, error)
}

// MessageRepository persists the generated greeting of an event.
type MessageRepository interface {
	// GetMessage returns nil, nil when no message was generated yet.
	GetMessage(ctx context.Context, userID, eventID int64) (*model.GeneratedMessage, error)
	// SaveMessage inserts or overwrites the message for (event, user).
	SaveMessage(ctx context.Context, userID, eventID int64, tone model.Tone, length model.Length, text string) (*model.GeneratedMessage, error)
	DeleteMessage(ctx context.Context, userID, eventID int64) error
}

// EventFilter narrows ListEvents. Empty fields and "all" match everything.
type EventFilter struct {
	Search   string
	Type     string
	Relation string
}

// TypeValue is the event type to match, or "" for any.
func (f EventFilter) TypeValue() string { return filterValue(f.Type) }

// RelationValue is the relation to match, or "" for any.
func (f EventFilter) RelationValue() string { return filterValue(f.Relation) }

// SearchTerm is the trimmed search text, or "" for none.
func (f EventFilter) SearchTerm() string { return strings.TrimSpace(f.Search) }

// LikePattern wraps SearchTerm in % wildcards for SQL LIKE/ILIKE with
// backslash escaping.
func (f EventFilter) LikePattern() string {
	return "%" + likeEscaper.Replace(f.SearchTerm()) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Match applies the filter to a single event in memory.
func (f EventFilter) Match(e model.Event) bool {
	if t := f.TypeValue(); t != "" && string(e.EventType) != t {
		return false
	}
	if r := f.RelationValue(); r != "" && string(e.Relation) != r {
		return false
	}
	if q := strings.ToLower(f.SearchTerm()); q != "" {
		if !strings.Contains(strings.ToLower(e.PersonName), q) && !strings.Contains(strings.ToLower(e.Notes), q) {
			return false
		}
	}
	return true
}

func filterValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "all" {
		return ""
	}
	return s
}
