package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the stored form of EventDate.
const DateLayout = "2006-01-02"

type EventType string

const (
	EventBirthday    EventType = "birthday"
	EventAnniversary EventType = "anniversary"
	EventOther       EventType = "other"
)

var EventTypes = []EventType{EventBirthday, EventAnniversary, EventOther}

func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !slices.Contains(EventTypes, t) {
		return "", Invalid("event_type", s, ErrUnsupportedValue)
	}
	return t, nil
}

type Relation string

const (
	RelationFamily    Relation = "family"
	RelationFriend    Relation = "friend"
	RelationColleague Relation = "colleague"
	RelationPartner   Relation = "partner"
	RelationOther     Relation = "other"
)

var Relations = []Relation{RelationFamily, RelationFriend, RelationColleague, RelationPartner, RelationOther}

func ParseRelation(s string) (Relation, error) {
	r := Relation(s)
	if !slices.Contains(Relations, r) {
		return "", Invalid("relation", s, ErrUnsupportedValue)
	}
	return r, nil
}

// LeadTimes is the set of days-before-occurrence at which a reminder fires.
type LeadTimes []int

// DefaultLeadTimes is applied when an event is created without reminders.
var DefaultLeadTimes = LeadTimes{30, 15, 7, 3, 1}

// Normalize returns the distinct lead times in descending order. Negative
// values are rejected.
func (l LeadTimes) Normalize() (LeadTimes, error) {
	out := make(LeadTimes, 0, len(l))
	for _, d := range l {
		if d < 0 {
			return nil, Invalid("reminders", strconv.Itoa(d), ErrInvalidLeadTime)
		}
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	slices.Sort(out)
	slices.Reverse(out)
	return out, nil
}

// UnmarshalJSON accepts numbers as well as numeric strings, e.g. ["7","3","1"].
func (l *LeadTimes) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Invalid("reminders", string(data), ErrInvalidLeadTime)
	}
	out := make(LeadTimes, 0, len(raw))
	for _, r := range raw {
		var n int
		if err := json.Unmarshal(r, &n); err == nil {
			out = append(out, n)
			continue
		}
		var s string
		if err := json.Unmarshal(r, &s); err != nil {
			return Invalid("reminders", string(r), ErrInvalidLeadTime)
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return Invalid("reminders", s, ErrInvalidLeadTime)
		}
		out = append(out, n)
	}
	*l = out
	return nil
}

// String renders the comma separated storage form, e.g. "30,15,7".
func (l LeadTimes) String() string {
	parts := make([]string, len(l))
	for i, d := range l {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// ParseLeadTimes reads the storage form written by String.
func ParseLeadTimes(s string) (LeadTimes, error) {
	if strings.TrimSpace(s) == "" {
		return LeadTimes{}, nil
	}
	parts := strings.Split(s, ",")
	out := make(LeadTimes, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parse lead time %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// Event is a yearly-recurring date belonging to one user.
type Event struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	PersonName string    `json:"person_name"`
	EventType  EventType `json:"event_type"`
	EventDate  string    `json:"event_date"`
	MonthDay   string    `json:"month_day"`
	EventYear  *int      `json:"event_year"`
	HasYear    bool      `json:"has_year"`
	Relation   Relation  `json:"relation"`
	Notes      string    `json:"notes"`
	Reminders  LeadTimes `json:"reminders"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Input returns the writable fields of e.
func (e Event) Input() EventInput {
	return EventInput{
		PersonName: e.PersonName,
		EventType:  e.EventType,
		EventDate:  e.EventDate,
		MonthDay:   e.MonthDay,
		EventYear:  e.EventYear,
		HasYear:    e.HasYear,
		Relation:   e.Relation,
		Notes:      e.Notes,
		Reminders:  slices.Clone(e.Reminders),
	}
}

// EventInput is the canonical, already normalized form written by
// repositories.
type EventInput struct {
	PersonName string
	EventType  EventType
	EventDate  string
	MonthDay   string
	EventYear  *int
	HasYear    bool
	Relation   Relation
	Notes      string
	Reminders  LeadTimes
}

type Tone string

const (
	ToneCheerful  Tone = "cheerful"
	ToneHeartfelt Tone = "heartfelt"
	ToneFunny     Tone = "funny"
	ToneFormal    Tone = "formal"
)

var Tones = []Tone{ToneCheerful, ToneHeartfelt, ToneFunny, ToneFormal}

func ParseTone(s string) (Tone, error) {
	t := Tone(s)
	if !slices.Contains(Tones, t) {
		return "", Invalid("tone", s, ErrUnsupportedValue)
	}
	return t, nil
}

type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

var Lengths = []Length{LengthShort, LengthMedium, LengthLong}

func ParseLength(s string) (Length, error) {
	l := Length(s)
	if !slices.Contains(Lengths, l) {
		return "", Invalid("length", s, ErrUnsupportedValue)
	}
	return l, nil
}

// GeneratedMessage is the current greeting for an event. Regeneration
// overwrites it.
type GeneratedMessage struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	UserID    int64     `json:"user_id"`
	Tone      Tone      `json:"tone"`
	Length    Length    `json:"length"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
