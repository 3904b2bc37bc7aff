// Package stats aggregates recurrence facts across a user's events.
package stats

import (
	"cmp"
	"slices"
	"time"

	"github.com/praneethkvs/Memento/internal/display"
	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/recurrence"
)

type Stats struct {
	TotalEvents       int `json:"total_events"`
	BirthdayCount     int `json:"birthday_count"`
	AnniversaryCount  int `json:"anniversary_count"`
	OtherCount        int `json:"other_count"`
	UpcomingThisWeek  int `json:"upcoming_this_week"`
	UpcomingThisMonth int `json:"upcoming_this_month"`
}

// Compute counts events by type and by whether their next occurrence falls
// in [today, today+7d) or [today, today+1 month).
func Compute(events []model.Event, today time.Time) (Stats, error) {
	start := recurrence.StartOfDay(today)
	weekEnd := start.AddDate(0, 0, 7)
	monthEnd := AddMonth(start)

	var s Stats
	for _, e := range events {
		md, err := recurrence.ParseMonthDay(e.MonthDay)
		if err != nil {
			return Stats{}, err
		}

		s.TotalEvents++
		switch e.EventType {
		case model.EventBirthday:
			s.BirthdayCount++
		case model.EventAnniversary:
			s.AnniversaryCount++
		default:
			s.OtherCount++
		}

		next := recurrence.NextOccurrence(md, start)
		if next.Before(weekEnd) {
			s.UpcomingThisWeek++
		}
		if next.Before(monthEnd) {
			s.UpcomingThisMonth++
		}
	}
	return s, nil
}

// AddMonth moves t one calendar month ahead, clamping to the last day of
// the target month (January 31 becomes February 28 or 29).
func AddMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	firstOfNext := time.Date(y, m+1, 1, 0, 0, 0, 0, t.Location())
	last := firstOfNext.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Item pairs an event with its derived summary.
type Item struct {
	model.Event
	Summary display.Summary `json:"summary"`
}

// Summarize derives a summary for each event, keeping the input order.
func Summarize(events []model.Event, today time.Time) ([]Item, error) {
	items := make([]Item, 0, len(events))
	for _, e := range events {
		s, err := display.Derive(e, today)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Event: e, Summary: s})
	}
	return items, nil
}

// SortByNext orders items by days until the next occurrence, then by name.
func SortByNext(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		if c := cmp.Compare(a.Summary.DaysUntil, b.Summary.DaysUntil); c != 0 {
			return c
		}
		return cmp.Compare(a.PersonName, b.PersonName)
	})
}

// Upcoming returns at most limit events ordered by next occurrence. A limit
// of zero or less returns all of them.
func Upcoming(events []model.Event, today time.Time, limit int) ([]Item, error) {
	items, err := Summarize(events, today)
	if err != nil {
		return nil, err
	}
	SortByNext(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Day lists the events falling on one day of a month view.
type Day struct {
	Date   string        `json:"date"`
	Events []model.Event `json:"events"`
}

// Month returns the days of the given month on which at least one event
// occurs, in date order. Feb 29 events show on Feb 28 in non-leap years.
func Month(events []model.Event, year int, month time.Month) ([]Day, error) {
	byDay := make(map[int][]model.Event)
	for _, e := range events {
		md, err := recurrence.ParseMonthDay(e.MonthDay)
		if err != nil {
			return nil, err
		}
		if md.Month != month {
			continue
		}
		d := md.In(year, time.UTC).Day()
		byDay[d] = append(byDay[d], e)
	}

	days := make([]Day, 0, len(byDay))
	for d, evs := range byDay {
		days = append(days, Day{
			Date:   time.Date(year, month, d, 0, 0, 0, 0, time.UTC).Format(model.DateLayout),
			Events: evs,
		})
	}
	slices.SortFunc(days, func(a, b Day) int { return cmp.Compare(a.Date, b.Date) })
	return days, nil
}
