// Package ics exports events as an iCalendar feed that calendar apps can
// subscribe to.
package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/recurrence"
)

const productID = "-//Memento//Reminders//EN"

// UID is the stable identifier of an event in the feed.
func UID(id int64) string {
	return fmt.Sprintf("event-%d@memento", id)
}

// Rule returns the yearly recurrence of md. A Feb 29 date recurs on the last
// day of February.
func Rule(md recurrence.MonthDay) rrule.ROption {
	day := md.Day
	if md.IsLeapDay() {
		day = -1
	}
	return rrule.ROption{
		Freq:       rrule.YEARLY,
		Bymonth:    []int{int(md.Month)},
		Bymonthday: []int{day},
	}
}

// Feed renders events as a VCALENDAR document. now stamps the entries and
// anchors events without a known year.
func Feed(events []model.Event, now time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("Memento")

	for _, e := range events {
		if err := addEvent(cal, e, now); err != nil {
			return "", fmt.Errorf("event %d: %w", e.ID, err)
		}
	}
	return cal.Serialize(), nil
}

func addEvent(cal *ical.Calendar, e model.Event, now time.Time) error {
	md, err := recurrence.ParseMonthDay(e.MonthDay)
	if err != nil {
		return err
	}
	start, err := firstOccurrence(e, md, now)
	if err != nil {
		return err
	}

	ev := cal.AddEvent(UID(e.ID))
	ev.SetDtStampTime(now.UTC())
	ev.SetAllDayStartAt(start)
	ev.SetAllDayEndAt(start.AddDate(0, 0, 1))
	ev.SetSummary(summary(e))
	if desc := description(e); desc != "" {
		ev.SetDescription(desc)
	}
	ev.SetProperty(ical.ComponentPropertyCategories, string(e.EventType))
	rule := Rule(md)
	ev.AddRrule(rule.RRuleString())

	for _, lead := range e.Reminders {
		if lead <= 0 {
			continue
		}
		alarm := ev.AddAlarm()
		alarm.SetAction(ical.ActionDisplay)
		alarm.SetTrigger(fmt.Sprintf("-P%dD", lead))
		alarm.SetProperty(ical.ComponentPropertyDescription, summary(e))
	}
	return nil
}

// firstOccurrence is the event date itself when the year is known, else the
// next occurrence after now.
func firstOccurrence(e model.Event, md recurrence.MonthDay, now time.Time) (time.Time, error) {
	if e.HasYear {
		d, err := time.ParseInLocation(model.DateLayout, e.EventDate, time.UTC)
		if err != nil {
			return time.Time{}, model.Invalid("event_date", e.EventDate, model.ErrInvalidDateFormat)
		}
		return d, nil
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return recurrence.NextOccurrence(md, today), nil
}

func summary(e model.Event) string {
	switch e.EventType {
	case model.EventBirthday:
		return e.PersonName + "'s birthday"
	case model.EventAnniversary:
		return e.PersonName + "'s anniversary"
	}
	return e.PersonName + "'s event"
}

func description(e model.Event) string {
	var parts []string
	if e.Relation != "" {
		parts = append(parts, "Relation: "+string(e.Relation))
	}
	if e.HasYear && e.EventYear != nil {
		parts = append(parts, fmt.Sprintf("Since %d", *e.EventYear))
	}
	if e.Notes != "" {
		parts = append(parts, e.Notes)
	}
	return strings.Join(parts, "\n")
}
