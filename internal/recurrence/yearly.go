package recurrence

import (
	"slices"
	"time"
)

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// NextOccurrence returns the first date on or after today (compared by
// calendar day) that falls on md. The result is midnight in today's
// location.
func NextOccurrence(md MonthDay, today time.Time) time.Time {
	today = StartOfDay(today)
	candidate := md.In(today.Year(), today.Location())
	if candidate.Before(today) {
		return md.In(today.Year()+1, today.Location())
	}
	return candidate
}

// DaysUntil is the number of calendar days from today to the next
// occurrence of md; 0 means today. It is always within [0, 366].
func DaysUntil(md MonthDay, today time.Time) int {
	return DaysBetween(today, NextOccurrence(md, today))
}

// DaysBetween counts calendar days from a to b, ignoring time of day and
// daylight saving shifts.
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua) / (24 * time.Hour))
}

// CalculateAge returns the age or anniversary count reached on the next
// occurrence of eventDate. The second result is false when the year is not
// known.
func CalculateAge(eventDate time.Time, hasYear bool, today time.Time) (int, bool) {
	if !hasYear {
		return 0, false
	}
	next := NextOccurrence(MonthDayOf(eventDate), today)
	return next.Year() - eventDate.Year(), true
}

// ShouldShowReminder reports whether a reminder is active today: the
// occurrence is today, or one of leadDays matches the days remaining.
func ShouldShowReminder(md MonthDay, leadDays []int, today time.Time) bool {
	days := DaysUntil(md, today)
	return days == 0 || slices.Contains(leadDays, days)
}
