package display

import (
	"fmt"
	"time"

	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/recurrence"
)

type Urgency string

const (
	UrgencyToday     Urgency = "today"
	UrgencyThisWeek  Urgency = "this-week"
	UrgencyThisMonth Urgency = "this-month"
	UrgencyNormal    Urgency = "normal"
)

// Classify maps days until the next occurrence to exactly one tier.
func Classify(daysUntil int) Urgency {
	switch {
	case daysUntil <= 0:
		return UrgencyToday
	case daysUntil <= 7:
		return UrgencyThisWeek
	case daysUntil <= 30:
		return UrgencyThisMonth
	default:
		return UrgencyNormal
	}
}

// OrdinalSuffix returns "st", "nd", "rd" or "th" for n.
func OrdinalSuffix(n int) string {
	j, k := n%10, n%100
	switch {
	case j == 1 && k != 11:
		return "st"
	case j == 2 && k != 12:
		return "nd"
	case j == 3 && k != 13:
		return "rd"
	}
	return "th"
}

// Ordinal formats n with its English suffix, e.g. 21 -> "21st".
func Ordinal(n int) string {
	return fmt.Sprintf("%d%s", n, OrdinalSuffix(n))
}

// Summary is everything the UI shows for one event on a given day.
type Summary struct {
	NextOccurrence  string  `json:"next_occurrence"`
	FormattedDate   string  `json:"formatted_date"`
	DaysUntil       int     `json:"days_until"`
	Age             *int    `json:"age"`
	Urgency         Urgency `json:"urgency"`
	Text            string  `json:"text"`
	Countdown       string  `json:"countdown"`
	RemindersActive bool    `json:"reminders_active"`
	ReminderCount   int     `json:"reminder_count"`
}

// Derive computes the Summary of e as of today.
func Derive(e model.Event, today time.Time) (Summary, error) {
	if _, err := model.ParseEventType(string(e.EventType)); err != nil {
		return Summary{}, err
	}
	md, err := recurrence.ParseMonthDay(e.MonthDay)
	if err != nil {
		return Summary{}, err
	}

	next := recurrence.NextOccurrence(md, today)
	days := recurrence.DaysUntil(md, today)

	var age *int
	if e.HasYear {
		eventDate, err := time.Parse(model.DateLayout, e.EventDate)
		if err != nil {
			return Summary{}, model.Invalid("event_date", e.EventDate, model.ErrInvalidDateFormat)
		}
		if n, ok := recurrence.CalculateAge(eventDate, true, today); ok {
			age = &n
		}
	}

	return Summary{
		NextOccurrence:  next.Format(model.DateLayout),
		FormattedDate:   next.Format("January 2, 2006"),
		DaysUntil:       days,
		Age:             age,
		Urgency:         Classify(days),
		Text:            Text(e.PersonName, e.EventType, age, days),
		Countdown:       Countdown(days),
		RemindersActive: recurrence.ShouldShowReminder(md, e.Reminders, today),
		ReminderCount:   len(e.Reminders),
	}, nil
}

// Text composes the headline for an event.
func Text(name string, t model.EventType, age *int, daysUntil int) string {
	var s string
	switch t {
	case model.EventBirthday:
		s = name + "'s birthday"
	case model.EventAnniversary:
		if age != nil {
			s = fmt.Sprintf("%s's %s anniversary", name, Ordinal(*age))
		} else {
			s = name + "'s anniversary"
		}
	default:
		s = name + "'s event"
	}

	if daysUntil == 0 {
		s = "🎉 " + s + " today!"
	} else {
		s = fmt.Sprintf("%s in %d %s", s, daysUntil, plural(daysUntil, "day"))
	}

	if age == nil {
		return s
	}
	switch t {
	case model.EventBirthday:
		s = fmt.Sprintf("%s (turning %d)", s, *age)
	case model.EventAnniversary:
		// count is already in the headline
	default:
		s = fmt.Sprintf("%s (%s year)", s, Ordinal(*age))
	}
	return s
}

// Countdown is the short "N days away" label.
func Countdown(daysUntil int) string {
	if daysUntil == 0 {
		return "Today!"
	}
	return fmt.Sprintf("%d %s away", daysUntil, plural(daysUntil, "day"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
