package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/praneethkvs/Memento/internal/model"
)

// MonthDay is the yearly-recurring part of a date.
type MonthDay struct {
	Month time.Month
	Day   int
}

// ParseMonthDay parses "MM-DD". Both components must be integers, the month
// in 1-12 and the day valid for that month in a leap year, so "02-29" is
// accepted and "04-31" is not.
func ParseMonthDay(s string) (MonthDay, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 || !isDigits(parts[0]) || !isDigits(parts[1]) {
		return MonthDay{}, model.Invalid("month_day", s, model.ErrInvalidMonthDay)
	}
	m, err := strconv.Atoi(parts[0])
	if err != nil {
		return MonthDay{}, model.Invalid("month_day", s, model.ErrInvalidMonthDay)
	}
	d, err := strconv.Atoi(parts[1])
	if err != nil {
		return MonthDay{}, model.Invalid("month_day", s, model.ErrInvalidMonthDay)
	}
	if m < 1 || m > 12 || d < 1 || d > daysInMonth(2000, time.Month(m)) {
		return MonthDay{}, model.Invalid("month_day", s, model.ErrInvalidMonthDay)
	}
	return MonthDay{Month: time.Month(m), Day: d}, nil
}

// MonthDayOf returns the month-day of t.
func MonthDayOf(t time.Time) MonthDay {
	return MonthDay{Month: t.Month(), Day: t.Day()}
}

func (md MonthDay) String() string {
	return fmt.Sprintf("%02d-%02d", int(md.Month), md.Day)
}

// IsLeapDay reports whether md is February 29.
func (md MonthDay) IsLeapDay() bool {
	return md.Month == time.February && md.Day == 29
}

// In returns midnight of md in the given year and location. February 29
// falls on February 28 in years without one.
func (md MonthDay) In(year int, loc *time.Location) time.Time {
	day := md.Day
	if md.IsLeapDay() && !IsLeapYear(year) {
		day = 28
	}
	return time.Date(year, md.Month, day, 0, 0, 0, 0, loc)
}

// IsLeapYear reports whether year has a February 29.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
