// Package dateinput turns user-entered dates into the stored event fields.
package dateinput

import (
	"fmt"
	"strings"
	"time"

	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/recurrence"
)

// Normalized is the canonical stored triple plus the known year, if any.
type Normalized struct {
	FullDate string
	MonthDay string
	HasYear  bool
	Year     *int
}

// Normalize accepts "YYYY-MM-DD" or "MM-DD". A full date keeps its year; a
// month-day gets a placeholder year taken from today, which is never
// reported as known. Any other shape is a validation error.
func Normalize(input string, today time.Time) (Normalized, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Normalized{}, model.Invalid("event_date", "", model.ErrRequired)
	}

	switch strings.Count(input, "-") {
	case 2:
		t, err := time.Parse(model.DateLayout, input)
		if err != nil {
			return Normalized{}, model.Invalid("event_date", input, model.ErrInvalidDateFormat)
		}
		year := t.Year()
		if year < 1 {
			return Normalized{}, model.Invalid("event_date", input, model.ErrUnsupportedValue)
		}
		return Normalized{
			FullDate: input,
			MonthDay: input[5:],
			HasYear:  true,
			Year:     &year,
		}, nil
	case 1:
		md, err := recurrence.ParseMonthDay(input)
		if err != nil {
			return Normalized{}, model.Invalid("event_date", input, model.ErrInvalidDateFormat)
		}
		return Normalized{
			FullDate: fmt.Sprintf("%04d-%s", placeholderYear(md, today), md),
			MonthDay: md.String(),
			HasYear:  false,
		}, nil
	}
	return Normalized{}, model.Invalid("event_date", input, model.ErrInvalidDateFormat)
}

// FromParts combines the two form fields the UI sends: a month-day or full
// date, and an optional separate year. A separate year turns a month-day
// into a full date; with a full date it must agree.
func FromParts(date string, year *int, today time.Time) (Normalized, error) {
	n, err := Normalize(date, today)
	if err != nil || year == nil {
		return n, err
	}
	if *year < 1 || *year > 9999 {
		return Normalized{}, model.Invalid("event_year", fmt.Sprint(*year), model.ErrUnsupportedValue)
	}
	if n.HasYear {
		if *n.Year != *year {
			return Normalized{}, model.Invalid("event_year", fmt.Sprint(*year), fmt.Errorf("does not match event_date %s", n.FullDate))
		}
		return n, nil
	}
	return Normalize(fmt.Sprintf("%04d-%s", *year, n.MonthDay), today)
}

// placeholderYear is today's year, or for February 29 the latest leap year
// not after it, so the synthesized date always exists.
func placeholderYear(md recurrence.MonthDay, today time.Time) int {
	year := today.Year()
	if md.IsLeapDay() {
		for !recurrence.IsLeapYear(year) {
			year--
		}
	}
	return year
}
