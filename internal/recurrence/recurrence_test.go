package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/praneethkvs/Memento/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustMD(t *testing.T, s string) MonthDay {
	t.Helper()
	md, err := ParseMonthDay(s)
	if err != nil {
		t.Fatalf("ParseMonthDay(%q): %v", s, err)
	}
	return md
}

func TestParseMonthDay(t *testing.T) {
	md, err := ParseMonthDay("06-10")
	if err != nil {
		t.Fatalf("ParseMonthDay error: %v", err)
	}
	if md.Month != time.June || md.Day != 10 {
		t.Errorf("got %v %d, want June 10", md.Month, md.Day)
	}
	if md.String() != "06-10" {
		t.Errorf("String() = %q, want %q", md.String(), "06-10")
	}

	if _, err := ParseMonthDay("02-29"); err != nil {
		t.Errorf("02-29 should be accepted: %v", err)
	}
}

func TestParseMonthDayErrors(t *testing.T) {
	inputs := []string{
		"",
		"6-10x",
		"13-01",
		"00-10",
		"04-31",
		"02-30",
		"06-00",
		"2024-06-10",
		"06/10",
		"ab-cd",
		"-1-10",
	}

	for _, input := range inputs {
		_, err := ParseMonthDay(input)
		if err == nil {
			t.Errorf("ParseMonthDay(%q) should error", input)
			continue
		}
		if !errors.Is(err, model.ErrInvalidMonthDay) {
			t.Errorf("ParseMonthDay(%q) error = %v, want ErrInvalidMonthDay", input, err)
		}
		if !model.IsValidation(err) {
			t.Errorf("ParseMonthDay(%q) error should be a ValidationError", input)
		}
	}
}

func TestNextOccurrenceScenarios(t *testing.T) {
	today := date(2024, time.June, 10)

	tests := []struct {
		monthDay string
		wantNext time.Time
		wantDays int
	}{
		{"06-10", date(2024, time.June, 10), 0},
		{"06-09", date(2025, time.June, 9), 364},
		{"12-25", date(2024, time.December, 25), 198},
		{"06-11", date(2024, time.June, 11), 1},
		{"01-01", date(2025, time.January, 1), 205},
	}

	for _, tt := range tests {
		md := mustMD(t, tt.monthDay)
		got := NextOccurrence(md, today)
		if !got.Equal(tt.wantNext) {
			t.Errorf("NextOccurrence(%s) = %v, want %v", tt.monthDay, got, tt.wantNext)
		}
		if days := DaysUntil(md, today); days != tt.wantDays {
			t.Errorf("DaysUntil(%s) = %d, want %d", tt.monthDay, days, tt.wantDays)
		}
	}
}

func TestNextOccurrenceIgnoresTimeOfDay(t *testing.T) {
	md := mustMD(t, "06-10")

	late := time.Date(2024, time.June, 10, 23, 59, 59, 0, time.UTC)
	if got := NextOccurrence(md, late); !got.Equal(date(2024, time.June, 10)) {
		t.Errorf("late in the day: NextOccurrence = %v, want same day", got)
	}
	if days := DaysUntil(md, late); days != 0 {
		t.Errorf("late in the day: DaysUntil = %d, want 0", days)
	}

	early := time.Date(2024, time.June, 9, 0, 0, 1, 0, time.UTC)
	if days := DaysUntil(md, early); days != 1 {
		t.Errorf("DaysUntil from early morning = %d, want 1", days)
	}
}

func TestNextOccurrenceKeepsLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	today := time.Date(2024, time.March, 9, 22, 0, 0, 0, loc)
	got := NextOccurrence(mustMD(t, "03-10"), today)
	if got.Location() != loc {
		t.Errorf("location = %v, want %v", got.Location(), loc)
	}
	if got.Day() != 10 || got.Hour() != 0 {
		t.Errorf("got %v, want March 10 at midnight", got)
	}
}

func TestDaysUntilAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz data unavailable: %v", err)
	}
	// DST starts on 2024-03-10 in New York; that day has 23 hours.
	today := time.Date(2024, time.March, 9, 12, 0, 0, 0, loc)
	if got := DaysUntil(mustMD(t, "03-12"), today); got != 3 {
		t.Errorf("DaysUntil across DST = %d, want 3", got)
	}
}

func TestLeapDay(t *testing.T) {
	md := mustMD(t, "02-29")

	tests := []struct {
		today    time.Time
		wantNext time.Time
	}{
		{date(2024, time.February, 1), date(2024, time.February, 29)},
		{date(2024, time.February, 29), date(2024, time.February, 29)},
		{date(2024, time.March, 1), date(2025, time.February, 28)},
		{date(2025, time.February, 28), date(2025, time.February, 28)},
		{date(2027, time.March, 1), date(2028, time.February, 29)},
	}

	for _, tt := range tests {
		got := NextOccurrence(md, tt.today)
		if !got.Equal(tt.wantNext) {
			t.Errorf("NextOccurrence(02-29, %s) = %v, want %v", tt.today.Format("2006-01-02"), got, tt.wantNext)
		}
	}
}

func TestDaysUntilRange(t *testing.T) {
	todays := []time.Time{
		date(2023, time.January, 1),
		date(2023, time.March, 1),
		date(2023, time.December, 31),
		date(2024, time.February, 29),
		date(2024, time.March, 1),
		date(2024, time.December, 31),
	}

	for _, today := range todays {
		for m := time.January; m <= time.December; m++ {
			for d := 1; d <= daysInMonth(2000, m); d++ {
				md := MonthDay{Month: m, Day: d}
				next := NextOccurrence(md, today)
				if next.Before(today) {
					t.Fatalf("NextOccurrence(%s, %s) = %v is before today", md, today.Format("2006-01-02"), next)
				}
				days := DaysUntil(md, today)
				if days < 0 || days > 366 {
					t.Fatalf("DaysUntil(%s, %s) = %d, out of [0, 366]", md, today.Format("2006-01-02"), days)
				}
				if again := NextOccurrence(md, today); !again.Equal(next) {
					t.Fatalf("NextOccurrence not deterministic for %s", md)
				}
			}
		}
	}
}

func TestCalculateAge(t *testing.T) {
	today := date(2024, time.June, 10)

	age, ok := CalculateAge(date(1990, time.June, 10), true, today)
	if !ok || age != 34 {
		t.Errorf("CalculateAge(1990-06-10) = %d, %v, want 34, true", age, ok)
	}

	// Birthday already passed this year: counts toward next year's occurrence.
	age, ok = CalculateAge(date(1990, time.June, 9), true, today)
	if !ok || age != 35 {
		t.Errorf("CalculateAge(1990-06-09) = %d, %v, want 35, true", age, ok)
	}

	age, ok = CalculateAge(date(1990, time.December, 25), true, today)
	if !ok || age != 34 {
		t.Errorf("CalculateAge(1990-12-25) = %d, %v, want 34, true", age, ok)
	}

	if _, ok := CalculateAge(date(2024, time.June, 10), false, today); ok {
		t.Error("CalculateAge without a year should be absent")
	}
}

func TestCalculateAgeLeapDay(t *testing.T) {
	age, ok := CalculateAge(date(2000, time.February, 29), true, date(2025, time.February, 28))
	if !ok || age != 25 {
		t.Errorf("CalculateAge(2000-02-29) on 2025-02-28 = %d, want 25", age)
	}
}

func TestShouldShowReminder(t *testing.T) {
	today := date(2024, time.June, 10)
	leads := []int{7, 3, 1}

	if !ShouldShowReminder(mustMD(t, "06-17"), leads, today) {
		t.Error("7 days out should show reminder")
	}
	if ShouldShowReminder(mustMD(t, "06-16"), leads, today) {
		t.Error("6 days out should not show reminder")
	}
	if !ShouldShowReminder(mustMD(t, "06-11"), leads, today) {
		t.Error("1 day out should show reminder")
	}
}

func TestShouldShowReminderOnTheDay(t *testing.T) {
	today := date(2024, time.June, 10)
	if !ShouldShowReminder(mustMD(t, "06-10"), nil, today) {
		t.Error("reminder should show on the day even with no lead times")
	}
	if !ShouldShowReminder(mustMD(t, "06-10"), []int{30}, today) {
		t.Error("reminder should show on the day regardless of lead times")
	}
}

func TestIsLeapYear(t *testing.T) {
	tests := map[int]bool{1900: false, 2000: true, 2023: false, 2024: true, 2100: false}
	for year, want := range tests {
		if got := IsLeapYear(year); got != want {
			t.Errorf("IsLeapYear(%d) = %v, want %v", year, got, want)
		}
	}
}
