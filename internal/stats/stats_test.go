package stats

import (
	"testing"
	"time"

	"github.com/praneethkvs/Memento/internal/model"
)

var today = time.Date(2024, time.June, 10, 18, 45, 0, 0, time.UTC)

func ev(name string, typ model.EventType, monthDay string) model.Event {
	return model.Event{
		PersonName: name,
		EventType:  typ,
		EventDate:  "2024-" + monthDay,
		MonthDay:   monthDay,
		Relation:   model.RelationFriend,
	}
}

func TestComputeCounts(t *testing.T) {
	events := []model.Event{
		ev("Today", model.EventBirthday, "06-10"),
		ev("Six", model.EventBirthday, "06-16"),
		ev("Seven", model.EventAnniversary, "06-17"),
		ev("Twenty", model.EventOther, "06-30"),
		ev("MonthEdge", model.EventBirthday, "07-10"),
		ev("Yesterday", model.EventAnniversary, "06-09"),
	}

	s, err := Compute(events, today)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if s.TotalEvents != 6 {
		t.Errorf("TotalEvents = %d, want 6", s.TotalEvents)
	}
	if s.BirthdayCount != 3 || s.AnniversaryCount != 2 || s.OtherCount != 1 {
		t.Errorf("type counts = %d/%d/%d, want 3/2/1", s.BirthdayCount, s.AnniversaryCount, s.OtherCount)
	}
	// Today and six days out are inside [today, today+7d); seven days out is not.
	if s.UpcomingThisWeek != 2 {
		t.Errorf("UpcomingThisWeek = %d, want 2", s.UpcomingThisWeek)
	}
	// 07-10 is exactly one month out and excluded by the half-open window.
	if s.UpcomingThisMonth != 4 {
		t.Errorf("UpcomingThisMonth = %d, want 4", s.UpcomingThisMonth)
	}
}

func TestComputeInvalidMonthDay(t *testing.T) {
	events := []model.Event{ev("Bad", model.EventBirthday, "02-30")}
	if _, err := Compute(events, today); !model.IsValidation(err) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}

func TestComputeEmpty(t *testing.T) {
	s, err := Compute(nil, today)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if s != (Stats{}) {
		t.Errorf("got %+v, want zero stats", s)
	}
}

func TestAddMonth(t *testing.T) {
	tests := []struct {
		in, want time.Time
	}{
		{time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := AddMonth(tt.in); !got.Equal(tt.want) {
			t.Errorf("AddMonth(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUpcoming(t *testing.T) {
	events := []model.Event{
		ev("Later", model.EventBirthday, "12-25"),
		ev("Soon", model.EventBirthday, "06-12"),
		ev("Now", model.EventAnniversary, "06-10"),
		ev("Passed", model.EventOther, "06-09"),
	}

	items, err := Upcoming(events, today, 3)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	want := []string{"Now", "Soon", "Later"}
	for i, name := range want {
		if items[i].PersonName != name {
			t.Errorf("items[%d] = %q, want %q", i, items[i].PersonName, name)
		}
	}
	if items[0].Summary.DaysUntil != 0 {
		t.Errorf("first item DaysUntil = %d, want 0", items[0].Summary.DaysUntil)
	}

	all, err := Upcoming(events, today, 0)
	if err != nil {
		t.Fatalf("upcoming all: %v", err)
	}
	if len(all) != 4 || all[3].PersonName != "Passed" {
		t.Errorf("unlimited upcoming should list all, last = Passed")
	}
}

func TestMonth(t *testing.T) {
	events := []model.Event{
		ev("A", model.EventBirthday, "02-10"),
		ev("B", model.EventBirthday, "02-29"),
		ev("C", model.EventAnniversary, "02-10"),
		ev("D", model.EventOther, "03-01"),
	}

	days, err := Month(events, 2023, time.February)
	if err != nil {
		t.Fatalf("month: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("got %d days, want 2", len(days))
	}
	if days[0].Date != "2023-02-10" || len(days[0].Events) != 2 {
		t.Errorf("days[0] = %s with %d events, want 2023-02-10 with 2", days[0].Date, len(days[0].Events))
	}
	if days[1].Date != "2023-02-28" {
		t.Errorf("leap-day event in 2023 shows on %s, want 2023-02-28", days[1].Date)
	}

	leap, err := Month(events, 2024, time.February)
	if err != nil {
		t.Fatalf("month: %v", err)
	}
	if leap[1].Date != "2024-02-29" {
		t.Errorf("leap-day event in 2024 shows on %s, want 2024-02-29", leap[1].Date)
	}
}
