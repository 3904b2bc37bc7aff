package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"testing"

	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/stats"
	"github.com/praneethkvs/Memento/internal/store"
)

func createEvent(t *testing.T, env *testEnv, userID int64, body map[string]any) stats.Item {
	t.Helper()
	rec := serve(env.event.Create, request(t, "POST", "/api/events", userID, body))
	assertStatus(t, rec, http.StatusCreated)
	return decode[stats.Item](t, rec)
}

func birthday(name, date string) map[string]any {
	return map[string]any{
		"person_name": name,
		"event_type":  "birthday",
		"event_date":  date,
		"relation":    "friend",
	}
}

func TestCreateEventFullDate(t *testing.T) {
	env := setupEnv(t)

	item := createEvent(t, env, env.alice, birthday("Ana", "1990-06-15"))

	if item.ID == 0 || item.UserID != env.alice {
		t.Fatalf("unexpected event %+v", item.Event)
	}
	if !item.HasYear || item.MonthDay != "06-15" || item.EventDate != "1990-06-15" {
		t.Errorf("date fields = %q %q %v", item.EventDate, item.MonthDay, item.HasYear)
	}
	if !slices.Equal(item.Reminders, model.DefaultLeadTimes) {
		t.Errorf("reminders = %v, want defaults", item.Reminders)
	}
	if item.Summary.DaysUntil != 5 {
		t.Errorf("days_until = %d, want 5", item.Summary.DaysUntil)
	}
	if item.Summary.Age == nil || *item.Summary.Age != 34 {
		t.Errorf("age = %v, want 34", item.Summary.Age)
	}
	if item.Summary.Text != "Ana's birthday in 5 days (turning 34)" {
		t.Errorf("text = %q", item.Summary.Text)
	}
}

func TestCreateEventMonthDay(t *testing.T) {
	env := setupEnv(t)

	withoutYear := createEvent(t, env, env.alice, birthday("Ben", "06-10"))
	if withoutYear.HasYear || withoutYear.EventYear != nil {
		t.Errorf("expected unknown year, got %+v", withoutYear.Event)
	}
	if withoutYear.Summary.DaysUntil != 0 || withoutYear.Summary.Age != nil {
		t.Errorf("summary = %+v", withoutYear.Summary)
	}

	body := birthday("Cy", "06-15")
	body["event_year"] = 2000
	body["reminders"] = []string{"7", "1", "7"}
	withYear := createEvent(t, env, env.alice, body)
	if !withYear.HasYear || withYear.EventDate != "2000-06-15" {
		t.Errorf("event_date = %q, has_year = %v", withYear.EventDate, withYear.HasYear)
	}
	if !slices.Equal(withYear.Reminders, model.LeadTimes{7, 1}) {
		t.Errorf("reminders = %v, want [7 1]", withYear.Reminders)
	}
}

func TestCreateEventValidation(t *testing.T) {
	env := setupEnv(t)

	tests := []struct {
		name  string
		edit  func(map[string]any)
		field string
	}{
		{"missing name", func(b map[string]any) { b["person_name"] = "  " }, "person_name"},
		{"bad type", func(b map[string]any) { b["event_type"] = "wedding" }, "event_type"},
		{"bad relation", func(b map[string]any) { b["relation"] = "enemy" }, "relation"},
		{"bad date", func(b map[string]any) { b["event_date"] = "15/06/1990" }, "event_date"},
		{"bad month-day", func(b map[string]any) { b["event_date"] = "02-30" }, "event_date"},
		{"year mismatch", func(b map[string]any) { b["event_year"] = 1991 }, "event_year"},
		{"negative reminder", func(b map[string]any) { b["reminders"] = []int{7, -1} }, "reminders"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := birthday("Ana", "1990-06-15")
			tt.edit(body)
			rec := serve(env.event.Create, request(t, "POST", "/api/events", env.alice, body))
			assertStatus(t, rec, http.StatusBadRequest)
			got := decode[map[string]string](t, rec)
			if got["field"] != tt.field {
				t.Errorf("field = %q, want %q (%s)", got["field"], tt.field, got["error"])
			}
		})
	}

	rec := serve(env.event.Create, request(t, "POST", "/api/events", env.alice, "{not json"))
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestListEvents(t *testing.T) {
	env := setupEnv(t)

	createEvent(t, env, env.alice, birthday("Zoe", "1990-12-25"))
	createEvent(t, env, env.alice, birthday("Ana", "1985-06-15"))
	anniv := birthday("Mum & Dad", "1980-01-05")
	anniv["event_type"] = "anniversary"
	anniv["relation"] = "family"
	anniv["notes"] = "Ruby wedding soon"
	createEvent(t, env, env.alice, anniv)
	createEvent(t, env, env.bob, birthday("Bob's friend", "1990-06-11"))

	rec := serve(env.event.List, request(t, "GET", "/api/events", env.alice, nil))
	assertStatus(t, rec, http.StatusOK)
	items := decode[[]stats.Item](t, rec)
	if len(items) != 3 {
		t.Fatalf("got %d events, want 3", len(items))
	}
	if items[0].MonthDay != "01-05" || items[2].MonthDay != "12-25" {
		t.Errorf("default order should be by month-day, got %s..%s", items[0].MonthDay, items[2].MonthDay)
	}

	rec = serve(env.event.List, request(t, "GET", "/api/events?sort=upcoming", env.alice, nil))
	items = decode[[]stats.Item](t, rec)
	if items[0].PersonName != "Ana" || items[2].PersonName != "Mum & Dad" {
		t.Errorf("upcoming order = %s, %s, %s", items[0].PersonName, items[1].PersonName, items[2].PersonName)
	}

	rec = serve(env.event.List, request(t, "GET", "/api/events?search=RUBY&type=all", env.alice, nil))
	items = decode[[]stats.Item](t, rec)
	if len(items) != 1 || items[0].EventType != model.EventAnniversary {
		t.Errorf("search by notes returned %+v", items)
	}

	rec = serve(env.event.List, request(t, "GET", "/api/events?relation=family", env.alice, nil))
	items = decode[[]stats.Item](t, rec)
	if len(items) != 1 {
		t.Errorf("relation filter returned %d events, want 1", len(items))
	}

	rec = serve(env.event.List, request(t, "GET", "/api/events?type=wedding", env.alice, nil))
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestListEventsEmpty(t *testing.T) {
	env := setupEnv(t)
	rec := serve(env.event.List, request(t, "GET", "/api/events", env.alice, nil))
	assertStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %s, want []", rec.Body.String())
	}
}

func TestGetEventOwnership(t *testing.T) {
	env := setupEnv(t)
	item := createEvent(t, env, env.alice, birthday("Ana", "1990-06-15"))

	rec := serve(env.event.Get, withID(request(t, "GET", "/api/events/x", env.alice, nil), item.ID))
	assertStatus(t, rec, http.StatusOK)

	rec = serve(env.event.Get, withID(request(t, "GET", "/api/events/x", env.bob, nil), item.ID))
	assertStatus(t, rec, http.StatusNotFound)

	req := request(t, "GET", "/api/events/abc", env.alice, nil)
	req.SetPathValue("id", "abc")
	rec = serve(env.event.Get, req)
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestReplaceEvent(t *testing.T) {
	env := setupEnv(t)
	item := createEvent(t, env, env.alice, birthday("Ana", "1990-06-15"))

	body := birthday("Ana Maria", "07-01")
	body["reminders"] = []int{}
	rec := serve(env.event.Replace, withID(request(t, "PUT", "/api/events/x", env.alice, body), item.ID))
	assertStatus(t, rec, http.StatusOK)
	got := decode[stats.Item](t, rec)

	if got.PersonName != "Ana Maria" || got.MonthDay != "07-01" || got.HasYear {
		t.Errorf("unexpected event %+v", got.Event)
	}
	if len(got.Reminders) != 0 || got.Summary.RemindersActive {
		t.Errorf("reminders = %v, active = %v", got.Reminders, got.Summary.RemindersActive)
	}

	rec = serve(env.event.Replace, withID(request(t, "PUT", "/api/events/x", env.bob, body), item.ID))
	assertStatus(t, rec, http.StatusNotFound)
}

func TestPatchEvent(t *testing.T) {
	env := setupEnv(t)
	item := createEvent(t, env, env.alice, birthday("Ana", "06-15"))

	rec := serve(env.event.Patch, withID(request(t, "PATCH", "/api/events/x", env.alice, map[string]any{
		"notes": "likes tulips",
	}), item.ID))
	assertStatus(t, rec, http.StatusOK)
	got := decode[stats.Item](t, rec)
	if got.Notes != "likes tulips" || got.PersonName != "Ana" || got.MonthDay != "06-15" || got.HasYear {
		t.Errorf("notes patch changed other fields: %+v", got.Event)
	}
	if !slices.Equal(got.Reminders, model.DefaultLeadTimes) {
		t.Errorf("reminders = %v", got.Reminders)
	}

	rec = serve(env.event.Patch, withID(request(t, "PATCH", "/api/events/x", env.alice, map[string]any{
		"event_year": 1992,
	}), item.ID))
	assertStatus(t, rec, http.StatusOK)
	got = decode[stats.Item](t, rec)
	if got.EventDate != "1992-06-15" || !got.HasYear {
		t.Errorf("year patch gave %q has_year=%v", got.EventDate, got.HasYear)
	}

	rec = serve(env.event.Patch, withID(request(t, "PATCH", "/api/events/x", env.alice, map[string]any{
		"relation": "nemesis",
	}), item.ID))
	assertStatus(t, rec, http.StatusBadRequest)

	stored, err := env.events.GetEvent(context.Background(), env.alice, item.ID)
	if err != nil || stored == nil {
		t.Fatalf("get event: %v", err)
	}
	if stored.Relation != model.RelationFriend {
		t.Errorf("rejected patch was stored: relation = %s", stored.Relation)
	}
}

func TestDeleteEventRemovesMessage(t *testing.T) {
	env := setupEnv(t)
	item := createEvent(t, env, env.alice, birthday("Ana", "1990-06-15"))
	if _, err := env.messages.SaveMessage(context.Background(), env.alice, item.ID, model.ToneFunny, model.LengthShort, "hi"); err != nil {
		t.Fatalf("save message: %v", err)
	}

	rec := serve(env.event.Delete, withID(request(t, "DELETE", "/api/events/x", env.bob, nil), item.ID))
	assertStatus(t, rec, http.StatusNotFound)

	rec = serve(env.event.Delete, withID(request(t, "DELETE", "/api/events/x", env.alice, nil), item.ID))
	assertStatus(t, rec, http.StatusNoContent)

	msg, err := env.messages.GetMessage(context.Background(), env.alice, item.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if msg != nil {
		t.Error("message should be deleted with its event")
	}

	rec = serve(env.event.Delete, withID(request(t, "DELETE", "/api/events/x", env.alice, nil), item.ID))
	assertStatus(t, rec, http.StatusNotFound)
}

func TestStatsEndpoint(t *testing.T) {
	env := setupEnv(t)
	createEvent(t, env, env.alice, birthday("Ana", "1990-06-15"))
	createEvent(t, env, env.alice, birthday("Ben", "06-30"))
	createEvent(t, env, env.alice, birthday("Cy", "12-25"))
	anniv := birthday("Dee", "2010-06-10")
	anniv["event_type"] = "anniversary"
	createEvent(t, env, env.alice, anniv)

	rec := serve(env.event.Stats, request(t, "GET", "/api/events/stats", env.alice, nil))
	assertStatus(t, rec, http.StatusOK)
	got := decode[stats.Stats](t, rec)

	want := stats.Stats{
		TotalEvents:       4,
		BirthdayCount:     3,
		AnniversaryCount:  1,
		UpcomingThisWeek:  2,
		UpcomingThisMonth: 3,
	}
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

func TestUpcomingEndpoint(t *testing.T) {
	env := setupEnv(t)
	createEvent(t, env, env.alice, birthday("Late", "01-01"))
	createEvent(t, env, env.alice, birthday("Soon", "06-12"))
	createEvent(t, env, env.alice, birthday("Today", "06-10"))

	rec := serve(env.event.Upcoming, request(t, "GET", "/api/events/upcoming?limit=2", env.alice, nil))
	assertStatus(t, rec, http.StatusOK)
	items := decode[[]stats.Item](t, rec)
	if len(items) != 2 || items[0].PersonName != "Today" || items[1].PersonName != "Soon" {
		t.Errorf("upcoming = %+v", items)
	}

	rec = serve(env.event.Upcoming, request(t, "GET", "/api/events/upcoming?limit=0", env.alice, nil))
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestCalendarEndpoint(t *testing.T) {
	env := setupEnv(t)
	createEvent(t, env, env.alice, birthday("Leap", "2000-02-29"))
	createEvent(t, env, env.alice, birthday("June", "06-01"))

	rec := serve(env.event.Calendar, request(t, "GET", "/api/events/calendar?month=2025-02", env.alice, nil))
	assertStatus(t, rec, http.StatusOK)
	got := decode[struct {
		Month string      `json:"month"`
		Days  []stats.Day `json:"days"`
	}](t, rec)
	if got.Month != "2025-02" {
		t.Errorf("month = %q", got.Month)
	}
	if len(got.Days) != 1 || got.Days[0].Date != "2025-02-28" {
		t.Errorf("days = %+v, want Feb 28 in a non-leap year", got.Days)
	}

	rec = serve(env.event.Calendar, request(t, "GET", "/api/events/calendar", env.alice, nil))
	got = decode[struct {
		Month string      `json:"month"`
		Days  []stats.Day `json:"days"`
	}](t, rec)
	if got.Month != "2024-06" || len(got.Days) != 1 {
		t.Errorf("current month = %q with %d days", got.Month, len(got.Days))
	}

	rec = serve(env.event.Calendar, request(t, "GET", "/api/events/calendar?month=June", env.alice, nil))
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestICSEndpoint(t *testing.T) {
	env := setupEnv(t)
	item := createEvent(t, env, env.alice, birthday("Ana", "1990-06-15"))

	rec := serve(env.event.ICS, request(t, "GET", "/api/events/calendar.ics", env.alice, nil))
	assertStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"BEGIN:VCALENDAR", "RRULE:", fmt.Sprintf("event-%d@memento", item.ID)} {
		if !strings.Contains(body, want) {
			t.Errorf("feed missing %q", want)
		}
	}
}

// failingEvents fails every read.
type failingEvents struct{ store.EventRepository }

func (failingEvents) ListEvents(context.Context, int64, store.EventFilter) ([]model.Event, error) {
	return nil, errors.New("connection reset")
}

func TestListEventsStoreError(t *testing.T) {
	env := setupEnv(t)
	h := NewEventHandler(failingEvents{}, nil, env.clock, env.event.logger)
	rec := serve(h.List, request(t, "GET", "/api/events", env.alice, nil))
	assertStatus(t, rec, http.StatusInternalServerError)
}
