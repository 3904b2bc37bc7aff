package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/praneethkvs/Memento/internal/auth"
	"github.com/praneethkvs/Memento/internal/dateinput"
	"github.com/praneethkvs/Memento/internal/ics"
	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/stats"
	"github.com/praneethkvs/Memento/internal/store"
	"github.com/praneethkvs/Memento/internal/websocket"
)

const defaultUpcomingLimit = 10

type EventHandler struct {
	events store.EventRepository
	hub    *websocket.Hub
	clock  Clock
	logger *slog.Logger
}

func NewEventHandler(events store.EventRepository, hub *websocket.Hub, clock Clock, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, hub: hub, clock: clock, logger: logger}
}

// eventRequest is the create/replace body. event_date is "YYYY-MM-DD" or
// "MM-DD"; event_year, when set, supplies or confirms the year.
type eventRequest struct {
	PersonName string           `json:"person_name" validate:"required,max=200"`
	EventType  string           `json:"event_type" validate:"required"`
	EventDate  string           `json:"event_date" validate:"required"`
	EventYear  *int             `json:"event_year"`
	Relation   string           `json:"relation" validate:"required"`
	Notes      string           `json:"notes" validate:"max=2000"`
	Reminders  *model.LeadTimes `json:"reminders"`
}

// eventPatch carries the fields present in a PATCH body.
type eventPatch struct {
	PersonName *string          `json:"person_name"`
	EventType  *string          `json:"event_type"`
	EventDate  *string          `json:"event_date"`
	EventYear  *int             `json:"event_year"`
	Relation   *string          `json:"relation"`
	Notes      *string          `json:"notes"`
	Reminders  *model.LeadTimes `json:"reminders"`
}

// requestFromEvent is the body that would recreate e unchanged.
func requestFromEvent(e *model.Event) eventRequest {
	req := eventRequest{
		PersonName: e.PersonName,
		EventType:  string(e.EventType),
		EventDate:  e.MonthDay,
		Relation:   string(e.Relation),
		Notes:      e.Notes,
	}
	if e.HasYear {
		req.EventDate = e.EventDate
	}
	reminders := e.Input().Reminders
	req.Reminders = &reminders
	return req
}

// apply merges p into req. A new event_year without a new event_date is
// combined with the stored month-day.
func (p eventPatch) apply(req *eventRequest, stored *model.Event) {
	if p.PersonName != nil {
		req.PersonName = *p.PersonName
	}
	if p.EventType != nil {
		req.EventType = *p.EventType
	}
	if p.EventDate != nil {
		req.EventDate = *p.EventDate
	}
	if p.EventYear != nil {
		if p.EventDate == nil {
			req.EventDate = stored.MonthDay
		}
		req.EventYear = p.EventYear
	}
	if p.Relation != nil {
		req.Relation = *p.Relation
	}
	if p.Notes != nil {
		req.Notes = *p.Notes
	}
	if p.Reminders != nil {
		req.Reminders = p.Reminders
	}
}

// input validates req and normalizes it into the stored form.
func (req eventRequest) input(today time.Time) (model.EventInput, error) {
	req.PersonName = strings.TrimSpace(req.PersonName)
	req.Notes = strings.TrimSpace(req.Notes)
	if err := validateStruct(req); err != nil {
		return model.EventInput{}, err
	}

	eventType, err := model.ParseEventType(req.EventType)
	if err != nil {
		return model.EventInput{}, err
	}
	relation, err := model.ParseRelation(req.Relation)
	if err != nil {
		return model.EventInput{}, err
	}
	date, err := dateinput.FromParts(req.EventDate, req.EventYear, today)
	if err != nil {
		return model.EventInput{}, err
	}

	reminders := model.DefaultLeadTimes
	if req.Reminders != nil {
		reminders = *req.Reminders
	}
	reminders, err = reminders.Normalize()
	if err != nil {
		return model.EventInput{}, err
	}

	return model.EventInput{
		PersonName: req.PersonName,
		EventType:  eventType,
		EventDate:  date.FullDate,
		MonthDay:   date.MonthDay,
		EventYear:  date.Year,
		HasYear:    date.HasYear,
		Relation:   relation,
		Notes:      req.Notes,
		Reminders:  reminders,
	}, nil
}

func (h *EventHandler) filterFromQuery(r *http.Request) (store.EventFilter, error) {
	q := r.URL.Query()
	f := store.EventFilter{
		Search:   q.Get("search"),
		Type:     q.Get("type"),
		Relation: q.Get("relation"),
	}
	if v := f.TypeValue(); v != "" {
		if _, err := model.ParseEventType(v); err != nil {
			return f, err
		}
	}
	if v := f.RelationValue(); v != "" {
		if _, err := model.ParseRelation(v); err != nil {
			return f, err
		}
	}
	return f, nil
}

// List handles GET /api/events.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filterFromQuery(r)
	if err != nil {
		writeFailure(w, h.logger, err, "list events")
		return
	}

	events, err := h.events.ListEvents(r.Context(), auth.UserID(r.Context()), filter)
	if err != nil {
		writeFailure(w, h.logger, err, "list events")
		return
	}

	items, err := stats.Summarize(events, h.clock.Today())
	if err != nil {
		writeFailure(w, h.logger, err, "list events")
		return
	}
	if r.URL.Query().Get("sort") == "upcoming" {
		stats.SortByNext(items)
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *EventHandler) allEvents(r *http.Request) ([]model.Event, error) {
	return h.events.ListEvents(r.Context(), auth.UserID(r.Context()), store.EventFilter{})
}

// Stats handles GET /api/events/stats.
func (h *EventHandler) Stats(w http.ResponseWriter, r *http.Request) {
	events, err := h.allEvents(r)
	if err != nil {
		writeFailure(w, h.logger, err, "compute statistics")
		return
	}
	s, err := stats.Compute(events, h.clock.Today())
	if err != nil {
		writeFailure(w, h.logger, err, "compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Upcoming handles GET /api/events/upcoming?limit=N.
func (h *EventHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	limit := defaultUpcomingLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeFailure(w, h.logger, model.Invalid("limit", v, model.ErrUnsupportedValue), "list upcoming events")
			return
		}
		limit = n
	}

	events, err := h.allEvents(r)
	if err != nil {
		writeFailure(w, h.logger, err, "list upcoming events")
		return
	}
	items, err := stats.Upcoming(events, h.clock.Today(), limit)
	if err != nil {
		writeFailure(w, h.logger, err, "list upcoming events")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Calendar handles GET /api/events/calendar?month=YYYY-MM, defaulting to the
// current month.
func (h *EventHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	today := h.clock.Today()
	year, month := today.Year(), today.Month()
	if v := r.URL.Query().Get("month"); v != "" {
		t, err := time.Parse("2006-01", v)
		if err != nil {
			writeFailure(w, h.logger, model.Invalid("month", v, fmt.Errorf("want YYYY-MM")), "load calendar")
			return
		}
		year, month = t.Year(), t.Month()
	}

	events, err := h.allEvents(r)
	if err != nil {
		writeFailure(w, h.logger, err, "load calendar")
		return
	}
	days, err := stats.Month(events, year, month)
	if err != nil {
		writeFailure(w, h.logger, err, "load calendar")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"month": fmt.Sprintf("%04d-%02d", year, int(month)),
		"days":  days,
	})
}

// ICS handles GET /api/events/calendar.ics.
func (h *EventHandler) ICS(w http.ResponseWriter, r *http.Request) {
	events, err := h.allEvents(r)
	if err != nil {
		writeFailure(w, h.logger, err, "export calendar")
		return
	}
	feed, err := ics.Feed(events, h.clock.Today())
	if err != nil {
		writeFailure(w, h.logger, err, "export calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="memento.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(feed))
}

// Get handles GET /api/events/{id}.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, ok := h.load(w, r)
	if !ok {
		return
	}
	h.writeItem(w, http.StatusOK, *event)
}

// Create handles POST /api/events.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, h.logger, err, "create event")
		return
	}
	in, err := req.input(h.clock.Today())
	if err != nil {
		writeFailure(w, h.logger, err, "create event")
		return
	}

	userID := auth.UserID(r.Context())
	event, err := h.events.CreateEvent(r.Context(), userID, in)
	if err != nil {
		writeFailure(w, h.logger, err, "create event")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("event", "created", event.ID, event))
	h.writeItem(w, http.StatusCreated, *event)
}

// Replace handles PUT /api/events/{id}.
func (h *EventHandler) Replace(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.load(w, r); !ok {
		return
	}
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, h.logger, err, "update event")
		return
	}
	h.save(w, r, req)
}

// Patch handles PATCH /api/events/{id}: present fields replace the stored
// ones and the result is validated as a whole.
func (h *EventHandler) Patch(w http.ResponseWriter, r *http.Request) {
	stored, ok := h.load(w, r)
	if !ok {
		return
	}
	var patch eventPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeFailure(w, h.logger, err, "update event")
		return
	}
	req := requestFromEvent(stored)
	patch.apply(&req, stored)
	h.save(w, r, req)
}

func (h *EventHandler) save(w http.ResponseWriter, r *http.Request, req eventRequest) {
	id, _ := parseIDParam(r)
	in, err := req.input(h.clock.Today())
	if err != nil {
		writeFailure(w, h.logger, err, "update event")
		return
	}

	userID := auth.UserID(r.Context())
	event, err := h.events.UpdateEvent(r.Context(), userID, id, in)
	if err != nil {
		writeFailure(w, h.logger, err, "update event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("event", "updated", event.ID, event))
	h.writeItem(w, http.StatusOK, *event)
}

// Delete handles DELETE /api/events/{id}. The event's message goes with it.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	deleted, err := h.events.DeleteEvent(r.Context(), userID, id)
	if err != nil {
		writeFailure(w, h.logger, err, "delete event")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("event", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// load fetches the {id} event of the current user, writing 400/404/500 when
// it cannot.
func (h *EventHandler) load(w http.ResponseWriter, r *http.Request) (*model.Event, bool) {
	return loadEvent(w, r, h.events, h.logger)
}

func loadEvent(w http.ResponseWriter, r *http.Request, events store.EventRepository, logger *slog.Logger) (*model.Event, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	event, err := events.GetEvent(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		writeFailure(w, logger, err, "get event")
		return nil, false
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return nil, false
	}
	return event, true
}

func (h *EventHandler) writeItem(w http.ResponseWriter, status int, e model.Event) {
	items, err := stats.Summarize([]model.Event{e}, h.clock.Today())
	if err != nil {
		writeFailure(w, h.logger, err, "summarize event")
		return
	}
	writeJSON(w, status, items[0])
}
