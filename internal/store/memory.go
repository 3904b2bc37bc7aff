package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/praneethkvs/Memento/internal/model"
)

// MemoryEvents is an EventRepository kept in process memory. Data is lost on
// restart; it backs tests and the "memory" backend.
type MemoryEvents struct {
	mu     sync.RWMutex
	nextID int64
	events map[int64]model.Event
	// messages is notified on delete so a removed event's greeting goes too.
	messages *MemoryMessages
}

func NewMemoryEvents(messages *MemoryMessages) *MemoryEvents {
	return &MemoryEvents{
		events:   make(map[int64]model.Event),
		messages: messages,
	}
}

var _ EventRepository = (*MemoryEvents)(nil)

func (m *MemoryEvents) CreateEvent(_ context.Context, userID int64, in model.EventInput) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := time.Now().UTC()
	e := eventFromInput(in)
	e.ID = m.nextID
	e.UserID = userID
	e.CreatedAt = now
	e.UpdatedAt = now
	m.events[e.ID] = e
	return cloneEvent(e), nil
}

func (m *MemoryEvents) GetEvent(_ context.Context, userID, id int64) (*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[id]
	if !ok || e.UserID != userID {
		return nil, nil
	}
	return cloneEvent(e), nil
}

func (m *MemoryEvents) UpdateEvent(_ context.Context, userID, id int64, in model.EventInput) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.events[id]
	if !ok || old.UserID != userID {
		return nil, nil
	}
	e := eventFromInput(in)
	e.ID = old.ID
	e.UserID = old.UserID
	e.CreatedAt = old.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	m.events[id] = e
	return cloneEvent(e), nil
}

func (m *MemoryEvents) DeleteEvent(ctx context.Context, userID, id int64) (bool, error) {
	m.mu.Lock()
	e, ok := m.events[id]
	if !ok || e.UserID != userID {
		m.mu.Unlock()
		return false, nil
	}
	delete(m.events, id)
	m.mu.Unlock()

	if m.messages != nil {
		if err := m.messages.DeleteMessage(ctx, userID, id); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (m *MemoryEvents) ListEvents(_ context.Context, userID int64, f EventFilter) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Event
	for _, e := range m.events {
		if e.UserID != userID || !f.Match(e) {
			continue
		}
		out = append(out, *cloneEvent(e))
	}
	slices.SortFunc(out, func(a, b model.Event) int {
		if c := cmp.Compare(a.MonthDay, b.MonthDay); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *MemoryEvents) ListEventOwners(_ context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []int64
	for _, e := range m.events {
		if !slices.Contains(ids, e.UserID) {
			ids = append(ids, e.UserID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func eventFromInput(in model.EventInput) model.Event {
	e := model.Event{
		PersonName: in.PersonName,
		EventType:  in.EventType,
		EventDate:  in.EventDate,
		MonthDay:   in.MonthDay,
		HasYear:    in.HasYear,
		Relation:   in.Relation,
		Notes:      in.Notes,
		Reminders:  slices.Clone(in.Reminders),
	}
	if in.EventYear != nil {
		y := *in.EventYear
		e.EventYear = &y
	}
	return e
}

func cloneEvent(e model.Event) *model.Event {
	if e.EventYear != nil {
		y := *e.EventYear
		e.EventYear = &y
	}
	e.Reminders = slices.Clone(e.Reminders)
	return &e
}

type messageKey struct {
	userID, eventID int64
}

// MemoryMessages is a MessageRepository kept in process memory.
type MemoryMessages struct {
	mu       sync.RWMutex
	nextID   int64
	messages map[messageKey]model.GeneratedMessage
}

func NewMemoryMessages() *MemoryMessages {
	return &MemoryMessages{messages: make(map[messageKey]model.GeneratedMessage)}
}

var _ MessageRepository = (*MemoryMessages)(nil)

func (m *MemoryMessages) GetMessage(_ context.Context, userID, eventID int64) (*model.GeneratedMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msg, ok := m.messages[messageKey{userID, eventID}]
	if !ok {
		return nil, nil
	}
	return &msg, nil
}

func (m *MemoryMessages) SaveMessage(_ context.Context, userID, eventID int64, tone model.Tone, length model.Length, text string) (*model.GeneratedMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := messageKey{userID, eventID}
	now := time.Now().UTC()
	msg, ok := m.messages[key]
	if !ok {
		m.nextID++
		msg = model.GeneratedMessage{ID: m.nextID, EventID: eventID, UserID: userID, CreatedAt: now}
	}
	msg.Tone = tone
	msg.Length = length
	msg.Message = text
	msg.UpdatedAt = now
	m.messages[key] = msg
	return &msg, nil
}

func (m *MemoryMessages) DeleteMessage(_ context.Context, userID, eventID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.messages, messageKey{userID, eventID})
	return nil
}
