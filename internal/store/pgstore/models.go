package pgstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/praneethkvs/Memento/internal/model"
)

type eventRow struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     int64     `bun:"user_id,notnull"`
	PersonName string    `bun:"person_name,notnull"`
	EventType  string    `bun:"event_type,notnull"`
	EventDate  string    `bun:"event_date,notnull"`
	MonthDay   string    `bun:"month_day,notnull"`
	EventYear  *int      `bun:"event_year"`
	HasYear    bool      `bun:"has_year,notnull"`
	Relation   string    `bun:"relation,notnull"`
	Notes      string    `bun:"notes,notnull"`
	Reminders  string    `bun:"reminders,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newEventRow(userID int64, in model.EventInput) *eventRow {
	return &eventRow{
		UserID:     userID,
		PersonName: in.PersonName,
		EventType:  string(in.EventType),
		EventDate:  in.EventDate,
		MonthDay:   in.MonthDay,
		EventYear:  in.EventYear,
		HasYear:    in.HasYear,
		Relation:   string(in.Relation),
		Notes:      in.Notes,
		Reminders:  in.Reminders.String(),
	}
}

func (r *eventRow) toModel() (*model.Event, error) {
	reminders, err := model.ParseLeadTimes(r.Reminders)
	if err != nil {
		return nil, err
	}
	return &model.Event{
		ID:         r.ID,
		UserID:     r.UserID,
		PersonName: r.PersonName,
		EventType:  model.EventType(r.EventType),
		EventDate:  r.EventDate,
		MonthDay:   r.MonthDay,
		EventYear:  r.EventYear,
		HasYear:    r.HasYear,
		Relation:   model.Relation(r.Relation),
		Notes:      r.Notes,
		Reminders:  reminders,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

type messageRow struct {
	bun.BaseModel `bun:"table:event_messages,alias:m"`

	ID        int64     `bun:"id,pk,autoincrement"`
	EventID   int64     `bun:"event_id,notnull,unique:event_messages_event_user"`
	UserID    int64     `bun:"user_id,notnull,unique:event_messages_event_user"`
	Tone      string    `bun:"tone,notnull"`
	Length    string    `bun:"length,notnull"`
	Message   string    `bun:"message,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *messageRow) toModel() *model.GeneratedMessage {
	return &model.GeneratedMessage{
		ID:        r.ID,
		EventID:   r.EventID,
		UserID:    r.UserID,
		Tone:      model.Tone(r.Tone),
		Length:    model.Length(r.Length),
		Message:   r.Message,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
