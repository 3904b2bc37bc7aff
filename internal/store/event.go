package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/praneethkvs/Memento/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

var _ EventRepository = (*EventStore)(nil)

const eventCols = `id, user_id, person_name, event_type, event_date, month_day, event_year, has_year, relation, notes, reminders, created_at, updated_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var year sql.NullInt64
	var hasYear int
	var reminders string
	err := scanner.Scan(&e.ID, &e.UserID, &e.PersonName, &e.EventType, &e.EventDate, &e.MonthDay,
		&year, &hasYear, &e.Relation, &e.Notes, &reminders, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if year.Valid {
		y := int(year.Int64)
		e.EventYear = &y
	}
	e.HasYear = hasYear != 0
	e.Reminders, err = model.ParseLeadTimes(reminders)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", e.ID, err)
	}
	return &e, nil
}

func eventArgs(in model.EventInput) (year sql.NullInt64, hasYear int) {
	if in.EventYear != nil {
		year = sql.NullInt64{Int64: int64(*in.EventYear), Valid: true}
	}
	if in.HasYear {
		hasYear = 1
	}
	return year, hasYear
}

func (s *EventStore) CreateEvent(ctx context.Context, userID int64, in model.EventInput) (*model.Event, error) {
	year, hasYear := eventArgs(in)
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO events (user_id, person_name, event_type, event_date, month_day, event_year, has_year, relation, notes, reminders)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, in.PersonName, in.EventType, in.EventDate, in.MonthDay, year, hasYear, in.Relation, in.Notes, in.Reminders.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetEvent(ctx, userID, id)
}

func (s *EventStore) GetEvent(ctx context.Context, userID, id int64) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventCols+` FROM events WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *EventStore) UpdateEvent(ctx context.Context, userID, id int64, in model.EventInput) (*model.Event, error) {
	year, hasYear := eventArgs(in)
	result, err := s.db.ExecContext(ctx,
		`UPDATE events SET person_name = ?, event_type = ?, event_date = ?, month_day = ?, event_year = ?,
		 has_year = ?, relation = ?, notes = ?, reminders = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		in.PersonName, in.EventType, in.EventDate, in.MonthDay, year, hasYear, in.Relation, in.Notes, in.Reminders.String(),
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetEvent(ctx, userID, id)
}

func (s *EventStore) DeleteEvent(ctx context.Context, userID, id int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete event: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_messages WHERE event_id = ? AND user_id = ?`, id, userID); err != nil {
		return false, fmt.Errorf("delete event message: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete event: %w", err)
	}
	return n > 0, nil
}

func (s *EventStore) ListEvents(ctx context.Context, userID int64, f EventFilter) ([]model.Event, error) {
	query := `SELECT ` + eventCols + ` FROM events WHERE user_id = ?`
	args := []any{userID}
	if t := f.TypeValue(); t != "" {
		query += ` AND event_type = ?`
		args = append(args, t)
	}
	if r := f.RelationValue(); r != "" {
		query += ` AND relation = ?`
		args = append(args, r)
	}
	if f.SearchTerm() != "" {
		pattern := f.LikePattern()
		query += ` AND (person_name LIKE ? ESCAPE '\' OR notes LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY month_day ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) ListEventOwners(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM events ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list event owners: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan event owner: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
