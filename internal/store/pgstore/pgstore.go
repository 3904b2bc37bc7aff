// Package pgstore keeps events and generated messages in PostgreSQL.
// Accounts and sessions stay in the SQLite database.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/store"
)

type Store struct {
	db *bun.DB
}

var (
	_ store.EventRepository   = (*Store)(nil)
	_ store.MessageRepository = (*Store)(nil)
)

// Open connects to dsn and creates the schema when missing.
func Open(ctx context.Context, dsn string) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*eventRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create events table: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*eventRow)(nil)).
		Index("idx_events_user_month_day").
		Column("user_id", "month_day").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create events index: %w", err)
	}
	if _, err := s.db.NewCreateTable().
		Model((*messageRow)(nil)).
		IfNotExists().
		ForeignKey(`("event_id") REFERENCES "events" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create event_messages table: %w", err)
	}
	return nil
}

func (s *Store) CreateEvent(ctx context.Context, userID int64, in model.EventInput) (*model.Event, error) {
	row := newEventRow(userID, in)
	if _, err := s.db.NewInsert().
		Model(row).
		Returning("*").
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return row.toModel()
}

func (s *Store) GetEvent(ctx context.Context, userID, id int64) (*model.Event, error) {
	row := new(eventRow)
	err := s.db.NewSelect().
		Model(row).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return row.toModel()
}

func (s *Store) UpdateEvent(ctx context.Context, userID, id int64, in model.EventInput) (*model.Event, error) {
	row := newEventRow(userID, in)
	row.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model(row).
		Column("person_name", "event_type", "event_date", "month_day", "event_year",
			"has_year", "relation", "notes", "reminders", "updated_at").
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetEvent(ctx, userID, id)
}

func (s *Store) DeleteEvent(ctx context.Context, userID, id int64) (bool, error) {
	// event_messages rows go with the event via ON DELETE CASCADE
	res, err := s.db.NewDelete().
		Model((*eventRow)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ListEvents(ctx context.Context, userID int64, f store.EventFilter) ([]model.Event, error) {
	var rows []eventRow
	q := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID)
	if t := f.TypeValue(); t != "" {
		q = q.Where("event_type = ?", t)
	}
	if r := f.RelationValue(); r != "" {
		q = q.Where("relation = ?", r)
	}
	if f.SearchTerm() != "" {
		pattern := f.LikePattern()
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("person_name ILIKE ?", pattern).WhereOr("notes ILIKE ?", pattern)
		})
	}
	if err := q.Order("month_day ASC", "id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]model.Event, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toModel()
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", rows[i].ID, err)
		}
		events = append(events, *e)
	}
	return events, nil
}

func (s *Store) ListEventOwners(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.NewSelect().
		Model((*eventRow)(nil)).
		ColumnExpr("DISTINCT user_id").
		Order("user_id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("list event owners: %w", err)
	}
	return ids, nil
}

func (s *Store) GetMessage(ctx context.Context, userID, eventID int64) (*model.GeneratedMessage, error) {
	row := new(messageRow)
	err := s.db.NewSelect().
		Model(row).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event message: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) SaveMessage(ctx context.Context, userID, eventID int64, tone model.Tone, length model.Length, text string) (*model.GeneratedMessage, error) {
	row := &messageRow{
		EventID: eventID,
		UserID:  userID,
		Tone:    string(tone),
		Length:  string(length),
		Message: text,
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (event_id, user_id) DO UPDATE").
		Set("tone = EXCLUDED.tone").
		Set("length = EXCLUDED.length").
		Set("message = EXCLUDED.message").
		Set("updated_at = current_timestamp").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("save event message: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) DeleteMessage(ctx context.Context, userID, eventID int64) error {
	_, err := s.db.NewDelete().
		Model((*messageRow)(nil)).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete event message: %w", err)
	}
	return nil
}

