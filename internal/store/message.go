package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/praneethkvs/Memento/internal/model"
)

type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

var _ MessageRepository = (*MessageStore)(nil)

func (s *MessageStore) GetMessage(ctx context.Context, userID, eventID int64) (*model.GeneratedMessage, error) {
	var m model.GeneratedMessage
	err := s.db.QueryRowContext(ctx,
		`SELECT id, event_id, user_id, tone, length, message, created_at, updated_at
		 FROM event_messages WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	).Scan(&m.ID, &m.EventID, &m.UserID, &m.Tone, &m.Length, &m.Message, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event message: %w", err)
	}
	return &m, nil
}

func (s *MessageStore) SaveMessage(ctx context.Context, userID, eventID int64, tone model.Tone, length model.Length, text string) (*model.GeneratedMessage, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event_messages (event_id, user_id, tone, length, message)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(event_id, user_id) DO UPDATE SET
		   tone = excluded.tone, length = excluded.length, message = excluded.message,
		   updated_at = CURRENT_TIMESTAMP`,
		eventID, userID, tone, length, text,
	)
	if err != nil {
		return nil, fmt.Errorf("save event message: %w", err)
	}
	return s.GetMessage(ctx, userID, eventID)
}

func (s *MessageStore) DeleteMessage(ctx context.Context, userID, eventID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM event_messages WHERE event_id = ? AND user_id = ?`, eventID, userID)
	if err != nil {
		return fmt.Errorf("delete event message: %w", err)
	}
	return nil
}
