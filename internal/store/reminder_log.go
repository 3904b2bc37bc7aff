package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ReminderLogStore remembers which reminders went out so a rerun on the
// same day does not repeat them.
type ReminderLogStore struct {
	db *sql.DB
}

func NewReminderLogStore(db *sql.DB) *ReminderLogStore {
	return &ReminderLogStore{db: db}
}

// RecordSent marks the reminder for one occurrence (YYYY-MM-DD) of an event at
// a lead time as delivered. Recording twice is a no-op.
func (s *ReminderLogStore) RecordSent(userID, eventID int64, occurrence string, leadDays int) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO reminder_deliveries (user_id, event_id, occurrence, lead_days)
		 VALUES (?, ?, ?, ?)`,
		userID, eventID, occurrence, leadDays,
	)
	if err != nil {
		return fmt.Errorf("record sent reminder: %w", err)
	}
	return nil
}

func (s *ReminderLogStore) WasSent(eventID int64, occurrence string, leadDays int) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM reminder_deliveries
		 WHERE event_id = ? AND occurrence = ? AND lead_days = ?`,
		eventID, occurrence, leadDays,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check sent reminder: %w", err)
	}
	return count > 0, nil
}

// Cleanup deletes delivery records older than before.
func (s *ReminderLogStore) Cleanup(before time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM reminder_deliveries WHERE sent_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup reminder deliveries: %w", err)
	}
	return result.RowsAffected()
}
