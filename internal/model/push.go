package model

import "time"

type PushSubscription struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReminderDelivery records that the reminder for one occurrence of an event
// at one lead time has gone out.
type ReminderDelivery struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	EventID    int64     `json:"event_id"`
	Occurrence string    `json:"occurrence"`
	LeadDays   int       `json:"lead_days"`
	SentAt     time.Time `json:"sent_at"`
}
