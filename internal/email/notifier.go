package email

import (
	"context"
	"fmt"

	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/reminder"
)

// UserLookup finds the account a reminder belongs to.
type UserLookup interface {
	GetByID(id int64) (*model.User, error)
}

// Notifier delivers reminders to the account's email address.
type Notifier struct {
	client *Client
	users  UserLookup
}

func NewNotifier(client *Client, users UserLookup) *Notifier {
	return &Notifier{client: client, users: users}
}

func (n *Notifier) Channel() string { return "email" }

func (n *Notifier) Notify(ctx context.Context, notice reminder.Notice) error {
	u, err := n.users.GetByID(notice.UserID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || u.Email == "" {
		return reminder.ErrNoRecipient
	}
	return n.client.SendReminder(ctx, u.Email, notice)
}
