package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/reminder"
)

// SubscriptionStore is the part of the push subscription store the notifier needs.
type SubscriptionStore interface {
	ListByUser(userID int64) ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
}

// Notifier delivers reminders to every browser the user subscribed.
type Notifier struct {
	service *Service
	subs    SubscriptionStore
}

func NewNotifier(svc *Service, subs SubscriptionStore) *Notifier {
	return &Notifier{service: svc, subs: subs}
}

func (n *Notifier) Channel() string { return "push" }

func (n *Notifier) Notify(ctx context.Context, notice reminder.Notice) error {
	subs, err := n.subs.ListByUser(notice.UserID)
	if err != nil {
		return fmt.Errorf("list push subscriptions: %w", err)
	}

	payload := Payload{
		Title: notice.Subject(),
		Body:  notice.Body(),
		URL:   fmt.Sprintf("/events/%d", notice.Event.ID),
		Tag:   fmt.Sprintf("event-%d", notice.Event.ID),
	}

	delivery := deliveryFor(notice)

	delivered := 0
	var errs []error
	for i := range subs {
		err := n.service.SendWith(ctx, &subs[i], payload, delivery)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrExpired):
			if err := n.subs.DeleteByEndpoint(subs[i].Endpoint); err != nil {
				errs = append(errs, err)
			}
		default:
			errs = append(errs, err)
		}
	}
	if delivered > 0 {
		return nil
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return reminder.ErrNoRecipient
}

// deliveryFor wakes the device for same-day reminders and lets early ones
// wait, expiring each once a later reminder would supersede it.
func deliveryFor(notice reminder.Notice) Delivery {
	switch {
	case notice.LeadDays == 0:
		return Delivery{TTL: 12 * time.Hour, Urgency: webpush.UrgencyHigh}
	case notice.LeadDays <= 3:
		return Delivery{TTL: 24 * time.Hour, Urgency: webpush.UrgencyNormal}
	default:
		return Delivery{TTL: 72 * time.Hour, Urgency: webpush.UrgencyLow}
	}
}
