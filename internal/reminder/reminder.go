package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/praneethkvs/Memento/internal/display"
	"github.com/praneethkvs/Memento/internal/metrics"
	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/recurrence"
	"github.com/praneethkvs/Memento/internal/store"
)

// DefaultSpec runs the reminder pass every morning at 08:00.
const DefaultSpec = "0 8 * * *"

// deliveryRetention is how long delivery records are kept.
const deliveryRetention = 400 * 24 * time.Hour

// DeliveryLog remembers sent reminders.
type DeliveryLog interface {
	WasSent(eventID int64, occurrence string, leadDays int) (bool, error)
	RecordSent(userID, eventID int64, occurrence string, leadDays int) error
	Cleanup(before time.Time) (int64, error)
}

// RunResult counts what one pass did.
type RunResult struct {
	Users    int `json:"users"`
	Events   int `json:"events"`
	Due      int `json:"due"`
	Sent     int `json:"sent"`
	Skipped  int `json:"skipped"`
	Failures int `json:"failures"`
}

type Scheduler struct {
	events    store.EventRepository
	log       DeliveryLog
	notifiers []Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	loc       *time.Location
	now       func() time.Time

	cron *cron.Cron
}

type Option func(*Scheduler)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

func NewScheduler(events store.EventRepository, log DeliveryLog, notifiers []Notifier, loc *time.Location, logger *slog.Logger, opts ...Option) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		events:    events,
		log:       log,
		notifiers: notifiers,
		logger:    logger.With("component", "reminder"),
		loc:       loc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the current date in the scheduler's zone.
func (s *Scheduler) Today() time.Time {
	return recurrence.StartOfDay(s.now().In(s.loc))
}

// Start runs a pass on every tick of spec until Stop or ctx is done.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	c := cron.New(cron.WithLocation(s.loc))
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.RunOnce(ctx, s.Today()); err != nil {
			s.logger.Error("reminder run", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule reminders %q: %w", spec, err)
	}
	s.cron = c
	c.Start()
	s.logger.Info("reminder scheduler started", "spec", spec, "zone", s.loc.String(), "channels", len(s.notifiers))

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunOnce sends every reminder due on today that was not sent before.
func (s *Scheduler) RunOnce(ctx context.Context, today time.Time) (RunResult, error) {
	var res RunResult
	today = recurrence.StartOfDay(today)

	owners, err := s.events.ListEventOwners(ctx)
	if err != nil {
		return res, fmt.Errorf("list event owners: %w", err)
	}

	for _, userID := range owners {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Users++

		events, err := s.events.ListEvents(ctx, userID, store.EventFilter{})
		if err != nil {
			s.logger.Error("list events", "user_id", userID, "error", err)
			res.Failures++
			continue
		}
		for _, e := range events {
			res.Events++
			s.processEvent(ctx, userID, e, today, &res)
		}
	}

	if _, err := s.log.Cleanup(today.Add(-deliveryRetention)); err != nil {
		s.logger.Warn("cleanup reminder deliveries", "error", err)
	}

	s.logger.Info("reminder run finished",
		"date", today.Format(model.DateLayout),
		"users", res.Users, "events", res.Events, "due", res.Due,
		"sent", res.Sent, "skipped", res.Skipped, "failures", res.Failures)
	return res, nil
}

func (s *Scheduler) processEvent(ctx context.Context, userID int64, e model.Event, today time.Time, res *RunResult) {
	md, err := recurrence.ParseMonthDay(e.MonthDay)
	if err != nil {
		s.logger.Warn("skip event with bad month-day", "event_id", e.ID, "month_day", e.MonthDay)
		return
	}
	if !recurrence.ShouldShowReminder(md, e.Reminders, today) {
		return
	}
	res.Due++

	occurrence := recurrence.NextOccurrence(md, today)
	occ := occurrence.Format(model.DateLayout)
	lead := recurrence.DaysUntil(md, today)

	sent, err := s.log.WasSent(e.ID, occ, lead)
	if err != nil {
		s.logger.Error("check reminder log", "event_id", e.ID, "error", err)
		res.Failures++
		return
	}
	if sent {
		res.Skipped++
		return
	}

	summary, err := display.Derive(e, today)
	if err != nil {
		s.logger.Warn("derive event summary", "event_id", e.ID, "error", err)
		return
	}
	n := Notice{UserID: userID, Event: e, Occurrence: occurrence, LeadDays: lead, Summary: summary}

	delivered, failed := s.deliver(ctx, n, res)
	// a pass where every channel failed is retried on the next run
	if failed > 0 && delivered == 0 {
		return
	}
	if err := s.log.RecordSent(userID, e.ID, occ, lead); err != nil {
		s.logger.Error("record reminder", "event_id", e.ID, "error", err)
		res.Failures++
	}
}

func (s *Scheduler) deliver(ctx context.Context, n Notice, res *RunResult) (delivered, failed int) {
	for _, nt := range s.notifiers {
		err := nt.Notify(ctx, n)
		switch {
		case err == nil:
			delivered++
			res.Sent++
			s.metrics.ReminderSent(nt.Channel())
			s.logger.Info("reminder sent", "channel", nt.Channel(), "user_id", n.UserID, "event_id", n.Event.ID, "lead_days", n.LeadDays)
		case errors.Is(err, ErrNoRecipient):
		default:
			failed++
			res.Failures++
			s.metrics.ReminderFailed(nt.Channel())
			s.logger.Error("reminder delivery failed", "channel", nt.Channel(), "user_id", n.UserID, "event_id", n.Event.ID, "error", err)
		}
	}
	return delivered, failed
}
