package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/praneethkvs/Memento/internal/backup"
	"github.com/praneethkvs/Memento/internal/config"
	"github.com/praneethkvs/Memento/internal/database"
	"github.com/praneethkvs/Memento/internal/email"
	"github.com/praneethkvs/Memento/internal/logging"
	"github.com/praneethkvs/Memento/internal/metrics"
	"github.com/praneethkvs/Memento/internal/push"
	"github.com/praneethkvs/Memento/internal/reminder"
	"github.com/praneethkvs/Memento/internal/store"
	"github.com/praneethkvs/Memento/internal/store/pgstore"
	"github.com/praneethkvs/Memento/internal/telegram"
)

// app holds what every command shares once the config is loaded.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	loc      *time.Location
	db       *sql.DB
	events   store.EventRepository
	messages store.MessageRepository
	closers  []func() error
}

func loadApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, loc: loc, db: db}
	a.closers = append(a.closers, db.Close)

	switch cfg.EventsBackend {
	case config.BackendSQLite:
		a.events = store.NewEventStore(db)
		a.messages = store.NewMessageStore(db)
	case config.BackendMemory:
		messages := store.NewMemoryMessages()
		a.events = store.NewMemoryEvents(messages)
		a.messages = messages
	case config.BackendPostgres:
		pg, err := pgstore.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.events = pg
		a.messages = pg
		a.closers = append(a.closers, pg.Close)
	}
	logger.Info("events backend ready", "backend", cfg.EventsBackend)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func (a *app) pushService() *push.Service {
	return push.NewService(a.cfg.VAPID.PublicKey, a.cfg.VAPID.PrivateKey, a.cfg.VAPID.Subscriber)
}

func (a *app) backupManager() *backup.Manager {
	b := a.cfg.Backup
	cfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  b.Endpoint,
			Bucket:    b.Bucket,
			Region:    b.Region,
			AccessKey: b.AccessKey,
			SecretKey: b.SecretKey,
			Prefix:    b.Prefix,
		},
		Passphrase:    b.Passphrase,
		RetentionDays: b.RetentionDays,
	}
	return backup.NewManager(cfg, a.db, store.NewBackupStore(a.db), a.logger.With("component", "backup"))
}

// notifiers builds a Notifier for every configured channel. The Telegram bot
// is returned as well so serve can poll it.
func (a *app) notifiers() ([]reminder.Notifier, *telegram.Bot, error) {
	users := store.NewUserStore(a.db)
	var out []reminder.Notifier

	if mail := email.NewClient(a.cfg.Postmark.ServerToken, a.cfg.Postmark.From, a.cfg.BaseURL); mail.Configured() {
		out = append(out, email.NewNotifier(mail, users))
	}
	if svc := a.pushService(); svc.Configured() {
		out = append(out, push.NewNotifier(svc, store.NewPushStore(a.db)))
	}

	var bot *telegram.Bot
	if a.cfg.Telegram.Token != "" {
		var err error
		bot, err = telegram.New(a.cfg.Telegram.Token, a.logger)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, telegram.NewNotifier(bot, users))
	}

	channels := make([]string, len(out))
	for i, n := range out {
		channels[i] = n.Channel()
	}
	if len(out) == 0 {
		a.logger.Warn("no reminder channels configured")
	} else {
		a.logger.Info("reminder channels", "channels", channels)
	}
	return out, bot, nil
}

func (a *app) scheduler(m *metrics.Metrics) (*reminder.Scheduler, *telegram.Bot, error) {
	notifiers, bot, err := a.notifiers()
	if err != nil {
		return nil, nil, err
	}
	sched := reminder.NewScheduler(
		a.events,
		store.NewReminderLogStore(a.db),
		notifiers,
		a.loc,
		a.logger.With("component", "reminder"),
		reminder.WithMetrics(m),
	)
	return sched, bot, nil
}
