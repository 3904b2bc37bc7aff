// Package telegram links chats to accounts and delivers reminders through a
// Telegram bot.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/reminder"
)

// Bot wraps a telebot bot. Start runs the long poller that answers /start so
// users can find the chat ID to link in their account.
type Bot struct {
	bot    *tele.Bot
	logger *slog.Logger
}

type Option func(*tele.Settings)

// WithAPIURL points the bot at another Bot API server.
func WithAPIURL(u string) Option {
	return func(s *tele.Settings) {
		s.URL = u
	}
}

// Offline skips the getMe call on creation. The bot can still send.
func Offline() Option {
	return func(s *tele.Settings) {
		s.Offline = true
	}
}

func New(token string, logger *slog.Logger, opts ...Option) (*Bot, error) {
	settings := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(&settings)
	}
	b, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	bot := &Bot{bot: b, logger: logger.With("component", "telegram")}
	b.Handle("/start", bot.handleStart)
	b.Handle("/chatid", bot.handleStart)
	return bot, nil
}

func (b *Bot) handleStart(c tele.Context) error {
	return c.Send(startMessage(c.Chat().ID))
}

func startMessage(chatID int64) string {
	return fmt.Sprintf("Hi! This is the Memento reminder bot.\n\n"+
		"Your chat ID is %d. Enter it under Telegram in your Memento account to get reminders here.", chatID)
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	go b.bot.Start()
	b.logger.Info("telegram bot polling")
	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()
}

// SendText posts a plain text message to chatID.
func (b *Bot) SendText(chatID int64, text string) error {
	if _, err := b.bot.Send(tele.ChatID(chatID), text); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// UserLookup finds the account a reminder belongs to.
type UserLookup interface {
	GetByID(id int64) (*model.User, error)
}

// Notifier delivers reminders to the account's linked chat.
type Notifier struct {
	bot   *Bot
	users UserLookup
}

func NewNotifier(bot *Bot, users UserLookup) *Notifier {
	return &Notifier{bot: bot, users: users}
}

func (n *Notifier) Channel() string { return "telegram" }

func (n *Notifier) Notify(_ context.Context, notice reminder.Notice) error {
	u, err := n.users.GetByID(notice.UserID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || u.TelegramChatID == nil {
		return reminder.ErrNoRecipient
	}
	return n.bot.SendText(*u.TelegramChatID, notice.Subject()+"\n\n"+notice.Body())
}
