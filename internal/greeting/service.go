package greeting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/praneethkvs/Memento/internal/metrics"
	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/recurrence"
	"github.com/praneethkvs/Memento/internal/store"
)

// Service generates greetings and keeps the latest one per event.
type Service struct {
	gen      Generator
	messages store.MessageRepository
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(gen Generator, messages store.MessageRepository, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		gen:      gen,
		messages: messages,
		metrics:  m,
		logger:   logger.With("component", "greeting"),
	}
}

// Regenerate writes a new greeting for e and stores it in place of the
// previous one. On a generation failure nothing is stored and the error is a
// *GenerationError.
func (s *Service) Regenerate(ctx context.Context, userID int64, e model.Event, tone, length string, today time.Time) (*model.GeneratedMessage, error) {
	t, err := model.ParseTone(tone)
	if err != nil {
		return nil, err
	}
	l, err := model.ParseLength(length)
	if err != nil {
		return nil, err
	}

	req := Request{
		PersonName: e.PersonName,
		EventType:  e.EventType,
		Relation:   e.Relation,
		Tone:       t,
		Length:     l,
	}
	if e.HasYear {
		eventDate, err := time.Parse(model.DateLayout, e.EventDate)
		if err != nil {
			return nil, model.Invalid("event_date", e.EventDate, model.ErrInvalidDateFormat)
		}
		if age, ok := recurrence.CalculateAge(eventDate, true, today); ok {
			req.Age = &age
		}
	}

	text, err := s.gen.Generate(ctx, BuildPrompt(req))
	if err != nil {
		s.metrics.GreetingGenerated("error")
		s.logger.Error("generate greeting", "event_id", e.ID, "error", err)
		if !IsGenerationError(err) {
			err = &GenerationError{Err: err}
		}
		return nil, err
	}
	s.metrics.GreetingGenerated("ok")

	msg, err := s.messages.SaveMessage(ctx, userID, e.ID, t, l, text)
	if err != nil {
		return nil, fmt.Errorf("store greeting: %w", err)
	}
	s.logger.Info("greeting generated", "event_id", e.ID, "tone", t, "length", l)
	return msg, nil
}
