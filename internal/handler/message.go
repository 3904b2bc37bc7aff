package handler

import (
	"log/slog"
	"net/http"

	"github.com/praneethkvs/Memento/internal/auth"
	"github.com/praneethkvs/Memento/internal/greeting"
	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/store"
	"github.com/praneethkvs/Memento/internal/websocket"
)

type MessageHandler struct {
	events   store.EventRepository
	messages store.MessageRepository
	greeter  *greeting.Service
	hub      *websocket.Hub
	clock    Clock
	logger   *slog.Logger
}

func NewMessageHandler(events store.EventRepository, messages store.MessageRepository, greeter *greeting.Service, hub *websocket.Hub, clock Clock, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		events:   events,
		messages: messages,
		greeter:  greeter,
		hub:      hub,
		clock:    clock,
		logger:   logger,
	}
}

type generateRequest struct {
	Tone   string `json:"tone"`
	Length string `json:"length"`
}

// Get handles GET /api/events/{id}/message.
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, ok := loadEvent(w, r, h.events, h.logger)
	if !ok {
		return
	}
	msg, err := h.messages.GetMessage(r.Context(), auth.UserID(r.Context()), event.ID)
	if err != nil {
		writeFailure(w, h.logger, err, "get message")
		return
	}
	if msg == nil {
		writeError(w, http.StatusNotFound, "no message generated")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// Delete handles DELETE /api/events/{id}/message.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	event, ok := loadEvent(w, r, h.events, h.logger)
	if !ok {
		return
	}
	if err := h.messages.DeleteMessage(r.Context(), auth.UserID(r.Context()), event.ID); err != nil {
		writeFailure(w, h.logger, err, "delete message")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Generate handles POST /api/events/{id}/generate-message. The body is
// optional; tone defaults to heartfelt and length to medium. A failed
// generation leaves the stored message as it was.
func (h *MessageHandler) Generate(w http.ResponseWriter, r *http.Request) {
	event, ok := loadEvent(w, r, h.events, h.logger)
	if !ok {
		return
	}

	req := generateRequest{Tone: string(model.ToneHeartfelt), Length: string(model.LengthMedium)}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeFailure(w, h.logger, err, "generate message")
			return
		}
		if req.Tone == "" {
			req.Tone = string(model.ToneHeartfelt)
		}
		if req.Length == "" {
			req.Length = string(model.LengthMedium)
		}
	}

	userID := auth.UserID(r.Context())
	msg, err := h.greeter.Regenerate(r.Context(), userID, *event, req.Tone, req.Length, h.clock.Today())
	if err != nil {
		writeFailure(w, h.logger, err, "generate message")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("message", "generated", event.ID, msg))
	writeJSON(w, http.StatusOK, msg)
}
