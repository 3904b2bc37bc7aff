package handler

import (
	"log/slog"
	"net/http"

	"github.com/praneethkvs/Memento/internal/auth"
	"github.com/praneethkvs/Memento/internal/model"
	"github.com/praneethkvs/Memento/internal/push"
	"github.com/praneethkvs/Memento/internal/store"
)

type PushHandler struct {
	pushStore *store.PushStore
	service   *push.Service
	logger    *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, service: svc, logger: logger}
}

// subscribeRequest accepts the browser's PushSubscription JSON as well as
// flat p256dh/auth fields.
type subscribeRequest struct {
	Endpoint   string `json:"endpoint" validate:"required,url"`
	P256dh     string `json:"p256dh" validate:"required"`
	Auth       string `json:"auth" validate:"required"`
	DeviceName string `json:"device_name" validate:"max=100"`
	Keys       *struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys,omitempty" validate:"-"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, h.logger, err, "save subscription")
		return
	}
	if req.Keys != nil {
		if req.P256dh == "" {
			req.P256dh = req.Keys.P256dh
		}
		if req.Auth == "" {
			req.Auth = req.Keys.Auth
		}
	}
	if err := validateStruct(req); err != nil {
		writeFailure(w, h.logger, err, "save subscription")
		return
	}

	sub, err := h.pushStore.CreateSubscription(auth.UserID(r.Context()), req.Endpoint, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		writeFailure(w, h.logger, err, "save subscription")
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/push/subscriptions/{id}
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	sub, err := h.pushStore.GetByID(id, userID)
	if err != nil {
		writeFailure(w, h.logger, err, "delete subscription")
		return
	}
	if sub == nil {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}

	if err := h.pushStore.DeleteSubscription(id, userID); err != nil {
		writeFailure(w, h.logger, err, "delete subscription")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSubscriptions handles GET /api/push/subscriptions
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.pushStore.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		writeFailure(w, h.logger, err, "list subscriptions")
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	if !h.service.Configured() {
		writeError(w, http.StatusNotFound, "push notifications are not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}
