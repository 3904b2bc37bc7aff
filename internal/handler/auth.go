package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/praneethkvs/Memento/internal/auth"
	"github.com/praneethkvs/Memento/internal/store"
)

// passwordCost is lowered in tests.
var passwordCost = bcrypt.DefaultCost

type AuthHandler struct {
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	cookieSecure bool
	logger       *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:    us,
		sessionStore: ss,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /register and signs the new user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, h.logger, err, "register")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		writeFailure(w, h.logger, err, "register")
		return
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		writeFailure(w, h.logger, err, "register")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), passwordCost)
	if err != nil {
		writeFailure(w, h.logger, err, "register")
		return
	}

	user, err := h.userStore.Create(req.Email, req.Name, string(hash))
	if err != nil {
		writeFailure(w, h.logger, err, "register")
		return
	}

	if !h.startSession(w, user.ID) {
		return
	}
	h.logger.Info("user registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, h.logger, err, "log in")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateStruct(req); err != nil {
		writeFailure(w, h.logger, err, "log in")
		return
	}

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		writeFailure(w, h.logger, err, "log in")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if !h.startSession(w, user.ID) {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, userID int64) bool {
	sess, err := h.sessionStore.Create(userID)
	if err != nil {
		writeFailure(w, h.logger, err, "create session")
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cookieSecure,
	})
	return true
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil && cookie.Value != "" {
		if err := h.sessionStore.Delete(cookie.Value); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cookieSecure,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeFailure(w, h.logger, err, "load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type telegramRequest struct {
	ChatID *int64 `json:"chat_id"`
}

// SetTelegram handles PUT /api/me/telegram. A null chat_id unlinks the chat.
func (h *AuthHandler) SetTelegram(w http.ResponseWriter, r *http.Request) {
	var req telegramRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, h.logger, err, "link telegram")
		return
	}

	user, err := h.userStore.SetTelegramChatID(auth.UserID(r.Context()), req.ChatID)
	if err != nil {
		writeFailure(w, h.logger, err, "link telegram")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
