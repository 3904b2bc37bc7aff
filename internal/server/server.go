package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/praneethkvs/Memento/internal/auth"
	"github.com/praneethkvs/Memento/internal/greeting"
	"github.com/praneethkvs/Memento/internal/handler"
	"github.com/praneethkvs/Memento/internal/metrics"
	"github.com/praneethkvs/Memento/internal/middleware"
	"github.com/praneethkvs/Memento/internal/push"
	"github.com/praneethkvs/Memento/internal/store"
	ws "github.com/praneethkvs/Memento/internal/websocket"
)

const (
	loginLimit    = 10
	generateLimit = 5
	limitWindow   = time.Minute
)

// Options carries what the server needs beyond the SQLite handle.
type Options struct {
	Events       store.EventRepository
	Messages     store.MessageRepository
	Generator    greeting.Generator
	Push         *push.Service
	Metrics      *metrics.Metrics
	Clock        handler.Clock
	CookieSecure bool
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	authH        *handler.AuthHandler
	eventH       *handler.EventHandler
	messageH     *handler.MessageHandler
	pushH        *handler.PushHandler
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	pushStore := store.NewPushStore(db)

	pushSvc := opts.Push
	if pushSvc == nil {
		pushSvc = push.NewService("", "", "")
	}
	gen := opts.Generator
	if gen == nil {
		gen = greeting.NewGeminiClient("")
	}
	greeter := greeting.NewService(gen, opts.Messages, opts.Metrics, logger.With("component", "greeting"))

	return &Server{
		db:           db,
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, sessionStore, opts.CookieSecure, logger.With("component", "auth")),
		eventH:       handler.NewEventHandler(opts.Events, hub, opts.Clock, logger.With("component", "event")),
		messageH:     handler.NewMessageHandler(opts.Events, opts.Messages, greeter, hub, opts.Clock, logger.With("component", "message")),
		pushH:        handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(),
		metrics:      opts.Metrics,
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("GET /health", s.healthHandler)
	if s.metrics != nil {
		outerMux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	var h http.Handler = outerMux
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	h = middleware.Metrics(s.metrics)(h)
	return middleware.RequestID(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return "ip:" + middleware.RealIP(r)
	}
	return middleware.RateLimit(s.rateLimiter, keyFunc, loginLimit, limitWindow)(h).ServeHTTP
}

func (s *Server) perUserLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return "user:" + strconv.FormatInt(auth.UserID(r.Context()), 10)
	}
	return middleware.RateLimit(s.rateLimiter, keyFunc, generateLimit, limitWindow)(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("PUT /api/me/telegram", s.authH.SetTelegram)

	// Events
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("GET /api/events/stats", s.eventH.Stats)
	mux.HandleFunc("GET /api/events/upcoming", s.eventH.Upcoming)
	mux.HandleFunc("GET /api/events/calendar", s.eventH.Calendar)
	mux.HandleFunc("GET /api/events/calendar.ics", s.eventH.ICS)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.HandleFunc("PUT /api/events/{id}", s.eventH.Replace)
	mux.HandleFunc("PATCH /api/events/{id}", s.eventH.Patch)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)

	// Greeting messages
	mux.HandleFunc("GET /api/events/{id}/message", s.messageH.Get)
	mux.HandleFunc("DELETE /api/events/{id}/message", s.messageH.Delete)
	mux.HandleFunc("POST /api/events/{id}/generate-message", s.perUserLimited(s.messageH.Generate))

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
