package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/praneethkvs/Memento/internal/greeting"
	"github.com/praneethkvs/Memento/internal/handler"
	"github.com/praneethkvs/Memento/internal/metrics"
	"github.com/praneethkvs/Memento/internal/server"
	"github.com/praneethkvs/Memento/internal/store"
)

const (
	cleanupInterval = time.Hour
	// delivery records older than this can no longer dedupe anything
	deliveryRetention = 400 * 24 * time.Hour
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	a, err := loadApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	m := metrics.New()

	var genOpts []greeting.Option
	if a.cfg.Gemini.Model != "" {
		genOpts = append(genOpts, greeting.WithModel(a.cfg.Gemini.Model))
	}
	if a.cfg.Gemini.BaseURL != "" {
		genOpts = append(genOpts, greeting.WithBaseURL(a.cfg.Gemini.BaseURL))
	}
	gen := greeting.NewGeminiClient(a.cfg.Gemini.APIKey, genOpts...)
	if !gen.Configured() {
		a.logger.Warn("gemini api key not set, message generation disabled")
	}

	srv := server.New(a.db, server.Options{
		Events:       a.events,
		Messages:     a.messages,
		Generator:    gen,
		Push:         a.pushService(),
		Metrics:      m,
		Clock:        handler.NewClock(a.loc),
		CookieSecure: a.cfg.CookieSecure,
	}, a.logger)

	sched, bot, err := a.scheduler(m)
	if err != nil {
		return err
	}
	if err := sched.Start(ctx, a.cfg.ReminderCron); err != nil {
		return err
	}
	defer sched.Stop()
	if bot != nil {
		bot.Start(ctx)
	}

	if a.cfg.Backup.Enabled() {
		backups := a.backupManager()
		if err := backups.Start(ctx, a.cfg.Backup.Schedule); err != nil {
			return err
		}
		defer backups.Stop()
	}

	go runCleanup(ctx, a, srv)

	httpServer := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("memento listening", "addr", httpServer.Addr, "base_url", a.cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// runCleanup prunes expired sessions, idle rate-limit keys and stale
// delivery records until ctx is done.
func runCleanup(ctx context.Context, a *app, srv *server.Server) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	logger := a.logger.With("component", "cleanup")
	deliveries := store.NewReminderLogStore(a.db)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := srv.SessionStore().DeleteExpired(); err != nil {
			logger.Error("delete expired sessions", "error", err)
		} else if n > 0 {
			logger.Info("expired sessions deleted", "count", n)
		}

		srv.RateLimiter().Cleanup(cleanupInterval)

		if n, err := deliveries.Cleanup(time.Now().Add(-deliveryRetention)); err != nil {
			logger.Error("prune reminder deliveries", "error", err)
		} else if n > 0 {
			logger.Debug("reminder deliveries pruned", "count", n)
		}
	}
}
