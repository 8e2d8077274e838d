// Package app orchestrates the widget platform's long-running components:
// the HTTP API, the optional Telegram listener and the task scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Listener is a blocking update loop such as *bot.Bot.
type Listener interface {
	Start(ctx context.Context)
}

// Components groups what App runs. Listener and Scheduler are optional.
type Components struct {
	Server          *http.Server
	Listener        Listener
	Scheduler       *Scheduler
	ShutdownTimeout time.Duration
	// Drain runs after every component stopped, e.g. to flush pending notifications.
	Drain []func()
}

// App represents the main application and manages its components' lifecycle.
type App struct {
	logger *slog.Logger
	c      Components
}

// New creates an App.
func New(logger *slog.Logger, c Components) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{logger: logger.With("component", "orchestrator"), c: c}
}

// Run starts every component and blocks until ctx is cancelled or one fails.
func (a *App) Run(ctx context.Context) error {
	if a.c.Server == nil {
		return fmt.Errorf("http server is required")
	}
	ln, err := net.Listen("tcp", a.c.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.c.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run with a caller-provided listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	a.logger.Info("Starting orchestrator...", "addr", ln.Addr().String())

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting HTTP server...")
		if err := a.c.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		if gCtx.Err() == nil {
			return fmt.Errorf("http server stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), a.shutdownTimeout())
		defer cancel()
		if err := a.c.Server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Error shutting down HTTP server", "error", err)
			return fmt.Errorf("http shutdown failed: %w", err)
		}
		return nil
	})

	if a.c.Listener != nil {
		g.Go(func() error {
			a.logger.Info("Starting Telegram bot listener...")
			a.c.Listener.Start(gCtx)
			a.logger.Info("Telegram bot listener stopped.")
			if gCtx.Err() == nil {
				return fmt.Errorf("telegram listener stopped unexpectedly")
			}
			return nil
		})
	}

	if a.c.Scheduler != nil {
		g.Go(func() error {
			if err := a.c.Scheduler.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}
			<-gCtx.Done()
			a.logger.Info("Stopping scheduler...")
			if err := a.c.Scheduler.Stop(); err != nil {
				a.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	err := g.Wait()
	for _, drain := range a.c.Drain {
		drain()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Orchestrator stopped due to error", "error", err)
		return err
	}
	a.logger.Info("Orchestrator stopped gracefully.")
	return nil
}

func (a *App) shutdownTimeout() time.Duration {
	if a.c.ShutdownTimeout > 0 {
		return a.c.ShutdownTimeout
	}
	return 10 * time.Second
}
