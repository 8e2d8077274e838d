// Package main contains the entrypoint for the hosted chat widget service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/widgetbot/internal/app"
	"github.com/edgard/widgetbot/internal/app/tasks"
	"github.com/edgard/widgetbot/internal/chat"
	"github.com/edgard/widgetbot/internal/config"
	"github.com/edgard/widgetbot/internal/database"
	"github.com/edgard/widgetbot/internal/gemini"
	"github.com/edgard/widgetbot/internal/locker"
	"github.com/edgard/widgetbot/internal/logger"
	"github.com/edgard/widgetbot/internal/server"
	"github.com/edgard/widgetbot/internal/telegram"
	"github.com/edgard/widgetbot/internal/telegram/handlers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires every component, blocks until shutdown and returns the exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)
	health := []server.Pinger{store}

	gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	commitMode, err := chat.ParseCommitMode(cfg.Chat.CommitMode)
	if err != nil {
		log.Error("Invalid commit mode", "error", err)
		return 1
	}
	opts := chat.Options{
		Model:            cfg.Gemini.Model,
		CommitMode:       commitMode,
		MaxMessageLength: cfg.Chat.MaxMessageLength,
	}

	if cfg.Redis.Enabled {
		lock, err := locker.New(cfg.Redis, log)
		if err != nil {
			log.Error("Failed to initialize Redis locker", "error", err)
			return 1
		}
		defer lock.Close()
		opts.Locker = lock
		health = append(health, lock)
	}

	svc, err := chat.NewService(store, gemClient, opts, log)
	if err != nil {
		log.Error("Failed to initialize chat service", "error", err)
		return 1
	}
	admin := chat.NewAdmin(store, log)

	components := app.Components{ShutdownTimeout: cfg.HTTP.ShutdownTimeout}
	taskDeps := tasks.TaskDeps{Logger: log, Store: store}

	if cfg.Telegram.Enabled {
		tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, tgbot.WithMiddlewares(logger.Middleware(log)))
		if err != nil {
			log.Error("Failed to create Telegram bot", "error", err)
			return 1
		}

		hDeps := handlers.HandlerDeps{
			Logger:   log,
			Messages: cfg.Telegram.Messages,
			AdminID:  cfg.Telegram.AdminID,
			Admin:    admin,
		}
		if err := telegram.RegisterHandlers(ctx, tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
			log.Error("Failed to register Telegram handlers", "error", err)
			return 1
		}

		notifier := telegram.NewNotifier(tg, cfg.Telegram.AdminID, log)
		if cfg.Telegram.NotifyStart {
			svc.OnSessionStarted(notifier.SessionStarted)
		}
		taskDeps.Notifier = notifier
		components.Listener = tg
		components.Drain = append(components.Drain, notifier.Wait)
	}

	sched, err := app.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(taskDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	components.Scheduler = sched

	router := server.NewRouter(server.Deps{
		Logger: log,
		Chat:   svc,
		Admin:  admin,
		Health: health,
		Config: cfg.HTTP,
	})
	components.Server = server.NewHTTPServer(cfg.HTTP, router)

	log.Info("Starting widget service...", "addr", cfg.HTTP.Addr)
	runErr := app.New(log, components).Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Service stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Service stopped gracefully.")
	return 0
}
