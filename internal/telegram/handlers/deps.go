// Package handlers contains the operator Telegram bot commands, along with
// their registration logic and middleware.
package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/widgetbot/internal/chat"
	"github.com/edgard/widgetbot/internal/config"
	"github.com/edgard/widgetbot/internal/database"
)

// AdminService is the read side of chatbot administration used by the bot.
type AdminService interface {
	ListChatbots(ctx context.Context, ownerID string) ([]database.Chatbot, error)
	ListSessions(ctx context.Context, chatbotID int64) ([]database.SessionSummary, error)
	GetTranscript(ctx context.Context, sessionID int64) (*chat.Transcript, error)
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Messages config.TelegramMessages
	AdminID  int64
	Admin    AdminService
}
