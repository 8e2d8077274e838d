package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// maxMessageLength is Telegram's limit for a single text message.
const maxMessageLength = 4096

// replyFunc computes the answer to a command from its arguments.
type replyFunc func(ctx context.Context, args []string) string

// newCommandHandler adapts a replyFunc to a bot handler that answers in the
// chat the command came from.
func newCommandHandler(deps HandlerDeps, name string, reply replyFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", name)

		if update.Message == nil {
			log.WarnContext(ctx, "Handler received update without message", "update_id", update.ID)
			return
		}
		chatID := update.Message.Chat.ID

		text := truncate(reply(ctx, commandArgs(update.Message.Text)), maxMessageLength)
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", chatID)
			return
		}
		log.DebugContext(ctx, "Reply sent", "chat_id", chatID)
	}
}

// commandArgs returns the words following the command itself.
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

// idArg parses the first argument as a positive id.
func idArg(args []string) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	const ellipsis = "\n…"
	cut := maxLen - len(ellipsis)
	// Back off to a rune boundary.
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}

func logFailure(ctx context.Context, log *slog.Logger, what string, err error) {
	log.ErrorContext(ctx, "Command failed", "command", what, "error", err)
}
