package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"

	"github.com/edgard/widgetbot/internal/chat"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return newCommandHandler(deps, "start", func(context.Context, []string) string {
		return deps.Messages.Welcome
	})
}

// NewHelpHandler returns a handler for the /help command.
func NewHelpHandler(deps HandlerDeps) bot.HandlerFunc {
	return newCommandHandler(deps, "help", func(context.Context, []string) string {
		return deps.Messages.Help
	})
}

// NewChatbotsHandler returns a handler for the /chatbots command.
func NewChatbotsHandler(deps HandlerDeps) bot.HandlerFunc {
	return newCommandHandler(deps, "chatbots", chatbotsReply(deps))
}

// NewSessionsHandler returns a handler for the /sessions command.
func NewSessionsHandler(deps HandlerDeps) bot.HandlerFunc {
	return newCommandHandler(deps, "sessions", sessionsReply(deps))
}

// NewTranscriptHandler returns a handler for the /transcript command.
func NewTranscriptHandler(deps HandlerDeps) bot.HandlerFunc {
	return newCommandHandler(deps, "transcript", transcriptReply(deps))
}

func chatbotsReply(deps HandlerDeps) replyFunc {
	return func(ctx context.Context, args []string) string {
		owner := ""
		if len(args) > 0 {
			owner = args[0]
		}
		chatbots, err := deps.Admin.ListChatbots(ctx, owner)
		if err != nil {
			logFailure(ctx, deps.Logger, "chatbots", err)
			return deps.Messages.GeneralError
		}
		return FormatChatbots(chatbots)
	}
}

func sessionsReply(deps HandlerDeps) replyFunc {
	return func(ctx context.Context, args []string) string {
		chatbotID, ok := idArg(args)
		if !ok {
			return fmt.Sprintf(deps.Messages.Usage, "/sessions <chatbot_id>")
		}
		sessions, err := deps.Admin.ListSessions(ctx, chatbotID)
		if err != nil {
			return failureReply(ctx, deps, "sessions", err)
		}
		return FormatSessions(chatbotID, sessions)
	}
}

func transcriptReply(deps HandlerDeps) replyFunc {
	return func(ctx context.Context, args []string) string {
		sessionID, ok := idArg(args)
		if !ok {
			return fmt.Sprintf(deps.Messages.Usage, "/transcript <session_id>")
		}
		transcript, err := deps.Admin.GetTranscript(ctx, sessionID)
		if err != nil {
			return failureReply(ctx, deps, "transcript", err)
		}
		return FormatTranscript(transcript)
	}
}

func failureReply(ctx context.Context, deps HandlerDeps, command string, err error) string {
	if errors.Is(err, chat.ErrConfigNotFound) || errors.Is(err, chat.ErrSessionNotFound) {
		return deps.Messages.NotFound
	}
	logFailure(ctx, deps.Logger, command, err)
	return deps.Messages.GeneralError
}
