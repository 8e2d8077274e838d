package handlers

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// RegisteredHandler holds everything needed to register and document a command.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Description string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands returns every operator command keyed by its slash name.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	adminMiddleware := []tgbot.Middleware{AdminOnly(deps)}
	command := func(pattern, description string, h tgbot.HandlerFunc) RegisteredHandler {
		return RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     pattern,
			Description: description,
			Handler:     h,
			Middleware:  adminMiddleware,
			MatchType:   tgbot.MatchTypeCommandStartOnly,
		}
	}

	return map[string]RegisteredHandler{
		"/start":      command("start", "Show the welcome message", NewStartHandler(deps)),
		"/help":       command("help", "List available commands", NewHelpHandler(deps)),
		"/chatbots":   command("chatbots", "List chatbots", NewChatbotsHandler(deps)),
		"/sessions":   command("sessions", "List guest sessions of a chatbot", NewSessionsHandler(deps)),
		"/transcript": command("transcript", "Show a session transcript", NewTranscriptHandler(deps)),
	}
}

// BotCommands returns the command menu advertised to Telegram clients.
func BotCommands(registered map[string]RegisteredHandler) []models.BotCommand {
	order := []string{"/start", "/help", "/chatbots", "/sessions", "/transcript"}
	commands := make([]models.BotCommand, 0, len(registered))
	for _, name := range order {
		if h, ok := registered[name]; ok {
			commands = append(commands, models.BotCommand{Command: h.Pattern, Description: h.Description})
		}
	}
	return commands
}
