package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/edgard/widgetbot/internal/chat"
	"github.com/edgard/widgetbot/internal/database"
)

const timeLayout = "2006-01-02 15:04 UTC"

// FormatChatbots renders the chatbot list.
func FormatChatbots(chatbots []database.Chatbot) string {
	if len(chatbots) == 0 {
		return "🤖 No chatbots yet."
	}
	var sb strings.Builder
	sb.WriteString("🤖 Chatbots:\n")
	for _, c := range chatbots {
		fmt.Fprintf(&sb, "#%d %s", c.ID, c.Name)
		if c.OwnerID != "" {
			fmt.Fprintf(&sb, " (owner %s)", c.OwnerID)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatSessions renders the sessions of one chatbot.
func FormatSessions(chatbotID int64, sessions []database.SessionSummary) string {
	if len(sessions) == 0 {
		return fmt.Sprintf("💬 Chatbot #%d has no sessions yet.", chatbotID)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "💬 Sessions of chatbot #%d:\n", chatbotID)
	for _, s := range sessions {
		fmt.Fprintf(&sb, "#%d %s <%s> · %d messages · %s\n",
			s.ID, s.GuestName, s.GuestEmail, s.MessageCount, formatTime(s.CreatedAt))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatTranscript renders a full conversation.
func FormatTranscript(t *chat.Transcript) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📜 Session #%d · %s\n👤 %s <%s> · %s\n",
		t.Session.ID, t.ChatbotName, t.Guest.Name, t.Guest.Email, formatTime(t.Session.CreatedAt))
	for _, m := range t.Messages {
		speaker := "🤖 " + t.ChatbotName
		if m.Sender == database.SenderUser {
			speaker = "👤 " + t.Guest.Name
		}
		fmt.Fprintf(&sb, "\n%s: %s", speaker, m.Content)
	}
	return sb.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
