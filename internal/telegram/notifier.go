package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/widgetbot/internal/chat"
)

const notifyTimeout = 10 * time.Second

// Sender is the part of *bot.Bot used for outgoing messages.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Notifier sends operator notifications to the admin chat.
type Notifier struct {
	sender Sender
	chatID int64
	log    *slog.Logger
	wg     sync.WaitGroup
}

// NewNotifier creates a Notifier writing to chatID.
func NewNotifier(sender Sender, chatID int64, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifier{sender: sender, chatID: chatID, log: log.With("component", "telegram_notifier")}
}

// Notify sends text to the admin chat and waits for the result.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	if _, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{ChatID: n.chatID, Text: text}); err != nil {
		return fmt.Errorf("failed to notify admin chat: %w", err)
	}
	return nil
}

// SessionStarted announces a new guest session without delaying the guest.
func (n *Notifier) SessionStarted(ctx context.Context, s chat.SessionStarted) {
	text := FormatSessionStarted(s)
	ctx = context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		sendCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := n.Notify(sendCtx, text); err != nil {
			n.log.WarnContext(sendCtx, "Session notification failed", "session_id", s.SessionID, "error", err)
		}
	}()
}

// Wait blocks until every pending notification has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// FormatSessionStarted renders the new-session notification.
func FormatSessionStarted(s chat.SessionStarted) string {
	return fmt.Sprintf("🆕 New session #%d on chatbot #%d\n👤 %s <%s>\nUse /transcript %d to follow it.",
		s.SessionID, s.ChatbotID, s.GuestName, s.GuestEmail, s.SessionID)
}
