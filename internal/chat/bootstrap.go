package chat

import (
	"context"
	"fmt"

	"github.com/edgard/widgetbot/internal/database"
)

const greetingTemplate = "Welcome %s!\n How can I help you? 😄"

// Greeting returns the seeded first message of a session.
func Greeting(guestName string) string {
	return fmt.Sprintf(greetingTemplate, guestName)
}

// SessionStarted describes a freshly bootstrapped session.
type SessionStarted struct {
	SessionID  int64
	ChatbotID  int64
	GuestName  string
	GuestEmail string
}

// StartSession creates the guest, the session and the greeting, in that
// order. A failed step aborts without undoing the earlier writes.
func (s *Service) StartSession(ctx context.Context, guestName, guestEmail string, chatbotID int64) (int64, error) {
	const op = "start_session"
	ctx = context.WithoutCancel(ctx)

	guest := &database.Guest{Name: guestName, Email: guestEmail}
	if err := s.store.CreateGuest(ctx, guest); err != nil {
		return 0, persistence(op, err)
	}

	session := &database.ChatSession{ChatbotID: chatbotID, GuestID: guest.ID}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return 0, persistence(op, err)
	}

	greeting := &database.Message{ChatSessionID: session.ID, Sender: database.SenderAI, Content: Greeting(guestName)}
	if err := s.store.InsertMessage(ctx, greeting); err != nil {
		return 0, persistence(op, err)
	}

	s.logger.InfoContext(ctx, "Session started", "session_id", session.ID, "chatbot_id", chatbotID, "guest_id", guest.ID)
	for _, hook := range s.onSessionStarted {
		hook(ctx, SessionStarted{SessionID: session.ID, ChatbotID: chatbotID, GuestName: guestName, GuestEmail: guestEmail})
	}
	return session.ID, nil
}
