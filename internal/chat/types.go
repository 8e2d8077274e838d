// Package chat implements the conversation turn pipeline of the chat widget:
// session bootstrap, context assembly, completion dispatch and turn commit,
// plus the operator-facing chatbot administration.
package chat

import (
	"context"

	"github.com/edgard/widgetbot/internal/database"
)

// Role tags an entry of the completion context.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// systemName is the name carried by system-role entries.
const systemName = "system"

// Entry is one role-tagged element of the context sent to the model.
type Entry struct {
	Role    Role
	Name    string
	Content string
}

// TurnRequest is one guest message submitted to a session.
type TurnRequest struct {
	SessionID int64
	ChatbotID int64
	GuestName string
	Content   string
}

// TurnResult is the committed model reply returned to the guest.
type TurnResult struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

// Completion holds the candidate texts returned by the model, in rank order.
type Completion struct {
	Candidates []string
}

// Completer is the language model capability.
type Completer interface {
	Complete(ctx context.Context, model string, entries []Entry) (Completion, error)
}

// Store is the storage collaborator of the turn pipeline.
type Store interface {
	FetchChatbotConfig(ctx context.Context, chatbotID int64) (*database.ChatbotConfig, error)
	FetchSessionMessages(ctx context.Context, sessionID int64) ([]database.Message, error)
	InsertMessage(ctx context.Context, message *database.Message) error
	CreateGuest(ctx context.Context, guest *database.Guest) error
	CreateSession(ctx context.Context, session *database.ChatSession) error
}

// TurnStore is implemented by stores that can write both messages of a turn atomically.
type TurnStore interface {
	InsertTurn(ctx context.Context, user, ai *database.Message) error
}

// Locker serializes turns of one session. TryLock reports false when the
// session is already held by another turn.
type Locker interface {
	TryLock(ctx context.Context, key string) (release func(), ok bool, err error)
}
