package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/edgard/widgetbot/internal/database"
)

// AdminStore is the storage needed by chatbot administration and transcript review.
type AdminStore interface {
	CreateChatbot(ctx context.Context, chatbot *database.Chatbot) error
	GetChatbot(ctx context.Context, chatbotID int64) (*database.Chatbot, error)
	ListChatbots(ctx context.Context, ownerID string) ([]database.Chatbot, error)
	RenameChatbot(ctx context.Context, chatbotID int64, name string) error
	DeleteChatbot(ctx context.Context, chatbotID int64) error
	AddCharacteristic(ctx context.Context, characteristic *database.Characteristic) error
	RemoveCharacteristic(ctx context.Context, characteristicID int64) error
	FetchChatbotConfig(ctx context.Context, chatbotID int64) (*database.ChatbotConfig, error)
	FetchSessionMessages(ctx context.Context, sessionID int64) ([]database.Message, error)
	GetSession(ctx context.Context, sessionID int64) (*database.ChatSession, error)
	GetGuest(ctx context.Context, guestID int64) (*database.Guest, error)
	ListSessions(ctx context.Context, chatbotID int64) ([]database.SessionSummary, error)
}

// Transcript is a full session as shown to operators.
type Transcript struct {
	Session     database.ChatSession `json:"session"`
	ChatbotName string               `json:"chatbot_name"`
	Guest       database.Guest       `json:"guest"`
	Messages    []database.Message   `json:"messages"`
}

// Admin implements operator operations on chatbots and their sessions.
type Admin struct {
	store  AdminStore
	logger *slog.Logger
}

// NewAdmin creates an Admin over store.
func NewAdmin(store AdminStore, logger *slog.Logger) *Admin {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Admin{store: store, logger: logger.With("component", "admin")}
}

func (a *Admin) CreateChatbot(ctx context.Context, ownerID, name string) (*database.Chatbot, error) {
	const op = "create_chatbot"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidRequest(op, "name is required")
	}

	chatbot := &database.Chatbot{OwnerID: strings.TrimSpace(ownerID), Name: name}
	if err := a.store.CreateChatbot(ctx, chatbot); err != nil {
		return nil, persistence(op, err)
	}
	a.logger.InfoContext(ctx, "Chatbot created", "chatbot_id", chatbot.ID, "owner_id", chatbot.OwnerID)
	return chatbot, nil
}

func (a *Admin) RenameChatbot(ctx context.Context, chatbotID int64, name string) (*database.Chatbot, error) {
	const op = "rename_chatbot"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidRequest(op, "name is required")
	}
	if err := a.store.RenameChatbot(ctx, chatbotID, name); err != nil {
		return nil, storeError(op, err, KindConfigNotFound, "Chatbot not found")
	}
	chatbot, err := a.store.GetChatbot(ctx, chatbotID)
	if err != nil {
		return nil, storeError(op, err, KindConfigNotFound, "Chatbot not found")
	}
	return chatbot, nil
}

func (a *Admin) DeleteChatbot(ctx context.Context, chatbotID int64) error {
	const op = "delete_chatbot"
	if err := a.store.DeleteChatbot(ctx, chatbotID); err != nil {
		return storeError(op, err, KindConfigNotFound, "Chatbot not found")
	}
	a.logger.InfoContext(ctx, "Chatbot deleted", "chatbot_id", chatbotID)
	return nil
}

func (a *Admin) AddCharacteristic(ctx context.Context, chatbotID int64, content string) (*database.Characteristic, error) {
	const op = "add_characteristic"
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidRequest(op, "content is required")
	}
	if _, err := a.store.GetChatbot(ctx, chatbotID); err != nil {
		return nil, storeError(op, err, KindConfigNotFound, "Chatbot not found")
	}

	characteristic := &database.Characteristic{ChatbotID: chatbotID, Content: content}
	if err := a.store.AddCharacteristic(ctx, characteristic); err != nil {
		return nil, persistence(op, err)
	}
	return characteristic, nil
}

// RemoveCharacteristic succeeds whether or not the characteristic exists.
func (a *Admin) RemoveCharacteristic(ctx context.Context, characteristicID int64) error {
	if err := a.store.RemoveCharacteristic(ctx, characteristicID); err != nil {
		return persistence("remove_characteristic", err)
	}
	return nil
}

func (a *Admin) ListChatbots(ctx context.Context, ownerID string) ([]database.Chatbot, error) {
	chatbots, err := a.store.ListChatbots(ctx, strings.TrimSpace(ownerID))
	if err != nil {
		return nil, persistence("list_chatbots", err)
	}
	return chatbots, nil
}

// GetChatbot returns a chatbot with its characteristics.
func (a *Admin) GetChatbot(ctx context.Context, chatbotID int64) (*database.ChatbotConfig, error) {
	cfg, err := a.store.FetchChatbotConfig(ctx, chatbotID)
	if err != nil {
		return nil, storeError("get_chatbot", err, KindConfigNotFound, "Chatbot not found")
	}
	return cfg, nil
}

// ListSessions returns the sessions of a chatbot, newest first.
func (a *Admin) ListSessions(ctx context.Context, chatbotID int64) ([]database.SessionSummary, error) {
	const op = "list_sessions"
	if _, err := a.store.GetChatbot(ctx, chatbotID); err != nil {
		return nil, storeError(op, err, KindConfigNotFound, "Chatbot not found")
	}
	sessions, err := a.store.ListSessions(ctx, chatbotID)
	if err != nil {
		return nil, persistence(op, err)
	}
	return sessions, nil
}

// SessionMessages returns the messages of an existing session in creation order.
func (a *Admin) SessionMessages(ctx context.Context, sessionID int64) ([]database.Message, error) {
	const op = "session_messages"
	if _, err := a.store.GetSession(ctx, sessionID); err != nil {
		return nil, storeError(op, err, KindSessionNotFound, "Session not found")
	}
	messages, err := a.store.FetchSessionMessages(ctx, sessionID)
	if err != nil {
		return nil, persistence(op, err)
	}
	return messages, nil
}

func (a *Admin) GetTranscript(ctx context.Context, sessionID int64) (*Transcript, error) {
	const op = "get_transcript"
	session, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, storeError(op, err, KindSessionNotFound, "Session not found")
	}
	chatbot, err := a.store.GetChatbot(ctx, session.ChatbotID)
	if err != nil {
		return nil, storeError(op, err, KindConfigNotFound, "Chatbot not found")
	}
	guest, err := a.store.GetGuest(ctx, session.GuestID)
	if err != nil {
		return nil, persistence(op, err)
	}
	messages, err := a.store.FetchSessionMessages(ctx, sessionID)
	if err != nil {
		return nil, persistence(op, err)
	}
	return &Transcript{Session: *session, ChatbotName: chatbot.Name, Guest: *guest, Messages: messages}, nil
}

func storeError(op string, err error, notFound Kind, msg string) error {
	if errors.Is(err, database.ErrNotFound) {
		return newError(notFound, op, msg, err)
	}
	return persistence(op, err)
}
