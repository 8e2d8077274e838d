package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edgard/widgetbot/internal/chat"
	"github.com/edgard/widgetbot/internal/database"
)

// ChatService runs guest conversations.
type ChatService interface {
	StartSession(ctx context.Context, guestName, guestEmail string, chatbotID int64) (int64, error)
	SendMessage(ctx context.Context, req chat.TurnRequest) (chat.TurnResult, error)
}

type guestHandler struct {
	chat     ChatService
	admin    AdminService
	log      *slog.Logger
	maxBytes int64
}

type chatbotView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type startSessionRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,max=320"`
}

type startSessionResponse struct {
	SessionID int64 `json:"session_id"`
}

type sendMessageRequest struct {
	ChatSessionID int64  `json:"chat_session_id" validate:"required,gt=0"`
	ChatbotID     int64  `json:"chatbot_id" validate:"required,gt=0"`
	Name          string `json:"name" validate:"required"`
	Content       string `json:"content" validate:"required"`
}

func (h *guestHandler) RegisterRoutes(r chi.Router) {
	r.Get("/chatbots/{chatbotID}", h.handleGetChatbot)
	r.Post("/chatbots/{chatbotID}/sessions", h.handleStartSession)
	r.Get("/sessions/{sessionID}/messages", h.handleSessionMessages)
	r.Post("/send-message", h.handleSendMessage)
}

// handleGetChatbot exposes only what the widget needs to render its header.
func (h *guestHandler) handleGetChatbot(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "chatbotID")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	cfg, err := h.admin.GetChatbot(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, chatbotView{ID: cfg.ID, Name: cfg.Name})
}

func (h *guestHandler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "chatbotID")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req startSessionRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	// Sessions are only opened for chatbots that exist.
	if _, err := h.admin.GetChatbot(r.Context(), id); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	sessionID, err := h.chat.StartSession(r.Context(), req.Name, req.Email, id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, startSessionResponse{SessionID: sessionID})
}

func (h *guestHandler) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sessionID")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	messages, err := h.admin.SessionMessages(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if messages == nil {
		messages = []database.Message{}
	}
	respondJSON(w, http.StatusOK, messages)
}

func (h *guestHandler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	result, err := h.chat.SendMessage(r.Context(), chat.TurnRequest{
		SessionID: req.ChatSessionID,
		ChatbotID: req.ChatbotID,
		GuestName: req.Name,
		Content:   req.Content,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
