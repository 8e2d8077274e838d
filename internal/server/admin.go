package server

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edgard/widgetbot/internal/chat"
	"github.com/edgard/widgetbot/internal/database"
)

// AdminService is the operator API over chatbots and transcripts.
type AdminService interface {
	CreateChatbot(ctx context.Context, ownerID, name string) (*database.Chatbot, error)
	RenameChatbot(ctx context.Context, chatbotID int64, name string) (*database.Chatbot, error)
	DeleteChatbot(ctx context.Context, chatbotID int64) error
	AddCharacteristic(ctx context.Context, chatbotID int64, content string) (*database.Characteristic, error)
	RemoveCharacteristic(ctx context.Context, characteristicID int64) error
	ListChatbots(ctx context.Context, ownerID string) ([]database.Chatbot, error)
	GetChatbot(ctx context.Context, chatbotID int64) (*database.ChatbotConfig, error)
	ListSessions(ctx context.Context, chatbotID int64) ([]database.SessionSummary, error)
	SessionMessages(ctx context.Context, sessionID int64) ([]database.Message, error)
	GetTranscript(ctx context.Context, sessionID int64) (*chat.Transcript, error)
}

type adminHandler struct {
	admin    AdminService
	log      *slog.Logger
	maxBytes int64
}

type createChatbotRequest struct {
	OwnerID string `json:"owner_id" validate:"max=200"`
	Name    string `json:"name" validate:"required,max=200"`
}

type renameChatbotRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type addCharacteristicRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

func (h *adminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/chatbots", h.handleListChatbots)
	r.Post("/chatbots", h.handleCreateChatbot)
	r.Get("/chatbots/{chatbotID}", h.handleGetChatbot)
	r.Patch("/chatbots/{chatbotID}", h.handleRenameChatbot)
	r.Delete("/chatbots/{chatbotID}", h.handleDeleteChatbot)
	r.Post("/chatbots/{chatbotID}/characteristics", h.handleAddCharacteristic)
	r.Delete("/characteristics/{characteristicID}", h.handleRemoveCharacteristic)
	r.Get("/chatbots/{chatbotID}/sessions", h.handleListSessions)
	r.Get("/sessions/{sessionID}", h.handleTranscript)
}

// AdminOnly rejects requests without the shared operator bearer token.
func AdminOnly(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || len(expected) == 0 || subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="widgetbot-admin"`)
				respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Kind: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *adminHandler) handleListChatbots(w http.ResponseWriter, r *http.Request) {
	chatbots, err := h.admin.ListChatbots(r.Context(), r.URL.Query().Get("owner_id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, chatbots)
}

func (h *adminHandler) handleCreateChatbot(w http.ResponseWriter, r *http.Request) {
	var req createChatbotRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	chatbot, err := h.admin.CreateChatbot(r.Context(), req.OwnerID, req.Name)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, chatbot)
}

func (h *adminHandler) handleGetChatbot(w http.ResponseWriter, r *http.Request) {
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
	if cfg.Characteristics == nil {
		cfg.Characteristics = []database.Characteristic{}
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (h *adminHandler) handleRenameChatbot(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "chatbotID")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req renameChatbotRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	chatbot, err := h.admin.RenameChatbot(r.Context(), id, req.Name)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, chatbot)
}

func (h *adminHandler) handleDeleteChatbot(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "chatbotID")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.admin.DeleteChatbot(r.Context(), id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *adminHandler) handleAddCharacteristic(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "chatbotID")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	var req addCharacteristicRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	characteristic, err := h.admin.AddCharacteristic(r.Context(), id, req.Content)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, characteristic)
}

func (h *adminHandler) handleRemoveCharacteristic(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "characteristicID")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.admin.RemoveCharacteristic(r.Context(), id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *adminHandler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "chatbotID")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	sessions, err := h.admin.ListSessions(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (h *adminHandler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sessionID")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	transcript, err := h.admin.GetTranscript(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, transcript)
}
