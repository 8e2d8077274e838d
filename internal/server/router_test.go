package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/widgetbot/internal/chat"
	"github.com/edgard/widgetbot/internal/config"
	"github.com/edgard/widgetbot/internal/database"
	"github.com/edgard/widgetbot/internal/server"
)

const adminToken = "test-admin-token-0123"

type cannedCompleter struct {
	text string
	err  error
}

func (c *cannedCompleter) Complete(context.Context, string, []chat.Entry) (chat.Completion, error) {
	if c.err != nil {
		return chat.Completion{}, c.err
	}
	return chat.Completion{Candidates: []string{c.text}}, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is closed") }

type testEnv struct {
	handler   http.Handler
	store     database.Store
	completer *cannedCompleter
}

func newTestEnv(t *testing.T, health ...server.Pinger) *testEnv {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	store := database.NewStore(db, nil)

	completer := &cannedCompleter{text: "We're open 9am–5pm! ⏰"}
	svc, err := chat.NewService(store, completer, chat.Options{Model: "test-model", MaxMessageLength: 100}, nil)
	require.NoError(t, err)

	if health == nil {
		health = []server.Pinger{store}
	}
	handler := server.NewRouter(server.Deps{
		Chat:   svc,
		Admin:  chat.NewAdmin(store, nil),
		Health: health,
		Config: config.HTTPConfig{AdminToken: adminToken, MaxBodyBytes: 4096, AllowedOrigins: []string{"*"}},
	})
	return &testEnv{handler: handler, store: store, completer: completer}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (e *testEnv) createChatbot(t *testing.T, name string, facts ...string) int64 {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/admin/chatbots", map[string]string{"owner_id": "owner-1", "name": name}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	chatbot := decode[database.Chatbot](t, rec)
	for _, f := range facts {
		rec := e.do(t, http.MethodPost, "/api/admin/chatbots/"+strconv.FormatInt(chatbot.ID, 10)+"/characteristics",
			map[string]string{"content": f}, true)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	return chatbot.ID
}

func (e *testEnv) startSession(t *testing.T, chatbotID int64, name string) int64 {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/chatbots/"+strconv.FormatInt(chatbotID, 10)+"/sessions",
		map[string]string{"name": name, "email": name + "@example.com"}, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[struct {
		SessionID int64 `json:"session_id"`
	}](t, rec).SessionID
}

func TestStatusForCoversEveryKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind chat.Kind
		want int
	}{
		{chat.KindInvalidRequest, http.StatusBadRequest},
		{chat.KindConfigNotFound, http.StatusNotFound},
		{chat.KindSessionNotFound, http.StatusNotFound},
		{chat.KindSessionBusy, http.StatusConflict},
		{chat.KindEmptyCompletion, http.StatusBadGateway},
		{chat.KindCompletionUnavailable, http.StatusServiceUnavailable},
		{chat.KindPersistence, http.StatusInternalServerError},
		{chat.KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, server.StatusFor(tt.kind))
		})
	}
}

func TestGuestConversationFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	chatbotID := env.createChatbot(t, "Bakery", "We are open 9-5.")

	rec := env.do(t, http.MethodGet, "/api/chatbots/"+strconv.FormatInt(chatbotID, 10), nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":`+strconv.FormatInt(chatbotID, 10)+`,"name":"Bakery"}`, rec.Body.String())

	sessionID := env.startSession(t, chatbotID, "Bob")
	messagesPath := "/api/sessions/" + strconv.FormatInt(sessionID, 10) + "/messages"

	rec = env.do(t, http.MethodGet, messagesPath, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	greeting := decode[[]database.Message](t, rec)
	require.Len(t, greeting, 1)
	assert.Equal(t, "Welcome Bob!\n How can I help you? 😄", greeting[0].Content)

	rec = env.do(t, http.MethodPost, "/api/send-message", map[string]any{
		"chat_session_id": sessionID,
		"chatbot_id":      chatbotID,
		"name":            "Bob",
		"content":         "What are your hours?",
	}, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[chat.TurnResult](t, rec)
	assert.Equal(t, "We're open 9am–5pm! ⏰", result.Content)

	rec = env.do(t, http.MethodGet, messagesPath, nil, false)
	messages := decode[[]database.Message](t, rec)
	require.Len(t, messages, 3)
	assert.Equal(t, result.ID, messages[2].ID)
	assert.Equal(t, database.SenderUser, messages[1].Sender)
}

func TestSendMessageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       any
		completion *cannedCompleter
		wantStatus int
		wantKind   string
	}{
		{
			name:       "missing fields",
			body:       map[string]any{"content": "hi"},
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_request",
		},
		{
			name:       "malformed json",
			body:       `{"chat_session_id": `,
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_request",
		},
		{
			name:       "unknown field",
			body:       map[string]any{"chat_session_id": 1, "chatbot_id": 1, "name": "Bob", "content": "hi", "extra": true},
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_request",
		},
		{
			name:       "unknown chatbot",
			body:       map[string]any{"chat_session_id": 1, "chatbot_id": 999, "name": "Bob", "content": "hi"},
			wantStatus: http.StatusNotFound,
			wantKind:   "config_not_found",
		},
		{
			name:       "empty completion",
			completion: &cannedCompleter{text: "   "},
			wantStatus: http.StatusBadGateway,
			wantKind:   "empty_completion",
		},
		{
			name:       "completion unavailable",
			completion: &cannedCompleter{err: errors.New("upstream 503")},
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   "completion_unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			chatbotID := env.createChatbot(t, "Bakery")
			sessionID := env.startSession(t, chatbotID, "Bob")
			if tt.completion != nil {
				*env.completer = *tt.completion
			}
			body := tt.body
			if body == nil {
				body = map[string]any{"chat_session_id": sessionID, "chatbot_id": chatbotID, "name": "Bob", "content": "hi"}
			}

			rec := env.do(t, http.MethodPost, "/api/send-message", body, false)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantKind, decode[errorBody](t, rec).Kind)

			messages, err := env.store.FetchSessionMessages(context.Background(), sessionID)
			require.NoError(t, err)
			assert.Len(t, messages, 1, "failed turns must not write messages")
		})
	}
}

func TestUnknownChatbotMessage(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/chatbots/12345", nil, false)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Chatbot not found", decode[errorBody](t, rec).Error)

	rec = env.do(t, http.MethodPost, "/api/chatbots/12345/sessions", map[string]string{"name": "Ana", "email": "a@x.com"}, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/chatbots/abc", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/sessions/777/messages", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "session_not_found", decode[errorBody](t, rec).Kind)
}

func TestStartSessionValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	chatbotID := env.createChatbot(t, "Bakery")

	rec := env.do(t, http.MethodPost, "/api/chatbots/"+strconv.FormatInt(chatbotID, 10)+"/sessions",
		map[string]string{"name": "Ana"}, false)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Error, "email")
}

func TestAdminRequiresToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + adminToken},
		{"wrong token", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/chatbots", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAdminChatbotManagement(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	chatbotID := env.createChatbot(t, "Bakery", "Open 9-5")
	path := "/api/admin/chatbots/" + strconv.FormatInt(chatbotID, 10)

	rec := env.do(t, http.MethodPatch, path, map[string]string{"name": "Bread Co"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Bread Co", decode[database.Chatbot](t, rec).Name)

	rec = env.do(t, http.MethodGet, path, nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decode[database.ChatbotConfig](t, rec)
	require.Len(t, cfg.Characteristics, 1)

	rec = env.do(t, http.MethodDelete, "/api/admin/characteristics/"+strconv.FormatInt(cfg.Characteristics[0].ID, 10), nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/admin/characteristics/"+strconv.FormatInt(cfg.Characteristics[0].ID, 10), nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code, "removal is idempotent")

	rec = env.do(t, http.MethodGet, "/api/admin/chatbots?owner_id=owner-1", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]database.Chatbot](t, rec), 1)

	sessionID := env.startSession(t, chatbotID, "Ana")

	rec = env.do(t, http.MethodGet, path+"/sessions", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	sessions := decode[[]database.SessionSummary](t, rec)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Ana", sessions[0].GuestName)

	rec = env.do(t, http.MethodGet, "/api/admin/sessions/"+strconv.FormatInt(sessionID, 10), nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	transcript := decode[chat.Transcript](t, rec)
	assert.Equal(t, "Bread Co", transcript.ChatbotName)
	assert.Len(t, transcript.Messages, 1)

	rec = env.do(t, http.MethodDelete, path, nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, path, nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/chatbots", map[string]string{"name": ""}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/send-message", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
}

func TestCORSAllowList(t *testing.T) {
	t.Parallel()

	h := server.CORS([]string{"https://shop.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for origin, want := range map[string]string{
		"https://shop.example.com": "https://shop.example.com",
		"https://evil.example.com": "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := newTestEnv(t).do(t, http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = newTestEnv(t, failingPinger{}).do(t, http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
