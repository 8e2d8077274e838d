package chat_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/edgard/widgetbot/internal/chat"
	"github.com/edgard/widgetbot/internal/database"
)

// spyStore is an in-memory chat.Store that counts every write.
type spyStore struct {
	mu sync.Mutex

	configs  map[int64]*database.ChatbotConfig
	messages []database.Message
	guests   []database.Guest
	sessions []database.ChatSession
	nextID   int64

	writes       int
	inserts      int
	failInsertAt int // 1-based InsertMessage call that fails; 0 never fails
	fetchErr     error
}

func newSpyStore() *spyStore {
	return &spyStore{configs: map[int64]*database.ChatbotConfig{}}
}

func (s *spyStore) addChatbot(id int64, name string, facts ...string) {
	cfg := &database.ChatbotConfig{Chatbot: database.Chatbot{ID: id, Name: name}}
	for i, f := range facts {
		cfg.Characteristics = append(cfg.Characteristics, database.Characteristic{ID: int64(i + 1), ChatbotID: id, Content: f})
	}
	s.configs[id] = cfg
}

func (s *spyStore) seed(sessionID int64, sender, content string) {
	s.nextID++
	s.messages = append(s.messages, database.Message{ID: s.nextID, ChatSessionID: sessionID, Sender: sender, Content: content})
}

func (s *spyStore) FetchChatbotConfig(_ context.Context, chatbotID int64) (*database.ChatbotConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	cfg, ok := s.configs[chatbotID]
	if !ok {
		return nil, fmt.Errorf("chatbot %d: %w", chatbotID, database.ErrNotFound)
	}
	return cfg, nil
}

func (s *spyStore) FetchSessionMessages(_ context.Context, sessionID int64) ([]database.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []database.Message
	for _, m := range s.messages {
		if m.ChatSessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *spyStore) InsertMessage(_ context.Context, message *database.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.failInsertAt != 0 && s.inserts == s.failInsertAt {
		return errors.New("disk full")
	}
	s.writes++
	s.nextID++
	message.ID = s.nextID
	message.CreatedAt = time.Now()
	s.messages = append(s.messages, *message)
	return nil
}

func (s *spyStore) InsertTurn(_ context.Context, user, ai *database.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts += 2
	if s.failInsertAt != 0 {
		return errors.New("disk full")
	}
	for _, m := range []*database.Message{user, ai} {
		s.writes++
		s.nextID++
		m.ID = s.nextID
		s.messages = append(s.messages, *m)
	}
	return nil
}

func (s *spyStore) CreateGuest(_ context.Context, guest *database.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	guest.ID = int64(len(s.guests) + 1)
	s.guests = append(s.guests, *guest)
	return nil
}

func (s *spyStore) CreateSession(_ context.Context, session *database.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	session.ID = int64(len(s.sessions) + 100)
	s.sessions = append(s.sessions, *session)
	return nil
}

func (s *spyStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// stubCompleter returns a canned completion and records what it was given.
type stubCompleter struct {
	completion chat.Completion
	err        error

	calls    int
	model    string
	entries  []chat.Entry
	ctxAlive bool
}

func reply(texts ...string) *stubCompleter {
	return &stubCompleter{completion: chat.Completion{Candidates: texts}}
}

func (c *stubCompleter) Complete(ctx context.Context, model string, entries []chat.Entry) (chat.Completion, error) {
	c.calls++
	c.model = model
	c.entries = entries
	c.ctxAlive = ctx.Err() == nil
	return c.completion, c.err
}

// stubLocker grants or refuses every lock.
type stubLocker struct {
	grant    bool
	err      error
	released int
}

func (l *stubLocker) TryLock(context.Context, string) (func(), bool, error) {
	if l.err != nil || !l.grant {
		return nil, false, l.err
	}
	return func() { l.released++ }, true, nil
}
