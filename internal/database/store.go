package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error

	// FetchChatbotConfig returns the chatbot and its characteristics.
	// Returns ErrNotFound if the chatbot does not exist.
	FetchChatbotConfig(ctx context.Context, chatbotID int64) (*ChatbotConfig, error)

	// FetchSessionMessages returns every message of a session in insertion order.
	FetchSessionMessages(ctx context.Context, sessionID int64) ([]Message, error)

	// InsertMessage appends a message and fills in its ID and CreatedAt.
	InsertMessage(ctx context.Context, message *Message) error

	// InsertTurn appends a user message and an ai message in one transaction.
	InsertTurn(ctx context.Context, user, ai *Message) error

	// CreateGuest inserts a guest and fills in its ID and CreatedAt.
	CreateGuest(ctx context.Context, guest *Guest) error

	// CreateSession inserts a chat session and fills in its ID and CreatedAt.
	CreateSession(ctx context.Context, session *ChatSession) error

	CreateChatbot(ctx context.Context, chatbot *Chatbot) error
	GetChatbot(ctx context.Context, chatbotID int64) (*Chatbot, error)
	// ListChatbots returns the chatbots of ownerID, or all chatbots when ownerID is empty.
	ListChatbots(ctx context.Context, ownerID string) ([]Chatbot, error)
	RenameChatbot(ctx context.Context, chatbotID int64, name string) error
	// DeleteChatbot removes a chatbot with its characteristics, sessions and messages.
	DeleteChatbot(ctx context.Context, chatbotID int64) error

	AddCharacteristic(ctx context.Context, characteristic *Characteristic) error
	// RemoveCharacteristic deletes a characteristic. Missing ids are not an error.
	RemoveCharacteristic(ctx context.Context, characteristicID int64) error

	GetSession(ctx context.Context, sessionID int64) (*ChatSession, error)
	GetGuest(ctx context.Context, guestID int64) (*Guest, error)
	// ListSessions returns the sessions of a chatbot, newest first.
	ListSessions(ctx context.Context, chatbotID int64) ([]SessionSummary, error)
	// CountSessionsSince groups sessions created at or after since by chatbot.
	CountSessionsSince(ctx context.Context, since time.Time) ([]SessionCount, error)
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RunSQLMaintenance reclaims space left behind by deleted chatbots and sessions.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Running VACUUM")
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}
	return nil
}

func (s *sqlxStore) FetchChatbotConfig(ctx context.Context, chatbotID int64) (*ChatbotConfig, error) {
	chatbot, err := s.GetChatbot(ctx, chatbotID)
	if err != nil {
		return nil, err
	}

	var characteristics []Characteristic
	query := `
        SELECT id, chatbot_id, content, created_at
        FROM chatbot_characteristics
        WHERE chatbot_id = ?;
    `
	if err := s.db.SelectContext(ctx, &characteristics, query, chatbotID); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching characteristics", "chatbot_id", chatbotID, "error", err)
		return nil, fmt.Errorf("failed to fetch characteristics for chatbot %d: %w", chatbotID, err)
	}

	return &ChatbotConfig{Chatbot: *chatbot, Characteristics: characteristics}, nil
}

func (s *sqlxStore) FetchSessionMessages(ctx context.Context, sessionID int64) ([]Message, error) {
	messages := []Message{}
	query := `
        SELECT id, chat_session_id, sender, content, created_at
        FROM messages
        WHERE chat_session_id = ?
        ORDER BY id ASC;
    `
	if err := s.db.SelectContext(ctx, &messages, query, sessionID); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching session messages", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to fetch messages for session %d: %w", sessionID, err)
	}
	return messages, nil
}

const insertMessageQuery = `
    INSERT INTO messages (chat_session_id, sender, content, created_at)
    VALUES (:chat_session_id, :sender, :content, :created_at);
`

func (s *sqlxStore) InsertMessage(ctx context.Context, message *Message) error {
	if err := validateMessage(message); err != nil {
		return err
	}
	message.CreatedAt = s.now()

	id, err := insertNamed(ctx, s.db, insertMessageQuery, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error inserting message",
			"session_id", message.ChatSessionID, "sender", message.Sender, "error", err)
		return fmt.Errorf("failed to insert %s message (session %d): %w", message.Sender, message.ChatSessionID, err)
	}
	message.ID = id

	s.logger.DebugContext(ctx, "Message inserted",
		"session_id", message.ChatSessionID, "sender", message.Sender, "message_id", id)
	return nil
}

func (s *sqlxStore) InsertTurn(ctx context.Context, user, ai *Message) error {
	for _, m := range []*Message{user, ai} {
		if err := validateMessage(m); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for turn", "session_id", user.ChatSessionID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	for _, m := range []*Message{user, ai} {
		m.CreatedAt = s.now()
		id, err := insertNamed(ctx, tx, insertMessageQuery, m)
		if err != nil {
			s.logger.ErrorContext(ctx, "Error inserting turn message",
				"session_id", m.ChatSessionID, "sender", m.Sender, "error", err)
			return fmt.Errorf("failed to insert %s message (session %d): %w", m.Sender, m.ChatSessionID, err)
		}
		m.ID = id
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit turn", "session_id", user.ChatSessionID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Turn inserted", "session_id", user.ChatSessionID, "user_message_id", user.ID, "ai_message_id", ai.ID)
	return nil
}

func (s *sqlxStore) CreateGuest(ctx context.Context, guest *Guest) error {
	if guest == nil {
		return errors.New("cannot create nil guest")
	}
	guest.CreatedAt = s.now()

	query := `
        INSERT INTO guests (name, email, created_at)
        VALUES (:name, :email, :created_at);
    `
	id, err := insertNamed(ctx, s.db, query, guest)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating guest", "error", err)
		return fmt.Errorf("failed to create guest: %w", err)
	}
	guest.ID = id
	return nil
}

func (s *sqlxStore) CreateSession(ctx context.Context, session *ChatSession) error {
	if session == nil {
		return errors.New("cannot create nil session")
	}
	session.CreatedAt = s.now()

	query := `
        INSERT INTO chat_sessions (chatbot_id, guest_id, created_at)
        VALUES (:chatbot_id, :guest_id, :created_at);
    `
	id, err := insertNamed(ctx, s.db, query, session)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating session",
			"chatbot_id", session.ChatbotID, "guest_id", session.GuestID, "error", err)
		return fmt.Errorf("failed to create session for chatbot %d: %w", session.ChatbotID, err)
	}
	session.ID = id
	return nil
}

func (s *sqlxStore) CreateChatbot(ctx context.Context, chatbot *Chatbot) error {
	if chatbot == nil {
		return errors.New("cannot create nil chatbot")
	}
	chatbot.CreatedAt = s.now()

	query := `
        INSERT INTO chatbots (owner_id, name, created_at)
        VALUES (:owner_id, :name, :created_at);
    `
	id, err := insertNamed(ctx, s.db, query, chatbot)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating chatbot", "owner_id", chatbot.OwnerID, "error", err)
		return fmt.Errorf("failed to create chatbot: %w", err)
	}
	chatbot.ID = id
	return nil
}

func (s *sqlxStore) GetChatbot(ctx context.Context, chatbotID int64) (*Chatbot, error) {
	var chatbot Chatbot
	query := `SELECT id, owner_id, name, created_at FROM chatbots WHERE id = ?;`
	if err := s.db.GetContext(ctx, &chatbot, query, chatbotID); err != nil {
		return nil, s.lookupError(ctx, err, "chatbot", chatbotID)
	}
	return &chatbot, nil
}

func (s *sqlxStore) ListChatbots(ctx context.Context, ownerID string) ([]Chatbot, error) {
	chatbots := []Chatbot{}
	var err error
	if ownerID == "" {
		err = s.db.SelectContext(ctx, &chatbots,
			`SELECT id, owner_id, name, created_at FROM chatbots ORDER BY id ASC;`)
	} else {
		err = s.db.SelectContext(ctx, &chatbots,
			`SELECT id, owner_id, name, created_at FROM chatbots WHERE owner_id = ? ORDER BY id ASC;`, ownerID)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing chatbots", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to list chatbots: %w", err)
	}
	return chatbots, nil
}

func (s *sqlxStore) RenameChatbot(ctx context.Context, chatbotID int64, name string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE chatbots SET name = ? WHERE id = ?;`, name, chatbotID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error renaming chatbot", "chatbot_id", chatbotID, "error", err)
		return fmt.Errorf("failed to rename chatbot %d: %w", chatbotID, err)
	}
	return requireAffected(result, "chatbot", chatbotID)
}

func (s *sqlxStore) DeleteChatbot(ctx context.Context, chatbotID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	// Guests are not owned by the chatbot row, so they are collected before
	// the cascade removes the sessions that reference them.
	var guestIDs []int64
	if err := tx.SelectContext(ctx, &guestIDs,
		`SELECT guest_id FROM chat_sessions WHERE chatbot_id = ?;`, chatbotID); err != nil {
		return fmt.Errorf("failed to collect guests of chatbot %d: %w", chatbotID, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM chatbots WHERE id = ?;`, chatbotID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting chatbot", "chatbot_id", chatbotID, "error", err)
		return fmt.Errorf("failed to delete chatbot %d: %w", chatbotID, err)
	}
	if err := requireAffected(result, "chatbot", chatbotID); err != nil {
		return err
	}

	if len(guestIDs) > 0 {
		query, args, err := sqlx.In(`DELETE FROM guests WHERE id IN (?);`, guestIDs)
		if err != nil {
			return fmt.Errorf("failed to build guest cleanup query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to delete guests of chatbot %d: %w", chatbotID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.InfoContext(ctx, "Chatbot deleted", "chatbot_id", chatbotID, "guests_removed", len(guestIDs))
	return nil
}

func (s *sqlxStore) AddCharacteristic(ctx context.Context, characteristic *Characteristic) error {
	if characteristic == nil {
		return errors.New("cannot add nil characteristic")
	}
	characteristic.CreatedAt = s.now()

	query := `
        INSERT INTO chatbot_characteristics (chatbot_id, content, created_at)
        VALUES (:chatbot_id, :content, :created_at);
    `
	id, err := insertNamed(ctx, s.db, query, characteristic)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error adding characteristic", "chatbot_id", characteristic.ChatbotID, "error", err)
		return fmt.Errorf("failed to add characteristic to chatbot %d: %w", characteristic.ChatbotID, err)
	}
	characteristic.ID = id
	return nil
}

func (s *sqlxStore) RemoveCharacteristic(ctx context.Context, characteristicID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chatbot_characteristics WHERE id = ?;`, characteristicID); err != nil {
		s.logger.ErrorContext(ctx, "Error removing characteristic", "characteristic_id", characteristicID, "error", err)
		return fmt.Errorf("failed to remove characteristic %d: %w", characteristicID, err)
	}
	return nil
}

func (s *sqlxStore) GetSession(ctx context.Context, sessionID int64) (*ChatSession, error) {
	var session ChatSession
	query := `SELECT id, chatbot_id, guest_id, created_at FROM chat_sessions WHERE id = ?;`
	if err := s.db.GetContext(ctx, &session, query, sessionID); err != nil {
		return nil, s.lookupError(ctx, err, "session", sessionID)
	}
	return &session, nil
}

func (s *sqlxStore) GetGuest(ctx context.Context, guestID int64) (*Guest, error) {
	var guest Guest
	query := `SELECT id, name, email, created_at FROM guests WHERE id = ?;`
	if err := s.db.GetContext(ctx, &guest, query, guestID); err != nil {
		return nil, s.lookupError(ctx, err, "guest", guestID)
	}
	return &guest, nil
}

func (s *sqlxStore) ListSessions(ctx context.Context, chatbotID int64) ([]SessionSummary, error) {
	sessions := []SessionSummary{}
	query := `
        SELECT s.id, s.chatbot_id, s.guest_id, s.created_at,
               g.name AS guest_name, g.email AS guest_email,
               (SELECT COUNT(*) FROM messages m WHERE m.chat_session_id = s.id) AS message_count
        FROM chat_sessions s
        JOIN guests g ON g.id = s.guest_id
        WHERE s.chatbot_id = ?
        ORDER BY s.created_at DESC, s.id DESC;
    `
	if err := s.db.SelectContext(ctx, &sessions, query, chatbotID); err != nil {
		s.logger.ErrorContext(ctx, "Error listing sessions", "chatbot_id", chatbotID, "error", err)
		return nil, fmt.Errorf("failed to list sessions for chatbot %d: %w", chatbotID, err)
	}
	return sessions, nil
}

func (s *sqlxStore) CountSessionsSince(ctx context.Context, since time.Time) ([]SessionCount, error) {
	counts := []SessionCount{}
	query := `
        SELECT c.id AS chatbot_id, c.name AS chatbot_name, COUNT(s.id) AS session_count
        FROM chatbots c
        JOIN chat_sessions s ON s.chatbot_id = c.id
        WHERE s.created_at >= ?
        GROUP BY c.id, c.name
        ORDER BY session_count DESC, c.id ASC;
    `
	if err := s.db.SelectContext(ctx, &counts, query, since.UTC()); err != nil {
		s.logger.ErrorContext(ctx, "Error counting sessions", "since", since, "error", err)
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	return counts, nil
}

// lookupError maps single-row lookup failures onto ErrNotFound or a wrapped error.
func (s *sqlxStore) lookupError(ctx context.Context, err error, entity string, id int64) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		s.logger.ErrorContext(ctx, "Error fetching "+entity, "id", id, "error", err)
		return fmt.Errorf("failed to fetch %s %d: %w", entity, id, err)
	}
}

// namedExecer is satisfied by both *sqlx.DB and *sqlx.Tx.
type namedExecer interface {
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

func insertNamed(ctx context.Context, ex namedExecer, query string, arg any) (int64, error) {
	result, err := ex.NamedExecContext(ctx, query, arg)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read last insert id: %w", err)
	}
	return id, nil
}

func requireAffected(result sql.Result, entity string, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return nil
}

func validateMessage(m *Message) error {
	if m == nil {
		return errors.New("cannot insert nil message")
	}
	if m.ChatSessionID == 0 {
		return errors.New("message must have a non-zero chat_session_id")
	}
	if m.Sender != SenderUser && m.Sender != SenderAI {
		return fmt.Errorf("invalid message sender %q", m.Sender)
	}
	return nil
}
