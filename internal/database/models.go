package database

import "time"

// Sender values stored in messages.sender.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Chatbot is an operator-configured persona guests converse with.
type Chatbot struct {
	ID        int64     `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Characteristic is a free-text fact attached to a chatbot and fed into its
// system directive.
type Characteristic struct {
	ID        int64     `db:"id" json:"id"`
	ChatbotID int64     `db:"chatbot_id" json:"chatbot_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatbotConfig is a chatbot together with its characteristics, in the order
// the database returned them.
type ChatbotConfig struct {
	Chatbot
	Characteristics []Characteristic `json:"characteristics"`
}

// Guest is the anonymous visitor identity captured when a session starts.
type Guest struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatSession is one guest conversation with one chatbot.
type ChatSession struct {
	ID        int64     `db:"id" json:"id"`
	ChatbotID int64     `db:"chatbot_id" json:"chatbot_id"`
	GuestID   int64     `db:"guest_id" json:"guest_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Message is a single append-only utterance inside a session.
type Message struct {
	ID            int64     `db:"id" json:"id"`
	ChatSessionID int64     `db:"chat_session_id" json:"chat_session_id"`
	Sender        string    `db:"sender" json:"sender"`
	Content       string    `db:"content" json:"content"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// SessionSummary is a session row joined with its guest and message count.
type SessionSummary struct {
	ID           int64     `db:"id" json:"id"`
	ChatbotID    int64     `db:"chatbot_id" json:"chatbot_id"`
	GuestID      int64     `db:"guest_id" json:"guest_id"`
	GuestName    string    `db:"guest_name" json:"guest_name"`
	GuestEmail   string    `db:"guest_email" json:"guest_email"`
	MessageCount int       `db:"message_count" json:"message_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SessionCount is the number of sessions a chatbot received in a window.
type SessionCount struct {
	ChatbotID   int64  `db:"chatbot_id"`
	ChatbotName string `db:"chatbot_name"`
	Sessions    int    `db:"session_count"`
}
