package chat

import (
	"context"
	"fmt"

	"github.com/edgard/widgetbot/internal/database"
)

// CommitMode selects how the two messages of a turn are written.
type CommitMode string

const (
	// CommitSequential writes the guest message, then the reply. A failure of
	// the second write leaves the guest message stored without a reply.
	CommitSequential CommitMode = "sequential"
	// CommitTransactional writes both messages in one transaction.
	CommitTransactional CommitMode = "transactional"
)

// ParseCommitMode validates a configured commit mode. Empty means sequential.
func ParseCommitMode(s string) (CommitMode, error) {
	switch CommitMode(s) {
	case "", CommitSequential:
		return CommitSequential, nil
	case CommitTransactional:
		return CommitTransactional, nil
	default:
		return "", fmt.Errorf("unknown commit mode %q", s)
	}
}

// Committer persists a completed turn.
type Committer struct {
	store Store
	mode  CommitMode
}

// NewCommitter creates a Committer. Transactional mode requires store to
// implement TurnStore.
func NewCommitter(store Store, mode CommitMode) (*Committer, error) {
	if mode == CommitTransactional {
		if _, ok := store.(TurnStore); !ok {
			return nil, fmt.Errorf("store %T cannot write turns transactionally", store)
		}
	}
	if mode == "" {
		mode = CommitSequential
	}
	return &Committer{store: store, mode: mode}, nil
}

// Commit stores the guest message and then the reply, and returns the reply
// with its persisted id.
func (c *Committer) Commit(ctx context.Context, sessionID int64, guestContent, reply string) (TurnResult, error) {
	const op = "commit_turn"

	user := &database.Message{ChatSessionID: sessionID, Sender: database.SenderUser, Content: guestContent}
	ai := &database.Message{ChatSessionID: sessionID, Sender: database.SenderAI, Content: reply}

	if c.mode == CommitTransactional {
		if err := c.store.(TurnStore).InsertTurn(ctx, user, ai); err != nil {
			return TurnResult{}, persistence(op, err)
		}
		return TurnResult{ID: ai.ID, Content: ai.Content}, nil
	}

	if err := c.store.InsertMessage(ctx, user); err != nil {
		return TurnResult{}, persistence(op, err)
	}
	if err := c.store.InsertMessage(ctx, ai); err != nil {
		return TurnResult{}, persistence(op, fmt.Errorf("guest message %d stored without reply: %w", user.ID, err))
	}
	return TurnResult{ID: ai.ID, Content: ai.Content}, nil
}
