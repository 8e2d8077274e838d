package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Options configures a Service.
type Options struct {
	Model      string
	CommitMode CommitMode
	// Locker serializes turns of a session. Nil leaves concurrent turns unserialized.
	Locker Locker
	// MaxMessageLength bounds guest messages in runes. Zero disables the check.
	MaxMessageLength int
}

// Service runs the conversation turn pipeline.
type Service struct {
	store      Store
	assembler  *Assembler
	dispatcher *Dispatcher
	committer  *Committer
	locker     Locker
	maxLength  int
	logger     *slog.Logger

	onSessionStarted []func(context.Context, SessionStarted)
}

// NewService wires the pipeline components around store and completer.
func NewService(store Store, completer Completer, opts Options, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("chat service requires a store")
	}
	if completer == nil {
		return nil, fmt.Errorf("chat service requires a completer")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("chat service requires a model name")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "chat")

	committer, err := NewCommitter(store, opts.CommitMode)
	if err != nil {
		return nil, err
	}

	return &Service{
		store:      store,
		assembler:  NewAssembler(store),
		dispatcher: NewDispatcher(completer, opts.Model, logger),
		committer:  committer,
		locker:     opts.Locker,
		maxLength:  opts.MaxMessageLength,
		logger:     logger,
	}, nil
}

// OnSessionStarted registers fn to run after every successful StartSession.
// It must be called before the service handles requests.
func (s *Service) OnSessionStarted(fn func(context.Context, SessionStarted)) {
	s.onSessionStarted = append(s.onSessionStarted, fn)
}

// SendMessage runs one guest turn: assemble, dispatch, commit. Work continues
// after ctx is cancelled so that an abandoned request still lands its writes.
func (s *Service) SendMessage(ctx context.Context, req TurnRequest) (TurnResult, error) {
	if err := s.validate(req); err != nil {
		return TurnResult{}, err
	}
	ctx = context.WithoutCancel(ctx)

	if s.locker != nil {
		release, err := s.lock(ctx, req.SessionID)
		if err != nil {
			return TurnResult{}, err
		}
		defer release()
	}

	entries, err := s.assembler.AssembleContext(ctx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "Context assembly failed", "session_id", req.SessionID, "chatbot_id", req.ChatbotID, "error", err)
		return TurnResult{}, err
	}

	reply, err := s.dispatcher.Dispatch(ctx, entries)
	if err != nil {
		return TurnResult{}, err
	}

	result, err := s.committer.Commit(ctx, req.SessionID, req.Content, reply)
	if err != nil {
		s.logger.ErrorContext(ctx, "Turn commit failed", "session_id", req.SessionID, "error", err)
		return TurnResult{}, err
	}

	s.logger.DebugContext(ctx, "Turn committed", "session_id", req.SessionID, "message_id", result.ID, "context_entries", len(entries))
	return result, nil
}

func (s *Service) validate(req TurnRequest) error {
	const op = "send_message"
	switch {
	case req.SessionID <= 0:
		return invalidRequest(op, "chat_session_id is required")
	case req.ChatbotID <= 0:
		return invalidRequest(op, "chatbot_id is required")
	case strings.TrimSpace(req.Content) == "":
		return invalidRequest(op, "content is required")
	case s.maxLength > 0 && len([]rune(req.Content)) > s.maxLength:
		return invalidRequest(op, fmt.Sprintf("content exceeds %d characters", s.maxLength))
	}
	return nil
}

func (s *Service) lock(ctx context.Context, sessionID int64) (func(), error) {
	const op = "send_message"
	release, ok, err := s.locker.TryLock(ctx, "session:"+strconv.FormatInt(sessionID, 10))
	if err != nil {
		s.logger.ErrorContext(ctx, "Session lock unavailable", "session_id", sessionID, "error", err)
		return nil, newError(KindSessionBusy, op, "session lock unavailable", err)
	}
	if !ok {
		return nil, newError(KindSessionBusy, op, "another message is being processed for this session", nil)
	}
	return release, nil
}
