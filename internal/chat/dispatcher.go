package chat

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Dispatcher sends an assembled context to the model and validates the reply.
type Dispatcher struct {
	completer Completer
	model     string
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher that always requests model.
func NewDispatcher(completer Completer, model string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{completer: completer, model: model, logger: logger.With("component", "dispatcher")}
}

// Dispatch returns the trimmed text of the first candidate. It never retries.
func (d *Dispatcher) Dispatch(ctx context.Context, entries []Entry) (string, error) {
	const op = "dispatch_completion"

	completion, err := d.completer.Complete(ctx, d.model, entries)
	if err != nil {
		d.logger.ErrorContext(ctx, "Completion call failed", "model", d.model, "error", err)
		return "", newError(KindCompletionUnavailable, op, "completion service unavailable", err)
	}

	if len(completion.Candidates) == 0 {
		d.logger.WarnContext(ctx, "Completion returned no candidates", "model", d.model)
		return "", newError(KindEmptyCompletion, op, "model returned no reply", nil)
	}

	reply := strings.TrimSpace(completion.Candidates[0])
	if reply == "" {
		d.logger.WarnContext(ctx, "Completion returned empty text", "model", d.model)
		return "", newError(KindEmptyCompletion, op, "model returned no reply", nil)
	}
	return reply, nil
}
