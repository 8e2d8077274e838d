package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/edgard/widgetbot/internal/database"
)

// characteristicSeparator joins characteristic contents inside the directive.
const characteristicSeparator = " + "

const directiveTemplate = "You are a helpful assistant talking to %s. " +
	"If a generic question is asked which is not relevant to, or in the same scope or domain as, " +
	"the points mentioned in the key information section, kindly inform the user they are only " +
	"allowed to ask about the specified content. Use emojis where possible. " +
	"Here is some key information that you need to be aware of, these are elements you may be asked about: %s"

// Directive renders the system directive for a guest and a set of characteristics.
func Directive(guestName string, characteristics []database.Characteristic) string {
	facts := make([]string, 0, len(characteristics))
	for _, c := range characteristics {
		facts = append(facts, c.Content)
	}
	return fmt.Sprintf(directiveTemplate, guestName, strings.Join(facts, characteristicSeparator))
}

// BuildContext is the pure part of context assembly. The result is the
// directive, then history in the order given, then the new guest message.
func BuildContext(cfg *database.ChatbotConfig, history []database.Message, guestName, content string) []Entry {
	var characteristics []database.Characteristic
	if cfg != nil {
		characteristics = cfg.Characteristics
	}

	entries := make([]Entry, 0, len(history)+2)
	entries = append(entries, Entry{Role: RoleSystem, Name: systemName, Content: Directive(guestName, characteristics)})
	for _, m := range history {
		if m.Sender == database.SenderAI {
			entries = append(entries, Entry{Role: RoleSystem, Name: systemName, Content: m.Content})
			continue
		}
		entries = append(entries, Entry{Role: RoleUser, Name: guestName, Content: m.Content})
	}
	return append(entries, Entry{Role: RoleUser, Name: guestName, Content: content})
}

// Assembler loads chatbot configuration and session history and builds the
// completion context.
type Assembler struct {
	store Store
}

// NewAssembler creates an Assembler reading from store.
func NewAssembler(store Store) *Assembler {
	return &Assembler{store: store}
}

// AssembleContext reads the chatbot config, then the session history, and
// returns the context for req.
func (a *Assembler) AssembleContext(ctx context.Context, req TurnRequest) ([]Entry, error) {
	const op = "assemble_context"

	cfg, err := a.store.FetchChatbotConfig(ctx, req.ChatbotID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, newError(KindConfigNotFound, op, "Chatbot not found", err)
		}
		return nil, persistence(op, err)
	}

	history, err := a.store.FetchSessionMessages(ctx, req.SessionID)
	if err != nil {
		return nil, persistence(op, err)
	}

	return BuildContext(cfg, history, req.GuestName, req.Content), nil
}
