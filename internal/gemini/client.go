// Package gemini implements the chat completion capability on top of Google's Gemini API.
package gemini

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/edgard/widgetbot/internal/chat"
	"github.com/edgard/widgetbot/internal/config"
)

// generator is the part of the genai SDK the client calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements chat.Completer with the genai SDK.
type Client struct {
	models      generator
	log         *slog.Logger
	temperature *float32
}

var _ chat.Completer = (*Client)(nil)

// NewClient creates a Gemini client from configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c := newClient(gi.Models, cfg.Temperature, log)
	c.log.Info("Gemini client initialized", "model", cfg.Model)
	return c, nil
}

func newClient(models generator, temperature float32, log *slog.Logger) *Client {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	t := temperature
	return &Client{
		models:      models,
		log:         log.With("component", "gemini_client"),
		temperature: &t,
	}
}

// Complete sends entries to model and returns the text of every candidate.
// Blocked prompts yield an empty completion rather than an error.
func (c *Client) Complete(ctx context.Context, model string, entries []chat.Entry) (chat.Completion, error) {
	system, contents := BuildContents(entries)
	if len(contents) == 0 {
		return chat.Completion{}, fmt.Errorf("no conversation content to send")
	}

	cfg := &genai.GenerateContentConfig{Temperature: c.temperature}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	c.log.DebugContext(ctx, "Sending completion request", "model", model, "contents", len(contents))
	resp, err := c.models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return chat.Completion{}, fmt.Errorf("gemini API call failed: %w", err)
	}
	if resp == nil {
		return chat.Completion{}, nil
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		c.log.WarnContext(ctx, "Prompt blocked by Gemini", "reason", resp.PromptFeedback.BlockReason)
		return chat.Completion{}, nil
	}

	completion := chat.Completion{Candidates: make([]string, 0, len(resp.Candidates))}
	for _, cand := range resp.Candidates {
		completion.Candidates = append(completion.Candidates, candidateText(cand))
	}
	return completion, nil
}

// BuildContents translates the chat context into Gemini contents. A leading
// system entry becomes the system instruction; later system entries are prior
// assistant replies and are sent with the model role.
func BuildContents(entries []chat.Entry) (string, []*genai.Content) {
	var instruction string
	if len(entries) > 0 && entries[0].Role == chat.RoleSystem {
		instruction = entries[0].Content
		entries = entries[1:]
	}

	contents := make([]*genai.Content, 0, len(entries))
	for _, e := range entries {
		role := genai.RoleUser
		if e.Role == chat.RoleSystem {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(e.Content, role))
	}
	return instruction, contents
}

func candidateText(cand *genai.Candidate) string {
	if cand == nil || cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
