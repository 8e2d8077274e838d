package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edgard/widgetbot/internal/database"
)

const digestWindow = 24 * time.Hour

// newSessionDigestTask reports yesterday's session volume per chatbot.
func newSessionDigestTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "session_digest")

	return func(ctx context.Context) error {
		if deps.Notifier == nil {
			log.WarnContext(ctx, "No notifier configured, skipping session digest")
			return nil
		}

		counts, err := deps.Store.CountSessionsSince(ctx, deps.now().Add(-digestWindow))
		if err != nil {
			return fmt.Errorf("failed to count sessions: %w", err)
		}

		if err := deps.Notifier.Notify(ctx, FormatDigest(counts)); err != nil {
			return fmt.Errorf("failed to send session digest: %w", err)
		}
		log.InfoContext(ctx, "Session digest sent", "chatbots", len(counts))
		return nil
	}
}

// FormatDigest renders session counts as a short report.
func FormatDigest(counts []database.SessionCount) string {
	if len(counts) == 0 {
		return "📊 No new sessions in the last 24h."
	}

	total := 0
	var sb strings.Builder
	for _, c := range counts {
		total += c.Sessions
		fmt.Fprintf(&sb, "\n• #%d %s: %d", c.ChatbotID, c.ChatbotName, c.Sessions)
	}
	return fmt.Sprintf("📊 %d new sessions in the last 24h:%s", total, sb.String())
}
