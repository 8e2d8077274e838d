// Package tasks implements the scheduled maintenance and reporting jobs.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/widgetbot/internal/database"
)

// Notifier delivers a text report to the operator.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// TaskDeps contains all dependencies required by scheduled tasks.
// Notifier may be nil when no operator channel is configured.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Notifier Notifier
	Now      func() time.Time
}

func (d TaskDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
