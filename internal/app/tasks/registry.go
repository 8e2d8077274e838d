package tasks

import "context"

// ScheduledTaskFunc defines the signature for all scheduled tasks.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns every task keyed by its name under scheduler.tasks.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		"sql_maintenance": newSQLMaintenanceTask(deps),
		"session_digest":  newSessionDigestTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
