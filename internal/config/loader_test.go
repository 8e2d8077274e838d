package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalYAML = `
http:
  admin_token: "0123456789abcdef"
gemini:
  api_key: "test-key"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTP.Addr)
	assert.Equal(t, DefaultHTTPShutdownTimeout, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, DefaultGeminiModel, cfg.Gemini.Model)
	assert.Equal(t, "sequential", cfg.Chat.CommitMode)
	assert.Equal(t, DefaultChatMaxMessageLength, cfg.Chat.MaxMessageLength)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, DefaultRedisLockTTL, cfg.Redis.LockTTL)
	assert.False(t, cfg.Telegram.Enabled)
	assert.Equal(t, DefaultTelegramMessages, cfg.Telegram.Messages)
	require.Contains(t, cfg.Scheduler.Tasks, "sql_maintenance")
	assert.Equal(t, DefaultTasks["sql_maintenance"], cfg.Scheduler.Tasks["sql_maintenance"])
}

func TestLoadReadsFileValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
log:
  level: debug
  json: true
chat:
  commit_mode: transactional
redis:
  enabled: true
  addr: "redis:6379"
  lock_ttl: 30s
scheduler:
  tasks:
    session_digest:
      enabled: true
      schedule: "30 8 * * *"
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "transactional", cfg.Chat.CommitMode)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, TaskConfig{Enabled: true, Schedule: "30 8 * * *"}, cfg.Scheduler.Tasks["session_digest"])
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("WIDGETBOT_GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("WIDGETBOT_TELEGRAM_ENABLED", "true")
	t.Setenv("WIDGETBOT_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("WIDGETBOT_TELEGRAM_ADMIN_ID", "42")

	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.True(t, cfg.Telegram.Enabled)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.AdminID)
}

func TestLoadSecretsFromEnvironmentOnly(t *testing.T) {
	t.Setenv("WIDGETBOT_HTTP_ADMIN_TOKEN", "fedcba9876543210")
	t.Setenv("WIDGETBOT_GEMINI_API_KEY", "env-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Gemini.APIKey)
	assert.Equal(t, "fedcba9876543210", cfg.HTTP.AdminToken)
}

func TestLoadValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing api key", "http:\n  admin_token: \"0123456789abcdef\"\n"},
		{"short admin token", "http:\n  admin_token: short\ngemini:\n  api_key: k\n"},
		{"bad commit mode", minimalYAML + "chat:\n  commit_mode: eventual\n"},
		{"bad log level", minimalYAML + "log:\n  level: verbose\n"},
		{"telegram without token", minimalYAML + "telegram:\n  enabled: true\n  admin_id: 1\n"},
		{"redis without addr", minimalYAML + "redis:\n  enabled: true\n  addr: \"\"\n"},
		{"enabled task without schedule", minimalYAML + "scheduler:\n  tasks:\n    sql_maintenance:\n      enabled: true\n      schedule: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "http: [unterminated"))
	assert.Error(t, err)
}
