// Package config loads and validates widgetbot configuration.
package config

import "time"

// Config holds the complete application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// HTTPConfig configures the guest and operator API server.
type HTTPConfig struct {
	Addr              string        `mapstructure:"addr" validate:"required"`
	AdminToken        string        `mapstructure:"admin_token" validate:"required,min=16"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins" validate:"min=1,dive,required"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// GeminiConfig configures the completion provider.
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key" validate:"required"`
	Model       string  `mapstructure:"model" validate:"required"`
	Temperature float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// ChatConfig tunes the conversation turn pipeline.
type ChatConfig struct {
	CommitMode       string `mapstructure:"commit_mode" validate:"oneof=sequential transactional"`
	MaxMessageLength int    `mapstructure:"max_message_length" validate:"gt=0"`
}

// RedisConfig enables the per-session turn lock.
type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db" validate:"gte=0"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	LockTTL   time.Duration `mapstructure:"lock_ttl" validate:"gt=0"`
}

// TelegramConfig enables the operator review bot.
type TelegramConfig struct {
	Enabled     bool             `mapstructure:"enabled"`
	Token       string           `mapstructure:"token" validate:"required_if=Enabled true"`
	AdminID     int64            `mapstructure:"admin_id" validate:"required_if=Enabled true"`
	NotifyStart bool             `mapstructure:"notify_session_start"`
	Messages    TelegramMessages `mapstructure:"messages"`
}

// TelegramMessages are the fixed replies of the operator bot.
type TelegramMessages struct {
	Welcome       string `mapstructure:"welcome" validate:"required"`
	Help          string `mapstructure:"help" validate:"required"`
	NotAuthorized string `mapstructure:"not_authorized" validate:"required"`
	GeneralError  string `mapstructure:"general_error" validate:"required"`
	Usage         string `mapstructure:"usage" validate:"required"`
	NotFound      string `mapstructure:"not_found" validate:"required"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures one scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}
