package config

import "time"

// Default values for optional configuration.
const (
	DefaultLogLevel = "info"

	DefaultHTTPAddr              = ":8080"
	DefaultHTTPReadHeaderTimeout = 10 * time.Second
	DefaultHTTPShutdownTimeout   = 15 * time.Second
	DefaultHTTPMaxBodyBytes      = 64 << 10

	DefaultDatabasePath = "widgetbot.db"

	DefaultGeminiModel       = "gemini-2.0-flash"
	DefaultGeminiTemperature = 1.0

	DefaultChatCommitMode       = "sequential"
	DefaultChatMaxMessageLength = 4000

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "widgetbot:"
	DefaultRedisLockTTL   = 2 * time.Minute
)

// DefaultTelegramMessages are used for any message not set in configuration.
var DefaultTelegramMessages = TelegramMessages{
	Welcome:       "👋 Widgetbot operator console. Use /help to see what I can show you.",
	Help:          "/chatbots - list chatbots\n/sessions <chatbot_id> - list guest sessions\n/transcript <session_id> - show a conversation",
	NotAuthorized: "🚫 Access denied.",
	GeneralError:  "❌ Something went wrong. Please try again later.",
	Usage:         "ℹ️ Usage: %s",
	NotFound:      "🔍 Nothing found for that id.",
}

// DefaultTasks are the scheduled tasks known to the application.
var DefaultTasks = map[string]TaskConfig{
	"sql_maintenance": {Enabled: true, Schedule: "0 4 * * 0"},
	"session_digest":  {Enabled: false, Schedule: "0 9 * * *"},
}

func setDefaults(v viperSetter) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", false)

	v.SetDefault("http.addr", DefaultHTTPAddr)
	v.SetDefault("http.admin_token", "")
	v.SetDefault("http.read_header_timeout", DefaultHTTPReadHeaderTimeout)
	v.SetDefault("http.shutdown_timeout", DefaultHTTPShutdownTimeout)
	v.SetDefault("http.max_body_bytes", DefaultHTTPMaxBodyBytes)
	v.SetDefault("http.allowed_origins", []string{"*"})

	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)

	v.SetDefault("chat.commit_mode", DefaultChatCommitMode)
	v.SetDefault("chat.max_message_length", DefaultChatMaxMessageLength)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", DefaultRedisKeyPrefix)
	v.SetDefault("redis.lock_ttl", DefaultRedisLockTTL)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_id", 0)
	v.SetDefault("telegram.notify_session_start", true)
	v.SetDefault("telegram.messages.welcome", DefaultTelegramMessages.Welcome)
	v.SetDefault("telegram.messages.help", DefaultTelegramMessages.Help)
	v.SetDefault("telegram.messages.not_authorized", DefaultTelegramMessages.NotAuthorized)
	v.SetDefault("telegram.messages.general_error", DefaultTelegramMessages.GeneralError)
	v.SetDefault("telegram.messages.usage", DefaultTelegramMessages.Usage)
	v.SetDefault("telegram.messages.not_found", DefaultTelegramMessages.NotFound)

	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}
}

type viperSetter interface {
	SetDefault(key string, value any)
}
