package config

// Config is the on-disk configuration. Every section is optional; secrets
// normally come from the environment (see ApplyEnv).
type Config struct {
	Practicum PracticumConfig `json:"practicum"`
	Telegram  TelegramConfig  `json:"telegram"`
	Poller    PollerConfig    `json:"poller"`
	Notifier  NotifierConfig  `json:"notifier"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
}

type PracticumConfig struct {
	// Token is overridden by PRACTICUM_TOKEN.
	Token    string `json:"token,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	// Timeout is a Go duration string. "0s" or empty keeps the HTTP client default.
	Timeout string `json:"timeout,omitempty"`
}

type TelegramConfig struct {
	// Token is overridden by TELEGRAM_TOKEN.
	Token string `json:"token,omitempty"`
	// ChatID is overridden by TELEGRAM_CHAT_ID.
	ChatID string `json:"chat_id,omitempty"`
	// Timeout bounds Bot API calls (Go duration string).
	Timeout string `json:"timeout,omitempty"`
	// Offline skips the startup getMe call.
	Offline bool `json:"offline,omitempty"`
}

// PollerConfig controls the polling loop.
//
// Defaults (when fields are omitted/zero):
//   - interval: "600s"
//   - cursor: "server"
//   - reset_policy: "on_success"
//   - notify_api_errors: true
//   - latest_only: false
//   - backfill: "0s"
type PollerConfig struct {
	Interval        string `json:"interval,omitempty"`
	Cursor          string `json:"cursor,omitempty"`
	ResetPolicy     string `json:"reset_policy,omitempty"`
	NotifyAPIErrors *bool  `json:"notify_api_errors,omitempty"`
	LatestOnly      bool   `json:"latest_only,omitempty"`
	Backfill        string `json:"backfill,omitempty"`
}

type NotifierConfig struct {
	RatePerSec  int `json:"rate_per_sec,omitempty"`
	HistorySize int `json:"history_size,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the optional delivery journal.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/journal.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// Default returns the config used when no file is given.
// Logging starts at DEBUG so sent messages and empty polls are visible;
// set logging.level to INFO for quieter output.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "DEBUG", Console: true},
	}
}
