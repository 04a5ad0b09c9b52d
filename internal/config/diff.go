package config

import (
	"reflect"
	"strings"

	logx "hwbot/pkg/logx"
)

// SummarizeConfigChange returns the changed sections, safe attrs for logging
// (never tokens) and the sections that only take effect after a restart.
func SummarizeConfigChange(oldCfg, newCfg *Config) (changed []string, attrs []logx.Field, restart []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Practicum != newCfg.Practicum {
		changed = append(changed, "practicum")
		restart = append(restart, "practicum")
		attrs = append(attrs,
			logx.String("practicum.endpoint", strings.TrimSpace(newCfg.Practicum.Endpoint)),
			logx.Bool("practicum.token_changed", oldCfg.Practicum.Token != newCfg.Practicum.Token),
		)
	}

	if oldCfg.Telegram != newCfg.Telegram {
		changed = append(changed, "telegram")
		restart = append(restart, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_changed", oldCfg.Telegram.Token != newCfg.Telegram.Token),
			logx.Bool("telegram.chat_changed", oldCfg.Telegram.ChatID != newCfg.Telegram.ChatID),
		)
	}

	if !reflect.DeepEqual(oldCfg.Poller, newCfg.Poller) {
		changed = append(changed, "poller")
		restart = append(restart, "poller")
		attrs = append(attrs,
			logx.String("poller.interval", newCfg.Poller.Interval),
			logx.String("poller.cursor", newCfg.Poller.Cursor),
		)
	}

	if oldCfg.Notifier != newCfg.Notifier {
		changed = append(changed, "notifier")
		restart = append(restart, "notifier")
	}

	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		restart = append(restart, "storage")
	}

	return changed, attrs, restart
}
