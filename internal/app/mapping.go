package app

import (
	"strings"
	"time"

	"hwbot/internal/config"
	"hwbot/internal/notifier"
	"hwbot/internal/poller"
	"hwbot/internal/practicum"
	"hwbot/internal/storage"
	telegram "hwbot/internal/transport/telegram"
	logx "hwbot/pkg/logx"
)

// MapLoggingConfig converts the logging section for logx.New.
func MapLoggingConfig(cfg *config.Config) logx.Config { return mapLoggingConfig(cfg) }

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapPracticumConfig(cfg *config.Config) (practicum.Config, error) {
	timeout, err := config.ParseDurationField("practicum.timeout", cfg.Practicum.Timeout)
	if err != nil {
		return practicum.Config{}, err
	}
	return practicum.Config{
		Endpoint: strings.TrimSpace(cfg.Practicum.Endpoint),
		Token:    cfg.Practicum.Token,
		Timeout:  timeout,
	}, nil
}

func mapTelegramConfig(cfg *config.Config) (telegram.Config, error) {
	timeout, err := config.ParseDurationOrDefault("telegram.timeout", cfg.Telegram.Timeout, 10*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:   cfg.Telegram.Token,
		Timeout: timeout,
		Offline: cfg.Telegram.Offline,
	}, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	chatID, err := cfg.ChatID()
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		ChatID:      chatID,
		RatePerSec:  cfg.Notifier.RatePerSec,
		HistorySize: cfg.Notifier.HistorySize,
	}, nil
}

func mapPollerConfig(cfg *config.Config) (poller.Config, error) {
	pc := cfg.Poller
	interval, err := config.ParseDurationOrDefault("poller.interval", pc.Interval, poller.DefaultInterval)
	if err != nil {
		return poller.Config{}, err
	}
	backfill, err := config.ParseDurationField("poller.backfill", pc.Backfill)
	if err != nil {
		return poller.Config{}, err
	}
	notifyAPI := true
	if pc.NotifyAPIErrors != nil {
		notifyAPI = *pc.NotifyAPIErrors
	}
	out := poller.Config{
		Interval:        interval,
		Cursor:          poller.CursorMode(strings.ToLower(strings.TrimSpace(pc.Cursor))),
		Reset:           poller.ResetPolicy(strings.ToLower(strings.TrimSpace(pc.ResetPolicy))),
		NotifyAPIErrors: notifyAPI,
		LatestOnly:      pc.LatestOnly,
		Backfill:        backfill,
	}
	if err := out.Validate(); err != nil {
		return poller.Config{}, err
	}
	return out, nil
}

// mapStorageConfig returns (cfg, enabled, err).
func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{Driver: driver, Path: cfg.Storage.Path, BusyTimeout: busy}, true, nil
}
