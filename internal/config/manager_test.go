package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hwbot/internal/fault"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestParseWithoutFileUsesDefaultsAndEnv(t *testing.T) {
	m := NewConfigManager("")
	m.SetEnv(envMap(map[string]string{
		EnvPracticumToken: "p",
		EnvTelegramToken:  "t",
		EnvTelegramChatID: "-100123",
	}))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Logging.Console || cfg.Logging.Level != "DEBUG" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if err := cfg.CheckTokens(); err != nil {
		t.Fatalf("CheckTokens: %v", err)
	}
	id, err := cfg.ChatID()
	if err != nil || id != -100123 {
		t.Fatalf("ChatID = %d, %v", id, err)
	}
	if m.Get() != cfg {
		t.Fatal("Load must commit the config")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
practicum:
  token: from-file
  endpoint: http://localhost:8080/api/
telegram:
  token: tg-file
  chat_id: "1"
poller:
  interval: 30s
  cursor: local
logging:
  level: debug
  console: true
`)
	m := NewConfigManager(path)
	m.SetEnv(envMap(map[string]string{EnvPracticumToken: "from-env"}))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Practicum.Token != "from-env" || cfg.Telegram.Token != "tg-file" {
		t.Fatalf("unexpected tokens: %q %q", cfg.Practicum.Token, cfg.Telegram.Token)
	}
	if cfg.Poller.Interval != "30s" || cfg.Poller.Cursor != "local" || cfg.Logging.Level != "debug" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"poller": {"interval": "1m", "jitter": "5s"}}`)
	if _, err := NewConfigManager(path).Parse(); err == nil {
		t.Fatal("expected unknown field error")
	}

	writeFile(t, path, `{"poller": {}} {"poller": {}}`)
	if _, err := NewConfigManager(path).Parse(); err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestCheckTokensOrder(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "all missing", cfg: Config{}, want: EnvPracticumToken},
		{name: "telegram missing", cfg: Config{Practicum: PracticumConfig{Token: "p"}}, want: EnvTelegramToken},
		{name: "chat missing", cfg: Config{Practicum: PracticumConfig{Token: "p"}, Telegram: TelegramConfig{Token: "t"}}, want: EnvTelegramChatID},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.CheckTokens()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not name %s", err, tt.want)
			}
			if !fault.Is(err, fault.KindConfig) {
				t.Fatalf("kind = %q, want config", fault.KindOf(err))
			}
		})
	}
}

func TestCheckTokensRejectsNonNumericChat(t *testing.T) {
	cfg := Config{
		Practicum: PracticumConfig{Token: "p"},
		Telegram:  TelegramConfig{Token: "t", ChatID: "@channel"},
	}
	if err := cfg.CheckTokens(); !fault.Is(err, fault.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}

	path := filepath.Join(dir, ".env")
	writeFile(t, path, "HWBOT_TEST_DOTENV=from-file\n")
	t.Setenv("HWBOT_TEST_DOTENV_KEEP", "process")
	writeFile(t, path, "HWBOT_TEST_DOTENV=from-file\nHWBOT_TEST_DOTENV_KEEP=file\n")
	t.Cleanup(func() { _ = os.Unsetenv("HWBOT_TEST_DOTENV") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("HWBOT_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("HWBOT_TEST_DOTENV = %q", got)
	}
	if got := os.Getenv("HWBOT_TEST_DOTENV_KEEP"); got != "process" {
		t.Fatalf("existing env must win, got %q", got)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("poller.interval", "", 10*time.Minute)
	if err != nil || d != 10*time.Minute {
		t.Fatalf("default: %v %v", d, err)
	}
	d, err = ParseDurationOrDefault("poller.interval", "90s", time.Minute)
	if err != nil || d != 90*time.Second {
		t.Fatalf("explicit: %v %v", d, err)
	}
	if _, err := ParseDurationField("poller.interval", "-1s"); err == nil {
		t.Fatal("expected negative duration error")
	}
	if _, err := ParseDurationField("poller.interval", "soon"); err == nil || !strings.Contains(err.Error(), "poller.interval") {
		t.Fatalf("expected path in error, got %v", err)
	}
}

func TestWatchPublishesChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"logging": {"level": "info", "console": true}}`)

	m := NewConfigManager(path)
	m.SetEnv(envMap(nil))
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(300 * time.Millisecond)
	defer tick.Stop()
	for {
		// Rewrite until the watcher (which starts asynchronously) picks it up.
		writeFile(t, path, `{"logging": {"level": "debug", "console": true}}`)
		select {
		case cfg := <-ch:
			if cfg.Logging.Level != "debug" {
				t.Fatalf("published level = %q", cfg.Logging.Level)
			}
			return
		case <-deadline:
			t.Fatal("no config published")
		case <-tick.C:
		}
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	oldCfg := Default()
	newCfg := Default()
	newCfg.Logging.Level = "WARN"
	newCfg.Poller.Interval = "5m"
	newCfg.Telegram.Token = "secret"

	changed, attrs, restart := SummarizeConfigChange(oldCfg, newCfg)
	if strings.Join(changed, ",") != "logging,telegram,poller" {
		t.Fatalf("changed = %v", changed)
	}
	if strings.Join(restart, ",") != "telegram,poller" {
		t.Fatalf("restart = %v", restart)
	}
	if len(attrs) == 0 {
		t.Fatal("expected attrs")
	}
}
