package app

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"hwbot/internal/config"
	"hwbot/internal/notifier"
	"hwbot/internal/poller"
	"hwbot/internal/runtime/supervisor"
	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

type captureSender struct {
	mu   sync.Mutex
	msgs []string
	chat int64
}

func (c *captureSender) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, text)
	c.chat = to.ChatID
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(c.msgs)}, nil
}

type staticFetcher struct{ body string }

func (f staticFetcher) Statuses(context.Context, int64) (map[string]any, error) {
	var m map[string]any
	dec := json.NewDecoder(strings.NewReader(f.body))
	dec.UseNumber()
	err := dec.Decode(&m)
	return m, err
}

func loadConfig(t *testing.T, env map[string]string, file string) *config.ConfigManager {
	t.Helper()
	path := ""
	if file != "" {
		path = filepath.Join(t.TempDir(), "config.json")
		writeConfig(t, path, file)
	}
	m := config.NewConfigManager(path)
	m.SetEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

var validEnv = map[string]string{
	config.EnvPracticumToken: "p",
	config.EnvTelegramToken:  "t",
	config.EnvTelegramChatID: "4242",
}

func quietLogs() *logx.Service {
	svc, _ := logx.New(logx.Config{Level: "critical", Console: true})
	return svc
}

func TestNewRejectsMissingTokens(t *testing.T) {
	m := loadConfig(t, map[string]string{config.EnvPracticumToken: "p"}, "")
	_, err := New(m, quietLogs(), Options{Sender: &captureSender{}})
	if err == nil || !strings.Contains(err.Error(), config.EnvTelegramToken) {
		t.Fatalf("expected missing TELEGRAM_TOKEN, got %v", err)
	}
}

func TestRunDeliversStatusAndStops(t *testing.T) {
	m := loadConfig(t, validEnv, `{"poller": {"interval": "1m"}, "storage": {"driver": "sqlite", "path": "`+
		filepath.ToSlash(filepath.Join(t.TempDir(), "j.db"))+`"}}`)
	sender := &captureSender{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var slept []time.Duration
	var mu sync.Mutex
	a, err := New(m, quietLogs(), Options{
		Sender:  sender,
		Fetcher: staticFetcher{body: `{"homeworks": [{"homework_name": "X", "status": "approved"}], "current_date": 1700000600}`},
		Sleep: func(ctx context.Context, d time.Duration) error {
			mu.Lock()
			slept = append(slept, d)
			mu.Unlock()
			cancel()
			return context.Canceled
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	want := `Изменился статус проверки работы "X". Работа проверена: ревьюеру всё понравилось. Ура!`
	if len(sender.msgs) != 1 || sender.msgs[0] != want || sender.chat != 4242 {
		t.Fatalf("unexpected deliveries: %q to %d", sender.msgs, sender.chat)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(slept) != 1 || slept[0] != time.Minute {
		t.Fatalf("slept = %v", slept)
	}
	if a.Loop().Cursor() != 1700000600 {
		t.Fatalf("cursor = %d", a.Loop().Cursor())
	}
	if a.store == nil {
		t.Fatal("journal should be open")
	}
	last, ok, err := lastDelivery(context.Background(), a.store)
	if err != nil || !ok || !last.OK || last.Kind != "status" {
		t.Fatalf("journal last = %+v, %v, %v", last, ok, err)
	}
}

func TestStatusLine(t *testing.T) {
	t.Parallel()
	out := poller.Outcome{Records: 2, Sent: 2, CursorAfter: 77}
	c := supervisor.SupervisorCounters{Active: 3, Restarts: 1}

	if got, want := statusLine(out, c, nil), "ok: 2 records, 2 sent, cursor 77; tasks 3, restarts 1"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	history := []notifier.HistoryItem{
		{At: at, Kind: "status"},
		{At: at.Add(time.Minute), Kind: "status", Error: "blocked"},
	}
	got := statusLine(out, c, history)
	if !strings.HasSuffix(got, "; last delivery 2026-01-02T03:04:05Z") {
		t.Fatalf("failed attempts must not count as deliveries: %q", got)
	}
}

func TestMapPollerConfig(t *testing.T) {
	t.Parallel()
	off := false
	cfg := config.Default()
	cfg.Poller = config.PollerConfig{
		Interval:        "90s",
		Cursor:          " Local ",
		ResetPolicy:     "never",
		NotifyAPIErrors: &off,
		Backfill:        "1h",
	}
	got, err := mapPollerConfig(cfg)
	if err != nil {
		t.Fatalf("mapPollerConfig: %v", err)
	}
	want := poller.Config{
		Interval:        90 * time.Second,
		Cursor:          poller.CursorLocal,
		Reset:           poller.ResetNever,
		NotifyAPIErrors: false,
		Backfill:        time.Hour,
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	defaults, err := mapPollerConfig(config.Default())
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if defaults.Interval != poller.DefaultInterval || !defaults.NotifyAPIErrors {
		t.Fatalf("unexpected defaults: %+v", defaults)
	}

	cfg.Poller.Cursor = "sideways"
	if _, err := mapPollerConfig(cfg); err == nil {
		t.Fatal("expected invalid cursor mode")
	}
}
