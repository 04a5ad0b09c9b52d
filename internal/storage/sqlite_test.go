package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	logx "hwbot/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", driver, st, err)
		}
	}
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func TestSQLiteJournalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	if err := st.AppendDelivery(ctx, Delivery{ChatID: 42, Kind: "status", Text: "first", OK: true, TookMS: 12}); err != nil {
		t.Fatalf("AppendDelivery: %v", err)
	}
	if err := st.AppendDelivery(ctx, Delivery{ChatID: 42, Kind: "delivery", Text: "second", Error: "forbidden"}); err != nil {
		t.Fatalf("AppendDelivery: %v", err)
	}

	got, err := st.RecentDeliveries(ctx, 10)
	if err != nil {
		t.Fatalf("RecentDeliveries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	if got[0].Text != "second" || got[0].OK || got[0].Error != "forbidden" {
		t.Fatalf("unexpected newest entry: %+v", got[0])
	}
	if got[1].Text != "first" || !got[1].OK || got[1].TookMS != 12 || got[1].At.IsZero() {
		t.Fatalf("unexpected oldest entry: %+v", got[1])
	}
}

func TestSQLiteRequiresPath(t *testing.T) {
	if _, err := Open(Config{Driver: "sqlite"}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestNilStoreIsDisabled(t *testing.T) {
	var s *sqliteStore
	if err := s.AppendDelivery(context.Background(), Delivery{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
