package poller

import (
	"context"
	"fmt"
	"time"

	"hwbot/internal/fault"
)

// DefaultInterval is the fixed pause between iterations.
const DefaultInterval = 600 * time.Second

// CursorMode selects how the cursor moves after a clean cycle.
type CursorMode string

const (
	// CursorServer resumes exactly at the server-reported current_date.
	CursorServer CursorMode = "server"
	// CursorLocal re-requests a sliding window of now minus the interval.
	// Clock drift or a slow cycle can make it miss or repeat reports.
	CursorLocal CursorMode = "local"
)

// ResetPolicy decides when suppression counters return to zero.
type ResetPolicy string

const (
	// ResetOnSuccess clears every counter after a cycle without errors.
	ResetOnSuccess ResetPolicy = "on_success"
	// ResetNever keeps counters for the process lifetime: after the first
	// notification of a kind, that kind is never reported again.
	ResetNever ResetPolicy = "never"
)

type Config struct {
	Interval time.Duration
	Cursor   CursorMode
	Reset    ResetPolicy
	// NotifyAPIErrors forwards request failures to the chat (first occurrence only).
	NotifyAPIErrors bool
	// LatestOnly reports only the first (newest) homework of each response.
	LatestOnly bool
	// Backfill moves the initial cursor back from the start time.
	Backfill time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Cursor == "" {
		c.Cursor = CursorServer
	}
	if c.Reset == "" {
		c.Reset = ResetOnSuccess
	}
	if c.Backfill < 0 {
		c.Backfill = 0
	}
	return c
}

// Validate rejects unknown modes.
func (c Config) Validate() error {
	switch c.Cursor {
	case "", CursorServer, CursorLocal:
	default:
		return fmt.Errorf("unknown cursor mode %q", c.Cursor)
	}
	switch c.Reset {
	case "", ResetOnSuccess, ResetNever:
	default:
		return fmt.Errorf("unknown reset policy %q", c.Reset)
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must be >= 0")
	}
	return nil
}

// Fetcher is the status API.
type Fetcher interface {
	Statuses(ctx context.Context, from int64) (map[string]any, error)
}

// Notifier delivers chat messages. kind tags the message for the journal.
type Notifier interface {
	Send(ctx context.Context, kind, text string) error
}

// Outcome summarizes one iteration.
type Outcome struct {
	Started      time.Time
	CursorBefore int64
	CursorAfter  int64
	Advanced     bool
	Records      int
	Sent         int
	// Skipped counts messages already delivered on an earlier attempt at
	// the same cursor.
	Skipped int
	Errors  []error
	// Notified lists the error categories that were reported to the chat.
	Notified []fault.Kind
}

// OK reports whether the iteration finished without any error.
func (o Outcome) OK() bool { return len(o.Errors) == 0 }

func (o Outcome) transient() bool {
	for _, err := range o.Errors {
		if fault.KindOf(err).Transient() {
			return true
		}
	}
	return false
}

// Summary is a one-line status for process supervisors.
func (o Outcome) Summary() string {
	if o.OK() {
		return fmt.Sprintf("ok: %d records, %d sent, cursor %d", o.Records, o.Sent, o.CursorAfter)
	}
	return fmt.Sprintf("%d errors (last %s), %d sent, cursor %d",
		len(o.Errors), fault.KindOf(o.Errors[len(o.Errors)-1]), o.Sent, o.CursorAfter)
}
