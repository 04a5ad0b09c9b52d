package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"hwbot/internal/fault"
	"hwbot/internal/notifier"
	"hwbot/internal/practicum"
	logx "hwbot/pkg/logx"
)

type Option func(*Loop)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// WithSleep replaces the interval wait. sleep must return ctx.Err() once ctx is done.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Loop) { l.sleep = sleep }
}

// WithCycleHook is called after every iteration, before the sleep.
func WithCycleHook(fn func(Outcome)) Option {
	return func(l *Loop) { l.hook = fn }
}

// Loop is the sequential poll loop. Its state is owned by the goroutine
// running Run; only Cursor is safe to call from elsewhere.
type Loop struct {
	cfg    Config
	fetch  Fetcher
	notify Notifier
	log    logx.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	hook  func(Outcome)

	cursor     atomic.Int64
	suppressor *Suppressor

	// delivered holds the texts already sent for heldFrom while the cursor
	// is held after a failed delivery.
	delivered map[string]struct{}
	heldFrom  int64
}

func New(cfg Config, fetch Fetcher, notify Notifier, log logx.Logger, opts ...Option) *Loop {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	l := &Loop{
		cfg:        cfg,
		fetch:      fetch,
		notify:     notify,
		log:        log,
		now:        time.Now,
		sleep:      sleepCtx,
		suppressor: NewSuppressor(cfg.Reset),
	}
	for _, o := range opts {
		o(l)
	}
	l.cursor.Store(l.now().Add(-cfg.Backfill).Unix())
	return l
}

// Cursor returns the from_date used by the next iteration.
func (l *Loop) Cursor() int64 { return l.cursor.Load() }

// Suppressor exposes the error counters (read-only use).
func (l *Loop) Suppressor() *Suppressor { return l.suppressor }

// Run loops until ctx is canceled. The sleep between iterations is the
// full interval whether or not the iteration succeeded.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("poll loop started",
		logx.Duration("interval", l.cfg.Interval),
		logx.String("cursor_mode", string(l.cfg.Cursor)),
		logx.String("reset_policy", string(l.cfg.Reset)),
		logx.Int64("cursor", l.Cursor()),
	)
	for {
		out := l.RunOnce(ctx)
		if l.hook != nil {
			l.hook(out)
		}
		if err := l.sleep(ctx, l.cfg.Interval); err != nil {
			l.log.Info("poll loop stopped", logx.Int64("cursor", l.Cursor()))
			return nil
		}
	}
}

// RunOnce performs one FETCH → VALIDATE → PARSE step without sleeping.
func (l *Loop) RunOnce(ctx context.Context) Outcome {
	from := l.Cursor()
	out := Outcome{Started: l.now(), CursorBefore: from, CursorAfter: from}
	if l.delivered != nil && l.heldFrom != from {
		l.delivered = nil
	}

	body, err := l.fetch.Statuses(ctx, from)
	if err != nil {
		l.fail(ctx, &out, err)
		return out
	}

	resp, err := practicum.CheckResponse(body)
	if err != nil {
		l.fail(ctx, &out, err)
		return out
	}

	records := resp.Homeworks
	if len(records) == 0 {
		l.log.Debug("no new statuses in api response", logx.Int64("from_date", from))
	} else if l.cfg.LatestOnly {
		records = records[:1]
	}
	out.Records = len(records)

	for _, rec := range records {
		msg, err := practicum.ParseRecord(rec)
		if err != nil {
			l.fail(ctx, &out, err)
			continue
		}
		if _, ok := l.delivered[msg]; ok {
			out.Skipped++
			continue
		}
		if err := l.notify.Send(ctx, notifier.KindStatus, msg); err != nil {
			// The rest of the batch is retried with the unchanged cursor.
			l.fail(ctx, &out, err)
			break
		}
		out.Sent++
		if l.delivered == nil {
			l.delivered = make(map[string]struct{})
			l.heldFrom = from
		}
		l.delivered[msg] = struct{}{}
	}

	if !out.transient() {
		next := resp.CurrentDate
		if l.cfg.Cursor == CursorLocal {
			next = l.now().Add(-l.cfg.Interval).Unix()
		}
		l.cursor.Store(next)
		out.CursorAfter = next
		out.Advanced = true
		l.delivered = nil
	}
	if out.OK() && l.suppressor.CycleSucceeded() {
		l.log.Debug("error counters reset after clean cycle")
	}
	return out
}

func (l *Loop) fail(ctx context.Context, out *Outcome, err error) {
	out.Errors = append(out.Errors, err)
	kind := fault.KindOf(err)

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		l.log.Debug("cycle interrupted by shutdown", logx.String("kind", string(kind)), logx.Err(err))
		return
	}

	first := l.suppressor.Allow(kind)
	l.log.Error(errorText(kind, err),
		logx.String("kind", string(kind)),
		logx.Int("occurrence", l.suppressor.Count(kind)),
	)

	// A broken delivery channel cannot carry its own failure report.
	if kind == fault.KindDelivery {
		return
	}
	if (kind == fault.KindAPIRequest || kind == fault.KindUnknown) && !l.cfg.NotifyAPIErrors {
		return
	}
	if !first {
		l.log.Debug("error notification suppressed", logx.String("kind", string(kind)))
		return
	}
	if serr := l.notify.Send(ctx, string(kind), errorText(kind, err)); serr != nil {
		l.log.Error("error notification not delivered", logx.String("kind", string(kind)), logx.Err(serr))
		return
	}
	out.Notified = append(out.Notified, kind)
}

func errorText(kind fault.Kind, err error) string {
	switch kind {
	case fault.KindMalformedResponse:
		return "Сбой при проверке ответа API: " + err.Error()
	case fault.KindParse:
		return "Сбой при извлечении данных по домашке: " + err.Error()
	case fault.KindDelivery:
		return err.Error()
	default:
		return "Сбой в работе программы: " + err.Error()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
