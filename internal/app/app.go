package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hwbot/internal/config"
	"hwbot/internal/notifier"
	"hwbot/internal/poller"
	"hwbot/internal/practicum"
	"hwbot/internal/runtime/supervisor"
	"hwbot/internal/storage"
	kit "hwbot/internal/transport"
	telegram "hwbot/internal/transport/telegram"
	logx "hwbot/pkg/logx"
)

// App owns the long-lived components of the bot.
type App struct {
	cfgm *config.ConfigManager
	cfg  *config.Config

	log  logx.Logger
	logs *logx.Service

	store  storage.Store
	sender kit.Sender
	client *practicum.Client
	notif  *notifier.Service
	loop   *poller.Loop
	sd     *systemdNotifier

	sup *supervisor.Supervisor
}

// Options override the external collaborators (tests).
type Options struct {
	Sender  kit.Sender
	Fetcher poller.Fetcher
	Sleep   func(ctx context.Context, d time.Duration) error
}

// New builds the app from an already loaded config. The config must have
// passed CheckTokens.
func New(cfgm *config.ConfigManager, logs *logx.Service, opt Options) (*App, error) {
	cfg := cfgm.Get()
	if cfg == nil {
		return nil, errors.New("config not loaded")
	}
	if err := cfg.CheckTokens(); err != nil {
		return nil, err
	}
	log := logs.Logger().With(logx.String("comp", "app"))
	cfgm.SetLogger(logs.Logger().With(logx.String("comp", "config")))

	a := &App{cfgm: cfgm, cfg: cfg, log: log, logs: logs, sd: newSystemdNotifier(log)}

	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	if enabled {
		st, err := storage.Open(sc, logs.Logger().With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		a.store = st
		log.Info("delivery journal enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
		if last, ok, err := lastDelivery(context.Background(), st); err != nil {
			log.Warn("delivery journal read failed", logx.Err(err))
		} else if ok {
			log.Info("last journaled delivery",
				logx.Time("at", last.At),
				logx.String("kind", last.Kind),
				logx.Bool("ok", last.OK),
			)
		}
	}

	a.sender = opt.Sender
	if a.sender == nil {
		tcfg, err := mapTelegramConfig(cfg)
		if err != nil {
			return nil, a.closeOnErr(err)
		}
		ad, err := telegram.New(tcfg, logs.Logger().With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, a.closeOnErr(err)
		}
		a.sender = ad
	}

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, a.closeOnErr(err)
	}
	a.notif = notifier.New(ncfg, a.sender, a.store, logs.Logger().With(logx.String("comp", "notifier")))

	fetch := opt.Fetcher
	if fetch == nil {
		pcfg, err := mapPracticumConfig(cfg)
		if err != nil {
			return nil, a.closeOnErr(err)
		}
		client, err := practicum.New(pcfg, logs.Logger().With(logx.String("comp", "practicum")))
		if err != nil {
			return nil, a.closeOnErr(err)
		}
		a.client = client
		fetch = client
	}

	lcfg, err := mapPollerConfig(cfg)
	if err != nil {
		return nil, a.closeOnErr(err)
	}
	opts := []poller.Option{poller.WithCycleHook(a.onCycle)}
	if opt.Sleep != nil {
		opts = append(opts, poller.WithSleep(opt.Sleep))
	}
	a.loop = poller.New(lcfg, fetch, a.notif, logs.Logger().With(logx.String("comp", "poller")), opts...)

	return a, nil
}

func (a *App) closeOnErr(err error) error {
	if a.store != nil {
		_ = a.store.Close()
	}
	return err
}

// Loop exposes the poll loop (operational visibility and tests).
func (a *App) Loop() *poller.Loop { return a.loop }

// Run blocks until ctx is canceled. The poll loop never ends on its own.
func (a *App) Run(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))

	a.sup.GoRestart("poller", a.loop.Run, time.Second, time.Minute)
	a.sup.Go("systemd.watchdog", a.sd.Watchdog)
	if a.cfgm.Path() != "" {
		a.sup.Go("config.watch", a.cfgm.Watch)
		a.sup.Go("config.apply", a.applyConfigUpdates)
	}

	a.sd.Ready()
	<-ctx.Done()
	a.sd.Stopping()

	wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.sup.Stop(wctx); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn("shutdown incomplete", logx.Err(err))
	}
	return nil
}

// Close releases resources. Safe to call after Run returned.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Close())
	}
	return errors.Join(errs...)
}

func (a *App) onCycle(out poller.Outcome) {
	fields := []logx.Field{
		logx.Int("records", out.Records),
		logx.Int("sent", out.Sent),
		logx.Int("errors", len(out.Errors)),
		logx.Int64("cursor", out.CursorAfter),
		logx.Bool("advanced", out.Advanced),
	}
	if out.OK() {
		a.log.Debug("poll cycle finished", fields...)
	} else {
		a.log.Info("poll cycle finished with errors", fields...)
	}
	var counters supervisor.SupervisorCounters
	if a.sup != nil {
		counters = a.sup.Counters()
	}
	a.sd.Status(statusLine(out, counters, a.notif.History()))
}

// statusLine extends the cycle summary with runtime counters and the time of
// the last successful delivery.
func statusLine(out poller.Outcome, c supervisor.SupervisorCounters, history []notifier.HistoryItem) string {
	s := fmt.Sprintf("%s; tasks %d, restarts %d", out.Summary(), c.Active, c.Restarts)
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Error == "" {
			return s + "; last delivery " + history[i].At.UTC().Format(time.RFC3339)
		}
	}
	return s
}

func lastDelivery(ctx context.Context, st storage.Store) (storage.Delivery, bool, error) {
	recent, err := st.RecentDeliveries(ctx, 1)
	if err != nil || len(recent) == 0 {
		return storage.Delivery{}, false, err
	}
	return recent[0], true, nil
}

func (a *App) applyConfigUpdates(ctx context.Context) error {
	ch := a.cfgm.Subscribe(1)
	defer a.cfgm.Unsubscribe(ch)

	cur := a.cfg
	for {
		select {
		case <-ctx.Done():
			return nil
		case next, ok := <-ch:
			if !ok {
				return nil
			}
			changed, attrs, restart := config.SummarizeConfigChange(cur, next)
			if len(changed) == 0 {
				continue
			}
			if lc := mapLoggingConfig(next); lc != a.logs.Config() {
				a.logs.Apply(lc)
			}
			a.log.Info("config reloaded", append(attrs, logx.Any("changed", changed))...)
			if len(restart) > 0 {
				a.log.Warn("config sections changed that need a restart", logx.Any("sections", restart))
			}
			cur = next
		}
	}
}
